package sched

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ygrebnov/fibers"
)

type state uint8

const (
	stateYielded state = iota
	stateSuspended
	stateTerminated
)

func (s state) String() string {
	switch s {
	case stateYielded:
		return "yielded"
	case stateSuspended:
		return "suspended"
	case stateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// handback is what a fiber sends to its worker when it stops running.
type handback struct {
	f  *Fiber
	st state
}

// Fiber is a cooperatively scheduled unit of work. It is backed by a
// goroutine, but that goroutine only runs while a worker has dispatched it;
// the worker blocks until the fiber yields, suspends or returns.
//
// Fiber implements fibers.Context, so it can be passed to fibers.Mutex and
// any other primitive built on that contract.
type Fiber struct {
	id    uuid.UUID
	typ   fibers.Type
	group *Group
	fn    func(*Fiber)

	// resume carries the single "run now" token from the dispatching worker.
	resume chan struct{}
	// owner is the worker that dispatched the fiber last, or the one it was
	// placed on if it never ran.
	owner atomic.Pointer[worker]

	aborted  bool
	err      error
	done     chan struct{}
	doneOnce sync.Once
}

var _ fibers.Context = (*Fiber)(nil)

func newFiber(g *Group, fn func(*Fiber), typ fibers.Type, w *worker) *Fiber {
	f := &Fiber{
		id:     uuid.New(),
		typ:    typ,
		group:  g,
		fn:     fn,
		resume: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	f.owner.Store(w)
	return f
}

// ID returns the fiber's unique identifier.
func (f *Fiber) ID() uuid.UUID { return f.id }

// Worker returns the index of the worker the fiber last ran on.
func (f *Fiber) Worker() int { return f.owner.Load().idx }

// Done is closed once the fiber has returned, panicked or been abandoned.
func (f *Fiber) Done() <-chan struct{} { return f.done }

// Err reports how the fiber ended. It is only meaningful after Done is closed:
// nil for a normal return, fibers.ErrFiberPanicked or fibers.ErrAborted otherwise.
func (f *Fiber) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// IsContext reports whether the fiber carries any of the flags in t.
func (f *Fiber) IsContext(t fibers.Type) bool { return f.typ&t != 0 }

// Suspend hands the fiber back to its worker as blocked, releases lk and
// waits until some other unit schedules it. The worker has already accepted
// the handback when lk is released, so a Schedule racing with Suspend only
// ever sees a fiber that is off its worker.
func (f *Fiber) Suspend(lk sync.Locker) {
	w := f.owner.Load()
	w.back <- handback{f: f, st: stateSuspended}
	lk.Unlock()
	f.park()
}

// Schedule makes c runnable. A fiber that last ran on the caller's worker
// goes straight into that worker's ready deque; any other fiber is handed to
// its own worker through the remote-ready queue.
func (f *Fiber) Schedule(c fibers.Context) {
	target, ok := c.(*Fiber)
	if !ok {
		panic(fmt.Sprintf("sched: cannot schedule %T", c))
	}
	tw := target.owner.Load()
	if tw == f.owner.Load() {
		tw.algo.Awakened(target)
		return
	}
	tw.remoteReady(target)
}

// Yield hands control back to the worker; the fiber is re-queued behind
// every fiber that is already ready.
func (f *Fiber) Yield() {
	w := f.owner.Load()
	w.back <- handback{f: f, st: stateYielded}
	f.park()
}

// Spawn starts fn as a new fiber on the caller's worker.
func (f *Fiber) Spawn(fn func(*Fiber), opts ...SpawnOption) (*Fiber, error) {
	sc := spawnConfig{worker: f.Worker(), typ: fibers.WorkerContext}
	for _, opt := range opts {
		if opt != nil {
			opt(&sc)
		}
	}
	return f.group.spawn(fn, sc, f.owner.Load())
}

// park blocks the fiber goroutine until it is dispatched again. If the group
// stops for good first, the goroutine exits through its deferred finish.
func (f *Fiber) park() {
	select {
	case <-f.resume:
	case <-f.group.abort:
		f.aborted = true
		runtime.Goexit()
	}
}

func (f *Fiber) run() {
	defer f.finish()
	f.park()
	f.fn(f)
}

func (f *Fiber) finish() {
	if r := recover(); r != nil {
		f.err = newFiberError(fmt.Errorf("%w: %v", fibers.ErrFiberPanicked, r), f.id, f.Worker())
		f.group.logger.Warn("fiber panicked",
			zap.Stringer("fiber", f.id),
			zap.Int("worker", f.Worker()),
			zap.Any("panic", r),
		)
	}

	if f.aborted {
		f.err = newFiberError(fibers.ErrAborted, f.id, f.Worker())
		f.group.fiberDone(f)
		return
	}

	w := f.owner.Load()
	w.back <- handback{f: f, st: stateTerminated}
}

func (f *Fiber) markDone() {
	f.doneOnce.Do(func() { close(f.done) })
}
