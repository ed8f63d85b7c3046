package sched

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ygrebnov/fibers/algo"
	"github.com/ygrebnov/fibers/queue"
	"github.com/ygrebnov/fibers/spinlock"
)

// worker drives one scheduling algorithm: it picks a ready fiber, lets it run
// until it hands back, and parks when nothing is runnable.
type worker struct {
	idx    int
	group  *Group
	algo   algo.Algorithm
	logger *zap.Logger

	// back receives the handback of the fiber currently dispatched.
	back chan handback

	// remote holds fibers made ready by units running on other workers.
	rmu    spinlock.Lock
	remote queue.Queue[*Fiber]

	active atomic.Pointer[Fiber]
}

func newWorker(g *Group, idx int, a algo.Algorithm) *worker {
	return &worker{
		idx:    idx,
		group:  g,
		algo:   a,
		logger: g.logger.With(zap.Int("worker", idx)),
		back:   make(chan handback),
	}
}

// remoteReady queues f for this worker from any goroutine and wakes it.
func (w *worker) remoteReady(f *Fiber) {
	w.rmu.Lock()
	w.remote.Push(f)
	w.rmu.Unlock()
	w.algo.Notify()
}

func (w *worker) drainRemote() {
	w.rmu.Lock()
	defer w.rmu.Unlock()
	for {
		f, ok := w.remote.Pop()
		if !ok {
			return
		}
		w.algo.Awakened(f)
	}
}

func (w *worker) run(ctx context.Context) error {
	w.logger.Debug("worker started")
	defer w.logger.Debug("worker stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.drainRemote()
		if c := w.algo.PickNext(); c != nil {
			w.dispatch(c.(*Fiber))
			continue
		}
		if w.group.finished() {
			return nil
		}
		w.algo.SuspendUntil(time.Now().Add(w.group.cfg.IdleTimeout))
	}
}

func (w *worker) dispatch(f *Fiber) {
	f.owner.Store(w)
	w.active.Store(f)
	f.resume <- struct{}{}

	hb := <-w.back
	w.active.Store(nil)

	switch hb.st {
	case stateYielded:
		w.algo.Awakened(hb.f)
	case stateSuspended:
		// whoever holds the fiber now schedules it
	case stateTerminated:
		w.group.fiberDone(hb.f)
	}
}

// notify wakes the worker if it is parked.
func (w *worker) notify() { w.algo.Notify() }
