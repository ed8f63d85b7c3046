package sched

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/ygrebnov/errorc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ygrebnov/fibers"
	"github.com/ygrebnov/fibers/algo"
	"github.com/ygrebnov/fibers/metrics"
)

// Group is a set of workers sharing one work-stealing roster. Fibers spawned
// into a Group run on its workers until they return; unpinned fibers move to
// whichever worker is idle.
//
// Group methods are safe for concurrent use.
type Group struct {
	// noCopy prevents accidental copying of the controller.
	//go:nocopy
	nc noCopy

	cfg     config
	logger  *zap.Logger
	roster  *algo.Roster
	workers []*worker

	next    atomic.Uint64 // round-robin placement
	live    atomic.Int64
	closing atomic.Bool

	startOnce sync.Once
	cancel    context.CancelFunc
	stopped   chan struct{} // closed when every driver has returned
	abort     chan struct{} // closed after stopped; releases stranded fibers
	runErr    error
	lc        *lifecycleCoordinator

	spawned   metrics.Counter
	completed metrics.Counter
	panicked  metrics.Counter
	liveGauge metrics.UpDownCounter
}

// noCopy is a vet-recognized marker to discourage copying types with this field embedded.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// New creates a Group using functional options. Workers are not running until Start.
func New(opts ...Option) (*Group, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	roster, err := algo.NewRoster(cfg.Workers,
		algo.WithQueueCapacity(cfg.QueueCapacity),
		algo.WithMetrics(cfg.Metrics),
		algo.WithSuspend(cfg.Suspend),
	)
	if err != nil {
		return nil, err
	}

	g := &Group{
		cfg:     cfg,
		logger:  cfg.Logger,
		roster:  roster,
		stopped: make(chan struct{}),
		abort:   make(chan struct{}),
	}
	g.workers = make([]*worker, cfg.Workers)
	for i := range g.workers {
		g.workers[i] = newWorker(g, i, roster.At(i))
	}

	g.spawned = cfg.Metrics.Counter(metrics.FibersSpawned,
		metrics.WithDescription("fibers accepted by Spawn"), metrics.WithUnit("1"))
	g.completed = cfg.Metrics.Counter(metrics.FibersCompleted,
		metrics.WithDescription("fibers that finished, including failed ones"), metrics.WithUnit("1"))
	g.panicked = cfg.Metrics.Counter(metrics.FibersPanicked,
		metrics.WithDescription("fibers that ended with a recovered panic"), metrics.WithUnit("1"))
	g.liveGauge = cfg.Metrics.UpDownCounter(metrics.FibersLive,
		metrics.WithDescription("fibers spawned and not yet finished"), metrics.WithUnit("1"))

	g.lc = &lifecycleCoordinator{
		stopIntake: func() { g.closing.Store(true) },
		ensureRun:  func() { g.Start(context.Background()) },
		wakeAll:    g.wakeAll,
		stopped:    g.stopped,
		cancel:     func() { g.cancel() },
		result:     func() error { return g.runErr },
	}
	return g, nil
}

// Workers returns the number of workers.
func (g *Group) Workers() int { return len(g.workers) }

// Active returns the fiber currently dispatched on worker i, or nil.
func (g *Group) Active(i int) *Fiber { return g.workers[i].active.Load() }

// Live returns the number of fibers spawned and not yet finished.
func (g *Group) Live() int { return int(g.live.Load()) }

// Start runs one driver per worker. It is idempotent.
//
// Cancelling ctx stops the drivers without waiting for live fibers; fibers
// that can no longer run end with fibers.ErrAborted.
func (g *Group) Start(ctx context.Context) {
	g.startOnce.Do(func() {
		ctx, g.cancel = context.WithCancel(ctx)
		context.AfterFunc(ctx, g.wakeAll)

		eg, ctx := errgroup.WithContext(ctx)
		for _, w := range g.workers {
			eg.Go(func() error { return w.run(ctx) })
		}
		g.logger.Debug("group started", zap.Int("workers", len(g.workers)))

		go func() {
			g.runErr = eg.Wait()
			g.logger.Debug("group stopped", zap.Error(g.runErr))
			close(g.stopped)
			close(g.abort)
		}()
	})
}

// Spawn starts fn as a new fiber from outside any fiber. Placement is
// round-robin unless OnWorker is given. Fibers spawned before Start wait in
// their worker's queue. After Close it returns fibers.ErrClosed.
func (g *Group) Spawn(fn func(*Fiber), opts ...SpawnOption) (*Fiber, error) {
	sc := spawnConfig{worker: -1, typ: fibers.WorkerContext}
	for _, opt := range opts {
		if opt != nil {
			opt(&sc)
		}
	}
	if sc.worker < 0 {
		sc.worker = int((g.next.Add(1) - 1) % uint64(len(g.workers)))
	}
	return g.spawn(fn, sc, nil)
}

// spawn places a fiber on sc.worker. local is the worker the caller is
// running on, or nil outside any fiber.
func (g *Group) spawn(fn func(*Fiber), sc spawnConfig, local *worker) (*Fiber, error) {
	if sc.worker < 0 || sc.worker >= len(g.workers) {
		return nil, errorc.With(fibers.ErrInvalidConfig, errorc.String("worker", strconv.Itoa(sc.worker)))
	}

	// live is raised before the closing check so that a driver can never
	// observe "closing with nothing live" while this spawn is in flight.
	g.live.Add(1)
	if g.closing.Load() {
		g.live.Add(-1)
		g.wakeIfFinished()
		return nil, fibers.ErrClosed
	}

	w := g.workers[sc.worker]
	f := newFiber(g, fn, sc.typ, w)
	g.spawned.Add(1)
	g.liveGauge.Add(1)

	go f.run()

	if w == local {
		w.algo.Awakened(f)
	} else {
		w.remoteReady(f)
	}
	return f, nil
}

// Close stops accepting spawns and waits until every live fiber has finished
// and all drivers have returned, or until ctx is done. On ctx expiry the
// drivers are cancelled and ctx.Err() is returned.
//
// Close on a Group that was never started starts it, so queued fibers run.
func (g *Group) Close(ctx context.Context) error {
	return g.lc.Close(ctx)
}

func (g *Group) finished() bool {
	return g.closing.Load() && g.live.Load() == 0
}

func (g *Group) fiberDone(f *Fiber) {
	g.completed.Add(1)
	g.liveGauge.Add(-1)
	if errors.Is(f.err, fibers.ErrFiberPanicked) {
		g.panicked.Add(1)
	}
	f.markDone()

	if g.live.Add(-1) == 0 {
		g.wakeIfFinished()
	}
}

func (g *Group) wakeIfFinished() {
	if g.finished() {
		g.wakeAll()
	}
}

func (g *Group) wakeAll() {
	for _, w := range g.workers {
		w.notify()
	}
}
