package sched

import (
	"runtime"
	"strconv"
	"time"

	"github.com/ygrebnov/errorc"
	"go.uber.org/zap"

	"github.com/ygrebnov/fibers"
	"github.com/ygrebnov/fibers/metrics"
)

// config holds Group configuration.
type config struct {
	// Workers is the number of worker goroutines, each driving one scheduling algorithm.
	// Default: runtime.NumCPU().
	Workers int

	// QueueCapacity is the initial capacity of every worker ready deque.
	// Deques grow on demand, so this only affects early allocations.
	// Default: 1024.
	QueueCapacity int

	// IdleTimeout bounds a single park of an idle worker. A parked worker is
	// normally woken by Notify; the timeout is the fallback poll interval.
	// Default: 50ms.
	IdleTimeout time.Duration

	// Logger receives worker lifecycle and fiber failure events.
	// Default: zap.NewNop().
	Logger *zap.Logger

	// Metrics receives runtime and scheduler instruments.
	// Default: metrics.NoopProvider.
	Metrics metrics.Provider

	// Suspend parks idle workers. When false they poll their queues and
	// peers without blocking, trading CPU for wakeup latency.
	// Default: true.
	Suspend bool
}

func defaultConfig() config {
	return config{
		Workers:       runtime.NumCPU(),
		QueueCapacity: 1024,
		IdleTimeout:   50 * time.Millisecond,
		Logger:        zap.NewNop(),
		Metrics:       metrics.NewNoopProvider(),
		Suspend:       true,
	}
}

// validateConfig checks invariants that options cannot check on their own.
func validateConfig(cfg *config) error {
	if cfg.Workers <= 0 {
		return errorc.With(fibers.ErrInvalidConfig, errorc.String("workers", strconv.Itoa(cfg.Workers)))
	}
	return nil
}

// Option configures a Group.
type Option func(*config) error

// WithWorkers sets the number of workers (must be > 0).
func WithWorkers(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return errorc.With(fibers.ErrInvalidConfig, errorc.String("workers", strconv.Itoa(n)))
		}
		cfg.Workers = n
		return nil
	}
}

// WithQueueCapacity sets the initial capacity of each worker ready deque (must be > 0).
func WithQueueCapacity(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return errorc.With(fibers.ErrInvalidConfig, errorc.String("queue capacity", strconv.Itoa(n)))
		}
		cfg.QueueCapacity = n
		return nil
	}
}

// WithIdleTimeout sets the longest time an idle worker stays parked (must be > 0).
func WithIdleTimeout(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return errorc.With(fibers.ErrInvalidConfig, errorc.String("idle timeout", d.String()))
		}
		cfg.IdleTimeout = d
		return nil
	}
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *config) error {
		if l != nil {
			cfg.Logger = l
		}
		return nil
	}
}

// WithMetrics sets the metrics provider. A nil provider keeps the default.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error {
		if p != nil {
			cfg.Metrics = p
		}
		return nil
	}
}

// WithSuspend selects whether idle workers park (true, default) or keep polling (false).
func WithSuspend(suspend bool) Option {
	return func(cfg *config) error {
		cfg.Suspend = suspend
		return nil
	}
}

type spawnConfig struct {
	worker int // -1: round-robin
	typ    fibers.Type
}

// SpawnOption configures a single Spawn call.
type SpawnOption func(*spawnConfig)

// OnWorker places the new fiber on worker i instead of the round-robin choice.
// An unpinned fiber may still be stolen by another worker later.
func OnWorker(i int) SpawnOption {
	return func(sc *spawnConfig) { sc.worker = i }
}

// Pinned marks the fiber as never migrating off the worker it is placed on.
func Pinned() SpawnOption {
	// MainContext is only the pinning classification here; it falls under
	// fibers.PinnedContext, which thieves refuse.
	return func(sc *spawnConfig) { sc.typ = fibers.MainContext }
}
