package algo

import (
	"strconv"

	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/fibers"
	"github.com/ygrebnov/fibers/metrics"
)

type config struct {
	// QueueCapacity is the initial slot count of every worker deque.
	// Default: 1024.
	QueueCapacity int

	// Metrics receives steal and park instruments.
	// Default: metrics.NoopProvider.
	Metrics metrics.Provider

	// Suspend makes an idle worker park in SuspendUntil. When false,
	// SuspendUntil and Notify do nothing and the driver keeps polling.
	// Default: true.
	Suspend bool
}

func defaultConfig() config {
	return config{
		QueueCapacity: 1024,
		Metrics:       metrics.NewNoopProvider(),
		Suspend:       true,
	}
}

// Option configures a Roster.
type Option func(*config) error

// WithQueueCapacity sets the initial capacity of each worker deque (must be > 0).
func WithQueueCapacity(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return errorc.With(fibers.ErrInvalidConfig, errorc.String("queue capacity", strconv.Itoa(n)))
		}
		cfg.QueueCapacity = n
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

// WithSuspend selects whether idle workers park (true) or keep polling (false).
func WithSuspend(suspend bool) Option {
	return func(cfg *config) error {
		cfg.Suspend = suspend
		return nil
	}
}
