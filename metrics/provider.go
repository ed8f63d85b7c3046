// Package metrics defines the instruments the scheduler records into and
// ships three providers: Noop (default), Basic (in-memory) and Prometheus.
package metrics

// Instrument names recorded by the scheduling core and the fiber runtime.
const (
	FibersStolen      = "fibers_stolen_total"
	WorkerParks       = "worker_parks_total"
	WorkerParkSeconds = "worker_park_seconds"

	FibersSpawned   = "fibers_spawned_total"
	FibersCompleted = "fibers_completed_total"
	FibersPanicked  = "fibers_panicked_total"
	FibersLive      = "fibers_live"
)

// Provider constructs instruments. Asking twice for the same name returns the
// same instrument. Implementations must be safe for concurrent use.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter records monotonic counts.
type Counter interface {
	Add(n int64)
}

// UpDownCounter records a value that moves both ways, e.g. live fibers.
type UpDownCounter interface {
	Add(n int64)
}

// Histogram records a distribution of measurements, e.g. park durations in seconds.
type Histogram interface {
	Record(v float64)
}

// InstrumentConfig carries advisory instrument metadata.
type InstrumentConfig struct {
	Description string
	Unit        string
	// Attributes are static labels of the instrument. Keep cardinality bounded.
	Attributes map[string]string
}

// InstrumentOption mutates InstrumentConfig.
type InstrumentOption func(*InstrumentConfig)

func applyOptions(opts []InstrumentOption) InstrumentConfig {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}

// WithDescription sets the instrument description.
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets the instrument unit, e.g. "1" or "seconds".
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

// WithAttributes attaches static attributes. The map is copied.
func WithAttributes(attrs map[string]string) InstrumentOption {
	return func(c *InstrumentConfig) {
		if len(attrs) == 0 {
			return
		}
		if c.Attributes == nil {
			c.Attributes = make(map[string]string, len(attrs))
		}
		for k, v := range attrs {
			c.Attributes[k] = v
		}
	}
}
