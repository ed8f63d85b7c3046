package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusProvider registers every instrument as a Prometheus collector:
// Counter -> Counter, UpDownCounter -> Gauge, Histogram -> Histogram.
type PrometheusProvider struct {
	reg       prometheus.Registerer
	namespace string

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// NewPrometheusProvider returns a provider registering into reg under namespace.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusProvider(reg prometheus.Registerer, namespace string) *PrometheusProvider {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusProvider{
		reg:        reg,
		namespace:  namespace,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

func (p *PrometheusProvider) Counter(name string, opts ...InstrumentOption) Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return promCounter{c}
	}
	cfg := applyOptions(opts)
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   p.namespace,
		Name:        name,
		Help:        help(cfg, name),
		ConstLabels: cfg.Attributes,
	})
	p.reg.MustRegister(c)
	p.counters[name] = c
	return promCounter{c}
}

func (p *PrometheusProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.gauges[name]; ok {
		return promGauge{g}
	}
	cfg := applyOptions(opts)
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   p.namespace,
		Name:        name,
		Help:        help(cfg, name),
		ConstLabels: cfg.Attributes,
	})
	p.reg.MustRegister(g)
	p.gauges[name] = g
	return promGauge{g}
}

func (p *PrometheusProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return promHistogram{h}
	}
	cfg := applyOptions(opts)
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   p.namespace,
		Name:        name,
		Help:        help(cfg, name),
		ConstLabels: cfg.Attributes,
		Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 10),
	})
	p.reg.MustRegister(h)
	p.histograms[name] = h
	return promHistogram{h}
}

func help(cfg InstrumentConfig, name string) string {
	if cfg.Description != "" {
		return cfg.Description
	}
	return name
}

type promCounter struct{ c prometheus.Counter }

func (p promCounter) Add(n int64) { p.c.Add(float64(n)) }

type promGauge struct{ g prometheus.Gauge }

func (p promGauge) Add(n int64) { p.g.Add(float64(n)) }

type promHistogram struct{ h prometheus.Histogram }

func (p promHistogram) Record(v float64) { p.h.Observe(v) }
