package metrics

import (
	"sync"
	"sync/atomic"
)

// BasicProvider keeps instruments in memory. It is meant for tests, the
// fiberstress tool and small programs that only need final totals.
type BasicProvider struct {
	mu         sync.Mutex
	counters   map[string]*BasicCounter
	histograms map[string]*BasicHistogram
}

// NewBasicProvider returns an empty BasicProvider.
func NewBasicProvider() *BasicProvider {
	return &BasicProvider{
		counters:   make(map[string]*BasicCounter),
		histograms: make(map[string]*BasicHistogram),
	}
}

func (p *BasicProvider) counter(name string) *BasicCounter {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.counters[name]
	if !ok {
		c = &BasicCounter{}
		p.counters[name] = c
	}
	return c
}

// Counter returns the counter registered under name, creating it on first use.
func (p *BasicProvider) Counter(name string, _ ...InstrumentOption) Counter {
	return p.counter(name)
}

// UpDownCounter shares storage with Counter: both are plain int64 sums here.
func (p *BasicProvider) UpDownCounter(name string, _ ...InstrumentOption) UpDownCounter {
	return p.counter(name)
}

// Histogram returns the histogram registered under name, creating it on first use.
func (p *BasicProvider) Histogram(name string, _ ...InstrumentOption) Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.histograms[name]
	if !ok {
		h = &BasicHistogram{}
		p.histograms[name] = h
	}
	return h
}

// Value returns the current value of the named counter, or 0 if it was never created.
func (p *BasicProvider) Value(name string) int64 {
	p.mu.Lock()
	c, ok := p.counters[name]
	p.mu.Unlock()
	if !ok {
		return 0
	}
	return c.Snapshot()
}

// HistogramSnapshot returns the state of the named histogram, or a zero snapshot.
func (p *BasicProvider) HistogramSnapshot(name string) HistSnapshot {
	p.mu.Lock()
	h, ok := p.histograms[name]
	p.mu.Unlock()
	if !ok {
		return HistSnapshot{}
	}
	return h.Snapshot()
}

// BasicCounter is an atomic int64 sum.
type BasicCounter struct {
	val atomic.Int64
}

func (c *BasicCounter) Add(n int64)     { c.val.Add(n) }
func (c *BasicCounter) Snapshot() int64 { return c.val.Load() }

// BasicHistogram tracks count, sum, min and max without buckets.
type BasicHistogram struct {
	mu   sync.Mutex
	snap HistSnapshot
}

// HistSnapshot is a copy of a BasicHistogram's state.
type HistSnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
}

// Mean returns Sum/Count, or 0 for an empty histogram.
func (s HistSnapshot) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

func (h *BasicHistogram) Record(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.snap.Count == 0 || v < h.snap.Min {
		h.snap.Min = v
	}
	if h.snap.Count == 0 || v > h.snap.Max {
		h.snap.Max = v
	}
	h.snap.Count++
	h.snap.Sum += v
}

func (h *BasicHistogram) Snapshot() HistSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap
}
