package metrics

// Tee returns a Provider that creates every instrument on all of ps and
// forwards each update to all of them.
func Tee(ps ...Provider) Provider {
	return tee(ps)
}

type tee []Provider

func (t tee) Counter(name string, opts ...InstrumentOption) Counter {
	cs := make(teeCounter, len(t))
	for i, p := range t {
		cs[i] = p.Counter(name, opts...)
	}
	return cs
}

func (t tee) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	cs := make(teeUpDown, len(t))
	for i, p := range t {
		cs[i] = p.UpDownCounter(name, opts...)
	}
	return cs
}

func (t tee) Histogram(name string, opts ...InstrumentOption) Histogram {
	hs := make(teeHistogram, len(t))
	for i, p := range t {
		hs[i] = p.Histogram(name, opts...)
	}
	return hs
}

type teeCounter []Counter

func (cs teeCounter) Add(n int64) {
	for _, c := range cs {
		c.Add(n)
	}
}

type teeUpDown []UpDownCounter

func (cs teeUpDown) Add(n int64) {
	for _, c := range cs {
		c.Add(n)
	}
}

type teeHistogram []Histogram

func (hs teeHistogram) Record(v float64) {
	for _, h := range hs {
		h.Record(v)
	}
}
