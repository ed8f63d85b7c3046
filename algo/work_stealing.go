package algo

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/fibers"
	"github.com/ygrebnov/fibers/metrics"
	"github.com/ygrebnov/fibers/queue"
)

// Roster is the fixed table of WorkStealing instances, indexed by worker.
// It is fully populated by NewRoster before any worker schedules and is never
// mutated afterwards, so peers are looked up without locking.
type Roster struct {
	members []*WorkStealing
}

// NewRoster builds count WorkStealing instances that know each other.
func NewRoster(count int, opts ...Option) (*Roster, error) {
	if count <= 0 {
		return nil, errorc.With(fibers.ErrInvalidConfig, errorc.String("worker count", strconv.Itoa(count)))
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	stolen := cfg.Metrics.Counter(metrics.FibersStolen,
		metrics.WithDescription("units taken from a peer deque"), metrics.WithUnit("1"))
	parks := cfg.Metrics.Counter(metrics.WorkerParks,
		metrics.WithDescription("times a worker parked for lack of work"), metrics.WithUnit("1"))
	parked := cfg.Metrics.Histogram(metrics.WorkerParkSeconds,
		metrics.WithDescription("time a worker spent parked"), metrics.WithUnit("seconds"))

	r := &Roster{members: make([]*WorkStealing, count)}
	for i := range r.members {
		r.members[i] = &WorkStealing{
			idx:     i,
			roster:  r,
			rqueue:  queue.NewDeque[fibers.Context](cfg.QueueCapacity, isPinned),
			notify:  make(chan struct{}, 1),
			suspend: cfg.Suspend,
			stolen:  stolen,
			parks:   parks,
			parkT:   parked,
		}
	}
	return r, nil
}

// Len returns the number of workers.
func (r *Roster) Len() int { return len(r.members) }

// At returns the instance serving worker i.
func (r *Roster) At(i int) *WorkStealing { return r.members[i] }

func isPinned(c fibers.Context) bool { return c.IsContext(fibers.PinnedContext) }

// WorkStealing schedules units from a local deque and, when that is empty,
// steals the oldest unpinned unit of a peer.
type WorkStealing struct {
	// noCopy prevents accidental copying of an instance registered in a roster.
	//go:nocopy
	nc noCopy

	idx    int
	roster *Roster
	rqueue *queue.Deque[fibers.Context]

	// notify holds at most one pending wakeup; a token left in it is the
	// sticky "already notified" flag.
	notify  chan struct{}
	parked  atomic.Bool
	suspend bool

	stolen metrics.Counter
	parks  metrics.Counter
	parkT  metrics.Histogram
}

var _ Algorithm = (*WorkStealing)(nil)

// Index returns the worker index this instance serves.
func (a *WorkStealing) Index() int { return a.idx }

// Awakened pushes c onto the local deque. When c may migrate, one parked
// peer is woken so that it can steal it.
func (a *WorkStealing) Awakened(c fibers.Context) {
	a.rqueue.Push(c)
	if !isPinned(c) {
		a.wakeIdlePeer()
	}
}

// PickNext prefers local work; otherwise it scans peers in ascending index
// order starting after itself and returns the first stolen unit.
func (a *WorkStealing) PickNext() fibers.Context {
	if c, ok := a.rqueue.Pop(); ok {
		return c
	}

	n := len(a.roster.members)
	for i := 1; i < n; i++ {
		victim := a.roster.members[(a.idx+i)%n]
		if !victim.HasReadyFibers() {
			continue
		}
		if c, ok := victim.Steal(); ok {
			a.stolen.Add(1)
			return c
		}
	}
	return nil
}

// Steal is the thief-side entry point used by peers.
func (a *WorkStealing) Steal() (fibers.Context, bool) {
	return a.rqueue.Steal()
}

// HasReadyFibers reports whether the local deque is non-empty.
func (a *WorkStealing) HasReadyFibers() bool {
	return !a.rqueue.Empty()
}

// Parked reports whether the worker is currently blocked in SuspendUntil.
func (a *WorkStealing) Parked() bool {
	return a.parked.Load()
}

// SuspendUntil parks the worker until Notify or deadline, whichever comes
// first, and consumes the pending notification. It returns at once when
// suspension is disabled, or when a peer already holds stealable work.
func (a *WorkStealing) SuspendUntil(deadline time.Time) {
	if !a.suspend {
		return
	}

	a.parked.Store(true)
	defer a.parked.Store(false)

	// Awakened pushes before it looks for a parked peer, and parked is set
	// before this check, so work pushed in between is seen by one side.
	if a.peerHasStealable() {
		return
	}

	a.parks.Add(1)
	start := time.Now()
	defer func() { a.parkT.Record(time.Since(start).Seconds()) }()

	if deadline.IsZero() {
		<-a.notify
		return
	}

	d := time.Until(deadline)
	if d <= 0 {
		select {
		case <-a.notify:
		default:
		}
		return
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-a.notify:
	case <-t.C:
	}
}

// Notify sets the pending wakeup and releases a parked SuspendUntil.
// It does nothing when suspension is disabled.
func (a *WorkStealing) Notify() {
	if !a.suspend {
		return
	}
	select {
	case a.notify <- struct{}{}:
	default:
		// already pending
	}
}

func (a *WorkStealing) peerHasStealable() bool {
	n := len(a.roster.members)
	for i := 1; i < n; i++ {
		if a.roster.members[(a.idx+i)%n].rqueue.Stealable() {
			return true
		}
	}
	return false
}

func (a *WorkStealing) wakeIdlePeer() {
	n := len(a.roster.members)
	for i := 1; i < n; i++ {
		if peer := a.roster.members[(a.idx+i)%n]; peer.Parked() {
			peer.Notify()
			return
		}
	}
}

// noCopy is a vet-recognized marker to discourage copying types with this field embedded.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
