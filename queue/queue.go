// Package queue provides the ring buffers the scheduler is built from.
//
// Queue is a growable FIFO ring with no internal synchronization; callers hold
// whatever lock covers the structure that embeds it. Deque wraps a Queue in a
// spin lock and adds a thief-side Steal that refuses pinned handles.
package queue

// DefaultCapacity is the slot count a zero-value Queue allocates on first use.
const DefaultCapacity = 64

// Queue is a growable circular array addressed by a producer index (pidx) and
// a consumer index (cidx). It is empty when pidx == cidx and full when
// cidx == (pidx+1) % capacity, so one slot always stays unused.
//
// The zero value is an empty queue ready to use.
type Queue[T any] struct {
	pidx  int
	cidx  int
	slots []T
}

// Make returns a Queue with the given initial capacity. Capacities below 2 are raised to 2.
func Make[T any](capacity int) Queue[T] {
	if capacity < 2 {
		capacity = 2
	}
	return Queue[T]{slots: make([]T, capacity)}
}

// New is like Make but returns a pointer.
func New[T any](capacity int) *Queue[T] {
	q := Make[T](capacity)
	return &q
}

// grow doubles the capacity. The live range [cidx, pidx) is copied, in order,
// to offset 0 of the new buffer; afterwards cidx is 0 and pidx is the old
// capacity minus one, which is the number of elements copied.
func (q *Queue[T]) grow() {
	slots := make([]T, 2*len(q.slots))
	n := copy(slots, q.slots[q.cidx:])
	if q.cidx > 0 {
		copy(slots[n:], q.slots[:q.pidx])
	}
	q.cidx = 0
	q.pidx = len(q.slots) - 1
	q.slots = slots
}

func (q *Queue[T]) full() bool {
	return q.cidx == (q.pidx+1)%len(q.slots)
}

// Empty reports whether the queue holds no elements.
func (q *Queue[T]) Empty() bool {
	return q.pidx == q.cidx
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	if len(q.slots) == 0 {
		return 0
	}
	return (q.pidx - q.cidx + len(q.slots)) % len(q.slots)
}

// Cap returns the current slot count.
func (q *Queue[T]) Cap() int {
	return len(q.slots)
}

// Push appends v at the producer end, growing the buffer when it is full.
func (q *Queue[T]) Push(v T) {
	if q.slots == nil {
		q.slots = make([]T, DefaultCapacity)
	}
	if q.full() {
		q.grow()
	}
	q.slots[q.pidx] = v
	q.pidx = (q.pidx + 1) % len(q.slots)
}

// Peek returns the oldest element without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	if q.Empty() {
		return *new(T), false
	}
	return q.slots[q.cidx], true
}

// Pop removes and returns the oldest element.
func (q *Queue[T]) Pop() (T, bool) {
	if q.Empty() {
		return *new(T), false
	}
	v := q.slots[q.cidx]
	// drop the reference, the queue no longer owns it
	q.slots[q.cidx] = *new(T)
	q.cidx = (q.cidx + 1) % len(q.slots)
	return v, true
}
