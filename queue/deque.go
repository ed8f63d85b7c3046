package queue

import "github.com/ygrebnov/fibers/spinlock"

// Deque is a Queue shared between one owning worker and any number of thieves.
// Every method takes the instance spin lock for its whole duration.
//
// The owner pushes at the producer end and pops at the consumer end, so its
// own order is FIFO. Thieves take from the consumer end as well: local
// execution order and stealing order are both oldest-ready-first.
type Deque[T any] struct {
	mu     spinlock.Lock
	q      Queue[T]
	pinned func(T) bool
}

// NewDeque returns a Deque with the given initial capacity. pinned reports
// whether a handle must stay on its owner; nil means nothing is pinned.
func NewDeque[T any](capacity int, pinned func(T) bool) *Deque[T] {
	return &Deque[T]{q: Make[T](capacity), pinned: pinned}
}

// Push appends v. Owner only.
func (d *Deque[T]) Push(v T) {
	d.mu.Lock()
	d.q.Push(v)
	d.mu.Unlock()
}

// Pop removes the oldest element. Owner only; pinned handles are returned too.
func (d *Deque[T]) Pop() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.q.Pop()
}

// Steal removes the oldest element on behalf of another worker. When that
// element is pinned it is left in place and Steal reports false.
func (d *Deque[T]) Steal() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.q.Peek()
	if !ok {
		return v, false
	}
	if d.pinned != nil && d.pinned(v) {
		return *new(T), false
	}
	return d.q.Pop()
}

// Stealable reports whether Steal would currently succeed: the deque is
// non-empty and its oldest element is not pinned.
func (d *Deque[T]) Stealable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.q.Peek()
	if !ok {
		return false
	}
	return d.pinned == nil || !d.pinned(v)
}

// Empty reports whether the deque holds no elements.
func (d *Deque[T]) Empty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.q.Empty()
}

// Len returns the number of queued elements.
func (d *Deque[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.q.Len()
}
