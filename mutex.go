package fibers

import (
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/fibers/queue"
	"github.com/ygrebnov/fibers/spinlock"
)

// Mutex is a non-recursive lock that suspends contending fibers instead of
// blocking the worker goroutine. Ownership is handed directly to the oldest
// waiter on Unlock.
//
// The zero value is an unlocked Mutex. A Mutex must not be copied after first use.
type Mutex struct {
	//go:nocopy
	nc noCopy

	splk    spinlock.Lock
	owner   Context
	waiters queue.Queue[Context]
}

// Lock acquires m on behalf of active, suspending it while another unit owns m.
// It returns ErrDeadlock if active already owns m.
func (m *Mutex) Lock(active Context) error {
	m.splk.Lock()
	if m.owner == active {
		m.splk.Unlock()
		return errorc.With(ErrDeadlock, errorc.String("operation", "lock"))
	}
	if m.owner == nil {
		m.owner = active
		m.splk.Unlock()
		return nil
	}
	m.waiters.Push(active)
	// Unlock hands ownership over before scheduling us, so there is
	// nothing to re-check after resumption.
	active.Suspend(&m.splk)
	return nil
}

// TryLock acquires m if it is free. The caller yields once before the
// outcome is decided, so a unit spinning on TryLock lets the owner progress.
// It returns ErrDeadlock if active already owns m.
func (m *Mutex) TryLock(active Context) (bool, error) {
	m.splk.Lock()
	if m.owner == active {
		m.splk.Unlock()
		return false, errorc.With(ErrDeadlock, errorc.String("operation", "try_lock"))
	}
	if m.owner == nil {
		m.owner = active
	}
	m.splk.Unlock()

	active.Yield()

	m.splk.Lock()
	defer m.splk.Unlock()
	return m.owner == active, nil
}

// Unlock releases m. If units are waiting, the oldest becomes the owner and
// is scheduled through active. It returns ErrPermission if active is not the owner.
func (m *Mutex) Unlock(active Context) error {
	m.splk.Lock()
	if m.owner != active {
		m.splk.Unlock()
		return errorc.With(ErrPermission, errorc.String("operation", "unlock"))
	}
	next, ok := m.waiters.Pop()
	if !ok {
		m.owner = nil
		m.splk.Unlock()
		return nil
	}
	m.owner = next
	m.splk.Unlock()

	active.Schedule(next)
	return nil
}

// noCopy is a vet-recognized marker to discourage copying types with this field embedded.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
