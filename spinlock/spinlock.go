// Package spinlock provides a lightweight lock for short critical sections.
package spinlock

import (
	"runtime"
	"sync/atomic"
)

// spins is the number of busy probes before the caller starts yielding the processor.
const spins = 64

// Lock is a test-and-test-and-set spin lock. The zero value is unlocked.
// Unlike sync.Mutex it never parks the goroutine; contended callers spin
// briefly and then call runtime.Gosched between attempts.
//
// A Lock may be released by a different goroutine than the one that acquired
// it; fibers.Context.Suspend relies on that.
type Lock struct {
	state atomic.Uint32
}

// Lock acquires l.
func (l *Lock) Lock() {
	for i := 0; ; i++ {
		if l.state.Load() == 0 && l.state.CompareAndSwap(0, 1) {
			return
		}
		if i >= spins {
			runtime.Gosched()
		}
	}
}

// TryLock acquires l if it is free and reports whether it did.
func (l *Lock) TryLock() bool {
	return l.state.Load() == 0 && l.state.CompareAndSwap(0, 1)
}

// Unlock releases l. Unlocking an unlocked Lock panics.
func (l *Lock) Unlock() {
	if l.state.Swap(0) == 0 {
		panic("spinlock: unlock of unlocked lock")
	}
}
