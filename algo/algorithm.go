// Package algo contains scheduling algorithms plugged into a per-worker driver.
package algo

import (
	"time"

	"github.com/ygrebnov/fibers"
)

// Algorithm is the scheduling policy a worker driver consults at every
// scheduling point. One instance serves exactly one worker.
type Algorithm interface {
	// Awakened is called whenever c becomes runnable on this worker.
	Awakened(c fibers.Context)

	// PickNext returns the unit to run next, or nil when no work is reachable.
	// A nil result is the driver's signal to park.
	PickNext() fibers.Context

	// HasReadyFibers reports whether the local queue holds any unit.
	HasReadyFibers() bool

	// SuspendUntil blocks the worker until Notify is called or deadline
	// passes. The zero time means no deadline.
	SuspendUntil(deadline time.Time)

	// Notify wakes a parked worker. A Notify that arrives before the next
	// SuspendUntil makes that call return immediately.
	Notify()
}
