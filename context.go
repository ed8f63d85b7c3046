package fibers

import "sync"

// Type classifies an execution unit. Values are bit flags and may be combined.
type Type uint8

const (
	WorkerContext Type = 1 << iota
	MainContext
	DispatcherContext

	// PinnedContext matches any unit that must not migrate off its owning worker.
	PinnedContext = MainContext | DispatcherContext
)

// Context is the execution-unit contract consumed by queues, scheduling
// algorithms and blocking primitives. Implementations are non-owning handles:
// holders store and reorder them but never free what they reference.
//
// Go has no notion of a "currently running fiber", so primitives take the
// calling Context as an explicit argument instead of looking it up.
type Context interface {
	// IsContext reports whether the unit carries any of the flags in t.
	IsContext(t Type) bool

	// Suspend deschedules the calling unit. lk is held by the caller and is
	// released at the suspension point, so a concurrent Schedule of this unit
	// issued after lk is acquired by someone else can never be lost.
	Suspend(lk sync.Locker)

	// Schedule makes c runnable again.
	Schedule(c Context)

	// Yield cedes control to the scheduler once; the caller stays runnable.
	Yield()
}
