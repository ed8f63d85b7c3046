// Package fibers holds the execution-unit contract shared by the scheduling
// core and the blocking primitives built on top of it.
//
// Packages
//   - queue: growable ring buffer (Queue) and spin-locked stealable Deque.
//   - algo: the WorkStealing scheduling algorithm and its peer Roster.
//   - sched: a goroutine-backed fiber runtime driving one algorithm per worker.
//   - metrics: instrument providers (noop, in-memory, Prometheus).
//
// Blocking primitives
// Mutex shows the suspension protocol every blocking primitive follows: state
// is guarded by a spin lock, a contended caller enqueues itself on a wait
// queue and hands the held lock to Context.Suspend, and the releasing side
// pops the next waiter and transfers ownership to it before calling Schedule.
//
// Errors
//   - ErrDeadlock: a unit locked a Mutex it already owns.
//   - ErrPermission: a unit unlocked a Mutex it does not own.
//
// Both are programming errors of the caller; nothing in this module retries.
// ErrInvalidConfig, ErrClosed, ErrFiberPanicked and ErrAborted are reported
// by the algo and sched packages.
package fibers
