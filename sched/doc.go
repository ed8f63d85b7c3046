// Package sched runs fibers on a fixed set of workers that share one
// work-stealing roster.
//
// Each fiber is backed by a goroutine, but only one fiber per worker makes
// progress at a time: the worker dispatches a fiber and blocks until the fiber
// yields, suspends on a blocking primitive or returns. A suspended fiber is
// made runnable again by whichever unit calls Schedule on it, typically the
// one releasing a fibers.Mutex.
//
// Lifecycle
//   - New builds the Group and its roster; nothing runs yet.
//   - Spawn queues fibers, before or after Start.
//   - Start runs one driver per worker.
//   - Close refuses new spawns, waits for live fibers and stops the drivers.
//
// Errors
//   - fibers.ErrInvalidConfig: invalid option or worker index.
//   - fibers.ErrClosed: Spawn after Close.
//   - fibers.ErrFiberPanicked: reported by Fiber.Err for a recovered panic.
//   - fibers.ErrAborted: reported by Fiber.Err when the drivers stopped first.
//
// Use ExtractFiberID and ExtractFiberWorker to correlate a fiber failure.
package sched
