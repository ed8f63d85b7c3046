package sched

import (
	"context"
	"sync"
)

// lifecycleCoordinator encapsulates the shutdown sequence for a Group.
// It doesn't own any state; it orders the steps and bounds the wait.
//
// Close is safe for concurrent calls; the sequence starts exactly once and
// every caller waits for it under its own context.
type lifecycleCoordinator struct {
	stopIntake func()          // refuse further spawns
	ensureRun  func()          // start drivers if the group was never started
	wakeAll    func()          // release parked workers so they re-check for completion
	stopped    <-chan struct{} // closed once every driver has returned
	cancel     func()          // stop drivers without waiting for live fibers
	result     func() error

	once sync.Once
}

// Close executes the shutdown sequence:
// 1) stop accepting spawns
// 2) make sure drivers run, so queued fibers are not stranded
// 3) wake parked workers
// 4) wait for drivers to drain every live fiber, or for ctx
// 5) on ctx expiry, cancel the drivers and report ctx.Err()
func (lc *lifecycleCoordinator) Close(ctx context.Context) error {
	lc.once.Do(func() {
		if lc.stopIntake != nil {
			lc.stopIntake()
		}
		if lc.ensureRun != nil {
			lc.ensureRun()
		}
		if lc.wakeAll != nil {
			lc.wakeAll()
		}
	})

	select {
	case <-lc.stopped:
		if lc.result != nil {
			return lc.result()
		}
		return nil
	case <-ctx.Done():
		if lc.cancel != nil {
			lc.cancel()
		}
		return ctx.Err()
	}
}
