package sched

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recvStep reads a step name from ch with a timeout.
func recvStep(t *testing.T, ch <-chan string, d time.Duration) (string, bool) {
	t.Helper()
	select {
	case s := <-ch:
		return s, true
	case <-time.After(d):
		return "", false
	}
}

func TestLifecycle_OrderAndResult(t *testing.T) {
	steps := make(chan string, 10)
	stopped := make(chan struct{})
	errRun := errors.New("run failed")

	lc := &lifecycleCoordinator{
		stopIntake: func() { steps <- "stopIntake" },
		ensureRun:  func() { steps <- "ensureRun" },
		wakeAll:    func() { steps <- "wakeAll" },
		stopped:    stopped,
		cancel:     func() { steps <- "cancel" },
		result:     func() error { return errRun },
	}

	done := make(chan error, 1)
	go func() { done <- lc.Close(context.Background()) }()

	for _, want := range []string{"stopIntake", "ensureRun", "wakeAll"} {
		got, ok := recvStep(t, steps, time.Second)
		require.True(t, ok, "timed out waiting for %s", want)
		require.Equal(t, want, got)
	}

	// Close must block until the drivers stop
	select {
	case <-done:
		t.Fatal("Close returned before stopped was closed")
	case <-time.After(20 * time.Millisecond):
	}

	close(stopped)
	select {
	case err := <-done:
		assert.ErrorIs(t, err, errRun)
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	_, ok := recvStep(t, steps, 10*time.Millisecond)
	assert.False(t, ok, "cancel must not run on a clean shutdown")
}

func TestLifecycle_ConcurrentCloseRunsSequenceOnce(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	stopped := make(chan struct{})
	close(stopped)

	lc := &lifecycleCoordinator{
		stopIntake: func() { mu.Lock(); calls++; mu.Unlock() },
		stopped:    stopped,
	}

	var wg sync.WaitGroup
	wg.Add(8)
	for range 8 {
		go func() {
			defer wg.Done()
			assert.NoError(t, lc.Close(context.Background()))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, calls)
}

func TestLifecycle_ContextExpiryCancels(t *testing.T) {
	cancelled := make(chan struct{})
	lc := &lifecycleCoordinator{
		stopped: make(chan struct{}),
		cancel:  func() { close(cancelled) },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := lc.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	select {
	case <-cancelled:
	default:
		t.Fatal("cancel was not invoked on ctx expiry")
	}
}
