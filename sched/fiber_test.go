package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ygrebnov/fibers"
)

func TestFiber_IsContext(t *testing.T) {
	g := newGroup(t, WithWorkers(1))
	defer closeGroup(t, g)

	plain, err := g.Spawn(func(*Fiber) {})
	require.NoError(t, err)
	pinned, err := g.Spawn(func(*Fiber) {}, Pinned())
	require.NoError(t, err)

	assert.True(t, plain.IsContext(fibers.WorkerContext))
	assert.False(t, plain.IsContext(fibers.PinnedContext))
	assert.True(t, pinned.IsContext(fibers.PinnedContext))
	assert.True(t, pinned.IsContext(fibers.MainContext))
	assert.NotEqual(t, uuid.Nil, plain.ID())
	assert.NotEqual(t, plain.ID(), pinned.ID())
}

func TestFiber_ErrBeforeDone(t *testing.T) {
	g := newGroup(t, WithWorkers(1))
	f, err := g.Spawn(func(*Fiber) {})
	require.NoError(t, err)
	assert.NoError(t, f.Err())
	closeGroup(t, g)
}

func TestFiber_YieldRoundRobinOnSingleWorker(t *testing.T) {
	g := newGroup(t, WithWorkers(1))

	var trace []string
	for _, name := range []string{"a", "b", "c"} {
		_, err := g.Spawn(func(f *Fiber) {
			for range 2 {
				trace = append(trace, name)
				f.Yield()
			}
		})
		require.NoError(t, err)
	}
	g.Start(context.Background())
	closeGroup(t, g)

	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, trace)
}

func TestFiber_SpawnFromFiber(t *testing.T) {
	g := newGroup(t, WithWorkers(3))
	g.Start(context.Background())

	type placement struct{ parent, child int }
	got := make(chan placement, 1)

	parent, err := g.Spawn(func(f *Fiber) {
		child, err := f.Spawn(func(*Fiber) {}, Pinned())
		if !assert.NoError(t, err) {
			return
		}
		got <- placement{parent: f.Worker(), child: child.Worker()}
		waitDoneFromFiber(f, child)
	}, OnWorker(1))
	require.NoError(t, err)

	p := <-got
	assert.Equal(t, p.parent, p.child)
	waitDone(t, parent)
	closeGroup(t, g)
}

// waitDoneFromFiber yields until c finishes, so the worker keeps running other fibers.
func waitDoneFromFiber(f, c *Fiber) {
	for {
		select {
		case <-c.Done():
			return
		default:
			f.Yield()
		}
	}
}

func TestFiber_ScheduleAcrossWorkers(t *testing.T) {
	g := newGroup(t, WithWorkers(2))
	g.Start(context.Background())

	var mu fibers.Mutex
	locked := make(chan struct{})
	waiting := make(chan struct{})
	var (
		resumedOn int
		trying    atomic.Bool
	)

	holder, err := g.Spawn(func(f *Fiber) {
		assert.NoError(t, mu.Lock(f))
		close(locked)
		<-waiting
		assert.NoError(t, mu.Unlock(f))
	}, OnWorker(0), Pinned())
	require.NoError(t, err)
	<-locked

	waiter, err := g.Spawn(func(f *Fiber) {
		trying.Store(true)
		assert.NoError(t, mu.Lock(f))
		resumedOn = f.Worker()
		assert.NoError(t, mu.Unlock(f))
	}, OnWorker(1), Pinned())
	require.NoError(t, err)

	// worker 1 goes idle only once the waiter has suspended on mu
	require.Eventually(t, func() bool { return trying.Load() && g.Active(1) == nil }, time.Second, time.Millisecond)
	close(waiting)

	waitDone(t, holder)
	waitDone(t, waiter)
	assert.Equal(t, 1, resumedOn, "pinned waiter resumed on its own worker")
	closeGroup(t, g)
}
