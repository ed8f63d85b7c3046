package fibers

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanContext is a goroutine-backed unit: Suspend parks on wake and Schedule
// feeds the target's wake channel.
type chanContext struct {
	name    string
	wake    chan struct{}
	onYield func()
}

func newChanContext(name string) *chanContext {
	return &chanContext{name: name, wake: make(chan struct{}, 1)}
}

func (c *chanContext) IsContext(Type) bool { return false }

func (c *chanContext) Suspend(lk sync.Locker) {
	lk.Unlock()
	<-c.wake
}

func (c *chanContext) Schedule(other Context) {
	other.(*chanContext).wake <- struct{}{}
}

func (c *chanContext) Yield() {
	if c.onYield != nil {
		c.onYield()
		return
	}
	runtime.Gosched()
}

func (m *Mutex) ownerIs(c Context) bool {
	m.splk.Lock()
	defer m.splk.Unlock()
	return m.owner == c
}

// waiting returns the number of suspended units queued on m.
func (m *Mutex) waiting() int {
	m.splk.Lock()
	defer m.splk.Unlock()
	return m.waiters.Len()
}

func TestMutex_LockUnlock(t *testing.T) {
	var m Mutex
	a := newChanContext("a")

	require.NoError(t, m.Lock(a))
	assert.True(t, m.ownerIs(a))
	require.NoError(t, m.Unlock(a))
	assert.True(t, m.ownerIs(nil))
}

func TestMutex_Errors(t *testing.T) {
	a, b := newChanContext("a"), newChanContext("b")

	tests := []struct {
		name string
		run  func(t *testing.T, m *Mutex) error
		want error
	}{
		{
			name: "relock by owner",
			run: func(t *testing.T, m *Mutex) error {
				require.NoError(t, m.Lock(a))
				return m.Lock(a)
			},
			want: ErrDeadlock,
		},
		{
			name: "try lock by owner",
			run: func(t *testing.T, m *Mutex) error {
				require.NoError(t, m.Lock(a))
				_, err := m.TryLock(a)
				return err
			},
			want: ErrDeadlock,
		},
		{
			name: "unlock by non-owner",
			run: func(t *testing.T, m *Mutex) error {
				require.NoError(t, m.Lock(a))
				return m.Unlock(b)
			},
			want: ErrPermission,
		},
		{
			name: "unlock of unlocked mutex",
			run:  func(_ *testing.T, m *Mutex) error { return m.Unlock(a) },
			want: ErrPermission,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Mutex
			err := tt.run(t, &m)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestMutex_FailedCallsLeaveStateIntact(t *testing.T) {
	var m Mutex
	a, b := newChanContext("a"), newChanContext("b")

	require.NoError(t, m.Lock(a))
	require.ErrorIs(t, m.Lock(a), ErrDeadlock)
	require.ErrorIs(t, m.Unlock(b), ErrPermission)

	assert.True(t, m.ownerIs(a))
	assert.Zero(t, m.waiting())
	require.NoError(t, m.Unlock(a))
}

func TestMutex_HandOffIsFIFO(t *testing.T) {
	var m Mutex
	a, w1, w2 := newChanContext("a"), newChanContext("w1"), newChanContext("w2")

	require.NoError(t, m.Lock(a))

	order := make(chan string, 2)
	acquire := func(c *chanContext) {
		if err := m.Lock(c); err != nil {
			t.Errorf("lock %s: %v", c.name, err)
			return
		}
		order <- c.name
		_ = m.Unlock(c)
	}

	go acquire(w1)
	require.Eventually(t, func() bool { return m.waiting() == 1 }, time.Second, time.Millisecond)
	go acquire(w2)
	require.Eventually(t, func() bool { return m.waiting() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, m.Unlock(a))

	assert.Equal(t, "w1", <-order)
	assert.Equal(t, "w2", <-order)
	require.Eventually(t, func() bool { return m.ownerIs(nil) }, time.Second, time.Millisecond)
}

func TestMutex_UnlockTransfersOwnership(t *testing.T) {
	var m Mutex
	a, w := newChanContext("a"), newChanContext("w")

	require.NoError(t, m.Lock(a))

	locked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = m.Lock(w)
		close(locked)
		<-release
		_ = m.Unlock(w)
	}()
	require.Eventually(t, func() bool { return m.waiting() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, m.Unlock(a))
	// ownership moved before the waiter even ran
	assert.True(t, m.ownerIs(w))

	ok, err := m.TryLock(a)
	require.NoError(t, err)
	assert.False(t, ok)

	<-locked
	close(release)
	require.Eventually(t, func() bool { return m.ownerIs(nil) }, time.Second, time.Millisecond)
}

func TestMutex_TryLock(t *testing.T) {
	var m Mutex
	a, b := newChanContext("a"), newChanContext("b")

	ok, err := m.TryLock(a)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.TryLock(b)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, m.waiting(), "TryLock never enqueues")

	require.NoError(t, m.Unlock(a))
	ok, err = m.TryLock(b)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, m.Unlock(b))
}

func TestMutex_TryLockDecidesAfterYield(t *testing.T) {
	var m Mutex
	a, b := newChanContext("a"), newChanContext("b")
	require.NoError(t, m.Lock(a))

	// the owner releases while b is yielding; b did not take the lock
	// before yielding, so the attempt still fails
	b.onYield = func() { require.NoError(t, m.Unlock(a)) }

	ok, err := m.TryLock(b)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, m.ownerIs(nil))
}

func TestMutex_MutualExclusion(t *testing.T) {
	const (
		units = 8
		iters = 500
	)

	var (
		m       Mutex
		counter int
		inside  atomic.Int32
		wg      sync.WaitGroup
	)

	wg.Add(units)
	for i := range units {
		c := newChanContext(string(rune('a' + i)))
		go func() {
			defer wg.Done()
			for range iters {
				if err := m.Lock(c); err != nil {
					t.Errorf("lock: %v", err)
					return
				}
				if n := inside.Add(1); n != 1 {
					t.Errorf("%d units inside the critical section", n)
				}
				counter++
				inside.Add(-1)
				if err := m.Unlock(c); err != nil {
					t.Errorf("unlock: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, units*iters, counter)
	assert.True(t, m.ownerIs(nil))
	assert.Zero(t, m.waiting())
}
