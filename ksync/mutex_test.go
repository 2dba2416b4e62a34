package ksync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-mcukernel/kerrors"
	"github.com/joeycumines/go-mcukernel/sched"
)

func newTestScheduler(t *testing.T) *sched.Scheduler {
	s := sched.New(&sched.Config{TickInterval: time.Millisecond}, nil)
	t.Cleanup(s.Stop)
	return s
}

// TestMutexExclusion mirrors spec §8 scenario 2: several threads loop
// acquire/assert-exclusive/release; no observer ever sees the shared
// counter above zero concurrently. Scaled down from the spec's 1,000,000
// iterations to keep the test fast.
func TestMutexExclusion(t *testing.T) {
	s := newTestScheduler(t)
	m := NewMutex(s)
	var shared int
	var violated bool

	const threads = 5
	const iterations = 2000
	done := make([]*sched.Thread, threads)
	for i := 0; i < threads; i++ {
		id := i + 1
		th, err := s.Create("worker", func(arg any) any {
			for n := 0; n < iterations; n++ {
				if err := m.Acquire(); err != nil {
					return err
				}
				if shared != 0 {
					violated = true
				}
				shared = id
				s.Yield()
				shared = 0
				m.Release()
				s.Yield()
			}
			return nil
		}, nil, sched.PriorityDefault, 0)
		require.NoError(t, err)
		s.Resume(th)
		done[i] = th
	}
	for _, th := range done {
		ret, err := s.Join(th, sched.Infinite)
		require.NoError(t, err)
		assert.Nil(t, ret)
	}
	assert.False(t, violated, "mutex exclusivity violated: shared was observed non-zero by another owner")
}

// TestMutexRecursiveAcquire exercises the data model's recursive-count
// field (spec §3 "Mutex: ... recursive-count").
func TestMutexRecursiveAcquire(t *testing.T) {
	s := newTestScheduler(t)
	m := NewMutex(s)

	th, err := s.Create("worker", func(arg any) any {
		require.NoError(t, m.Acquire())
		require.NoError(t, m.Acquire())
		m.Release()
		m.Release()
		return nil
	}, nil, sched.PriorityDefault, 0)
	require.NoError(t, err)
	s.Resume(th)
	_, err = s.Join(th, sched.Infinite)
	require.NoError(t, err)
}

// TestMutexTimeout mirrors spec §8 scenario 3: an owner holds the mutex
// while waiters use acquire_timeout, including a zero ("try") timeout;
// all time out until the owner releases.
func TestMutexTimeout(t *testing.T) {
	s := newTestScheduler(t)
	m := NewMutex(s)

	acquired := make(chan struct{})
	owner, err := s.Create("owner", func(arg any) any {
		require.NoError(t, m.Acquire())
		close(acquired)
		s.Sleep(50 * time.Millisecond)
		m.Release()
		return nil
	}, nil, sched.PriorityDefault, 0)
	require.NoError(t, err)
	s.Resume(owner)
	s.Yield() // let owner run and acquire first
	<-acquired

	waiter, err := s.Create("waiter", func(arg any) any {
		err := m.AcquireTimeout(10 * time.Millisecond)
		return err
	}, nil, sched.PriorityDefault, 0)
	require.NoError(t, err)
	s.Resume(waiter)
	ret, err := s.Join(waiter, sched.Infinite)
	require.NoError(t, err)
	assert.True(t, kerrors.Is(ret.(error), kerrors.TimedOut))

	tryWaiter, err := s.Create("try-waiter", func(arg any) any {
		return m.AcquireTimeout(0)
	}, nil, sched.PriorityDefault, 0)
	require.NoError(t, err)
	s.Resume(tryWaiter)
	ret, err = s.Join(tryWaiter, sched.Infinite)
	require.NoError(t, err)
	assert.True(t, kerrors.Is(ret.(error), kerrors.TimedOut))

	_, err = s.Join(owner, sched.Infinite)
	require.NoError(t, err)

	// Afterward, a fifth thread acquires successfully.
	late, err := s.Create("late", func(arg any) any {
		if err := m.Acquire(); err != nil {
			return err
		}
		m.Release()
		return nil
	}, nil, sched.PriorityDefault, 0)
	require.NoError(t, err)
	s.Resume(late)
	ret, err = s.Join(late, sched.Infinite)
	require.NoError(t, err)
	assert.Nil(t, ret)
}

func TestMutexDestroyRequiresFree(t *testing.T) {
	s := newTestScheduler(t)
	m := NewMutex(s)
	m.Destroy()
	assert.False(t, m.valid())
}
