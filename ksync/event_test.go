package ksync

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-mcukernel/sched"
)

// TestEventManualResetBroadcast mirrors spec §8 scenario 4's first half:
// 4 waiters on a manual-reset event plus one signaler; all 4 resume.
func TestEventManualResetBroadcast(t *testing.T) {
	s := newTestScheduler(t)
	ev := NewEvent(s, false)

	const waiters = 4
	var wg sync.WaitGroup
	resumed := make([]bool, waiters)
	threads := make([]*sched.Thread, waiters)
	for i := 0; i < waiters; i++ {
		idx := i
		wg.Add(1)
		th, err := s.Create("waiter", func(arg any) any {
			defer wg.Done()
			require.NoError(t, ev.Wait())
			resumed[idx] = true
			return nil
		}, nil, sched.PriorityDefault, 0)
		require.NoError(t, err)
		s.Resume(th)
		threads[i] = th
	}
	s.Sleep(10 * time.Millisecond)

	require.NoError(t, ev.Signal(true))
	for _, th := range threads {
		_, err := s.Join(th, sched.Infinite)
		require.NoError(t, err)
	}
	for i, r := range resumed {
		assert.True(t, r, "waiter %d did not resume", i)
	}
	assert.True(t, ev.Signaled())
}

// TestEventAutoUnsignalWakesOne mirrors spec §8 scenario 4's second half:
// reinitialized with auto-unsignal, one signal wakes exactly one waiter;
// a second signal wakes the next.
func TestEventAutoUnsignalWakesOne(t *testing.T) {
	s := newTestScheduler(t)
	ev := NewEvent(s, true)

	woken := make(chan int, 2)
	threads := make([]*sched.Thread, 2)
	for i := 0; i < 2; i++ {
		idx := i
		th, err := s.Create("waiter", func(arg any) any {
			require.NoError(t, ev.Wait())
			woken <- idx
			return nil
		}, nil, sched.PriorityDefault, 0)
		require.NoError(t, err)
		s.Resume(th)
		threads[i] = th
	}
	s.Sleep(10 * time.Millisecond)

	require.NoError(t, ev.Signal(true))
	s.Yield()
	first := <-woken
	s.Sleep(10 * time.Millisecond)
	select {
	case <-woken:
		t.Fatal("only one waiter should have woken from the first signal")
	default:
	}
	assert.False(t, ev.Signaled())

	require.NoError(t, ev.Signal(true))
	s.Yield()
	second := <-woken
	assert.NotEqual(t, first, second)

	for _, th := range threads {
		_, err := s.Join(th, sched.Infinite)
		require.NoError(t, err)
	}
}

func TestEventUnsignal(t *testing.T) {
	s := newTestScheduler(t)
	ev := NewEvent(s, false)
	require.NoError(t, ev.Signal(false))
	assert.True(t, ev.Signaled())
	ev.Unsignal()
	assert.False(t, ev.Signaled())
}
