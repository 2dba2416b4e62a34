package ksync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-mcukernel/kerrors"
	"github.com/joeycumines/go-mcukernel/sched"
)

// TestSemStress mirrors spec §8 scenario 1: a semaphore initialized to
// 10, one producer posts N, several consumers together wait N; after
// join the count is back to 10. Scaled down from 10,000 for test speed.
func TestSemStress(t *testing.T) {
	s := newTestScheduler(t)
	sem := NewSem(s, 10)

	const total = 500
	const consumers = 5

	producer, err := s.Create("producer", func(arg any) any {
		for i := 0; i < total; i++ {
			require.NoError(t, sem.Post(true))
			if i%7 == 0 {
				s.Yield()
			}
		}
		return nil
	}, nil, sched.PriorityDefault, 0)
	require.NoError(t, err)

	consumerThreads := make([]*sched.Thread, consumers)
	perConsumer := total / consumers
	for i := 0; i < consumers; i++ {
		th, err := s.Create("consumer", func(arg any) any {
			for j := 0; j < perConsumer; j++ {
				require.NoError(t, sem.Wait())
			}
			return nil
		}, nil, sched.PriorityDefault, 0)
		require.NoError(t, err)
		s.Resume(th)
		consumerThreads[i] = th
	}
	s.Resume(producer)

	_, err = s.Join(producer, sched.Infinite)
	require.NoError(t, err)
	for _, th := range consumerThreads {
		_, err := s.Join(th, sched.Infinite)
		require.NoError(t, err)
	}

	assert.Equal(t, 10, sem.Count())
}

func TestSemWaitBlocksOnZero(t *testing.T) {
	s := newTestScheduler(t)
	sem := NewSem(s, 0)

	waiterDone := make(chan struct{})
	waiter, err := s.Create("waiter", func(arg any) any {
		require.NoError(t, sem.Wait())
		close(waiterDone)
		return nil
	}, nil, sched.PriorityDefault, 0)
	require.NoError(t, err)
	s.Resume(waiter)
	s.Sleep(10 * time.Millisecond)

	select {
	case <-waiterDone:
		t.Fatal("waiter should still be blocked")
	default:
	}
	assert.Equal(t, -1, sem.Count())

	require.NoError(t, sem.Post(true))
	s.Yield()
	<-waiterDone
	assert.Equal(t, 0, sem.Count())
}

func TestSemDestroyWakesWaitersWithObjectDestroyed(t *testing.T) {
	s := newTestScheduler(t)
	sem := NewSem(s, 0)

	waiter, err := s.Create("waiter", func(arg any) any {
		return sem.Wait()
	}, nil, sched.PriorityDefault, 0)
	require.NoError(t, err)
	s.Resume(waiter)
	s.Yield() // let the waiter block on the semaphore before destroying it

	sem.Destroy()
	ret, err := s.Join(waiter, sched.Infinite)
	require.NoError(t, err)
	require.Error(t, ret.(error))
	assert.True(t, kerrors.Is(ret.(error), kerrors.ObjectDestroyed))
}
