package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowMicrosMonotonic(t *testing.T) {
	s := New(nil)
	defer s.Stop()

	a := s.NowMicros()
	time.Sleep(2 * time.Millisecond)
	b := s.NowMicros()
	require.Greater(t, b, a)
}

func TestScheduleOneShotFires(t *testing.T) {
	s := New(&Config{Resolution: time.Millisecond})
	defer s.Stop()

	done := make(chan struct{})
	deadline := s.NowMicros() + 5000 // 5ms out
	s.ScheduleOneShot(deadline, func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("one-shot callback did not fire")
	}
}

func TestScheduleOneShotCancel(t *testing.T) {
	s := New(&Config{Resolution: time.Millisecond})
	defer s.Stop()

	var fired atomic.Bool
	deadline := s.NowMicros() + 20000
	cancel := s.ScheduleOneShot(deadline, func() {
		fired.Store(true)
	})
	cancel()

	time.Sleep(50 * time.Millisecond)
	require.False(t, fired.Load())
}

func TestSchedulePeriodicFiresMultipleTimes(t *testing.T) {
	s := New(&Config{Resolution: time.Millisecond})
	defer s.Stop()

	var count atomic.Int32
	cancel := s.SchedulePeriodic(2*time.Millisecond, func() {
		count.Add(1)
	})
	time.Sleep(30 * time.Millisecond)
	cancel()
	require.GreaterOrEqual(t, count.Load(), int32(3))
}

func TestOrderingOfDueCallbacks(t *testing.T) {
	s := New(&Config{Resolution: time.Millisecond})
	defer s.Stop()

	var order []int
	done := make(chan struct{})
	now := s.NowMicros()
	s.ScheduleOneShot(now+15000, func() {
		order = append(order, 2)
		close(done)
	})
	s.ScheduleOneShot(now+5000, func() {
		order = append(order, 1)
	})

	<-done
	require.Equal(t, []int{1, 2}, order)
}
