package timer

import (
	"container/heap"
	"sync"
	"time"
)

var processStart = time.Now()

// fallbackNowNanos measures elapsed time against process start using the
// standard library's monotonic clock reading (time.Since uses the
// monotonic component of the times involved).
func fallbackNowNanos() int64 {
	return time.Since(processStart).Nanoseconds()
}

// Callback is invoked when an armed one-shot or periodic timer fires. It
// runs on the Service's driver goroutine, simulating a timer IRQ handler
// (spec §6): it must not block and may only invoke scheduler wake
// primitives, never anything that itself suspends.
type Callback func()

// CancelFunc cancels a previously scheduled callback. Calling it after the
// callback has already fired, or more than once, is a no-op.
type CancelFunc func()

// Config tunes a Service. The zero value is valid and uses the defaults
// documented on each field.
type Config struct {
	// Resolution is the period at which the driver goroutine checks for
	// due callbacks; it also checks whenever a new callback is armed.
	// **Defaults to 1ms, if 0.**
	Resolution time.Duration
}

func (c *Config) resolution() time.Duration {
	if c == nil || c.Resolution <= 0 {
		return time.Millisecond
	}
	return c.Resolution
}

type armedTimer struct {
	deadline int64 // microseconds, monotonic
	seq      uint64
	period   int64 // 0 for one-shot, >0 microseconds for periodic
	cb       Callback
	canceled bool
}

// timerQueue is a min-heap of armedTimer: container/heap over a
// time-ordered slice, sequence-numbered to break deadline ties in arrival
// order.
type timerQueue []*armedTimer

func (h timerQueue) Len() int { return len(h) }
func (h timerQueue) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}
func (h timerQueue) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerQueue) Push(x any)   { *h = append(*h, x.(*armedTimer)) }
func (h *timerQueue) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// Service is the kernel core's timer platform (spec §6): a monotonic clock
// plus a one-shot/periodic callback mechanism standing in for the platform
// timer interrupt. The zero value is not usable; construct with New.
type Service struct {
	cfg Config

	mu      sync.Mutex
	queue   timerQueue
	nextSeq uint64
	wake    chan struct{}
	stop    chan struct{}
	stopped bool
}

// New starts a Service's driver goroutine. Stop must be called to release
// it.
func New(cfg *Config) *Service {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	s := &Service{
		cfg:  c,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	go s.run()
	return s
}

// NowMicros returns the monotonic microsecond counter (spec §3 "Timer
// tick", §6 now_monotonic_us).
func (s *Service) NowMicros() uint64 {
	return uint64(platformNowNanos() / 1000)
}

// NowMillis returns the 32-bit millisecond counter derived from NowMicros.
func (s *Service) NowMillis() uint32 {
	return uint32(s.NowMicros() / 1000)
}

// ScheduleOneShot arms cb to run once deadlineMicros (an absolute
// NowMicros-scale timestamp) is reached. Scheduling a new one-shot does not
// cancel any other previously armed callback; each ScheduleOneShot call is
// independent, and a callback is only canceled through the CancelFunc its
// own call returned.
func (s *Service) ScheduleOneShot(deadlineMicros uint64, cb Callback) CancelFunc {
	return s.arm(int64(deadlineMicros), 0, cb)
}

// SchedulePeriodic arms cb to run every period, starting at now+period.
// Used by the scheduler's preemption tick.
func (s *Service) SchedulePeriodic(period time.Duration, cb Callback) CancelFunc {
	periodMicros := period.Microseconds()
	if periodMicros <= 0 {
		periodMicros = 1
	}
	deadline := int64(s.NowMicros()) + periodMicros
	return s.arm(deadline, periodMicros, cb)
}

func (s *Service) arm(deadline, period int64, cb Callback) CancelFunc {
	t := &armedTimer{deadline: deadline, period: period, cb: cb}
	s.mu.Lock()
	t.seq = s.nextSeq
	s.nextSeq++
	heap.Push(&s.queue, t)
	s.mu.Unlock()
	s.poke()
	return func() {
		s.mu.Lock()
		t.canceled = true
		s.mu.Unlock()
	}
}

func (s *Service) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stop halts the driver goroutine. Armed callbacks that have not yet fired
// are discarded without running.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	close(s.stop)
}

func (s *Service) run() {
	resolution := s.cfg.resolution()
	ticker := time.NewTicker(resolution)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		case <-ticker.C:
		}
		s.fireDue()
	}
}

func (s *Service) fireDue() {
	now := int64(s.NowMicros())
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.queue[0].deadline > now {
			s.mu.Unlock()
			return
		}
		t := heap.Pop(&s.queue).(*armedTimer)
		canceled := t.canceled
		if !canceled && t.period > 0 {
			t.deadline = now + t.period
			t.seq = s.nextSeq
			s.nextSeq++
			heap.Push(&s.queue, t)
		}
		s.mu.Unlock()
		if !canceled {
			t.cb()
		}
	}
}
