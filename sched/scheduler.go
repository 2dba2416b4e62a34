// Package sched implements the kernel core's thread scheduler and thread
// object (spec §2.3, §3, §4.1, §4.2, §5, §8 P1/P4/P8).
//
// Each kernel Thread is backed by a goroutine, but the single-RUNNING-
// thread invariant (spec §3, P1, P4) is enforced by an explicit run-token
// handoff (see Thread.resumeCh): at most one thread's goroutine is ever
// executing user or kernel code at a time, exactly as on the single-CPU
// target the original kernel runs on. Goroutines simulating an IRQ context
// (timer callbacks, bio async completions) coordinate with the running
// thread only through the wake primitives in WaitQueue and ksync, never by
// touching a thread's control flow directly — matching spec §5's
// "IRQ handlers may only invoke wake primitives... and must not block".
//
// Go gives no way for one goroutine to forcibly suspend another's
// instruction stream the way a hardware timer interrupt suspends a CPU
// mid-instruction. Quantum-based preemption is therefore cooperative here:
// the timer tick marks a preemption request, and it takes effect the next
// time the running thread reaches a safe point — Yield, Sleep, Join, a
// blocking ksync call, or an explicit CheckPreempt call. This is a deliberate,
// disclosed simplification (see DESIGN.md); it does not weaken P4, which
// is a dispatch-order guarantee, not a latency bound.
package sched

import (
	"math/bits"
	"time"

	"github.com/joeycumines/go-mcukernel/katomic"
	"github.com/joeycumines/go-mcukernel/kerrors"
	"github.com/joeycumines/go-mcukernel/klog"
	"github.com/joeycumines/go-mcukernel/timer"
)

// Infinite is passed to Join/Mutex.AcquireTimeout to request no deadline.
const Infinite time.Duration = -1

// Scheduler owns the ready queues, the current-thread pointer, and the
// timer-driven preemption tick (spec §4.1).
type Scheduler struct {
	_ [0]func()

	cfg Config
	lk  katomic.Lock

	timerSvc *timer.Service
	ownTimer bool

	current *Thread
	idle    *Thread

	ready         [numPriorities]*ring[*Thread]
	readyBitmap   uint64
	preemptPending bool

	preemptCancel func()
}

// New constructs a Scheduler, starts its idle thread and preemption tick,
// and adopts the calling goroutine as the scheduler's first thread — the
// "bootstrap" thread — the way a real kernel's boot code becomes thread 0
// in place rather than through thread_create. The bootstrap thread starts
// RUNNING; nothing else is dispatched until it reaches a safe point
// (Yield, Sleep, Join, or a blocking ksync call) of its own accord. Only the
// goroutine that called New may make blocking calls against the returned
// Scheduler without first creating a thread of its own.
//
// If timerSvc is nil, the Scheduler creates and owns a private
// timer.Service, stopped by Scheduler.Stop.
func New(cfg *Config, timerSvc *timer.Service) *Scheduler {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	s := &Scheduler{cfg: c}
	for i := range s.ready {
		s.ready[i] = newRing[*Thread](4)
	}
	if timerSvc == nil {
		s.timerSvc = timer.New(&timer.Config{Resolution: c.timerResolution()})
		s.ownTimer = true
	} else {
		s.timerSvc = timerSvc
	}

	boot := &Thread{
		magic:        threadMagic,
		name:         "bootstrap",
		prio:         PriorityDefault,
		sched:        s,
		resumeCh:     make(chan struct{}, 1),
		state:        Running,
		remainingQty: c.quantumTicks(),
		joinState:    joinJoinableNoJoiner,
	}
	s.Lock()
	s.current = boot
	boot.goroID = goroutineID()
	s.Unlock()

	idle, err := s.Create("idle", idleEntry, s, PriorityIdle, 0)
	if err != nil {
		kerrors.Fatalf("sched: failed to create idle thread: %v", err)
	}
	s.idle = idle
	s.Resume(idle)

	s.preemptCancel = s.timerSvc.SchedulePeriodic(c.tickInterval(), s.onTick)

	return s
}

func idleEntry(arg any) any {
	s := arg.(*Scheduler)
	for {
		s.Yield()
	}
}

// Stop releases the Scheduler's timer resources. Threads are not joined;
// callers are responsible for their own thread lifecycle before calling
// Stop.
func (s *Scheduler) Stop() {
	if s.preemptCancel != nil {
		s.preemptCancel()
	}
	if s.ownTimer {
		s.timerSvc.Stop()
	}
}

// Timer exposes the Scheduler's timer.Service, for components (ksync's
// timeouts) that need its clock without depending on sched internals.
func (s *Scheduler) Timer() *timer.Service { return s.timerSvc }

// Lock enters the scheduler's IRQ-disabled critical section (spec §5).
// ksync holds it across a check-then-block decision; every exported
// Scheduler method documented as "Locked" requires it.
func (s *Scheduler) Lock() { s.lk.Disable() }

// Unlock leaves the critical section entered by Lock.
func (s *Scheduler) Unlock() { s.lk.Restore() }

// CurrentLocked returns the thread whose goroutine currently holds the run
// token. Callers must hold the Scheduler lock, and must be the current
// thread's own goroutine — this mirrors get_current_thread() being valid
// only from thread context, never from IRQ context (spec §4.1).
func (s *Scheduler) CurrentLocked() *Thread { return s.current }

// Current returns the running thread. Safe to call from any thread's own
// goroutine.
func (s *Scheduler) Current() *Thread {
	s.Lock()
	defer s.Unlock()
	return s.current
}

func (s *Scheduler) enqueueReadyLocked(t *Thread) {
	s.ready[t.prio].PushBack(t)
	s.readyBitmap |= 1 << uint(t.prio)
}

func (s *Scheduler) pickNextLocked() *Thread {
	bm := s.readyBitmap
	prio := bits.Len64(bm) - 1
	r := s.ready[prio]
	t, _ := r.PopFront()
	if r.Len() == 0 {
		s.readyBitmap &^= 1 << uint(prio)
	}
	return t
}

// wakeLocked transitions a waiting thread back to READY and enqueues it,
// canceling any armed timeout. Used by WaitQueue wake operations.
func (s *Scheduler) wakeLocked(t *Thread, reason WakeReason) {
	if t.timeoutCancel != nil {
		t.timeoutCancel()
		t.timeoutCancel = nil
	}
	t.wakeReason = reason
	t.state = Ready
	if t.prio > s.currentPrioOrIdle() {
		s.preemptPending = true
	}
	s.enqueueReadyLocked(t)
}

func (s *Scheduler) currentPrioOrIdle() Priority {
	if s.current == nil {
		return PriorityIdle
	}
	return s.current.prio
}

// reschedule must be called with the lock held, on self's own goroutine.
// It returns with the lock held. If another thread is chosen, self is
// suspended until it is dispatched again.
func (s *Scheduler) reschedule(self *Thread) {
	next := s.pickNextLocked()
	s.current = next
	next.state = Running
	if next == self {
		return
	}
	s.Unlock()
	next.resumeCh <- struct{}{}
	<-self.resumeCh
	s.Lock()
}

// dispatchOnly picks the next thread and hands it the run token, without
// waiting for self to run again. Used by Exit, where self's goroutine is
// about to terminate. Must be called with the lock held; does not
// re-acquire it.
func (s *Scheduler) dispatchOnly() {
	next := s.pickNextLocked()
	s.current = next
	next.state = Running
	s.Unlock()
	next.resumeCh <- struct{}{}
}

func (s *Scheduler) threadMain(t *Thread) {
	s.Lock()
	t.goroID = goroutineID()
	s.Unlock()
	<-t.resumeCh
	ret := t.entry(t.arg)
	s.Exit(ret)
}

// Create allocates a thread in SUSPENDED state; it is not scheduled until
// Resume is called (spec §4.1). stackSize is retained for API fidelity
// with the original kernel's stack-sizing parameter; Go goroutines manage
// their own growable stacks, so it has no effect here.
func (s *Scheduler) Create(name string, entry Entry, arg any, prio Priority, stackSize int) (*Thread, error) {
	if entry == nil {
		return nil, kerrors.New(kerrors.InvalidArgs, "sched.Create: nil entry")
	}
	if !prio.valid() {
		return nil, kerrors.New(kerrors.InvalidArgs, "sched.Create: invalid priority")
	}
	t := &Thread{
		magic:        threadMagic,
		name:         name,
		prio:         prio,
		entry:        entry,
		arg:          arg,
		sched:        s,
		resumeCh:     make(chan struct{}, 1),
		state:        Suspended,
		remainingQty: s.cfg.quantumTicks(),
		joinState:    joinJoinableNoJoiner,
	}
	go s.threadMain(t)
	return t, nil
}

// Resume transitions a SUSPENDED thread to READY (spec §4.1). Resuming a
// thread that is not SUSPENDED is a programmer error.
func (s *Scheduler) Resume(t *Thread) {
	if !t.valid() {
		kerrors.Fatalf("sched: Resume: invalid thread handle")
	}
	s.Lock()
	defer s.Unlock()
	if t.state != Suspended {
		kerrors.Fatalf("sched: Resume: thread %q is not SUSPENDED (state=%s)", t.name, t.state)
	}
	t.state = Ready
	if t.prio > s.currentPrioOrIdle() {
		s.preemptPending = true
	}
	s.enqueueReadyLocked(t)
}

// Detach marks a live thread as self-reaping, or reaps an already-exited
// thread immediately (spec §4.1).
func (s *Scheduler) Detach(t *Thread) {
	if !t.valid() {
		kerrors.Fatalf("sched: Detach: invalid thread handle")
	}
	s.Lock()
	defer s.Unlock()
	switch t.joinState {
	case joinExited:
		t.magic = 0
	case joinJoinableNoJoiner:
		t.joinState = joinDetached
	case joinJoinableJoinerWaiting:
		kerrors.Fatalf("sched: Detach: thread %q already has a joiner waiting", t.name)
	case joinDetached:
		kerrors.Fatalf("sched: Detach: thread %q is already detached", t.name)
	}
}

// Join blocks until t exits, returning its return value. A negative
// timeout (Infinite) waits forever. Join on an already-exited thread
// returns immediately (spec §4.1, §8 P8).
func (s *Scheduler) Join(t *Thread, timeout time.Duration) (any, error) {
	if !t.valid() {
		return nil, kerrors.New(kerrors.BadHandle, "sched.Join")
	}
	s.Lock()
	defer s.Unlock()

	switch t.joinState {
	case joinExited:
		ret := t.retval
		t.magic = 0
		return ret, nil
	case joinJoinableJoinerWaiting:
		kerrors.Fatalf("sched: Join: thread %q already has a joiner", t.name)
	case joinDetached:
		kerrors.Fatalf("sched: Join: thread %q is detached", t.name)
	}

	t.joinState = joinJoinableJoinerWaiting
	if t.joinWaiters == nil {
		t.joinWaiters = NewWaitQueue(s)
	}
	var deadline *uint64
	if timeout >= 0 {
		d := s.timerSvc.NowMicros() + uint64(timeout.Microseconds())
		deadline = &d
	}
	reason := s.BlockCurrentLocked(t.joinWaiters, deadline)
	if reason == WakeTimedOut {
		return nil, kerrors.New(kerrors.TimedOut, "sched.Join")
	}
	ret := t.retval
	t.magic = 0
	return ret, nil
}

// Exit marks the calling thread DEATH, stores its return value, wakes any
// joiner, and dispatches the next thread. It never returns (spec §4.1).
func (s *Scheduler) Exit(retval any) {
	s.Lock()
	self := s.current
	if self == nil || self.state == Death {
		s.Unlock()
		kerrors.Fatalf("sched: Exit: no current thread, or double-exit")
	}
	self.state = Death
	self.retval = retval
	switch self.joinState {
	case joinJoinableJoinerWaiting:
		self.joinState = joinExited
		self.joinWaiters.WakeAllLocked(WakeOK)
	case joinJoinableNoJoiner:
		self.joinState = joinExited
	case joinDetached:
		self.magic = 0
	}
	klog.L().Debug().Str("name", self.name).Log("thread exited")
	s.dispatchOnly()
}

// Sleep suspends the calling thread for at least d (spec §4.1). Guaranteed
// to sleep at least the requested duration.
func (s *Scheduler) Sleep(d time.Duration) {
	if d <= 0 {
		s.Yield()
		return
	}
	s.Lock()
	self := s.current
	self.state = Sleeping
	deadline := s.timerSvc.NowMicros() + uint64(d.Microseconds())
	self.timeoutCancel = s.timerSvc.ScheduleOneShot(deadline, func() {
		s.Lock()
		if self.state == Sleeping {
			self.timeoutCancel = nil
			self.state = Ready
			if self.prio > s.currentPrioOrIdle() {
				s.preemptPending = true
			}
			s.enqueueReadyLocked(self)
		}
		s.Unlock()
	})
	s.reschedule(self)
	s.Unlock()
}

// Yield places the calling thread at the tail of its priority's ready
// queue and reschedules (spec §4.1). This is the primary cooperative safe
// point in this port — see the package doc for why.
func (s *Scheduler) Yield() {
	s.Lock()
	self := s.current
	self.state = Ready
	s.enqueueReadyLocked(self)
	if self == s.idle && s.readyBitmap == 1<<uint(PriorityIdle) {
		// Nothing but idle is ready: park briefly instead of spinning
		// the host CPU, standing in for a real CPU's halt-until-
		// interrupt instruction.
		s.Unlock()
		time.Sleep(time.Millisecond)
		s.Lock()
	}
	s.reschedule(self)
	s.Unlock()
}

// CheckPreempt is an explicit cooperative safe point: if a preemption is
// pending and a higher-priority thread is ready, it is dispatched now; if
// a preemption is pending (as after quantum expiry) and another thread of
// the caller's own priority is ready, a non-real-time caller goes to the
// tail of its ready queue and that thread runs. Long-running, CPU-bound thread bodies should call this periodically
// (spec §9's reschedule_hint is implemented in terms of this check).
//
// CheckPreempt only ever performs the actual switch when called from the
// current thread's own goroutine. A worker or timer-callback goroutine
// standing in for IRQ context (spec §5: "IRQ handlers may only invoke wake
// primitives... and must not block") may legally call this too, but it
// does not own the current thread's run token — driving reschedule from
// such a goroutine would hand off and then wait on a baton that the
// actual owning goroutine is also using, corrupting the single-RUNNING-
// thread invariant. In that case the call is a no-op: the preemption
// request, already recorded by whatever wake operation triggered it,
// still takes effect the next time the current thread itself reaches a
// safe point.
func (s *Scheduler) CheckPreempt() {
	gid := goroutineID()
	s.Lock()
	self := s.current
	if self == nil || self.goroID != gid {
		s.Unlock()
		return
	}
	top := s.highestReadyPriorityLocked()
	if s.preemptPending && (top > self.prio || (top == self.prio && !self.realTime)) {
		s.preemptPending = false
		self.state = Ready
		s.enqueueReadyLocked(self)
		s.reschedule(self)
	}
	s.Unlock()
}

func (s *Scheduler) highestReadyPriorityLocked() Priority {
	if s.readyBitmap == 0 {
		return PriorityIdle - 1
	}
	return Priority(bits.Len64(s.readyBitmap) - 1)
}

// SetRealTime exempts t from quantum-based preemption (spec §4.1). It is
// still preempted by Yield/Sleep/blocking and by CheckPreempt.
func (s *Scheduler) SetRealTime(t *Thread) {
	s.Lock()
	defer s.Unlock()
	t.realTime = true
}

func (s *Scheduler) onTick() {
	s.Lock()
	cur := s.current
	if cur != nil && cur != s.idle && !cur.realTime {
		cur.remainingQty--
		if cur.remainingQty <= 0 {
			cur.remainingQty = s.cfg.quantumTicks()
			s.preemptPending = true
		}
	}
	s.Unlock()
}

// BlockCurrentLocked suspends the calling thread on q until woken or until
// deadlineMicros (absolute, timer.Service.NowMicros-scale) elapses, if
// non-nil. Callers (ksync, Join) must hold the Scheduler lock and call this
// only from the blocking thread's own goroutine (spec §4.2 Block).
func (s *Scheduler) BlockCurrentLocked(q *WaitQueue, deadlineMicros *uint64) WakeReason {
	self := s.current
	self.state = Blocked
	self.wakeReason = WakeOK
	q.pushLocked(self)
	if deadlineMicros != nil {
		d := *deadlineMicros
		self.timeoutCancel = s.timerSvc.ScheduleOneShot(d, func() {
			s.Lock()
			if q.removeLocked(self) {
				self.timeoutCancel = nil
				self.wakeReason = WakeTimedOut
				self.state = Ready
				s.enqueueReadyLocked(self)
			}
			s.Unlock()
		})
	}
	s.reschedule(self)
	if self.timeoutCancel != nil {
		self.timeoutCancel()
		self.timeoutCancel = nil
	}
	return self.wakeReason
}

// ThreadInfo is a diagnostic snapshot of one thread (the running thread or
// a ready one), returned by DumpThreads.
type ThreadInfo struct {
	Name     string
	Priority Priority
	State    State
}

// DumpThreads returns a snapshot of the current thread plus every
// currently-READY thread, for diagnostics (supplementing the original
// kernel's thread_tests.c-style per-thread printf). Blocked and sleeping
// threads are owned by the wait queues of the ksync/bio object they are
// waiting on and are not enumerated here.
func (s *Scheduler) DumpThreads() []ThreadInfo {
	s.Lock()
	defer s.Unlock()
	var out []ThreadInfo
	if s.current != nil {
		out = append(out, ThreadInfo{Name: s.current.name, Priority: s.current.prio, State: s.current.state})
	}
	for _, r := range s.ready {
		for _, t := range r.Snapshot() {
			out = append(out, ThreadInfo{Name: t.name, Priority: t.prio, State: t.state})
		}
	}
	return out
}
