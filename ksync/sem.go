package ksync

import (
	"github.com/joeycumines/go-mcukernel/kerrors"
	"github.com/joeycumines/go-mcukernel/sched"
)

const semMagic uint32 = 0x73656d5f // "sem_"

// Sem is a counting semaphore with a signed count (spec §4.3 Semaphore):
// a negative count records how many threads are currently blocked on it.
type Sem struct {
	magic uint32
	s     *sched.Scheduler
	wq    *sched.WaitQueue
	count int
}

// NewSem creates a Sem initialized to count.
func NewSem(s *sched.Scheduler, count int) *Sem {
	return &Sem{magic: semMagic, s: s, wq: sched.NewWaitQueue(s), count: count}
}

func (x *Sem) valid() bool { return x != nil && x.magic == semMagic }

// Wait atomically decrements the count, blocking if the result is
// negative (spec §4.3 "wait").
func (x *Sem) Wait() error {
	if !x.valid() {
		return kerrors.New(kerrors.BadHandle, "ksync.Sem.Wait")
	}
	x.s.Lock()
	x.count--
	if x.count >= 0 {
		x.s.Unlock()
		return nil
	}
	reason := x.s.BlockCurrentLocked(x.wq, nil)
	x.s.Unlock()
	if reason == sched.WakeDestroyed {
		return kerrors.New(kerrors.ObjectDestroyed, "ksync.Sem.Wait")
	}
	return nil
}

// Post atomically increments the count and, if the pre-increment value
// was negative (there was at least one waiter), wakes one (spec §4.3
// "post"). reschedule_hint is accepted for API fidelity and forwarded to
// sched.CheckPreempt as this port's resolution of the hint's advisory
// semantics (SPEC_FULL.md/DESIGN.md): it never suppresses a preemption
// the scheduler would make anyway, and never forces one the priority
// rules don't already call for.
func (x *Sem) Post(rescheduleHint bool) error {
	if !x.valid() {
		return kerrors.New(kerrors.BadHandle, "ksync.Sem.Post")
	}
	x.s.Lock()
	pre := x.count
	x.count++
	if pre < 0 {
		x.wq.WakeOneLocked(sched.WakeOK)
	}
	x.s.Unlock()
	if rescheduleHint {
		x.s.CheckPreempt()
	}
	return nil
}

// Count returns the current signed count, for diagnostics and tests.
func (x *Sem) Count() int {
	x.s.Lock()
	defer x.s.Unlock()
	return x.count
}

// Destroy wakes every waiter with ObjectDestroyed and marks the
// semaphore unusable (spec §4.3 "destroy").
func (x *Sem) Destroy() {
	if !x.valid() {
		return
	}
	x.s.Lock()
	x.wq.WakeAllLocked(sched.WakeDestroyed)
	x.magic = 0
	x.s.Unlock()
}
