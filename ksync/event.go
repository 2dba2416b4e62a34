package ksync

import (
	"github.com/joeycumines/go-mcukernel/kerrors"
	"github.com/joeycumines/go-mcukernel/sched"
)

const eventMagic uint32 = 0x65766e74 // "evnt"

// Event is a manual-reset or auto-unsignal signaling primitive (spec
// §4.3 Event).
type Event struct {
	magic        uint32
	s            *sched.Scheduler
	wq           *sched.WaitQueue
	autoUnsignal bool
	signaled     bool
}

// NewEvent creates an Event in the unsignaled state. When autoUnsignal is
// true, Signal wakes exactly one waiter and resets to unsignaled; when
// false, Signal wakes all waiters and stays signaled until Unsignal.
func NewEvent(s *sched.Scheduler, autoUnsignal bool) *Event {
	return &Event{magic: eventMagic, s: s, wq: sched.NewWaitQueue(s), autoUnsignal: autoUnsignal}
}

func (e *Event) valid() bool { return e != nil && e.magic == eventMagic }

// Wait blocks until the event is signaled (spec §4.3 "wait"). If already
// signaled: a manual-reset event returns immediately without side
// effects; an auto-unsignal event atomically consumes the signal and
// returns.
func (e *Event) Wait() error {
	if !e.valid() {
		return kerrors.New(kerrors.BadHandle, "ksync.Event.Wait")
	}
	e.s.Lock()
	if e.signaled {
		if e.autoUnsignal {
			e.signaled = false
		}
		e.s.Unlock()
		return nil
	}
	reason := e.s.BlockCurrentLocked(e.wq, nil)
	e.s.Unlock()
	if reason == sched.WakeDestroyed {
		return kerrors.New(kerrors.ObjectDestroyed, "ksync.Event.Wait")
	}
	return nil
}

// Signal wakes waiters per the event's auto-unsignal policy (spec §4.3
// "signal"). rescheduleHint is forwarded to sched.CheckPreempt; see
// Sem.Post's doc for this port's resolution of the hint's semantics.
func (e *Event) Signal(rescheduleHint bool) error {
	if !e.valid() {
		return kerrors.New(kerrors.BadHandle, "ksync.Event.Signal")
	}
	e.s.Lock()
	if e.autoUnsignal {
		if !e.wq.WakeOneLocked(sched.WakeOK) {
			e.signaled = true
		}
	} else {
		e.signaled = true
		e.wq.WakeAllLocked(sched.WakeOK)
	}
	e.s.Unlock()
	if rescheduleHint {
		e.s.CheckPreempt()
	}
	return nil
}

// Unsignal resets the event to unsignaled without waking anyone (spec
// §4.3 "unsignal").
func (e *Event) Unsignal() {
	if !e.valid() {
		return
	}
	e.s.Lock()
	e.signaled = false
	e.s.Unlock()
}

// Signaled reports the current signaled state, for diagnostics and tests.
func (e *Event) Signaled() bool {
	e.s.Lock()
	defer e.s.Unlock()
	return e.signaled
}

// Destroy wakes every waiter with ObjectDestroyed and marks the event
// unusable (spec §4.3 "destroy").
func (e *Event) Destroy() {
	if !e.valid() {
		return
	}
	e.s.Lock()
	e.wq.WakeAllLocked(sched.WakeDestroyed)
	e.magic = 0
	e.s.Unlock()
}
