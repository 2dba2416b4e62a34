package ksync

import (
	"time"

	"github.com/joeycumines/go-mcukernel/kerrors"
	"github.com/joeycumines/go-mcukernel/sched"
)

// mutexMagic guards against use of a destroyed Mutex (spec §3, §7
// BAD_HANDLE), the same convention as sched's threadMagic/waitQueueMagic.
const mutexMagic uint32 = 0x6d757478 // "mutx"

// Mutex is a recursive, hand-off mutual-exclusion lock (spec §4.3 Mutex).
// Ownership is transferred directly from the releaser to the chosen
// waiter's thread: there is no window in which the lock reads as free
// while a waiter is already selected to receive it.
type Mutex struct {
	magic uint32
	s     *sched.Scheduler
	wq    *sched.WaitQueue

	owner     *sched.Thread
	recursive int
}

// NewMutex creates an unheld Mutex bound to s.
func NewMutex(s *sched.Scheduler) *Mutex {
	m := &Mutex{magic: mutexMagic, s: s}
	m.wq = sched.NewWaitQueue(s)
	return m
}

func (m *Mutex) valid() bool { return m != nil && m.magic == mutexMagic }

// Acquire blocks until the calling thread owns the mutex (spec §4.3
// "acquire"). Re-entrant: a thread already holding the mutex increments
// its recursive count instead of blocking on itself.
func (m *Mutex) Acquire() error {
	_, err := m.acquire(false, 0)
	return err
}

// AcquireTimeout is Acquire with a deadline (spec §4.3 "acquire_timeout").
// A timeout of 0 means "try": it returns TIMED_OUT immediately if the
// mutex is held by another thread. sched.Infinite waits forever.
func (m *Mutex) AcquireTimeout(timeout time.Duration) error {
	_, err := m.acquire(true, timeout)
	return err
}

func (m *Mutex) acquire(useTimeout bool, timeout time.Duration) (bool, error) {
	if !m.valid() {
		return false, kerrors.New(kerrors.BadHandle, "ksync.Mutex.Acquire")
	}
	m.s.Lock()
	self := m.s.CurrentLocked()
	if m.owner == nil {
		m.owner = self
		m.recursive = 1
		m.s.Unlock()
		return true, nil
	}
	if m.owner == self {
		m.recursive++
		m.s.Unlock()
		return true, nil
	}
	if useTimeout && timeout == 0 {
		m.s.Unlock()
		return false, kerrors.New(kerrors.TimedOut, "ksync.Mutex.AcquireTimeout")
	}

	var deadline *uint64
	if useTimeout && timeout >= 0 {
		d := m.s.Timer().NowMicros() + uint64(timeout.Microseconds())
		deadline = &d
	}
	reason := m.s.BlockCurrentLocked(m.wq, deadline)
	m.s.Unlock()
	switch reason {
	case sched.WakeTimedOut:
		return false, kerrors.New(kerrors.TimedOut, "ksync.Mutex.AcquireTimeout")
	case sched.WakeDestroyed:
		return false, kerrors.New(kerrors.ObjectDestroyed, "ksync.Mutex.Acquire")
	default:
		// Ownership was already assigned to self by Release's hand-off,
		// under the scheduler lock, before waking us.
		return true, nil
	}
}

// Release relinquishes one level of ownership (spec §4.3 "release").
// Releasing by a non-owner, or releasing a mutex already at zero
// recursion, is a programmer error and fatally asserts (spec §4.1
// "Failure semantics").
func (m *Mutex) Release() {
	if !m.valid() {
		kerrors.Fatalf("ksync: Mutex.Release: invalid handle")
	}
	m.s.Lock()
	self := m.s.CurrentLocked()
	if m.owner != self {
		m.s.Unlock()
		kerrors.Fatalf("ksync: Mutex.Release: caller does not own the mutex")
	}
	m.recursive--
	if m.recursive > 0 {
		m.s.Unlock()
		return
	}
	if m.wq.LenLocked() > 0 {
		// Hand off directly: the next owner is assigned before the
		// waiter is woken, so Acquire never observes a free mutex it
		// would need to race for (spec §4.3 "Rationale for hand-off").
		next := m.wq.PeekHighestLocked()
		m.owner = next
		m.recursive = 1
		m.wq.WakeOneLocked(sched.WakeOK)
	} else {
		m.owner = nil
		m.recursive = 0
	}
	m.s.Unlock()
}

// Destroy marks the mutex unusable. Destroying a held mutex, or one with
// waiters, is a programmer error (spec §4.3 "destroy").
func (m *Mutex) Destroy() {
	if !m.valid() {
		return
	}
	m.s.Lock()
	defer m.s.Unlock()
	if m.owner != nil || m.wq.LenLocked() > 0 {
		kerrors.Fatalf("ksync: Mutex.Destroy: mutex is held or has waiters")
	}
	m.magic = 0
}
