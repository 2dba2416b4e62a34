package sched

import (
	"container/list"
)

// State is a thread's position in the lifecycle state machine (spec §3,
// §4.1 "State machine for a thread").
type State int

const (
	Suspended State = iota
	Ready
	Running
	Blocked
	Sleeping
	Death
)

func (s State) String() string {
	switch s {
	case Suspended:
		return "SUSPENDED"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Blocked:
		return "BLOCKED"
	case Sleeping:
		return "SLEEPING"
	case Death:
		return "DEATH"
	default:
		return "UNKNOWN"
	}
}

// threadMagic is set on creation and cleared on teardown; join/detach
// assert against it to catch use of a stale handle (spec §3, §7
// BAD_HANDLE).
const threadMagic uint32 = 0x74687244 // "thrD"

type joinState int

const (
	joinDetached joinState = iota
	joinJoinableNoJoiner
	joinJoinableJoinerWaiting
	joinExited
)

// Entry is a thread's body. The returned value is delivered to a joiner.
type Entry func(arg any) any

// Thread is a single schedulable unit of execution (spec §3). Threads are
// created via Scheduler.Create and must not be copied.
type Thread struct {
	_ [0]func()

	magic uint32
	name  string
	prio  Priority
	entry Entry
	arg   any

	sched *Scheduler

	// resumeCh is the baton: exactly one send/receive pair happens per
	// dispatch, enforcing the single-RUNNING-thread invariant (spec §3,
	// §8 P1/P4) across goroutines standing in for kernel threads.
	resumeCh chan struct{}

	// goroID is the runtime goroutine ID of the goroutine backing this
	// thread, recorded once before the thread can ever be dispatched.
	// CheckPreempt compares it against the calling goroutine's own ID to
	// tell a thread driving its own reschedule from a worker or timer
	// callback goroutine merely observing s.current from the outside.
	goroID uint64

	// Fields below are only mutated with sched.lock held.
	state        State
	realTime     bool
	remainingQty int32
	retval       any
	joinState    joinState
	joinWaiters  *WaitQueue // at most one joiner threads waits here

	// waitQueue/waitElem identify the single queue a BLOCKED thread is a
	// member of (a SLEEPING thread is in no wait queue), per spec §9's "intrusive index list" note:
	// a thread is in exactly one queue at a time.
	waitQueue *WaitQueue
	waitElem  *list.Element

	// wakeReason carries the result reported back from BlockCurrentLocked (spec
	// §4.2): OK, TimedOut, or ObjectDestroyed.
	wakeReason WakeReason

	// timeoutCancel cancels an armed acquire_timeout/join deadline when
	// the thread wakes for another reason first.
	timeoutCancel func()
}

// Name returns the thread's name.
func (t *Thread) Name() string { return t.name }

// Priority returns the thread's scheduling priority.
func (t *Thread) Priority() Priority { return t.prio }

// State returns the thread's current lifecycle state. Intended for
// diagnostics; the value may be stale the instant it's returned, since
// another thread can transition state the moment the lock is released.
func (t *Thread) State() State {
	t.sched.Lock()
	defer t.sched.Unlock()
	return t.state
}

func (t *Thread) valid() bool {
	return t != nil && t.magic == threadMagic
}

// WakeReason reports why Scheduler.BlockCurrentLocked returned.
type WakeReason int

const (
	WakeOK WakeReason = iota
	WakeTimedOut
	WakeDestroyed
)
