package sched

import "container/list"

// waitQueueMagic guards against use of a destroyed WaitQueue, mirroring the
// original kernel's wait_queue_t magic word (spec §3).
const waitQueueMagic uint32 = 0x77616974 // "wait"

// WaitQueue is the shared blocking primitive behind Mutex, Sem, Event, and
// Join (spec §4.2). Threads are stored in arrival order; wake operations
// pick the highest-priority waiter, FIFO among ties (spec §3 "Wake
// operations remove either one thread (highest-priority-first, FIFO within
// priority)").
//
// Every method that ends in "Locked" requires the owning Scheduler's lock
// to already be held by the caller (via Scheduler.Lock); this mirrors spec
// §4.2's "All queue mutations happen under the scheduler lock with
// interrupts masked" and lets ksync compose wait queues without
// reaching into Scheduler internals.
type WaitQueue struct {
	s     *Scheduler
	magic uint32
	list  list.List
}

// NewWaitQueue creates a WaitQueue bound to s.
func NewWaitQueue(s *Scheduler) *WaitQueue {
	return &WaitQueue{s: s, magic: waitQueueMagic}
}

// LenLocked returns the number of blocked threads.
func (q *WaitQueue) LenLocked() int {
	return q.list.Len()
}

// pushLocked inserts t at the tail, recording its membership on the thread
// itself per spec §9's intrusive-single-membership note.
func (q *WaitQueue) pushLocked(t *Thread) {
	t.waitElem = q.list.PushBack(t)
	t.waitQueue = q
}

// removeLocked detaches t from the queue if it is still a member (it may
// already have been woken by a racing waker), returning whether it was
// removed.
func (q *WaitQueue) removeLocked(t *Thread) bool {
	if t.waitQueue != q || t.waitElem == nil {
		return false
	}
	q.list.Remove(t.waitElem)
	t.waitElem = nil
	t.waitQueue = nil
	return true
}

// PeekHighestLocked returns the highest-priority waiter (FIFO among ties)
// without removing it, or nil if the queue is empty. Used by Mutex's
// hand-off release, which must name the next owner before waking it.
func (q *WaitQueue) PeekHighestLocked() *Thread {
	var best *list.Element
	for e := q.list.Front(); e != nil; e = e.Next() {
		t := e.Value.(*Thread)
		if best == nil || t.prio > best.Value.(*Thread).prio {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	return best.Value.(*Thread)
}

// WakeOneLocked removes and readies the highest-priority waiter (FIFO
// within a priority), returning whether anything was woken (spec §4.2).
func (q *WaitQueue) WakeOneLocked(reason WakeReason) bool {
	var best *list.Element
	for e := q.list.Front(); e != nil; e = e.Next() {
		t := e.Value.(*Thread)
		if best == nil || t.prio > best.Value.(*Thread).prio {
			best = e
		}
	}
	if best == nil {
		return false
	}
	t := best.Value.(*Thread)
	q.removeLocked(t)
	q.s.wakeLocked(t, reason)
	return true
}

// WakeAllLocked readies every waiter, returning how many were woken.
func (q *WaitQueue) WakeAllLocked(reason WakeReason) int {
	n := 0
	for q.WakeOneLocked(reason) {
		n++
	}
	return n
}
