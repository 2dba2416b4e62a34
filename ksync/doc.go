// Package ksync implements the kernel core's synchronization primitives —
// Mutex, Sem, and Event (spec §3, §4.3) — all composed from a
// sched.Scheduler and a sched.WaitQueue, the same way the original kernel
// layers mutex_t/semaphore_t/event_t on top of its wait_queue_t (spec §3
// "Shared wait-queue type").
//
// Every primitive here follows the same shape as sched.Scheduler's own
// exported methods: take the scheduler lock, make or check a decision,
// and either return immediately or call sched.BlockCurrentLocked. None of
// these types do their own locking; they all borrow the owning
// Scheduler's lock, per spec §5's "scheduler data structures... are
// always mutated with interrupts disabled... and the scheduler lock
// held" — here, that discipline extends to every primitive built on top.
package ksync
