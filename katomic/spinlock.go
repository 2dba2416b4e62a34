package katomic

import (
	"runtime"
	"sync/atomic"
)

// SpinLock is a test-and-test-and-set lock. On the uniprocessor simulation
// this module targets it never actually spins for long — contention only
// happens between the goroutine currently holding the kernel's run token
// and a goroutine simulating an IRQ (a timer callback or a bio async
// completion) — but it is kept as a distinct type, as the original source
// does, rather than folded into Lock, since a spinlock by contract never
// blocks the caller on a wait queue and never sleeps.
type SpinLock struct {
	held atomic.Bool
}

// Lock spins until the lock is acquired.
func (s *SpinLock) Lock() {
	for !s.held.CompareAndSwap(false, true) {
		for s.held.Load() {
			runtime.Gosched()
		}
	}
}

// TryLock attempts to acquire the lock without spinning.
func (s *SpinLock) TryLock() bool {
	return s.held.CompareAndSwap(false, true)
}

// Unlock releases the lock. Unlocking a lock not held by the caller is a
// programmer error the original kernel does not detect either; this port
// doesn't add a check beyond what spinlock_unlock does in practice.
func (s *SpinLock) Unlock() {
	s.held.Store(false)
}
