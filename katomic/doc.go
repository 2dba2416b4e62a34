// Package katomic provides the kernel core's atomic integer wrappers, a
// portable spinlock, and the "interrupts disabled" critical-section
// primitive every other package in this module builds on (spec §2.1).
//
// On the single goroutine-per-CPU simulation this module runs on, disabling
// interrupts and taking the spinlock collapse into the same operation: hold
// the Lock for the duration of the critical section. Callers outside this
// module should treat Lock as an implementation detail of sched and ksync,
// not a general-purpose mutex.
package katomic
