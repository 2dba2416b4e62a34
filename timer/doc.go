// Package timer implements the kernel core's timer service (spec §2.2,
// §3 "Timer tick", §6 "Core → timer platform"): a monotonic clock and a
// one-shot/periodic callback mechanism driven by a single background
// goroutine standing in for the platform timer interrupt.
//
// Fired callbacks run on that goroutine and must never block, mirroring
// the constraint spec §4.4/§9 place on bio async completions.
package timer
