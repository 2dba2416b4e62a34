// Package bio implements the kernel core's block I/O layer (spec §3 Block
// device, §4.4, §8 P5/P6/P7): a uniform block-device abstraction with
// synchronous and asynchronous access, independent of the underlying
// driver, plus sub-device partitioning.
//
// A Registry holds named Devices (spec §9 "global mutable state... gated
// by the registry lock"). Open returns a Handle, the reference callers
// use for every subsequent operation; a device's backing resources are
// only eligible for release once its open count drops to zero after
// Unregister (spec §4.4 "close"/"unregister").
//
// Device locking is the driver's own concern (spec §5 "Each bio device
// has its own per-device lock... the driver owns that lock") — the
// Registry only serializes registration and open-count bookkeeping, never
// a device's actual I/O path.
package bio
