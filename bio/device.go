package bio

// Geometry describes a device's fixed block layout (spec §3 "Block
// device: block size, block count, erase byte (optional)"). Bundled as
// one struct rather than three getters, keeping all of a device's layout
// in one place instead of scattered across accessors.
type Geometry struct {
	BlockSize    int
	BlockCount   uint64
	EraseByte    byte
	HasEraseByte bool
}

// TotalSize returns the device's total addressable byte size.
func (g Geometry) TotalSize() uint64 {
	return g.BlockCount * uint64(g.BlockSize)
}

// Device is the function-vector a driver implements (spec §4.4's
// "delegate to the driver vector"). ReadBlock/WriteBlock must only ever
// be called block-aligned; Registry.Read/Write handle unaligned access
// on top.
type Device interface {
	// Name reports the device's registered name, for diagnostics.
	Name() string
	// Geometry returns the device's block layout.
	Geometry() Geometry
	// ReadBlock reads count blocks starting at block into buf, which must
	// be at least count*BlockSize bytes.
	ReadBlock(buf []byte, block, count uint64) (int, error)
	// WriteBlock writes count blocks starting at block from buf.
	WriteBlock(buf []byte, block, count uint64) (int, error)
}

// EraseDevice is implemented by drivers that support erase (spec §4.4
// "erase... optional"). A Device that does not implement this interface
// reports NotSupported from Registry.Erase.
type EraseDevice interface {
	Erase(offset, length uint64) error
}

// Callback is invoked exactly once per accepted async request (spec
// §4.4 "Every accepted async request produces exactly one completion
// callback"). It may run on a worker goroutine standing in for IRQ
// context (spec §9): it must not block, and may only use ksync's wake
// primitives, never ksync's blocking ones.
type Callback func(cookie any, dev Device, status error)

// AsyncDevice is implemented by drivers with a native async path. A
// Device that does not implement this interface has ReadAsync/WriteAsync
// synthesized on a bounded worker pool (async.go), per spec §4.4 "If the
// driver exposes no native async variant, the core synthesises one".
type AsyncDevice interface {
	ReadAsync(buf []byte, offset, length uint64, cb Callback, cookie any) error
	WriteAsync(buf []byte, offset, length uint64, cb Callback, cookie any) error
}
