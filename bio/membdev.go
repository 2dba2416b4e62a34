package bio

import (
	"sync"

	"github.com/joeycumines/go-mcukernel/kerrors"
)

// memDevice is a RAM-backed Device (spec §9's supplemental feature,
// grounded on the original kernel's create_membdev, used throughout
// bio_tests.c's basic_read_write/block_read_write cases).
type memDevice struct {
	mu        sync.Mutex
	name      string
	blockSize int
	backing   []byte
	eraseByte byte
	hasErase  bool
}

// CreateMemDevice builds a RAM-backed Device of len(backing)/blockSize
// blocks. eraseByte sets Geometry.EraseByte and Geometry.HasEraseByte;
// Erase fills the requested range with it.
func CreateMemDevice(name string, backing []byte, blockSize int, eraseByte byte) Device {
	return &memDevice{
		name:      name,
		blockSize: blockSize,
		backing:   backing,
		eraseByte: eraseByte,
		hasErase:  true,
	}
}

func (d *memDevice) Name() string { return d.name }

func (d *memDevice) Geometry() Geometry {
	return Geometry{
		BlockSize:    d.blockSize,
		BlockCount:   uint64(len(d.backing)) / uint64(d.blockSize),
		EraseByte:    d.eraseByte,
		HasEraseByte: d.hasErase,
	}
}

func (d *memDevice) ReadBlock(buf []byte, block, count uint64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	start := block * uint64(d.blockSize)
	n := count * uint64(d.blockSize)
	if start+n > uint64(len(d.backing)) {
		return 0, kerrors.New(kerrors.OutOfRange, "bio.memDevice.ReadBlock")
	}
	return copy(buf, d.backing[start:start+n]), nil
}

func (d *memDevice) WriteBlock(buf []byte, block, count uint64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	start := block * uint64(d.blockSize)
	n := count * uint64(d.blockSize)
	if start+n > uint64(len(d.backing)) {
		return 0, kerrors.New(kerrors.OutOfRange, "bio.memDevice.WriteBlock")
	}
	return copy(d.backing[start:start+n], buf), nil
}

func (d *memDevice) Erase(offset, length uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if offset+length > uint64(len(d.backing)) {
		return kerrors.New(kerrors.OutOfRange, "bio.memDevice.Erase")
	}
	for i := offset; i < offset+length; i++ {
		d.backing[i] = d.eraseByte
	}
	return nil
}
