package bio

import "github.com/joeycumines/go-mcukernel/kerrors"

// subDevice translates block addresses by adding startBlock before
// forwarding to an opened handle on its parent (spec §4.4 "Child's
// read_block(n, k) invokes parent's read_block(start_block + n, k)
// through an opened handle to the parent"). Being itself a Device (and,
// when the parent supports it, an EraseDevice), a subDevice can be
// published again as the parent of another subDevice — spec §4.4
// "Nested sub-devices must work".
type subDevice struct {
	reg        *Registry
	parent     *Handle
	name       string
	startBlock uint64
	blockCount uint64
}

// PublishSubdevice registers a child device named childName, covering
// [startBlock, startBlock+blockCount) blocks of the already-registered
// parentName (spec §4.4 "publish_subdevice"). The child keeps an open
// handle to the parent for its entire lifetime, so the parent cannot be
// fully reclaimed while the child exists.
func (r *Registry) PublishSubdevice(parentName, childName string, startBlock, blockCount uint64) error {
	parent, err := r.Open(parentName)
	if err != nil {
		return err
	}
	geom := parent.device.Geometry()
	if startBlock+blockCount > geom.BlockCount {
		r.Close(parent)
		return kerrors.New(kerrors.OutOfRange, "bio.PublishSubdevice")
	}
	child := &subDevice{
		reg:        r,
		parent:     parent,
		name:       childName,
		startBlock: startBlock,
		blockCount: blockCount,
	}
	if err := r.Register(child); err != nil {
		r.Close(parent)
		return err
	}
	return nil
}

func (d *subDevice) Name() string { return d.name }

func (d *subDevice) Geometry() Geometry {
	g := d.parent.device.Geometry()
	g.BlockCount = d.blockCount
	return g
}

func (d *subDevice) ReadBlock(buf []byte, block, count uint64) (int, error) {
	return d.reg.ReadBlock(d.parent, buf, d.startBlock+block, count)
}

func (d *subDevice) WriteBlock(buf []byte, block, count uint64) (int, error) {
	return d.reg.WriteBlock(d.parent, buf, d.startBlock+block, count)
}

func (d *subDevice) blockSize() uint64 {
	return uint64(d.parent.device.Geometry().BlockSize)
}

// Erase translates a sub-device-relative byte range to the parent's
// address space (spec §4.4 "Writes... and erase compose analogously").
func (d *subDevice) Erase(offset, length uint64) error {
	return d.reg.Erase(d.parent, d.startBlock*d.blockSize()+offset, length)
}

var _ EraseDevice = (*subDevice)(nil)
