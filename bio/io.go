package bio

import (
	"github.com/joeycumines/go-mcukernel/kerrors"
)

// ReadBlock reads count blocks starting at block into buf (spec §4.4
// "read_block"). buf must be at least count*BlockSize bytes; offset and
// count are always block-aligned by construction, never derived here
// from a byte range.
func (r *Registry) ReadBlock(h *Handle, buf []byte, block, count uint64) (int, error) {
	if h == nil || h.closed {
		return 0, kerrors.New(kerrors.BadHandle, "bio.ReadBlock")
	}
	geom := h.device.Geometry()
	if block+count > geom.BlockCount {
		return 0, kerrors.New(kerrors.OutOfRange, "bio.ReadBlock")
	}
	return h.device.ReadBlock(buf, block, count)
}

// WriteBlock writes count blocks starting at block from buf (spec §4.4
// "write_block").
func (r *Registry) WriteBlock(h *Handle, buf []byte, block, count uint64) (int, error) {
	if h == nil || h.closed {
		return 0, kerrors.New(kerrors.BadHandle, "bio.WriteBlock")
	}
	geom := h.device.Geometry()
	if block+count > geom.BlockCount {
		return 0, kerrors.New(kerrors.OutOfRange, "bio.WriteBlock")
	}
	return h.device.WriteBlock(buf, block, count)
}

// Read satisfies an arbitrary byte-aligned read (spec §4.4 "read"): if
// offset and len are both block-multiples it delegates straight to
// ReadBlock; otherwise the head and tail partial blocks are read into a
// bounce buffer and the wanted slice is copied out, while full middle
// blocks are read directly into buf.
func (r *Registry) Read(h *Handle, buf []byte, offset uint64, length int) (int, error) {
	if h == nil || h.closed {
		return 0, kerrors.New(kerrors.BadHandle, "bio.Read")
	}
	if length < 0 || len(buf) < length {
		return 0, kerrors.New(kerrors.InvalidArgs, "bio.Read")
	}
	geom := h.device.Geometry()
	bs := uint64(geom.BlockSize)
	if offset%bs == 0 && uint64(length)%bs == 0 {
		n, err := h.device.ReadBlock(buf[:length], offset/bs, uint64(length)/bs)
		return n, err
	}

	bounce := make([]byte, bs)
	var done int
	remaining := uint64(length)
	cur := offset
	for remaining > 0 {
		block := cur / bs
		blockStart := block * bs
		inBlockOff := cur - blockStart
		avail := bs - inBlockOff
		want := remaining
		if want > avail {
			want = avail
		}
		if inBlockOff == 0 && want == bs {
			// full middle block: read straight into buf
			n, err := h.device.ReadBlock(buf[done:done+int(want)], block, 1)
			done += n
			if err != nil || uint64(n) < want {
				return done, err
			}
		} else {
			n, err := h.device.ReadBlock(bounce, block, 1)
			if err != nil {
				return done, err
			}
			got := uint64(n)
			if got <= inBlockOff {
				return done, nil
			}
			if got < inBlockOff+want {
				want = got - inBlockOff
			}
			copy(buf[done:done+int(want)], bounce[inBlockOff:inBlockOff+want])
			done += int(want)
		}
		cur += want
		remaining -= want
	}
	return done, nil
}

// Write satisfies an arbitrary byte-aligned write (spec §4.4 "write"):
// symmetric to Read, with partial blocks read-modify-written. The
// erase-byte skip-the-read optimization spec §4.4 mentions requires the
// driver to track which blocks are currently erased, which is outside
// this generic wrapper's scope (see DESIGN.md); every partial block here
// is always read before being modified.
func (r *Registry) Write(h *Handle, buf []byte, offset uint64, length int) (int, error) {
	if h == nil || h.closed {
		return 0, kerrors.New(kerrors.BadHandle, "bio.Write")
	}
	if length < 0 || len(buf) < length {
		return 0, kerrors.New(kerrors.InvalidArgs, "bio.Write")
	}
	geom := h.device.Geometry()
	bs := uint64(geom.BlockSize)
	if offset%bs == 0 && uint64(length)%bs == 0 {
		return h.device.WriteBlock(buf[:length], offset/bs, uint64(length)/bs)
	}

	bounce := make([]byte, bs)
	var done int
	remaining := uint64(length)
	cur := offset
	for remaining > 0 {
		block := cur / bs
		blockStart := block * bs
		inBlockOff := cur - blockStart
		avail := bs - inBlockOff
		want := remaining
		if want > avail {
			want = avail
		}
		if inBlockOff == 0 && want == bs {
			n, err := h.device.WriteBlock(buf[done:done+int(want)], block, 1)
			done += n
			if err != nil || uint64(n) < want {
				return done, err
			}
		} else {
			if _, err := h.device.ReadBlock(bounce, block, 1); err != nil {
				return done, err
			}
			copy(bounce[inBlockOff:inBlockOff+want], buf[done:done+int(want)])
			n, err := h.device.WriteBlock(bounce, block, 1)
			if err != nil {
				return done, err
			}
			if uint64(n) < bs {
				return done, nil
			}
			done += int(want)
		}
		cur += want
		remaining -= want
	}
	return done, nil
}

// Erase requests the device erase the byte range [offset, offset+length)
// (spec §4.4 "erase"). Returns NotSupported if the device doesn't
// implement EraseDevice.
func (r *Registry) Erase(h *Handle, offset, length uint64) error {
	if h == nil || h.closed {
		return kerrors.New(kerrors.BadHandle, "bio.Erase")
	}
	ed, ok := h.device.(EraseDevice)
	if !ok {
		return kerrors.New(kerrors.NotSupported, "bio.Erase")
	}
	return ed.Erase(offset, length)
}
