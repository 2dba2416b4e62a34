package bio

import "github.com/joeycumines/go-mcukernel/kerrors"

// ReadAsync enqueues an asynchronous read (spec §4.4 "read_async"). If
// the device implements AsyncDevice, the request is forwarded straight
// to the driver. Otherwise it is synthesized by running Read on a
// worker goroutine drawn from the registry's bounded pool (asyncSem),
// invoking cb exactly once when done — never more than once, matching
// spec §4.4's completion guarantee. The call itself never blocks waiting
// for a free worker slot: that wait happens inside the spawned goroutine,
// since the async path must not suspend the caller (spec §5 "Suspension
// points").
func (r *Registry) ReadAsync(h *Handle, buf []byte, offset uint64, length int, cb Callback, cookie any) error {
	if h == nil || h.closed {
		return kerrors.New(kerrors.BadHandle, "bio.ReadAsync")
	}
	if ad, ok := h.device.(AsyncDevice); ok {
		return ad.ReadAsync(buf, offset, uint64(length), cb, cookie)
	}
	dev := h.device
	go func() {
		r.asyncSem <- struct{}{}
		defer func() { <-r.asyncSem }()
		_, err := r.Read(h, buf, offset, length)
		cb(cookie, dev, err)
	}()
	return nil
}

// WriteAsync is ReadAsync's write counterpart (spec §4.4 "write_async").
func (r *Registry) WriteAsync(h *Handle, buf []byte, offset uint64, length int, cb Callback, cookie any) error {
	if h == nil || h.closed {
		return kerrors.New(kerrors.BadHandle, "bio.WriteAsync")
	}
	if ad, ok := h.device.(AsyncDevice); ok {
		return ad.WriteAsync(buf, offset, uint64(length), cb, cookie)
	}
	dev := h.device
	go func() {
		r.asyncSem <- struct{}{}
		defer func() { <-r.asyncSem }()
		_, err := r.Write(h, buf, offset, length)
		cb(cookie, dev, err)
	}()
	return nil
}
