package sched

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID parses the calling goroutine's numeric ID out of its own
// stack trace header ("goroutine 123 [running]:"). Go exposes no portable
// API for this; it returns 0 if the header can't be parsed, which never
// matches a thread's recorded goroID since that is only ever set from
// inside a live goroutine's own first stack frame.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return 0
	}
	b = b[len(prefix):]
	sp := bytes.IndexByte(b, ' ')
	if sp < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(b[:sp]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
