//go:build !linux && !darwin

package timer

// platformNowNanos falls back to the standard library's monotonic clock
// reading on platforms without a golang.org/x/sys/unix clock_gettime.
func platformNowNanos() int64 {
	return fallbackNowNanos()
}
