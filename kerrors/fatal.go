package kerrors

import "fmt"

// FatalError marks a programmer error the kernel core never attempts to
// recover from: double-release of a mutex, double-exit of a thread, a
// non-owner releasing a mutex, and similar invariant violations (spec §7,
// §9). Panics with a typed value rather than a string so tests can recover
// and assert on it.
type FatalError struct {
	msg string
}

func (e *FatalError) Error() string { return e.msg }

// Fatalf panics with a *FatalError built from the given format string.
func Fatalf(format string, args ...any) {
	panic(&FatalError{msg: fmt.Sprintf(format, args...)})
}
