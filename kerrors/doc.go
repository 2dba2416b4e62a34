// Package kerrors defines the small status-code taxonomy the kernel core's
// errors carry (as *StatusError values behind Go's usual error), plus the fatal
// assertion helper for programmer errors the core never tries to recover
// from (see spec §7).
package kerrors
