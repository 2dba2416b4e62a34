package klog

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

var global struct {
	sync.RWMutex
	logger *logiface.Logger[*stumpy.Event]
}

func init() {
	global.logger = newNoOpLogger()
}

// newNoOpLogger returns a logger at LevelDisabled, so Build/Info/Debug/etc.
// short-circuit before any field is ever written, the way the scheduler's
// default invocations (sched.Exit, bio.Registry.Close) expect.
func newNoOpLogger() *logiface.Logger[*stumpy.Event] {
	return stumpy.L.New(
		stumpy.L.WithLevel(logiface.LevelDisabled),
	)
}

// SetLogger installs l as the kernel-wide logger. Passing nil restores the
// no-op default.
func SetLogger(l *logiface.Logger[*stumpy.Event]) {
	global.Lock()
	defer global.Unlock()
	if l == nil {
		l = newNoOpLogger()
	}
	global.logger = l
}

// L returns the current kernel-wide logger. Safe to call from any
// goroutine, including from inside the scheduler lock; logiface's Builder
// chain defers all formatting until Log/Logf is called, and does nothing
// at all when the configured level disables the call site.
func L() *logiface.Logger[*stumpy.Event] {
	global.RLock()
	defer global.RUnlock()
	return global.logger
}

// New builds a stumpy-backed logiface logger at the given level, writing to
// stumpy's default writer (os.Stderr) unless overridden by opts. This is a
// convenience for callers (notably cmd/kcoresim) that want to turn on
// kernel tracing without reaching into logiface/stumpy directly.
func New(level logiface.Level, opts ...stumpy.Option) *logiface.Logger[*stumpy.Event] {
	return stumpy.L.New(
		stumpy.L.WithLevel(level),
		stumpy.L.WithStumpy(opts...),
	)
}
