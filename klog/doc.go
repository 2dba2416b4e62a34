// Package klog is the kernel's logging facade: a package-level, swappable
// logger reached through a small accessor, defaulting to a no-op
// implementation so the scheduler's hot paths never pay for formatting
// unless a caller opts in (spec §6 "logging must not be on any hot path by
// default").
//
// klog wraps github.com/joeycumines/logiface directly: L() returns a
// *logiface.Logger[*stumpy.Event] whose Build/Info/Debug/Err chain already
// provides structured fields, level gating, and a pluggable Writer, so
// there is no reason to re-invent any of that here.
package klog
