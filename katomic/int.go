package katomic

import "sync/atomic"

// Int32 is a lock-free 32-bit counter, for anywhere spec.md calls for "a
// small set of atomic integer operations" without needing the full
// scheduler lock. No other package in this module uses it at present.
type Int32 struct {
	v atomic.Int32
}

func (i *Int32) Load() int32             { return i.v.Load() }
func (i *Int32) Store(val int32)         { i.v.Store(val) }
func (i *Int32) Add(delta int32) int32   { return i.v.Add(delta) }
func (i *Int32) CompareAndSwap(old, new int32) bool {
	return i.v.CompareAndSwap(old, new)
}

// Int64 is the 64-bit counterpart (Load, Store and Add only). The timer
// service reads its clock directly and does not use it.
type Int64 struct {
	v atomic.Int64
}

func (i *Int64) Load() int64           { return i.v.Load() }
func (i *Int64) Store(val int64)       { i.v.Store(val) }
func (i *Int64) Add(delta int64) int64 { return i.v.Add(delta) }
