// Package atomic wraps sync/atomic in small typed structs, matching the
// teacher's cmn/atomic / 3rdparty/atomic convention (atomic.Int64, atomic.Int32,
// atomic.Bool fields used directly inside larger structs).
package atomic

import "sync/atomic"

type Int32 struct{ v atomic.Int32 }

func (i *Int32) Load() int32        { return i.v.Load() }
func (i *Int32) Store(n int32)      { i.v.Store(n) }
func (i *Int32) Inc() int32         { return i.v.Add(1) }
func (i *Int32) Dec() int32         { return i.v.Add(-1) }
func (i *Int32) Add(n int32) int32  { return i.v.Add(n) }
func (i *Int32) CAS(old, nw int32) bool { return i.v.CompareAndSwap(old, nw) }

type Int64 struct{ v atomic.Int64 }

func (i *Int64) Load() int64        { return i.v.Load() }
func (i *Int64) Store(n int64)      { i.v.Store(n) }
func (i *Int64) Inc() int64         { return i.v.Add(1) }
func (i *Int64) Dec() int64         { return i.v.Add(-1) }
func (i *Int64) Add(n int64) int64  { return i.v.Add(n) }
func (i *Int64) CAS(old, nw int64) bool { return i.v.CompareAndSwap(old, nw) }

type Uint32 struct{ v atomic.Uint32 }

func (u *Uint32) Load() uint32         { return u.v.Load() }
func (u *Uint32) Store(n uint32)       { u.v.Store(n) }
func (u *Uint32) Add(n uint32) uint32  { return u.v.Add(n) }
func (u *Uint32) CAS(old, nw uint32) bool { return u.v.CompareAndSwap(old, nw) }

type Uint64 struct{ v atomic.Uint64 }

func (u *Uint64) Load() uint64         { return u.v.Load() }
func (u *Uint64) Store(n uint64)       { u.v.Store(n) }
func (u *Uint64) Add(n uint64) uint64  { return u.v.Add(n) }
func (u *Uint64) CAS(old, nw uint64) bool { return u.v.CompareAndSwap(old, nw) }

type Bool struct{ v atomic.Bool }

func (b *Bool) Load() bool    { return b.v.Load() }
func (b *Bool) Store(v bool)  { b.v.Store(v) }
func (b *Bool) CAS(old, nw bool) bool { return b.v.CompareAndSwap(old, nw) }

// Pointer wraps atomic.Pointer[T] for the garbage-stack use in crm/garbage.go.
type Pointer[T any] struct{ v atomic.Pointer[T] }

func (p *Pointer[T]) Load() *T                 { return p.v.Load() }
func (p *Pointer[T]) Store(n *T)               { p.v.Store(n) }
func (p *Pointer[T]) CAS(old, nw *T) bool      { return p.v.CompareAndSwap(old, nw) }
