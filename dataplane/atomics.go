package dataplane

import (
	"context"
	"math"

	famerrors "github.com/openfam/fam-go/cmn/errors"
	"github.com/openfam/fam-go/descriptor"
	"github.com/openfam/fam-go/transport"
)

// The atomics surface (spec.md §4.6): every width in {i32, i64, u32, u64,
// f32, f64, i128} gets a non-fetching and a fetching form per operator
// family. All widths up to 64 bits that are natively representable on the
// fabric's Atomic verb go straight through transport.Fabric; signed-integer
// min/max and floating-point min/max/add/sub, which the fabric's raw-bits
// ops can't express correctly, are emulated with a compare-and-swap retry loop
// (the standard technique for emulating an atomic a fabric has no native
// verb for). 128-bit compare_swap is routed through the CIS-level CAS
// mutex, per spec.md §4.6/§9.

type bitWord interface {
	~int32 | ~int64 | ~uint32 | ~uint64
}

func widthOf[T bitWord]() transport.Width {
	var z T
	switch any(z).(type) {
	case int32, uint32:
		return transport.Width32
	default:
		return transport.Width64
	}
}

func byteWidth(w transport.Width) int {
	switch w {
	case transport.Width32:
		return 4
	case transport.Width128:
		return 16
	default:
		return 8
	}
}

func toBits[T bitWord](v T) uint64 {
	switch x := any(v).(type) {
	case int32:
		return uint64(uint32(x))
	case uint32:
		return uint64(x)
	case int64:
		return uint64(x)
	case uint64:
		return x
	}
	return 0
}

func fromBits[T bitWord](b uint64) T {
	var z T
	switch any(z).(type) {
	case int32:
		return any(int32(uint32(b))).(T)
	case uint32:
		return any(uint32(b)).(T)
	case int64:
		return any(int64(b)).(T)
	case uint64:
		return any(b).(T)
	}
	return z
}

func isSignedInt[T bitWord]() bool {
	var z T
	switch any(z).(type) {
	case int32, int64:
		return true
	default:
		return false
	}
}

func signedLess[T bitWord](a, b T) bool {
	switch x := any(a).(type) {
	case int32:
		return x < any(b).(int32)
	case int64:
		return x < any(b).(int64)
	}
	return false
}

// extentForAtomic resolves item/offset to a fabric extent, erroring if
// offset/width fail the bounds or alignment check (spec.md §8).
func (h *Handle) extentForAtomic(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, width int) (serverID, key, base, inExtent uint64, err error) {
	if err = validateItem(ctx, h.Alloc, item, h.UID, h.GID); err != nil {
		return
	}
	if err = checkBounds(item, offset, uint64(width)); err != nil {
		return
	}
	if err = checkAlignment(offset, width); err != nil {
		return
	}
	serverID, key, base, inExtent = extentFor(item, offset)
	return
}

// nativeRMW issues one native transport.Atomic RMW and returns the
// pre-operation value, decoded as T.
func nativeRMW[T bitWord](ctx context.Context, h *Handle, item *descriptor.DataItemDescriptor, offset uint64, op transport.AtomicOp, operand, compare T) (old T, err error) {
	width := widthOf[T]()
	serverID, key, base, inExtent, err := h.extentForAtomic(ctx, item, offset, byteWidth(width))
	if err != nil {
		return old, err
	}
	ob, err := h.Fabric.Atomic(ctx, serverID, key, base, inExtent, op, width, toBits(operand), toBits(compare))
	if err != nil {
		return old, err
	}
	return fromBits[T](ob), nil
}

// casRetry emulates an RMW the fabric has no correct native form for (signed
// min/max, float add/sub/min/max): read, compute in Go with real
// signed/float semantics, then commit with a bit-exact compare_swap,
// retrying on a lost race.
func casRetry[T bitWord](ctx context.Context, h *Handle, item *descriptor.DataItemDescriptor, offset uint64, mutate func(old T) T) (old T, err error) {
	width := widthOf[T]()
	serverID, key, base, inExtent, err := h.extentForAtomic(ctx, item, offset, byteWidth(width))
	if err != nil {
		return old, err
	}
	for {
		buf := make([]byte, byteWidth(width))
		if err := h.Fabric.Get(ctx, serverID, key, base, inExtent, buf); err != nil {
			return old, err
		}
		cur := fromBits[T](bytesToBits(buf))
		next := mutate(cur)
		resultBits, err := h.Fabric.Atomic(ctx, serverID, key, base, inExtent, transport.OpCompareSwap, width, toBits(next), toBits(cur))
		if err != nil {
			return old, err
		}
		if fromBits[T](resultBits) == cur {
			return cur, nil
		}
		// lost the race against a concurrent mutation; retry with fresh state
	}
}

func bytesToBits(b []byte) uint64 {
	var v uint64
	for i, c := range b {
		v |= uint64(c) << (8 * uint(i))
	}
	return v
}

// --- generic entry points shared by every concrete-type wrapper below ---

func doSet[T bitWord](ctx context.Context, h *Handle, item *descriptor.DataItemDescriptor, offset uint64, v T) (T, error) {
	return nativeRMW(ctx, h, item, offset, transport.OpSet, v, v)
}

func doFetch[T bitWord](ctx context.Context, h *Handle, item *descriptor.DataItemDescriptor, offset uint64) (T, error) {
	// A pure read is a fetch_add of zero: no-op mutation, old value returned.
	return nativeRMW[T](ctx, h, item, offset, transport.OpAdd, 0, 0)
}

// doAdd/doSub are native for every int width: two's-complement add/sub on
// the raw bit pattern is correct regardless of signedness. Floats never
// instantiate this generic (bitWord excludes them) — see floatRMW32/64.
func doAdd[T bitWord](ctx context.Context, h *Handle, item *descriptor.DataItemDescriptor, offset uint64, v T) (T, error) {
	return nativeRMW(ctx, h, item, offset, transport.OpAdd, v, v)
}

func doSub[T bitWord](ctx context.Context, h *Handle, item *descriptor.DataItemDescriptor, offset uint64, v T) (T, error) {
	return nativeRMW(ctx, h, item, offset, transport.OpSub, v, v)
}

// doMin/doMax take the CAS-retry path for signed ints, since the fabric's
// native min/max compares raw bits as unsigned (wrong for two's-complement
// negatives); unsigned widths go straight to the native verb.
func doMin[T bitWord](ctx context.Context, h *Handle, item *descriptor.DataItemDescriptor, offset uint64, v T) (T, error) {
	if isSignedInt[T]() {
		return casRetry(ctx, h, item, offset, func(old T) T {
			if lessT(v, old) {
				return v
			}
			return old
		})
	}
	return nativeRMW(ctx, h, item, offset, transport.OpMin, v, v)
}

func doMax[T bitWord](ctx context.Context, h *Handle, item *descriptor.DataItemDescriptor, offset uint64, v T) (T, error) {
	if isSignedInt[T]() {
		return casRetry(ctx, h, item, offset, func(old T) T {
			if lessT(old, v) {
				return v
			}
			return old
		})
	}
	return nativeRMW(ctx, h, item, offset, transport.OpMax, v, v)
}

func doAnd[T bitWord](ctx context.Context, h *Handle, item *descriptor.DataItemDescriptor, offset uint64, v T) (T, error) {
	return nativeRMW(ctx, h, item, offset, transport.OpAnd, v, v)
}

func doOr[T bitWord](ctx context.Context, h *Handle, item *descriptor.DataItemDescriptor, offset uint64, v T) (T, error) {
	return nativeRMW(ctx, h, item, offset, transport.OpOr, v, v)
}

func doXor[T bitWord](ctx context.Context, h *Handle, item *descriptor.DataItemDescriptor, offset uint64, v T) (T, error) {
	return nativeRMW(ctx, h, item, offset, transport.OpXor, v, v)
}

func doSwap[T bitWord](ctx context.Context, h *Handle, item *descriptor.DataItemDescriptor, offset uint64, v T) (T, error) {
	return nativeRMW(ctx, h, item, offset, transport.OpSwap, v, v)
}

func doCompareSwap[T bitWord](ctx context.Context, h *Handle, item *descriptor.DataItemDescriptor, offset uint64, expected, desired T) (T, error) {
	return nativeRMW(ctx, h, item, offset, transport.OpCompareSwap, desired, expected)
}

func lessT[T bitWord](a, b T) bool {
	if isSignedInt[T]() {
		return signedLess(a, b)
	}
	return a < b
}

// ===========================================================================
// Int32
// ===========================================================================

func (h *Handle) SetInt32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int32) error {
	_, err := doSet(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchSetInt32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int32) (int32, error) {
	return doSet(ctx, h, item, offset, v)
}
func (h *Handle) FetchInt32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64) (int32, error) {
	return doFetch[int32](ctx, h, item, offset)
}
func (h *Handle) AddInt32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int32) error {
	_, err := doAdd(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchAddInt32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int32) (int32, error) {
	return doAdd(ctx, h, item, offset, v)
}
func (h *Handle) SubInt32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int32) error {
	_, err := doSub(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchSubInt32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int32) (int32, error) {
	return doSub(ctx, h, item, offset, v)
}
func (h *Handle) MinInt32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int32) error {
	_, err := doMin(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchMinInt32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int32) (int32, error) {
	return doMin(ctx, h, item, offset, v)
}
func (h *Handle) MaxInt32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int32) error {
	_, err := doMax(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchMaxInt32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int32) (int32, error) {
	return doMax(ctx, h, item, offset, v)
}
func (h *Handle) SwapInt32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int32) error {
	_, err := doSwap(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchSwapInt32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int32) (int32, error) {
	return doSwap(ctx, h, item, offset, v)
}
func (h *Handle) CompareSwapInt32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, expected, desired int32) (int32, error) {
	return doCompareSwap(ctx, h, item, offset, expected, desired)
}

// ===========================================================================
// Int64
// ===========================================================================

func (h *Handle) SetInt64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int64) error {
	_, err := doSet(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchSetInt64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int64) (int64, error) {
	return doSet(ctx, h, item, offset, v)
}
func (h *Handle) FetchInt64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64) (int64, error) {
	return doFetch[int64](ctx, h, item, offset)
}
func (h *Handle) AddInt64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int64) error {
	_, err := doAdd(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchAddInt64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int64) (int64, error) {
	return doAdd(ctx, h, item, offset, v)
}
func (h *Handle) SubInt64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int64) error {
	_, err := doSub(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchSubInt64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int64) (int64, error) {
	return doSub(ctx, h, item, offset, v)
}
func (h *Handle) MinInt64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int64) error {
	_, err := doMin(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchMinInt64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int64) (int64, error) {
	return doMin(ctx, h, item, offset, v)
}
func (h *Handle) MaxInt64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int64) error {
	_, err := doMax(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchMaxInt64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int64) (int64, error) {
	return doMax(ctx, h, item, offset, v)
}
func (h *Handle) SwapInt64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int64) error {
	_, err := doSwap(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchSwapInt64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v int64) (int64, error) {
	return doSwap(ctx, h, item, offset, v)
}
func (h *Handle) CompareSwapInt64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, expected, desired int64) (int64, error) {
	return doCompareSwap(ctx, h, item, offset, expected, desired)
}

// ===========================================================================
// Uint32 (adds bitwise and/or/xor, per spec.md §4.6)
// ===========================================================================

func (h *Handle) SetUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) error {
	_, err := doSet(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchSetUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) (uint32, error) {
	return doSet(ctx, h, item, offset, v)
}
func (h *Handle) FetchUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64) (uint32, error) {
	return doFetch[uint32](ctx, h, item, offset)
}
func (h *Handle) AddUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) error {
	_, err := doAdd(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchAddUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) (uint32, error) {
	return doAdd(ctx, h, item, offset, v)
}
func (h *Handle) SubUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) error {
	_, err := doSub(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchSubUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) (uint32, error) {
	return doSub(ctx, h, item, offset, v)
}
func (h *Handle) MinUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) error {
	_, err := doMin(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchMinUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) (uint32, error) {
	return doMin(ctx, h, item, offset, v)
}
func (h *Handle) MaxUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) error {
	_, err := doMax(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchMaxUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) (uint32, error) {
	return doMax(ctx, h, item, offset, v)
}
func (h *Handle) AndUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) error {
	_, err := doAnd(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchAndUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) (uint32, error) {
	return doAnd(ctx, h, item, offset, v)
}
func (h *Handle) OrUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) error {
	_, err := doOr(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchOrUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) (uint32, error) {
	return doOr(ctx, h, item, offset, v)
}
func (h *Handle) XorUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) error {
	_, err := doXor(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchXorUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) (uint32, error) {
	return doXor(ctx, h, item, offset, v)
}
func (h *Handle) SwapUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) error {
	_, err := doSwap(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchSwapUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint32) (uint32, error) {
	return doSwap(ctx, h, item, offset, v)
}
func (h *Handle) CompareSwapUint32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, expected, desired uint32) (uint32, error) {
	return doCompareSwap(ctx, h, item, offset, expected, desired)
}

// ===========================================================================
// Uint64
// ===========================================================================

func (h *Handle) SetUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) error {
	_, err := doSet(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchSetUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) (uint64, error) {
	return doSet(ctx, h, item, offset, v)
}
func (h *Handle) FetchUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64) (uint64, error) {
	return doFetch[uint64](ctx, h, item, offset)
}
func (h *Handle) AddUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) error {
	_, err := doAdd(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchAddUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) (uint64, error) {
	return doAdd(ctx, h, item, offset, v)
}
func (h *Handle) SubUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) error {
	_, err := doSub(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchSubUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) (uint64, error) {
	return doSub(ctx, h, item, offset, v)
}
func (h *Handle) MinUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) error {
	_, err := doMin(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchMinUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) (uint64, error) {
	return doMin(ctx, h, item, offset, v)
}
func (h *Handle) MaxUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) error {
	_, err := doMax(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchMaxUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) (uint64, error) {
	return doMax(ctx, h, item, offset, v)
}
func (h *Handle) AndUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) error {
	_, err := doAnd(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchAndUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) (uint64, error) {
	return doAnd(ctx, h, item, offset, v)
}
func (h *Handle) OrUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) error {
	_, err := doOr(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchOrUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) (uint64, error) {
	return doOr(ctx, h, item, offset, v)
}
func (h *Handle) XorUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) error {
	_, err := doXor(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchXorUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) (uint64, error) {
	return doXor(ctx, h, item, offset, v)
}
func (h *Handle) SwapUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) error {
	_, err := doSwap(ctx, h, item, offset, v)
	return err
}
func (h *Handle) FetchSwapUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v uint64) (uint64, error) {
	return doSwap(ctx, h, item, offset, v)
}
func (h *Handle) CompareSwapUint64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, expected, desired uint64) (uint64, error) {
	return doCompareSwap(ctx, h, item, offset, expected, desired)
}

// ===========================================================================
// Float32 / Float64 — Set/Swap/CompareSwap go through the native bits path
// (spec.md's fabric RMW is opaque to byte pattern); Add/Sub/Min/Max always
// go through casRetry with real float arithmetic, since a raw-bits integer
// add or unsigned-compare is simply the wrong operation on an IEEE754
// pattern.
// ===========================================================================

func (h *Handle) SetFloat32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float32) error {
	_, err := doSet(ctx, h, item, offset, int32(math.Float32bits(v)))
	return err
}
func (h *Handle) FetchSetFloat32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float32) (float32, error) {
	old, err := doSet(ctx, h, item, offset, int32(math.Float32bits(v)))
	return math.Float32frombits(uint32(old)), err
}
func (h *Handle) FetchFloat32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64) (float32, error) {
	old, err := doFetch[int32](ctx, h, item, offset)
	return math.Float32frombits(uint32(old)), err
}
func (h *Handle) AddFloat32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float32) error {
	_, err := h.floatRMW32(ctx, item, offset, func(old float32) float32 { return old + v })
	return err
}
func (h *Handle) FetchAddFloat32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float32) (float32, error) {
	return h.floatRMW32(ctx, item, offset, func(old float32) float32 { return old + v })
}
func (h *Handle) SubFloat32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float32) error {
	_, err := h.floatRMW32(ctx, item, offset, func(old float32) float32 { return old - v })
	return err
}
func (h *Handle) FetchSubFloat32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float32) (float32, error) {
	return h.floatRMW32(ctx, item, offset, func(old float32) float32 { return old - v })
}
func (h *Handle) MinFloat32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float32) error {
	_, err := h.floatRMW32(ctx, item, offset, func(old float32) float32 {
		if v < old {
			return v
		}
		return old
	})
	return err
}
func (h *Handle) FetchMinFloat32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float32) (float32, error) {
	return h.floatRMW32(ctx, item, offset, func(old float32) float32 {
		if v < old {
			return v
		}
		return old
	})
}
func (h *Handle) MaxFloat32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float32) error {
	_, err := h.floatRMW32(ctx, item, offset, func(old float32) float32 {
		if v > old {
			return v
		}
		return old
	})
	return err
}
func (h *Handle) FetchMaxFloat32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float32) (float32, error) {
	return h.floatRMW32(ctx, item, offset, func(old float32) float32 {
		if v > old {
			return v
		}
		return old
	})
}
func (h *Handle) SwapFloat32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float32) error {
	_, err := doSwap(ctx, h, item, offset, int32(math.Float32bits(v)))
	return err
}
func (h *Handle) FetchSwapFloat32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float32) (float32, error) {
	old, err := doSwap(ctx, h, item, offset, int32(math.Float32bits(v)))
	return math.Float32frombits(uint32(old)), err
}
func (h *Handle) CompareSwapFloat32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, expected, desired float32) (float32, error) {
	old, err := doCompareSwap(ctx, h, item, offset, int32(math.Float32bits(expected)), int32(math.Float32bits(desired)))
	return math.Float32frombits(uint32(old)), err
}

func (h *Handle) floatRMW32(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, mutate func(float32) float32) (float32, error) {
	old, err := casRetry(ctx, h, item, offset, func(oldBits int32) int32 {
		return int32(math.Float32bits(mutate(math.Float32frombits(uint32(oldBits)))))
	})
	return math.Float32frombits(uint32(old)), err
}

func (h *Handle) SetFloat64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float64) error {
	_, err := doSet(ctx, h, item, offset, int64(math.Float64bits(v)))
	return err
}
func (h *Handle) FetchSetFloat64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float64) (float64, error) {
	old, err := doSet(ctx, h, item, offset, int64(math.Float64bits(v)))
	return math.Float64frombits(uint64(old)), err
}
func (h *Handle) FetchFloat64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64) (float64, error) {
	old, err := doFetch[int64](ctx, h, item, offset)
	return math.Float64frombits(uint64(old)), err
}
func (h *Handle) AddFloat64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float64) error {
	_, err := h.floatRMW64(ctx, item, offset, func(old float64) float64 { return old + v })
	return err
}
func (h *Handle) FetchAddFloat64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float64) (float64, error) {
	return h.floatRMW64(ctx, item, offset, func(old float64) float64 { return old + v })
}
func (h *Handle) SubFloat64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float64) error {
	_, err := h.floatRMW64(ctx, item, offset, func(old float64) float64 { return old - v })
	return err
}
func (h *Handle) FetchSubFloat64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float64) (float64, error) {
	return h.floatRMW64(ctx, item, offset, func(old float64) float64 { return old - v })
}
func (h *Handle) MinFloat64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float64) error {
	_, err := h.floatRMW64(ctx, item, offset, func(old float64) float64 {
		if v < old {
			return v
		}
		return old
	})
	return err
}
func (h *Handle) FetchMinFloat64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float64) (float64, error) {
	return h.floatRMW64(ctx, item, offset, func(old float64) float64 {
		if v < old {
			return v
		}
		return old
	})
}
func (h *Handle) MaxFloat64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float64) error {
	_, err := h.floatRMW64(ctx, item, offset, func(old float64) float64 {
		if v > old {
			return v
		}
		return old
	})
	return err
}
func (h *Handle) FetchMaxFloat64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float64) (float64, error) {
	return h.floatRMW64(ctx, item, offset, func(old float64) float64 {
		if v > old {
			return v
		}
		return old
	})
}
func (h *Handle) SwapFloat64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float64) error {
	_, err := doSwap(ctx, h, item, offset, int64(math.Float64bits(v)))
	return err
}
func (h *Handle) FetchSwapFloat64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, v float64) (float64, error) {
	old, err := doSwap(ctx, h, item, offset, int64(math.Float64bits(v)))
	return math.Float64frombits(uint64(old)), err
}
func (h *Handle) CompareSwapFloat64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, expected, desired float64) (float64, error) {
	old, err := doCompareSwap(ctx, h, item, offset, int64(math.Float64bits(expected)), int64(math.Float64bits(desired)))
	return math.Float64frombits(uint64(old)), err
}

func (h *Handle) floatRMW64(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, mutate func(float64) float64) (float64, error) {
	old, err := casRetry(ctx, h, item, offset, func(oldBits int64) int64 {
		return int64(math.Float64bits(mutate(math.Float64frombits(uint64(oldBits)))))
	})
	return math.Float64frombits(uint64(old)), err
}

// ===========================================================================
// Int128 compare_swap — the one 128-bit op spec.md calls out explicitly,
// routed through the CIS's server-side named mutex because fabrics don't
// universally support a 128-bit hardware CAS (spec.md §4.6/§9).
// ===========================================================================

// casLocker is the narrow cis.Client slice Int128 CAS needs.
type casLocker interface {
	AcquireCASLock(ctx context.Context, offset, memserverID uint64) error
	ReleaseCASLock(ctx context.Context, offset, memserverID uint64) error
}

// CompareSwapInt128 performs a 128-bit compare-and-swap by acquiring the
// CIS-level CAS mutex for the item's offset, reading the current 16 bytes,
// comparing against expectedLo/expectedHi, writing desiredLo/desiredHi on a
// match, and releasing the mutex — exactly spec.md §4.6's "acquire ...
// perform a read-modify-write over the transport ... release".
func (h *Handle) CompareSwapInt128(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, expectedLo, expectedHi, desiredLo, desiredHi uint64) (oldLo, oldHi uint64, err error) {
	if h.CAS == nil {
		err = famerrors.New(famerrors.Unimplemented, "128-bit compare_swap requires a CAS-lock-capable CIS client")
		return
	}
	if err = validateItem(ctx, h.Alloc, item, h.UID, h.GID); err != nil {
		return
	}
	if err = checkBounds(item, offset, 16); err != nil {
		return
	}
	if err = checkAlignment(offset, 16); err != nil {
		return
	}
	serverID, key, base, inExtent := extentFor(item, offset)
	if err = h.CAS.AcquireCASLock(ctx, offset, serverID); err != nil {
		return
	}
	defer func() {
		if relErr := h.CAS.ReleaseCASLock(ctx, offset, serverID); relErr != nil && err == nil {
			err = relErr
		}
	}()

	buf := make([]byte, 16)
	if err = h.Fabric.Get(ctx, serverID, key, base, inExtent, buf); err != nil {
		return
	}
	oldLo = bytesToBits(buf[:8])
	oldHi = bytesToBits(buf[8:])
	if oldLo != expectedLo || oldHi != expectedHi {
		return oldLo, oldHi, nil
	}
	putBitsLE(buf[:8], desiredLo)
	putBitsLE(buf[8:], desiredHi)
	if err = h.Fabric.Put(ctx, serverID, key, base, inExtent, buf); err != nil {
		return
	}
	return oldLo, oldHi, nil
}

func putBitsLE(b []byte, v uint64) {
	for i := range b {
		b[i] = byte(v >> (8 * uint(i)))
	}
}
