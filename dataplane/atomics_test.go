package dataplane_test

import (
	"context"
	"sync"
	"testing"
)

func TestSetFetchInt32(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 1)
	item := newItem(t, alloc, 64)

	if err := h.SetInt32(ctx, item, 0, -42); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := h.FetchInt32(ctx, item, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != -42 {
		t.Fatalf("got %d, want -42", got)
	}
}

func TestFetchAddInt32IdempotentAtZero(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 1)
	item := newItem(t, alloc, 64)

	if err := h.SetInt32(ctx, item, 0, 7); err != nil {
		t.Fatalf("set: %v", err)
	}
	old, err := h.FetchAddInt32(ctx, item, 0, 0)
	if err != nil {
		t.Fatalf("fetch-add: %v", err)
	}
	if old != 7 {
		t.Fatalf("fetch-add of zero should return current value unmodified, got %d", old)
	}
	cur, err := h.FetchInt32(ctx, item, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if cur != 7 {
		t.Fatalf("value should be unchanged after a zero-delta fetch-add, got %d", cur)
	}
}

func TestSignedMinMaxInt32UsesRealSignedComparison(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 1)
	item := newItem(t, alloc, 64)

	if err := h.SetInt32(ctx, item, 0, -5); err != nil {
		t.Fatalf("set: %v", err)
	}
	// -5 is less than -1 in two's complement, but -5's raw bit pattern is a
	// much larger unsigned value than -1's. A naive unsigned min would pick
	// -1 here; the correct signed min keeps -5.
	if err := h.MinInt32(ctx, item, 0, -1); err != nil {
		t.Fatalf("min: %v", err)
	}
	got, err := h.FetchInt32(ctx, item, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != -5 {
		t.Fatalf("signed min(-5, -1) should stay -5, got %d", got)
	}

	if err := h.MaxInt32(ctx, item, 0, -1); err != nil {
		t.Fatalf("max: %v", err)
	}
	got, err = h.FetchInt32(ctx, item, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != -1 {
		t.Fatalf("signed max(-5, -1) should be -1, got %d", got)
	}
}

func TestCompareSwapUint64(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 1)
	item := newItem(t, alloc, 64)

	if err := h.SetUint64(ctx, item, 0, 100); err != nil {
		t.Fatalf("set: %v", err)
	}
	old, err := h.CompareSwapUint64(ctx, item, 0, 100, 200)
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	if old != 100 {
		t.Fatalf("cas should report the pre-swap value 100, got %d", old)
	}
	old, err = h.CompareSwapUint64(ctx, item, 0, 100, 300)
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	if old != 200 {
		t.Fatalf("second cas's expected value no longer matches; value should stay 200, got report %d", old)
	}
	got, err := h.FetchUint64(ctx, item, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != 200 {
		t.Fatalf("compare_swap with a stale expected value must not write; got %d", got)
	}
}

func TestBitwiseUint32(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 1)
	item := newItem(t, alloc, 64)

	if err := h.SetUint32(ctx, item, 0, 0b1010); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := h.AndUint32(ctx, item, 0, 0b1100); err != nil {
		t.Fatalf("and: %v", err)
	}
	if err := h.OrUint32(ctx, item, 0, 0b0001); err != nil {
		t.Fatalf("or: %v", err)
	}
	if err := h.XorUint32(ctx, item, 0, 0b1111); err != nil {
		t.Fatalf("xor: %v", err)
	}
	got, err := h.FetchUint32(ctx, item, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := uint32(((0b1010 & 0b1100) | 0b0001) ^ 0b1111)
	if got != want {
		t.Fatalf("got %b, want %b", got, want)
	}
}

func TestConcurrentFetchAddUint64(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 1)
	item := newItem(t, alloc, 64)

	if err := h.SetUint64(ctx, item, 0, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	const goroutines, perGoroutine = 8, 50
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				if _, err := h.FetchAddUint64(ctx, item, 0, 1); err != nil {
					t.Errorf("fetch-add: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	got, err := h.FetchUint64(ctx, item, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != uint64(goroutines*perGoroutine) {
		t.Fatalf("got %d, want %d", got, goroutines*perGoroutine)
	}
}

func TestFloat64AddUsesRealFloatArithmetic(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 1)
	item := newItem(t, alloc, 64)

	if err := h.SetFloat64(ctx, item, 0, 1.5); err != nil {
		t.Fatalf("set: %v", err)
	}
	old, err := h.FetchAddFloat64(ctx, item, 0, 2.25)
	if err != nil {
		t.Fatalf("fetch-add: %v", err)
	}
	if old != 1.5 {
		t.Fatalf("fetch-add should report the pre-add value 1.5, got %v", old)
	}
	got, err := h.FetchFloat64(ctx, item, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != 3.75 {
		t.Fatalf("got %v, want 3.75", got)
	}
}

func TestFloat32MinMax(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 1)
	item := newItem(t, alloc, 64)

	if err := h.SetFloat32(ctx, item, 0, -2.5); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := h.MinFloat32(ctx, item, 0, -1.0); err != nil {
		t.Fatalf("min: %v", err)
	}
	got, err := h.FetchFloat32(ctx, item, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != -2.5 {
		t.Fatalf("min(-2.5, -1.0) should stay -2.5, got %v", got)
	}
	if err := h.MaxFloat32(ctx, item, 0, -1.0); err != nil {
		t.Fatalf("max: %v", err)
	}
	got, err = h.FetchFloat32(ctx, item, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != -1.0 {
		t.Fatalf("max(-2.5, -1.0) should be -1.0, got %v", got)
	}
}

func TestCompareSwapInt128(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 1)
	item := newItem(t, alloc, 64)

	loOld, hiOld, err := h.CompareSwapInt128(ctx, item, 0, 0, 0, 0xAAAA, 0xBBBB)
	if err != nil {
		t.Fatalf("cas128: %v", err)
	}
	if loOld != 0 || hiOld != 0 {
		t.Fatalf("expected zero-initialized item, got lo=%d hi=%d", loOld, hiOld)
	}

	loOld, hiOld, err = h.CompareSwapInt128(ctx, item, 0, 0xAAAA, 0xBBBB, 0xCCCC, 0xDDDD)
	if err != nil {
		t.Fatalf("cas128: %v", err)
	}
	if loOld != 0xAAAA || hiOld != 0xBBBB {
		t.Fatalf("got lo=%x hi=%x, want lo=%x hi=%x", loOld, hiOld, 0xAAAA, 0xBBBB)
	}

	// A stale expected value must not write.
	loOld, hiOld, err = h.CompareSwapInt128(ctx, item, 0, 0xAAAA, 0xBBBB, 1, 1)
	if err != nil {
		t.Fatalf("cas128: %v", err)
	}
	if loOld != 0xCCCC || hiOld != 0xDDDD {
		t.Fatalf("stale-expected cas128 should report the current value lo=%x hi=%x, got lo=%x hi=%x", 0xCCCC, 0xDDDD, loOld, hiOld)
	}
}

func TestAtomicRejectsMisalignedOffset(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 1)
	item := newItem(t, alloc, 64)

	if err := h.SetInt32(ctx, item, 3, 1); err == nil {
		t.Fatal("expected a non-4-byte-aligned int32 offset to be rejected")
	}
}
