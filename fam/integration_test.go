package fam_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/openfam/fam-go/cis"
	famerrors "github.com/openfam/fam-go/cmn/errors"
	"github.com/openfam/fam-go/dataplane"
	"github.com/openfam/fam-go/descriptor"
)

// TestCreateDestroyLoop is seed scenario 1: ten 1 MiB regions created and
// then destroyed in reverse order; the first lookup of the first-created
// region after teardown must report NOTFOUND.
func TestCreateDestroyLoop(t *testing.T) {
	const (
		regionCount = 10
		regionSize  = 1 << 20
		regionPerm  = 0o777
	)
	ctx := context.Background()
	rt := newTestRuntime(t)

	names := make([]string, regionCount)
	descs := make([]*descriptor.RegionDescriptor, regionCount)
	for i := 0; i < regionCount; i++ {
		names[i] = fmt.Sprintf("r_%d", i)
	}
	for i, name := range names {
		rd, err := rt.CreateRegion(ctx, name, regionSize, regionPerm, cis.RegionAttrs{})
		if err != nil {
			t.Fatalf("create region %s: %v", name, err)
		}
		descs[i] = rd
	}
	for i := regionCount - 1; i >= 0; i-- {
		if err := rt.DestroyRegion(ctx, descs[i]); err != nil {
			t.Fatalf("destroy region %s: %v", names[i], err)
		}
	}

	_, err := rt.LookupRegion(ctx, names[0])
	if famerrors.CodeOf(err) != famerrors.NotFound {
		t.Fatalf("expected NOTFOUND looking up a destroyed region, got %v", err)
	}
}

// TestCrossRegionCopy is seed scenario 2.
func TestCrossRegionCopy(t *testing.T) {
	const (
		regionSize = 1 << 20
		itemSize   = 1 << 20
		message    = "Test message\x00"
	)
	ctx := context.Background()
	rt := newTestRuntime(t)

	regionA, err := rt.CreateRegion(ctx, "region-a", regionSize, 0o600, cis.RegionAttrs{})
	if err != nil {
		t.Fatalf("create region a: %v", err)
	}
	regionB, err := rt.CreateRegion(ctx, "region-b", regionSize, 0o600, cis.RegionAttrs{})
	if err != nil {
		t.Fatalf("create region b: %v", err)
	}

	src, err := rt.Allocate(ctx, regionA, "src", itemSize, 0o600)
	if err != nil {
		t.Fatalf("allocate src: %v", err)
	}
	dst, err := rt.Allocate(ctx, regionB, "dst", itemSize, 0o600)
	if err != nil {
		t.Fatalf("allocate dst: %v", err)
	}

	if err := rt.Put(ctx, src, 0, []byte(message)); err != nil {
		t.Fatalf("put: %v", err)
	}

	tok, err := rt.Copy(ctx, src, 0, dst, 0, uint64(len(message)))
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if err := rt.WaitForCopy(ctx, tok); err != nil {
		t.Fatalf("wait for copy: %v", err)
	}

	got := make([]byte, len(message))
	if err := rt.Get(ctx, dst, 0, got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != message {
		t.Fatalf("got %q, want %q", got, message)
	}
}

// TestStridedGather is seed scenario 3: an item packed with int32 values
// v_i = 100 - i; gather(n=5, first=2, stride=3, element_size=4) must yield
// [v_2, v_5, v_8, v_11, v_14].
func TestStridedGather(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t)

	rd, err := rt.CreateRegion(ctx, "region-strided", 1<<20, 0o600, cis.RegionAttrs{})
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	item, err := rt.Allocate(ctx, rd, "packed", 64*4, 0o600)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	for i := 0; i < 16; i++ {
		if err := rt.SetInt32(ctx, item, uint64(i*4), int32(100-i)); err != nil {
			t.Fatalf("set v_%d: %v", i, err)
		}
	}

	offsets := dataplane.StridedOffsets(5, 2, 3, 4)
	local := make([]byte, 5*4)
	if err := rt.Gather(ctx, item, offsets, 4, local); err != nil {
		t.Fatalf("gather: %v", err)
	}

	want := []int32{100 - 2, 100 - 5, 100 - 8, 100 - 11, 100 - 14}
	for i, w := range want {
		got := int32(uint32(local[i*4]) | uint32(local[i*4+1])<<8 | uint32(local[i*4+2])<<16 | uint32(local[i*4+3])<<24)
		if got != w {
			t.Fatalf("element %d: got %d, want %d", i, got, w)
		}
	}
}

// TestIndexedScatterRoundTrip is seed scenario 4.
func TestIndexedScatterRoundTrip(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t)

	rd, err := rt.CreateRegion(ctx, "region-indexed", 1<<20, 0o600, cis.RegionAttrs{})
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	item, err := rt.Allocate(ctx, rd, "sparse", 64*4, 0o600)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	index := []uint64{0, 7, 3, 5, 8}
	values := []int32{10, 20, 30, 40, 50}
	offsets := dataplane.IndexedOffsets(index, 4)

	local := make([]byte, len(values)*4)
	for i, v := range values {
		u := uint32(v)
		local[i*4] = byte(u)
		local[i*4+1] = byte(u >> 8)
		local[i*4+2] = byte(u >> 16)
		local[i*4+3] = byte(u >> 24)
	}
	if err := rt.Scatter(ctx, item, offsets, 4, local); err != nil {
		t.Fatalf("scatter: %v", err)
	}
	if err := rt.Quiet(ctx); err != nil {
		t.Fatalf("quiet: %v", err)
	}

	back := make([]byte, len(values)*4)
	if err := rt.Gather(ctx, item, offsets, 4, back); err != nil {
		t.Fatalf("gather: %v", err)
	}
	for i, v := range values {
		got := int32(uint32(back[i*4]) | uint32(back[i*4+1])<<8 | uint32(back[i*4+2])<<16 | uint32(back[i*4+3])<<24)
		if got != v {
			t.Fatalf("index %d: got %d, want %d", index[i], got, v)
		}
	}
}

// TestAtomicBitwiseOnUint32 is seed scenario 5.
func TestAtomicBitwiseOnUint32(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t)

	rd, err := rt.CreateRegion(ctx, "region-bitwise", 1<<20, 0o600, cis.RegionAttrs{})
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	item, err := rt.Allocate(ctx, rd, "slot", 64, 0o600)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if err := rt.SetUint32(ctx, item, 0, 0xAAAAAAAA); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := rt.Quiet(ctx); err != nil {
		t.Fatalf("quiet: %v", err)
	}
	old, err := rt.FetchAndUint32(ctx, item, 0, 0x12345678)
	if err != nil {
		t.Fatalf("fetch_and: %v", err)
	}
	if old != 0xAAAAAAAA {
		t.Fatalf("fetch_and should report the pre-op value 0xAAAAAAAA, got %#x", old)
	}
	got, err := rt.FetchUint32(ctx, item, 0)
	if err != nil {
		t.Fatalf("fetch_uint32: %v", err)
	}
	if got != 0x02200228 {
		t.Fatalf("got %#x, want %#x", got, 0x02200228)
	}
}

// TestMultiThreadUint64AndOrXor is seed scenario 6: ten goroutines each own
// an 8-byte slot in the same item; each fetch_or's pre-op value must be the
// value it itself set, and the post-op value must land on the scenario's
// fixed constant regardless of interleaving.
func TestMultiThreadUint64AndOrXor(t *testing.T) {
	const (
		slots    = 10
		initial  = uint64(0xAAAAAAAAAAAAAAAA)
		orMask   = uint64(0x1234567890ABCDEF)
		expected = uint64(0xBABEFEFABAABEFEF)
	)
	ctx := context.Background()
	rt := newTestRuntime(t)

	rd, err := rt.CreateRegion(ctx, "region-mt", 1<<20, 0o600, cis.RegionAttrs{})
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	item, err := rt.Allocate(ctx, rd, "slots", slots*8, 0o600)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	for i := 0; i < slots; i++ {
		if err := rt.SetUint64(ctx, item, uint64(i*8), initial); err != nil {
			t.Fatalf("set slot %d: %v", i, err)
		}
	}
	if err := rt.Quiet(ctx); err != nil {
		t.Fatalf("quiet: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(slots)
	for i := 0; i < slots; i++ {
		go func(slot int) {
			defer wg.Done()
			old, err := rt.FetchOrUint64(ctx, item, uint64(slot*8), orMask)
			if err != nil {
				t.Errorf("slot %d fetch_or: %v", slot, err)
				return
			}
			if old != initial {
				t.Errorf("slot %d: fetch_or should report its own pre-op value %#x, got %#x", slot, initial, old)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < slots; i++ {
		got, err := rt.FetchUint64(ctx, item, uint64(i*8))
		if err != nil {
			t.Fatalf("fetch slot %d: %v", i, err)
		}
		if got != expected {
			t.Fatalf("slot %d: got %#x, want %#x", i, got, expected)
		}
	}
}
