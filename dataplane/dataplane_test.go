package dataplane_test

import (
	"context"
	"testing"

	"github.com/openfam/fam-go/allocator"
	"github.com/openfam/fam-go/async"
	"github.com/openfam/fam-go/cis"
	cisdirect "github.com/openfam/fam-go/cis/direct"
	"github.com/openfam/fam-go/crm"
	"github.com/openfam/fam-go/dataplane"
	"github.com/openfam/fam-go/descriptor"
	"github.com/openfam/fam-go/transport/loopback"
)

// newTestHandle wires a Handle the same way fam.newContext does, but
// standalone so dataplane can be tested without the fam package.
func newTestHandle(t *testing.T, numServers uint64) (*dataplane.Handle, *allocator.Client) {
	t.Helper()
	fab := loopback.New(numServers)
	backend, err := cisdirect.New(fab)
	if err != nil {
		t.Fatalf("new cis direct backend: %v", err)
	}
	garbage := crm.NewGarbage()
	table := crm.NewTable(garbage)
	alloc := allocator.New(backend, table, garbage)
	engine := async.New(fab, backend, 2, 16)
	t.Cleanup(engine.Close)
	return &dataplane.Handle{
		Alloc:  alloc,
		Fabric: fab,
		Engine: engine,
		CAS:    backend,
	}, alloc
}

func newItem(t *testing.T, alloc *allocator.Client, size uint64) *descriptor.DataItemDescriptor {
	t.Helper()
	ctx := context.Background()
	rd, err := alloc.CreateRegion(ctx, "r", 1<<20, 0o600, cis.RegionAttrs{}, 0, 0)
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	item, err := alloc.Allocate(ctx, rd, "item", size, 0o600, 0, 0)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	return item
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 2)
	item := newItem(t, alloc, 256)

	want := []byte("fabric attached memory")
	if err := h.Put(ctx, item, 16, want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got := make([]byte, len(want))
	if err := h.Get(ctx, item, 16, got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPutNonBlockingThenQuiet(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 2)
	item := newItem(t, alloc, 256)

	want := []byte("async write")
	tag, err := h.PutNonBlocking(ctx, item, 0, want)
	if err != nil {
		t.Fatalf("put non-blocking: %v", err)
	}
	if err := tag.Wait(); err != nil {
		t.Fatalf("tag wait: %v", err)
	}
	if err := h.Quiet(ctx); err != nil {
		t.Fatalf("quiet: %v", err)
	}

	got := make([]byte, len(want))
	if err := h.Get(ctx, item, 0, got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if n := h.Progress(); n != 0 {
		t.Fatalf("expected zero outstanding ops after quiet, got %d", n)
	}
}

func TestGetRejectsOutOfBounds(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 1)
	item := newItem(t, alloc, 64)

	buf := make([]byte, 16)
	if err := h.Get(ctx, item, 60, buf); err == nil {
		t.Fatal("expected out-of-bounds get to fail")
	}
}

func TestPutRejectsNilBuffer(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 1)
	item := newItem(t, alloc, 64)

	if err := h.Put(ctx, item, 0, nil); err == nil {
		t.Fatal("expected nil-buffer put to fail")
	}
}

func TestOperationOnInvalidItemFails(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 1)
	item := newItem(t, alloc, 64)
	if err := alloc.Deallocate(ctx, item, 0, 0); err != nil {
		t.Fatalf("deallocate: %v", err)
	}

	buf := make([]byte, 8)
	if err := h.Get(ctx, item, 0, buf); err == nil {
		t.Fatal("expected get on a deallocated item to fail")
	}
}

func TestStridedScatterGatherRoundTrip(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 2)
	item := newItem(t, alloc, 512)

	const n, first, stride, elemSize = 4, 2, 3, 8
	offsets := dataplane.StridedOffsets(n, first, stride, elemSize)

	local := make([]byte, n*elemSize)
	for i := range local {
		local[i] = byte(i + 1)
	}
	if err := h.Scatter(ctx, item, offsets, elemSize, local); err != nil {
		t.Fatalf("scatter: %v", err)
	}

	back := make([]byte, n*elemSize)
	if err := h.Gather(ctx, item, offsets, elemSize, back); err != nil {
		t.Fatalf("gather: %v", err)
	}
	for i := range local {
		if back[i] != local[i] {
			t.Fatalf("byte %d: got %d, want %d", i, back[i], local[i])
		}
	}
}

func TestIndexedScatterGatherRoundTrip(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 2)
	item := newItem(t, alloc, 512)

	index := []uint64{0, 5, 2, 9}
	const elemSize = 4
	offsets := dataplane.IndexedOffsets(index, elemSize)

	local := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	if err := h.Scatter(ctx, item, offsets, elemSize, local); err != nil {
		t.Fatalf("scatter: %v", err)
	}
	back := make([]byte, len(local))
	if err := h.Gather(ctx, item, offsets, elemSize, back); err != nil {
		t.Fatalf("gather: %v", err)
	}
	for i := range local {
		if back[i] != local[i] {
			t.Fatalf("byte %d: got %d, want %d", i, back[i], local[i])
		}
	}
}

func TestGatherNonBlockingRejectsMismatchedBuffer(t *testing.T) {
	ctx := context.Background()
	h, alloc := newTestHandle(t, 1)
	item := newItem(t, alloc, 64)

	_, err := h.GatherNonBlocking(ctx, item, []uint64{0, 4}, 4, make([]byte, 4))
	if err == nil {
		t.Fatal("expected mismatched local-buffer size to fail")
	}
}
