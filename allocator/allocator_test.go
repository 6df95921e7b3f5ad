package allocator_test

import (
	"context"
	"testing"

	"github.com/openfam/fam-go/allocator"
	"github.com/openfam/fam-go/cis"
	cisdirect "github.com/openfam/fam-go/cis/direct"
	"github.com/openfam/fam-go/crm"
	"github.com/openfam/fam-go/descriptor"
	"github.com/openfam/fam-go/transport/loopback"
)

func newTestClient(t *testing.T) (*allocator.Client, cis.Client) {
	t.Helper()
	fab := loopback.New(2)
	backend, err := cisdirect.New(fab)
	if err != nil {
		t.Fatalf("new cis direct backend: %v", err)
	}
	table := crm.NewTable(crm.NewGarbage())
	return allocator.New(backend, table, crm.NewGarbage()), backend
}

func TestCreateAllocateDeallocateDestroy(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestClient(t)

	rd, err := a.CreateRegion(ctx, "region-a", 1<<20, 0o600, cis.RegionAttrs{}, 100, 100)
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	if rd.Status != descriptor.RegionLive {
		t.Fatalf("expected live region, got %s", rd.Status)
	}

	item, err := a.Allocate(ctx, rd, "item-a", 4096, 0o600, 100, 100)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if !item.Ready() {
		t.Fatalf("expected item bound immediately after allocate, got status %s", item.Status)
	}

	if err := a.Deallocate(ctx, item, 100, 100); err != nil {
		t.Fatalf("deallocate: %v", err)
	}
	if item.Status != descriptor.Invalid {
		t.Fatalf("expected INVALID after deallocate, got %s", item.Status)
	}

	if err := a.DestroyRegion(ctx, rd, 100, 100); err != nil {
		t.Fatalf("destroy region: %v", err)
	}
	if rd.Status != descriptor.RegionDestroyed {
		t.Fatalf("expected region destroyed, got %s", rd.Status)
	}
}

func TestLookupThenRehydrate(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestClient(t)

	rd, err := a.CreateRegion(ctx, "region-b", 1<<20, 0o600, cis.RegionAttrs{}, 0, 0)
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	if _, err := a.Allocate(ctx, rd, "item-b", 1024, 0o600, 0, 0); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	item, err := a.Lookup(ctx, "item-b", "region-b")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if item.Ready() {
		t.Fatal("a freshly looked-up item should not be InitDone before rehydration")
	}
	if err := a.Rehydrate(ctx, item, 0, 0); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if !item.Ready() {
		t.Fatal("expected item to be InitDone after rehydrate")
	}
}

// TestRehydrateRegionLevelUsesCachedMemoryMap exercises the REGION-level
// permission branch of Rehydrate: once OpenRegion has cached the region's
// memory map on the CRM entry, a later Lookup+Rehydrate of one of its items
// must resolve keys/bases out of that cache rather than bind a fresh set
// from a per-item RPC, ending up with the same keys/bases Allocate returned.
func TestRehydrateRegionLevelUsesCachedMemoryMap(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestClient(t)

	attrs := cis.RegionAttrs{PermissionLevel: descriptor.PermissionRegion}
	rd, err := a.CreateRegion(ctx, "region-r", 1<<20, 0o600, attrs, 0, 0)
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	bound, err := a.Allocate(ctx, rd, "item-r", 1024, 0o600, 0, 0)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if bound.PermissionLevel != descriptor.PermissionRegion {
		t.Fatalf("expected allocated item to inherit REGION permission level, got %s", bound.PermissionLevel)
	}

	if _, err := a.OpenRegion(ctx, rd, 0, 0); err != nil {
		t.Fatalf("open region: %v", err)
	}

	item, err := a.Lookup(ctx, "item-r", "region-r")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if item.Ready() {
		t.Fatal("a freshly looked-up item should not be InitDone before rehydration")
	}
	if err := a.Rehydrate(ctx, item, 0, 0); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if !item.Ready() {
		t.Fatal("expected item to be InitDone after rehydrate")
	}
	if len(item.Keys) != len(bound.Keys) {
		t.Fatalf("got %d keys, want %d", len(item.Keys), len(bound.Keys))
	}
	for i := range bound.Keys {
		if item.Keys[i] != bound.Keys[i] || item.BaseAddrs[i] != bound.BaseAddrs[i] {
			t.Fatalf("extent %d: got key=%d base=%d, want key=%d base=%d", i, item.Keys[i], item.BaseAddrs[i], bound.Keys[i], bound.BaseAddrs[i])
		}
	}
}

// TestRehydrateRegionLevelRefreshesColdCache covers the cache-miss path: a
// REGION-level item rehydrated without anybody having opened the region
// first must still succeed, by fetching and caching the memory map on
// demand instead of erroring out.
func TestRehydrateRegionLevelRefreshesColdCache(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestClient(t)

	attrs := cis.RegionAttrs{PermissionLevel: descriptor.PermissionRegion}
	rd, err := a.CreateRegion(ctx, "region-cold", 1<<20, 0o600, attrs, 0, 0)
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	if _, err := a.Allocate(ctx, rd, "item-cold", 1024, 0o600, 0, 0); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	item, err := a.Lookup(ctx, "item-cold", "region-cold")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if err := a.Rehydrate(ctx, item, 0, 0); err != nil {
		t.Fatalf("rehydrate with a cold region cache: %v", err)
	}
	if !item.Ready() {
		t.Fatal("expected item to be InitDone after rehydrate")
	}
}
