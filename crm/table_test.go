package crm

import "testing"

func TestFindOrCreateReturnsSameEntryOnReopen(t *testing.T) {
	const regionKey = 42

	table := NewTable(NewGarbage())
	first := table.FindOrCreate(regionKey)
	if _, _, err := Open(first); err != nil {
		t.Fatalf("open: %v", err)
	}

	// A second open of the same region must hit the cached entry, not mint a
	// fresh one with a reset refcount.
	second := table.FindOrCreate(regionKey)
	if second != first {
		t.Fatal("expected FindOrCreate to return the same entry on reopen")
	}
	rc, last, err := Close(second)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !last || rc != 0 {
		t.Fatalf("expected a single balanced open/close to fully release, got rc=%d last=%v", rc, last)
	}
}

func TestRegionMemoryMapPayloadSurvivesReopen(t *testing.T) {
	const regionKey = 7
	type fakeMemoryMap struct{ generation int }

	table := NewTable(NewGarbage())
	entry := table.FindOrCreate(regionKey)
	if _, first, err := Open(entry); err != nil || !first {
		t.Fatalf("first open: first=%v err=%v", first, err)
	}
	var payload any = fakeMemoryMap{generation: 1}
	entry.Payload.Store(&payload)

	// A later Open by the same process must see the cached map rather than
	// forcing a fresh fetch — the Allocator Client relies on exactly this to
	// skip re-resolving a region's memory map on every reopen.
	reopened := table.FindOrCreate(regionKey)
	if _, first, err := Open(reopened); err != nil || first {
		t.Fatalf("second open: first=%v err=%v", first, err)
	}
	cached := reopened.Payload.Load()
	if cached == nil {
		t.Fatal("expected a cached region memory map payload after reopen")
	}
	mm, ok := (*cached).(fakeMemoryMap)
	if !ok || mm.generation != 1 {
		t.Fatalf("got %+v, want generation 1", *cached)
	}
}

func TestEvictRemovesFromTableAndQueuesGarbage(t *testing.T) {
	const itemKey = 99

	garbage := NewGarbage()
	table := NewTable(garbage)
	entry := table.FindOrCreate(itemKey)
	if _, _, err := Open(entry); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := table.Evict(itemKey); err != nil {
		t.Fatalf("evict: %v", err)
	}
	if _, ok := table.Find(itemKey); ok {
		t.Fatal("expected entry to be gone from the table after eviction")
	}
	if len(garbage.Drain()) != 1 {
		t.Fatal("expected the evicted entry to land on the garbage queue")
	}
}

func TestCloseAllReleasesEveryLiveEntry(t *testing.T) {
	keys := []uint64{1, 2, 3}

	garbage := NewGarbage()
	table := NewTable(garbage)
	for _, k := range keys {
		e := table.FindOrCreate(k)
		if _, _, err := Open(e); err != nil {
			t.Fatalf("open %d: %v", k, err)
		}
	}
	if table.Len() != len(keys) {
		t.Fatalf("got %d live entries, want %d", table.Len(), len(keys))
	}

	table.CloseAll()

	if table.Len() != 0 {
		t.Fatalf("expected an empty table after CloseAll, got %d entries", table.Len())
	}
	if len(garbage.Drain()) != len(keys) {
		t.Fatal("expected every closed entry to be queued for reclamation")
	}
}
