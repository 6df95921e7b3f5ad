package crm

import (
	"sync"
	"testing"
)

func TestOpenCloseBalance(t *testing.T) {
	e := newEntry(1)
	rc, first, err := Open(e)
	if err != nil || !first || rc != 1 {
		t.Fatalf("first open: rc=%d first=%v err=%v", rc, first, err)
	}
	rc, first, err = Open(e)
	if err != nil || first || rc != 2 {
		t.Fatalf("second open: rc=%d first=%v err=%v", rc, first, err)
	}
	rc, last, err := Close(e)
	if err != nil || last || rc != 1 {
		t.Fatalf("first close: rc=%d last=%v err=%v", rc, last, err)
	}
	rc, last, err = Close(e)
	if err != nil || !last || rc != 0 {
		t.Fatalf("last close: rc=%d last=%v err=%v", rc, last, err)
	}
	if s, _ := e.State(); s != StateInactive {
		t.Fatalf("expected INACTIVE after balanced open/close, got %s", s)
	}
}

func TestCloseWithoutOpenFails(t *testing.T) {
	e := newEntry(2)
	if _, _, err := Close(e); err == nil {
		t.Fatal("expected error closing a never-opened resource")
	}
}

func TestReleaseIsTerminal(t *testing.T) {
	e := newEntry(3)
	if _, _, err := Open(e); err != nil {
		t.Fatal(err)
	}
	if err := Release(e); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Open(e); err == nil {
		t.Fatal("expected open on a released entry to fail")
	}
}

func TestConcurrentOpenCloseRefcountBalances(t *testing.T) {
	e := newEntry(4)
	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, _, err := Open(e); err != nil {
				t.Error(err)
				return
			}
			if _, _, err := Close(e); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if s, rc := e.State(); s != StateInactive || rc != 0 {
		t.Fatalf("expected balanced INACTIVE/0, got %s/%d", s, rc)
	}
}

func TestTableFindOrCreateIsIdempotent(t *testing.T) {
	tbl := NewTable(NewGarbage())
	a := tbl.FindOrCreate(10)
	b := tbl.FindOrCreate(10)
	if a != b {
		t.Fatal("FindOrCreate returned two different entries for the same key")
	}
	if tbl.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", tbl.Len())
	}
}

func TestEvictGarbageQueuesEntry(t *testing.T) {
	g := NewGarbage()
	tbl := NewTable(g)
	e := tbl.FindOrCreate(20)
	if _, _, err := Open(e); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Evict(20); err != nil {
		t.Fatal(err)
	}
	if _, ok := tbl.Find(20); ok {
		t.Fatal("entry should no longer be in the live table")
	}
	if g.Len() != 1 {
		t.Fatalf("expected 1 queued garbage entry, got %d", g.Len())
	}
	drained := g.Drain()
	if len(drained) != 1 || drained[0] != e {
		t.Fatalf("drain did not return the evicted entry")
	}
	if g.Len() != 0 {
		t.Fatal("drain should empty the queue")
	}
}
