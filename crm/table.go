package crm

import "sync"

// Table is the resource table: every region/data-item the process currently
// has a live descriptor for, keyed by its encoded id. Grounded on
// fam_client_resource_manager.cpp's reader/writer-locked resource map: reads
// (the common case, every Open) take the read lock; FindOrCreate's creation
// path, Evict and CloseAll take the write lock.
type Table struct {
	mu      sync.RWMutex
	entries map[uint64]*Entry
	garbage *Garbage
}

func NewTable(garbage *Garbage) *Table {
	return &Table{entries: make(map[uint64]*Entry), garbage: garbage}
}

// FindOrCreate returns the existing entry for key, or atomically inserts
// and returns a fresh one. Double-checked locking: the common case (entry
// already exists) only pays for a read lock.
func (t *Table) FindOrCreate(key uint64) *Entry {
	t.mu.RLock()
	e, ok := t.entries[key]
	t.mu.RUnlock()
	if ok {
		return e
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[key]; ok {
		return e
	}
	e = newEntry(key)
	t.entries[key] = e
	return e
}

// Find returns the entry for key without creating one.
func (t *Table) Find(key uint64) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	return e, ok
}

// Evict removes key from the live table and releases + garbage-queues its
// entry. Called once an entry's refcount drops to zero and the caller
// decides the backing resource should actually be torn down (as opposed to
// just cached INACTIVE for a future reopen).
func (t *Table) Evict(key uint64) error {
	t.mu.Lock()
	e, ok := t.entries[key]
	if ok {
		delete(t.entries, key)
	}
	t.mu.Unlock()
	if !ok {
		return nil
	}
	if err := Release(e); err != nil {
		return err
	}
	t.garbage.Push(e)
	return nil
}

// CloseAll releases every entry still in the table, e.g. on Runtime
// Finalize. It does not check individual refcounts: teardown wins.
func (t *Table) CloseAll() {
	t.mu.Lock()
	all := make([]*Entry, 0, len(t.entries))
	for k, e := range t.entries {
		all = append(all, e)
		delete(t.entries, k)
	}
	t.mu.Unlock()
	for _, e := range all {
		_ = Release(e)
		t.garbage.Push(e)
	}
}

// Len reports the number of live entries; for tests and diagnostics.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
