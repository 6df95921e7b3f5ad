package async

import "sync"

// Tag correlates a submitted op with its eventual completion, the async
// analogue of cis.WaitToken (spec.md §4.5 "per-op wait tags").
type Tag struct {
	id   uint64
	kind OpKind

	mu   sync.Mutex
	done bool
	err  error
	wake chan struct{}
}

func newTag(id uint64, kind OpKind) *Tag {
	return &Tag{id: id, kind: kind, wake: make(chan struct{})}
}

func (t *Tag) complete(err error) {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	t.err = err
	close(t.wake)
	t.mu.Unlock()
}

// Wait blocks until the op tag was issued for completes, returning its
// captured error (nil on success).
func (t *Tag) Wait() error {
	<-t.wake
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Tag) Kind() OpKind { return t.kind }
func (t *Tag) ID() uint64   { return t.id }
