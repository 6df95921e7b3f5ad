package dataplane

import (
	"context"

	"github.com/openfam/fam-go/async"
	"github.com/openfam/fam-go/descriptor"
	"github.com/openfam/fam-go/transport"
)

// Handle is the data-path's view of a runtime: enough to validate/rehydrate
// a descriptor, execute a blocking verb directly against the fabric, or
// enqueue a non-blocking one onto the async engine. One Handle per
// fam.Context (spec.md §4.7): a context's Handle wraps its own *async.Engine
// so its quiet/fence never waits on another context's work.
type Handle struct {
	Alloc  rehydrator
	Fabric transport.Fabric
	Engine *async.Engine
	CAS    casLocker // only needed by CompareSwapInt128
	UID    uint32
	GID    uint32
}

// extentFor resolves itemOffset to the (serverID, key, base, inExtentOffset)
// quadruple the transport needs, reusing the descriptor's own stripe-layout
// decode so the data path and the async engine's stripe splitter never
// disagree (descriptor.DataItemDescriptor.ExtentFor).
func extentFor(item *descriptor.DataItemDescriptor, itemOffset uint64) (serverID, key, base, inExtent uint64) {
	idx, start := item.ExtentFor(itemOffset)
	if idx < 0 || idx >= len(item.MemoryServerIDs) {
		idx = 0
	}
	serverID = valueAt(item.MemoryServerIDs, idx)
	key = valueAt(item.Keys, idx)
	base = valueAt(item.BaseAddrs, idx)
	return serverID, key, base, start
}

func valueAt(s []uint64, i int) uint64 {
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}

// Put performs a single-extent blocking write. Multi-extent transfers that
// straddle a stripe boundary go through the async engine's stripeWrite (see
// PutNonBlocking then Quiet), matching spec.md §4.6's blocking/non-blocking
// split: blocking put/get "execute the transport verb synchronously".
func (h *Handle) Put(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, data []byte) error {
	if err := checkPtr(data); err != nil {
		return err
	}
	if err := validateItem(ctx, h.Alloc, item, h.UID, h.GID); err != nil {
		return err
	}
	if err := checkBounds(item, offset, uint64(len(data))); err != nil {
		return err
	}
	serverID, key, base, inExtent := extentFor(item, offset)
	return h.Fabric.Put(ctx, serverID, key, base, inExtent, data)
}

func (h *Handle) Get(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, buf []byte) error {
	if err := checkPtr(buf); err != nil {
		return err
	}
	if err := validateItem(ctx, h.Alloc, item, h.UID, h.GID); err != nil {
		return err
	}
	if err := checkBounds(item, offset, uint64(len(buf))); err != nil {
		return err
	}
	serverID, key, base, inExtent := extentFor(item, offset)
	return h.Fabric.Get(ctx, serverID, key, base, inExtent, buf)
}

// PutNonBlocking enqueues a write onto the async engine; completion is
// observed via the returned tag's Wait, or collectively via Quiet/Fence.
func (h *Handle) PutNonBlocking(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, data []byte) (*async.Tag, error) {
	if err := checkPtr(data); err != nil {
		return nil, err
	}
	if err := validateItem(ctx, h.Alloc, item, h.UID, h.GID); err != nil {
		return nil, err
	}
	if err := checkBounds(item, offset, uint64(len(data))); err != nil {
		return nil, err
	}
	return h.Engine.SubmitWrite(async.WriteOp{Item: item, Offset: offset, Data: data}), nil
}

func (h *Handle) GetNonBlocking(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, buf []byte) (*async.Tag, error) {
	if err := checkPtr(buf); err != nil {
		return nil, err
	}
	if err := validateItem(ctx, h.Alloc, item, h.UID, h.GID); err != nil {
		return nil, err
	}
	if err := checkBounds(item, offset, uint64(len(buf))); err != nil {
		return nil, err
	}
	return h.Engine.SubmitRead(async.ReadOp{Item: item, Offset: offset, Buf: buf}), nil
}

// Quiet/Fence delegate straight to the underlying engine (spec.md §4.5);
// exposed on Handle so callers never need to reach into the engine field.
func (h *Handle) Quiet(ctx context.Context) error { return h.Engine.Quiet(ctx) }
func (h *Handle) Fence(ctx context.Context) error { return h.Engine.Fence(ctx) }

// Progress reports the current outstanding-op count (spec.md §4.5
// "progress() returns the current outstanding-op count ... without
// blocking").
func (h *Handle) Progress() int64 {
	var outstanding int64
	for _, k := range []async.OpKind{async.KindWrite, async.KindRead} {
		sub, comp, _ := h.Engine.Counts(k)
		outstanding += sub - comp
	}
	return outstanding
}
