package dataplane

import (
	"context"

	"github.com/openfam/fam-go/async"
	famerrors "github.com/openfam/fam-go/cmn/errors"
	"github.com/openfam/fam-go/descriptor"
)

// StridedOffsets computes the n touched byte offsets for a strided
// scatter/gather: first*elementSize + i*stride*elementSize, i in [0,n)
// (spec.md §4.6 "Strided scatter/gather").
func StridedOffsets(n, first, stride, elementSize uint64) []uint64 {
	offsets := make([]uint64, n)
	for i := uint64(0); i < n; i++ {
		offsets[i] = (first+i*stride) * elementSize
	}
	return offsets
}

// IndexedOffsets computes the touched byte offsets for an indexed
// scatter/gather: index[i]*elementSize (spec.md §4.6 "Indexed scatter/gather").
func IndexedOffsets(index []uint64, elementSize uint64) []uint64 {
	offsets := make([]uint64, len(index))
	for i, idx := range index {
		offsets[i] = idx * elementSize
	}
	return offsets
}

// Gather reads len(offsets) elements of elementSize bytes each from item at
// the given byte offsets into local, which must be sized
// len(offsets)*elementSize. Each element is bounds-checked individually
// (spec.md §4.6: "bounds checks reject any offset ≥ item_size").
func (h *Handle) Gather(ctx context.Context, item *descriptor.DataItemDescriptor, offsets []uint64, elementSize uint64, local []byte) error {
	if err := validateItem(ctx, h.Alloc, item, h.UID, h.GID); err != nil {
		return err
	}
	if uint64(len(local)) != uint64(len(offsets))*elementSize {
		return famerrors.Newf(famerrors.Invalid, "local buffer size %d != %d elements * %d bytes", len(local), len(offsets), elementSize)
	}
	for i, off := range offsets {
		if err := checkBounds(item, off, elementSize); err != nil {
			return err
		}
		serverID, key, base, inExtent := extentFor(item, off)
		dst := local[uint64(i)*elementSize : uint64(i+1)*elementSize]
		if err := h.Fabric.Get(ctx, serverID, key, base, inExtent, dst); err != nil {
			return err
		}
	}
	return nil
}

// Scatter is Gather's inverse: writes len(offsets) elements from local into
// item at the given byte offsets.
func (h *Handle) Scatter(ctx context.Context, item *descriptor.DataItemDescriptor, offsets []uint64, elementSize uint64, local []byte) error {
	if err := validateItem(ctx, h.Alloc, item, h.UID, h.GID); err != nil {
		return err
	}
	if uint64(len(local)) != uint64(len(offsets))*elementSize {
		return famerrors.Newf(famerrors.Invalid, "local buffer size %d != %d elements * %d bytes", len(local), len(offsets), elementSize)
	}
	for i, off := range offsets {
		if err := checkBounds(item, off, elementSize); err != nil {
			return err
		}
		serverID, key, base, inExtent := extentFor(item, off)
		src := local[uint64(i)*elementSize : uint64(i+1)*elementSize]
		if err := h.Fabric.Put(ctx, serverID, key, base, inExtent, src); err != nil {
			return err
		}
	}
	return nil
}

// GatherNonBlocking/ScatterNonBlocking submit one async read/write per
// element and return their tags; callers Quiet/Fence or Wait each tag
// individually.
func (h *Handle) GatherNonBlocking(ctx context.Context, item *descriptor.DataItemDescriptor, offsets []uint64, elementSize uint64, local []byte) ([]*async.Tag, error) {
	if err := validateItem(ctx, h.Alloc, item, h.UID, h.GID); err != nil {
		return nil, err
	}
	if uint64(len(local)) != uint64(len(offsets))*elementSize {
		return nil, famerrors.Newf(famerrors.Invalid, "local buffer size %d != %d elements * %d bytes", len(local), len(offsets), elementSize)
	}
	tags := make([]*async.Tag, len(offsets))
	for i, off := range offsets {
		if err := checkBounds(item, off, elementSize); err != nil {
			return nil, err
		}
		dst := local[uint64(i)*elementSize : uint64(i+1)*elementSize]
		tags[i] = h.Engine.SubmitRead(async.ReadOp{Item: item, Offset: off, Buf: dst})
	}
	return tags, nil
}

func (h *Handle) ScatterNonBlocking(ctx context.Context, item *descriptor.DataItemDescriptor, offsets []uint64, elementSize uint64, local []byte) ([]*async.Tag, error) {
	if err := validateItem(ctx, h.Alloc, item, h.UID, h.GID); err != nil {
		return nil, err
	}
	if uint64(len(local)) != uint64(len(offsets))*elementSize {
		return nil, famerrors.Newf(famerrors.Invalid, "local buffer size %d != %d elements * %d bytes", len(local), len(offsets), elementSize)
	}
	tags := make([]*async.Tag, len(offsets))
	for i, off := range offsets {
		if err := checkBounds(item, off, elementSize); err != nil {
			return nil, err
		}
		src := local[uint64(i)*elementSize : uint64(i+1)*elementSize]
		tags[i] = h.Engine.SubmitWrite(async.WriteOp{Item: item, Offset: off, Data: src})
	}
	return tags, nil
}
