// Package dataplane implements the data-path operations (spec.md §4.6):
// blocking/non-blocking put/get, strided and indexed scatter/gather, and the
// full fetching/non-fetching atomics surface, all funneled through the
// shared validate/rehydrate preamble every entry point requires.
//
// Grounded on original_source/test/microbench/fam-api-mb/fam_region_spanning_atomic.cpp
// and fam_fetch_logical_atomics_mt_reg_test.cpp (named in
// original_source/_INDEX.md) for the exact atomic-op matrix this package
// exposes, and on spec.md §4.6's shared preamble description.
package dataplane

import (
	"context"

	famerrors "github.com/openfam/fam-go/cmn/errors"
	"github.com/openfam/fam-go/descriptor"
)

// rehydrator is the narrow slice of allocator.Client the data path needs:
// drive a not-yet-bound descriptor forward to InitDone. Declared here
// (rather than importing allocator directly as a concrete type) so
// dataplane depends on a capability, not a concrete package, mirroring
// spec.md §9 "dynamic dispatch over two CIS backends ... expressed as a
// capability".
type rehydrator interface {
	Rehydrate(ctx context.Context, item *descriptor.DataItemDescriptor, uid, gid uint32) error
}

// validateItem is the shared preamble every data-path and atomic entry
// point runs on entry (spec.md §4.6 step 2): fail closed descriptors
// immediately, rehydrate not-yet-bound ones through the allocator.
func validateItem(ctx context.Context, alloc rehydrator, item *descriptor.DataItemDescriptor, uid, gid uint32) error {
	if item == nil {
		return famerrors.New(famerrors.NullPtr, "nil data item descriptor")
	}
	if item.Status == descriptor.Invalid {
		return famerrors.Newf(famerrors.Invalid, "data item %q is closed/deallocated", item.Name)
	}
	if item.Ready() {
		return nil
	}
	return alloc.Rehydrate(ctx, item, uid, gid)
}

// checkBounds rejects any access whose [offset, offset+size) range would
// run past the item's size (spec.md §8 "Bounds rejection").
func checkBounds(item *descriptor.DataItemDescriptor, offset, size uint64) error {
	if size == 0 {
		return famerrors.New(famerrors.Invalid, "zero-byte request")
	}
	if offset+size > item.Size {
		return famerrors.Newf(famerrors.OutOfRange, "offset %d + size %d > item size %d", offset, size, item.Size)
	}
	return nil
}

// checkAlignment enforces spec.md §8 "Alignment rejection": offset must be
// a multiple of the atomic operand width.
func checkAlignment(offset uint64, width int) error {
	if offset%uint64(width) != 0 {
		return famerrors.Newf(famerrors.Invalid, "offset %d not aligned to width %d", offset, width)
	}
	return nil
}

func checkPtr(p []byte) error {
	if p == nil {
		return famerrors.New(famerrors.NullPtr, "nil buffer")
	}
	return nil
}
