// Package transport models the abstract fabric capability spec.md §1 treats
// as an external collaborator: "the wire-level transport library itself
// (treated as an abstract fabric with the capabilities enumerated in §6)".
// This package is that capability, not a real libfabric/verbs binding.
package transport

import "context"

// AtomicOp identifies one RMW primitive family (spec.md §4.6).
type AtomicOp int

const (
	OpSet AtomicOp = iota
	OpAdd
	OpSub
	OpMin
	OpMax
	OpAnd
	OpOr
	OpXor
	OpSwap
	OpCompareSwap
)

// Width identifies the operand width for an atomic op.
type Width int

const (
	Width32 Width = iota
	Width64
	Width128
)

// Fabric is the abstract transport capability: put/get, address-based
// atomics, and server address exchange. Every memory-server-facing component
// (the CIS direct backend standing in for the memory-server cluster, and
// dataplane for the real data path) is built against this interface, never
// against a concrete transport.
type Fabric interface {
	// Put writes data to the extent (serverID, key, base) at the given
	// in-extent offset.
	Put(ctx context.Context, serverID, key, base, offset uint64, data []byte) error
	// Get reads len(buf) bytes from the extent at the given in-extent offset.
	Get(ctx context.Context, serverID, key, base, offset uint64, buf []byte) error

	// Atomic performs one RMW op of the given width at (serverID, key, base,
	// offset). operand/compare are interpreted per width (low bytes used for
	// narrower widths); it returns the pre-operation value for fetching
	// callers and always performs the mutation unless op is a no-op read.
	Atomic(ctx context.Context, serverID, key, base, offset uint64, op AtomicOp, width Width, operand, compare uint64) (old uint64, err error)

	// Register binds a fabric key and base address for (serverID, regionID,
	// inServerOffset, size); called by the CIS backend standing in for the
	// memory-server cluster's registration step.
	Register(ctx context.Context, serverID, regionID, inServerOffset, size uint64) (key, base uint64, err error)

	NumServers(ctx context.Context) (uint64, error)
	AddrSize(ctx context.Context, serverID uint64) (uint32, error)
	Addr(ctx context.Context, serverID uint64) ([]byte, error)
}
