// Package loopback is an in-process "fabric": every memory server is a
// growable byte arena in this process. Used by cis/direct and by tests that
// need a real (not mocked-away) put/get/atomic round trip to exercise
// spec.md §8's properties.
package loopback

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/OneOfOne/xxhash"

	famerrors "github.com/openfam/fam-go/cmn/errors"
	"github.com/openfam/fam-go/transport"
)

// regionIndexBits/regionOffsetMask split the base address this fabric hands
// back from Register into a per-server-local region index (high bits) and an
// in-region byte offset (low bits). Put/Get/Atomic only receive a bare base,
// not the regionID, so the region has to be recoverable from base alone —
// keying a single shared arena by inServerOffset (as the CIS direct backend
// computes it, restarting at 0 per region) would otherwise alias two
// different regions' items onto the same bytes.
const (
	regionOffsetBits = 32
	regionOffsetMask = (uint64(1) << regionOffsetBits) - 1
)

type server struct {
	mu        sync.Mutex
	arenas    map[uint64][]byte // region index -> that region's byte arena
	regionIdx map[uint64]uint64 // regionID -> region index
	nextIdx   uint64
	addr      []byte
}

func (s *server) indexFor(regionID uint64) uint64 {
	if idx, ok := s.regionIdx[regionID]; ok {
		return idx
	}
	s.nextIdx++
	idx := s.nextIdx
	s.regionIdx[regionID] = idx
	return idx
}

// Fabric is an in-process implementation of transport.Fabric over N
// simulated memory servers.
type Fabric struct {
	mu      sync.RWMutex
	servers map[uint64]*server
	keygen  uint64
}

func New(numServers uint64) *Fabric {
	f := &Fabric{servers: make(map[uint64]*server, numServers)}
	for i := uint64(0); i < numServers; i++ {
		f.servers[i] = &server{
			arenas:    make(map[uint64][]byte),
			regionIdx: make(map[uint64]uint64),
			addr:      []byte(fmt.Sprintf("loopback-srv-%d", i)),
		}
	}
	return f
}

func (f *Fabric) srv(id uint64) (*server, error) {
	f.mu.RLock()
	s, ok := f.servers[id]
	f.mu.RUnlock()
	if !ok {
		return nil, famerrors.Newf(famerrors.MemservListEmpty, "no such memory server %d", id)
	}
	return s, nil
}

func (f *Fabric) Register(_ context.Context, serverID, regionID, inServerOffset, size uint64) (key, base uint64, err error) {
	s, err := f.srv(serverID)
	if err != nil {
		return 0, 0, err
	}
	s.mu.Lock()
	idx := s.indexFor(regionID)
	arena := s.arenas[idx]
	need := inServerOffset + size
	if uint64(len(arena)) < need {
		grown := make([]byte, need)
		copy(grown, arena)
		s.arenas[idx] = grown
	}
	s.mu.Unlock()

	base = (idx << regionOffsetBits) | (inServerOffset & regionOffsetMask)

	f.mu.Lock()
	f.keygen++
	seed := f.keygen
	f.mu.Unlock()
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], serverID)
	binary.LittleEndian.PutUint64(buf[8:16], regionID)
	binary.LittleEndian.PutUint64(buf[16:24], seed)
	key = xxhash.Checksum64(buf[:])
	return key, base, nil
}

// splitBase decodes a base address minted by Register back into the region
// index and the in-region byte offset it was built from.
func splitBase(base uint64) (idx, inRegionOffset uint64) {
	return base >> regionOffsetBits, base & regionOffsetMask
}

func (f *Fabric) Put(_ context.Context, serverID, _, base, offset uint64, data []byte) error {
	s, err := f.srv(serverID)
	if err != nil {
		return err
	}
	idx, inRegionOffset := splitBase(base)
	s.mu.Lock()
	defer s.mu.Unlock()
	arena := s.arenas[idx]
	start := inRegionOffset + offset
	if start+uint64(len(data)) > uint64(len(arena)) {
		return famerrors.Newf(famerrors.OutOfRange, "put past registered extent: %d+%d > %d", start, len(data), len(arena))
	}
	copy(arena[start:], data)
	return nil
}

func (f *Fabric) Get(_ context.Context, serverID, _, base, offset uint64, buf []byte) error {
	s, err := f.srv(serverID)
	if err != nil {
		return err
	}
	idx, inRegionOffset := splitBase(base)
	s.mu.Lock()
	defer s.mu.Unlock()
	arena := s.arenas[idx]
	start := inRegionOffset + offset
	if start+uint64(len(buf)) > uint64(len(arena)) {
		return famerrors.Newf(famerrors.OutOfRange, "get past registered extent: %d+%d > %d", start, len(buf), len(arena))
	}
	copy(buf, arena[start:])
	return nil
}

func (f *Fabric) Atomic(_ context.Context, serverID, _, base, offset uint64, op transport.AtomicOp, width transport.Width, operand, compare uint64) (uint64, error) {
	s, err := f.srv(serverID)
	if err != nil {
		return 0, err
	}
	n := widthBytes(width)
	idx, inRegionOffset := splitBase(base)
	s.mu.Lock()
	defer s.mu.Unlock()
	arena := s.arenas[idx]
	start := inRegionOffset + offset
	if start+uint64(n) > uint64(len(arena)) {
		return 0, famerrors.Newf(famerrors.OutOfRange, "atomic past registered extent")
	}
	old := readWidth(arena[start:], n)
	newVal := apply(op, old, operand, compare, n)
	writeWidth(arena[start:], n, newVal)
	return old, nil
}

func (f *Fabric) NumServers(context.Context) (uint64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return uint64(len(f.servers)), nil
}

func (f *Fabric) AddrSize(ctx context.Context, serverID uint64) (uint32, error) {
	s, err := f.srv(serverID)
	if err != nil {
		return 0, err
	}
	return uint32(len(s.addr)), nil
}

func (f *Fabric) Addr(ctx context.Context, serverID uint64) ([]byte, error) {
	s, err := f.srv(serverID)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), s.addr...), nil
}

func widthBytes(w transport.Width) int {
	switch w {
	case transport.Width32:
		return 4
	case transport.Width64:
		return 8
	case transport.Width128:
		return 16
	default:
		return 8
	}
}

func readWidth(b []byte, n int) uint64 {
	switch n {
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

func writeWidth(b []byte, n int, v uint64) {
	switch n {
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, v)
	}
}

func apply(op transport.AtomicOp, old, operand, compare uint64, n int) uint64 {
	mask := uint64(1)<<(uint(n)*8) - 1
	if n == 8 {
		mask = ^uint64(0)
	}
	switch op {
	case transport.OpSet:
		return operand & mask
	case transport.OpAdd:
		return (old + operand) & mask
	case transport.OpSub:
		return (old - operand) & mask
	case transport.OpMin:
		if operand < old {
			return operand
		}
		return old
	case transport.OpMax:
		if operand > old {
			return operand
		}
		return old
	case transport.OpAnd:
		return old & operand
	case transport.OpOr:
		return old | operand
	case transport.OpXor:
		return old ^ operand
	case transport.OpSwap:
		return operand & mask
	case transport.OpCompareSwap:
		if old == compare {
			return operand & mask
		}
		return old
	default:
		return old
	}
}

var _ transport.Fabric = (*Fabric)(nil)
