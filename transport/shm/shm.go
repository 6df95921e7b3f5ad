// Package shm implements transport.Fabric over POSIX shared memory, backing
// config.OpenFAMModel == "shared_memory" (spec.md §6). Each simulated memory
// server is a regular file under a shared directory (conventionally
// /dev/shm/<name>), mmap'd MAP_SHARED so any process on the same host that
// opens the same path observes the same bytes.
package shm

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	famerrors "github.com/openfam/fam-go/cmn/errors"
	"github.com/openfam/fam-go/transport"
)

type segment struct {
	mu   sync.Mutex
	fd   int
	path string
	mem  []byte
}

func (s *segment) grow(size uint64) error {
	if uint64(len(s.mem)) >= size {
		return nil
	}
	if s.mem != nil {
		if err := unix.Munmap(s.mem); err != nil {
			return famerrors.Wrap(famerrors.SHM, err, "munmap for grow")
		}
		s.mem = nil
	}
	if err := unix.Ftruncate(s.fd, int64(size)); err != nil {
		return famerrors.Wrap(famerrors.SHM, err, "ftruncate")
	}
	mem, err := unix.Mmap(s.fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return famerrors.Wrap(famerrors.SHM, err, "mmap")
	}
	s.mem = mem
	return nil
}

// Fabric is a shared-memory-backed transport.Fabric. All segments live under
// Dir, one file per memory server id.
type Fabric struct {
	dir string

	mu       sync.RWMutex
	segments map[uint64]*segment
	keygen   uint64
	numSrv   uint64
}

// New opens (creating if needed) numServers shared-memory segments under
// dir. dir is typically /dev/shm/<job>.
func New(dir string, numServers uint64) (*Fabric, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, famerrors.Wrap(famerrors.SHM, err, "mkdir shm dir")
	}
	f := &Fabric{dir: dir, segments: make(map[uint64]*segment, numServers), numSrv: numServers}
	for i := uint64(0); i < numServers; i++ {
		path := filepath.Join(dir, fmt.Sprintf("famshm-server-%d", i))
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0o600)
		if err != nil {
			return nil, famerrors.Wrap(famerrors.SHM, err, "open shm segment")
		}
		f.segments[i] = &segment{fd: fd, path: path}
	}
	return f, nil
}

// Close unmaps and closes every segment. It does not unlink the backing
// files: a peer process may still be attached.
func (f *Fabric) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var firstErr error
	for _, s := range f.segments {
		s.mu.Lock()
		if s.mem != nil {
			if err := unix.Munmap(s.mem); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if err := unix.Close(s.fd); err != nil && firstErr == nil {
			firstErr = err
		}
		s.mu.Unlock()
	}
	return firstErr
}

func (f *Fabric) seg(id uint64) (*segment, error) {
	f.mu.RLock()
	s, ok := f.segments[id]
	f.mu.RUnlock()
	if !ok {
		return nil, famerrors.Newf(famerrors.MemservListEmpty, "no such memory server %d", id)
	}
	return s, nil
}

func (f *Fabric) Register(_ context.Context, serverID, regionID, inServerOffset, size uint64) (key, base uint64, err error) {
	s, err := f.seg(serverID)
	if err != nil {
		return 0, 0, err
	}
	s.mu.Lock()
	base = inServerOffset
	growErr := s.grow(base + size)
	s.mu.Unlock()
	if growErr != nil {
		return 0, 0, growErr
	}

	f.mu.Lock()
	f.keygen++
	seed := f.keygen
	f.mu.Unlock()
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], serverID)
	binary.LittleEndian.PutUint64(buf[8:16], regionID)
	binary.LittleEndian.PutUint64(buf[16:24], seed)
	key = binary.LittleEndian.Uint64(buf[:8]) ^ binary.LittleEndian.Uint64(buf[8:16]) ^ seed
	return key, base, nil
}

func (f *Fabric) Put(_ context.Context, serverID, _, base, offset uint64, data []byte) error {
	s, err := f.seg(serverID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	start := base + offset
	if start+uint64(len(data)) > uint64(len(s.mem)) {
		return famerrors.Newf(famerrors.OutOfRange, "shm put past segment %s", s.path)
	}
	copy(s.mem[start:], data)
	return nil
}

func (f *Fabric) Get(_ context.Context, serverID, _, base, offset uint64, buf []byte) error {
	s, err := f.seg(serverID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	start := base + offset
	if start+uint64(len(buf)) > uint64(len(s.mem)) {
		return famerrors.Newf(famerrors.OutOfRange, "shm get past segment %s", s.path)
	}
	copy(buf, s.mem[start:])
	return nil
}

func (f *Fabric) Atomic(_ context.Context, serverID, _, base, offset uint64, op transport.AtomicOp, width transport.Width, operand, compare uint64) (uint64, error) {
	s, err := f.seg(serverID)
	if err != nil {
		return 0, err
	}
	n := 8
	if width == transport.Width32 {
		n = 4
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	start := base + offset
	if start+uint64(n) > uint64(len(s.mem)) {
		return 0, famerrors.Newf(famerrors.OutOfRange, "shm atomic past segment %s", s.path)
	}
	var old uint64
	if n == 4 {
		old = uint64(binary.LittleEndian.Uint32(s.mem[start:]))
	} else {
		old = binary.LittleEndian.Uint64(s.mem[start:])
	}
	newVal := applyOp(op, old, operand, compare, n)
	if n == 4 {
		binary.LittleEndian.PutUint32(s.mem[start:], uint32(newVal))
	} else {
		binary.LittleEndian.PutUint64(s.mem[start:], newVal)
	}
	return old, nil
}

func applyOp(op transport.AtomicOp, old, operand, compare uint64, n int) uint64 {
	mask := uint64(1)<<(uint(n)*8) - 1
	if n == 8 {
		mask = ^uint64(0)
	}
	switch op {
	case transport.OpSet, transport.OpSwap:
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
	case transport.OpCompareSwap:
		if old == compare {
			return operand & mask
		}
		return old
	default:
		return old
	}
}

func (f *Fabric) NumServers(context.Context) (uint64, error) {
	return f.numSrv, nil
}

func (f *Fabric) AddrSize(context.Context, uint64) (uint32, error) {
	return uint32(len(f.dir)), nil
}

func (f *Fabric) Addr(_ context.Context, serverID uint64) ([]byte, error) {
	s, err := f.seg(serverID)
	if err != nil {
		return nil, err
	}
	return []byte(s.path), nil
}

var _ transport.Fabric = (*Fabric)(nil)
