// Package cis defines the Client Information Service contract (spec.md §4.2):
// the control-plane RPC-ish surface the rest of the runtime speaks to the
// central allocator/locator through, uniform over two backends (cis/direct,
// cis/rpcstub) so the rest of the system is oblivious to which is in use
// (spec.md §9 "Dynamic dispatch over two CIS backends").
package cis

import "github.com/openfam/fam-go/descriptor"

// Extent is one entry of a region or item's per-server placement: a fabric
// key plus a base address for address-based transport verbs.
type Extent struct {
	ServerID uint64 `json:"server_id"`
	Offset   uint64 `json:"offset"`
	Key      uint64 `json:"key"`
	Base     uint64 `json:"base"`
}

// RegionMemoryMap is the per-region mapping memory_server_id -> extents,
// treated as a monotonically growing cache (spec.md §3 "Region memory map").
type RegionMemoryMap map[uint64][]Extent

type RegionInfo struct {
	RegionID        uint64
	Offset          uint64
	Redundancy      descriptor.Redundancy
	MemoryType      descriptor.MemoryType
	Interleave      descriptor.Interleave
	PermissionLevel descriptor.PermissionLevel
	Name            string
	Size            uint64
	Perm            uint32
	UID, GID        uint32
}

type ItemInfo struct {
	Name            string
	RegionID        uint64
	Offset          uint64
	Size            uint64
	Perm            uint32
	UID, GID        uint32
	PermissionLevel descriptor.PermissionLevel
	InterleaveSize  uint64

	MemoryServerIDs        []uint64
	DataItemOffsets        []uint64
	Keys                   []uint64
	BaseAddrs              []uint64
	ItemRegistrationStatus bool
}

type RegionAttrs struct {
	Redundancy descriptor.Redundancy
	MemoryType descriptor.MemoryType
	Interleave descriptor.Interleave
	PermissionLevel descriptor.PermissionLevel
	AllocationPolicy string
}

type StatInfo struct {
	Name     string
	Size     uint64
	Perm     uint32
	UID, GID uint32
	IsRegion bool
}

type BackupInfo struct {
	Name       string
	Size       uint64
	UID, GID   uint32
	Mode       uint32
	ItemName   string
	RegionName string
}

// WaitToken correlates an async CIS request (copy, backup, restore,
// delete-backup) with its eventual wait_for_* call.
type WaitToken uint64
