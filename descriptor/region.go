package descriptor

import "fmt"

type Redundancy int

const (
	RedundancyNone Redundancy = iota
	RedundancyRAID1
	RedundancyRAID5
)

type MemoryType int

const (
	MemoryVolatile MemoryType = iota
	MemoryPersistent
)

type Interleave int

const (
	InterleaveDisable Interleave = iota
	InterleaveEnable
)

type PermissionLevel int

const (
	PermissionRegion PermissionLevel = iota
	PermissionDataItem
)

// RegionDescriptor identifies a region and caches its allocator-reported
// attributes (spec.md §3 "Region"). Mutation happens only through the
// Allocator Client.
type RegionDescriptor struct {
	Status RegionStatus

	RegionID uint64
	Name     string
	Size     uint64

	Perm uint32
	UID  uint32
	GID  uint32

	Redundancy      Redundancy
	MemType         MemoryType
	Interleave      Interleave
	PermissionLevel PermissionLevel
	AllocationPolicy string
}

// RegionStatus mirrors the region lifecycle (spec.md §3: created -> live ->
// destroyed). It is distinct from the data-item Status enum above: a region
// descriptor never transitions through key-rehydration states.
type RegionStatus int

const (
	RegionLive RegionStatus = iota
	RegionDestroyed
)

func (d *RegionDescriptor) String() string {
	return fmt.Sprintf("region[%d:%s sz=%d]", d.RegionID, d.Name, d.Size)
}

func (d *RegionDescriptor) ID() uint64 { return d.RegionID }
func (d *RegionDescriptor) GetSize() uint64 { return d.Size }
func (d *RegionDescriptor) Owner() (uid, gid uint32) { return d.UID, d.GID }
