package descriptor

import "fmt"

// KeyUninitialized is the sentinel fabric key value before a key is fetched
// (spec.md §3: "Keys are FAM_KEY_UNINITIALIZED until fetched").
const KeyUninitialized uint64 = ^uint64(0)

// DataItemDescriptor identifies a data item and caches its interleaved
// placement: extent i lives on MemoryServerIDs[i] at DataItemOffsets[i], with fabric
// Keys[i]/BaseAddrs[i] bound once Status reaches InitDone (spec.md §3/§4.1).
//
// Rehydration contract: any data-path or atomic operation must, on entry, if
// Status != InitDone, drive the descriptor forward via the Allocator Client's
// check_permission_get_info path before using Keys/BaseAddrs.
type DataItemDescriptor struct {
	Status Status

	// RegionID is the *encoded* region id: the memory-server id hosting
	// extent 0 is embedded in its high bits (cos.EncodeItemRegionID). Use
	// cos.DecodeRegionID before any CIS call.
	RegionID uint64
	Offset   uint64 // offset of extent 0 within the region
	Name     string
	Size     uint64

	Perm uint32
	UID  uint32
	GID  uint32

	PermissionLevel PermissionLevel
	InterleaveSize  uint64
	UsedMemsrvCnt   uint64

	MemoryServerIDs []uint64
	DataItemOffsets []uint64 // per-extent offset within its memory server

	// Keys/BaseAddrs are co-sized and co-indexed with MemoryServerIDs once
	// Status == InitDone (spec.md §3 invariant 3).
	Keys      []uint64
	BaseAddrs []uint64
}

func (d *DataItemDescriptor) String() string {
	return fmt.Sprintf("dataitem[%s sz=%d status=%s]", d.Name, d.Size, d.Status)
}

func (d *DataItemDescriptor) GlobalID() (regionID, offset uint64) {
	return d.RegionID, d.Offset
}

func (d *DataItemDescriptor) GetSize() uint64           { return d.Size }
func (d *DataItemDescriptor) Owner() (uid, gid uint32) { return d.UID, d.GID }

// Ready reports whether the descriptor is bound and usable on the data path.
func (d *DataItemDescriptor) Ready() bool { return d.Status == InitDone }

// ExtentFor decodes a byte offset within the item into the extent that owns
// it and the offset within that extent, matching the allocator's
// offset -> (extent_index, start_in_extent) decode (spec.md §4.4).
func (d *DataItemDescriptor) ExtentFor(itemOffset uint64) (extentIndex int, startInExtent uint64) {
	if d.InterleaveSize == 0 || d.UsedMemsrvCnt == 0 {
		return 0, itemOffset
	}
	stripe := itemOffset / d.InterleaveSize
	extentIndex = int(stripe % d.UsedMemsrvCnt)
	startInExtent = (stripe/d.UsedMemsrvCnt)*d.InterleaveSize + itemOffset%d.InterleaveSize
	return
}

// Bind sets Keys/BaseAddrs and transitions Status to InitDone. Panics (via
// the caller's debug.Assert, not here) is not appropriate for a library
// boundary, so Bind simply trusts co-sizing; callers assemble the slices.
func (d *DataItemDescriptor) Bind(keys, bases []uint64) {
	d.Keys = keys
	d.BaseAddrs = bases
	d.Status = InitDone
}
