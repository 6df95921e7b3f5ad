// Package allocator is the Allocator Client (spec.md §4.4): the layer that
// turns cis.Client calls into bound descriptor.RegionDescriptor and
// descriptor.DataItemDescriptor values, and drives the CRM's open/close
// refcounting around every live resource.
//
// Grounded on original_source/src/allocator/fam_allocator_client.cpp: that
// file is the same funnel from a handful of CIS RPCs to the allocate/
// deallocate/copy/backup/restore verbs this package exposes.
package allocator

import (
	"context"

	"github.com/openfam/fam-go/cis"
	"github.com/openfam/fam-go/cmn/cos"
	famerrors "github.com/openfam/fam-go/cmn/errors"
	"github.com/openfam/fam-go/cmn/nlog"
	"github.com/openfam/fam-go/crm"
	"github.com/openfam/fam-go/descriptor"
)

// Client is the Allocator Client: one per Context (spec.md §4.7), sharing
// its parent Runtime's cis.Client, resource table, and garbage queue.
type Client struct {
	cis     cis.Client
	table   *crm.Table
	garbage *crm.Garbage
}

func New(c cis.Client, table *crm.Table, garbage *crm.Garbage) *Client {
	return &Client{cis: c, table: table, garbage: garbage}
}

func (c *Client) CreateRegion(ctx context.Context, name string, size uint64, perm uint32, attrs cis.RegionAttrs, uid, gid uint32) (*descriptor.RegionDescriptor, error) {
	args := getRegionArgs()
	defer putRegionArgs(args)
	args.attrs = attrs

	info, err := c.cis.CreateRegion(ctx, name, size, perm, args.attrs, uid, gid)
	if err != nil {
		return nil, err
	}
	entry := c.table.FindOrCreate(info.RegionID)
	if _, _, err := crm.Open(entry); err != nil {
		return nil, err
	}
	return regionDescriptorFromInfo(info), nil
}

func (c *Client) DestroyRegion(ctx context.Context, rd *descriptor.RegionDescriptor, uid, gid uint32) error {
	if err := c.cis.DestroyRegion(ctx, rd.RegionID, 0, uid, gid); err != nil {
		return err
	}
	rd.Status = descriptor.RegionDestroyed
	return c.table.Evict(rd.RegionID)
}

func (c *Client) ResizeRegion(ctx context.Context, rd *descriptor.RegionDescriptor, size uint64, uid, gid uint32) error {
	if err := c.cis.ResizeRegion(ctx, rd.RegionID, size, 0, uid, gid); err != nil {
		return err
	}
	rd.Size = size
	return nil
}

func (c *Client) LookupRegion(ctx context.Context, name string) (*descriptor.RegionDescriptor, error) {
	info, err := c.cis.LookupRegion(ctx, name)
	if err != nil {
		return nil, err
	}
	return regionDescriptorFromInfo(info), nil
}

// OpenRegion drives a RegionDescriptor through the CRM, fetching its region
// memory map on first open and reusing the cached one on subsequent opens by
// the same process (spec.md §3 "Region memory map" monotonic-cache note).
func (c *Client) OpenRegion(ctx context.Context, rd *descriptor.RegionDescriptor, uid, gid uint32) (cis.RegionMemoryMap, error) {
	entry := c.table.FindOrCreate(rd.RegionID)
	_, first, err := crm.Open(entry)
	if err != nil {
		return nil, err
	}
	if !first {
		if p := entry.Payload.Load(); p != nil {
			if mmap, ok := (*p).(cis.RegionMemoryMap); ok {
				return mmap, nil
			}
		}
	}
	_, mmap, err := c.cis.OpenRegionWithRegistration(ctx, rd.RegionID, uid, gid)
	if err != nil {
		return nil, err
	}
	var v any = mmap
	entry.Payload.Store(&v)
	return mmap, nil
}

func (c *Client) CloseRegion(ctx context.Context, rd *descriptor.RegionDescriptor) error {
	entry, ok := c.table.Find(rd.RegionID)
	if !ok {
		return famerrors.Newf(famerrors.Invalid, "region %d not open", rd.RegionID)
	}
	_, last, err := crm.Close(entry)
	if err != nil {
		return err
	}
	if last {
		return c.cis.CloseRegion(ctx, rd.RegionID, nil)
	}
	return nil
}

// Allocate creates a data item inside rd. Whether the returned descriptor is
// immediately usable depends on rd's permission level (spec.md §4.4):
//
//   - DATAITEM-level permission: CIS.Allocate
//     already returns fresh keys/bases; bind them directly if the server
//     reports ItemRegistrationStatus, otherwise leave the descriptor pending
//     a later rehydrate.
//   - REGION-level permission: the keys CIS.Allocate reports are not trusted
//     directly — they are resolved out of the region's memory map the same
//     way Rehydrate does (rehydrateFromRegionMap), which does not touch the
//     region's CRM open refcount on its own; it is a pure cache-and-refresh
//     lookup (cis.GetRegionMemory), not the open_region_with_registration
//     call that would need a matching close. Any failure here leaves the
//     descriptor pending rather than failing the allocate outright.
func (c *Client) Allocate(ctx context.Context, rd *descriptor.RegionDescriptor, name string, size uint64, perm, uid, gid uint32) (*descriptor.DataItemDescriptor, error) {
	info, err := c.cis.Allocate(ctx, name, size, perm, rd.RegionID, 0, uid, gid)
	if err != nil {
		return nil, err
	}
	entry := c.table.FindOrCreate(itemKey(info.RegionID, info.Offset))
	if _, _, err := crm.Open(entry); err != nil {
		return nil, err
	}
	item := dataItemSkeleton(info)

	if info.PermissionLevel == descriptor.PermissionRegion {
		regionID := cos.DecodeRegionID(item.RegionID)
		_ = c.rehydrateFromRegionMap(ctx, item, regionID, uid, gid)
		return item, nil
	}

	if info.ItemRegistrationStatus {
		item.Bind(info.Keys, info.BaseAddrs)
	}
	return item, nil
}

func (c *Client) Deallocate(ctx context.Context, item *descriptor.DataItemDescriptor, uid, gid uint32) error {
	regionID := cos.DecodeRegionID(item.RegionID)
	if err := c.cis.Deallocate(ctx, regionID, item.Offset, 0, uid, gid); err != nil {
		return err
	}
	item.Status = descriptor.Invalid
	return c.table.Evict(itemKey(regionID, item.Offset))
}

// Lookup resolves an item by name without binding it: callers get back an
// INIT_DONE_BUT_KEY_NOT_VALID descriptor (size/perm/server-list known, keys
// not yet resolved) that Rehydrate drives forward on first data-path use
// (spec.md §4.4).
func (c *Client) Lookup(ctx context.Context, itemName, regionName string) (*descriptor.DataItemDescriptor, error) {
	info, err := c.cis.Lookup(ctx, itemName, regionName)
	if err != nil {
		return nil, err
	}
	return dataItemSkeleton(info), nil
}

// Rehydrate drives item's Status forward to InitDone, fetching fresh
// keys/bases from the CIS if they are missing or stale. This is the only
// place the data path is allowed to call into the CIS metadata surface mid
// operation (spec.md §4.1 rehydration contract).
//
// Under DATAITEM-level permission, every rehydrate is a per-item
// check_permission_get_info RPC. Under REGION-level permission, the region's
// memory map is fetched once (on its first open) and cached on the CRM
// entry; rehydrate resolves the item's extents out of that cache instead of
// round-tripping to the CIS, refreshing the cache once on a decode miss
// (spec.md §4.4's "decode offset -> (extent_index, start_in_extent) ->
// refresh get_region_memory on miss -> retry once"), and only falls back to
// the per-item RPC if the cache is unusable even after a refresh.
func (c *Client) Rehydrate(ctx context.Context, item *descriptor.DataItemDescriptor, uid, gid uint32) error {
	if item.Ready() {
		return nil
	}
	if !item.Status.CanAdvanceTo(descriptor.InitDone) {
		return famerrors.Newf(famerrors.InvalidOp, "descriptor for %q cannot advance from %s", item.Name, item.Status)
	}
	regionID := cos.DecodeRegionID(item.RegionID)

	if item.PermissionLevel == descriptor.PermissionRegion && len(item.MemoryServerIDs) > 0 {
		if err := c.rehydrateFromRegionMap(ctx, item, regionID, uid, gid); err == nil {
			nlog.Infof("[allocator] rehydrated item %q from cached region memory map (region=%d offset=%d)", item.Name, regionID, item.Offset)
			return nil
		}
		// Cache unusable even after a refresh attempt; fall back to the
		// per-item RPC below rather than surfacing a spurious error — the
		// cached map is a local-resolution optimization, not the source of
		// truth.
	}

	info, err := c.cis.CheckPermissionGetItemInfo(ctx, regionID, item.Offset, uid, gid)
	if err != nil {
		return err
	}
	item.MemoryServerIDs = info.MemoryServerIDs
	item.DataItemOffsets = info.DataItemOffsets
	item.UsedMemsrvCnt = uint64(len(info.MemoryServerIDs))
	item.Bind(info.Keys, info.BaseAddrs)
	nlog.Infof("[allocator] rehydrated item %q (region=%d offset=%d)", item.Name, regionID, item.Offset)
	return nil
}

// rehydrateFromRegionMap resolves item's per-extent keys/bases out of the
// region's cached memory map, refreshing the cache once if item's extents
// aren't present in it yet (the region grew since the map was last fetched).
func (c *Client) rehydrateFromRegionMap(ctx context.Context, item *descriptor.DataItemDescriptor, regionID uint64, uid, gid uint32) error {
	entry := c.table.FindOrCreate(regionID)
	mmap, err := c.cachedRegionMemoryMap(entry)
	if err != nil {
		if mmap, err = c.refreshRegionMemoryMap(ctx, entry, regionID, uid, gid); err != nil {
			return err
		}
	}
	keys, bases, ok := resolveItemExtents(mmap, item)
	if !ok {
		if mmap, err = c.refreshRegionMemoryMap(ctx, entry, regionID, uid, gid); err != nil {
			return err
		}
		if keys, bases, ok = resolveItemExtents(mmap, item); !ok {
			return famerrors.Newf(famerrors.NotFound, "item %q extents not present in region %d's memory map after refresh", item.Name, regionID)
		}
	}
	item.Bind(keys, bases)
	return nil
}

func (c *Client) cachedRegionMemoryMap(entry *crm.Entry) (cis.RegionMemoryMap, error) {
	p := entry.Payload.Load()
	if p == nil {
		return nil, famerrors.New(famerrors.NotFound, "no cached region memory map")
	}
	mmap, ok := (*p).(cis.RegionMemoryMap)
	if !ok {
		return nil, famerrors.New(famerrors.NotFound, "cached region payload is not a memory map")
	}
	return mmap, nil
}

func (c *Client) refreshRegionMemoryMap(ctx context.Context, entry *crm.Entry, regionID uint64, uid, gid uint32) (cis.RegionMemoryMap, error) {
	mmap, err := c.cis.GetRegionMemory(ctx, regionID, uid, gid)
	if err != nil {
		return nil, err
	}
	var v any = mmap
	entry.Payload.Store(&v)
	return mmap, nil
}

// resolveItemExtents decodes item's byte offset within each of its member
// servers' extent lists into that extent's key/base, the same
// offset -> (extent_index, start_in_extent) decode spec.md §4.4 describes,
// here applied against the region-wide cache instead of a per-item RPC
// response.
func resolveItemExtents(mmap cis.RegionMemoryMap, item *descriptor.DataItemDescriptor) (keys, bases []uint64, ok bool) {
	keys = make([]uint64, len(item.MemoryServerIDs))
	bases = make([]uint64, len(item.MemoryServerIDs))
	for i, serverID := range item.MemoryServerIDs {
		var want uint64
		if i < len(item.DataItemOffsets) {
			want = item.DataItemOffsets[i]
		}
		found := false
		for _, e := range mmap[serverID] {
			if e.Offset == want {
				keys[i], bases[i] = e.Key, e.Base
				found = true
				break
			}
		}
		if !found {
			return nil, nil, false
		}
	}
	return keys, bases, true
}

func (c *Client) CheckPermissionGetRegionInfo(ctx context.Context, regionID uint64, uid, gid uint32) (*descriptor.RegionDescriptor, error) {
	info, err := c.cis.CheckPermissionGetRegionInfo(ctx, regionID, uid, gid)
	if err != nil {
		return nil, err
	}
	return regionDescriptorFromInfo(info), nil
}

// --- data movement: copy/backup/restore/delete-backup -------------------

func (c *Client) Copy(ctx context.Context, src *descriptor.DataItemDescriptor, srcStart uint64, dst *descriptor.DataItemDescriptor, dstStart, bytes uint64, uid, gid uint32) (cis.WaitToken, error) {
	args := getCopyArgs()
	defer putCopyArgs(args)
	args.SrcRegionID = cos.DecodeRegionID(src.RegionID)
	args.SrcOffsets = []uint64{src.Offset}
	args.SrcUsedCnt = src.UsedMemsrvCnt
	args.SrcCopyStart = srcStart
	args.DstRegionID = cos.DecodeRegionID(dst.RegionID)
	args.DstOffset = dst.Offset
	args.DstCopyStart = dstStart
	args.Bytes = bytes
	args.UID, args.GID = uid, gid
	return c.cis.Copy(ctx, *args)
}

func (c *Client) WaitForCopy(ctx context.Context, tok cis.WaitToken) error { return c.cis.WaitForCopy(ctx, tok) }

func (c *Client) Backup(ctx context.Context, item *descriptor.DataItemDescriptor, backupName string, uid, gid uint32) (cis.WaitToken, error) {
	return c.cis.Backup(ctx, cis.BackupArgs{
		RegionID:   cos.DecodeRegionID(item.RegionID),
		Offset:     item.Offset,
		BackupName: backupName,
		UID:        uid,
		GID:        gid,
	})
}

func (c *Client) WaitForBackup(ctx context.Context, tok cis.WaitToken) error { return c.cis.WaitForBackup(ctx, tok) }

func (c *Client) Restore(ctx context.Context, backupName string, item *descriptor.DataItemDescriptor, uid, gid uint32) (cis.WaitToken, error) {
	return c.cis.Restore(ctx, cis.RestoreArgs{
		BackupName: backupName,
		RegionID:   cos.DecodeRegionID(item.RegionID),
		Offset:     item.Offset,
		UID:        uid,
		GID:        gid,
	})
}

func (c *Client) WaitForRestore(ctx context.Context, tok cis.WaitToken) error { return c.cis.WaitForRestore(ctx, tok) }

func (c *Client) DeleteBackup(ctx context.Context, name string, uid, gid uint32) (cis.WaitToken, error) {
	return c.cis.DeleteBackup(ctx, name, uid, gid)
}

func (c *Client) WaitForDeleteBackup(ctx context.Context, tok cis.WaitToken) error {
	return c.cis.WaitForDeleteBackup(ctx, tok)
}

// --- helpers --------------------------------------------------------

func itemKey(regionID, offset uint64) uint64 {
	// Items are keyed in the resource table by their encoded region id XORed
	// with their offset: distinct from the plain region key so a region and
	// one of its items never collide in the same table.
	return cos.EncodeItemRegionID(regionID, 1) ^ offset
}

func firstOr(ids []uint64) uint64 {
	if len(ids) == 0 {
		return 0
	}
	return ids[0]
}

func regionDescriptorFromInfo(info cis.RegionInfo) *descriptor.RegionDescriptor {
	return &descriptor.RegionDescriptor{
		Status:           descriptor.RegionLive,
		RegionID:         info.RegionID,
		Name:             info.Name,
		Size:             info.Size,
		Perm:             info.Perm,
		UID:              info.UID,
		GID:              info.GID,
		Redundancy:       info.Redundancy,
		MemType:          info.MemoryType,
		Interleave:       info.Interleave,
		PermissionLevel:  info.PermissionLevel,
	}
}

// dataItemSkeleton builds a descriptor from a fresh CIS.Allocate/Lookup
// response with its size/permissions/server list populated but its keys not
// yet bound (status InitDoneKeyInvalid) — the caller binds them, or not,
// depending on the region's permission level (spec.md §4.1/§4.4).
func dataItemSkeleton(info cis.ItemInfo) *descriptor.DataItemDescriptor {
	return &descriptor.DataItemDescriptor{
		Status:          descriptor.InitDoneKeyInvalid,
		RegionID:        cos.EncodeItemRegionID(info.RegionID, firstOr(info.MemoryServerIDs)),
		Offset:          info.Offset,
		Name:            info.Name,
		Size:            info.Size,
		Perm:            info.Perm,
		UID:             info.UID,
		GID:             info.GID,
		PermissionLevel: info.PermissionLevel,
		InterleaveSize:  info.InterleaveSize,
		UsedMemsrvCnt:   uint64(len(info.MemoryServerIDs)),
		MemoryServerIDs: info.MemoryServerIDs,
		DataItemOffsets: info.DataItemOffsets,
	}
}
