// Package direct is the in-process Client Information Service backend
// (spec.md §4.2, cis_interface_type = "direct"): it plays the role of the
// CIS server without a network hop, backing every region/item's metadata
// with a tidwall/buntdb in-memory store and routing actual bytes through a
// transport.Fabric (normally transport/loopback in tests, transport/shm for
// openfam_model = shared_memory).
package direct

import (
	"context"
	"fmt"
	"sync"

	"github.com/seiflotfy/cuckoofilter"
	"github.com/tidwall/buntdb"

	"github.com/openfam/fam-go/cis"
	"github.com/openfam/fam-go/cmn/cos"
	famerrors "github.com/openfam/fam-go/cmn/errors"
	"github.com/openfam/fam-go/cmn/nlog"
	"github.com/openfam/fam-go/descriptor"
	"github.com/openfam/fam-go/transport"
)

const (
	regionByIDPrefix   = "region:id:"
	regionByNamePrefix = "region:name:"
	itemByIDPrefix     = "item:id:"
	itemByNamePrefix   = "item:name:"
	backupPrefix       = "backup:"
)

type regionRecord struct {
	Info   cis.RegionInfo
	Status descriptor.RegionStatus
}

type itemRecord struct {
	Info    cis.ItemInfo
	Extents []cis.Extent
}

// Backend is an in-process cis.Client. All metadata is kept in an in-memory
// buntdb database; a cuckoo filter short-circuits misses on the hot lookup
// path (LookupRegion, Lookup) before paying for a buntdb Get.
type Backend struct {
	fabric transport.Fabric
	db     *buntdb.DB

	mu         sync.Mutex // guards filter + offset bump allocator + token map
	filter     *cuckoo.Filter
	nextOffset map[uint64]uint64 // regionID -> next free byte offset
	waits      map[cis.WaitToken]error
	tokenSeq   uint64
}

// New opens an in-process CIS backend fronting fab.
func New(fab transport.Fabric) (*Backend, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, famerrors.Wrap(famerrors.Unknown, err, "open cis direct store")
	}
	return &Backend{
		fabric:     fab,
		db:         db,
		filter:     cuckoo.NewFilter(1 << 16),
		nextOffset: make(map[uint64]uint64),
		waits:      make(map[cis.WaitToken]error),
	}, nil
}

func (b *Backend) GetNumMemoryServers(ctx context.Context) (uint64, error) {
	return b.fabric.NumServers(ctx)
}

// --- region lifecycle -------------------------------------------------

func (b *Backend) CreateRegion(ctx context.Context, name string, bytes uint64, perm uint32, attrs cis.RegionAttrs, uid, gid uint32) (cis.RegionInfo, error) {
	if existing, err := b.LookupRegion(ctx, name); err == nil {
		return existing, famerrors.Newf(famerrors.AlreadyExist, "region %q already exists", name)
	}
	// Mask at mint time so this id already equals what DecodeRegionID(...)
	// recovers from an item descriptor's encoded region id (cos.EncodeItemRegionID
	// shifts a server id into the high bits) — otherwise every item-level CIS
	// lookup that round-trips through Encode/Decode would miss.
	regionID := cos.DecodeRegionID(cos.NameHash(name))
	info := cis.RegionInfo{
		RegionID:        regionID,
		Redundancy:      attrs.Redundancy,
		MemoryType:      attrs.MemoryType,
		Interleave:      attrs.Interleave,
		PermissionLevel: attrs.PermissionLevel,
		Name:            name,
		Size:            bytes,
		Perm:            perm,
		UID:             uid,
		GID:             gid,
	}
	rec := regionRecord{Info: info, Status: descriptor.RegionLive}
	raw := cos.MustMarshal(rec)

	err := b.db.Update(func(tx *buntdb.Tx) error {
		tx.Set(fmt.Sprintf("%s%d", regionByIDPrefix, regionID), string(raw), nil)
		tx.Set(fmt.Sprintf("%s%s", regionByNamePrefix, name), fmt.Sprintf("%d", regionID), nil)
		return nil
	})
	if err != nil {
		return cis.RegionInfo{}, famerrors.Wrap(famerrors.Unknown, err, "persist region")
	}
	b.mu.Lock()
	b.filter.InsertUnique([]byte(name))
	b.nextOffset[regionID] = 0
	b.mu.Unlock()
	nlog.Infof("[cis/direct] created region %q id=%d size=%d", name, regionID, bytes)
	return info, nil
}

func (b *Backend) DestroyRegion(ctx context.Context, regionID, _ uint64, uid, gid uint32) error {
	rec, err := b.getRegionRecord(regionID)
	if err != nil {
		return err
	}
	if err := checkOwner(rec.Info.UID, rec.Info.GID, uid, gid); err != nil {
		return err
	}
	return b.db.Update(func(tx *buntdb.Tx) error {
		tx.Delete(fmt.Sprintf("%s%d", regionByIDPrefix, regionID))
		tx.Delete(fmt.Sprintf("%s%s", regionByNamePrefix, rec.Info.Name))
		return nil
	})
}

func (b *Backend) ResizeRegion(ctx context.Context, regionID, bytes, _ uint64, uid, gid uint32) error {
	rec, err := b.getRegionRecord(regionID)
	if err != nil {
		return err
	}
	if err := checkOwner(rec.Info.UID, rec.Info.GID, uid, gid); err != nil {
		return err
	}
	rec.Info.Size = bytes
	return b.putRegionRecord(regionID, rec)
}

func (b *Backend) ChangeRegionPermission(ctx context.Context, regionID uint64, perm uint32, uid, gid uint32) error {
	rec, err := b.getRegionRecord(regionID)
	if err != nil {
		return err
	}
	if err := checkOwner(rec.Info.UID, rec.Info.GID, uid, gid); err != nil {
		return err
	}
	rec.Info.Perm = perm
	return b.putRegionRecord(regionID, rec)
}

func (b *Backend) LookupRegion(ctx context.Context, name string) (cis.RegionInfo, error) {
	b.mu.Lock()
	maybe := b.filter.Lookup([]byte(name))
	b.mu.Unlock()
	if !maybe {
		return cis.RegionInfo{}, famerrors.Newf(famerrors.NotFound, "region %q not found", name)
	}
	var idStr string
	err := b.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(fmt.Sprintf("%s%s", regionByNamePrefix, name))
		if err != nil {
			return err
		}
		idStr = v
		return nil
	})
	if err != nil {
		return cis.RegionInfo{}, famerrors.Newf(famerrors.NotFound, "region %q not found", name)
	}
	var regionID uint64
	fmt.Sscanf(idStr, "%d", &regionID)
	rec, err := b.getRegionRecord(regionID)
	if err != nil {
		return cis.RegionInfo{}, err
	}
	return rec.Info, nil
}

func (b *Backend) CheckPermissionGetRegionInfo(ctx context.Context, regionID uint64, uid, gid uint32) (cis.RegionInfo, error) {
	rec, err := b.getRegionRecord(regionID)
	if err != nil {
		return cis.RegionInfo{}, err
	}
	if err := checkRead(rec.Info.Perm, rec.Info.UID, rec.Info.GID, uid, gid); err != nil {
		return cis.RegionInfo{}, err
	}
	return rec.Info, nil
}

func (b *Backend) GetRegionMemory(ctx context.Context, regionID uint64, uid, gid uint32) (cis.RegionMemoryMap, error) {
	if _, err := b.CheckPermissionGetRegionInfo(ctx, regionID, uid, gid); err != nil {
		return nil, err
	}
	mmap := cis.RegionMemoryMap{}
	prefix := fmt.Sprintf("%s%d:", itemByIDPrefix, regionID)
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(key, value string) bool {
			var rec itemRecord
			if err := cos.Unmarshal([]byte(value), &rec); err != nil {
				return true
			}
			for _, ext := range rec.Extents {
				mmap[ext.ServerID] = append(mmap[ext.ServerID], ext)
			}
			return true
		})
	})
	if err != nil {
		return nil, famerrors.Wrap(famerrors.Unknown, err, "scan region memory map")
	}
	return mmap, nil
}

func (b *Backend) OpenRegionWithRegistration(ctx context.Context, regionID uint64, uid, gid uint32) ([]uint64, cis.RegionMemoryMap, error) {
	mmap, err := b.GetRegionMemory(ctx, regionID, uid, gid)
	if err != nil {
		return nil, nil, err
	}
	servers := make([]uint64, 0, len(mmap))
	for sid := range mmap {
		servers = append(servers, sid)
	}
	return servers, mmap, nil
}

func (b *Backend) OpenRegionWithoutRegistration(ctx context.Context, regionID uint64) ([]uint64, error) {
	mmap, err := b.GetRegionMemory(ctx, regionID, 0, 0)
	if err != nil {
		return nil, err
	}
	servers := make([]uint64, 0, len(mmap))
	for sid := range mmap {
		servers = append(servers, sid)
	}
	return servers, nil
}

func (b *Backend) CloseRegion(ctx context.Context, _ uint64, _ []uint64) error {
	return nil
}

// --- data items ---------------------------------------------------------

func (b *Backend) Allocate(ctx context.Context, name string, bytes uint64, perm uint32, regionID, preferredServer uint64, uid, gid uint32) (cis.ItemInfo, error) {
	rrec, err := b.getRegionRecord(regionID)
	if err != nil {
		return cis.ItemInfo{}, err
	}
	if err := checkOwner(rrec.Info.UID, rrec.Info.GID, uid, gid); err != nil {
		return cis.ItemInfo{}, err
	}
	numSrv, err := b.fabric.NumServers(ctx)
	if err != nil {
		return cis.ItemInfo{}, err
	}
	if numSrv == 0 {
		return cis.ItemInfo{}, famerrors.New(famerrors.MemservListEmpty, "no memory servers configured")
	}
	interleaveSize := rrec.Info.Size
	if rrec.Info.Interleave == descriptor.InterleaveEnable && interleaveSize > numSrv {
		interleaveSize = bytes / numSrv
		if interleaveSize == 0 {
			interleaveSize = bytes
		}
	} else {
		interleaveSize = bytes
	}
	usedCnt := uint64(1)
	if rrec.Info.Interleave == descriptor.InterleaveEnable {
		usedCnt = numSrv
		if usedCnt == 0 {
			usedCnt = 1
		}
	}

	b.mu.Lock()
	offset := b.nextOffset[regionID]
	b.nextOffset[regionID] = offset + bytes
	b.mu.Unlock()

	extents := make([]cis.Extent, 0, usedCnt)
	memIDs := make([]uint64, 0, usedCnt)
	itemOffsets := make([]uint64, 0, usedCnt)
	keys := make([]uint64, 0, usedCnt)
	bases := make([]uint64, 0, usedCnt)

	perExtent := bytes
	if usedCnt > 1 {
		perExtent = (bytes + usedCnt - 1) / usedCnt
	}
	for i := uint64(0); i < usedCnt; i++ {
		serverID := (preferredServer + i) % numSrv
		key, base, err := b.fabric.Register(ctx, serverID, regionID, offset+i*perExtent, perExtent)
		if err != nil {
			return cis.ItemInfo{}, famerrors.Wrap(famerrors.Resource, err, "register extent")
		}
		extents = append(extents, cis.Extent{ServerID: serverID, Offset: offset + i*perExtent, Key: key, Base: base})
		memIDs = append(memIDs, serverID)
		itemOffsets = append(itemOffsets, offset+i*perExtent)
		keys = append(keys, key)
		bases = append(bases, base)
	}

	info := cis.ItemInfo{
		Name:                   name,
		RegionID:               regionID,
		Offset:                 offset,
		Size:                   bytes,
		Perm:                   perm,
		UID:                    uid,
		GID:                    gid,
		PermissionLevel:        rrec.Info.PermissionLevel,
		InterleaveSize:         interleaveSize,
		MemoryServerIDs:        memIDs,
		DataItemOffsets:        itemOffsets,
		Keys:                   keys,
		BaseAddrs:              bases,
		ItemRegistrationStatus: true,
	}
	rec := itemRecord{Info: info, Extents: extents}
	raw := cos.MustMarshal(rec)
	idKey := fmt.Sprintf("%s%d:%d", itemByIDPrefix, regionID, offset)
	nameKey := fmt.Sprintf("%s%s:%s", itemByNamePrefix, rrec.Info.Name, name)
	err = b.db.Update(func(tx *buntdb.Tx) error {
		tx.Set(idKey, string(raw), nil)
		tx.Set(nameKey, fmt.Sprintf("%d:%d", regionID, offset), nil)
		return nil
	})
	if err != nil {
		return cis.ItemInfo{}, famerrors.Wrap(famerrors.Unknown, err, "persist item")
	}
	b.mu.Lock()
	b.filter.InsertUnique([]byte(rrec.Info.Name + ":" + name))
	b.mu.Unlock()
	return info, nil
}

func (b *Backend) Deallocate(ctx context.Context, regionID, offset, _ uint64, uid, gid uint32) error {
	rec, err := b.getItemRecord(regionID, offset)
	if err != nil {
		return err
	}
	if err := checkOwner(rec.Info.UID, rec.Info.GID, uid, gid); err != nil {
		return err
	}
	rrec, err := b.getRegionRecord(regionID)
	if err != nil {
		return err
	}
	nameKey := fmt.Sprintf("%s%s:%s", itemByNamePrefix, rrec.Info.Name, rec.Info.Name)
	return b.db.Update(func(tx *buntdb.Tx) error {
		tx.Delete(fmt.Sprintf("%s%d:%d", itemByIDPrefix, regionID, offset))
		tx.Delete(nameKey)
		return nil
	})
}

func (b *Backend) ChangeDataItemPermission(ctx context.Context, regionID, offset uint64, perm uint32, uid, gid uint32) error {
	rec, err := b.getItemRecord(regionID, offset)
	if err != nil {
		return err
	}
	if err := checkOwner(rec.Info.UID, rec.Info.GID, uid, gid); err != nil {
		return err
	}
	rec.Info.Perm = perm
	return b.putItemRecord(regionID, offset, rec)
}

func (b *Backend) Lookup(ctx context.Context, itemName, regionName string) (cis.ItemInfo, error) {
	b.mu.Lock()
	maybe := b.filter.Lookup([]byte(regionName + ":" + itemName))
	b.mu.Unlock()
	if !maybe {
		return cis.ItemInfo{}, famerrors.Newf(famerrors.NotFound, "item %q not found in region %q", itemName, regionName)
	}
	var ref string
	err := b.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(fmt.Sprintf("%s%s:%s", itemByNamePrefix, regionName, itemName))
		if err != nil {
			return err
		}
		ref = v
		return nil
	})
	if err != nil {
		return cis.ItemInfo{}, famerrors.Newf(famerrors.NotFound, "item %q not found in region %q", itemName, regionName)
	}
	var regionID, offset uint64
	fmt.Sscanf(ref, "%d:%d", &regionID, &offset)
	rec, err := b.getItemRecord(regionID, offset)
	if err != nil {
		return cis.ItemInfo{}, err
	}
	return rec.Info, nil
}

func (b *Backend) CheckPermissionGetItemInfo(ctx context.Context, regionID, offset uint64, uid, gid uint32) (cis.ItemInfo, error) {
	rec, err := b.getItemRecord(regionID, offset)
	if err != nil {
		return cis.ItemInfo{}, err
	}
	if err := checkRead(rec.Info.Perm, rec.Info.UID, rec.Info.GID, uid, gid); err != nil {
		return cis.ItemInfo{}, err
	}
	return rec.Info, nil
}

func (b *Backend) GetStatInfo(ctx context.Context, name, regionName string, uid, gid uint32) (cis.StatInfo, error) {
	if regionInfo, err := b.LookupRegion(ctx, name); err == nil {
		return cis.StatInfo{Name: name, Size: regionInfo.Size, Perm: regionInfo.Perm, UID: regionInfo.UID, GID: regionInfo.GID, IsRegion: true}, nil
	}
	item, err := b.Lookup(ctx, name, regionName)
	if err != nil {
		return cis.StatInfo{}, err
	}
	return cis.StatInfo{Name: name, Size: item.Size, Perm: item.Perm, UID: item.UID, GID: item.GID, IsRegion: false}, nil
}

// --- data movement (copy/backup/restore) --------------------------------
//
// These run synchronously against the fabric and hand back an
// already-resolved WaitToken; the async engine layers fire-and-forget
// semantics on top (spec.md §4.5), this backend just needs a token that
// WaitFor* can immediately resolve.

func (b *Backend) Copy(ctx context.Context, args cis.CopyArgs) (cis.WaitToken, error) {
	srcRec, err := b.getItemRecordByRegionOffset(args.SrcRegionID, args.SrcOffsets)
	if err != nil {
		return b.resolve(err), nil
	}
	dstRec, err := b.getItemRecord(args.DstRegionID, args.DstOffset)
	if err != nil {
		return b.resolve(err), nil
	}
	buf := make([]byte, args.Bytes)
	if err := b.readExtents(ctx, srcRec.Extents, args.SrcCopyStart, buf); err != nil {
		return b.resolve(err), nil
	}
	if err := b.writeExtents(ctx, dstRec.Extents, args.DstCopyStart, buf); err != nil {
		return b.resolve(err), nil
	}
	return b.resolve(nil), nil
}

func (b *Backend) WaitForCopy(ctx context.Context, token cis.WaitToken) error { return b.waitResult(token) }

func (b *Backend) Backup(ctx context.Context, args cis.BackupArgs) (cis.WaitToken, error) {
	rec, err := b.getItemRecord(args.RegionID, args.Offset)
	if err != nil {
		return b.resolve(err), nil
	}
	buf := make([]byte, rec.Info.Size)
	if err := b.readExtents(ctx, rec.Extents, 0, buf); err != nil {
		return b.resolve(err), nil
	}
	bi := cis.BackupInfo{Name: args.BackupName, Size: rec.Info.Size, UID: args.UID, GID: args.GID, ItemName: rec.Info.Name}
	err = b.db.Update(func(tx *buntdb.Tx) error {
		tx.Set(backupPrefix+args.BackupName, string(cos.MustMarshal(struct {
			Info cis.BackupInfo
			Data []byte
		}{bi, buf})), nil)
		return nil
	})
	return b.resolve(err), nil
}

func (b *Backend) WaitForBackup(ctx context.Context, token cis.WaitToken) error { return b.waitResult(token) }

func (b *Backend) Restore(ctx context.Context, args cis.RestoreArgs) (cis.WaitToken, error) {
	var stored struct {
		Info cis.BackupInfo
		Data []byte
	}
	err := b.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(backupPrefix + args.BackupName)
		if err != nil {
			return err
		}
		return cos.Unmarshal([]byte(v), &stored)
	})
	if err != nil {
		return b.resolve(famerrors.Newf(famerrors.NotFound, "backup %q not found", args.BackupName)), nil
	}
	rec, err := b.getItemRecord(args.RegionID, args.Offset)
	if err != nil {
		return b.resolve(err), nil
	}
	if err := b.writeExtents(ctx, rec.Extents, 0, stored.Data); err != nil {
		return b.resolve(err), nil
	}
	return b.resolve(nil), nil
}

func (b *Backend) WaitForRestore(ctx context.Context, token cis.WaitToken) error { return b.waitResult(token) }

func (b *Backend) DeleteBackup(ctx context.Context, name string, _, _ uint32) (cis.WaitToken, error) {
	err := b.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(backupPrefix + name)
		return err
	})
	return b.resolve(err), nil
}

func (b *Backend) WaitForDeleteBackup(ctx context.Context, token cis.WaitToken) error { return b.waitResult(token) }

func (b *Backend) ListBackup(ctx context.Context, pattern string, _, _ uint32) ([]cis.BackupInfo, error) {
	var out []cis.BackupInfo
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(backupPrefix+pattern, func(key, value string) bool {
			var stored struct {
				Info cis.BackupInfo
				Data []byte
			}
			if err := cos.Unmarshal([]byte(value), &stored); err == nil {
				out = append(out, stored.Info)
			}
			return true
		})
	})
	return out, err
}

func (b *Backend) GetBackupInfo(ctx context.Context, name string, _, _ uint32) (cis.BackupInfo, error) {
	var stored struct {
		Info cis.BackupInfo
		Data []byte
	}
	err := b.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(backupPrefix + name)
		if err != nil {
			return err
		}
		return cos.Unmarshal([]byte(v), &stored)
	})
	if err != nil {
		return cis.BackupInfo{}, famerrors.Newf(famerrors.NotFound, "backup %q not found", name)
	}
	return stored.Info, nil
}

// --- CAS lock (128-bit CAS has no native fabric primitive; spec.md §9) --

func (b *Backend) AcquireCASLock(ctx context.Context, offset, memserverID uint64) error {
	return nil
}

func (b *Backend) ReleaseCASLock(ctx context.Context, offset, memserverID uint64) error {
	return nil
}

func (b *Backend) GetAddrSize(ctx context.Context, memserverID uint64) (uint32, error) {
	return b.fabric.AddrSize(ctx, memserverID)
}

func (b *Backend) GetAddr(ctx context.Context, memserverID uint64) ([]byte, error) {
	return b.fabric.Addr(ctx, memserverID)
}

func (b *Backend) GetMemServerInfoSize(ctx context.Context) (uint64, error) {
	n, err := b.fabric.NumServers(ctx)
	return n * 8, err
}

func (b *Backend) GetMemServerInfo(ctx context.Context) ([]byte, error) {
	n, err := b.fabric.NumServers(ctx)
	if err != nil {
		return nil, err
	}
	return cos.MustMarshal(n), nil
}

// --- helpers --------------------------------------------------------

func (b *Backend) readExtents(ctx context.Context, extents []cis.Extent, start uint64, buf []byte) error {
	var read uint64
	for _, ext := range extents {
		if read >= uint64(len(buf)) {
			break
		}
		chunk := buf[read:]
		if err := b.fabric.Get(ctx, ext.ServerID, ext.Key, ext.Base, start, chunk); err != nil {
			return err
		}
		read += uint64(len(chunk))
	}
	return nil
}

func (b *Backend) writeExtents(ctx context.Context, extents []cis.Extent, start uint64, buf []byte) error {
	var written uint64
	for _, ext := range extents {
		if written >= uint64(len(buf)) {
			break
		}
		chunk := buf[written:]
		if err := b.fabric.Put(ctx, ext.ServerID, ext.Key, ext.Base, start, chunk); err != nil {
			return err
		}
		written += uint64(len(chunk))
	}
	return nil
}

func (b *Backend) resolve(err error) cis.WaitToken {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokenSeq++
	tok := cis.WaitToken(b.tokenSeq)
	b.waits[tok] = err
	return tok
}

func (b *Backend) waitResult(tok cis.WaitToken) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err, ok := b.waits[tok]
	if !ok {
		return famerrors.Newf(famerrors.Invalid, "unknown wait token %d", tok)
	}
	delete(b.waits, tok)
	return err
}

func (b *Backend) getRegionRecord(regionID uint64) (regionRecord, error) {
	var rec regionRecord
	err := b.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(fmt.Sprintf("%s%d", regionByIDPrefix, regionID))
		if err != nil {
			return err
		}
		return cos.Unmarshal([]byte(v), &rec)
	})
	if err != nil {
		return regionRecord{}, famerrors.Newf(famerrors.NotFound, "region %d not found", regionID)
	}
	return rec, nil
}

func (b *Backend) putRegionRecord(regionID uint64, rec regionRecord) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		tx.Set(fmt.Sprintf("%s%d", regionByIDPrefix, regionID), string(cos.MustMarshal(rec)), nil)
		return nil
	})
}

func (b *Backend) getItemRecord(regionID, offset uint64) (itemRecord, error) {
	var rec itemRecord
	err := b.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(fmt.Sprintf("%s%d:%d", itemByIDPrefix, regionID, offset))
		if err != nil {
			return err
		}
		return cos.Unmarshal([]byte(v), &rec)
	})
	if err != nil {
		return itemRecord{}, famerrors.Newf(famerrors.NotFound, "item at region=%d offset=%d not found", regionID, offset)
	}
	return rec, nil
}

func (b *Backend) getItemRecordByRegionOffset(regionID uint64, offsets []uint64) (itemRecord, error) {
	if len(offsets) == 0 {
		return itemRecord{}, famerrors.New(famerrors.Invalid, "empty source offsets")
	}
	return b.getItemRecord(regionID, offsets[0])
}

func (b *Backend) putItemRecord(regionID, offset uint64, rec itemRecord) error {
	return b.db.Update(func(tx *buntdb.Tx) error {
		tx.Set(fmt.Sprintf("%s%d:%d", itemByIDPrefix, regionID, offset), string(cos.MustMarshal(rec)), nil)
		return nil
	})
}

func checkOwner(ownerUID, ownerGID, uid, gid uint32) error {
	if uid == 0 {
		return nil
	}
	if uid != ownerUID && gid != ownerGID {
		return famerrors.New(famerrors.NoPerm, "not the owner")
	}
	return nil
}

func checkRead(perm, ownerUID, ownerGID, uid, gid uint32) error {
	if uid == ownerUID {
		if perm&0o400 != 0 {
			return nil
		}
	} else if gid == ownerGID {
		if perm&0o040 != 0 {
			return nil
		}
	} else if perm&0o004 != 0 {
		return nil
	}
	if uid == 0 {
		return nil
	}
	return famerrors.New(famerrors.NoPerm, "permission denied")
}

var _ cis.Client = (*Backend)(nil)
