package cis

import "context"

// Client is the full Client Information Service contract (spec.md §4.2).
// Both backends (direct, rpcstub) implement it identically; callers hold the
// capability, not a concrete type (spec.md §9).
type Client interface {
	GetNumMemoryServers(ctx context.Context) (uint64, error)

	CreateRegion(ctx context.Context, name string, bytes uint64, perm uint32, attrs RegionAttrs, uid, gid uint32) (RegionInfo, error)
	DestroyRegion(ctx context.Context, regionID, memserverID uint64, uid, gid uint32) error
	ResizeRegion(ctx context.Context, regionID, bytes, memserverID uint64, uid, gid uint32) error

	Allocate(ctx context.Context, name string, bytes uint64, perm uint32, regionID, memserverID uint64, uid, gid uint32) (ItemInfo, error)
	Deallocate(ctx context.Context, regionID, offset, memserverID uint64, uid, gid uint32) error

	ChangeRegionPermission(ctx context.Context, regionID uint64, perm uint32, uid, gid uint32) error
	ChangeDataItemPermission(ctx context.Context, regionID, offset uint64, perm uint32, uid, gid uint32) error

	LookupRegion(ctx context.Context, name string) (RegionInfo, error)
	Lookup(ctx context.Context, itemName, regionName string) (ItemInfo, error)

	CheckPermissionGetRegionInfo(ctx context.Context, regionID uint64, uid, gid uint32) (RegionInfo, error)
	CheckPermissionGetItemInfo(ctx context.Context, regionID, offset uint64, uid, gid uint32) (ItemInfo, error)
	GetStatInfo(ctx context.Context, name, regionName string, uid, gid uint32) (StatInfo, error)

	OpenRegionWithRegistration(ctx context.Context, regionID uint64, uid, gid uint32) (memserverIDs []uint64, mmap RegionMemoryMap, err error)
	OpenRegionWithoutRegistration(ctx context.Context, regionID uint64) (memserverIDs []uint64, err error)
	CloseRegion(ctx context.Context, regionID uint64, memserverIDs []uint64) error
	GetRegionMemory(ctx context.Context, regionID uint64, uid, gid uint32) (RegionMemoryMap, error)

	Copy(ctx context.Context, args CopyArgs) (WaitToken, error)
	WaitForCopy(ctx context.Context, token WaitToken) error

	Backup(ctx context.Context, args BackupArgs) (WaitToken, error)
	WaitForBackup(ctx context.Context, token WaitToken) error
	Restore(ctx context.Context, args RestoreArgs) (WaitToken, error)
	WaitForRestore(ctx context.Context, token WaitToken) error
	DeleteBackup(ctx context.Context, name string, uid, gid uint32) (WaitToken, error)
	WaitForDeleteBackup(ctx context.Context, token WaitToken) error
	ListBackup(ctx context.Context, pattern string, uid, gid uint32) ([]BackupInfo, error)
	GetBackupInfo(ctx context.Context, name string, uid, gid uint32) (BackupInfo, error)

	AcquireCASLock(ctx context.Context, offset, memserverID uint64) error
	ReleaseCASLock(ctx context.Context, offset, memserverID uint64) error

	GetAddrSize(ctx context.Context, memserverID uint64) (uint32, error)
	GetAddr(ctx context.Context, memserverID uint64) ([]byte, error)
	GetMemServerInfoSize(ctx context.Context) (uint64, error)
	GetMemServerInfo(ctx context.Context) ([]byte, error)
}

type CopyArgs struct {
	SrcRegionID   uint64
	SrcOffsets    []uint64
	SrcUsedCnt    uint64
	SrcCopyStart  uint64
	SrcKeys       []uint64
	SrcBases      []uint64
	DstRegionID   uint64
	DstOffset     uint64
	DstCopyStart  uint64
	Bytes         uint64
	SrcMemserver  uint64
	DstMemserver  uint64
	UID, GID      uint32
}

type BackupArgs struct {
	RegionID    uint64
	Offset      uint64
	MemserverID uint64
	BackupName  string
	UID, GID    uint32
}

type RestoreArgs struct {
	BackupName  string
	RegionID    uint64
	Offset      uint64
	MemserverID uint64
	UID, GID    uint32
}
