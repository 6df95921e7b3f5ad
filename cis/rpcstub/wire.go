package rpcstub

import "github.com/openfam/fam-go/cis"

// Envelope is the single request/response message shape carried by the
// Execute RPC; Op selects which cis.Client method to invoke, Payload is the
// JSON-encoded, per-op argument (or result) struct below.
type Envelope struct {
	Op      string `json:"op"`
	Payload []byte `json:"payload"`
	Err     string `json:"err,omitempty"`
	ErrCode int    `json:"err_code,omitempty"`
}

const (
	opGetNumMemoryServers         = "GetNumMemoryServers"
	opCreateRegion                = "CreateRegion"
	opDestroyRegion               = "DestroyRegion"
	opResizeRegion                = "ResizeRegion"
	opAllocate                    = "Allocate"
	opDeallocate                  = "Deallocate"
	opChangeRegionPermission      = "ChangeRegionPermission"
	opChangeDataItemPermission    = "ChangeDataItemPermission"
	opLookupRegion                = "LookupRegion"
	opLookup                      = "Lookup"
	opCheckPermGetRegionInfo      = "CheckPermissionGetRegionInfo"
	opCheckPermGetItemInfo        = "CheckPermissionGetItemInfo"
	opGetStatInfo                 = "GetStatInfo"
	opOpenRegionWithRegistration  = "OpenRegionWithRegistration"
	opOpenRegionWithoutRegistrat  = "OpenRegionWithoutRegistration"
	opCloseRegion                 = "CloseRegion"
	opGetRegionMemory             = "GetRegionMemory"
	opCopy                        = "Copy"
	opWaitForCopy                 = "WaitForCopy"
	opBackup                      = "Backup"
	opWaitForBackup               = "WaitForBackup"
	opRestore                     = "Restore"
	opWaitForRestore               = "WaitForRestore"
	opDeleteBackup                = "DeleteBackup"
	opWaitForDeleteBackup          = "WaitForDeleteBackup"
	opListBackup                  = "ListBackup"
	opGetBackupInfo                = "GetBackupInfo"
	opAcquireCASLock               = "AcquireCASLock"
	opReleaseCASLock                = "ReleaseCASLock"
	opGetAddrSize                  = "GetAddrSize"
	opGetAddr                      = "GetAddr"
	opGetMemServerInfoSize         = "GetMemServerInfoSize"
	opGetMemServerInfo             = "GetMemServerInfo"
)

type createRegionArgs struct {
	Name     string
	Bytes    uint64
	Perm     uint32
	Attrs    cis.RegionAttrs
	UID, GID uint32
}

type destroyRegionArgs struct {
	RegionID, MemserverID uint64
	UID, GID              uint32
}

type resizeRegionArgs struct {
	RegionID, Bytes, MemserverID uint64
	UID, GID                     uint32
}

type allocateArgs struct {
	Name                      string
	Bytes                     uint64
	Perm                      uint32
	RegionID, MemserverID     uint64
	UID, GID                  uint32
}

type deallocateArgs struct {
	RegionID, Offset, MemserverID uint64
	UID, GID                      uint32
}

type changeRegionPermArgs struct {
	RegionID uint64
	Perm     uint32
	UID, GID uint32
}

type changeItemPermArgs struct {
	RegionID, Offset uint64
	Perm             uint32
	UID, GID         uint32
}

type lookupArgs struct {
	ItemName, RegionName string
}

type checkPermRegionArgs struct {
	RegionID uint64
	UID, GID uint32
}

type checkPermItemArgs struct {
	RegionID, Offset uint64
	UID, GID         uint32
}

type getStatInfoArgs struct {
	Name, RegionName string
	UID, GID         uint32
}

type regionIDUIDGIDArgs struct {
	RegionID uint64
	UID, GID uint32
}

type closeRegionArgs struct {
	RegionID      uint64
	MemserverIDs  []uint64
}

type waitArgs struct {
	Token cis.WaitToken
}

type nameUIDGIDArgs struct {
	Name     string
	UID, GID uint32
}

type pmServerIDArgs struct {
	MemserverID uint64
}

type errReply struct {
	Err     string
	ErrCode int
}
