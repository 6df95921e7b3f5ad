package async

import (
	"github.com/openfam/fam-go/cis"
	"github.com/openfam/fam-go/descriptor"
)

// OpKind identifies which per-class completion counters a request touches,
// and which handler in engine.go services it (spec.md §4.5).
type OpKind int

const (
	KindWrite OpKind = iota
	KindRead
	KindCopy
	KindBackup
	KindRestore
	KindDeleteBackup
	numKinds
)

func (k OpKind) String() string {
	switch k {
	case KindWrite:
		return "WRITE"
	case KindRead:
		return "READ"
	case KindCopy:
		return "COPY"
	case KindBackup:
		return "BACKUP"
	case KindRestore:
		return "RESTORE"
	case KindDeleteBackup:
		return "DELETE_BACKUP"
	default:
		return "UNKNOWN"
	}
}

// WriteOp/ReadOp move bytes directly against the fabric, fanned out across
// item's extents by the engine.
type WriteOp struct {
	Item   *descriptor.DataItemDescriptor
	Offset uint64
	Data   []byte
}

type ReadOp struct {
	Item   *descriptor.DataItemDescriptor
	Offset uint64
	Buf    []byte
}

// CopyOp/BackupOp/RestoreOp/DeleteBackupOp drive the CIS's own async verbs.
// Each op carries its CIS argument struct by value; neither the op nor its
// *Tag copies key/base slices out of a descriptor.
type CopyOp struct {
	Args cis.CopyArgs
}

type BackupOp struct {
	Args cis.BackupArgs
}

type RestoreOp struct {
	Args cis.RestoreArgs
}

type DeleteBackupOp struct {
	Name     string
	UID, GID uint32
}
