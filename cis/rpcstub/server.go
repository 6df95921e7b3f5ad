package rpcstub

import (
	"context"

	"google.golang.org/grpc"

	"github.com/openfam/fam-go/cis"
	"github.com/openfam/fam-go/cmn/cos"
	famerrors "github.com/openfam/fam-go/cmn/errors"
	"github.com/openfam/fam-go/cmn/nlog"
)

// serviceName/method mirror a protoc-generated service; handwritten here
// because the single Execute verb replaces the ~25 methods a .proto would
// generate (package doc).
const serviceName = "cis.rpcstub.CIS"

// Server adapts a cis.Client so it can be reached over grpc via the single
// Execute verb.
type Server struct {
	client cis.Client
}

func NewServer(client cis.Client) *Server { return &Server{client: client} }

// Register attaches the service to an existing *grpc.Server.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Execute", Handler: s.executeHandler},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "cis/rpcstub.go",
	}, s)
}

func (s *Server) executeHandler(_ any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	var req Envelope
	if err := dec(&req); err != nil {
		return nil, err
	}
	reply := s.dispatch(ctx, req)
	return reply, nil
}

func (s *Server) dispatch(ctx context.Context, req Envelope) Envelope {
	reply, err := s.do(ctx, req)
	if err != nil {
		nlog.Warningf("[cis/rpcstub] op=%s failed: %v", req.Op, err)
		reply.Op = req.Op
		reply.Err = err.Error()
		reply.ErrCode = int(famerrors.CodeOf(err))
	}
	reply.Op = req.Op
	return reply
}

// do implements every cis.Client method by decoding req.Payload into the
// matching typed args struct and re-encoding the client's result.
func (s *Server) do(ctx context.Context, req Envelope) (Envelope, error) {
	switch req.Op {
	case opGetNumMemoryServers:
		n, err := s.client.GetNumMemoryServers(ctx)
		return reply(n), err

	case opCreateRegion:
		var a createRegionArgs
		decode(req.Payload, &a)
		info, err := s.client.CreateRegion(ctx, a.Name, a.Bytes, a.Perm, a.Attrs, a.UID, a.GID)
		return reply(info), err

	case opDestroyRegion:
		var a destroyRegionArgs
		decode(req.Payload, &a)
		err := s.client.DestroyRegion(ctx, a.RegionID, a.MemserverID, a.UID, a.GID)
		return Envelope{}, err

	case opResizeRegion:
		var a resizeRegionArgs
		decode(req.Payload, &a)
		err := s.client.ResizeRegion(ctx, a.RegionID, a.Bytes, a.MemserverID, a.UID, a.GID)
		return Envelope{}, err

	case opAllocate:
		var a allocateArgs
		decode(req.Payload, &a)
		info, err := s.client.Allocate(ctx, a.Name, a.Bytes, a.Perm, a.RegionID, a.MemserverID, a.UID, a.GID)
		return reply(info), err

	case opDeallocate:
		var a deallocateArgs
		decode(req.Payload, &a)
		err := s.client.Deallocate(ctx, a.RegionID, a.Offset, a.MemserverID, a.UID, a.GID)
		return Envelope{}, err

	case opChangeRegionPermission:
		var a changeRegionPermArgs
		decode(req.Payload, &a)
		err := s.client.ChangeRegionPermission(ctx, a.RegionID, a.Perm, a.UID, a.GID)
		return Envelope{}, err

	case opChangeDataItemPermission:
		var a changeItemPermArgs
		decode(req.Payload, &a)
		err := s.client.ChangeDataItemPermission(ctx, a.RegionID, a.Offset, a.Perm, a.UID, a.GID)
		return Envelope{}, err

	case opLookupRegion:
		var a nameUIDGIDArgs
		decode(req.Payload, &a)
		info, err := s.client.LookupRegion(ctx, a.Name)
		return reply(info), err

	case opLookup:
		var a lookupArgs
		decode(req.Payload, &a)
		info, err := s.client.Lookup(ctx, a.ItemName, a.RegionName)
		return reply(info), err

	case opCheckPermGetRegionInfo:
		var a checkPermRegionArgs
		decode(req.Payload, &a)
		info, err := s.client.CheckPermissionGetRegionInfo(ctx, a.RegionID, a.UID, a.GID)
		return reply(info), err

	case opCheckPermGetItemInfo:
		var a checkPermItemArgs
		decode(req.Payload, &a)
		info, err := s.client.CheckPermissionGetItemInfo(ctx, a.RegionID, a.Offset, a.UID, a.GID)
		return reply(info), err

	case opGetStatInfo:
		var a getStatInfoArgs
		decode(req.Payload, &a)
		info, err := s.client.GetStatInfo(ctx, a.Name, a.RegionName, a.UID, a.GID)
		return reply(info), err

	case opOpenRegionWithRegistration:
		var a checkPermRegionArgs
		decode(req.Payload, &a)
		servers, mmap, err := s.client.OpenRegionWithRegistration(ctx, a.RegionID, a.UID, a.GID)
		return reply(struct {
			Servers []uint64
			Mmap    cis.RegionMemoryMap
		}{servers, mmap}), err

	case opOpenRegionWithoutRegistrat:
		var a regionIDUIDGIDArgs
		decode(req.Payload, &a)
		servers, err := s.client.OpenRegionWithoutRegistration(ctx, a.RegionID)
		return reply(servers), err

	case opCloseRegion:
		var a closeRegionArgs
		decode(req.Payload, &a)
		err := s.client.CloseRegion(ctx, a.RegionID, a.MemserverIDs)
		return Envelope{}, err

	case opGetRegionMemory:
		var a checkPermRegionArgs
		decode(req.Payload, &a)
		mmap, err := s.client.GetRegionMemory(ctx, a.RegionID, a.UID, a.GID)
		return reply(mmap), err

	case opCopy:
		var a cis.CopyArgs
		decode(req.Payload, &a)
		tok, err := s.client.Copy(ctx, a)
		return reply(tok), err

	case opWaitForCopy:
		var a waitArgs
		decode(req.Payload, &a)
		err := s.client.WaitForCopy(ctx, a.Token)
		return Envelope{}, err

	case opBackup:
		var a cis.BackupArgs
		decode(req.Payload, &a)
		tok, err := s.client.Backup(ctx, a)
		return reply(tok), err

	case opWaitForBackup:
		var a waitArgs
		decode(req.Payload, &a)
		err := s.client.WaitForBackup(ctx, a.Token)
		return Envelope{}, err

	case opRestore:
		var a cis.RestoreArgs
		decode(req.Payload, &a)
		tok, err := s.client.Restore(ctx, a)
		return reply(tok), err

	case opWaitForRestore:
		var a waitArgs
		decode(req.Payload, &a)
		err := s.client.WaitForRestore(ctx, a.Token)
		return Envelope{}, err

	case opDeleteBackup:
		var a nameUIDGIDArgs
		decode(req.Payload, &a)
		tok, err := s.client.DeleteBackup(ctx, a.Name, a.UID, a.GID)
		return reply(tok), err

	case opWaitForDeleteBackup:
		var a waitArgs
		decode(req.Payload, &a)
		err := s.client.WaitForDeleteBackup(ctx, a.Token)
		return Envelope{}, err

	case opListBackup:
		var a nameUIDGIDArgs
		decode(req.Payload, &a)
		list, err := s.client.ListBackup(ctx, a.Name, a.UID, a.GID)
		return reply(list), err

	case opGetBackupInfo:
		var a nameUIDGIDArgs
		decode(req.Payload, &a)
		info, err := s.client.GetBackupInfo(ctx, a.Name, a.UID, a.GID)
		return reply(info), err

	case opAcquireCASLock:
		var a deallocateArgs
		decode(req.Payload, &a)
		err := s.client.AcquireCASLock(ctx, a.Offset, a.MemserverID)
		return Envelope{}, err

	case opReleaseCASLock:
		var a deallocateArgs
		decode(req.Payload, &a)
		err := s.client.ReleaseCASLock(ctx, a.Offset, a.MemserverID)
		return Envelope{}, err

	case opGetAddrSize:
		var a pmServerIDArgs
		decode(req.Payload, &a)
		n, err := s.client.GetAddrSize(ctx, a.MemserverID)
		return reply(n), err

	case opGetAddr:
		var a pmServerIDArgs
		decode(req.Payload, &a)
		addr, err := s.client.GetAddr(ctx, a.MemserverID)
		return reply(addr), err

	case opGetMemServerInfoSize:
		n, err := s.client.GetMemServerInfoSize(ctx)
		return reply(n), err

	case opGetMemServerInfo:
		b, err := s.client.GetMemServerInfo(ctx)
		return reply(b), err

	default:
		return Envelope{}, famerrors.Newf(famerrors.Unimplemented, "unknown rpc op %q", req.Op)
	}
}

func decode(payload []byte, v any) {
	_ = cos.Unmarshal(payload, v)
}

func reply(v any) Envelope {
	return Envelope{Payload: cos.MustMarshal(v)}
}
