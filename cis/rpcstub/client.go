package rpcstub

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/openfam/fam-go/cis"
	"github.com/openfam/fam-go/cmn/cos"
	famerrors "github.com/openfam/fam-go/cmn/errors"
)

const executeMethod = "/" + serviceName + "/Execute"

// Client is the network cis.Client: every method is one round trip of the
// generic Execute RPC over conn.
type Client struct {
	conn *grpc.ClientConn
}

// Dial opens a grpc connection to target using the JSON wire codec.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)))
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, famerrors.Wrap(famerrors.RPC, err, "dial cis rpcstub")
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) call(ctx context.Context, op string, args any) (Envelope, error) {
	req := Envelope{Op: op, Payload: cos.MustMarshal(args)}
	var resp Envelope
	if err := c.conn.Invoke(ctx, executeMethod, req, &resp); err != nil {
		return Envelope{}, famerrors.Wrap(famerrors.RPC, err, fmt.Sprintf("rpc op %s", op))
	}
	if resp.Err != "" {
		return Envelope{}, famerrors.New(famerrors.Code(resp.ErrCode), resp.Err)
	}
	return resp, nil
}

func (c *Client) GetNumMemoryServers(ctx context.Context) (uint64, error) {
	resp, err := c.call(ctx, opGetNumMemoryServers, struct{}{})
	if err != nil {
		return 0, err
	}
	var n uint64
	cos.Unmarshal(resp.Payload, &n)
	return n, nil
}

func (c *Client) CreateRegion(ctx context.Context, name string, bytes uint64, perm uint32, attrs cis.RegionAttrs, uid, gid uint32) (cis.RegionInfo, error) {
	resp, err := c.call(ctx, opCreateRegion, createRegionArgs{name, bytes, perm, attrs, uid, gid})
	if err != nil {
		return cis.RegionInfo{}, err
	}
	var info cis.RegionInfo
	cos.Unmarshal(resp.Payload, &info)
	return info, nil
}

func (c *Client) DestroyRegion(ctx context.Context, regionID, memserverID uint64, uid, gid uint32) error {
	_, err := c.call(ctx, opDestroyRegion, destroyRegionArgs{regionID, memserverID, uid, gid})
	return err
}

func (c *Client) ResizeRegion(ctx context.Context, regionID, bytes, memserverID uint64, uid, gid uint32) error {
	_, err := c.call(ctx, opResizeRegion, resizeRegionArgs{regionID, bytes, memserverID, uid, gid})
	return err
}

func (c *Client) Allocate(ctx context.Context, name string, bytes uint64, perm uint32, regionID, memserverID uint64, uid, gid uint32) (cis.ItemInfo, error) {
	resp, err := c.call(ctx, opAllocate, allocateArgs{name, bytes, perm, regionID, memserverID, uid, gid})
	if err != nil {
		return cis.ItemInfo{}, err
	}
	var info cis.ItemInfo
	cos.Unmarshal(resp.Payload, &info)
	return info, nil
}

func (c *Client) Deallocate(ctx context.Context, regionID, offset, memserverID uint64, uid, gid uint32) error {
	_, err := c.call(ctx, opDeallocate, deallocateArgs{regionID, offset, memserverID, uid, gid})
	return err
}

func (c *Client) ChangeRegionPermission(ctx context.Context, regionID uint64, perm uint32, uid, gid uint32) error {
	_, err := c.call(ctx, opChangeRegionPermission, changeRegionPermArgs{regionID, perm, uid, gid})
	return err
}

func (c *Client) ChangeDataItemPermission(ctx context.Context, regionID, offset uint64, perm uint32, uid, gid uint32) error {
	_, err := c.call(ctx, opChangeDataItemPermission, changeItemPermArgs{regionID, offset, perm, uid, gid})
	return err
}

func (c *Client) LookupRegion(ctx context.Context, name string) (cis.RegionInfo, error) {
	resp, err := c.call(ctx, opLookupRegion, nameUIDGIDArgs{Name: name})
	if err != nil {
		return cis.RegionInfo{}, err
	}
	var info cis.RegionInfo
	cos.Unmarshal(resp.Payload, &info)
	return info, nil
}

func (c *Client) Lookup(ctx context.Context, itemName, regionName string) (cis.ItemInfo, error) {
	resp, err := c.call(ctx, opLookup, lookupArgs{itemName, regionName})
	if err != nil {
		return cis.ItemInfo{}, err
	}
	var info cis.ItemInfo
	cos.Unmarshal(resp.Payload, &info)
	return info, nil
}

func (c *Client) CheckPermissionGetRegionInfo(ctx context.Context, regionID uint64, uid, gid uint32) (cis.RegionInfo, error) {
	resp, err := c.call(ctx, opCheckPermGetRegionInfo, checkPermRegionArgs{regionID, uid, gid})
	if err != nil {
		return cis.RegionInfo{}, err
	}
	var info cis.RegionInfo
	cos.Unmarshal(resp.Payload, &info)
	return info, nil
}

func (c *Client) CheckPermissionGetItemInfo(ctx context.Context, regionID, offset uint64, uid, gid uint32) (cis.ItemInfo, error) {
	resp, err := c.call(ctx, opCheckPermGetItemInfo, checkPermItemArgs{regionID, offset, uid, gid})
	if err != nil {
		return cis.ItemInfo{}, err
	}
	var info cis.ItemInfo
	cos.Unmarshal(resp.Payload, &info)
	return info, nil
}

func (c *Client) GetStatInfo(ctx context.Context, name, regionName string, uid, gid uint32) (cis.StatInfo, error) {
	resp, err := c.call(ctx, opGetStatInfo, getStatInfoArgs{name, regionName, uid, gid})
	if err != nil {
		return cis.StatInfo{}, err
	}
	var info cis.StatInfo
	cos.Unmarshal(resp.Payload, &info)
	return info, nil
}

func (c *Client) OpenRegionWithRegistration(ctx context.Context, regionID uint64, uid, gid uint32) ([]uint64, cis.RegionMemoryMap, error) {
	resp, err := c.call(ctx, opOpenRegionWithRegistration, checkPermRegionArgs{regionID, uid, gid})
	if err != nil {
		return nil, nil, err
	}
	var out struct {
		Servers []uint64
		Mmap    cis.RegionMemoryMap
	}
	cos.Unmarshal(resp.Payload, &out)
	return out.Servers, out.Mmap, nil
}

func (c *Client) OpenRegionWithoutRegistration(ctx context.Context, regionID uint64) ([]uint64, error) {
	resp, err := c.call(ctx, opOpenRegionWithoutRegistrat, regionIDUIDGIDArgs{RegionID: regionID})
	if err != nil {
		return nil, err
	}
	var servers []uint64
	cos.Unmarshal(resp.Payload, &servers)
	return servers, nil
}

func (c *Client) CloseRegion(ctx context.Context, regionID uint64, memserverIDs []uint64) error {
	_, err := c.call(ctx, opCloseRegion, closeRegionArgs{regionID, memserverIDs})
	return err
}

func (c *Client) GetRegionMemory(ctx context.Context, regionID uint64, uid, gid uint32) (cis.RegionMemoryMap, error) {
	resp, err := c.call(ctx, opGetRegionMemory, checkPermRegionArgs{regionID, uid, gid})
	if err != nil {
		return nil, err
	}
	var mmap cis.RegionMemoryMap
	cos.Unmarshal(resp.Payload, &mmap)
	return mmap, nil
}

func (c *Client) Copy(ctx context.Context, args cis.CopyArgs) (cis.WaitToken, error) {
	resp, err := c.call(ctx, opCopy, args)
	if err != nil {
		return 0, err
	}
	var tok cis.WaitToken
	cos.Unmarshal(resp.Payload, &tok)
	return tok, nil
}

func (c *Client) WaitForCopy(ctx context.Context, token cis.WaitToken) error {
	_, err := c.call(ctx, opWaitForCopy, waitArgs{token})
	return err
}

func (c *Client) Backup(ctx context.Context, args cis.BackupArgs) (cis.WaitToken, error) {
	resp, err := c.call(ctx, opBackup, args)
	if err != nil {
		return 0, err
	}
	var tok cis.WaitToken
	cos.Unmarshal(resp.Payload, &tok)
	return tok, nil
}

func (c *Client) WaitForBackup(ctx context.Context, token cis.WaitToken) error {
	_, err := c.call(ctx, opWaitForBackup, waitArgs{token})
	return err
}

func (c *Client) Restore(ctx context.Context, args cis.RestoreArgs) (cis.WaitToken, error) {
	resp, err := c.call(ctx, opRestore, args)
	if err != nil {
		return 0, err
	}
	var tok cis.WaitToken
	cos.Unmarshal(resp.Payload, &tok)
	return tok, nil
}

func (c *Client) WaitForRestore(ctx context.Context, token cis.WaitToken) error {
	_, err := c.call(ctx, opWaitForRestore, waitArgs{token})
	return err
}

func (c *Client) DeleteBackup(ctx context.Context, name string, uid, gid uint32) (cis.WaitToken, error) {
	resp, err := c.call(ctx, opDeleteBackup, nameUIDGIDArgs{name, uid, gid})
	if err != nil {
		return 0, err
	}
	var tok cis.WaitToken
	cos.Unmarshal(resp.Payload, &tok)
	return tok, nil
}

func (c *Client) WaitForDeleteBackup(ctx context.Context, token cis.WaitToken) error {
	_, err := c.call(ctx, opWaitForDeleteBackup, waitArgs{token})
	return err
}

func (c *Client) ListBackup(ctx context.Context, pattern string, uid, gid uint32) ([]cis.BackupInfo, error) {
	resp, err := c.call(ctx, opListBackup, nameUIDGIDArgs{pattern, uid, gid})
	if err != nil {
		return nil, err
	}
	var list []cis.BackupInfo
	cos.Unmarshal(resp.Payload, &list)
	return list, nil
}

func (c *Client) GetBackupInfo(ctx context.Context, name string, uid, gid uint32) (cis.BackupInfo, error) {
	resp, err := c.call(ctx, opGetBackupInfo, nameUIDGIDArgs{name, uid, gid})
	if err != nil {
		return cis.BackupInfo{}, err
	}
	var info cis.BackupInfo
	cos.Unmarshal(resp.Payload, &info)
	return info, nil
}

func (c *Client) AcquireCASLock(ctx context.Context, offset, memserverID uint64) error {
	_, err := c.call(ctx, opAcquireCASLock, deallocateArgs{Offset: offset, MemserverID: memserverID})
	return err
}

func (c *Client) ReleaseCASLock(ctx context.Context, offset, memserverID uint64) error {
	_, err := c.call(ctx, opReleaseCASLock, deallocateArgs{Offset: offset, MemserverID: memserverID})
	return err
}

func (c *Client) GetAddrSize(ctx context.Context, memserverID uint64) (uint32, error) {
	resp, err := c.call(ctx, opGetAddrSize, pmServerIDArgs{memserverID})
	if err != nil {
		return 0, err
	}
	var n uint32
	cos.Unmarshal(resp.Payload, &n)
	return n, nil
}

func (c *Client) GetAddr(ctx context.Context, memserverID uint64) ([]byte, error) {
	resp, err := c.call(ctx, opGetAddr, pmServerIDArgs{memserverID})
	if err != nil {
		return nil, err
	}
	var addr []byte
	cos.Unmarshal(resp.Payload, &addr)
	return addr, nil
}

func (c *Client) GetMemServerInfoSize(ctx context.Context) (uint64, error) {
	resp, err := c.call(ctx, opGetMemServerInfoSize, struct{}{})
	if err != nil {
		return 0, err
	}
	var n uint64
	cos.Unmarshal(resp.Payload, &n)
	return n, nil
}

func (c *Client) GetMemServerInfo(ctx context.Context) ([]byte, error) {
	resp, err := c.call(ctx, opGetMemServerInfo, struct{}{})
	if err != nil {
		return nil, err
	}
	var b []byte
	cos.Unmarshal(resp.Payload, &b)
	return b, nil
}

var _ cis.Client = (*Client)(nil)
