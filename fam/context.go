package fam

import (
	"context"

	"github.com/openfam/fam-go/async"
	"github.com/openfam/fam-go/cis"
	famerrors "github.com/openfam/fam-go/cmn/errors"
	"github.com/openfam/fam-go/dataplane"
	"github.com/openfam/fam-go/descriptor"
)

// Context is an independent outstanding-ops arena spawned from a Runtime
// (spec.md §4.7): it reuses the parent's Allocator Client and CRM but owns
// its own async.Engine, so its Quiet/Fence never order against, or wait on,
// another context's submissions. The embedded *dataplane.Handle is the
// actual put/get/scatter/gather/atomics surface; Context adds only the
// mutating-API NOPERM guard and engine lifetime.
type Context struct {
	rt     *Runtime
	engine *async.Engine
	*dataplane.Handle
}

func newContext(rt *Runtime, numConsumer, queueDepth int) *Context {
	engine := async.New(rt.fabric, rt.cisClient, numConsumer, queueDepth)
	return &Context{
		rt:     rt,
		engine: engine,
		Handle: &dataplane.Handle{
			Alloc:  rt.alloc,
			Fabric: rt.fabric,
			Engine: engine,
			CAS:    rt.cisClient,
			UID:    rt.uid,
			GID:    rt.gid,
		},
	}
}

// errNotOnContext is returned by every mutating API below when called
// through a *Context rather than the owning *Runtime (spec.md §4.7:
// "Mutating APIs ... are not valid on a context — they fail with NOPERM").
var errNotOnContext = famerrors.New(famerrors.NoPerm, "not valid on a Context; call this on the owning Runtime")

func (c *Context) Initialize(context.Context) error { return errNotOnContext }
func (c *Context) Finalize(context.Context) error   { return errNotOnContext }
func (c *Context) Abort(context.Context) error       { return errNotOnContext }

func (c *Context) CreateRegion(context.Context, string, uint64, uint32, cis.RegionAttrs) (*descriptor.RegionDescriptor, error) {
	return nil, errNotOnContext
}
func (c *Context) DestroyRegion(context.Context, *descriptor.RegionDescriptor) error {
	return errNotOnContext
}
func (c *Context) ResizeRegion(context.Context, *descriptor.RegionDescriptor, uint64) error {
	return errNotOnContext
}
func (c *Context) Allocate(context.Context, *descriptor.RegionDescriptor, string, uint64, uint32) (*descriptor.DataItemDescriptor, error) {
	return nil, errNotOnContext
}
func (c *Context) Deallocate(context.Context, *descriptor.DataItemDescriptor) error {
	return errNotOnContext
}
func (c *Context) OpenContext(int) (*Context, error) { return nil, errNotOnContext }
func (c *Context) CloseContext(*Context) error       { return errNotOnContext }

// Copy/Backup/Restore/DeleteBackup are read/data operations, not lifecycle
// mutations, so they ARE valid on a Context — they go straight through the
// parent's Allocator Client and return its CIS wait token. They are not
// submitted to this context's engine, so its Quiet/Fence do not wait for
// them.

func (c *Context) Copy(ctx context.Context, src *descriptor.DataItemDescriptor, srcStart uint64, dst *descriptor.DataItemDescriptor, dstStart, bytes uint64) (cis.WaitToken, error) {
	return c.rt.alloc.Copy(ctx, src, srcStart, dst, dstStart, bytes, c.rt.uid, c.rt.gid)
}
func (c *Context) WaitForCopy(ctx context.Context, tok cis.WaitToken) error {
	return c.rt.alloc.WaitForCopy(ctx, tok)
}
func (c *Context) Backup(ctx context.Context, item *descriptor.DataItemDescriptor, backupName string) (cis.WaitToken, error) {
	return c.rt.alloc.Backup(ctx, item, backupName, c.rt.uid, c.rt.gid)
}
func (c *Context) WaitForBackup(ctx context.Context, tok cis.WaitToken) error {
	return c.rt.alloc.WaitForBackup(ctx, tok)
}
func (c *Context) Restore(ctx context.Context, backupName string, item *descriptor.DataItemDescriptor) (cis.WaitToken, error) {
	return c.rt.alloc.Restore(ctx, backupName, item, c.rt.uid, c.rt.gid)
}
func (c *Context) WaitForRestore(ctx context.Context, tok cis.WaitToken) error {
	return c.rt.alloc.WaitForRestore(ctx, tok)
}
func (c *Context) DeleteBackup(ctx context.Context, name string) (cis.WaitToken, error) {
	return c.rt.alloc.DeleteBackup(ctx, name, c.rt.uid, c.rt.gid)
}
func (c *Context) WaitForDeleteBackup(ctx context.Context, tok cis.WaitToken) error {
	return c.rt.alloc.WaitForDeleteBackup(ctx, tok)
}
