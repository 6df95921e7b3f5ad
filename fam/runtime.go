// Package fam wires every other package into the top-level runtime object
// applications actually construct (spec.md §4.7, §6): one Runtime per
// process, holding the CIS client, the CRM's resource table and garbage
// queue, the Allocator Client, and a default Context. Additional contexts
// can be opened from it for isolated outstanding-ops accounting.
//
// Grounded on spec.md §4.7 and, for the "one long-lived object wiring
// owner/sub-components together" shape, on the teacher's proxy/target
// structs visible through field access like p.owner.bmd/p.owner.smap/p.gmm
// in ais/prxs3.go.
package fam

import (
	"context"
	"os"
	"strconv"

	"github.com/openfam/fam-go/allocator"
	"github.com/openfam/fam-go/cis"
	"github.com/openfam/fam-go/cis/direct"
	"github.com/openfam/fam-go/cis/rpcstub"
	"github.com/openfam/fam-go/cmn/config"
	famerrors "github.com/openfam/fam-go/cmn/errors"
	"github.com/openfam/fam-go/cmn/nlog"
	"github.com/openfam/fam-go/crm"
	"github.com/openfam/fam-go/descriptor"
	"github.com/openfam/fam-go/transport"
	"github.com/openfam/fam-go/transport/loopback"
	"github.com/openfam/fam-go/transport/shm"
)

// Runtime is the PE-side entry point: it owns the CIS client, the CRM, the
// Allocator Client, and a default Context. config.CISInterfaceType and
// config.OpenFAMModel pick its two pluggable backends at construction time.
type Runtime struct {
	cfg *config.Config

	cisClient cis.Client
	fabric    transport.Fabric
	shmFabric *shm.Fabric // non-nil only when openfam_model = shared_memory, for Close

	table   *crm.Table
	garbage *crm.Garbage
	alloc   *allocator.Client

	uid, gid uint32

	*Context // the default context, embedded so Runtime itself exposes data-path ops
}

// New initializes a Runtime: loads cfg/configPath merged with opts, builds
// the transport fabric and CIS backend the config selects, and opens the
// default Context (spec.md §6 "Configuration is read from a discovered YAML
// file and may be overridden by an API-level options struct").
func New(configPath string, opts *config.Options, numMemoryServers uint64) (*Runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, famerrors.Wrap(famerrors.Invalid, err, "load config")
	}
	opts.Apply(cfg)

	fabric, shmFabric, err := newFabric(cfg, numMemoryServers)
	if err != nil {
		return nil, err
	}

	cisClient, err := newCISClient(cfg, fabric)
	if err != nil {
		return nil, err
	}

	garbage := crm.NewGarbage()
	table := crm.NewTable(garbage)
	alloc := allocator.New(cisClient, table, garbage)

	rt := &Runtime{
		cfg:       cfg,
		cisClient: cisClient,
		fabric:    fabric,
		shmFabric: shmFabric,
		table:     table,
		garbage:   garbage,
		alloc:     alloc,
		uid:       uint32(os.Getuid()),
		gid:       uint32(os.Getgid()),
	}
	rt.Context = newContext(rt, cfg.NumConsumer, defaultQueueDepth)
	nlog.Infof("[fam] runtime initialized: cis=%s openfam_model=%s num_consumer=%d",
		cfg.CISInterfaceType, cfg.OpenFAMModel, cfg.NumConsumer)
	return rt, nil
}

const defaultQueueDepth = 1024

func newFabric(cfg *config.Config, numMemoryServers uint64) (transport.Fabric, *shm.Fabric, error) {
	switch cfg.OpenFAMModel {
	case config.ModelSharedMemory:
		dir := cfg.IfDevice
		if dir == "" {
			dir = "/dev/shm/fam-go"
		}
		f, err := shm.New(dir, numMemoryServers)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	default: // config.ModelMemoryServer
		return loopback.New(numMemoryServers), nil, nil
	}
}

func newCISClient(cfg *config.Config, fabric transport.Fabric) (cis.Client, error) {
	switch cfg.CISInterfaceType {
	case config.CISRPC:
		target := cfg.CISServer
		if cfg.GRPCPort != 0 {
			target = cfg.CISServer + ":" + strconv.Itoa(cfg.GRPCPort)
		}
		return rpcstub.Dial(target)
	default: // config.CISDirect
		return direct.New(fabric)
	}
}

// Finalize closes the default context's engine (running every op still
// queued), releases every entry left in the CRM table, drains the garbage
// queue, and closes the fabric/CIS handles. Releasing a table entry is local
// to this process: no server-side close is issued for it. Call Finalize once;
// a second call panics closing the already-closed engine.
func (rt *Runtime) Finalize(ctx context.Context) error {
	rt.Context.engine.Close()
	rt.table.CloseAll()
	rt.garbage.Drain()
	if closer, ok := rt.cisClient.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			return err
		}
	}
	if rt.shmFabric != nil {
		return rt.shmFabric.Close()
	}
	return nil
}

// Abort performs the same teardown as Finalize: queued async ops are still
// run to completion before the engine stops, and no single op is cancelled
// (spec.md §5 "Cancellation ... not supported at the API level").
func (rt *Runtime) Abort(ctx context.Context) error {
	return rt.Finalize(ctx)
}

// --- region/item lifecycle: straight delegation to the Allocator Client ---

func (rt *Runtime) CreateRegion(ctx context.Context, name string, size uint64, perm uint32, attrs cis.RegionAttrs) (*descriptor.RegionDescriptor, error) {
	return rt.alloc.CreateRegion(ctx, name, size, perm, attrs, rt.uid, rt.gid)
}

func (rt *Runtime) DestroyRegion(ctx context.Context, rd *descriptor.RegionDescriptor) error {
	return rt.alloc.DestroyRegion(ctx, rd, rt.uid, rt.gid)
}

func (rt *Runtime) ResizeRegion(ctx context.Context, rd *descriptor.RegionDescriptor, size uint64) error {
	return rt.alloc.ResizeRegion(ctx, rd, size, rt.uid, rt.gid)
}

func (rt *Runtime) LookupRegion(ctx context.Context, name string) (*descriptor.RegionDescriptor, error) {
	return rt.alloc.LookupRegion(ctx, name)
}

func (rt *Runtime) Allocate(ctx context.Context, rd *descriptor.RegionDescriptor, name string, size uint64, perm uint32) (*descriptor.DataItemDescriptor, error) {
	return rt.alloc.Allocate(ctx, rd, name, size, perm, rt.uid, rt.gid)
}

func (rt *Runtime) Deallocate(ctx context.Context, item *descriptor.DataItemDescriptor) error {
	return rt.alloc.Deallocate(ctx, item, rt.uid, rt.gid)
}

func (rt *Runtime) Lookup(ctx context.Context, itemName, regionName string) (*descriptor.DataItemDescriptor, error) {
	return rt.alloc.Lookup(ctx, itemName, regionName)
}

// --- context lifecycle ---

// OpenContext opens a fresh Context sharing this Runtime's Allocator Client
// and CRM but with its own async engine, so its quiet/fence never blocks on
// another context's work (spec.md §4.7).
func (rt *Runtime) OpenContext(numConsumer int) *Context {
	if numConsumer <= 0 {
		numConsumer = rt.cfg.NumConsumer
	}
	return newContext(rt, numConsumer, defaultQueueDepth)
}

// CloseContext releases ctx's async engine. Closing the Runtime's own
// default context is a no-op here; Finalize handles that one.
func (rt *Runtime) CloseContext(ctx *Context) {
	if ctx == rt.Context {
		return
	}
	ctx.engine.Close()
}
