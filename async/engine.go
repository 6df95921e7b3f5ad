// Package async is the Async Operation Engine (spec.md §4.5): a bounded ops
// queue serviced by a fixed consumer pool, with per-class completion
// counters and per-op wait tags so callers can fire-and-forget a data-path
// or CIS-triggered operation and later block only on the ones they still
// care about (quiet/fence).
//
// Grounded on original_source/src/allocator/fam_async_qhandler.cpp/.h: the
// queue-plus-fixed-consumer-pool shape and the read/write completion
// counters are reproduced here; golang.org/x/sync/errgroup stands in for
// the per-memory-server worker fan-out that file hand-rolls with threads.
package async

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/openfam/fam-go/cis"
	atomicpkg "github.com/openfam/fam-go/cmn/atomic"
	famerrors "github.com/openfam/fam-go/cmn/errors"
	"github.com/openfam/fam-go/cmn/nlog"
	"github.com/openfam/fam-go/descriptor"
	"github.com/openfam/fam-go/transport"
)

type classCounters struct {
	submitted atomicpkg.Int64
	completed atomicpkg.Int64
	errors    atomicpkg.Int64

	// cq is the per-class completion queue spec.md §4.5 describes: failed
	// ops are parked here and drained by the next Quiet/Fence, which reports
	// the first non-OK error (spec.md §7 "the very next quiet ... surfaces
	// the first such error and clears the queue").
	cqMu sync.Mutex
	cq   []error
}

func (c *classCounters) pushErr(err error) {
	c.cqMu.Lock()
	c.cq = append(c.cq, err)
	c.cqMu.Unlock()
}

// drain empties the completion queue and returns the first error found, if
// any.
func (c *classCounters) drain() error {
	c.cqMu.Lock()
	defer c.cqMu.Unlock()
	var first error
	for _, e := range c.cq {
		if first == nil {
			first = e
		}
	}
	c.cq = c.cq[:0]
	return first
}

type request struct {
	kind OpKind
	tag  *Tag
	op   any
}

// Engine owns the ops queue and its consumer pool. One Engine per Context
// (spec.md §4.7): a Context's async work never blocks on another Context's.
type Engine struct {
	fabric transport.Fabric
	cis    cis.Client

	queue chan *request

	wg       sync.WaitGroup
	counters [numKinds]*classCounters
	tagSeq   atomicpkg.Uint64

	quietMu sync.Mutex
	quietCv *sync.Cond
}

// New starts an Engine with numConsumer goroutines draining a queue of
// depth queueDepth.
func New(fabric transport.Fabric, cisClient cis.Client, numConsumer, queueDepth int) *Engine {
	if numConsumer <= 0 {
		numConsumer = 1
	}
	if queueDepth <= 0 {
		queueDepth = 1
	}
	e := &Engine{
		fabric: fabric,
		cis:    cisClient,
		queue:  make(chan *request, queueDepth),
	}
	e.quietCv = sync.NewCond(&e.quietMu)
	for i := range e.counters {
		e.counters[i] = &classCounters{}
	}
	for i := 0; i < numConsumer; i++ {
		e.wg.Add(1)
		go e.consume()
	}
	return e
}

func (e *Engine) consume() {
	defer e.wg.Done()
	for req := range e.queue {
		err := e.handle(context.Background(), req)
		c := e.counters[req.kind]
		c.completed.Inc()
		if err != nil {
			c.errors.Inc()
			c.pushErr(err)
		}
		req.tag.complete(err)
		e.quietMu.Lock()
		e.quietCv.Broadcast()
		e.quietMu.Unlock()
	}
}

func (e *Engine) submit(kind OpKind, op any) *Tag {
	tag := newTag(e.tagSeq.Inc(), kind)
	e.counters[kind].submitted.Inc()
	e.queue <- &request{kind: kind, tag: tag, op: op}
	return tag
}

// trySubmit is the non-blocking variant: it fails with AtomicQueueFull
// instead of blocking the caller when the queue is saturated.
func (e *Engine) trySubmit(kind OpKind, op any) (*Tag, error) {
	tag := newTag(e.tagSeq.Inc(), kind)
	req := &request{kind: kind, tag: tag, op: op}
	select {
	case e.queue <- req:
		e.counters[kind].submitted.Inc()
		return tag, nil
	default:
		return nil, famerrors.New(famerrors.AtomicQueueFull, "async ops queue full")
	}
}

func (e *Engine) SubmitWrite(op WriteOp) *Tag             { return e.submit(KindWrite, op) }
func (e *Engine) SubmitRead(op ReadOp) *Tag                { return e.submit(KindRead, op) }
func (e *Engine) SubmitCopy(op CopyOp) *Tag                 { return e.submit(KindCopy, op) }
func (e *Engine) SubmitBackup(op BackupOp) *Tag              { return e.submit(KindBackup, op) }
func (e *Engine) SubmitRestore(op RestoreOp) *Tag             { return e.submit(KindRestore, op) }
func (e *Engine) SubmitDeleteBackup(op DeleteBackupOp) *Tag    { return e.submit(KindDeleteBackup, op) }

func (e *Engine) TrySubmitWrite(op WriteOp) (*Tag, error) { return e.trySubmit(KindWrite, op) }
func (e *Engine) TrySubmitRead(op ReadOp) (*Tag, error)   { return e.trySubmit(KindRead, op) }

// Counts returns (submitted, completed, errors) for kind.
func (e *Engine) Counts(kind OpKind) (submitted, completed, errs int64) {
	c := e.counters[kind]
	return c.submitted.Load(), c.completed.Load(), c.errors.Load()
}

// Quiet blocks until every submitted op across all classes has completed,
// then drains each class's completion queue and reports the first non-OK
// error found, if any (spec.md §4.5 "drains the class's completion queue;
// the first non-OK error becomes the reported failure"). Fence has the same
// semantics in this runtime: it calls Quiet, so it waits for every
// outstanding op to complete rather than only ordering later ops after
// earlier ones.
func (e *Engine) Quiet(ctx context.Context) error {
	e.quietMu.Lock()
	for !e.isQuiet() {
		waitCh := make(chan struct{})
		go func() {
			e.quietCv.Wait()
			e.quietMu.Unlock()
			close(waitCh)
		}()
		select {
		case <-waitCh:
		case <-ctx.Done():
			return ctx.Err()
		}
		e.quietMu.Lock()
	}
	e.quietMu.Unlock()

	var first error
	for _, c := range e.counters {
		if err := c.drain(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (e *Engine) Fence(ctx context.Context) error { return e.Quiet(ctx) }

func (e *Engine) isQuiet() bool {
	for _, c := range e.counters {
		if c.submitted.Load() != c.completed.Load() {
			return false
		}
	}
	return true
}

// Close stops accepting new submissions (a submit after Close panics on the
// closed queue) and waits until the consumers have run every op already
// queued. Calling Close twice panics.
func (e *Engine) Close() {
	close(e.queue)
	e.wg.Wait()
}

// handle dispatches one request to its fabric/CIS operation.
func (e *Engine) handle(ctx context.Context, req *request) error {
	switch req.kind {
	case KindWrite:
		op := req.op.(WriteOp)
		return e.stripeWrite(ctx, op.Item, op.Offset, op.Data)
	case KindRead:
		op := req.op.(ReadOp)
		return e.stripeRead(ctx, op.Item, op.Offset, op.Buf)
	case KindCopy:
		op := req.op.(CopyOp)
		tok, err := e.cis.Copy(ctx, op.Args)
		if err != nil {
			return err
		}
		return e.cis.WaitForCopy(ctx, tok)
	case KindBackup:
		op := req.op.(BackupOp)
		tok, err := e.cis.Backup(ctx, op.Args)
		if err != nil {
			return err
		}
		return e.cis.WaitForBackup(ctx, tok)
	case KindRestore:
		op := req.op.(RestoreOp)
		tok, err := e.cis.Restore(ctx, op.Args)
		if err != nil {
			return err
		}
		return e.cis.WaitForRestore(ctx, tok)
	case KindDeleteBackup:
		op := req.op.(DeleteBackupOp)
		tok, err := e.cis.DeleteBackup(ctx, op.Name, op.UID, op.GID)
		if err != nil {
			return err
		}
		return e.cis.WaitForDeleteBackup(ctx, tok)
	default:
		return famerrors.Newf(famerrors.Invalid, "unknown op kind %v", req.kind)
	}
}

// stripeWrite/stripeRead fan a logically contiguous [offset, offset+len)
// transfer out across an interleaved item's extents, one stripe-sized chunk
// at a time, concurrently per chunk via errgroup (one goroutine per extent
// touched, not per byte).
func (e *Engine) stripeWrite(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, data []byte) error {
	chunks := splitStripes(item, offset, uint64(len(data)))
	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range chunks {
		ch := ch
		g.Go(func() error {
			sub := data[ch.bufStart:ch.bufEnd]
			return e.fabric.Put(gctx, ch.serverID, ch.key, ch.base, ch.inExtent, sub)
		})
	}
	if err := g.Wait(); err != nil {
		nlog.Warningf("[async] stripeWrite item=%q failed: %v", item.Name, err)
		return err
	}
	return nil
}

func (e *Engine) stripeRead(ctx context.Context, item *descriptor.DataItemDescriptor, offset uint64, buf []byte) error {
	chunks := splitStripes(item, offset, uint64(len(buf)))
	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range chunks {
		ch := ch
		g.Go(func() error {
			sub := buf[ch.bufStart:ch.bufEnd]
			return e.fabric.Get(gctx, ch.serverID, ch.key, ch.base, ch.inExtent, sub)
		})
	}
	if err := g.Wait(); err != nil {
		nlog.Warningf("[async] stripeRead item=%q failed: %v", item.Name, err)
		return err
	}
	return nil
}

type stripeChunk struct {
	serverID, key, base, inExtent uint64
	bufStart, bufEnd              uint64
}

// splitStripes walks [offset, offset+length) one interleave stripe at a
// time, resolving each stripe to its owning extent via the descriptor's own
// ExtentFor so the engine and the descriptor never disagree about layout.
func splitStripes(item *descriptor.DataItemDescriptor, offset, length uint64) []stripeChunk {
	if length == 0 {
		return nil
	}
	stripeSize := item.InterleaveSize
	if stripeSize == 0 {
		stripeSize = length
	}
	var out []stripeChunk
	pos := offset
	end := offset + length
	for pos < end {
		stripeBoundary := ((pos / stripeSize) + 1) * stripeSize
		chunkEnd := end
		if stripeBoundary < chunkEnd {
			chunkEnd = stripeBoundary
		}
		idx, startInExtent := item.ExtentFor(pos)
		if idx >= len(item.MemoryServerIDs) {
			idx = 0
		}
		out = append(out, stripeChunk{
			serverID: item.MemoryServerIDs[idx],
			key:      valueOr(item.Keys, idx),
			base:     valueOr(item.BaseAddrs, idx),
			inExtent: startInExtent,
			bufStart: pos - offset,
			bufEnd:   chunkEnd - offset,
		})
		pos = chunkEnd
	}
	return out
}

func valueOr(s []uint64, i int) uint64 {
	if i < 0 || i >= len(s) {
		return 0
	}
	return s[i]
}
