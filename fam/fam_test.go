package fam_test

import (
	"context"
	"testing"

	"github.com/openfam/fam-go/cis"
	"github.com/openfam/fam-go/fam"
)

func newTestRuntime(t *testing.T) *fam.Runtime {
	t.Helper()
	rt, err := fam.New("", nil, 2)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	t.Cleanup(func() {
		if err := rt.Finalize(context.Background()); err != nil {
			t.Errorf("finalize: %v", err)
		}
	})
	return rt
}

func TestRuntimeRegionAndItemLifecycle(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t)

	rd, err := rt.CreateRegion(ctx, "region-one", 1<<20, 0o600, cis.RegionAttrs{})
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	item, err := rt.Allocate(ctx, rd, "item-one", 4096, 0o600)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if !item.Ready() {
		t.Fatal("expected item bound immediately after allocate")
	}

	if err := rt.Put(ctx, item, 0, []byte("hello fam")); err != nil {
		t.Fatalf("put: %v", err)
	}
	buf := make([]byte, len("hello fam"))
	if err := rt.Get(ctx, item, 0, buf); err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(buf) != "hello fam" {
		t.Fatalf("got %q, want %q", buf, "hello fam")
	}

	if err := rt.Deallocate(ctx, item); err != nil {
		t.Fatalf("deallocate: %v", err)
	}
	if err := rt.DestroyRegion(ctx, rd); err != nil {
		t.Fatalf("destroy region: %v", err)
	}
}

func TestOpenContextGetsIndependentAsyncEngine(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t)

	rd, err := rt.CreateRegion(ctx, "region-two", 1<<20, 0o600, cis.RegionAttrs{})
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	item, err := rt.Allocate(ctx, rd, "item-two", 4096, 0o600)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	child := rt.OpenContext(0)
	defer rt.CloseContext(child)

	tag, err := child.PutNonBlocking(ctx, item, 0, []byte("child context"))
	if err != nil {
		t.Fatalf("put non-blocking on child context: %v", err)
	}
	if err := tag.Wait(); err != nil {
		t.Fatalf("tag wait: %v", err)
	}

	// The child's Quiet only waits on its own engine; the runtime's default
	// context never submitted anything, so this must also return immediately.
	if err := rt.Quiet(ctx); err != nil {
		t.Fatalf("runtime quiet: %v", err)
	}
	if err := child.Quiet(ctx); err != nil {
		t.Fatalf("child quiet: %v", err)
	}
}

func TestMutatingAPIsFailOnContextButSucceedOnRuntime(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t)

	child := rt.OpenContext(0)
	defer rt.CloseContext(child)

	if _, err := child.CreateRegion(ctx, "should-fail", 1<<20, 0o600, cis.RegionAttrs{}); err == nil {
		t.Fatal("expected CreateRegion through a Context to fail")
	}

	rd, err := rt.CreateRegion(ctx, "should-succeed", 1<<20, 0o600, cis.RegionAttrs{})
	if err != nil {
		t.Fatalf("CreateRegion through the owning Runtime should succeed: %v", err)
	}
	if err := rt.DestroyRegion(ctx, rd); err != nil {
		t.Fatalf("destroy region: %v", err)
	}
}

func TestContextCopyIsValidDataMovementNotMutation(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t)

	rd, err := rt.CreateRegion(ctx, "region-three", 1<<20, 0o600, cis.RegionAttrs{})
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	src, err := rt.Allocate(ctx, rd, "src", 256, 0o600)
	if err != nil {
		t.Fatalf("allocate src: %v", err)
	}
	dst, err := rt.Allocate(ctx, rd, "dst", 256, 0o600)
	if err != nil {
		t.Fatalf("allocate dst: %v", err)
	}

	if err := rt.Put(ctx, src, 0, []byte("copy me")); err != nil {
		t.Fatalf("put: %v", err)
	}

	child := rt.OpenContext(0)
	defer rt.CloseContext(child)

	tok, err := child.Copy(ctx, src, 0, dst, 0, 7)
	if err != nil {
		t.Fatalf("copy through a context should be valid: %v", err)
	}
	if err := child.WaitForCopy(ctx, tok); err != nil {
		t.Fatalf("wait for copy: %v", err)
	}
}
