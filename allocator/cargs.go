package allocator

import (
	"sync"

	"github.com/openfam/fam-go/cis"
)

// Call-argument pooling, adapted from the teacher's allocCargs/freeCargs
// pattern: reuse the struct that's about to be filled in and handed to the
// CIS instead of allocating one per call on a path that runs once per
// create/copy.

type regionArgsHolder struct {
	attrs cis.RegionAttrs
}

var regionArgsPool = sync.Pool{
	New: func() any { return &regionArgsHolder{} },
}

func getRegionArgs() *regionArgsHolder {
	return regionArgsPool.Get().(*regionArgsHolder)
}

func putRegionArgs(a *regionArgsHolder) {
	*a = regionArgsHolder{}
	regionArgsPool.Put(a)
}

var copyArgsPool = sync.Pool{
	New: func() any { return &cis.CopyArgs{} },
}

func getCopyArgs() *cis.CopyArgs {
	return copyArgsPool.Get().(*cis.CopyArgs)
}

func putCopyArgs(a *cis.CopyArgs) {
	*a = cis.CopyArgs{}
	copyArgsPool.Put(a)
}
