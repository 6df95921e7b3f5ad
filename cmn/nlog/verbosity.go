package nlog

import "sync/atomic"

// Smodule identifies a subsystem for per-module verbosity gating, mirroring
// the teacher's cos.SmoduleXxx constants (e.g. cos.SmoduleS3, cos.SmoduleMirror).
type Smodule int

const (
	SmoduleCRM Smodule = iota
	SmoduleAllocator
	SmoduleAsync
	SmoduleDataplane
	SmoduleCIS
	SmoduleTransport
	smoduleCount
)

var verbosity [smoduleCount]atomic.Int64

// SetVerbosity sets the verbosity level for a module; higher means chattier.
func SetVerbosity(m Smodule, level int64) { verbosity[m].Store(level) }

// FastV reports whether logging at the given level is enabled for module m.
// Named FastV (not V) to match the teacher's cmn.Rom.FastV call sites.
func FastV(level int64, m Smodule) bool { return verbosity[m].Load() >= level }
