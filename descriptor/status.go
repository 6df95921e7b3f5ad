// Package descriptor holds the caller-facing value types that identify a
// region or a data item and cache its placement metadata (spec.md §4.1).
// Descriptors own no remote resources directly — the Client Resource Manager
// does; see the "Cyclic ownership" design note in spec.md §9.
package descriptor

// Status is a descriptor's rehydration state. It may only progress forward:
// Uninit -> InitDoneKeyInvalid -> InitDone -> Invalid (spec.md §8
// "Descriptor monotonicity").
type Status int

const (
	Uninit Status = iota
	InitDoneKeyInvalid
	InitDone
	Invalid
)

func (s Status) String() string {
	switch s {
	case Uninit:
		return "UNINIT"
	case InitDoneKeyInvalid:
		return "INIT_DONE_BUT_KEY_NOT_VALID"
	case InitDone:
		return "INIT_DONE"
	case Invalid:
		return "INVALID"
	default:
		return "UNKNOWN_STATUS"
	}
}

// CanAdvanceTo reports whether a transition from s to next respects the
// monotonicity invariant (forward-only, Invalid is terminal).
func (s Status) CanAdvanceTo(next Status) bool {
	if s == Invalid {
		return false
	}
	return next >= s
}
