// Package errors defines the FAM error-code taxonomy (spec.md §6/§7) and
// wraps underlying causes with github.com/pkg/errors so stack traces survive
// through the CIS/allocator/async layers.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

type Code int

const (
	NoError Code = iota
	Unknown
	NoPerm
	Timeout
	Invalid
	Libfabric
	SHM
	NotFound
	AlreadyExist
	Allocator
	RPC
	PMI
	OutOfRange
	NullPtr
	Unimplemented
	Resource
	InvalidOp
	RPCClientNotFound
	MemservListEmpty
	AtomicQueueFull
	AtomicQueueInsert
)

func (c Code) String() string {
	switch c {
	case NoError:
		return "NO_ERROR"
	case Unknown:
		return "UNKNOWN"
	case NoPerm:
		return "NOPERM"
	case Timeout:
		return "TIMEOUT"
	case Invalid:
		return "INVALID"
	case Libfabric:
		return "LIBFABRIC"
	case SHM:
		return "SHM"
	case NotFound:
		return "NOTFOUND"
	case AlreadyExist:
		return "ALREADYEXIST"
	case Allocator:
		return "ALLOCATOR"
	case RPC:
		return "RPC"
	case PMI:
		return "PMI"
	case OutOfRange:
		return "OUTOFRANGE"
	case NullPtr:
		return "NULLPTR"
	case Unimplemented:
		return "UNIMPL"
	case Resource:
		return "RESOURCE"
	case InvalidOp:
		return "INVALIDOP"
	case RPCClientNotFound:
		return "RPC_CLIENT_NOTFOUND"
	case MemservListEmpty:
		return "MEMSERV_LIST_EMPTY"
	case AtomicQueueFull:
		return "ATOMIC_QUEUE_FULL"
	case AtomicQueueInsert:
		return "ATOMIC_QUEUE_INSERT"
	default:
		return "UNKNOWN"
	}
}

// Error is the runtime's error type: a code plus a wrapped cause.
type Error struct {
	Code Code
	msg  string
	err  error
}

func New(code Code, msg string) *Error {
	return &Error{Code: code, msg: msg, err: pkgerrors.New(msg)}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code to an existing cause, preserving its stack via pkg/errors.
func Wrap(code Code, cause error, msg string) *Error {
	if cause == nil {
		return New(code, msg)
	}
	return &Error{Code: code, msg: msg, err: pkgerrors.Wrap(cause, msg)}
}

func (e *Error) Error() string {
	if e.msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// Is supports errors.Is code comparisons: any *Error target with the same
// Code matches, typically one built by Sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf extracts the Code from err, or Unknown if err is not one of ours.
func CodeOf(err error) Code {
	var fe *Error
	if pkgerrors.As(err, &fe) {
		return fe.Code
	}
	if err == nil {
		return NoError
	}
	return Unknown
}

// Sentinel returns a zero-message *Error for use with errors.Is comparisons,
// e.g. errors.Is(err, Sentinel(OutOfRange)).
func Sentinel(code Code) *Error { return &Error{Code: code} }
