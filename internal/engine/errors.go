package engine

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures so the CLI can report them uniformly.
type Kind int

const (
	KindIdentity Kind = iota + 1
	KindDocumentParse
	KindSelectionMissing
	KindLockState
	KindSnapshotIO
	KindFetchBatch
)

func (k Kind) String() string {
	switch k {
	case KindIdentity:
		return "identity resolution failed"
	case KindDocumentParse:
		return "document parse failed"
	case KindSelectionMissing:
		return "selection missing"
	case KindLockState:
		return "invalid lock state"
	case KindSnapshotIO:
		return "snapshot write failed"
	case KindFetchBatch:
		return "fetch failed"
	default:
		return "unknown failure"
	}
}

// Error is the tagged failure every engine operation returns instead of an
// untyped error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err carries the given failure kind.
func IsKind(err error, kind Kind) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Kind == kind
}

func errf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}
