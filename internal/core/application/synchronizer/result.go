package synchronizer

import (
	"errors"

	"pharmaqueue/internal/core/application/usecases/commands"
	"pharmaqueue/internal/pkg/errs"
	"pharmaqueue/internal/pkg/guard"
)

// ErrorKind classifies a failed operation for the presentation layer.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindValidation         ErrorKind = "validation"
	KindNotFound           ErrorKind = "not_found"
	KindTransitionRejected ErrorKind = "transition_rejected"
	KindDoubleCheckPending ErrorKind = "double_check_pending"
	KindClaimConflict      ErrorKind = "claim_conflict"
	KindCheckRejected      ErrorKind = "check_rejected"
	KindRemote             ErrorKind = "remote"
	KindUnavailable        ErrorKind = "unavailable"
	KindInternal           ErrorKind = "internal"
)

// Result is what every presentation-facing operation returns: a success flag
// with either data or a short human-readable error and its kind.
type Result[T any] struct {
	OK    bool      `json:"success"`
	Data  T         `json:"data,omitempty"`
	Error string    `json:"error,omitempty"`
	Kind  ErrorKind `json:"errorKind,omitempty"`
}

func ok[T any](data T) Result[T] {
	return Result[T]{OK: true, Data: data}
}

func fail[T any](err error) Result[T] {
	kind, msg := classify(err)
	return Result[T]{Error: msg, Kind: kind}
}

// Err rebuilds an error from a failed result, or nil on success.
func (r Result[T]) Err() error {
	if r.OK {
		return nil
	}
	return errors.New(r.Error)
}

func classify(err error) (ErrorKind, string) {
	switch {
	case errors.Is(err, commands.ErrDoubleCheckPending):
		return KindDoubleCheckPending, err.Error()
	case errors.Is(err, commands.ErrClaimConflict):
		return KindClaimConflict, err.Error()
	case errors.Is(err, commands.ErrTransitionRejected):
		return KindTransitionRejected, err.Error()
	case errors.Is(err, commands.ErrCheckRejected):
		return KindCheckRejected, err.Error()
	case errors.Is(err, errs.ErrObjectNotFound):
		return KindNotFound, err.Error()
	case errors.Is(err, commands.ErrRemoteCallFailed):
		return KindRemote, "the order store could not be reached, try again"
	case errors.Is(err, ErrNotRunning):
		return KindUnavailable, err.Error()
	case errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsOutOfRange),
		errors.Is(err, guard.ErrDefaultConstructorGuard):
		return KindValidation, err.Error()
	}
	return KindInternal, err.Error()
}
