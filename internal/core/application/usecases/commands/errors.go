package commands

import (
	"errors"
	"fmt"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/ports"
	"pharmaqueue/internal/pkg/errs"
)

var (
	// ErrTransitionRejected is matched by every rejected status change.
	ErrTransitionRejected = errors.New("transition rejected")

	// ErrDoubleCheckPending is matched when a high-alert order tried to leave
	// checking before the double check was complete. Callers should open the
	// check dialog instead of reporting a failure.
	ErrDoubleCheckPending = errors.New("double check pending")

	// ErrClaimConflict is matched when the order is assigned to someone else.
	ErrClaimConflict = errors.New("order already assigned")

	// ErrCheckRejected is matched by every rejected double-check submission.
	ErrCheckRejected = errors.New("check rejected")

	// ErrDuplicateChecker is matched when the actor already checked the order.
	ErrDuplicateChecker = errors.New("actor already checked this order")

	// ErrRemoteCallFailed wraps transport failures of workflow calls.
	ErrRemoteCallFailed = errors.New("remote call failed")
)

// TransitionRejectedError describes a status change the store or the local
// adjacency check refused. It matches ErrTransitionRejected and, depending on
// Code, ErrDoubleCheckPending or errs.ErrObjectNotFound.
type TransitionRejectedError struct {
	OrderID        int64
	From           order.Status
	To             order.Status
	Code           string
	Message        string
	ChecksCount    int
	RequiredChecks int
	// Local is true when the request never left the process.
	Local bool
}

func (e *TransitionRejectedError) Error() string {
	msg := fmt.Sprintf("%s: order %d to %s", ErrTransitionRejected, e.OrderID, e.To)
	if e.Code == ports.CodeDoubleCheckPending {
		return fmt.Sprintf("%s: %s (%d of %d checks)", msg, ErrDoubleCheckPending, e.ChecksCount, e.RequiredChecks)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *TransitionRejectedError) Unwrap() []error {
	wrapped := []error{ErrTransitionRejected}
	switch e.Code {
	case ports.CodeDoubleCheckPending:
		wrapped = append(wrapped, ErrDoubleCheckPending)
	case ports.CodeNotFound:
		wrapped = append(wrapped, errs.ErrObjectNotFound)
	}
	return wrapped
}

// IsDoubleCheckPending reports whether the rejection came from the double-check gate.
func (e *TransitionRejectedError) IsDoubleCheckPending() bool {
	return e.Code == ports.CodeDoubleCheckPending
}

// ClaimConflictError reports a claim lost to another actor.
type ClaimConflictError struct {
	OrderID    int64
	AssignedTo *kernel.UUID
	Message    string
}

func (e *ClaimConflictError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: order %d: %s", ErrClaimConflict, e.OrderID, e.Message)
	}
	return fmt.Sprintf("%s: order %d", ErrClaimConflict, e.OrderID)
}

func (e *ClaimConflictError) Unwrap() error {
	return ErrClaimConflict
}

// CheckRejectedError reports a double-check submission the store refused.
type CheckRejectedError struct {
	OrderID int64
	Code    string
	Message string
}

func (e *CheckRejectedError) Error() string {
	msg := fmt.Sprintf("%s: order %d", ErrCheckRejected, e.OrderID)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *CheckRejectedError) Unwrap() []error {
	wrapped := []error{ErrCheckRejected}
	switch e.Code {
	case ports.CodeDuplicateChecker:
		wrapped = append(wrapped, ErrDuplicateChecker)
	case ports.CodeNotFound:
		wrapped = append(wrapped, errs.ErrObjectNotFound)
	}
	return wrapped
}

func remoteCallFailed(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRemoteCallFailed, op, err)
}
