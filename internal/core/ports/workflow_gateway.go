package ports

import (
	"context"
	"encoding/json"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"
)

// Error codes returned by the store's guarded workflow calls.
const (
	CodeInvalidTransition  = "invalid_transition"
	CodeDoubleCheckPending = "double_check_pending"
	CodeAlreadyAssigned    = "already_assigned"
	CodeNotFound           = "not_found"
	CodeInvalidState       = "invalid_state"
	CodeDuplicateChecker   = "duplicate_checker"
)

// StatusChangeRequest asks the store to move an order to To.
type StatusChangeRequest struct {
	OrderID  int64
	To       order.Status
	Reason   string
	Metadata json.RawMessage
}

// StatusChangeResponse is the store's verdict on a status change. A rejected
// change carries Success=false with a Code and a human-readable Error.
type StatusChangeResponse struct {
	Success        bool         `json:"success"`
	Error          string       `json:"error,omitempty"`
	Code           string       `json:"code,omitempty"`
	From           order.Status `json:"from,omitempty"`
	To             order.Status `json:"to,omitempty"`
	ChecksCount    int          `json:"checks_count,omitempty"`
	RequiredChecks int          `json:"required_checks,omitempty"`
}

// ClaimResponse is the store's verdict on a claim.
type ClaimResponse struct {
	Success    bool         `json:"success"`
	Error      string       `json:"error,omitempty"`
	Code       string       `json:"code,omitempty"`
	AssignedTo *kernel.UUID `json:"assigned_to,omitempty"`
}

// CheckResponse is the store's verdict on a double-check submission.
type CheckResponse struct {
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	Code        string `json:"code,omitempty"`
	ChecksCount int    `json:"checks_count"`
	CanAdvance  bool   `json:"can_advance"`
}

// WorkflowGateway performs the guarded, atomic mutations of an order. Every
// call is all-or-nothing on the store side. A non-nil error means the call
// itself failed (transport, decoding); a business rejection is reported in
// the response with Success=false.
type WorkflowGateway interface {
	// SetStatus moves the order to req.To if it is the legal next step and,
	// when leaving checking with high-alert items, the double check is complete.
	SetStatus(ctx context.Context, actor kernel.UUID, req StatusChangeRequest) (StatusChangeResponse, error)

	// Claim sets the assignee to actor unless someone else already holds it.
	Claim(ctx context.Context, actor kernel.UUID, orderID int64) (ClaimResponse, error)

	// AddCheck appends a high-alert check by actor and reports the new count
	// and whether the gate is now satisfied.
	AddCheck(ctx context.Context, actor kernel.UUID, orderID int64, notes string) (CheckResponse, error)
}
