package commands

import (
	"context"

	"pharmaqueue/internal/core/ports"
)

// SubmitCheckResult reports the check count after the submission and whether
// the double-check gate is now open.
type SubmitCheckResult struct {
	OrderID       int64 `json:"orderId"`
	ChecksCount   int   `json:"checksCount"`
	GateSatisfied bool  `json:"gateSatisfied"`
}

// SubmitCheckCommandHandler appends a double check through the store. Advancing
// the order once the gate opens is left to the caller.
type SubmitCheckCommandHandler struct {
	gateway ports.WorkflowGateway
}

func NewSubmitCheckCommandHandler(gateway ports.WorkflowGateway) SubmitCheckCommandHandler {
	return SubmitCheckCommandHandler{gateway: gateway}
}

func (h SubmitCheckCommandHandler) Handle(ctx context.Context, command SubmitCheckCommand) (SubmitCheckResult, error) {
	if err := command.Validate(); err != nil {
		return SubmitCheckResult{}, err
	}

	resp, err := h.gateway.AddCheck(ctx, command.Actor(), command.OrderID(), command.Notes())
	if err != nil {
		return SubmitCheckResult{}, remoteCallFailed("add check", err)
	}

	if !resp.Success {
		return SubmitCheckResult{}, &CheckRejectedError{
			OrderID: command.OrderID(),
			Code:    resp.Code,
			Message: resp.Error,
		}
	}

	return SubmitCheckResult{
		OrderID:       command.OrderID(),
		ChecksCount:   resp.ChecksCount,
		GateSatisfied: resp.CanAdvance,
	}, nil
}
