package commands

import (
	"context"

	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/ports"
)

// AdvanceStatusResult is the confirmed outcome of a status change.
type AdvanceStatusResult struct {
	OrderID int64        `json:"orderId"`
	From    order.Status `json:"from"`
	To      order.Status `json:"to"`
}

// AdvanceStatusCommandHandler requests a guarded status change from the store.
//
// Errors:
//   - *TransitionRejectedError when the local adjacency check or the store refuses
//     (errors.Is ErrDoubleCheckPending when the double check is incomplete)
//   - ErrRemoteCallFailed when the call itself fails
type AdvanceStatusCommandHandler struct {
	gateway ports.WorkflowGateway
}

func NewAdvanceStatusCommandHandler(gateway ports.WorkflowGateway) AdvanceStatusCommandHandler {
	return AdvanceStatusCommandHandler{gateway: gateway}
}

func (h AdvanceStatusCommandHandler) Handle(ctx context.Context, command AdvanceStatusCommand) (AdvanceStatusResult, error) {
	if err := command.Validate(); err != nil {
		return AdvanceStatusResult{}, err
	}

	if current := command.CurrentStatus(); current != order.Unknown {
		if err := current.ValidateTransition(command.To()); err != nil {
			return AdvanceStatusResult{}, &TransitionRejectedError{
				OrderID: command.OrderID(),
				From:    current,
				To:      command.To(),
				Code:    ports.CodeInvalidTransition,
				Message: err.Error(),
				Local:   true,
			}
		}
	}

	resp, err := h.gateway.SetStatus(ctx, command.Actor(), ports.StatusChangeRequest{
		OrderID:  command.OrderID(),
		To:       command.To(),
		Reason:   command.Reason(),
		Metadata: command.Metadata(),
	})
	if err != nil {
		return AdvanceStatusResult{}, remoteCallFailed("set status", err)
	}

	if !resp.Success {
		return AdvanceStatusResult{}, &TransitionRejectedError{
			OrderID:        command.OrderID(),
			From:           resp.From,
			To:             command.To(),
			Code:           resp.Code,
			Message:        resp.Error,
			ChecksCount:    resp.ChecksCount,
			RequiredChecks: resp.RequiredChecks,
		}
	}

	return AdvanceStatusResult{
		OrderID: command.OrderID(),
		From:    resp.From,
		To:      resp.To,
	}, nil
}
