package commands

import (
	"context"
	"fmt"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/ports"
	"pharmaqueue/internal/pkg/errs"
)

// ClaimOrderResult is the confirmed assignee after a claim.
type ClaimOrderResult struct {
	OrderID    int64       `json:"orderId"`
	AssignedTo kernel.UUID `json:"assignedTo"`
}

// ClaimOrderCommandHandler performs the compare-and-set claim. It never sets
// the assignee locally; the confirmed state arrives through a refresh.
type ClaimOrderCommandHandler struct {
	gateway ports.WorkflowGateway
}

func NewClaimOrderCommandHandler(gateway ports.WorkflowGateway) ClaimOrderCommandHandler {
	return ClaimOrderCommandHandler{gateway: gateway}
}

func (h ClaimOrderCommandHandler) Handle(ctx context.Context, command ClaimOrderCommand) (ClaimOrderResult, error) {
	if err := command.Validate(); err != nil {
		return ClaimOrderResult{}, err
	}

	resp, err := h.gateway.Claim(ctx, command.Actor(), command.OrderID())
	if err != nil {
		return ClaimOrderResult{}, remoteCallFailed("claim", err)
	}

	if !resp.Success {
		switch resp.Code {
		case ports.CodeNotFound:
			return ClaimOrderResult{}, errs.NewObjectNotFoundError("order", command.OrderID())
		case ports.CodeAlreadyAssigned:
			return ClaimOrderResult{}, &ClaimConflictError{
				OrderID:    command.OrderID(),
				AssignedTo: resp.AssignedTo,
				Message:    resp.Error,
			}
		default:
			return ClaimOrderResult{}, fmt.Errorf("claim order %d: %s (%s)", command.OrderID(), resp.Error, resp.Code)
		}
	}

	assignee := command.Actor()
	if resp.AssignedTo != nil {
		assignee = *resp.AssignedTo
	}

	return ClaimOrderResult{OrderID: command.OrderID(), AssignedTo: assignee}, nil
}
