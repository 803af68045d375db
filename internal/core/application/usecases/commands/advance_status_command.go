package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/pkg/errs"
	"pharmaqueue/internal/pkg/guard"
)

var ErrAdvanceStatusCommandIsNotConstructed = errors.New(
	"AdvanceStatusCommand must be created via NewAdvanceStatusCommand constructor",
)

// AdvanceStatusCommand requests that an order move to its next status.
//
// Example:
//
//	cmd, err := NewAdvanceStatusCommand(actor, 42, order.Picking, "started picking")
//	if err != nil {
//	    return err
//	}
//	cmd = cmd.WithCurrentStatus(cached.Status)
//	result, err := handler.Handle(ctx, cmd)
type AdvanceStatusCommand struct {
	actor    kernel.UUID
	orderID  int64
	to       order.Status
	reason   string
	metadata json.RawMessage
	current  order.Status

	guard guard.ConstructorGuard
}

// NewAdvanceStatusCommand validates the actor, order id and target status.
func NewAdvanceStatusCommand(actor kernel.UUID, orderID int64, to order.Status, reason string) (AdvanceStatusCommand, error) {
	cmd := AdvanceStatusCommand{
		reason: strings.TrimSpace(reason),
		guard:  guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setActor(actor),
		cmd.setOrderID(orderID),
		cmd.setTo(to),
	); err != nil {
		return AdvanceStatusCommand{}, err
	}

	return cmd, nil
}

// WithMetadata attaches free-form JSON forwarded to the audit trail.
func (c AdvanceStatusCommand) WithMetadata(metadata json.RawMessage) (AdvanceStatusCommand, error) {
	if len(metadata) > 0 && !json.Valid(metadata) {
		return c, errs.NewValueIsInvalidErrorWithCause("metadata", errors.New("not valid JSON"))
	}
	c.metadata = metadata
	return c, nil
}

// WithCurrentStatus records the caller's cached status so the handler can
// reject a non-adjacent target without a round trip.
func (c AdvanceStatusCommand) WithCurrentStatus(current order.Status) AdvanceStatusCommand {
	c.current = current
	return c
}

func (c AdvanceStatusCommand) Validate() error {
	return c.guard.Validate(ErrAdvanceStatusCommandIsNotConstructed)
}

func (c AdvanceStatusCommand) Actor() kernel.UUID {
	return c.actor
}

func (c AdvanceStatusCommand) OrderID() int64 {
	return c.orderID
}

func (c AdvanceStatusCommand) To() order.Status {
	return c.to
}

func (c AdvanceStatusCommand) Reason() string {
	return c.reason
}

func (c AdvanceStatusCommand) Metadata() json.RawMessage {
	return c.metadata
}

// CurrentStatus returns the cached status, or order.Unknown when not known.
func (c AdvanceStatusCommand) CurrentStatus() order.Status {
	return c.current
}

func (c *AdvanceStatusCommand) setActor(actor kernel.UUID) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	c.actor = actor
	return nil
}

func (c *AdvanceStatusCommand) setOrderID(orderID int64) error {
	if orderID <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("order id", fmt.Errorf("%d is not greater than 0", orderID))
	}
	c.orderID = orderID
	return nil
}

func (c *AdvanceStatusCommand) setTo(to order.Status) error {
	if err := to.Validate(); err != nil {
		return err
	}
	c.to = to
	return nil
}
