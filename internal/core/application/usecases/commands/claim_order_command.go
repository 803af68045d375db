package commands

import (
	"errors"
	"fmt"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/pkg/errs"
	"pharmaqueue/internal/pkg/guard"
)

var ErrClaimOrderCommandIsNotConstructed = errors.New(
	"ClaimOrderCommand must be created via NewClaimOrderCommand constructor",
)

// ClaimOrderCommand asks the store to assign an order to the calling actor.
type ClaimOrderCommand struct {
	actor   kernel.UUID
	orderID int64

	guard guard.ConstructorGuard
}

func NewClaimOrderCommand(actor kernel.UUID, orderID int64) (ClaimOrderCommand, error) {
	cmd := ClaimOrderCommand{guard: guard.NewConstructorGuard()}

	var idErr error
	if orderID <= 0 {
		idErr = errs.NewValueIsInvalidErrorWithCause("order id", fmt.Errorf("%d is not greater than 0", orderID))
	}

	if err := errors.Join(actor.Validate(), idErr); err != nil {
		return ClaimOrderCommand{}, err
	}

	cmd.actor = actor
	cmd.orderID = orderID
	return cmd, nil
}

func (c ClaimOrderCommand) Validate() error {
	return c.guard.Validate(ErrClaimOrderCommandIsNotConstructed)
}

func (c ClaimOrderCommand) Actor() kernel.UUID {
	return c.actor
}

func (c ClaimOrderCommand) OrderID() int64 {
	return c.orderID
}
