package commands

import (
	"errors"
	"fmt"
	"strings"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/pkg/errs"
	"pharmaqueue/internal/pkg/guard"
)

var ErrSubmitCheckCommandIsNotConstructed = errors.New(
	"SubmitCheckCommand must be created via NewSubmitCheckCommand constructor",
)

// SubmitCheckCommand records one high-alert double check by the calling actor.
type SubmitCheckCommand struct {
	actor   kernel.UUID
	orderID int64
	notes   string

	guard guard.ConstructorGuard
}

// NewSubmitCheckCommand validates the actor and order id. Notes are optional.
func NewSubmitCheckCommand(actor kernel.UUID, orderID int64, notes string) (SubmitCheckCommand, error) {
	cmd := SubmitCheckCommand{
		notes: strings.TrimSpace(notes),
		guard: guard.NewConstructorGuard(),
	}

	var idErr error
	if orderID <= 0 {
		idErr = errs.NewValueIsInvalidErrorWithCause("order id", fmt.Errorf("%d is not greater than 0", orderID))
	}

	if err := errors.Join(actor.Validate(), idErr); err != nil {
		return SubmitCheckCommand{}, err
	}

	cmd.actor = actor
	cmd.orderID = orderID
	return cmd, nil
}

func (c SubmitCheckCommand) Validate() error {
	return c.guard.Validate(ErrSubmitCheckCommandIsNotConstructed)
}

func (c SubmitCheckCommand) Actor() kernel.UUID {
	return c.actor
}

func (c SubmitCheckCommand) OrderID() int64 {
	return c.orderID
}

func (c SubmitCheckCommand) Notes() string {
	return c.notes
}
