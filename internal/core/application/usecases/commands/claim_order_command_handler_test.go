package commands_test

import (
	"errors"
	"testing"

	"pharmaqueue/internal/core/application/usecases/commands"
	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/ports"
	"pharmaqueue/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewClaimOrderCommand(t *testing.T) {
	_, err := commands.NewClaimOrderCommand(kernel.UUID{}, -1)

	require.ErrorIs(t, err, errs.ErrValueIsRequired)
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)

	var zero commands.ClaimOrderCommand
	require.ErrorIs(t, zero.Validate(), commands.ErrClaimOrderCommandIsNotConstructed)
}

func TestClaimOrderCommandHandler_Handle(t *testing.T) {
	actor := kernel.NewUUID()
	other := kernel.NewUUID()

	t.Run("should confirm the claim", func(t *testing.T) {
		ctx := t.Context()
		gateway := new(MockWorkflowGateway)
		gateway.On("Claim", ctx, actor, int64(5)).Return(ports.ClaimResponse{Success: true, AssignedTo: &actor}, nil).Once()
		cmd, err := commands.NewClaimOrderCommand(actor, 5)
		require.NoError(t, err)

		result, err := commands.NewClaimOrderCommandHandler(gateway).Handle(ctx, cmd)

		require.NoError(t, err)
		assert.Equal(t, int64(5), result.OrderID)
		assert.True(t, result.AssignedTo.IsEqual(actor))
		gateway.AssertExpectations(t)
	})

	t.Run("should report a conflict when someone else holds the order", func(t *testing.T) {
		gateway := new(MockWorkflowGateway)
		gateway.On("Claim", mock.Anything, actor, int64(5)).Return(ports.ClaimResponse{
			Code:       ports.CodeAlreadyAssigned,
			Error:      "order already assigned",
			AssignedTo: &other,
		}, nil).Once()
		cmd, err := commands.NewClaimOrderCommand(actor, 5)
		require.NoError(t, err)

		_, err = commands.NewClaimOrderCommandHandler(gateway).Handle(t.Context(), cmd)

		require.ErrorIs(t, err, commands.ErrClaimConflict)
		var conflict *commands.ClaimConflictError
		require.ErrorAs(t, err, &conflict)
		assert.True(t, conflict.AssignedTo.IsEqual(other))
	})

	t.Run("should map not found", func(t *testing.T) {
		gateway := new(MockWorkflowGateway)
		gateway.On("Claim", mock.Anything, actor, int64(8)).Return(ports.ClaimResponse{Code: ports.CodeNotFound}, nil).Once()
		cmd, err := commands.NewClaimOrderCommand(actor, 8)
		require.NoError(t, err)

		_, err = commands.NewClaimOrderCommandHandler(gateway).Handle(t.Context(), cmd)

		var notFound *errs.ObjectNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, int64(8), notFound.ID)
	})

	t.Run("should wrap transport failures", func(t *testing.T) {
		gateway := new(MockWorkflowGateway)
		gateway.On("Claim", mock.Anything, actor, int64(5)).Return(ports.ClaimResponse{}, errors.New("timeout")).Once()
		cmd, err := commands.NewClaimOrderCommand(actor, 5)
		require.NoError(t, err)

		_, err = commands.NewClaimOrderCommandHandler(gateway).Handle(t.Context(), cmd)

		require.ErrorIs(t, err, commands.ErrRemoteCallFailed)
		assert.NotErrorIs(t, err, commands.ErrClaimConflict)
	})
}
