package commands_test

import (
	"encoding/json"
	"testing"

	"pharmaqueue/internal/core/application/usecases/commands"
	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAdvanceStatusCommand(t *testing.T) {
	actor := kernel.NewUUID()

	t.Run("should create a valid command", func(t *testing.T) {
		cmd, err := commands.NewAdvanceStatusCommand(actor, 42, order.Picking, "  start  ")

		require.NoError(t, err)
		require.NoError(t, cmd.Validate())
		assert.Equal(t, int64(42), cmd.OrderID())
		assert.Equal(t, order.Picking, cmd.To())
		assert.Equal(t, "start", cmd.Reason())
		assert.True(t, cmd.Actor().IsEqual(actor))
		assert.Equal(t, order.Unknown, cmd.CurrentStatus())
	})

	t.Run("should join every validation error", func(t *testing.T) {
		_, err := commands.NewAdvanceStatusCommand(kernel.UUID{}, 0, order.Unknown, "")

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrValueIsRequired)
		assert.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Contains(t, err.Error(), "order id")
		assert.Contains(t, err.Error(), "status is invalid")
	})

	t.Run("zero value command is not constructed", func(t *testing.T) {
		var cmd commands.AdvanceStatusCommand

		require.ErrorIs(t, cmd.Validate(), commands.ErrAdvanceStatusCommandIsNotConstructed)
	})

	t.Run("should accept JSON metadata only", func(t *testing.T) {
		cmd, err := commands.NewAdvanceStatusCommand(actor, 1, order.Picking, "")
		require.NoError(t, err)

		withMeta, err := cmd.WithMetadata(json.RawMessage(`{"station":"A"}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"station":"A"}`, string(withMeta.Metadata()))

		_, err = cmd.WithMetadata(json.RawMessage(`{broken`))
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("current status does not leak into the original", func(t *testing.T) {
		cmd, err := commands.NewAdvanceStatusCommand(actor, 1, order.Picking, "")
		require.NoError(t, err)

		withCurrent := cmd.WithCurrentStatus(order.Submitted)

		assert.Equal(t, order.Submitted, withCurrent.CurrentStatus())
		assert.Equal(t, order.Unknown, cmd.CurrentStatus())
	})
}
