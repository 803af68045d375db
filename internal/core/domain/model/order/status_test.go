package order_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Constants(t *testing.T) {
	t.Run("should have correct enum values", func(t *testing.T) {
		assert.Equal(t, 0, int(order.Unknown))
		assert.Equal(t, 1, int(order.Draft))
		assert.Equal(t, 4, int(order.Checking))
		assert.Equal(t, 8, int(order.Cancelled))
	})

	t.Run("should list statuses in lifecycle order", func(t *testing.T) {
		assert.Equal(t, []order.Status{
			order.Draft, order.Submitted, order.Picking, order.Checking,
			order.Ready, order.Delivered, order.Received, order.Cancelled,
		}, order.AllStatuses())
	})
}

func TestStatus_Validate(t *testing.T) {
	for _, status := range order.AllStatuses() {
		t.Run(fmt.Sprintf("should validate %s status", status), func(t *testing.T) {
			require.NoError(t, status.Validate())
		})
	}

	t.Run("should reject Unknown status", func(t *testing.T) {
		err := order.Unknown.Validate()

		require.Error(t, err)
		assert.IsType(t, &errs.ValueIsInvalidError{}, err)
		assert.Contains(t, err.Error(), "0 is not a valid status")
	})

	t.Run("should reject out of range values", func(t *testing.T) {
		require.ErrorIs(t, order.Status(-1).Validate(), errs.ErrValueIsInvalid)
		require.ErrorIs(t, order.Status(9).Validate(), errs.ErrValueIsInvalid)
	})
}

func TestParseStatus(t *testing.T) {
	t.Run("should round trip every name", func(t *testing.T) {
		for _, status := range order.AllStatuses() {
			parsed, err := order.ParseStatus(status.String())

			require.NoError(t, err)
			assert.Equal(t, status, parsed)
		}
	})

	t.Run("should ignore case and surrounding space", func(t *testing.T) {
		parsed, err := order.ParseStatus("  Checking ")

		require.NoError(t, err)
		assert.Equal(t, order.Checking, parsed)
	})

	t.Run("should reject unknown names", func(t *testing.T) {
		_, err := order.ParseStatus("unknown")
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)

		_, err = order.ParseStatus("shipped")
		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	})

	t.Run("should parse a list", func(t *testing.T) {
		statuses, err := order.ParseStatuses([]string{"submitted", "picking"})

		require.NoError(t, err)
		assert.Equal(t, []order.Status{order.Submitted, order.Picking}, statuses)

		_, err = order.ParseStatuses([]string{"submitted", "bogus"})
		require.Error(t, err)
	})
}

func TestStatus_Next(t *testing.T) {
	testCases := []struct {
		from order.Status
		want order.Status
	}{
		{order.Draft, order.Submitted},
		{order.Submitted, order.Picking},
		{order.Picking, order.Checking},
		{order.Checking, order.Ready},
		{order.Ready, order.Delivered},
		{order.Delivered, order.Received},
	}

	for _, tc := range testCases {
		t.Run(tc.from.String(), func(t *testing.T) {
			next, err := tc.from.Next()

			require.NoError(t, err)
			assert.Equal(t, tc.want, next)
		})
	}

	t.Run("terminal statuses have no successor", func(t *testing.T) {
		_, err := order.Received.Next()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "received is terminal")

		_, err = order.Cancelled.Next()
		require.Error(t, err)
	})
}

func TestStatus_ValidateTransition(t *testing.T) {
	t.Run("should allow only the immediate successor", func(t *testing.T) {
		for _, from := range order.AllStatuses() {
			for _, to := range order.AllStatuses() {
				err := from.ValidateTransition(to)

				next, nextErr := from.Next()
				legal := !from.IsTerminal() && (to == order.Cancelled || (nextErr == nil && next == to))
				if legal {
					assert.NoError(t, err, "%s -> %s", from, to)
				} else {
					assert.Error(t, err, "%s -> %s", from, to)
				}
			}
		}
	})

	t.Run("should report the expected next step when skipping", func(t *testing.T) {
		err := order.Submitted.ValidateTransition(order.Checking)

		require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.Contains(t, err.Error(), "next step is picking")
	})

	t.Run("should allow cancel from any non-terminal status", func(t *testing.T) {
		require.NoError(t, order.Draft.ValidateTransition(order.Cancelled))
		require.NoError(t, order.Delivered.ValidateTransition(order.Cancelled))
		require.Error(t, order.Received.ValidateTransition(order.Cancelled))
	})

	t.Run("should flag leaving checking", func(t *testing.T) {
		assert.True(t, order.Checking.IsLeavingChecking(order.Ready))
		assert.False(t, order.Picking.IsLeavingChecking(order.Checking))
	})
}

func TestStatus_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]order.Status{"status": order.Ready})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ready"}`, string(data))

	var decoded map[string]order.Status
	require.NoError(t, json.Unmarshal([]byte(`{"status":"delivered"}`), &decoded))
	assert.Equal(t, order.Delivered, decoded["status"])

	require.Error(t, json.Unmarshal([]byte(`{"status":"lost"}`), &decoded))

	t.Run("zero value round-trips", func(t *testing.T) {
		data, err := json.Marshal(order.Order{ID: 1, Priority: order.Normal})
		require.NoError(t, err)

		var back order.Order
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, order.Unknown, back.Status)
	})
}

func TestDefaultAllowList(t *testing.T) {
	allow := order.DefaultAllowList()

	assert.NotContains(t, allow, order.Draft)
	assert.NotContains(t, allow, order.Received)
	assert.NotContains(t, allow, order.Cancelled)
	assert.Contains(t, allow, order.Checking)
}
