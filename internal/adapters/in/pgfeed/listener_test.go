package pgfeed_test

import (
	"testing"
	"time"

	"pharmaqueue/internal/adapters/in/pgfeed"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DecodePayload(t *testing.T) {
	t.Run("order row", func(t *testing.T) {
		ev, err := pgfeed.DecodePayload(`{"table":"orders","type":"UPDATE","id":12,"status":"picking","created_at":"2026-03-02T10:00:00.123456+00:00"}`)

		require.NoError(t, err)
		assert.Equal(t, ports.TableOrders, ev.Table)
		assert.Equal(t, ports.ChangeUpdate, ev.Kind)
		assert.Equal(t, int64(12), ev.RowID)
		assert.Equal(t, order.Picking, ev.Status)
		assert.True(t, ev.CreatedAt.Equal(time.Date(2026, 3, 2, 10, 0, 0, 123456000, time.UTC)))
		assert.True(t, ev.IsOrderRow())
	})

	t.Run("child row", func(t *testing.T) {
		ev, err := pgfeed.DecodePayload(`{"table":"high_alert_checks","type":"INSERT","id":3,"order_id":12}`)

		require.NoError(t, err)
		assert.Equal(t, int64(12), ev.OrderID)
		assert.False(t, ev.IsOrderRow())
	})

	invalid := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `orders:12`},
		{name: "missing table", payload: `{"type":"INSERT","id":1}`},
		{name: "unknown operation", payload: `{"table":"orders","type":"TRUNCATE","id":1}`},
		{name: "missing id", payload: `{"table":"orders","type":"DELETE"}`},
		{name: "child without owner", payload: `{"table":"order_items","type":"INSERT","id":4}`},
		{name: "unknown status", payload: `{"table":"orders","type":"UPDATE","id":1,"status":"lost"}`},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := pgfeed.DecodePayload(tc.payload)

			assert.Error(t, err)
		})
	}
}
