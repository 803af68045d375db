package order_test

import (
	"slices"
	"testing"
	"time"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOrder() *order.Order {
	return &order.Order{
		ID:        1,
		Status:    order.Submitted,
		Priority:  order.Normal,
		RoomID:    3,
		CreatedAt: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
		Items: []order.Item{
			{ID: 10, MedID: 100, Qty: 2, Unit: "amp"},
		},
	}
}

func TestOrder_Validate(t *testing.T) {
	t.Run("should accept a valid order", func(t *testing.T) {
		require.NoError(t, validOrder().Validate())
	})

	t.Run("should join every violation", func(t *testing.T) {
		o := &order.Order{AssignedTo: &kernel.UUID{}}

		err := o.Validate()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "order id is invalid")
		assert.Contains(t, err.Error(), "status is invalid")
		assert.Contains(t, err.Error(), "priority is invalid")
		assert.Contains(t, err.Error(), "UUID must be created")
	})

	t.Run("should reject nil", func(t *testing.T) {
		var o *order.Order

		require.Error(t, o.Validate())
	})
}

func TestOrder_HasMAV(t *testing.T) {
	o := validOrder()
	assert.False(t, o.HasMAV())

	o.Items = append(o.Items, order.Item{ID: 11, MedID: 101, Qty: 1, Unit: "vial", HighAlert: true})
	assert.True(t, o.HasMAV())

	o.Items = nil
	assert.False(t, o.HasMAV())
}

func TestOrder_Assignment(t *testing.T) {
	actor := kernel.NewUUID()
	other := kernel.NewUUID()
	o := validOrder()

	assert.False(t, o.IsAssigned())
	assert.False(t, o.IsAssignedTo(actor))

	o.AssignedTo = &actor

	assert.True(t, o.IsAssigned())
	assert.True(t, o.IsAssignedTo(actor))
	assert.False(t, o.IsAssignedTo(other))
}

func TestOrder_ActorIDs(t *testing.T) {
	nurse := kernel.NewUUID()
	pharmacist := kernel.NewUUID()
	o := validOrder()
	o.AssignedTo = &nurse
	o.Checks = []order.HighAlertCheck{
		{ID: 1, CheckerID: nurse},
		{ID: 2, CheckerID: pharmacist},
		{ID: 3, CheckerID: pharmacist},
	}

	ids := o.ActorIDs()

	assert.Len(t, ids, 2)
	assert.Contains(t, ids, nurse)
	assert.Contains(t, ids, pharmacist)
}

func TestOrder_Clone(t *testing.T) {
	actor := kernel.NewUUID()
	at := time.Now()
	o := validOrder()
	o.AssignedTo = &actor
	o.AssignedAt = &at
	o.Checks = []order.HighAlertCheck{{ID: 1, CheckerID: actor}}

	c := o.Clone()
	c.Items[0].Qty = 99
	c.Checks[0].Notes = "changed"
	*c.AssignedTo = kernel.NewUUID()

	assert.InDelta(t, 2.0, o.Items[0].Qty, 0)
	assert.Empty(t, o.Checks[0].Notes)
	assert.True(t, o.AssignedTo.IsEqual(actor))
	assert.Nil(t, (*order.Order)(nil).Clone())
}

func TestCompareByCreation(t *testing.T) {
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	a := &order.Order{ID: 5, CreatedAt: base}
	b := &order.Order{ID: 2, CreatedAt: base.Add(time.Minute)}
	c := &order.Order{ID: 3, CreatedAt: base}

	orders := []*order.Order{b, a, c}
	slices.SortFunc(orders, order.CompareByCreation)

	assert.Equal(t, []int64{3, 5, 2}, []int64{orders[0].ID, orders[1].ID, orders[2].ID})
}
