package queries_test

import (
	"testing"

	"pharmaqueue/internal/core/application/usecases/queries"
	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGetOrderQuery(t *testing.T) {
	_, err := queries.NewGetOrderQuery(0)
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)

	q, err := queries.NewGetOrderQuery(3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), q.OrderID())
}

func TestGetOrderQueryHandler_Handle(t *testing.T) {
	t.Run("should enrich the assignee", func(t *testing.T) {
		ctx := t.Context()
		actor := kernel.NewUUID()
		reader := new(MockOrderReader)
		reader.On("Get", ctx, int64(3)).Return(&order.Order{ID: 3, AssignedTo: &actor}, nil).Once()
		reader.On("ResolveDisplayNames", ctx, []kernel.UUID{actor}).Return(map[kernel.UUID]string{actor: "Carla"}, nil).Once()
		q, err := queries.NewGetOrderQuery(3)
		require.NoError(t, err)

		o, err := queries.NewGetOrderQueryHandler(reader).Handle(ctx, q)

		require.NoError(t, err)
		assert.Equal(t, "Carla", o.AssigneeName)
	})

	t.Run("should keep not found matchable", func(t *testing.T) {
		reader := new(MockOrderReader)
		reader.On("Get", t.Context(), int64(4)).Return(nil, errs.NewObjectNotFoundError("order", int64(4))).Once()
		q, err := queries.NewGetOrderQuery(4)
		require.NoError(t, err)

		_, err = queries.NewGetOrderQueryHandler(reader).Handle(t.Context(), q)

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})
}
