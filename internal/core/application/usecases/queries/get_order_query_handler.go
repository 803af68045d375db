package queries

import (
	"context"
	"fmt"

	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/ports"
)

// GetOrderQueryHandler loads one order and enriches it like the list query.
// A missing order matches errs.ErrObjectNotFound.
type GetOrderQueryHandler struct {
	reader ports.OrderReader
}

func NewGetOrderQueryHandler(reader ports.OrderReader) GetOrderQueryHandler {
	return GetOrderQueryHandler{reader: reader}
}

func (h GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*order.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	o, err := h.reader.Get(ctx, query.OrderID())
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", query.OrderID(), err)
	}

	if err = enrich(ctx, h.reader, []*order.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}
