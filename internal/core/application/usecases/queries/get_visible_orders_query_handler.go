package queries

import (
	"context"
	"fmt"
	"slices"

	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/ports"
)

// GetVisibleOrdersQueryHandler loads and enriches the visible orders, sorted
// by creation time ascending with ties broken by id.
type GetVisibleOrdersQueryHandler struct {
	reader ports.OrderReader
}

func NewGetVisibleOrdersQueryHandler(reader ports.OrderReader) GetVisibleOrdersQueryHandler {
	return GetVisibleOrdersQueryHandler{reader: reader}
}

func (h GetVisibleOrdersQueryHandler) Handle(ctx context.Context, query GetVisibleOrdersQuery) ([]*order.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	statuses := query.Statuses()
	if len(statuses) == 0 {
		return []*order.Order{}, nil
	}

	orders, err := h.reader.ListByStatuses(ctx, statuses)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	if err = enrich(ctx, h.reader, orders); err != nil {
		return nil, err
	}

	slices.SortFunc(orders, order.CompareByCreation)
	return orders, nil
}
