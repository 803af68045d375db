package queries

import (
	"context"
	"fmt"
	"slices"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/ports"
)

// enrich resolves assignee and checker names for all orders with a single
// lookup. No lookup is made when no order references an actor.
func enrich(ctx context.Context, reader ports.OrderReader, orders []*order.Order) error {
	var ids []kernel.UUID
	for _, o := range orders {
		for _, id := range o.ActorIDs() {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	names, err := reader.ResolveDisplayNames(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve display names: %w", err)
	}

	for _, o := range orders {
		if o.AssignedTo != nil {
			o.AssigneeName = names[*o.AssignedTo]
		}
		for i := range o.Checks {
			o.Checks[i].CheckerName = names[o.Checks[i].CheckerID]
		}
	}
	return nil
}
