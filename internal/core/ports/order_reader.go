package ports

import (
	"context"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"
)

// OrderReader provides read access to orders with their items and checks joined.
type OrderReader interface {
	// ListByStatuses returns every order whose status is in statuses, each
	// with items and checks loaded. Ordering is not guaranteed.
	ListByStatuses(ctx context.Context, statuses []order.Status) ([]*order.Order, error)

	// Get returns one order with the same joins as ListByStatuses.
	// Returns *errs.ObjectNotFoundError if the order does not exist.
	Get(ctx context.Context, id int64) (*order.Order, error)

	// ResolveDisplayNames maps actor ids to display names in a single lookup.
	// Unknown ids are absent from the result.
	ResolveDisplayNames(ctx context.Context, ids []kernel.UUID) (map[kernel.UUID]string, error)
}
