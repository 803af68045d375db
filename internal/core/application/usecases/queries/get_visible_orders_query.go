package queries

import (
	"errors"
	"slices"

	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/pkg/guard"
)

var ErrGetVisibleOrdersQueryIsNotConstructed = errors.New(
	"GetVisibleOrdersQuery must be created via NewGetVisibleOrdersQuery constructor",
)

// GetVisibleOrdersQuery lists the orders whose status is in an allow-list.
//
// Example:
//
//	query, err := NewGetVisibleOrdersQuery([]order.Status{order.Submitted, order.Picking})
//	if err != nil {
//	    return err
//	}
//	orders, err := handler.Handle(ctx, query)
type GetVisibleOrdersQuery struct {
	statuses []order.Status

	guard guard.ConstructorGuard
}

// NewGetVisibleOrdersQuery validates every status. Duplicates are dropped; an
// empty allow-list is valid and matches nothing.
func NewGetVisibleOrdersQuery(statuses []order.Status) (GetVisibleOrdersQuery, error) {
	unique := make([]order.Status, 0, len(statuses))
	validationErrs := make([]error, 0)
	for _, s := range statuses {
		if err := s.Validate(); err != nil {
			validationErrs = append(validationErrs, err)
			continue
		}
		if !slices.Contains(unique, s) {
			unique = append(unique, s)
		}
	}
	if err := errors.Join(validationErrs...); err != nil {
		return GetVisibleOrdersQuery{}, err
	}

	return GetVisibleOrdersQuery{
		statuses: unique,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

func (q GetVisibleOrdersQuery) Validate() error {
	return q.guard.Validate(ErrGetVisibleOrdersQueryIsNotConstructed)
}

// Statuses returns a copy of the allow-list.
func (q GetVisibleOrdersQuery) Statuses() []order.Status {
	return slices.Clone(q.statuses)
}
