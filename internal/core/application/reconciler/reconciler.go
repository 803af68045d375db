// Package reconciler keeps the local, filtered and sorted cache of visible
// orders consistent with the order store, one row at a time.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"pharmaqueue/internal/core/application/usecases/queries"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/ports"
	"pharmaqueue/internal/pkg/errs"

	"github.com/rs/zerolog"
)

// Delta describes the cache size around one reconciliation.
type Delta struct {
	Previous int
	Current  int
	// Changed is true when the cache content was touched, even if the size stayed.
	Changed bool
}

// Grew reports whether the cache gained orders.
func (d Delta) Grew() bool {
	return d.Current > d.Previous
}

// Stats summarizes the cache for the presentation layer.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
	WithMAV  int            `json:"withMAV"`
	Assigned int            `json:"assigned"`
}

// Reconciler owns the order cache. Mutating methods are meant to be called from
// a single goroutine at a time; reads may happen concurrently with them.
type Reconciler struct {
	list   queries.GetVisibleOrdersQueryHandler
	single queries.GetOrderQueryHandler
	logger zerolog.Logger

	mu        sync.RWMutex
	allow     []order.Status
	byID      map[int64]*order.Order
	sorted    []*order.Order
	lastCount int
}

// New creates an empty reconciler reading through reader.
func New(reader ports.OrderReader, allow []order.Status, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		list:   queries.NewGetVisibleOrdersQueryHandler(reader),
		single: queries.NewGetOrderQueryHandler(reader),
		logger: logger.With().Str("component", "reconciler").Logger(),
		allow:  slices.Clone(allow),
		byID:   make(map[int64]*order.Order),
	}
}

// LoadAll replaces the cache with every visible order.
func (r *Reconciler) LoadAll(ctx context.Context) (Delta, error) {
	q, err := queries.NewGetVisibleOrdersQuery(r.AllowList())
	if err != nil {
		return Delta{}, err
	}

	orders, err := r.list.Handle(ctx, q)
	if err != nil {
		return Delta{}, fmt.Errorf("load visible orders: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.lastCount
	r.byID = make(map[int64]*order.Order, len(orders))
	for _, o := range orders {
		if slices.Contains(r.allow, o.Status) {
			r.byID[o.ID] = o
		}
	}
	r.resort()

	r.logger.Debug().Int("orders", len(r.sorted)).Msg("cache reloaded")
	return Delta{Previous: previous, Current: r.lastCount, Changed: true}, nil
}

// ApplyRowEvent reconciles a change of one order row. Deletes remove the order;
// inserts and updates re-fetch it and upsert or remove it depending on the
// allow-list. A failed re-fetch falls back to LoadAll.
func (r *Reconciler) ApplyRowEvent(ctx context.Context, kind ports.ChangeKind, orderID int64) (Delta, error) {
	if kind == ports.ChangeDelete {
		return r.remove(orderID), nil
	}
	return r.refetch(ctx, orderID)
}

// ApplySecondaryEvent reconciles an item or check change of the owning order.
func (r *Reconciler) ApplySecondaryEvent(ctx context.Context, orderID int64) (Delta, error) {
	return r.refetch(ctx, orderID)
}

func (r *Reconciler) refetch(ctx context.Context, orderID int64) (Delta, error) {
	q, err := queries.NewGetOrderQuery(orderID)
	if err != nil {
		return Delta{}, err
	}

	o, err := r.single.Handle(ctx, q)
	if errors.Is(err, errs.ErrObjectNotFound) {
		return r.remove(orderID), nil
	}
	if err != nil {
		r.logger.Warn().Err(err).Int64("order_id", orderID).Msg("single row fetch failed, reloading all")
		return r.LoadAll(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !slices.Contains(r.allow, o.Status) {
		return r.removeLocked(orderID), nil
	}

	previous := r.lastCount
	r.byID[o.ID] = o
	r.resort()
	return Delta{Previous: previous, Current: r.lastCount, Changed: true}, nil
}

func (r *Reconciler) remove(orderID int64) Delta {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(orderID)
}

func (r *Reconciler) removeLocked(orderID int64) Delta {
	previous := r.lastCount
	if _, ok := r.byID[orderID]; !ok {
		return Delta{Previous: previous, Current: previous}
	}
	delete(r.byID, orderID)
	r.resort()
	return Delta{Previous: previous, Current: r.lastCount, Changed: true}
}

// resort rebuilds the sorted view. Callers hold mu.
func (r *Reconciler) resort() {
	r.sorted = r.sorted[:0]
	for _, o := range r.byID {
		r.sorted = append(r.sorted, o)
	}
	slices.SortFunc(r.sorted, order.CompareByCreation)
	r.lastCount = len(r.sorted)
}

// SetAllowList replaces the allow-list and drops cached orders outside it.
// Callers follow with LoadAll to pick up newly allowed statuses.
func (r *Reconciler) SetAllowList(statuses []order.Status) Delta {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.lastCount
	r.allow = slices.Clone(statuses)
	changed := false
	for id, o := range r.byID {
		if !slices.Contains(r.allow, o.Status) {
			delete(r.byID, id)
			changed = true
		}
	}
	r.resort()
	return Delta{Previous: previous, Current: r.lastCount, Changed: changed}
}

// AllowList returns a copy of the current allow-list.
func (r *Reconciler) AllowList() []order.Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.allow)
}

// Snapshot returns deep copies of the cached orders in display order.
func (r *Reconciler) Snapshot() []*order.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*order.Order, len(r.sorted))
	for i, o := range r.sorted {
		out[i] = o.Clone()
	}
	return out
}

// Get returns a copy of one cached order.
func (r *Reconciler) Get(orderID int64) (*order.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.byID[orderID]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Len returns the number of cached orders.
func (r *Reconciler) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastCount
}

// Stats counts the cache by status, MAV presence and assignment. Every
// allow-listed status appears in ByStatus, zero or not.
func (r *Reconciler) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Total: len(r.sorted), ByStatus: make(map[string]int, len(r.allow))}
	for _, s := range r.allow {
		stats.ByStatus[s.String()] = 0
	}
	for _, o := range r.sorted {
		stats.ByStatus[o.Status.String()]++
		if o.HasMAV() {
			stats.WithMAV++
		}
		if o.IsAssigned() {
			stats.Assigned++
		}
	}
	return stats
}
