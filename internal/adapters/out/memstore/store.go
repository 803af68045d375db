// Package memstore is an in-memory order store honoring the same guarded
// workflow rules as the PostgreSQL functions: atomic compare-and-set claims,
// adjacency-checked transitions, the high-alert double-check gate and a
// row-level change feed. It backs the demo command and end-to-end tests.
package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/domain/model/sla"
	"pharmaqueue/internal/core/domain/services"
	"pharmaqueue/internal/core/ports"
	"pharmaqueue/internal/pkg/errs"
)

// Op names a store operation for failure injection.
type Op string

const (
	OpList      Op = "list"
	OpGet       Op = "get"
	OpNames     Op = "names"
	OpSetStatus Op = "set_status"
	OpClaim     Op = "claim"
	OpAddCheck  Op = "add_check"
	OpSubscribe Op = "subscribe"
	OpSLA       Op = "sla"
)

// OrderEvent is one audit row written on every status change.
type OrderEvent struct {
	ID        int64
	OrderID   int64
	From      order.Status
	To        order.Status
	ActorID   kernel.UUID
	Reason    string
	Metadata  json.RawMessage
	CreatedAt time.Time
}

// NewOrder seeds an order. Status defaults to submitted.
type NewOrder struct {
	Status    order.Status
	Priority  order.Priority
	RoomID    int64
	KitKey    string
	Notes     string
	CreatedBy kernel.UUID
	CreatedAt time.Time
	Items     []order.Item
}

// Store is safe for concurrent use. Every mutation runs under one lock, which
// makes each workflow call atomic.
type Store struct {
	gate services.DoubleCheckGate
	now  func() time.Time

	mu          sync.Mutex
	orders      map[int64]*order.Order
	profiles    map[kernel.UUID]string
	slaConfigs  []sla.Config
	events      []OrderEvent
	failures    map[Op]error
	subscribers map[*subscription]struct{}
	nextOrder   int64
	nextItem    int64
	nextCheck   int64
}

// New creates an empty store. A nil now defaults to time.Now.
func New(gate services.DoubleCheckGate, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	if gate.Required() == 0 {
		gate = services.DefaultDoubleCheckGate()
	}
	return &Store{
		gate:        gate,
		now:         now,
		orders:      make(map[int64]*order.Order),
		profiles:    make(map[kernel.UUID]string),
		failures:    make(map[Op]error),
		subscribers: make(map[*subscription]struct{}),
	}
}

// FailNext makes the next call of op return err.
func (s *Store) FailNext(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) takeFailureLocked(op Op) error {
	err := s.failures[op]
	delete(s.failures, op)
	return err
}

// UpsertProfile sets an actor's display name.
func (s *Store) UpsertProfile(id kernel.UUID, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[id] = displayName
}

// SetSLAConfigs replaces the SLA table.
func (s *Store) SetSLAConfigs(configs ...sla.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slaConfigs = slices.Clone(configs)
}

// CreateOrder inserts an order with its items and publishes the inserts.
func (s *Store) CreateOrder(_ context.Context, in NewOrder) (*order.Order, error) {
	if in.Status == order.Unknown {
		in.Status = order.Submitted
	}
	if in.Priority == order.PriorityUnknown {
		in.Priority = order.Normal
	}
	if err := errors.Join(in.Status.Validate(), in.Priority.Validate()); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	s.nextOrder++
	o := &order.Order{
		ID:        s.nextOrder,
		Status:    in.Status,
		Priority:  in.Priority,
		RoomID:    in.RoomID,
		KitKey:    in.KitKey,
		Notes:     in.Notes,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	if !in.CreatedBy.IsZero() {
		by := in.CreatedBy
		o.CreatedBy = &by
	}
	for _, item := range in.Items {
		s.nextItem++
		item.ID = s.nextItem
		o.Items = append(o.Items, item)
	}
	s.orders[o.ID] = o

	s.publishLocked(ports.ChangeEvent{Table: ports.TableOrders, Kind: ports.ChangeInsert, RowID: o.ID, Status: o.Status, CreatedAt: o.CreatedAt})
	for _, item := range o.Items {
		s.publishLocked(ports.ChangeEvent{Table: ports.TableOrderItems, Kind: ports.ChangeInsert, RowID: item.ID, OrderID: o.ID})
	}
	return o.Clone(), nil
}

// DeleteOrder removes an order and publishes the delete.
func (s *Store) DeleteOrder(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.orders[id]; !found {
		return errs.NewObjectNotFoundError("order", id)
	}
	delete(s.orders, id)
	s.publishLocked(ports.ChangeEvent{Table: ports.TableOrders, Kind: ports.ChangeDelete, RowID: id})
	return nil
}

// Events returns the audit trail of one order.
func (s *Store) Events(orderID int64) []OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []OrderEvent
	for _, e := range s.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out
}

// ListByStatuses implements ports.OrderReader.
func (s *Store) ListByStatuses(_ context.Context, statuses []order.Status) ([]*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked(OpList); err != nil {
		return nil, err
	}

	out := make([]*order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if slices.Contains(statuses, o.Status) {
			out = append(out, o.Clone())
		}
	}
	return out, nil
}

// Get implements ports.OrderReader.
func (s *Store) Get(_ context.Context, id int64) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked(OpGet); err != nil {
		return nil, err
	}

	o, found := s.orders[id]
	if !found {
		return nil, errs.NewObjectNotFoundError("order", id)
	}
	return o.Clone(), nil
}

// ResolveDisplayNames implements ports.OrderReader.
func (s *Store) ResolveDisplayNames(_ context.Context, ids []kernel.UUID) (map[kernel.UUID]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked(OpNames); err != nil {
		return nil, err
	}

	names := make(map[kernel.UUID]string, len(ids))
	for _, id := range ids {
		if name, found := s.profiles[id]; found {
			names[id] = name
		}
	}
	return names, nil
}

// LoadSLAConfigs implements ports.SLAConfigSource.
func (s *Store) LoadSLAConfigs(_ context.Context) ([]sla.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked(OpSLA); err != nil {
		return nil, err
	}
	return slices.Clone(s.slaConfigs), nil
}

// SetStatus implements ports.WorkflowGateway.
func (s *Store) SetStatus(_ context.Context, actor kernel.UUID, req ports.StatusChangeRequest) (ports.StatusChangeResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked(OpSetStatus); err != nil {
		return ports.StatusChangeResponse{}, err
	}

	o, found := s.orders[req.OrderID]
	if !found {
		return ports.StatusChangeResponse{Code: ports.CodeNotFound, Error: "order not found"}, nil
	}

	from := o.Status
	if err := from.ValidateTransition(req.To); err != nil {
		return ports.StatusChangeResponse{
			Code:  ports.CodeInvalidTransition,
			Error: fmt.Sprintf("invalid transition from %s to %s", from, req.To),
			From:  from,
		}, nil
	}

	if s.gate.BlocksTransition(o, req.To) {
		return ports.StatusChangeResponse{
			Code:           ports.CodeDoubleCheckPending,
			Error:          "double check required for high-alert medication",
			From:           from,
			ChecksCount:    s.gate.Count(o.Checks),
			RequiredChecks: s.gate.Required(),
		}, nil
	}

	now := s.now()
	o.Status = req.To
	o.UpdatedAt = now
	s.events = append(s.events, OrderEvent{
		ID:        int64(len(s.events) + 1),
		OrderID:   o.ID,
		From:      from,
		To:        req.To,
		ActorID:   actor,
		Reason:    req.Reason,
		Metadata:  req.Metadata,
		CreatedAt: now,
	})
	s.publishLocked(ports.ChangeEvent{Table: ports.TableOrders, Kind: ports.ChangeUpdate, RowID: o.ID, Status: o.Status, CreatedAt: o.CreatedAt})

	return ports.StatusChangeResponse{Success: true, From: from, To: req.To}, nil
}

// Claim implements ports.WorkflowGateway as a compare-and-set on the assignee.
func (s *Store) Claim(_ context.Context, actor kernel.UUID, orderID int64) (ports.ClaimResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked(OpClaim); err != nil {
		return ports.ClaimResponse{}, err
	}

	o, found := s.orders[orderID]
	if !found {
		return ports.ClaimResponse{Code: ports.CodeNotFound, Error: "order not found"}, nil
	}
	if o.Status.IsTerminal() {
		return ports.ClaimResponse{Code: ports.CodeInvalidState, Error: fmt.Sprintf("order is %s", o.Status)}, nil
	}
	if o.AssignedTo != nil {
		holder := *o.AssignedTo
		if holder.IsEqual(actor) {
			return ports.ClaimResponse{Success: true, AssignedTo: &holder}, nil
		}
		return ports.ClaimResponse{Code: ports.CodeAlreadyAssigned, Error: "order already assigned", AssignedTo: &holder}, nil
	}

	now := s.now()
	assignee := actor
	o.AssignedTo = &assignee
	o.AssignedAt = &now
	o.UpdatedAt = now
	s.publishLocked(ports.ChangeEvent{Table: ports.TableOrders, Kind: ports.ChangeUpdate, RowID: o.ID, Status: o.Status, CreatedAt: o.CreatedAt})

	return ports.ClaimResponse{Success: true, AssignedTo: &assignee}, nil
}

// AddCheck implements ports.WorkflowGateway.
func (s *Store) AddCheck(_ context.Context, actor kernel.UUID, orderID int64, notes string) (ports.CheckResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeFailureLocked(OpAddCheck); err != nil {
		return ports.CheckResponse{}, err
	}

	o, found := s.orders[orderID]
	if !found {
		return ports.CheckResponse{Code: ports.CodeNotFound, Error: "order not found"}, nil
	}
	if !o.HasMAV() || o.Status != order.Checking {
		return ports.CheckResponse{Code: ports.CodeInvalidState, Error: "order does not require a double check now"}, nil
	}
	if s.gate.DistinctActors() && s.gate.HasChecked(o.Checks, actor) {
		return ports.CheckResponse{
			Code:        ports.CodeDuplicateChecker,
			Error:       "actor already checked this order",
			ChecksCount: s.gate.Count(o.Checks),
		}, nil
	}

	s.nextCheck++
	check := order.HighAlertCheck{ID: s.nextCheck, CheckerID: actor, CheckedAt: s.now(), Notes: notes}
	o.Checks = append(o.Checks, check)
	s.publishLocked(ports.ChangeEvent{Table: ports.TableHighAlertChecks, Kind: ports.ChangeInsert, RowID: check.ID, OrderID: o.ID})

	return ports.CheckResponse{
		Success:     true,
		ChecksCount: s.gate.Count(o.Checks),
		CanAdvance:  s.gate.Satisfied(o.Checks),
	}, nil
}
