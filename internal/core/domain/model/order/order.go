package order

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/pkg/errs"
)

// Order is the read-mostly projection of a medication order as the pharmacy
// queue sees it: the row itself plus its items, its high-alert checks and the
// resolved display name of the assignee.
//
// The persistence layer owns the order. The projection is rebuilt from the
// store after every change and is never mutated to anticipate a remote outcome.
type Order struct {
	ID        int64        `json:"id"`
	Status    Status       `json:"status"`
	Priority  Priority     `json:"priority"`
	RoomID    int64        `json:"roomId"`
	RoomName  string       `json:"roomName,omitempty"`
	KitKey    string       `json:"kitKey,omitempty"`
	Notes     string       `json:"notes,omitempty"`
	CreatedBy *kernel.UUID `json:"createdBy,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`

	// AssignedTo is nil until the first successful claim.
	AssignedTo   *kernel.UUID `json:"assignedTo,omitempty"`
	AssignedAt   *time.Time   `json:"assignedAt,omitempty"`
	AssigneeName string       `json:"assigneeName,omitempty"`

	Items  []Item           `json:"items"`
	Checks []HighAlertCheck `json:"checks"`
}

// Item is one medication line of an order.
type Item struct {
	ID        int64   `json:"id"`
	MedID     int64   `json:"medId"`
	MedName   string  `json:"medName,omitempty"`
	Qty       float64 `json:"qty"`
	Unit      string  `json:"unit"`
	HighAlert bool    `json:"highAlert"`
}

// HighAlertCheck records one actor verifying a high-alert order.
type HighAlertCheck struct {
	ID          int64       `json:"id"`
	CheckerID   kernel.UUID `json:"checkerId"`
	CheckerName string      `json:"checkerName,omitempty"`
	CheckedAt   time.Time   `json:"checkedAt"`
	Notes       string      `json:"notes,omitempty"`
}

// Validate checks the invariants every projection read from the store must hold.
func (o *Order) Validate() error {
	if o == nil {
		return errs.NewValueIsRequiredError("order")
	}

	var idErr error
	if o.ID <= 0 {
		idErr = errs.NewValueIsInvalidErrorWithCause("order id is invalid", fmt.Errorf("%d is not greater than 0", o.ID))
	}

	var assigneeErr error
	if o.AssignedTo != nil {
		assigneeErr = o.AssignedTo.Validate()
	}

	return errors.Join(idErr, o.Status.Validate(), o.Priority.Validate(), assigneeErr)
}

// HasMAV reports whether any item is a high-alert medication.
func (o *Order) HasMAV() bool {
	for _, item := range o.Items {
		if item.HighAlert {
			return true
		}
	}
	return false
}

// IsAssigned reports whether the order has been claimed.
func (o *Order) IsAssigned() bool {
	return o.AssignedTo != nil
}

// IsAssignedTo reports whether actor holds the claim.
func (o *Order) IsAssignedTo(actor kernel.UUID) bool {
	return o.AssignedTo != nil && o.AssignedTo.IsEqual(actor)
}

// ActorIDs returns the distinct assignee and checker ids referenced by the order.
func (o *Order) ActorIDs() []kernel.UUID {
	ids := make([]kernel.UUID, 0, len(o.Checks)+1)
	if o.AssignedTo != nil {
		ids = append(ids, *o.AssignedTo)
	}
	for _, check := range o.Checks {
		if !slices.Contains(ids, check.CheckerID) {
			ids = append(ids, check.CheckerID)
		}
	}
	return ids
}

// Clone returns a deep copy so callers can hand the order out without sharing slices.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = slices.Clone(o.Items)
	c.Checks = slices.Clone(o.Checks)
	if o.AssignedTo != nil {
		id := *o.AssignedTo
		c.AssignedTo = &id
	}
	if o.AssignedAt != nil {
		at := *o.AssignedAt
		c.AssignedAt = &at
	}
	if o.CreatedBy != nil {
		id := *o.CreatedBy
		c.CreatedBy = &id
	}
	return &c
}

// CompareByCreation orders by creation time ascending, ties broken by id.
func CompareByCreation(a, b *Order) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
