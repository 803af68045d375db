package order

import (
	"fmt"
	"strings"

	"pharmaqueue/internal/pkg/errs"
)

// Status represents the lifecycle state of a medication order.
//
// State transitions:
//
//	Draft ──> Submitted ──> Picking ──> Checking ──> Ready ──> Delivered ──> Received
//	  │           │            │            │          │           │
//	  └───────────┴────────────┴────────────┴──────────┴───────────┴──> Cancelled
//
// Every non-terminal status may move only to its immediate successor or to
// Cancelled. Received and Cancelled are terminal. Leaving Checking is further
// gated by the high-alert double check, which is evaluated by the store.
type Status int

const (
	// Unknown represents an invalid or undefined status.
	// This value (0) helps catch uninitialized Status values.
	Unknown Status = iota

	// Draft is an order still being composed by the requesting room.
	Draft

	// Submitted orders wait in the pharmacy queue for someone to claim them.
	Submitted

	// Picking means a pharmacist is collecting the items.
	Picking

	// Checking means the picked items are being verified. Orders carrying
	// high-alert items cannot leave this status without enough double checks.
	Checking

	// Ready orders are packed and waiting for pickup.
	Ready

	// Delivered orders have left the pharmacy and reached the room.
	Delivered

	// Received is terminal: the room confirmed reception.
	Received

	// Cancelled is terminal and reachable from any non-terminal status.
	Cancelled
)

// flow is the fixed forward path. Cancelled is not part of it.
var flow = []Status{Draft, Submitted, Picking, Checking, Ready, Delivered, Received}

func getStatusStrings() map[Status]string {
	return map[Status]string{
		Unknown:   "unknown",
		Draft:     "draft",
		Submitted: "submitted",
		Picking:   "picking",
		Checking:  "checking",
		Ready:     "ready",
		Delivered: "delivered",
		Received:  "received",
		Cancelled: "cancelled",
	}
}

// AllStatuses returns every valid status in lifecycle order, Cancelled last.
func AllStatuses() []Status {
	return append(append([]Status(nil), flow...), Cancelled)
}

// DefaultAllowList returns the statuses a pharmacy queue shows by default:
// everything from Submitted up to and including Delivered.
func DefaultAllowList() []Status {
	return []Status{Submitted, Picking, Checking, Ready, Delivered}
}

// ParseStatus converts the persisted lowercase name into a Status.
func ParseStatus(s string) (Status, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for status, str := range getStatusStrings() {
		if status != Unknown && str == name {
			return status, nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%q is not a valid status", s))
}

// ParseStatuses parses a list of names, failing on the first invalid entry.
func ParseStatuses(names []string) ([]Status, error) {
	statuses := make([]Status, 0, len(names))
	for _, name := range names {
		status, err := ParseStatus(name)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Validate checks if the Status value is one of the defined states.
func (s Status) Validate() error {
	if s <= Unknown || s > Cancelled {
		return errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%d is not a valid status", s))
	}
	return nil
}

// String returns the persisted lowercase name, or "unknown" for invalid values.
func (s Status) String() string {
	if str, ok := getStatusStrings()[s]; ok {
		return str
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts "unknown" so the zero value round-trips.
func (s *Status) UnmarshalText(text []byte) error {
	if string(text) == Unknown.String() {
		*s = Unknown
		return nil
	}
	status, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == Received || s == Cancelled
}

// Next returns the immediate successor along the forward path.
func (s Status) Next() (Status, error) {
	if err := s.Validate(); err != nil {
		return Unknown, err
	}
	if s.IsTerminal() {
		return Unknown, errs.NewValueIsInvalidErrorWithCause(
			"status is invalid",
			fmt.Errorf("%s is terminal", s),
		)
	}
	for i, step := range flow {
		if step == s {
			return flow[i+1], nil
		}
	}
	return Unknown, errs.NewValueIsInvalidErrorWithCause("status is invalid", fmt.Errorf("%s has no successor", s))
}

// ValidateTransition checks that target is either the immediate successor of s
// or Cancelled from a non-terminal status.
func (s Status) ValidateTransition(target Status) error {
	if err := target.Validate(); err != nil {
		return err
	}
	if s.IsTerminal() {
		return errs.NewValueIsInvalidErrorWithCause(
			"transition is invalid",
			fmt.Errorf("%s is terminal, cannot move to %s", s, target),
		)
	}
	if target == Cancelled {
		return nil
	}
	next, err := s.Next()
	if err != nil {
		return err
	}
	if next != target {
		return errs.NewValueIsInvalidErrorWithCause(
			"transition is invalid",
			fmt.Errorf("%s cannot move to %s, next step is %s", s, target, next),
		)
	}
	return nil
}

// IsLeavingChecking reports whether moving from s to target exits Checking
// towards Ready, the step guarded by the double check.
func (s Status) IsLeavingChecking(target Status) bool {
	return s == Checking && target == Ready
}
