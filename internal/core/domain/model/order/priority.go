package order

import (
	"fmt"
	"strings"

	"pharmaqueue/internal/pkg/errs"
)

// Priority drives the SLA budget applied to an order.
type Priority int

const (
	PriorityUnknown Priority = iota
	Normal
	Urgent
)

// urgentAlias is the spelling some rooms persisted before the column was normalized.
const urgentAlias = "urgente"

// ParsePriority accepts "normal", "urgent" and the legacy alias "urgente".
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal":
		return Normal, nil
	case "urgent", urgentAlias:
		return Urgent, nil
	}
	return PriorityUnknown, errs.NewValueIsInvalidErrorWithCause("priority is invalid", fmt.Errorf("%q is not a valid priority", s))
}

func (p Priority) Validate() error {
	if p != Normal && p != Urgent {
		return errs.NewValueIsInvalidErrorWithCause("priority is invalid", fmt.Errorf("%d is not a valid priority", p))
	}
	return nil
}

func (p Priority) String() string {
	switch p {
	case Normal:
		return "normal"
	case Urgent:
		return "urgent"
	case PriorityUnknown:
	}
	return "unknown"
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText reads back anything MarshalText writes, "unknown" included.
func (p *Priority) UnmarshalText(text []byte) error {
	if string(text) == PriorityUnknown.String() {
		*p = PriorityUnknown
		return nil
	}
	priority, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = priority
	return nil
}
