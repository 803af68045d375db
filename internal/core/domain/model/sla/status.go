package sla

import (
	"fmt"
	"strings"
)

// Severity is the tier an order falls into relative to its budget.
type Severity int

const (
	// SeverityUnknown is reported when no budget exists for the priority.
	SeverityUnknown Severity = iota
	SeverityOK
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	case SeverityUnknown:
	}
	return "unknown"
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "ok":
		*s = SeverityOK
	case "warning":
		*s = SeverityWarning
	case "critical":
		*s = SeverityCritical
	case "unknown":
		*s = SeverityUnknown
	default:
		return fmt.Errorf("invalid severity %q", text)
	}
	return nil
}

// Status is the evaluated SLA of one order at one instant. Times are in minutes.
type Status struct {
	Severity       Severity `json:"severity"`
	ElapsedMinutes float64  `json:"elapsedMinutes"`
	// RemainingMinutes never goes below zero.
	RemainingMinutes float64 `json:"remainingMinutes"`
	TotalMinutes     float64 `json:"totalMinutes"`
	// PercentageUsed is clamped to [0, 100].
	PercentageUsed float64 `json:"percentageUsed"`
	Expired        bool    `json:"expired"`
	Remaining      string  `json:"remaining"`
}

// Neutral is the result for an order whose priority has no budget.
func Neutral() Status {
	return Status{Severity: SeverityUnknown, Remaining: FormatRemaining(0)}
}

// FormatRemaining renders minutes as "00:00" when nothing is left, "Hh MMm"
// from one hour up and "MMm" below that.
func FormatRemaining(minutes float64) string {
	if minutes <= 0 {
		return "00:00"
	}
	whole := int(minutes)
	hours, mins := whole/60, whole%60
	if hours > 0 {
		return fmt.Sprintf("%dh %02dm", hours, mins)
	}
	return fmt.Sprintf("%02dm", mins)
}
