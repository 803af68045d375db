package services

import (
	"fmt"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/pkg/errs"
)

// DefaultRequiredChecks is the number of checks a high-alert order needs by default.
const DefaultRequiredChecks = 2

// DoubleCheckGate is the policy guarding the checking → ready step of orders
// that carry high-alert medications.
//
// With distinct actors enabled, repeated checks by the same actor count once.
type DoubleCheckGate struct {
	required       int
	distinctActors bool
}

// NewDoubleCheckGate validates the policy. required must be at least 1.
func NewDoubleCheckGate(required int, distinctActors bool) (DoubleCheckGate, error) {
	if required < 1 {
		return DoubleCheckGate{}, errs.NewValueIsInvalidErrorWithCause(
			"required checks",
			fmt.Errorf("%d is not greater than 0", required),
		)
	}
	return DoubleCheckGate{required: required, distinctActors: distinctActors}, nil
}

// DefaultDoubleCheckGate requires two checks from two distinct actors.
func DefaultDoubleCheckGate() DoubleCheckGate {
	return DoubleCheckGate{required: DefaultRequiredChecks, distinctActors: true}
}

func (g DoubleCheckGate) Required() int {
	return g.required
}

func (g DoubleCheckGate) DistinctActors() bool {
	return g.distinctActors
}

// Count returns the number of checks that qualify under the policy.
func (g DoubleCheckGate) Count(checks []order.HighAlertCheck) int {
	if !g.distinctActors {
		return len(checks)
	}
	seen := make(map[kernel.UUID]struct{}, len(checks))
	for _, c := range checks {
		seen[c.CheckerID] = struct{}{}
	}
	return len(seen)
}

// Satisfied reports whether checks meet the required count.
func (g DoubleCheckGate) Satisfied(checks []order.HighAlertCheck) bool {
	return g.Count(checks) >= g.required
}

// HasChecked reports whether actor already recorded a check.
func (g DoubleCheckGate) HasChecked(checks []order.HighAlertCheck, actor kernel.UUID) bool {
	for _, c := range checks {
		if c.CheckerID.IsEqual(actor) {
			return true
		}
	}
	return false
}

// BlocksTransition reports whether moving o to target must wait for more checks.
func (g DoubleCheckGate) BlocksTransition(o *order.Order, target order.Status) bool {
	return o.Status.IsLeavingChecking(target) && o.HasMAV() && !g.Satisfied(o.Checks)
}
