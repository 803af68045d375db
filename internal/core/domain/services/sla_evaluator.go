package services

import (
	"math"
	"time"

	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/domain/model/sla"
)

// SLAEvaluator computes the SLA status of orders against a budget table.
// It is safe for concurrent use; the table is never mutated after construction.
//
// Rules:
//   - elapsed = now - createdAt, in minutes
//   - remaining = max(0, budget - elapsed)
//   - percentage = elapsed / budget * 100, clamped to [0, 100]
//   - critical when elapsed >= budget, warning when percentage >= threshold, ok otherwise
//   - a priority without a budget yields the neutral status
type SLAEvaluator struct {
	table sla.Table
	now   func() time.Time
}

// NewSLAEvaluator builds an evaluator over table. A nil now defaults to time.Now.
func NewSLAEvaluator(table sla.Table, now func() time.Time) SLAEvaluator {
	if now == nil {
		now = time.Now
	}
	if table == nil {
		table = sla.Table{}
	}
	return SLAEvaluator{table: table, now: now}
}

// Table returns the budget table the evaluator was built with.
func (e SLAEvaluator) Table() sla.Table {
	return e.table
}

// Evaluate returns the SLA status of one order at the evaluator's current time.
func (e SLAEvaluator) Evaluate(priority order.Priority, createdAt time.Time) sla.Status {
	return e.EvaluateAt(priority, createdAt, e.now())
}

// EvaluateAt is Evaluate with an explicit instant.
func (e SLAEvaluator) EvaluateAt(priority order.Priority, createdAt, now time.Time) sla.Status {
	cfg, ok := e.table.Lookup(priority)
	if !ok || cfg.BudgetMinutes <= 0 {
		return sla.Neutral()
	}

	threshold := cfg.WarningThresholdPercent
	if threshold == 0 {
		threshold = sla.DefaultWarningThresholdPercent
	}

	budget := float64(cfg.BudgetMinutes)
	elapsed := now.Sub(createdAt).Minutes()
	remaining := math.Max(0, budget-elapsed)
	percentage := elapsed / budget * 100
	expired := elapsed >= budget

	severity := sla.SeverityOK
	switch {
	case expired:
		severity = sla.SeverityCritical
	case percentage >= float64(threshold):
		severity = sla.SeverityWarning
	}

	return sla.Status{
		Severity:         severity,
		ElapsedMinutes:   elapsed,
		RemainingMinutes: remaining,
		TotalMinutes:     budget,
		PercentageUsed:   math.Min(100, math.Max(0, percentage)),
		Expired:          expired,
		Remaining:        sla.FormatRemaining(remaining),
	}
}

// EvaluateOrders evaluates every order at a single instant, keyed by order id.
func (e SLAEvaluator) EvaluateOrders(orders []*order.Order) map[int64]sla.Status {
	now := e.now()
	result := make(map[int64]sla.Status, len(orders))
	for _, o := range orders {
		result[o.ID] = e.EvaluateAt(o.Priority, o.CreatedAt, now)
	}
	return result
}
