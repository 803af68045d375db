package services_test

import (
	"testing"
	"time"

	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/domain/model/sla"
	"pharmaqueue/internal/core/domain/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvaluator(t *testing.T, now time.Time) services.SLAEvaluator {
	t.Helper()

	normal, err := sla.NewConfig(order.Normal, 60, 0)
	require.NoError(t, err)
	urgent, err := sla.NewConfig(order.Urgent, 15, 50)
	require.NoError(t, err)

	return services.NewSLAEvaluator(sla.NewTable(normal, urgent), func() time.Time { return now })
}

func TestSLAEvaluator_Evaluate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	evaluator := newTestEvaluator(t, now)

	testCases := []struct {
		name      string
		priority  order.Priority
		age       time.Duration
		severity  sla.Severity
		remaining float64
		percent   float64
		expired   bool
	}{
		{"fresh normal order is ok", order.Normal, 10 * time.Minute, sla.SeverityOK, 50, 100.0 / 6, false},
		{"default threshold of 80 triggers warning", order.Normal, 48 * time.Minute, sla.SeverityWarning, 12, 80, false},
		{"just below threshold is ok", order.Normal, 47 * time.Minute, sla.SeverityOK, 13, 47.0 / 60 * 100, false},
		{"exhausted budget is critical", order.Normal, 60 * time.Minute, sla.SeverityCritical, 0, 100, true},
		{"overdue clamps percentage", order.Normal, 90 * time.Minute, sla.SeverityCritical, 0, 100, true},
		{"custom threshold applies per priority", order.Urgent, 8 * time.Minute, sla.SeverityWarning, 7, 800.0 / 15, false},
		{"future creation clamps percentage to zero", order.Urgent, -5 * time.Minute, sla.SeverityOK, 20, 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status := evaluator.Evaluate(tc.priority, now.Add(-tc.age))

			assert.Equal(t, tc.severity, status.Severity)
			assert.InDelta(t, tc.remaining, status.RemainingMinutes, 0.001)
			assert.InDelta(t, tc.percent, status.PercentageUsed, 0.001)
			assert.Equal(t, tc.expired, status.Expired)
		})
	}

	t.Run("unknown priority yields the neutral status", func(t *testing.T) {
		empty := services.NewSLAEvaluator(nil, func() time.Time { return now })

		status := empty.Evaluate(order.Urgent, now.Add(-time.Hour))

		assert.Equal(t, sla.SeverityUnknown, status.Severity)
		assert.Zero(t, status.ElapsedMinutes)
		assert.Zero(t, status.TotalMinutes)
		assert.False(t, status.Expired)
	})
}

func TestSLAEvaluator_EvaluateOrders(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	evaluator := newTestEvaluator(t, now)
	orders := []*order.Order{
		{ID: 1, Priority: order.Normal, CreatedAt: now.Add(-5 * time.Minute)},
		{ID: 2, Priority: order.Urgent, CreatedAt: now.Add(-20 * time.Minute)},
	}

	result := evaluator.EvaluateOrders(orders)

	require.Len(t, result, 2)
	assert.Equal(t, sla.SeverityOK, result[1].Severity)
	assert.Equal(t, sla.SeverityCritical, result[2].Severity)
	assert.Equal(t, "55m", result[1].Remaining)
	assert.Equal(t, "00:00", result[2].Remaining)
}

func TestFormatRemaining(t *testing.T) {
	testCases := []struct {
		minutes float64
		want    string
	}{
		{0, "00:00"},
		{-3, "00:00"},
		{0.5, "00m"},
		{7.9, "07m"},
		{59, "59m"},
		{60, "1h 00m"},
		{125.4, "2h 05m"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, sla.FormatRemaining(tc.minutes))
		})
	}
}

func TestNewConfig(t *testing.T) {
	t.Run("defaults the warning threshold", func(t *testing.T) {
		cfg, err := sla.NewConfig(order.Normal, 30, 0)

		require.NoError(t, err)
		assert.Equal(t, sla.DefaultWarningThresholdPercent, cfg.WarningThresholdPercent)
	})

	t.Run("rejects invalid rows", func(t *testing.T) {
		_, err := sla.NewConfig(order.PriorityUnknown, 0, 120)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "priority is invalid")
		assert.Contains(t, err.Error(), "budget minutes")
		assert.Contains(t, err.Error(), "warning threshold percent")
	})
}
