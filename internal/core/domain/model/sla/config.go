package sla

import (
	"errors"
	"fmt"

	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/pkg/errs"
)

// DefaultWarningThresholdPercent applies when a config row leaves the threshold unset.
const DefaultWarningThresholdPercent = 80

// Config is the time budget for one priority.
type Config struct {
	Priority                order.Priority `json:"priority"`
	BudgetMinutes           int            `json:"budgetMinutes"`
	WarningThresholdPercent int            `json:"warningThresholdPercent"`
}

// NewConfig validates a budget row. A zero threshold falls back to the default.
func NewConfig(priority order.Priority, budgetMinutes, warningThresholdPercent int) (Config, error) {
	if warningThresholdPercent == 0 {
		warningThresholdPercent = DefaultWarningThresholdPercent
	}

	var budgetErr, thresholdErr error
	if budgetMinutes <= 0 {
		budgetErr = errs.NewValueIsInvalidErrorWithCause("budget minutes", fmt.Errorf("%d is not greater than 0", budgetMinutes))
	}
	if warningThresholdPercent < 1 || warningThresholdPercent > 100 {
		thresholdErr = errs.NewValueIsOutOfRangeError("warning threshold percent", warningThresholdPercent, 1, 100)
	}

	if err := errors.Join(priority.Validate(), budgetErr, thresholdErr); err != nil {
		return Config{}, err
	}

	return Config{
		Priority:                priority,
		BudgetMinutes:           budgetMinutes,
		WarningThresholdPercent: warningThresholdPercent,
	}, nil
}

// Table maps each priority to its budget. It is read-only once built.
type Table map[order.Priority]Config

// NewTable indexes configs by priority; a later entry for the same priority wins.
func NewTable(configs ...Config) Table {
	table := make(Table, len(configs))
	for _, c := range configs {
		table[c.Priority] = c
	}
	return table
}

// Lookup returns the config for priority, if any.
func (t Table) Lookup(priority order.Priority) (Config, bool) {
	c, ok := t[priority]
	return c, ok
}
