// Package sla holds the service-level reference data for medication orders:
// the per-priority time budget and the warning threshold, plus the evaluated
// status of a single order against that budget.
package sla
