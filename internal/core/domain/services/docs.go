// Package services provides stateless domain services for the pharmacy queue
// that do not belong to a single order.
//
// The package includes:
//   - SLAEvaluator: maps an order's priority and age to elapsed and remaining
//     time and a severity tier, using a read-only budget table
//   - DoubleCheckGate: the high-alert double-check policy deciding whether a
//     set of checks allows an order to leave checking
package services
