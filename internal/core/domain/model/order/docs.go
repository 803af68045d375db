// Package order provides the medication order projection and its workflow
// state machine.
//
// The package includes:
//   - Order: the enriched projection of an order with items and high-alert checks
//   - Status: the lifecycle state machine draft → submitted → picking → checking
//     → ready → delivered → received, with cancelled reachable from any
//     non-terminal status
//   - Priority: normal or urgent, selecting the SLA budget
//
// Key business rules:
//   - A status moves only to its immediate successor or to cancelled
//   - An order carries a high-alert medication (MAV) if any item is flagged
//   - The assignee is set at most once per lifecycle pass
//
// Guarded transitions are enforced by the store; this package only lets the
// client reject obviously illegal requests before sending them.
package order
