// Package queries contains read operations over the order store.
//
// Both queries return orders enriched the same way: items and checks joined,
// and every referenced actor (assignee and checkers) resolved to a display
// name through one batched lookup per call.
package queries
