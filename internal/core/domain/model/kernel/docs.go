// Package kernel provides shared domain primitives for the pharmacy queue.
//
// The package includes:
//   - UUID: a validated value object identifying actors (nurses, pharmacists)
//     who create, claim, check and advance orders
//
// Primitives are immutable and comparable, so they can be used as map keys
// when batching display-name lookups.
package kernel
