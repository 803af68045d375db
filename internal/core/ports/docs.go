// Package ports defines the contracts between the pharmacy queue core and the
// outside world: the order store it reads, the guarded workflow calls it makes,
// the change feed it listens to, the SLA reference table and the alert sound.
//
// Adapters under internal/adapters implement these interfaces; the core
// depends only on them.
package ports
