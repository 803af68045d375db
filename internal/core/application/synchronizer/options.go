package synchronizer

import (
	"time"

	"pharmaqueue/internal/core/application/feed"
	"pharmaqueue/internal/core/application/reconciler"
	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/domain/model/sla"
	"pharmaqueue/internal/core/domain/services"
)

const defaultQueueSize = 256

// PollerFactory builds the fallback poller. refresh enqueues a full reload;
// lastSync returns the time of the last successful reconciliation.
type PollerFactory func(refresh func(), lastSync func() time.Time) feed.Poller

// Observer receives presentation updates. Calls come from the worker and the
// feed goroutines and must not block.
type Observer interface {
	OrdersChanged(orders []OrderView, stats reconciler.Stats)
	ConnectionChanged(health feed.Health)
	SLATick(statuses map[int64]sla.Status)
}

// Options configures one session.
type Options struct {
	// Actor is the identity every workflow call is made under.
	Actor     kernel.UUID
	AllowList []order.Status

	FallbackEnabled   bool
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	NewPoller         PollerFactory

	AlertOnInitialLoad bool
	Gate               services.DoubleCheckGate

	QueueSize int
	Observer  Observer
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if len(o.AllowList) == 0 {
		o.AllowList = order.DefaultAllowList()
	}
	if o.Gate.Required() == 0 {
		o.Gate = services.DefaultDoubleCheckGate()
	}
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type nopObserver struct{}

func (nopObserver) OrdersChanged([]OrderView, reconciler.Stats) {}
func (nopObserver) ConnectionChanged(feed.Health)               {}
func (nopObserver) SLATick(map[int64]sla.Status)                {}
