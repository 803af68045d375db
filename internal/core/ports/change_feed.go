package ports

import (
	"context"
	"time"

	"pharmaqueue/internal/core/domain/model/order"
)

// Tables watched by the change feed.
const (
	TableOrders          = "orders"
	TableOrderItems      = "order_items"
	TableHighAlertChecks = "high_alert_checks"
)

// FeedTables returns the tables a pharmacy queue subscribes to.
func FeedTables() []string {
	return []string{TableOrders, TableOrderItems, TableHighAlertChecks}
}

// ChannelStatus is a lifecycle signal of a subscription.
type ChannelStatus string

const (
	ChannelSubscribed ChannelStatus = "SUBSCRIBED"
	ChannelError      ChannelStatus = "CHANNEL_ERROR"
	ChannelTimedOut   ChannelStatus = "TIMED_OUT"
	ChannelClosed     ChannelStatus = "CLOSED"
)

// ChangeKind is the row operation that produced a change.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
)

// ChangeEvent is one row-level change. For order rows RowID is the order id
// and Status/CreatedAt are set; for item and check rows OrderID names the owner.
type ChangeEvent struct {
	Table     string       `json:"table"`
	Kind      ChangeKind   `json:"type"`
	RowID     int64        `json:"id"`
	OrderID   int64        `json:"order_id,omitempty"`
	Status    order.Status `json:"status,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// IsOrderRow reports whether the change concerns the orders table itself.
func (e ChangeEvent) IsOrderRow() bool {
	return e.Table == TableOrders
}

// FeedMessage carries either a status signal or a change. Err accompanies
// ChannelError and ChannelTimedOut when the transport knows the cause.
type FeedMessage struct {
	Status ChannelStatus
	Err    error
	Change *ChangeEvent
}

// Subscription is one live subscription. Messages is closed when the
// subscription ends for any reason; a closed channel reads as ChannelClosed.
type Subscription interface {
	Messages() <-chan FeedMessage
	Close()
}

// ChangeFeed opens subscriptions scoped to a set of tables.
type ChangeFeed interface {
	Subscribe(ctx context.Context, tables []string) (Subscription, error)
}
