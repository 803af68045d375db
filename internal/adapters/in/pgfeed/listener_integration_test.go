package pgfeed_test

import (
	"context"
	"testing"
	"time"

	"pharmaqueue/internal/adapters/in/pgfeed"
	"pharmaqueue/internal/adapters/out/postgres/orderrepo"
	"pharmaqueue/internal/adapters/out/postgres/pgtest"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
)

type ListenerIntegrationTestSuite struct {
	suite.Suite
	db       *pgtest.Database
	listener *pgfeed.Listener
	orders   *orderrepo.GormOrderRepository
}

func (suite *ListenerIntegrationTestSuite) SetupSuite() {
	db, err := pgtest.Start(context.Background())
	suite.Require().NoError(err)
	suite.db = db
	suite.listener = pgfeed.NewListener(db.Pool, "", 5*time.Second, zerolog.Nop())
	suite.orders = orderrepo.NewGormOrderRepository(db.DB)
}

func (suite *ListenerIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Reset(context.Background()))
}

func (suite *ListenerIntegrationTestSuite) TearDownSuite() {
	if suite.db != nil {
		suite.Require().NoError(suite.db.Close(context.Background()))
	}
}

func (suite *ListenerIntegrationTestSuite) next(sub ports.Subscription) (ports.FeedMessage, bool) {
	select {
	case msg, open := <-sub.Messages():
		return msg, open
	case <-time.After(5 * time.Second):
		suite.FailNow("no feed message")
		return ports.FeedMessage{}, false
	}
}

func (suite *ListenerIntegrationTestSuite) TestDeliversScopedChanges() {
	// Given
	ctx := context.Background()
	sub, err := suite.listener.Subscribe(ctx, []string{ports.TableOrders})
	suite.Require().NoError(err)
	defer sub.Close()

	msg, open := suite.next(sub)
	suite.Require().True(open)
	suite.Equal(ports.ChannelSubscribed, msg.Status)

	medID, err := suite.orders.AddMed(ctx, "Morphine", "mg", true)
	suite.Require().NoError(err)

	// When
	o := &order.Order{Status: order.Submitted, Priority: order.Urgent, Items: []order.Item{{MedID: medID, Qty: 2, Unit: "mg", HighAlert: true}}}
	suite.Require().NoError(suite.orders.Add(ctx, o))

	// Then only the order row arrives
	msg, open = suite.next(sub)
	suite.Require().True(open)
	suite.Require().NotNil(msg.Change)
	suite.Equal(ports.TableOrders, msg.Change.Table)
	suite.Equal(ports.ChangeInsert, msg.Change.Kind)
	suite.Equal(o.ID, msg.Change.RowID)
	suite.Equal(order.Submitted, msg.Change.Status)
	suite.WithinDuration(o.CreatedAt, msg.Change.CreatedAt, time.Second)

	suite.Require().NoError(suite.orders.Delete(ctx, o.ID))
	msg, open = suite.next(sub)
	suite.Require().True(open)
	suite.Require().NotNil(msg.Change)
	suite.Equal(ports.ChangeDelete, msg.Change.Kind)
	suite.Equal(o.ID, msg.Change.RowID)
}

func (suite *ListenerIntegrationTestSuite) TestChildRowsCarryOwner() {
	ctx := context.Background()
	sub, err := suite.listener.Subscribe(ctx, []string{ports.TableOrderItems})
	suite.Require().NoError(err)
	defer sub.Close()
	suite.next(sub)

	medID, err := suite.orders.AddMed(ctx, "Saline", "ml", false)
	suite.Require().NoError(err)
	o := &order.Order{Status: order.Submitted, Priority: order.Normal, Items: []order.Item{{MedID: medID, Qty: 1, Unit: "ml"}}}
	suite.Require().NoError(suite.orders.Add(ctx, o))

	msg, open := suite.next(sub)
	suite.Require().True(open)
	suite.Require().NotNil(msg.Change)
	suite.Equal(ports.TableOrderItems, msg.Change.Table)
	suite.Equal(o.ID, msg.Change.OrderID)
	suite.Equal(o.Items[0].ID, msg.Change.RowID)
}

func (suite *ListenerIntegrationTestSuite) TestCloseEndsSubscription() {
	sub, err := suite.listener.Subscribe(context.Background(), ports.FeedTables())
	suite.Require().NoError(err)
	suite.next(sub)

	sub.Close()

	_, open := <-sub.Messages()
	suite.False(open)
}

func (suite *ListenerIntegrationTestSuite) TestTerminatedBackendReportsError() {
	// Given
	ctx := context.Background()
	sub, err := suite.listener.Subscribe(ctx, ports.FeedTables())
	suite.Require().NoError(err)
	defer sub.Close()
	suite.next(sub)

	// When the listening backend is killed
	_, err = suite.db.Pool.Exec(ctx, `SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE query ILIKE 'LISTEN%' AND pid <> pg_backend_pid()`)
	suite.Require().NoError(err)

	// Then the subscription reports the failure and ends
	msg, open := suite.next(sub)
	suite.Require().True(open)
	suite.Equal(ports.ChannelError, msg.Status)
	suite.Error(msg.Err)

	_, open = suite.next(sub)
	suite.False(open)
}

func (suite *ListenerIntegrationTestSuite) TestConfiguredChannel() {
	// Given a listener on a non-default channel
	ctx := context.Background()
	ward := pgfeed.NewListener(suite.db.Pool, "ward_changes", 5*time.Second, zerolog.Nop())
	suite.Require().NoError(ward.ApplyChannel(ctx))
	defer func() { suite.Require().NoError(suite.listener.ApplyChannel(ctx)) }()

	sub, err := ward.Subscribe(ctx, []string{ports.TableOrders})
	suite.Require().NoError(err)
	defer sub.Close()
	msg, open := suite.next(sub)
	suite.Require().True(open)
	suite.Require().Equal(ports.ChannelSubscribed, msg.Status)

	// When
	o := &order.Order{Status: order.Submitted, Priority: order.Normal}
	suite.Require().NoError(suite.orders.Add(ctx, o))

	// Then the triggers publish on that channel
	msg, open = suite.next(sub)
	suite.Require().True(open)
	suite.Require().NotNil(msg.Change)
	suite.Equal(o.ID, msg.Change.RowID)
}

func TestListenerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration suite needs docker")
	}
	suite.Run(t, new(ListenerIntegrationTestSuite))
}
