package orderrepo_test

import (
	"context"
	"testing"
	"time"

	"pharmaqueue/internal/adapters/out/postgres/orderrepo"
	"pharmaqueue/internal/adapters/out/postgres/pgtest"
	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
)

// OrderRepositoryIntegrationTestSuite runs the repository against a migrated
// PostgreSQL container.
type OrderRepositoryIntegrationTestSuite struct {
	suite.Suite
	db         *pgtest.Database
	repository *orderrepo.GormOrderRepository
	roomID     int64
	insulinID  int64
	salineID   int64
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupSuite() {
	db, err := pgtest.Start(context.Background())
	suite.Require().NoError(err)
	suite.db = db
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupTest() {
	ctx := context.Background()
	suite.Require().NoError(suite.db.Reset(ctx))
	suite.repository = orderrepo.NewGormOrderRepository(suite.db.DB)

	var err error
	suite.roomID, err = suite.repository.AddRoom(ctx, "ICU 3")
	suite.Require().NoError(err)
	suite.insulinID, err = suite.repository.AddMed(ctx, "Insulin", "IU", true)
	suite.Require().NoError(err)
	suite.salineID, err = suite.repository.AddMed(ctx, "Saline", "ml", false)
	suite.Require().NoError(err)
}

func (suite *OrderRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.db != nil {
		suite.Require().NoError(suite.db.Close(context.Background()))
	}
}

func (suite *OrderRepositoryIntegrationTestSuite) addOrder(status order.Status, createdAt time.Time, highAlert bool) *order.Order {
	items := []order.Item{{MedID: suite.salineID, Qty: 500, Unit: "ml"}}
	if highAlert {
		items = append(items, order.Item{MedID: suite.insulinID, Qty: 10, Unit: "IU", HighAlert: true})
	}
	o := &order.Order{
		Status:    status,
		Priority:  order.Normal,
		RoomID:    suite.roomID,
		CreatedAt: createdAt,
		Items:     items,
	}
	suite.Require().NoError(suite.repository.Add(context.Background(), o))
	return o
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAdd_AssignsIDs() {
	o := suite.addOrder(order.Submitted, time.Time{}, true)

	suite.Positive(o.ID)
	suite.False(o.CreatedAt.IsZero())
	for _, item := range o.Items {
		suite.Positive(item.ID)
	}
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAdd_RejectsUnknownStatus() {
	err := suite.repository.Add(context.Background(), &order.Order{Priority: order.Normal})

	suite.ErrorIs(err, errs.ErrValueIsInvalid)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_LoadsJoins() {
	// Given
	ctx := context.Background()
	created := suite.addOrder(order.Checking, time.Time{}, true)
	checker := kernel.NewUUID()
	suite.Require().NoError(suite.db.DB.Exec(
		`INSERT INTO high_alert_checks (order_id, checker_id, notes) VALUES (?, ?, 'ok')`,
		created.ID, checker.String(),
	).Error)

	// When
	o, err := suite.repository.Get(ctx, created.ID)

	// Then
	suite.Require().NoError(err)
	suite.Equal(order.Checking, o.Status)
	suite.Equal("ICU 3", o.RoomName)
	suite.Require().Len(o.Items, 2)
	suite.Equal("Saline", o.Items[0].MedName)
	suite.Equal("Insulin", o.Items[1].MedName)
	suite.InDelta(10, o.Items[1].Qty, 0.001)
	suite.True(o.HasMAV())
	suite.Require().Len(o.Checks, 1)
	suite.True(o.Checks[0].CheckerID.IsEqual(checker))
	suite.Equal("ok", o.Checks[0].Notes)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_NotFound() {
	_, err := suite.repository.Get(context.Background(), 404)

	suite.ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestListByStatuses_FiltersAndSorts() {
	// Given
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	late := suite.addOrder(order.Submitted, base.Add(10*time.Minute), false)
	early := suite.addOrder(order.Picking, base, false)
	suite.addOrder(order.Received, base.Add(-time.Minute), false)

	// When
	orders, err := suite.repository.ListByStatuses(context.Background(), []order.Status{order.Submitted, order.Picking})

	// Then
	suite.Require().NoError(err)
	suite.Require().Len(orders, 2)
	suite.Equal(early.ID, orders[0].ID)
	suite.Equal(late.ID, orders[1].ID)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestListByStatuses_EmptyAllowList() {
	suite.addOrder(order.Submitted, time.Time{}, false)

	orders, err := suite.repository.ListByStatuses(context.Background(), nil)

	suite.Require().NoError(err)
	suite.Empty(orders)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestResolveDisplayNames() {
	// Given
	ctx := context.Background()
	known, unknown := kernel.NewUUID(), kernel.NewUUID()
	suite.Require().NoError(suite.repository.UpsertProfile(ctx, known, "pharmacy", "Rui"))
	suite.Require().NoError(suite.repository.UpsertProfile(ctx, known, "pharmacy", "Rui Costa"))

	// When
	names, err := suite.repository.ResolveDisplayNames(ctx, []kernel.UUID{known, unknown})

	// Then
	suite.Require().NoError(err)
	suite.Equal(map[kernel.UUID]string{known: "Rui Costa"}, names)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestDelete() {
	ctx := context.Background()
	o := suite.addOrder(order.Submitted, time.Time{}, true)

	suite.Require().NoError(suite.repository.Delete(ctx, o.ID))

	_, err := suite.repository.Get(ctx, o.ID)
	suite.ErrorIs(err, errs.ErrObjectNotFound)
	suite.ErrorIs(suite.repository.Delete(ctx, o.ID), errs.ErrObjectNotFound)
}

func TestOrderRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration suite needs docker")
	}
	suite.Run(t, new(OrderRepositoryIntegrationTestSuite))
}
