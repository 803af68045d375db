package slaconfigrepo_test

import (
	"context"
	"testing"

	"pharmaqueue/internal/adapters/out/postgres/pgtest"
	"pharmaqueue/internal/adapters/out/postgres/slaconfigrepo"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/domain/model/sla"

	"github.com/stretchr/testify/suite"
)

type SLAConfigRepositoryIntegrationTestSuite struct {
	suite.Suite
	db         *pgtest.Database
	repository *slaconfigrepo.GormSLAConfigRepository
}

func (suite *SLAConfigRepositoryIntegrationTestSuite) SetupSuite() {
	db, err := pgtest.Start(context.Background())
	suite.Require().NoError(err)
	suite.db = db
}

func (suite *SLAConfigRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Reset(context.Background()))
	suite.repository = slaconfigrepo.NewGormSLAConfigRepository(suite.db.DB)
}

func (suite *SLAConfigRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.db != nil {
		suite.Require().NoError(suite.db.Close(context.Background()))
	}
}

func (suite *SLAConfigRepositoryIntegrationTestSuite) TestLoad_DefaultRows() {
	configs, err := suite.repository.LoadSLAConfigs(context.Background())

	suite.Require().NoError(err)
	table := sla.NewTable(configs...)
	normal, found := table.Lookup(order.Normal)
	suite.Require().True(found)
	suite.Equal(60, normal.BudgetMinutes)
	urgent, found := table.Lookup(order.Urgent)
	suite.Require().True(found)
	suite.Equal(15, urgent.BudgetMinutes)
	suite.Equal(80, urgent.WarningThresholdPercent)
}

func (suite *SLAConfigRepositoryIntegrationTestSuite) TestUpsert_ReplacesBudget() {
	ctx := context.Background()
	cfg, err := sla.NewConfig(order.Urgent, 20, 50)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.repository.Upsert(ctx, cfg))
	configs, err := suite.repository.LoadSLAConfigs(ctx)

	suite.Require().NoError(err)
	urgent, found := sla.NewTable(configs...).Lookup(order.Urgent)
	suite.Require().True(found)
	suite.Equal(20, urgent.BudgetMinutes)
	suite.Equal(50, urgent.WarningThresholdPercent)
}

func TestSLAConfigRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration suite needs docker")
	}
	suite.Run(t, new(SLAConfigRepositoryIntegrationTestSuite))
}
