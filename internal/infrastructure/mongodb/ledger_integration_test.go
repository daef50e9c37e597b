package mongodb

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/stock-ledger-service/internal/application"
	"github.com/wms-platform/stock-ledger-service/internal/domain"
	"github.com/wms-platform/stock-ledger-service/pkg/logging"
	outboxMongo "github.com/wms-platform/stock-ledger-service/pkg/outbox/mongodb"
	wmstesting "github.com/wms-platform/stock-ledger-service/pkg/testing"
)

type LedgerIntegrationTestSuite struct {
	suite.Suite
	mongoContainer *wmstesting.MongoDBContainer
	client         *mongo.Client
	db             *mongo.Database
	refRepo        *ReferenceRepository
	balanceRepo    *BalanceRepository
	eventRepo      *EventRepository
	service        *application.LedgerApplicationService
	query          *application.QueryApplicationService
	ctx            context.Context
}

func (s *LedgerIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	// Transactions need a replica set; the container helper configures
	// a single-node one and waits until it is ready.
	container, err := wmstesting.NewMongoDBReplicaSetContainer(s.ctx)
	s.Require().NoError(err)
	s.mongoContainer = container

	client, err := container.GetDirectClient(s.ctx)
	s.Require().NoError(err)
	s.client = client

	s.db = client.Database("stock_ledger_test")

	s.refRepo = NewReferenceRepository(s.db)
	s.balanceRepo = NewBalanceRepository(s.db)
	s.eventRepo = NewEventRepository(s.db)
	outboxRepo := outboxMongo.NewOutboxRepository(s.db)
	txManager := NewTransactionManager(client)

	logCfg := logging.DefaultConfig("stock-ledger-test")
	logCfg.Output = io.Discard
	logger := logging.New(logCfg)

	s.service = application.NewLedgerApplicationService(
		s.refRepo, s.balanceRepo, s.eventRepo, outboxRepo, txManager, logger, "wms.ledger.events")
	s.query = application.NewQueryApplicationService(
		s.balanceRepo, s.eventRepo, outboxRepo, logger, "wms.ledger.events")

	s.seedReferenceData()
}

func (s *LedgerIntegrationTestSuite) seedReferenceData() {
	err := s.refRepo.SaveItem(s.ctx, &domain.Item{
		ID: "ITEM-WIDGET", TenantID: "tenant-001", SKU: "WIDGET", BaseUOM: "EA",
		Conversions: []domain.UnitConversion{
			{UOM: "CASE", Factor: domain.NewQuantityFromInt(24), Precision: 0},
		},
	})
	s.Require().NoError(err)

	for _, loc := range []*domain.Location{
		{ID: "DOCK1", TenantID: "tenant-001", SiteID: "SITE1", Code: "DOCK1", Type: domain.LocationTypeDock},
		{ID: "RACK1", TenantID: "tenant-001", SiteID: "SITE1", Code: "RACK1", Type: domain.LocationTypeRack},
	} {
		s.Require().NoError(s.refRepo.SaveLocation(s.ctx, loc))
	}

	err = s.refRepo.SaveReasonCode(s.ctx, &domain.ReasonCode{
		ID: "RC-DAMAGE", TenantID: "tenant-001", Code: "DAMAGED", EventType: domain.EventTypeScrap,
	})
	s.Require().NoError(err)
}

func (s *LedgerIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Disconnect(s.ctx)
	}
	if s.mongoContainer != nil {
		s.Require().NoError(s.mongoContainer.Close(s.ctx))
	}
}

func (s *LedgerIntegrationTestSuite) TearDownTest() {
	s.db.Collection("inventory_balances").Drop(s.ctx)
	s.db.Collection("stock_events").Drop(s.ctx)
	s.db.Collection("outbox_events").Drop(s.ctx)
}

func TestLedgerIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	suite.Run(t, new(LedgerIntegrationTestSuite))
}

func (s *LedgerIntegrationTestSuite) receive(qty, uom, locationID string) *application.ApplyResultDTO {
	result, err := s.service.ApplyEvent(s.ctx, application.ApplyEventCommand{
		TenantID: "tenant-001", Type: "RECEIVE", ItemID: "ITEM-WIDGET",
		Qty: qty, UOM: uom, ToLocationID: locationID, ActorID: "test-user",
	})
	s.Require().NoError(err)
	return result
}

func (s *LedgerIntegrationTestSuite) TestApplyEvent_PersistsEventBalanceAndOutbox() {
	// Act
	result := s.receive("2", "CASE", "DOCK1")

	// Assert - balance row written with the converted quantity
	balance, err := s.balanceRepo.Find(s.ctx, "tenant-001", "ITEM-WIDGET", "DOCK1")
	s.Require().NoError(err)
	s.Equal("48", balance.QtyBase.String())
	s.Equal(int64(1), balance.Version)
	s.Equal("SITE1", balance.SiteID)

	// Assert - event persisted with its deltas
	id, err := domain.ParseEventID(result.Event.EventID)
	s.Require().NoError(err)
	event, err := s.eventRepo.FindByID(s.ctx, "tenant-001", id)
	s.Require().NoError(err)
	s.Equal("24", event.Factor.String())
	s.Require().Len(event.Deltas, 1)
	s.Equal("DOCK1", event.Deltas[0].LocationID)

	// Assert - outbox events written in the same transaction
	count, err := s.db.Collection("outbox_events").CountDocuments(s.ctx, map[string]interface{}{})
	s.Require().NoError(err)
	s.Greater(count, int64(0))
}

func (s *LedgerIntegrationTestSuite) TestApplyEvent_VersionAdvancesPerWrite() {
	s.receive("10", "EA", "RACK1")

	_, err := s.service.ApplyEvent(s.ctx, application.ApplyEventCommand{
		TenantID: "tenant-001", Type: "SCRAP", ItemID: "ITEM-WIDGET",
		Qty: "1", UOM: "EA", FromLocationID: "RACK1", ReasonCodeID: "RC-DAMAGE", ActorID: "test-user",
	})
	s.Require().NoError(err)

	balance, err := s.balanceRepo.Find(s.ctx, "tenant-001", "ITEM-WIDGET", "RACK1")
	s.Require().NoError(err)
	s.Equal(int64(2), balance.Version)
	s.Equal("9", balance.QtyBase.String())
}

func (s *LedgerIntegrationTestSuite) TestApplyEvent_NegativeBalanceLeavesNothingBehind() {
	s.receive("10", "EA", "RACK1")

	_, err := s.service.ApplyEvent(s.ctx, application.ApplyEventCommand{
		TenantID: "tenant-001", Type: "MOVE", ItemID: "ITEM-WIDGET",
		Qty: "20", UOM: "EA", FromLocationID: "RACK1", ToLocationID: "DOCK1", ActorID: "test-user",
	})
	s.Require().ErrorIs(err, domain.ErrNegativeBalance)

	// The aborted transaction must not leave a destination row or event.
	balance, err := s.balanceRepo.Find(s.ctx, "tenant-001", "ITEM-WIDGET", "RACK1")
	s.Require().NoError(err)
	s.Equal("10", balance.QtyBase.String())

	_, err = s.balanceRepo.Find(s.ctx, "tenant-001", "ITEM-WIDGET", "DOCK1")
	s.Require().ErrorIs(err, domain.ErrBalanceNotFound)

	eventCount, err := s.db.Collection("stock_events").CountDocuments(s.ctx, map[string]interface{}{"type": "MOVE"})
	s.Require().NoError(err)
	s.Equal(int64(0), eventCount)
}

func (s *LedgerIntegrationTestSuite) TestUpdate_StaleVersionConflicts() {
	s.receive("10", "EA", "RACK1")

	balance, err := s.balanceRepo.Find(s.ctx, "tenant-001", "ITEM-WIDGET", "RACK1")
	s.Require().NoError(err)

	// First writer wins.
	stale := *balance
	s.Require().NoError(balance.Apply(domain.BalanceDelta{
		ItemID: "ITEM-WIDGET", LocationID: "RACK1",
		QtyBase: domain.NewQuantityFromInt(-5), HeldQtyBase: domain.ZeroQuantity(),
	}))
	s.Require().NoError(s.balanceRepo.Update(s.ctx, balance, stale.Version))

	// Second writer holds the old version and must be rejected.
	s.Require().NoError(stale.Apply(domain.BalanceDelta{
		ItemID: "ITEM-WIDGET", LocationID: "RACK1",
		QtyBase: domain.NewQuantityFromInt(-5), HeldQtyBase: domain.ZeroQuantity(),
	}))
	err = s.balanceRepo.Update(s.ctx, &stale, stale.Version-1)
	s.Require().ErrorIs(err, domain.ErrConcurrencyConflict)
}

func (s *LedgerIntegrationTestSuite) TestConcurrentIssues_SerializeToZero() {
	s.receive("10", "EA", "RACK1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.ApplyEvent(context.Background(), application.ApplyEventCommand{
				TenantID: "tenant-001", Type: "ISSUE_TO_WORKCELL", ItemID: "ITEM-WIDGET",
				Qty: "5", UOM: "EA", FromLocationID: "RACK1", WorkcellID: "WC-7", ActorID: "test-user",
			})
		}(i)
	}
	wg.Wait()

	s.Require().NoError(errs[0])
	s.Require().NoError(errs[1])

	balance, err := s.balanceRepo.Find(s.ctx, "tenant-001", "ITEM-WIDGET", "RACK1")
	s.Require().NoError(err)
	s.True(balance.QtyBase.IsZero(), "expected 0 after both issues, got %s", balance.QtyBase)
	s.Equal(int64(3), balance.Version)
}

func (s *LedgerIntegrationTestSuite) TestReplay_MatchesStoredProjection() {
	s.receive("2", "CASE", "DOCK1")
	_, err := s.service.ApplyEvent(s.ctx, application.ApplyEventCommand{
		TenantID: "tenant-001", Type: "MOVE", ItemID: "ITEM-WIDGET",
		Qty: "30", UOM: "EA", FromLocationID: "DOCK1", ToLocationID: "RACK1", ActorID: "test-user",
	})
	s.Require().NoError(err)
	_, err = s.service.ApplyEvent(s.ctx, application.ApplyEventCommand{
		TenantID: "tenant-001", Type: "COUNT", ItemID: "ITEM-WIDGET",
		Qty: "25", UOM: "EA", ToLocationID: "RACK1", ActorID: "test-user",
	})
	s.Require().NoError(err)

	result, err := s.query.Reconcile(s.ctx, application.ReconcileCommand{
		TenantID: "tenant-001", ItemID: "ITEM-WIDGET",
	})
	s.Require().NoError(err)
	s.Equal("matched", result.Status)
	s.Equal(2, result.LocationsChecked)
	s.Empty(result.Variances)

	replay, err := s.query.Replay(s.ctx, application.ReplayQuery{
		TenantID: "tenant-001", ItemID: "ITEM-WIDGET",
	})
	s.Require().NoError(err)
	s.Require().Len(replay.Balances, 2)
	s.Equal("18", replay.Balances[0].QtyBase)
	s.Equal("25", replay.Balances[1].QtyBase)
}

func (s *LedgerIntegrationTestSuite) TestMultiTenancy_BalancesIsolated() {
	s.receive("10", "EA", "RACK1")

	// The other tenant has no such item at all.
	_, err := s.service.ApplyEvent(s.ctx, application.ApplyEventCommand{
		TenantID: "tenant-002", Type: "RECEIVE", ItemID: "ITEM-WIDGET",
		Qty: "10", UOM: "EA", ToLocationID: "RACK1", ActorID: "test-user",
	})
	s.Require().ErrorIs(err, domain.ErrItemNotFound)

	_, err = s.balanceRepo.Find(s.ctx, "tenant-002", "ITEM-WIDGET", "RACK1")
	s.Require().ErrorIs(err, domain.ErrBalanceNotFound)
}
