package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/stock-ledger-service/internal/application"
	mongoRepo "github.com/wms-platform/stock-ledger-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/stock-ledger-service/pkg/cloudevents"
	"github.com/wms-platform/stock-ledger-service/pkg/idempotency"
	"github.com/wms-platform/stock-ledger-service/pkg/kafka"
	"github.com/wms-platform/stock-ledger-service/pkg/logging"
	outboxMongo "github.com/wms-platform/stock-ledger-service/pkg/outbox/mongodb"
)

const serviceName = "stock-ledger-monitor"

// Reconciliation monitor: replays each item's event stream and compares
// the result against the stored balance projection. In continuous mode
// it consumes ledger events from Kafka and reconciles only the items
// that recently changed; with -once it sweeps every balance row.

var (
	mongoURI     = flag.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	dbName       = flag.String("db", "stock_ledger_db", "Database name")
	kafkaBrokers = flag.String("kafka-brokers", "localhost:9092", "Kafka brokers, comma separated")
	interval     = flag.Duration("interval", 5*time.Minute, "Reconciliation interval in continuous mode")
	once         = flag.Bool("once", false, "Reconcile every item once and exit")
)

func main() {
	flag.Parse()

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting reconciliation monitor",
		"database", *dbName,
		"interval", interval.String(),
		"once", *once)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURI))
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, nil); err != nil {
		logger.WithError(err).Error("Failed to ping MongoDB")
		os.Exit(1)
	}
	logger.Info("Connected to MongoDB")

	db := client.Database(*dbName)

	balanceRepo := mongoRepo.NewBalanceRepository(db)
	eventRepo := mongoRepo.NewEventRepository(db)
	outboxRepo := outboxMongo.NewOutboxRepository(db)
	queryService := application.NewQueryApplicationService(
		balanceRepo,
		eventRepo,
		outboxRepo,
		logger,
		kafka.Topics.ReconciliationEvents,
	)

	runCtx := context.Background()

	if *once {
		if err := reconcileAll(runCtx, db, queryService, logger); err != nil {
			logger.WithError(err).Error("Full reconciliation sweep failed")
			os.Exit(1)
		}
		logger.Info("Reconciliation sweep completed")
		return
	}

	runContinuous(runCtx, db, queryService, logger)
}

// itemKey identifies one item within one tenant.
type itemKey struct {
	TenantID string
	ItemID   string
}

// dirtySet accumulates items touched by ledger events between
// reconciliation ticks.
type dirtySet struct {
	mu    sync.Mutex
	items map[itemKey]struct{}
}

func newDirtySet() *dirtySet {
	return &dirtySet{items: make(map[itemKey]struct{})}
}

func (s *dirtySet) Add(key itemKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = struct{}{}
}

func (s *dirtySet) Drain() []itemKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]itemKey, 0, len(s.items))
	for key := range s.items {
		keys = append(keys, key)
	}
	s.items = make(map[itemKey]struct{})
	return keys
}

// runContinuous consumes ledger events to learn which items changed,
// then reconciles the accumulated set on every tick. Message
// deduplication keeps redelivered events from marking items twice;
// a duplicate mark is harmless, so dedup is mostly here to keep the
// hit/miss metrics honest.
func runContinuous(ctx context.Context, db *mongo.Database, queryService *application.QueryApplicationService, logger *logging.Logger) {
	dirty := newDirtySet()

	messageRepo := idempotency.NewMongoMessageRepository(db)
	dedupConfig := idempotency.DefaultConsumerConfig(serviceName, kafka.Topics.LedgerEvents, serviceName, messageRepo)

	consumerConfig := kafka.DefaultConfig()
	consumerConfig.Brokers = strings.Split(*kafkaBrokers, ",")
	consumerConfig.ConsumerGroup = serviceName
	consumerConfig.ClientID = serviceName

	consumer := kafka.NewConsumer(consumerConfig, logger.Logger)
	consumer.Subscribe(kafka.Topics.LedgerEvents, cloudevents.StockEventRecorded,
		kafka.EventHandler(idempotency.DeduplicatingHandler(dedupConfig, func(ctx context.Context, event *cloudevents.WMSCloudEvent) error {
			key, ok := itemKeyFromEvent(event)
			if !ok {
				logger.Warn("Ledger event without tenant or item, skipping", "eventId", event.ID)
				return nil
			}
			dirty.Add(key)
			return nil
		})))

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	go func() {
		if err := consumer.Start(consumerCtx); err != nil && consumerCtx.Err() == nil {
			logger.WithError(err).Error("Kafka consumer stopped")
		}
	}()
	defer consumer.Close()
	logger.Info("Consuming ledger events", "topic", kafka.Topics.LedgerEvents)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			keys := dirty.Drain()
			if len(keys) == 0 {
				continue
			}
			logger.Info("Reconciling changed items", "count", len(keys))
			reconcileItems(ctx, queryService, keys, logger)
		case <-quit:
			logger.Info("Shutting down monitor...")
			return
		}
	}
}

// reconcileAll sweeps every (tenant, item) pair present in the balance
// projection.
func reconcileAll(ctx context.Context, db *mongo.Database, queryService *application.QueryApplicationService, logger *logging.Logger) error {
	pipeline := []bson.M{
		{"$group": bson.M{"_id": bson.M{"tenantId": "$tenantId", "itemId": "$itemId"}}},
	}
	cursor, err := db.Collection("inventory_balances").Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var keys []itemKey
	for cursor.Next(ctx) {
		var row struct {
			ID struct {
				TenantID string `bson:"tenantId"`
				ItemID   string `bson:"itemId"`
			} `bson:"_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			logger.WithError(err).Warn("Failed to decode balance group row")
			continue
		}
		keys = append(keys, itemKey{TenantID: row.ID.TenantID, ItemID: row.ID.ItemID})
	}
	if err := cursor.Err(); err != nil {
		return err
	}

	logger.Info("Sweeping all items", "count", len(keys))
	reconcileItems(ctx, queryService, keys, logger)
	return nil
}

func reconcileItems(ctx context.Context, queryService *application.QueryApplicationService, keys []itemKey, logger *logging.Logger) {
	var matched, varianced, failed int
	for _, key := range keys {
		report, err := queryService.Reconcile(ctx, application.ReconcileCommand{
			TenantID: key.TenantID,
			ItemID:   key.ItemID,
			ActorID:  serviceName,
		})
		if err != nil {
			failed++
			logger.WithError(err).Error("Reconciliation failed",
				"tenantId", key.TenantID, "itemId", key.ItemID)
			continue
		}
		if len(report.Variances) > 0 {
			varianced++
			logger.Warn("Balance variance detected",
				"tenantId", key.TenantID,
				"itemId", key.ItemID,
				"locationsChecked", report.LocationsChecked,
				"variances", len(report.Variances))
		} else {
			matched++
		}
	}
	logger.Info("Reconciliation pass finished",
		"matched", matched, "variances", varianced, "failed", failed)
}

func itemKeyFromEvent(event *cloudevents.WMSCloudEvent) (itemKey, bool) {
	data, ok := event.Data.(map[string]interface{})
	if !ok {
		return itemKey{}, false
	}
	tenantID, _ := data["tenantId"].(string)
	itemID, _ := data["itemId"].(string)
	if tenantID == "" || itemID == "" {
		return itemKey{}, false
	}
	return itemKey{TenantID: tenantID, ItemID: itemID}, true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
