package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/stock-ledger-service/internal/domain"
)

type BalanceRepository struct {
	collection *mongo.Collection
}

func NewBalanceRepository(db *mongo.Database) *BalanceRepository {
	repo := &BalanceRepository{collection: db.Collection("inventory_balances")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *BalanceRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		// One row per (tenant, item, location). The unique index is
		// what turns two racing lazy creates into a duplicate key
		// error instead of a double insert.
		{
			Keys: bson.D{
				{Key: "tenantId", Value: 1},
				{Key: "itemId", Value: 1},
				{Key: "locationId", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		// Per-item listing
		{
			Keys: bson.D{
				{Key: "tenantId", Value: 1},
				{Key: "itemId", Value: 1},
			},
		},
		// Per-site reporting
		{
			Keys: bson.D{
				{Key: "tenantId", Value: 1},
				{Key: "siteId", Value: 1},
			},
		},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *BalanceRepository) Find(ctx context.Context, tenantID, itemID, locationID string) (*domain.InventoryBalance, error) {
	filter := bson.M{
		"tenantId":   tenantID,
		"itemId":     itemID,
		"locationId": locationID,
	}

	var balance domain.InventoryBalance
	err := r.collection.FindOne(ctx, filter).Decode(&balance)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrBalanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find balance: %w", err)
	}
	return &balance, nil
}

func (r *BalanceRepository) FindForItem(ctx context.Context, tenantID, itemID string) ([]*domain.InventoryBalance, error) {
	filter := bson.M{
		"tenantId": tenantID,
		"itemId":   itemID,
	}
	opts := options.Find().SetSort(bson.D{{Key: "locationId", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find balances: %w", err)
	}
	defer cursor.Close(ctx)

	var balances []*domain.InventoryBalance
	if err := cursor.All(ctx, &balances); err != nil {
		return nil, fmt.Errorf("failed to decode balances: %w", err)
	}
	return balances, nil
}

// FindMany loads the rows for a set of locations sorted ascending by
// locationId. Callers rely on this ordering to touch rows in a stable
// sequence across concurrent writers.
func (r *BalanceRepository) FindMany(ctx context.Context, tenantID, itemID string, locationIDs []string) ([]*domain.InventoryBalance, error) {
	filter := bson.M{
		"tenantId":   tenantID,
		"itemId":     itemID,
		"locationId": bson.M{"$in": locationIDs},
	}
	opts := options.Find().SetSort(bson.D{{Key: "locationId", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find balances: %w", err)
	}
	defer cursor.Close(ctx)

	var balances []*domain.InventoryBalance
	if err := cursor.All(ctx, &balances); err != nil {
		return nil, fmt.Errorf("failed to decode balances: %w", err)
	}
	return balances, nil
}

// SaveNew inserts a freshly created row. A duplicate key means another
// writer created the same row first, which reads as a concurrency
// conflict to the retry loop above.
func (r *BalanceRepository) SaveNew(ctx context.Context, balance *domain.InventoryBalance) error {
	_, err := r.collection.InsertOne(ctx, balance)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrConcurrencyConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert balance: %w", err)
	}
	return nil
}

// Update replaces a row only if its stored version still matches
// expectedVersion. A miss means a concurrent writer got there first.
func (r *BalanceRepository) Update(ctx context.Context, balance *domain.InventoryBalance, expectedVersion int64) error {
	filter := bson.M{
		"tenantId":   balance.TenantID,
		"itemId":     balance.ItemID,
		"locationId": balance.LocationID,
		"version":    expectedVersion,
	}

	result, err := r.collection.ReplaceOne(ctx, filter, balance)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrConcurrencyConflict
	}
	return nil
}
