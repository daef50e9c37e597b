package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/stock-ledger-service/internal/domain"
)

// ReferenceRepository serves the reference data the ledger validates
// against: items with their conversion tables, locations and reason
// codes.
type ReferenceRepository struct {
	items       *mongo.Collection
	locations   *mongo.Collection
	reasonCodes *mongo.Collection
}

func NewReferenceRepository(db *mongo.Database) *ReferenceRepository {
	repo := &ReferenceRepository{
		items:       db.Collection("items"),
		locations:   db.Collection("locations"),
		reasonCodes: db.Collection("reason_codes"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *ReferenceRepository) ensureIndexes(ctx context.Context) {
	r.items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "sku", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	r.locations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "siteId", Value: 1}},
		},
	})
	r.reasonCodes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
}

func (r *ReferenceRepository) GetItem(ctx context.Context, tenantID, itemID string) (*domain.Item, error) {
	var item domain.Item
	err := r.items.FindOne(ctx, bson.M{"_id": itemID, "tenantId": tenantID}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	return &item, nil
}

func (r *ReferenceRepository) GetLocation(ctx context.Context, tenantID, locationID string) (*domain.Location, error) {
	var location domain.Location
	err := r.locations.FindOne(ctx, bson.M{"_id": locationID, "tenantId": tenantID}).Decode(&location)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrLocationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find location: %w", err)
	}
	return &location, nil
}

func (r *ReferenceRepository) GetReasonCode(ctx context.Context, tenantID, reasonCodeID string) (*domain.ReasonCode, error) {
	var reasonCode domain.ReasonCode
	err := r.reasonCodes.FindOne(ctx, bson.M{"_id": reasonCodeID, "tenantId": tenantID}).Decode(&reasonCode)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrReasonCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reason code: %w", err)
	}
	return &reasonCode, nil
}

// SaveItem upserts an item definition. Used by migrations and tests.
func (r *ReferenceRepository) SaveItem(ctx context.Context, item *domain.Item) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.items.ReplaceOne(ctx, bson.M{"_id": item.ID}, item, opts); err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

// SaveLocation upserts a location definition.
func (r *ReferenceRepository) SaveLocation(ctx context.Context, location *domain.Location) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.locations.ReplaceOne(ctx, bson.M{"_id": location.ID}, location, opts); err != nil {
		return fmt.Errorf("failed to save location: %w", err)
	}
	return nil
}

// SaveReasonCode upserts a reason code definition.
func (r *ReferenceRepository) SaveReasonCode(ctx context.Context, reasonCode *domain.ReasonCode) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.reasonCodes.ReplaceOne(ctx, bson.M{"_id": reasonCode.ID}, reasonCode, opts); err != nil {
		return fmt.Errorf("failed to save reason code: %w", err)
	}
	return nil
}
