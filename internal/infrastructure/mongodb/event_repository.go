package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/stock-ledger-service/internal/domain"
)

// EventRepository stores the append-only stock event stream. Events are
// never updated or deleted once written.
type EventRepository struct {
	collection *mongo.Collection
}

func NewEventRepository(db *mongo.Database) *EventRepository {
	repo := &EventRepository{collection: db.Collection("stock_events")}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *EventRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		// History and replay by item
		{
			Keys: bson.D{
				{Key: "tenantId", Value: 1},
				{Key: "itemId", Value: 1},
				{Key: "createdAt", Value: 1},
			},
		},
		// Lookup by touched location
		{
			Keys: bson.D{
				{Key: "tenantId", Value: 1},
				{Key: "deltas.locationId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		// Lookup by upstream reference (order, transfer, count sheet)
		{
			Keys: bson.D{
				{Key: "tenantId", Value: 1},
				{Key: "referenceId", Value: 1},
			},
			Options: options.Index().SetSparse(true),
		},
	}
	r.collection.Indexes().CreateMany(ctx, indexes)
}

func (r *EventRepository) Append(ctx context.Context, event *domain.StockEvent) error {
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to insert stock event: %w", err)
	}
	return nil
}

func (r *EventRepository) FindByID(ctx context.Context, tenantID string, id domain.EventID) (*domain.StockEvent, error) {
	filter := bson.M{
		"_id":      id,
		"tenantId": tenantID,
	}

	var event domain.StockEvent
	err := r.collection.FindOne(ctx, filter).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find stock event: %w", err)
	}
	return &event, nil
}

func (r *EventRepository) FindByItem(ctx context.Context, tenantID, itemID string, limit, offset int) ([]*domain.StockEvent, error) {
	filter := bson.M{
		"tenantId": tenantID,
		"itemId":   itemID,
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find stock events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*domain.StockEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode stock events: %w", err)
	}
	return events, nil
}

// FindForReplay returns an item's events up to the cutoff in their
// application order. Ties on createdAt fall back to _id so the fold is
// deterministic.
func (r *EventRepository) FindForReplay(ctx context.Context, tenantID, itemID string, upto time.Time) ([]*domain.StockEvent, error) {
	filter := bson.M{
		"tenantId":  tenantID,
		"itemId":    itemID,
		"createdAt": bson.M{"$lte": upto},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find stock events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*domain.StockEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode stock events: %w", err)
	}
	return events, nil
}
