package domain

import (
	"context"
	"time"
)

// BalanceRepository persists inventory balance rows. Mutating methods
// are only called inside a ledger transaction; SaveNew must fail with
// ErrConcurrencyConflict when a concurrent writer created the row
// first, and Update must fail with ErrConcurrencyConflict when the
// stored version no longer matches expectedVersion.
type BalanceRepository interface {
	Find(ctx context.Context, tenantID, itemID, locationID string) (*InventoryBalance, error)
	FindForItem(ctx context.Context, tenantID, itemID string) ([]*InventoryBalance, error)
	// FindMany loads the rows for one item at the given locations,
	// ordered ascending by locationID. Missing rows are simply absent
	// from the result.
	FindMany(ctx context.Context, tenantID, itemID string, locationIDs []string) ([]*InventoryBalance, error)
	SaveNew(ctx context.Context, balance *InventoryBalance) error
	Update(ctx context.Context, balance *InventoryBalance, expectedVersion int64) error
}

// EventRepository is the append-only store for stock events.
type EventRepository interface {
	Append(ctx context.Context, event *StockEvent) error
	FindByID(ctx context.Context, tenantID string, id EventID) (*StockEvent, error)
	FindByItem(ctx context.Context, tenantID, itemID string, limit, offset int) ([]*StockEvent, error)
	// FindForReplay streams the item's events up to and including the
	// cutoff, in deterministic application order.
	FindForReplay(ctx context.Context, tenantID, itemID string, upto time.Time) ([]*StockEvent, error)
}

// ReferenceRepository resolves the read-only reference data an event
// validation needs. All lookups are tenant-scoped; a miss (including a
// row owned by another tenant) returns the matching not-found error.
type ReferenceRepository interface {
	GetItem(ctx context.Context, tenantID, itemID string) (*Item, error)
	GetLocation(ctx context.Context, tenantID, locationID string) (*Location, error)
	GetReasonCode(ctx context.Context, tenantID, reasonCodeID string) (*ReasonCode, error)
}

// TransactionManager runs fn inside one atomic transaction. Everything
// fn writes through the repositories commits together or not at all.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	PublishAll(ctx context.Context, events []DomainEvent) error
}
