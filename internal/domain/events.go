package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// StockEventRecordedEvent is published when a stock movement event has
// been appended and its balance deltas committed.
type StockEventRecordedEvent struct {
	EventID      string         `json:"eventId"`
	TenantID     string         `json:"tenantId"`
	SiteID       string         `json:"siteId"`
	Type         string         `json:"type"`
	ItemID       string         `json:"itemId"`
	Qty          string         `json:"qty"`
	UOM          string         `json:"uom"`
	QtyBase      string         `json:"qtyBase"`
	FromLocation string         `json:"fromLocationId,omitempty"`
	ToLocation   string         `json:"toLocationId,omitempty"`
	Deltas       []BalanceDelta `json:"deltas"`
	ActorID      string         `json:"actorId"`
	RecordedAt   time.Time      `json:"recordedAt"`
}

func (e *StockEventRecordedEvent) EventType() string     { return "wms.ledger.stock-event-recorded" }
func (e *StockEventRecordedEvent) OccurredAt() time.Time { return e.RecordedAt }

// BalanceUpdatedEvent is published per balance row an event touched.
type BalanceUpdatedEvent struct {
	TenantID    string    `json:"tenantId"`
	SiteID      string    `json:"siteId"`
	ItemID      string    `json:"itemId"`
	LocationID  string    `json:"locationId"`
	QtyBase     string    `json:"qtyBase"`
	HeldQtyBase string    `json:"heldQtyBase"`
	Version     int64     `json:"version"`
	CausedBy    string    `json:"causedBy"` // Stock event ID
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (e *BalanceUpdatedEvent) EventType() string     { return "wms.ledger.balance-updated" }
func (e *BalanceUpdatedEvent) OccurredAt() time.Time { return e.UpdatedAt }

// NegativeBalanceRejectedEvent is an audit signal published when an
// event was rejected because it would have driven a balance negative.
type NegativeBalanceRejectedEvent struct {
	TenantID   string    `json:"tenantId"`
	ItemID     string    `json:"itemId"`
	LocationID string    `json:"locationId"`
	Type       string    `json:"type"`
	QtyBase    string    `json:"qtyBase"`
	ActorID    string    `json:"actorId"`
	RejectedAt time.Time `json:"rejectedAt"`
}

func (e *NegativeBalanceRejectedEvent) EventType() string {
	return "wms.ledger.negative-balance-rejected"
}
func (e *NegativeBalanceRejectedEvent) OccurredAt() time.Time { return e.RejectedAt }

// ReconciliationCompletedEvent is published after a replay-to-balance
// reconciliation run for an item.
type ReconciliationCompletedEvent struct {
	ReconciliationID string    `json:"reconciliationId"`
	TenantID         string    `json:"tenantId"`
	ItemID           string    `json:"itemId"`
	LocationsChecked int       `json:"locationsChecked"`
	VarianceCount    int       `json:"varianceCount"`
	Status           string    `json:"status"` // "matched" or "variance_detected"
	CompletedAt      time.Time `json:"completedAt"`
}

func (e *ReconciliationCompletedEvent) EventType() string {
	return "wms.ledger.reconciliation-completed"
}
func (e *ReconciliationCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }
