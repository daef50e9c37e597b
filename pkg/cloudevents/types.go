package cloudevents

import (
	"time"
)

// EventType constants for stock ledger domain events
const (
	// Ledger events
	StockEventRecorded      = "wms.ledger.stock-event-recorded"
	BalanceUpdated          = "wms.ledger.balance-updated"
	NegativeBalanceRejected = "wms.ledger.negative-balance-rejected"
	ReconciliationCompleted = "wms.ledger.reconciliation-completed"

	// Reference data events
	ItemUpserted       = "wms.ledger.item-upserted"
	LocationUpserted   = "wms.ledger.location-upserted"
	ReasonCodeUpserted = "wms.ledger.reason-code-upserted"
)

// Source constants for event sources
const (
	SourceStockLedger   = "/wms/stock-ledger-service"
	SourceLedgerMonitor = "/wms/stock-ledger-monitor"
	SourceMigration     = "/wms/stock-ledger-migrate"
)

// WMSCloudEvent represents a CloudEvents v1.0 compliant event for WMS
type WMSCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// WMS-specific extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	ReferenceID   string `json:"wmsreferenceid,omitempty"`
	WorkcellID    string `json:"wmsworkcellid,omitempty"`
	TenantID      string `json:"wmstenantid,omitempty"`
	SiteID        string `json:"wmssiteid,omitempty"`
	ActorID       string `json:"wmsactorid,omitempty"`

	// W3C Trace Context
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// StockEventRecordedData represents the data payload for StockEventRecorded
type StockEventRecordedData struct {
	EventID        string    `json:"eventId"`
	TenantID       string    `json:"tenantId"`
	SiteID         string    `json:"siteId"`
	Type           string    `json:"type"`
	ItemID         string    `json:"itemId"`
	Qty            string    `json:"qty"`
	UOM            string    `json:"uom"`
	QtyBase        string    `json:"qtyBase"`
	FromLocationID string    `json:"fromLocationId,omitempty"`
	ToLocationID   string    `json:"toLocationId,omitempty"`
	ActorID        string    `json:"actorId"`
	RecordedAt     time.Time `json:"recordedAt"`
}

// BalanceUpdatedData represents the data payload for BalanceUpdated
type BalanceUpdatedData struct {
	TenantID    string    `json:"tenantId"`
	SiteID      string    `json:"siteId"`
	ItemID      string    `json:"itemId"`
	LocationID  string    `json:"locationId"`
	QtyBase     string    `json:"qtyBase"`
	HeldQtyBase string    `json:"heldQtyBase"`
	Version     int64     `json:"version"`
	CausedBy    string    `json:"causedBy"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NegativeBalanceRejectedData represents the data payload for NegativeBalanceRejected
type NegativeBalanceRejectedData struct {
	TenantID   string    `json:"tenantId"`
	ItemID     string    `json:"itemId"`
	LocationID string    `json:"locationId"`
	Type       string    `json:"type"`
	QtyBase    string    `json:"qtyBase"`
	ActorID    string    `json:"actorId"`
	RejectedAt time.Time `json:"rejectedAt"`
}

// ReconciliationCompletedData represents the data payload for ReconciliationCompleted
type ReconciliationCompletedData struct {
	ReconciliationID string    `json:"reconciliationId"`
	TenantID         string    `json:"tenantId"`
	ItemID           string    `json:"itemId"`
	LocationsChecked int       `json:"locationsChecked"`
	VarianceCount    int       `json:"varianceCount"`
	Status           string    `json:"status"` // "matched" | "variance_detected"
	CompletedAt      time.Time `json:"completedAt"`
}
