package application

import "time"

// BalanceDeltaDTO is one signed mutation an event caused.
type BalanceDeltaDTO struct {
	ItemID      string `json:"itemId"`
	LocationID  string `json:"locationId"`
	QtyBase     string `json:"qtyBase"`
	HeldQtyBase string `json:"heldQtyBase"`
}

// StockEventDTO is the API representation of a recorded event.
type StockEventDTO struct {
	EventID        string            `json:"eventId"`
	TenantID       string            `json:"tenantId"`
	SiteID         string            `json:"siteId"`
	Type           string            `json:"type"`
	ItemID         string            `json:"itemId"`
	Qty            string            `json:"qty"`
	UOM            string            `json:"uom"`
	QtyBase        string            `json:"qtyBase"`
	Factor         string            `json:"factor"`
	FromLocationID string            `json:"fromLocationId,omitempty"`
	ToLocationID   string            `json:"toLocationId,omitempty"`
	WorkcellID     string            `json:"workcellId,omitempty"`
	ReasonCodeID   string            `json:"reasonCodeId,omitempty"`
	ReferenceID    string            `json:"referenceId,omitempty"`
	ReferenceType  string            `json:"referenceType,omitempty"`
	Note           string            `json:"note,omitempty"`
	ActorID        string            `json:"actorId"`
	DeviceID       string            `json:"deviceId,omitempty"`
	Deltas         []BalanceDeltaDTO `json:"deltas"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// BalanceDTO is the API representation of a balance row.
type BalanceDTO struct {
	TenantID    string    `json:"tenantId"`
	ItemID      string    `json:"itemId"`
	LocationID  string    `json:"locationId"`
	SiteID      string    `json:"siteId"`
	QtyBase     string    `json:"qtyBase"`
	HeldQtyBase string    `json:"heldQtyBase"`
	Version     int64     `json:"version"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ApplyResultDTO is the outcome of a successful event application.
type ApplyResultDTO struct {
	Event           StockEventDTO `json:"event"`
	UpdatedBalances []BalanceDTO  `json:"updatedBalances"`
}

// ConversionDTO is the outcome of a unit conversion.
type ConversionDTO struct {
	ItemID  string `json:"itemId"`
	Qty     string `json:"qty"`
	UOM     string `json:"uom"`
	QtyBase string `json:"qtyBase"`
	BaseUOM string `json:"baseUom"`
	Factor  string `json:"factor"`
}

// ReplayedBalanceDTO is one location's position reconstructed from the
// event stream.
type ReplayedBalanceDTO struct {
	LocationID  string `json:"locationId"`
	QtyBase     string `json:"qtyBase"`
	HeldQtyBase string `json:"heldQtyBase"`
}

// ReplayDTO is the result of folding an item's events.
type ReplayDTO struct {
	TenantID string               `json:"tenantId"`
	ItemID   string               `json:"itemId"`
	Upto     time.Time            `json:"upto"`
	Balances []ReplayedBalanceDTO `json:"balances"`
}

// VarianceDTO is one location where replayed and stored positions
// disagree.
type VarianceDTO struct {
	LocationID   string `json:"locationId"`
	StoredQty    string `json:"storedQty"`
	ReplayedQty  string `json:"replayedQty"`
	StoredHeld   string `json:"storedHeld"`
	ReplayedHeld string `json:"replayedHeld"`
}

// ReconciliationDTO is the outcome of a reconciliation run.
type ReconciliationDTO struct {
	ReconciliationID string        `json:"reconciliationId"`
	TenantID         string        `json:"tenantId"`
	ItemID           string        `json:"itemId"`
	Status           string        `json:"status"`
	LocationsChecked int           `json:"locationsChecked"`
	Variances        []VarianceDTO `json:"variances"`
	CompletedAt      time.Time     `json:"completedAt"`
}
