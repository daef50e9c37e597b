package application

// ApplyEventCommand records one stock movement event. Quantity is in
// the entered unit of measure; the ledger converts it to the item's
// base unit during validation.
type ApplyEventCommand struct {
	TenantID       string `json:"-"`
	SiteID         string `json:"-"`
	Type           string `json:"type" binding:"required"`
	ItemID         string `json:"itemId" binding:"required"`
	Qty            string `json:"qty" binding:"required"`
	UOM            string `json:"uom" binding:"required,uom"`
	FromLocationID string `json:"fromLocationId"`
	ToLocationID   string `json:"toLocationId"`
	WorkcellID     string `json:"workcellId"`
	ReasonCodeID   string `json:"reasonCodeId"`
	ReferenceID    string `json:"referenceId"`
	ReferenceType  string `json:"referenceType"`
	Note           string `json:"note" binding:"omitempty,safe_string"`
	ActorID        string `json:"-"`
	DeviceID       string `json:"deviceId" binding:"omitempty,safe_string"`
}

// ConvertQuantityCommand converts an entered quantity to base units
// without recording anything.
type ConvertQuantityCommand struct {
	TenantID string `json:"-"`
	ItemID   string `json:"itemId" binding:"required"`
	Qty      string `json:"qty" binding:"required"`
	UOM      string `json:"uom" binding:"required,uom"`
}

// GetBalanceQuery fetches one balance row.
type GetBalanceQuery struct {
	TenantID   string
	ItemID     string
	LocationID string
}

// ListBalancesQuery fetches all balance rows for an item.
type ListBalancesQuery struct {
	TenantID string
	ItemID   string
}

// ListEventsQuery pages through an item's event history, newest first.
type ListEventsQuery struct {
	TenantID string
	ItemID   string
	Limit    int
	Offset   int
}

// ReplayQuery reconstructs an item's balances from its event stream.
type ReplayQuery struct {
	TenantID string
	ItemID   string
	Upto     string // RFC 3339; empty means now
}

// ReconcileCommand compares replayed balances against the stored
// projection for an item.
type ReconcileCommand struct {
	TenantID string
	ItemID   string
	ActorID  string
}
