package domain

import (
	"fmt"
	"time"
)

// UnitConversion defines how one entered unit of measure converts to an
// item's base unit. Factor is the multiplier applied to the entered
// quantity; Precision is the number of decimal places kept in the
// converted result.
type UnitConversion struct {
	UOM       string   `bson:"uom" json:"uom"`
	Factor    Quantity `bson:"factor" json:"factor"`
	Precision int32    `bson:"precision" json:"precision"`
}

// Item is a tenant-scoped catalog entry. The ledger only reads items;
// catalog maintenance belongs to another service.
type Item struct {
	ID            string           `bson:"_id" json:"id"`
	TenantID      string           `bson:"tenantId" json:"tenantId"`
	SKU           string           `bson:"sku" json:"sku"`
	Name          string           `bson:"name" json:"name"`
	BaseUOM       string           `bson:"baseUom" json:"baseUom"`
	BasePrecision int32            `bson:"basePrecision" json:"basePrecision"`
	Conversions   []UnitConversion `bson:"conversions" json:"conversions"`
	CreatedAt     time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time        `bson:"updatedAt" json:"updatedAt"`
}

// FactorFor resolves the conversion factor and precision for an entered
// unit of measure. The base unit always resolves to factor 1 at the
// item's base precision. Only directly registered conversions resolve;
// chaining through intermediate units is not supported.
func (i *Item) FactorFor(uom string) (Quantity, int32, error) {
	if uom == i.BaseUOM {
		return NewQuantityFromInt(1), i.BasePrecision, nil
	}
	for _, c := range i.Conversions {
		if c.UOM == uom {
			return c.Factor, c.Precision, nil
		}
	}
	return Quantity{}, 0, fmt.Errorf("%w: %s -> %s for item %s", ErrInvalidConversion, uom, i.BaseUOM, i.ID)
}

// ConvertToBase converts an entered quantity to the item's base unit of
// measure. Banker's rounding is applied exactly once, here, at the
// registered precision. Returns the converted quantity and the factor
// used so events can record it for audit.
func (i *Item) ConvertToBase(qty Quantity, uom string) (Quantity, Quantity, error) {
	factor, precision, err := i.FactorFor(uom)
	if err != nil {
		return Quantity{}, Quantity{}, err
	}
	return qty.Mul(factor).RoundBank(precision), factor, nil
}

// Location types
const (
	LocationTypeDock     = "dock"
	LocationTypeRack     = "rack"
	LocationTypeWorkcell = "workcell"
	LocationTypeHold     = "hold"
	LocationTypeStaging  = "staging"
)

// Location is a tenant-scoped physical or logical storage position
// within a single site.
type Location struct {
	ID        string    `bson:"_id" json:"id"`
	TenantID  string    `bson:"tenantId" json:"tenantId"`
	SiteID    string    `bson:"siteId" json:"siteId"`
	Code      string    `bson:"code" json:"code"`
	Type      string    `bson:"type" json:"type"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ReasonCode explains why stock was adjusted, scrapped, held or
// released. Each code is registered for exactly one event type.
type ReasonCode struct {
	ID          string    `bson:"_id" json:"id"`
	TenantID    string    `bson:"tenantId" json:"tenantId"`
	Code        string    `bson:"code" json:"code"`
	EventType   EventType `bson:"eventType" json:"eventType"`
	Description string    `bson:"description" json:"description"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// AppliesTo reports whether the reason code is registered for the given
// event type.
func (r *ReasonCode) AppliesTo(eventType EventType) bool {
	return r.EventType == eventType
}
