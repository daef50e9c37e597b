package domain

import (
	"fmt"
	"sort"
	"time"
)

// InventoryBalance is the running stock position for one item at one
// location. It is a projection of the event stream and is only ever
// mutated inside the same transaction that appends the driving event.
// Version implements optimistic concurrency on writes.
type InventoryBalance struct {
	TenantID    string    `bson:"tenantId" json:"tenantId"`
	ItemID      string    `bson:"itemId" json:"itemId"`
	LocationID  string    `bson:"locationId" json:"locationId"`
	SiteID      string    `bson:"siteId" json:"siteId"`
	QtyBase     Quantity  `bson:"qtyBase" json:"qtyBase"`
	HeldQtyBase Quantity  `bson:"heldQtyBase" json:"heldQtyBase"`
	Version     int64     `bson:"version" json:"version"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewInventoryBalance creates an empty balance row. Rows are created
// lazily the first time an event touches an item/location pair.
func NewInventoryBalance(tenantID, itemID, locationID, siteID string) *InventoryBalance {
	now := time.Now().UTC()
	return &InventoryBalance{
		TenantID:    tenantID,
		ItemID:      itemID,
		LocationID:  locationID,
		SiteID:      siteID,
		QtyBase:     ZeroQuantity(),
		HeldQtyBase: ZeroQuantity(),
		Version:     0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AvailableQty returns the quantity not under hold.
func (b *InventoryBalance) AvailableQty() Quantity {
	return b.QtyBase
}

// TotalQty returns available plus held quantity.
func (b *InventoryBalance) TotalQty() Quantity {
	return b.QtyBase.Add(b.HeldQtyBase)
}

// BalanceDelta is one signed mutation against a single balance row.
// An event produces one or more deltas, all applied atomically.
type BalanceDelta struct {
	ItemID      string   `bson:"itemId" json:"itemId"`
	LocationID  string   `bson:"locationId" json:"locationId"`
	QtyBase     Quantity `bson:"qtyBase" json:"qtyBase"`
	HeldQtyBase Quantity `bson:"heldQtyBase" json:"heldQtyBase"`
}

// Apply mutates the balance by the delta. If either resulting bucket
// would go below zero the balance is left untouched and
// ErrNegativeBalance is returned.
func (b *InventoryBalance) Apply(delta BalanceDelta) error {
	newQty := b.QtyBase.Add(delta.QtyBase)
	newHeld := b.HeldQtyBase.Add(delta.HeldQtyBase)

	if newQty.IsNegative() {
		return fmt.Errorf("%w: item %s at %s has %s, delta %s",
			ErrNegativeBalance, b.ItemID, b.LocationID, b.QtyBase, delta.QtyBase)
	}
	if newHeld.IsNegative() {
		return fmt.Errorf("%w: item %s at %s holds %s, delta %s",
			ErrNegativeBalance, b.ItemID, b.LocationID, b.HeldQtyBase, delta.HeldQtyBase)
	}

	b.QtyBase = newQty
	b.HeldQtyBase = newHeld
	b.Version++
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// PlanDeltas translates a validated event into the balance deltas it
// implies. For COUNT the delta is synthesized from the balance read
// under the current write transaction, so the recorded delta and the
// applied delta can never diverge. Deltas come back sorted by
// (itemId, locationId) so every writer touches rows in the same order.
func PlanDeltas(evt *StockEvent, current map[string]*InventoryBalance) ([]BalanceDelta, error) {
	var deltas []BalanceDelta

	switch evt.Type {
	case EventTypeReceive, EventTypeReturn:
		deltas = append(deltas, BalanceDelta{
			ItemID: evt.ItemID, LocationID: evt.ToLocationID, QtyBase: evt.QtyBase, HeldQtyBase: ZeroQuantity(),
		})
	case EventTypeIssueToWorkcell, EventTypeScrap:
		deltas = append(deltas, BalanceDelta{
			ItemID: evt.ItemID, LocationID: evt.FromLocationID, QtyBase: evt.QtyBase.Neg(), HeldQtyBase: ZeroQuantity(),
		})
	case EventTypeMove:
		// Quantity is conserved: the two deltas cancel exactly.
		deltas = append(deltas,
			BalanceDelta{ItemID: evt.ItemID, LocationID: evt.FromLocationID, QtyBase: evt.QtyBase.Neg(), HeldQtyBase: ZeroQuantity()},
			BalanceDelta{ItemID: evt.ItemID, LocationID: evt.ToLocationID, QtyBase: evt.QtyBase, HeldQtyBase: ZeroQuantity()},
		)
	case EventTypeAdjust:
		locationID := evt.ToLocationID
		if locationID == "" {
			locationID = evt.FromLocationID
		}
		deltas = append(deltas, BalanceDelta{
			ItemID: evt.ItemID, LocationID: locationID, QtyBase: evt.QtyBase, HeldQtyBase: ZeroQuantity(),
		})
	case EventTypeHold:
		deltas = append(deltas, BalanceDelta{
			ItemID: evt.ItemID, LocationID: evt.FromLocationID, QtyBase: evt.QtyBase.Neg(), HeldQtyBase: evt.QtyBase,
		})
	case EventTypeRelease:
		deltas = append(deltas, BalanceDelta{
			ItemID: evt.ItemID, LocationID: evt.FromLocationID, QtyBase: evt.QtyBase, HeldQtyBase: evt.QtyBase.Neg(),
		})
	case EventTypeCount:
		observed := ZeroQuantity()
		if bal, ok := current[BalanceKey(evt.ItemID, evt.ToLocationID)]; ok {
			observed = bal.QtyBase
		}
		diff := evt.QtyBase.Sub(observed)
		deltas = append(deltas, BalanceDelta{
			ItemID: evt.ItemID, LocationID: evt.ToLocationID, QtyBase: diff, HeldQtyBase: ZeroQuantity(),
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidEventType, evt.Type)
	}

	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].ItemID != deltas[j].ItemID {
			return deltas[i].ItemID < deltas[j].ItemID
		}
		return deltas[i].LocationID < deltas[j].LocationID
	})
	return deltas, nil
}

// BalanceKey builds the map key used to address a balance row by its
// identifying pair.
func BalanceKey(itemID, locationID string) string {
	return itemID + "/" + locationID
}

// EventLocationIDs returns the distinct location IDs an event touches,
// sorted ascending. Writers load and lock balance rows in this order.
func EventLocationIDs(evt *StockEvent) []string {
	seen := make(map[string]struct{}, 2)
	var ids []string
	for _, id := range []string{evt.FromLocationID, evt.ToLocationID} {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
