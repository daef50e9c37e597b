package domain

// ReplayedBalance is a balance position reconstructed from the event
// stream rather than read from the projection.
type ReplayedBalance struct {
	LocationID  string   `json:"locationId"`
	QtyBase     Quantity `json:"qtyBase"`
	HeldQtyBase Quantity `json:"heldQtyBase"`
}

// ReplayBalances folds an item's events, in application order, into
// per-location positions. Events carry their applied deltas, so the
// fold is a plain sum; COUNT needs no special handling here because its
// synthesized delta was fixed at application time.
func ReplayBalances(events []*StockEvent) map[string]*ReplayedBalance {
	balances := make(map[string]*ReplayedBalance)
	for _, evt := range events {
		for _, delta := range evt.Deltas {
			rb, ok := balances[delta.LocationID]
			if !ok {
				rb = &ReplayedBalance{
					LocationID:  delta.LocationID,
					QtyBase:     ZeroQuantity(),
					HeldQtyBase: ZeroQuantity(),
				}
				balances[delta.LocationID] = rb
			}
			rb.QtyBase = rb.QtyBase.Add(delta.QtyBase)
			rb.HeldQtyBase = rb.HeldQtyBase.Add(delta.HeldQtyBase)
		}
	}
	return balances
}
