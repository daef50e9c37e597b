package domain

import "testing"

func TestReplayBalances(t *testing.T) {
	events := []*StockEvent{
		{
			Type: EventTypeReceive,
			Deltas: []BalanceDelta{
				{ItemID: "ITEM-WIDGET", LocationID: "DOCK1", QtyBase: decimalOrPanic("48"), HeldQtyBase: ZeroQuantity()},
			},
		},
		{
			Type: EventTypeMove,
			Deltas: []BalanceDelta{
				{ItemID: "ITEM-WIDGET", LocationID: "DOCK1", QtyBase: decimalOrPanic("-48"), HeldQtyBase: ZeroQuantity()},
				{ItemID: "ITEM-WIDGET", LocationID: "RACK1", QtyBase: decimalOrPanic("48"), HeldQtyBase: ZeroQuantity()},
			},
		},
		{
			Type: EventTypeHold,
			Deltas: []BalanceDelta{
				{ItemID: "ITEM-WIDGET", LocationID: "RACK1", QtyBase: decimalOrPanic("-8"), HeldQtyBase: decimalOrPanic("8")},
			},
		},
		{
			// COUNT already recorded as its synthesized delta.
			Type: EventTypeCount,
			Deltas: []BalanceDelta{
				{ItemID: "ITEM-WIDGET", LocationID: "RACK1", QtyBase: decimalOrPanic("-2"), HeldQtyBase: ZeroQuantity()},
			},
		},
	}

	balances := ReplayBalances(events)

	if len(balances) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(balances))
	}
	if dock := balances["DOCK1"]; !dock.QtyBase.IsZero() {
		t.Errorf("DOCK1: expected 0, got %s", dock.QtyBase)
	}
	rack := balances["RACK1"]
	if !rack.QtyBase.Equals(decimalOrPanic("38")) {
		t.Errorf("RACK1: expected 38 available, got %s", rack.QtyBase)
	}
	if !rack.HeldQtyBase.Equals(decimalOrPanic("8")) {
		t.Errorf("RACK1: expected 8 held, got %s", rack.HeldQtyBase)
	}
}

func TestReplayBalances_Empty(t *testing.T) {
	if got := ReplayBalances(nil); len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}
