package domain

import (
	"errors"
	"testing"
)

func testBalance(t *testing.T, locationID, qty, held string) *InventoryBalance {
	t.Helper()
	b := NewInventoryBalance("acme", "ITEM-WIDGET", locationID, "SITE1")
	b.QtyBase = mustQty(t, qty)
	b.HeldQtyBase = mustQty(t, held)
	return b
}

func TestInventoryBalance_Apply(t *testing.T) {
	tests := []struct {
		name         string
		startQty     string
		startHeld    string
		delta        BalanceDelta
		expectedQty  string
		expectedHeld string
		expectError  bool
	}{
		{
			name:     "increase available",
			startQty: "10", startHeld: "0",
			delta:       BalanceDelta{QtyBase: decimalOrPanic("5"), HeldQtyBase: ZeroQuantity()},
			expectedQty: "15", expectedHeld: "0",
		},
		{
			name:     "decrease available to zero",
			startQty: "5", startHeld: "0",
			delta:       BalanceDelta{QtyBase: decimalOrPanic("-5"), HeldQtyBase: ZeroQuantity()},
			expectedQty: "0", expectedHeld: "0",
		},
		{
			name:     "move available into held",
			startQty: "8", startHeld: "1",
			delta:       BalanceDelta{QtyBase: decimalOrPanic("-3"), HeldQtyBase: decimalOrPanic("3")},
			expectedQty: "5", expectedHeld: "4",
		},
		{
			name:     "available would go negative",
			startQty: "4", startHeld: "0",
			delta:       BalanceDelta{QtyBase: decimalOrPanic("-5"), HeldQtyBase: ZeroQuantity()},
			expectError: true,
		},
		{
			name:     "held would go negative",
			startQty: "4", startHeld: "2",
			delta:       BalanceDelta{QtyBase: decimalOrPanic("3"), HeldQtyBase: decimalOrPanic("-3")},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBalance(t, "RACK1", tt.startQty, tt.startHeld)
			startVersion := b.Version

			err := b.Apply(tt.delta)

			if tt.expectError {
				if !errors.Is(err, ErrNegativeBalance) {
					t.Errorf("expected ErrNegativeBalance, got %v", err)
				}
				// A rejected delta must leave the row untouched.
				if !b.QtyBase.Equals(mustQty(t, tt.startQty)) || !b.HeldQtyBase.Equals(mustQty(t, tt.startHeld)) {
					t.Errorf("balance mutated on rejection: qty=%s held=%s", b.QtyBase, b.HeldQtyBase)
				}
				if b.Version != startVersion {
					t.Errorf("version bumped on rejection")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !b.QtyBase.Equals(mustQty(t, tt.expectedQty)) {
				t.Errorf("expected qty %s, got %s", tt.expectedQty, b.QtyBase)
			}
			if !b.HeldQtyBase.Equals(mustQty(t, tt.expectedHeld)) {
				t.Errorf("expected held %s, got %s", tt.expectedHeld, b.HeldQtyBase)
			}
			if b.Version != startVersion+1 {
				t.Errorf("expected version %d, got %d", startVersion+1, b.Version)
			}
		})
	}
}

func planFor(t *testing.T, evtType EventType, from, to string, qtyBase string, current map[string]*InventoryBalance) []BalanceDelta {
	t.Helper()
	evt := &StockEvent{
		EventID:        NewEventID(),
		TenantID:       "acme",
		Type:           evtType,
		ItemID:         "ITEM-WIDGET",
		QtyBase:        mustQty(t, qtyBase),
		FromLocationID: from,
		ToLocationID:   to,
	}
	deltas, err := PlanDeltas(evt, current)
	if err != nil {
		t.Fatalf("PlanDeltas failed: %v", err)
	}
	return deltas
}

func TestPlanDeltas_Matrix(t *testing.T) {
	tests := []struct {
		name     string
		evtType  EventType
		from, to string
		qtyBase  string
		expected []BalanceDelta
	}{
		{
			name: "receive credits destination", evtType: EventTypeReceive, to: "DOCK1", qtyBase: "48",
			expected: []BalanceDelta{
				{ItemID: "ITEM-WIDGET", LocationID: "DOCK1", QtyBase: decimalOrPanic("48"), HeldQtyBase: ZeroQuantity()},
			},
		},
		{
			name: "move conserves quantity", evtType: EventTypeMove, from: "DOCK1", to: "RACK1", qtyBase: "48",
			expected: []BalanceDelta{
				{ItemID: "ITEM-WIDGET", LocationID: "DOCK1", QtyBase: decimalOrPanic("-48"), HeldQtyBase: ZeroQuantity()},
				{ItemID: "ITEM-WIDGET", LocationID: "RACK1", QtyBase: decimalOrPanic("48"), HeldQtyBase: ZeroQuantity()},
			},
		},
		{
			name: "issue debits source", evtType: EventTypeIssueToWorkcell, from: "RACK1", qtyBase: "5",
			expected: []BalanceDelta{
				{ItemID: "ITEM-WIDGET", LocationID: "RACK1", QtyBase: decimalOrPanic("-5"), HeldQtyBase: ZeroQuantity()},
			},
		},
		{
			name: "scrap removes without counterpart", evtType: EventTypeScrap, from: "RACK1", qtyBase: "2",
			expected: []BalanceDelta{
				{ItemID: "ITEM-WIDGET", LocationID: "RACK1", QtyBase: decimalOrPanic("-2"), HeldQtyBase: ZeroQuantity()},
			},
		},
		{
			name: "hold shifts available to held", evtType: EventTypeHold, from: "RACK1", to: "RACK1", qtyBase: "3",
			expected: []BalanceDelta{
				{ItemID: "ITEM-WIDGET", LocationID: "RACK1", QtyBase: decimalOrPanic("-3"), HeldQtyBase: decimalOrPanic("3")},
			},
		},
		{
			name: "release shifts held to available", evtType: EventTypeRelease, from: "RACK1", to: "RACK1", qtyBase: "3",
			expected: []BalanceDelta{
				{ItemID: "ITEM-WIDGET", LocationID: "RACK1", QtyBase: decimalOrPanic("3"), HeldQtyBase: decimalOrPanic("-3")},
			},
		},
		{
			name: "adjust applies the signed delta", evtType: EventTypeAdjust, from: "RACK1", qtyBase: "-4",
			expected: []BalanceDelta{
				{ItemID: "ITEM-WIDGET", LocationID: "RACK1", QtyBase: decimalOrPanic("-4"), HeldQtyBase: ZeroQuantity()},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deltas := planFor(t, tt.evtType, tt.from, tt.to, tt.qtyBase, nil)

			if len(deltas) != len(tt.expected) {
				t.Fatalf("expected %d deltas, got %d", len(tt.expected), len(deltas))
			}
			for i, want := range tt.expected {
				got := deltas[i]
				if got.LocationID != want.LocationID {
					t.Errorf("delta %d: expected location %s, got %s", i, want.LocationID, got.LocationID)
				}
				if !got.QtyBase.Equals(want.QtyBase) {
					t.Errorf("delta %d: expected qty %s, got %s", i, want.QtyBase, got.QtyBase)
				}
				if !got.HeldQtyBase.Equals(want.HeldQtyBase) {
					t.Errorf("delta %d: expected held %s, got %s", i, want.HeldQtyBase, got.HeldQtyBase)
				}
			}
		})
	}
}

func TestPlanDeltas_MoveConservation(t *testing.T) {
	deltas := planFor(t, EventTypeMove, "RACK1", "DOCK1", "48", nil)

	sum := ZeroQuantity()
	for _, d := range deltas {
		sum = sum.Add(d.QtyBase)
	}
	if !sum.IsZero() {
		t.Errorf("move deltas must sum to zero, got %s", sum)
	}
	// Sorted ascending by location so lock order is deterministic.
	if deltas[0].LocationID != "DOCK1" || deltas[1].LocationID != "RACK1" {
		t.Errorf("deltas not in ascending location order: %s, %s", deltas[0].LocationID, deltas[1].LocationID)
	}
}

func TestPlanDeltas_CountSynthesizesDelta(t *testing.T) {
	current := map[string]*InventoryBalance{
		BalanceKey("ITEM-WIDGET", "RACK1"): testBalance(t, "RACK1", "10", "0"),
	}

	// Counted 7 against a recorded 10: the stored fact is -3.
	deltas := planFor(t, EventTypeCount, "", "RACK1", "7", current)
	if len(deltas) != 1 {
		t.Fatalf("expected 1 delta, got %d", len(deltas))
	}
	if !deltas[0].QtyBase.Equals(mustQty(t, "-3")) {
		t.Errorf("expected -3, got %s", deltas[0].QtyBase)
	}

	// Counting a location with no balance row treats current as zero.
	deltas = planFor(t, EventTypeCount, "", "RACK2", "7", current)
	if !deltas[0].QtyBase.Equals(mustQty(t, "7")) {
		t.Errorf("expected 7, got %s", deltas[0].QtyBase)
	}
}

func TestEventLocationIDs(t *testing.T) {
	evt := &StockEvent{FromLocationID: "RACK1", ToLocationID: "DOCK1"}
	ids := EventLocationIDs(evt)
	if len(ids) != 2 || ids[0] != "DOCK1" || ids[1] != "RACK1" {
		t.Errorf("expected [DOCK1 RACK1], got %v", ids)
	}

	// Hold names the same location twice but locks it once.
	evt = &StockEvent{FromLocationID: "RACK1", ToLocationID: "RACK1"}
	ids = EventLocationIDs(evt)
	if len(ids) != 1 || ids[0] != "RACK1" {
		t.Errorf("expected [RACK1], got %v", ids)
	}
}
