package domain

import (
	"errors"
	"testing"
	"time"
)

func testWidget(t *testing.T) *Item {
	t.Helper()
	return &Item{
		ID:            "ITEM-WIDGET",
		TenantID:      "acme",
		SKU:           "WIDGET",
		Name:          "Widget",
		BaseUOM:       "EA",
		BasePrecision: 0,
		Conversions: []UnitConversion{
			{UOM: "CASE", Factor: NewQuantityFromInt(24), Precision: 0},
			{UOM: "PALLET", Factor: NewQuantityFromInt(960), Precision: 0},
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func TestItem_ConvertToBase(t *testing.T) {
	item := testWidget(t)

	tests := []struct {
		name           string
		qty            string
		uom            string
		expectedBase   string
		expectedFactor string
		expectError    error
	}{
		{
			name:           "case to each",
			qty:            "2",
			uom:            "CASE",
			expectedBase:   "48",
			expectedFactor: "24",
		},
		{
			name:           "base unit passes through with factor one",
			qty:            "7",
			uom:            "EA",
			expectedBase:   "7",
			expectedFactor: "1",
		},
		{
			name:           "fractional case rounds at base precision",
			qty:            "1.5",
			uom:            "CASE",
			expectedBase:   "36",
			expectedFactor: "24",
		},
		{
			name:        "unregistered unit",
			qty:         "3",
			uom:         "BOX",
			expectError: ErrInvalidConversion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, factor, err := item.ConvertToBase(mustQty(t, tt.qty), tt.uom)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("expected %v, got %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !base.Equals(mustQty(t, tt.expectedBase)) {
				t.Errorf("expected base %s, got %s", tt.expectedBase, base)
			}
			if !factor.Equals(mustQty(t, tt.expectedFactor)) {
				t.Errorf("expected factor %s, got %s", tt.expectedFactor, factor)
			}
		})
	}
}

func TestItem_ConvertToBase_BankersRounding(t *testing.T) {
	// Grams to kilograms at 2 decimal places of precision. Both half
	// cases land on an even digit.
	item := &Item{
		ID:            "ITEM-RESIN",
		TenantID:      "acme",
		SKU:           "RESIN",
		BaseUOM:       "KG",
		BasePrecision: 2,
		Conversions: []UnitConversion{
			{UOM: "G", Factor: mustQty(t, "0.001"), Precision: 2},
		},
	}

	base, _, err := item.ConvertToBase(mustQty(t, "125"), "G")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 0.125 rounds half to even -> 0.12
	if !base.Equals(mustQty(t, "0.12")) {
		t.Errorf("expected 0.12, got %s", base)
	}

	base, _, err = item.ConvertToBase(mustQty(t, "135"), "G")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 0.135 rounds half to even -> 0.14
	if !base.Equals(mustQty(t, "0.14")) {
		t.Errorf("expected 0.14, got %s", base)
	}
}

func TestItem_ConvertToBase_RoundTrip(t *testing.T) {
	// Converting to base and back with the inverse factor must recover
	// the entered quantity within the base unit's rounding tolerance,
	// expressed in entered units: half an ulp at the base precision
	// times the inverse factor.
	resin := &Item{
		ID:            "ITEM-RESIN",
		TenantID:      "acme",
		SKU:           "RESIN",
		BaseUOM:       "KG",
		BasePrecision: 2,
		Conversions: []UnitConversion{
			{UOM: "G", Factor: mustQty(t, "0.001"), Precision: 2},
			{UOM: "QUARTER_KG", Factor: mustQty(t, "0.25"), Precision: 2},
		},
	}

	tests := []struct {
		name      string
		item      *Item
		qty       string
		uom       string
		inverse   string
		tolerance string
	}{
		{
			name: "exact integer factor",
			item: testWidget(t), qty: "3", uom: "PALLET",
			inverse: "0.00104166666666666667", tolerance: "0.001",
		},
		{
			name: "exact fractional factor",
			item: resin, qty: "7", uom: "QUARTER_KG",
			inverse: "4", tolerance: "0.02",
		},
		{
			name: "rounding loss stays within half an ulp",
			item: resin, qty: "125", uom: "G",
			inverse: "1000", tolerance: "5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entered := mustQty(t, tt.qty)
			base, _, err := tt.item.ConvertToBase(entered, tt.uom)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			recovered := base.Mul(mustQty(t, tt.inverse))
			diff := recovered.Sub(entered)
			if diff.IsNegative() {
				diff = diff.Neg()
			}
			if diff.Cmp(mustQty(t, tt.tolerance)) > 0 {
				t.Errorf("round trip drifted by %s (entered %s, recovered %s)",
					diff, entered, recovered)
			}
		})
	}
}

func TestItem_FactorFor_NoTransitiveChaining(t *testing.T) {
	// PALLET is registered directly; a unit only reachable through an
	// intermediate conversion must not resolve.
	item := testWidget(t)

	if _, _, err := item.FactorFor("PALLET"); err != nil {
		t.Errorf("directly registered unit should resolve: %v", err)
	}
	if _, _, err := item.FactorFor("TRUCKLOAD"); !errors.Is(err, ErrInvalidConversion) {
		t.Errorf("expected ErrInvalidConversion, got %v", err)
	}
}

func TestReasonCode_AppliesTo(t *testing.T) {
	reason := &ReasonCode{
		ID:        "RC-DAMAGE",
		TenantID:  "acme",
		Code:      "DAMAGED",
		EventType: EventTypeScrap,
	}

	if !reason.AppliesTo(EventTypeScrap) {
		t.Error("scrap reason should apply to SCRAP")
	}
	if reason.AppliesTo(EventTypeAdjust) {
		t.Error("scrap reason should not apply to ADJUST")
	}
}
