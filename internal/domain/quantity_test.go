package domain

import (
	"testing"
)

func mustQty(t *testing.T, s string) Quantity {
	t.Helper()
	q, err := NewQuantityFromString(s)
	if err != nil {
		t.Fatalf("failed to parse quantity %q: %v", s, err)
	}
	return q
}

func TestNewQuantityFromString(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectError bool
	}{
		{name: "whole number", input: "24"},
		{name: "decimal", input: "2.5"},
		{name: "negative", input: "-3.75"},
		{name: "zero", input: "0"},
		{name: "not a number", input: "abc", expectError: true},
		{name: "empty", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQuantityFromString(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if q.String() != mustQty(t, tt.input).String() {
				t.Errorf("expected %s, got %s", tt.input, q.String())
			}
		})
	}
}

func TestQuantity_Arithmetic(t *testing.T) {
	a := mustQty(t, "10.5")
	b := mustQty(t, "2.25")

	if got := a.Add(b); !got.Equals(mustQty(t, "12.75")) {
		t.Errorf("Add: expected 12.75, got %s", got)
	}
	if got := a.Sub(b); !got.Equals(mustQty(t, "8.25")) {
		t.Errorf("Sub: expected 8.25, got %s", got)
	}
	if got := a.Neg(); !got.Equals(mustQty(t, "-10.5")) {
		t.Errorf("Neg: expected -10.5, got %s", got)
	}
	if got := a.Mul(b); !got.Equals(mustQty(t, "23.625")) {
		t.Errorf("Mul: expected 23.625, got %s", got)
	}
}

func TestQuantity_RepeatedAdditionHasNoDrift(t *testing.T) {
	// 0.1 added ten times must be exactly 1, which would fail with
	// binary floats.
	increment := mustQty(t, "0.1")
	sum := ZeroQuantity()
	for i := 0; i < 10; i++ {
		sum = sum.Add(increment)
	}
	if !sum.Equals(NewQuantityFromInt(1)) {
		t.Errorf("expected exactly 1, got %s", sum)
	}
}

func TestQuantity_RoundBank(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		places   int32
		expected string
	}{
		{name: "round half to even down", input: "2.5", places: 0, expected: "2"},
		{name: "round half to even up", input: "3.5", places: 0, expected: "4"},
		{name: "two places half even", input: "2.125", places: 2, expected: "2.12"},
		{name: "two places half even up", input: "2.135", places: 2, expected: "2.14"},
		{name: "no rounding needed", input: "7.25", places: 2, expected: "7.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustQty(t, tt.input).RoundBank(tt.places)
			if !got.Equals(mustQty(t, tt.expected)) {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestQuantity_Predicates(t *testing.T) {
	if !ZeroQuantity().IsZero() {
		t.Error("zero quantity should be zero")
	}
	if !mustQty(t, "-1").IsNegative() {
		t.Error("-1 should be negative")
	}
	if !mustQty(t, "0.001").IsPositive() {
		t.Error("0.001 should be positive")
	}
	if mustQty(t, "1.0").Cmp(NewQuantityFromInt(1)) != 0 {
		t.Error("1.0 should compare equal to 1")
	}
}

func TestQuantity_JSONRoundTrip(t *testing.T) {
	q := mustQty(t, "12.375")
	data, err := q.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"12.375"` {
		t.Errorf("expected quoted string, got %s", data)
	}

	var back Quantity
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !back.Equals(q) {
		t.Errorf("expected %s after round trip, got %s", q, back)
	}

	// Bare numbers are accepted too.
	var fromNumber Quantity
	if err := fromNumber.UnmarshalJSON([]byte(`4.5`)); err != nil {
		t.Fatalf("unmarshal number failed: %v", err)
	}
	if !fromNumber.Equals(mustQty(t, "4.5")) {
		t.Errorf("expected 4.5, got %s", fromNumber)
	}
}
