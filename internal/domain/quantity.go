package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Quantity represents a fixed-precision stock quantity.
// Backed by an arbitrary-precision decimal to avoid floating point drift;
// rounding happens exactly once, at unit conversion time.
type Quantity struct {
	value decimal.Decimal
}

// Quantity errors
var (
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrQuantityNotPositive = errors.New("quantity must be positive")
)

// NewQuantityFromString parses a decimal quantity from its string form.
func NewQuantityFromString(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("%w: %q", ErrInvalidQuantity, s)
	}
	return Quantity{value: d}, nil
}

// NewQuantityFromInt creates a quantity from a whole number of units.
func NewQuantityFromInt(n int64) Quantity {
	return Quantity{value: decimal.NewFromInt(n)}
}

// ZeroQuantity creates a zero quantity.
func ZeroQuantity() Quantity {
	return Quantity{value: decimal.Zero}
}

// Add returns q + other.
func (q Quantity) Add(other Quantity) Quantity {
	return Quantity{value: q.value.Add(other.value)}
}

// Sub returns q - other.
func (q Quantity) Sub(other Quantity) Quantity {
	return Quantity{value: q.value.Sub(other.value)}
}

// Neg returns the quantity with its sign flipped.
func (q Quantity) Neg() Quantity {
	return Quantity{value: q.value.Neg()}
}

// Mul returns q * other without rounding. Callers round the result
// via RoundBank at the conversion boundary.
func (q Quantity) Mul(other Quantity) Quantity {
	return Quantity{value: q.value.Mul(other.value)}
}

// RoundBank rounds to the given number of decimal places using
// banker's rounding (round half to even).
func (q Quantity) RoundBank(places int32) Quantity {
	return Quantity{value: q.value.RoundBank(places)}
}

// Cmp compares q to other: -1 if less, 0 if equal, +1 if greater.
func (q Quantity) Cmp(other Quantity) int {
	return q.value.Cmp(other.value)
}

// Equals checks numeric equality (1.0 equals 1.00).
func (q Quantity) Equals(other Quantity) bool {
	return q.value.Equal(other.value)
}

// IsZero returns true if the quantity is exactly zero.
func (q Quantity) IsZero() bool {
	return q.value.IsZero()
}

// IsNegative returns true if the quantity is below zero.
func (q Quantity) IsNegative() bool {
	return q.value.IsNegative()
}

// IsPositive returns true if the quantity is above zero.
func (q Quantity) IsPositive() bool {
	return q.value.IsPositive()
}

// String returns the canonical decimal representation.
func (q Quantity) String() string {
	return q.value.String()
}

// MarshalJSON implements json.Marshaler, emitting a JSON string so
// clients never see a binary float.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + q.value.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler, accepting both string and
// number forms.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidQuantity, data)
	}
	q.value = d
	return nil
}

// MarshalBSONValue implements bson.ValueMarshaler. Quantities are
// persisted as strings to keep exact decimal values in Mongo.
func (q Quantity) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(q.value.String())
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler
func (q *Quantity) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var s string
	if err := bson.UnmarshalValue(t, data, &s); err != nil {
		return err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidQuantity, s)
	}
	q.value = d
	return nil
}
