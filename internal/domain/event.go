package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// EventType identifies the kind of stock movement an event records.
// The set is closed; unknown types are rejected at validation time.
type EventType string

const (
	EventTypeReceive         EventType = "RECEIVE"
	EventTypeMove            EventType = "MOVE"
	EventTypeIssueToWorkcell EventType = "ISSUE_TO_WORKCELL"
	EventTypeReturn          EventType = "RETURN"
	EventTypeScrap           EventType = "SCRAP"
	EventTypeAdjust          EventType = "ADJUST"
	EventTypeHold            EventType = "HOLD"
	EventTypeRelease         EventType = "RELEASE"
	EventTypeCount           EventType = "COUNT"
)

// IsValid reports whether the event type belongs to the closed set.
func (t EventType) IsValid() bool {
	_, ok := eventShapes[t]
	return ok
}

// eventShape captures the per-type field requirements for a stock event.
type eventShape struct {
	requiresFrom       bool
	requiresTo         bool
	forbidsFrom        bool
	forbidsTo          bool
	requiresWorkcell   bool
	requiresReasonCode bool
	allowsSignedQty    bool
	// singleLocation marks types where from and to must name the same
	// location (hold/release move stock between buckets of one row)
	singleLocation bool
	// exactlyOneLocation marks types where exactly one of from/to is set
	exactlyOneLocation bool
}

var eventShapes = map[EventType]eventShape{
	EventTypeReceive:         {requiresTo: true, forbidsFrom: true},
	EventTypeMove:            {requiresFrom: true, requiresTo: true},
	EventTypeIssueToWorkcell: {requiresFrom: true, forbidsTo: true, requiresWorkcell: true},
	EventTypeReturn:          {requiresTo: true, forbidsFrom: true, requiresWorkcell: true},
	EventTypeScrap:           {requiresFrom: true, forbidsTo: true, requiresReasonCode: true},
	EventTypeAdjust:          {requiresReasonCode: true, allowsSignedQty: true, exactlyOneLocation: true},
	EventTypeHold:            {requiresFrom: true, requiresTo: true, requiresReasonCode: true, singleLocation: true},
	EventTypeRelease:         {requiresFrom: true, requiresTo: true, singleLocation: true},
	EventTypeCount:           {requiresTo: true, forbidsFrom: true},
}

// EventID represents a unique identifier for a stock event
type EventID struct {
	value string
}

// NewEventID creates a new unique stock event ID
func NewEventID() EventID {
	timestamp := time.Now().UTC().Format("20060102150405")
	return EventID{
		value: fmt.Sprintf("EVT-%s-%s", timestamp, uuid.New().String()[:8]),
	}
}

// ParseEventID parses a string into an EventID
func ParseEventID(s string) (EventID, error) {
	if s == "" {
		return EventID{}, errors.New("event ID cannot be empty")
	}
	return EventID{value: s}, nil
}

// String returns the string representation
func (id EventID) String() string {
	return id.value
}

// MarshalBSONValue implements bson.ValueMarshaler
func (id EventID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(id.value)
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler
func (id *EventID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	return bson.UnmarshalValue(t, data, &id.value)
}

// EventInput is a request to record a stock movement, as entered by the
// caller. Quantities are in the entered unit of measure; conversion to
// the item's base unit happens during validation.
type EventInput struct {
	TenantID       string
	SiteID         string
	Type           EventType
	ItemID         string
	Qty            Quantity
	UOM            string
	FromLocationID string
	ToLocationID   string
	WorkcellID     string
	ReasonCodeID   string
	ReferenceID    string
	ReferenceType  string
	Note           string
	ActorID        string
	DeviceID       string
}

// StockEvent is an immutable record of a stock movement. Once appended
// it is never updated or deleted; corrections are new events.
type StockEvent struct {
	EventID        EventID   `bson:"_id" json:"eventId"`
	TenantID       string    `bson:"tenantId" json:"tenantId"`
	SiteID         string    `bson:"siteId" json:"siteId"`
	Type           EventType `bson:"type" json:"type"`
	ItemID         string    `bson:"itemId" json:"itemId"`
	Qty            Quantity  `bson:"qty" json:"qty"`         // As entered
	UOM            string    `bson:"uom" json:"uom"`         // Entered unit of measure
	QtyBase        Quantity  `bson:"qtyBase" json:"qtyBase"` // Converted, signed per type semantics
	Factor         Quantity  `bson:"factor" json:"factor"`   // Conversion factor used, kept for audit
	FromLocationID string    `bson:"fromLocationId,omitempty" json:"fromLocationId,omitempty"`
	ToLocationID   string    `bson:"toLocationId,omitempty" json:"toLocationId,omitempty"`
	WorkcellID     string    `bson:"workcellId,omitempty" json:"workcellId,omitempty"`
	ReasonCodeID   string    `bson:"reasonCodeId,omitempty" json:"reasonCodeId,omitempty"`
	ReferenceID    string    `bson:"referenceId,omitempty" json:"referenceId,omitempty"`
	ReferenceType  string    `bson:"referenceType,omitempty" json:"referenceType,omitempty"`
	Note           string    `bson:"note,omitempty" json:"note,omitempty"`
	ActorID        string    `bson:"actorId" json:"actorId"`
	DeviceID       string    `bson:"deviceId,omitempty" json:"deviceId,omitempty"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`

	// Deltas are the signed balance mutations this event caused, set
	// when the event is applied. Recording them makes replay a plain
	// fold even for COUNT, whose delta depends on the balance at the
	// moment of application.
	Deltas []BalanceDelta `bson:"deltas" json:"deltas"`
}
