package domain

import (
	"errors"
	"testing"
)

func testLocation(id, siteID, locType string) *Location {
	return &Location{
		ID:       id,
		TenantID: "acme",
		SiteID:   siteID,
		Code:     id,
		Type:     locType,
	}
}

func receiveInput(qty string) EventInput {
	return EventInput{
		TenantID:     "acme",
		SiteID:       "SITE1",
		Type:         EventTypeReceive,
		ItemID:       "ITEM-WIDGET",
		Qty:          decimalOrPanic(qty),
		UOM:          "CASE",
		ToLocationID: "DOCK1",
		ActorID:      "user-1",
		DeviceID:     "SCANNER-42",
	}
}

func decimalOrPanic(s string) Quantity {
	q, err := NewQuantityFromString(s)
	if err != nil {
		panic(err)
	}
	return q
}

func TestNewStockEvent_Receive(t *testing.T) {
	item := testWidget(t)
	dock := testLocation("DOCK1", "SITE1", LocationTypeDock)

	evt, err := NewStockEvent(receiveInput("2"), item, nil, dock, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if evt.Type != EventTypeReceive {
		t.Errorf("expected RECEIVE, got %s", evt.Type)
	}
	if !evt.QtyBase.Equals(mustQty(t, "48")) {
		t.Errorf("expected 48 EA, got %s", evt.QtyBase)
	}
	if !evt.Factor.Equals(mustQty(t, "24")) {
		t.Errorf("expected factor 24, got %s", evt.Factor)
	}
	if evt.SiteID != "SITE1" {
		t.Errorf("expected site SITE1, got %s", evt.SiteID)
	}
	if evt.EventID.String() == "" {
		t.Error("expected a generated event ID")
	}
	if evt.CreatedAt.IsZero() {
		t.Error("expected a server-assigned timestamp")
	}
	if evt.DeviceID != "SCANNER-42" {
		t.Errorf("expected device SCANNER-42, got %s", evt.DeviceID)
	}
}

func TestNewStockEvent_ShapeRules(t *testing.T) {
	item := testWidget(t)
	rack := testLocation("RACK1", "SITE1", LocationTypeRack)
	dock := testLocation("DOCK1", "SITE1", LocationTypeDock)
	scrapReason := &ReasonCode{ID: "RC-DAMAGE", TenantID: "acme", Code: "DAMAGED", EventType: EventTypeScrap}
	holdReason := &ReasonCode{ID: "RC-QA", TenantID: "acme", Code: "QA_HOLD", EventType: EventTypeHold}

	tests := []struct {
		name        string
		input       EventInput
		from, to    *Location
		reason      *ReasonCode
		expectError error
	}{
		{
			name: "receive must not have a source",
			input: EventInput{
				TenantID: "acme", Type: EventTypeReceive, ItemID: item.ID,
				Qty: decimalOrPanic("1"), UOM: "EA",
				FromLocationID: "RACK1", ToLocationID: "DOCK1",
			},
			from: rack, to: dock,
			expectError: ErrUnexpectedFromLocation,
		},
		{
			name: "move requires both locations",
			input: EventInput{
				TenantID: "acme", Type: EventTypeMove, ItemID: item.ID,
				Qty: decimalOrPanic("1"), UOM: "EA",
				FromLocationID: "RACK1",
			},
			from:        rack,
			expectError: ErrMissingToLocation,
		},
		{
			name: "move to the same location",
			input: EventInput{
				TenantID: "acme", Type: EventTypeMove, ItemID: item.ID,
				Qty: decimalOrPanic("1"), UOM: "EA",
				FromLocationID: "RACK1", ToLocationID: "RACK1",
			},
			from: rack, to: rack,
			expectError: ErrSameLocation,
		},
		{
			name: "issue requires a workcell",
			input: EventInput{
				TenantID: "acme", Type: EventTypeIssueToWorkcell, ItemID: item.ID,
				Qty: decimalOrPanic("1"), UOM: "EA",
				FromLocationID: "RACK1",
			},
			from:        rack,
			expectError: ErrMissingWorkcell,
		},
		{
			name: "scrap requires a reason code",
			input: EventInput{
				TenantID: "acme", Type: EventTypeScrap, ItemID: item.ID,
				Qty: decimalOrPanic("1"), UOM: "EA",
				FromLocationID: "RACK1",
			},
			from:        rack,
			expectError: ErrMissingReasonCode,
		},
		{
			name: "reason code type must match event type",
			input: EventInput{
				TenantID: "acme", Type: EventTypeScrap, ItemID: item.ID,
				Qty: decimalOrPanic("1"), UOM: "EA",
				FromLocationID: "RACK1", ReasonCodeID: "RC-QA",
			},
			from: rack, reason: holdReason,
			expectError: ErrReasonCodeTypeMismatch,
		},
		{
			name: "optional reason code still must match event type",
			input: EventInput{
				TenantID: "acme", Type: EventTypeMove, ItemID: item.ID,
				Qty: decimalOrPanic("1"), UOM: "EA",
				FromLocationID: "RACK1", ToLocationID: "DOCK1", ReasonCodeID: "RC-DAMAGE",
			},
			from: rack, to: dock, reason: scrapReason,
			expectError: ErrReasonCodeTypeMismatch,
		},
		{
			name: "optional reason code must resolve",
			input: EventInput{
				TenantID: "acme", Type: EventTypeReceive, ItemID: item.ID,
				Qty: decimalOrPanic("1"), UOM: "EA",
				ToLocationID: "DOCK1", ReasonCodeID: "RC-GHOST",
			},
			to:          dock,
			expectError: ErrReasonCodeNotFound,
		},
		{
			name: "hold must stay on one location",
			input: EventInput{
				TenantID: "acme", Type: EventTypeHold, ItemID: item.ID,
				Qty: decimalOrPanic("1"), UOM: "EA",
				FromLocationID: "RACK1", ToLocationID: "DOCK1", ReasonCodeID: "RC-QA",
			},
			from: rack, to: dock, reason: holdReason,
			expectError: ErrHoldLocationMismatch,
		},
		{
			name: "adjust with both locations is ambiguous",
			input: EventInput{
				TenantID: "acme", Type: EventTypeAdjust, ItemID: item.ID,
				Qty: decimalOrPanic("1"), UOM: "EA",
				FromLocationID: "RACK1", ToLocationID: "DOCK1", ReasonCodeID: "RC-DAMAGE",
			},
			from: rack, to: dock, reason: scrapReason,
			expectError: ErrAdjustLocationAmbiguous,
		},
		{
			name: "unknown event type",
			input: EventInput{
				TenantID: "acme", Type: EventType("TELEPORT"), ItemID: item.ID,
				Qty: decimalOrPanic("1"), UOM: "EA",
			},
			expectError: ErrInvalidEventType,
		},
		{
			name: "zero quantity",
			input: EventInput{
				TenantID: "acme", Type: EventTypeReceive, ItemID: item.ID,
				Qty: ZeroQuantity(), UOM: "EA",
				ToLocationID: "DOCK1",
			},
			to:          dock,
			expectError: ErrInvalidQuantity,
		},
		{
			name: "negative quantity on a directional event",
			input: EventInput{
				TenantID: "acme", Type: EventTypeReceive, ItemID: item.ID,
				Qty: decimalOrPanic("-2"), UOM: "EA",
				ToLocationID: "DOCK1",
			},
			to:          dock,
			expectError: ErrQuantityNotPositive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStockEvent(tt.input, item, tt.from, tt.to, tt.reason)
			if !errors.Is(err, tt.expectError) {
				t.Errorf("expected %v, got %v", tt.expectError, err)
			}
		})
	}
}

func TestNewStockEvent_SiteMismatch(t *testing.T) {
	item := testWidget(t)
	rack := testLocation("RACK1", "SITE1", LocationTypeRack)
	remoteDock := testLocation("DOCK9", "SITE2", LocationTypeDock)

	input := EventInput{
		TenantID: "acme", Type: EventTypeMove, ItemID: item.ID,
		Qty: decimalOrPanic("1"), UOM: "EA",
		FromLocationID: "RACK1", ToLocationID: "DOCK9",
	}
	if _, err := NewStockEvent(input, item, rack, remoteDock, nil); !errors.Is(err, ErrSiteMismatch) {
		t.Errorf("expected ErrSiteMismatch, got %v", err)
	}

	// A pinned site that disagrees with the location also fails.
	input = receiveInput("1")
	input.SiteID = "SITE2"
	dock := testLocation("DOCK1", "SITE1", LocationTypeDock)
	if _, err := NewStockEvent(input, item, nil, dock, nil); !errors.Is(err, ErrSiteMismatch) {
		t.Errorf("expected ErrSiteMismatch, got %v", err)
	}
}

func TestNewStockEvent_AdjustAllowsSignedQuantity(t *testing.T) {
	item := testWidget(t)
	rack := testLocation("RACK1", "SITE1", LocationTypeRack)
	adjustReason := &ReasonCode{ID: "RC-CYCLE", TenantID: "acme", Code: "CYCLE_COUNT_ADJ", EventType: EventTypeAdjust}

	input := EventInput{
		TenantID: "acme", Type: EventTypeAdjust, ItemID: item.ID,
		Qty: decimalOrPanic("-3"), UOM: "EA",
		FromLocationID: "RACK1", ReasonCodeID: "RC-CYCLE",
	}
	evt, err := NewStockEvent(input, item, rack, nil, adjustReason)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !evt.QtyBase.Equals(mustQty(t, "-3")) {
		t.Errorf("expected -3, got %s", evt.QtyBase)
	}
}

func TestNewStockEvent_MissingReferences(t *testing.T) {
	dock := testLocation("DOCK1", "SITE1", LocationTypeDock)

	if _, err := NewStockEvent(receiveInput("1"), nil, nil, dock, nil); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}

	item := testWidget(t)
	if _, err := NewStockEvent(receiveInput("1"), item, nil, nil, nil); !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("expected ErrLocationNotFound, got %v", err)
	}
}
