package domain

import (
	"fmt"
	"time"
)

// NewStockEvent validates an event input against resolved reference
// data and produces the immutable event record. The caller resolves
// item, locations and reason code through tenant-scoped lookups; nil is
// passed for references the input does not name.
//
// Validation covers the per-type shape rules, quantity sign rules, site
// consistency across the referenced locations, reason code type
// registration, and unit conversion. Nothing here touches balances;
// delta planning and application happen under the write transaction.
func NewStockEvent(input EventInput, item *Item, from, to *Location, reason *ReasonCode) (*StockEvent, error) {
	shape, ok := eventShapes[input.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEventType, input.Type)
	}

	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, input.ItemID)
	}

	if err := validateQuantity(input, shape); err != nil {
		return nil, err
	}
	if err := validateLocations(input, shape, from, to); err != nil {
		return nil, err
	}

	if shape.requiresWorkcell && input.WorkcellID == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingWorkcell, input.Type)
	}

	if shape.requiresReasonCode && input.ReasonCodeID == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingReasonCode, input.Type)
	}
	// A supplied reason code must exist and be registered for this
	// event type even when the type does not require one.
	if input.ReasonCodeID != "" {
		if reason == nil {
			return nil, fmt.Errorf("%w: %s", ErrReasonCodeNotFound, input.ReasonCodeID)
		}
		if !reason.AppliesTo(input.Type) {
			return nil, fmt.Errorf("%w: %s registered for %s, used with %s",
				ErrReasonCodeTypeMismatch, reason.Code, reason.EventType, input.Type)
		}
	}

	qtyBase, factor, err := item.ConvertToBase(input.Qty, input.UOM)
	if err != nil {
		return nil, err
	}
	// Rounding a small fractional quantity can collapse it to zero in
	// the base unit; such an event would be a no-op and is rejected.
	if qtyBase.IsZero() {
		return nil, fmt.Errorf("%w: %s %s converts to zero %s", ErrInvalidQuantity, input.Qty, input.UOM, item.BaseUOM)
	}

	return &StockEvent{
		EventID:        NewEventID(),
		TenantID:       input.TenantID,
		SiteID:         eventSite(input, from, to),
		Type:           input.Type,
		ItemID:         input.ItemID,
		Qty:            input.Qty,
		UOM:            input.UOM,
		QtyBase:        qtyBase,
		Factor:         factor,
		FromLocationID: input.FromLocationID,
		ToLocationID:   input.ToLocationID,
		WorkcellID:     input.WorkcellID,
		ReasonCodeID:   input.ReasonCodeID,
		ReferenceID:    input.ReferenceID,
		ReferenceType:  input.ReferenceType,
		Note:           input.Note,
		ActorID:        input.ActorID,
		DeviceID:       input.DeviceID,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func validateQuantity(input EventInput, shape eventShape) error {
	if input.Qty.IsZero() {
		return fmt.Errorf("%w: quantity is zero", ErrInvalidQuantity)
	}
	if !shape.allowsSignedQty && !input.Qty.IsPositive() {
		return fmt.Errorf("%w: %s", ErrQuantityNotPositive, input.Type)
	}
	if input.UOM == "" {
		return fmt.Errorf("%w: unit of measure is required", ErrInvalidQuantity)
	}
	return nil
}

func validateLocations(input EventInput, shape eventShape, from, to *Location) error {
	hasFrom := input.FromLocationID != ""
	hasTo := input.ToLocationID != ""

	if shape.exactlyOneLocation {
		if hasFrom == hasTo {
			return ErrAdjustLocationAmbiguous
		}
	} else {
		if shape.requiresFrom && !hasFrom {
			return fmt.Errorf("%w: %s", ErrMissingFromLocation, input.Type)
		}
		if shape.requiresTo && !hasTo {
			return fmt.Errorf("%w: %s", ErrMissingToLocation, input.Type)
		}
		if shape.forbidsFrom && hasFrom {
			return fmt.Errorf("%w: %s", ErrUnexpectedFromLocation, input.Type)
		}
		if shape.forbidsTo && hasTo {
			return fmt.Errorf("%w: %s", ErrUnexpectedToLocation, input.Type)
		}
	}

	if hasFrom && from == nil {
		return fmt.Errorf("%w: %s", ErrLocationNotFound, input.FromLocationID)
	}
	if hasTo && to == nil {
		return fmt.Errorf("%w: %s", ErrLocationNotFound, input.ToLocationID)
	}

	if shape.singleLocation && input.FromLocationID != input.ToLocationID {
		return ErrHoldLocationMismatch
	}
	if input.Type == EventTypeMove && input.FromLocationID == input.ToLocationID {
		return ErrSameLocation
	}

	// All referenced locations must sit in one site, and match the
	// caller's site when the request pins one.
	if from != nil && to != nil && from.SiteID != to.SiteID {
		return fmt.Errorf("%w: %s is in %s, %s is in %s",
			ErrSiteMismatch, from.Code, from.SiteID, to.Code, to.SiteID)
	}
	if input.SiteID != "" {
		if from != nil && from.SiteID != input.SiteID {
			return fmt.Errorf("%w: %s is in %s, event is for %s",
				ErrSiteMismatch, from.Code, from.SiteID, input.SiteID)
		}
		if to != nil && to.SiteID != input.SiteID {
			return fmt.Errorf("%w: %s is in %s, event is for %s",
				ErrSiteMismatch, to.Code, to.SiteID, input.SiteID)
		}
	}
	return nil
}

// eventSite resolves the site the event belongs to, preferring the
// explicitly requested site over the locations'.
func eventSite(input EventInput, from, to *Location) string {
	if input.SiteID != "" {
		return input.SiteID
	}
	if from != nil {
		return from.SiteID
	}
	if to != nil {
		return to.SiteID
	}
	return ""
}
