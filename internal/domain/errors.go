package domain

import "errors"

// Ledger domain errors
var (
	// ErrItemNotFound is returned when an item does not exist for the tenant
	ErrItemNotFound = errors.New("item not found")

	// ErrLocationNotFound is returned when a location does not exist for the tenant
	ErrLocationNotFound = errors.New("location not found")

	// ErrReasonCodeNotFound is returned when a reason code does not exist for the tenant
	ErrReasonCodeNotFound = errors.New("reason code not found")

	// ErrBalanceNotFound is returned when no balance row exists for an item/location pair
	ErrBalanceNotFound = errors.New("balance not found")

	// ErrEventNotFound is returned when a stock event cannot be found
	ErrEventNotFound = errors.New("stock event not found")

	// ErrSiteMismatch is returned when an event references locations in different sites
	ErrSiteMismatch = errors.New("event locations must belong to the same site")

	// ErrInvalidConversion is returned when no conversion factor is defined
	// from the entered unit of measure to the item's base unit
	ErrInvalidConversion = errors.New("no conversion defined for unit of measure")

	// ErrReasonCodeTypeMismatch is returned when a reason code is used with
	// an event type it is not registered for
	ErrReasonCodeTypeMismatch = errors.New("reason code not valid for event type")

	// ErrNegativeBalance is returned when applying an event would drive an
	// available or held balance below zero
	ErrNegativeBalance = errors.New("balance cannot go negative")

	// ErrConcurrencyConflict is returned when a concurrent writer updated a
	// balance between read and write; the operation is safe to retry
	ErrConcurrencyConflict = errors.New("concurrent balance modification detected")

	// ErrInvalidEventType is returned when an event carries an unknown type
	ErrInvalidEventType = errors.New("invalid event type")

	// ErrMissingFromLocation is returned when an event type requires a source location
	ErrMissingFromLocation = errors.New("event requires a source location")

	// ErrMissingToLocation is returned when an event type requires a destination location
	ErrMissingToLocation = errors.New("event requires a destination location")

	// ErrUnexpectedFromLocation is returned when an event type forbids a source location
	ErrUnexpectedFromLocation = errors.New("event must not have a source location")

	// ErrUnexpectedToLocation is returned when an event type forbids a destination location
	ErrUnexpectedToLocation = errors.New("event must not have a destination location")

	// ErrMissingWorkcell is returned when an issue or return event lacks a workcell
	ErrMissingWorkcell = errors.New("event requires a workcell")

	// ErrMissingReasonCode is returned when an event type requires a reason code
	ErrMissingReasonCode = errors.New("event requires a reason code")

	// ErrSameLocation is returned when a move names the same source and destination
	ErrSameLocation = errors.New("source and destination locations must differ")

	// ErrHoldLocationMismatch is returned when a hold or release names
	// different source and destination locations
	ErrHoldLocationMismatch = errors.New("hold and release must reference a single location")

	// ErrAdjustLocationAmbiguous is returned when an adjustment sets both or
	// neither of the source and destination locations
	ErrAdjustLocationAmbiguous = errors.New("adjustment requires exactly one location")
)
