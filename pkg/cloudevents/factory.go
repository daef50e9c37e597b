package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for stock ledger domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new WMSCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *WMSCloudEvent {
	event := &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}

	return event
}

// CreateEventWithCorrelation creates an event with correlation tracking
func (f *EventFactory) CreateEventWithCorrelation(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
	correlationID string,
	referenceID string,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.CorrelationID = correlationID
	event.ReferenceID = referenceID
	return event
}

// CreateStockEventRecordedEvent creates a StockEventRecorded event
func (f *EventFactory) CreateStockEventRecordedEvent(
	ctx context.Context,
	data StockEventRecordedData,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, StockEventRecorded, "stock-event/"+data.EventID, data)
	event.TenantID = data.TenantID
	event.SiteID = data.SiteID
	event.ActorID = data.ActorID
	return event
}

// CreateBalanceUpdatedEvent creates a BalanceUpdated event
func (f *EventFactory) CreateBalanceUpdatedEvent(
	ctx context.Context,
	data BalanceUpdatedData,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, BalanceUpdated, "balance/"+data.ItemID+"/"+data.LocationID, data)
	event.TenantID = data.TenantID
	event.SiteID = data.SiteID
	return event
}

// CreateNegativeBalanceRejectedEvent creates a NegativeBalanceRejected event
func (f *EventFactory) CreateNegativeBalanceRejectedEvent(
	ctx context.Context,
	data NegativeBalanceRejectedData,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, NegativeBalanceRejected, "balance/"+data.ItemID+"/"+data.LocationID, data)
	event.TenantID = data.TenantID
	event.ActorID = data.ActorID
	return event
}

// CreateReconciliationCompletedEvent creates a ReconciliationCompleted event
func (f *EventFactory) CreateReconciliationCompletedEvent(
	ctx context.Context,
	data ReconciliationCompletedData,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, ReconciliationCompleted, "reconciliation/"+data.ReconciliationID, data)
	event.TenantID = data.TenantID
	return event
}
