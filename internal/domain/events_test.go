package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDomainEvents_Metadata(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		eventType string
		event     DomainEvent
	}{
		{
			name:      "stock_event_recorded",
			eventType: "wms.ledger.stock-event-recorded",
			event:     &StockEventRecordedEvent{RecordedAt: now},
		},
		{
			name:      "balance_updated",
			eventType: "wms.ledger.balance-updated",
			event:     &BalanceUpdatedEvent{UpdatedAt: now},
		},
		{
			name:      "negative_balance_rejected",
			eventType: "wms.ledger.negative-balance-rejected",
			event:     &NegativeBalanceRejectedEvent{RejectedAt: now},
		},
		{
			name:      "reconciliation_completed",
			eventType: "wms.ledger.reconciliation-completed",
			event:     &ReconciliationCompletedEvent{CompletedAt: now},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.eventType, tt.event.EventType())
			assert.Equal(t, now, tt.event.OccurredAt())
		})
	}
}
