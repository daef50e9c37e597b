package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/wms-platform/stock-ledger-service/internal/domain"
	"github.com/wms-platform/stock-ledger-service/pkg/logging"
	"github.com/wms-platform/stock-ledger-service/pkg/outbox"
)

// DefaultMaxApplyAttempts bounds the automatic retry loop around
// concurrency conflicts. Each attempt re-validates against fresh reads.
const DefaultMaxApplyAttempts = 3

const stockEventAggregateType = "StockEvent"

// LedgerApplicationService handles the mutating ledger use cases:
// recording stock events and converting quantities.
type LedgerApplicationService struct {
	refRepo     domain.ReferenceRepository
	balanceRepo domain.BalanceRepository
	eventRepo   domain.EventRepository
	outboxRepo  outbox.Repository
	txManager   domain.TransactionManager
	logger      *logging.Logger
	eventTopic  string
	maxAttempts int
}

// NewLedgerApplicationService creates a new ledger application service
func NewLedgerApplicationService(
	refRepo domain.ReferenceRepository,
	balanceRepo domain.BalanceRepository,
	eventRepo domain.EventRepository,
	outboxRepo outbox.Repository,
	txManager domain.TransactionManager,
	logger *logging.Logger,
	eventTopic string,
) *LedgerApplicationService {
	return &LedgerApplicationService{
		refRepo:     refRepo,
		balanceRepo: balanceRepo,
		eventRepo:   eventRepo,
		outboxRepo:  outboxRepo,
		txManager:   txManager,
		logger:      logger,
		eventTopic:  eventTopic,
		maxAttempts: DefaultMaxApplyAttempts,
	}
}

// ConvertQuantity converts an entered quantity to the item's base unit
// using the item's registered factor. Nothing is recorded.
func (s *LedgerApplicationService) ConvertQuantity(ctx context.Context, cmd ConvertQuantityCommand) (*ConversionDTO, error) {
	qty, err := domain.NewQuantityFromString(cmd.Qty)
	if err != nil {
		return nil, err
	}

	item, err := s.refRepo.GetItem(ctx, cmd.TenantID, cmd.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	qtyBase, factor, err := item.ConvertToBase(qty, cmd.UOM)
	if err != nil {
		return nil, err
	}

	return &ConversionDTO{
		ItemID:  cmd.ItemID,
		Qty:     qty.String(),
		UOM:     cmd.UOM,
		QtyBase: qtyBase.String(),
		BaseUOM: item.BaseUOM,
		Factor:  factor.String(),
	}, nil
}

// ApplyEvent is the single mutating entry point. It validates the
// command against reference data, converts the quantity, and applies
// the event and its balance deltas in one transaction. Concurrency
// conflicts are retried a bounded number of times with validation
// re-run against fresh reads; the typed conflict surfaces to the
// caller once attempts are exhausted.
func (s *LedgerApplicationService) ApplyEvent(ctx context.Context, cmd ApplyEventCommand) (*ApplyResultDTO, error) {
	input, err := toEventInput(cmd)
	if err != nil {
		return nil, err
	}

	var result *ApplyResultDTO
	for attempt := 1; ; attempt++ {
		result, err = s.applyOnce(ctx, input)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) || attempt >= s.maxAttempts {
			break
		}
		s.logger.WithContext(ctx).Warn("retrying stock event after concurrency conflict",
			"itemId", input.ItemID, "eventType", string(input.Type), "attempt", attempt)
	}

	if errors.Is(err, domain.ErrNegativeBalance) {
		s.recordNegativeBalanceRejection(ctx, input)
	}
	return nil, err
}

func (s *LedgerApplicationService) applyOnce(ctx context.Context, input domain.EventInput) (*ApplyResultDTO, error) {
	// Reference data is immutable; resolve it before the transaction
	// opens so lookups never run under a lock.
	item, from, to, reason, err := s.resolveReferences(ctx, input)
	if err != nil {
		return nil, err
	}

	evt, err := domain.NewStockEvent(input, item, from, to, reason)
	if err != nil {
		return nil, err
	}

	siteByLocation := make(map[string]string, 2)
	for _, loc := range []*domain.Location{from, to} {
		if loc != nil {
			siteByLocation[loc.ID] = loc.SiteID
		}
	}

	var updated []*domain.InventoryBalance
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var txErr error
		updated, txErr = s.applyDeltas(txCtx, evt, siteByLocation)
		if txErr != nil {
			return txErr
		}

		if txErr = s.eventRepo.Append(txCtx, evt); txErr != nil {
			return fmt.Errorf("failed to append event: %w", txErr)
		}

		return s.saveOutboxEvents(txCtx, evt, updated)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Info("stock event applied",
		"eventId", evt.EventID.String(), "eventType", string(evt.Type),
		"itemId", evt.ItemID, "qtyBase", evt.QtyBase.String())

	return &ApplyResultDTO{
		Event:           toStockEventDTO(evt),
		UpdatedBalances: toBalanceDTOs(updated),
	}, nil
}

// applyDeltas loads the touched balance rows in ascending location
// order, plans the event's deltas, and writes the mutated rows back
// under their optimistic version check. Rows are created lazily for
// locations no event has touched before.
func (s *LedgerApplicationService) applyDeltas(ctx context.Context, evt *domain.StockEvent, siteByLocation map[string]string) ([]*domain.InventoryBalance, error) {
	locationIDs := domain.EventLocationIDs(evt)

	rows, err := s.balanceRepo.FindMany(ctx, evt.TenantID, evt.ItemID, locationIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}

	current := make(map[string]*domain.InventoryBalance, len(rows))
	for _, row := range rows {
		current[domain.BalanceKey(row.ItemID, row.LocationID)] = row
	}

	deltas, err := domain.PlanDeltas(evt, current)
	if err != nil {
		return nil, err
	}
	evt.Deltas = deltas

	updated := make([]*domain.InventoryBalance, 0, len(deltas))
	for _, delta := range deltas {
		key := domain.BalanceKey(delta.ItemID, delta.LocationID)
		row, exists := current[key]
		if !exists {
			row = domain.NewInventoryBalance(evt.TenantID, delta.ItemID, delta.LocationID, siteByLocation[delta.LocationID])
			current[key] = row
		}

		expectedVersion := row.Version
		if err := row.Apply(delta); err != nil {
			return nil, err
		}

		if exists {
			err = s.balanceRepo.Update(ctx, row, expectedVersion)
		} else {
			err = s.balanceRepo.SaveNew(ctx, row)
		}
		if err != nil {
			return nil, err
		}
		updated = append(updated, row)
	}
	return updated, nil
}

func (s *LedgerApplicationService) resolveReferences(ctx context.Context, input domain.EventInput) (*domain.Item, *domain.Location, *domain.Location, *domain.ReasonCode, error) {
	item, err := s.refRepo.GetItem(ctx, input.TenantID, input.ItemID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to get item: %w", err)
	}

	var from, to *domain.Location
	if input.FromLocationID != "" {
		if from, err = s.refRepo.GetLocation(ctx, input.TenantID, input.FromLocationID); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to get source location: %w", err)
		}
	}
	if input.ToLocationID != "" {
		if to, err = s.refRepo.GetLocation(ctx, input.TenantID, input.ToLocationID); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to get destination location: %w", err)
		}
	}

	var reason *domain.ReasonCode
	if input.ReasonCodeID != "" {
		if reason, err = s.refRepo.GetReasonCode(ctx, input.TenantID, input.ReasonCodeID); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to get reason code: %w", err)
		}
	}

	return item, from, to, reason, nil
}

// saveOutboxEvents stores the integration events in the same
// transaction as the balance mutation so publication can never observe
// an uncommitted ledger state.
func (s *LedgerApplicationService) saveOutboxEvents(ctx context.Context, evt *domain.StockEvent, updated []*domain.InventoryBalance) error {
	recorded := &domain.StockEventRecordedEvent{
		EventID:      evt.EventID.String(),
		TenantID:     evt.TenantID,
		SiteID:       evt.SiteID,
		Type:         string(evt.Type),
		ItemID:       evt.ItemID,
		Qty:          evt.Qty.String(),
		UOM:          evt.UOM,
		QtyBase:      evt.QtyBase.String(),
		FromLocation: evt.FromLocationID,
		ToLocation:   evt.ToLocationID,
		Deltas:       evt.Deltas,
		ActorID:      evt.ActorID,
		RecordedAt:   evt.CreatedAt,
	}

	events := make([]*outbox.OutboxEvent, 0, 1+len(updated))
	obEvent, err := outbox.NewOutboxEvent(evt.EventID.String(), stockEventAggregateType, s.eventTopic, recorded)
	if err != nil {
		return fmt.Errorf("failed to build outbox event: %w", err)
	}
	events = append(events, obEvent)

	for _, row := range updated {
		balanceEvent := &domain.BalanceUpdatedEvent{
			TenantID:    row.TenantID,
			SiteID:      row.SiteID,
			ItemID:      row.ItemID,
			LocationID:  row.LocationID,
			QtyBase:     row.QtyBase.String(),
			HeldQtyBase: row.HeldQtyBase.String(),
			Version:     row.Version,
			CausedBy:    evt.EventID.String(),
			UpdatedAt:   row.UpdatedAt,
		}
		obEvent, err = outbox.NewOutboxEvent(evt.EventID.String(), stockEventAggregateType, s.eventTopic, balanceEvent)
		if err != nil {
			return fmt.Errorf("failed to build outbox event: %w", err)
		}
		events = append(events, obEvent)
	}

	if err := s.outboxRepo.SaveAll(ctx, events); err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}

// recordNegativeBalanceRejection leaves an audit trail for rejected
// decreases. The write happens outside the rolled-back transaction and
// is best effort.
func (s *LedgerApplicationService) recordNegativeBalanceRejection(ctx context.Context, input domain.EventInput) {
	locationID := input.FromLocationID
	if locationID == "" {
		locationID = input.ToLocationID
	}

	rejection := &domain.NegativeBalanceRejectedEvent{
		TenantID:   input.TenantID,
		ItemID:     input.ItemID,
		LocationID: locationID,
		Type:       string(input.Type),
		QtyBase:    input.Qty.String(),
		ActorID:    input.ActorID,
		RejectedAt: nowUTC(),
	}

	obEvent, err := outbox.NewOutboxEvent(input.ItemID, stockEventAggregateType, s.eventTopic, rejection)
	if err == nil {
		err = s.outboxRepo.Save(ctx, obEvent)
	}
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("failed to record negative balance rejection")
	}
}
