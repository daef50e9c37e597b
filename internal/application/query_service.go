package application

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/wms-platform/stock-ledger-service/internal/domain"
	"github.com/wms-platform/stock-ledger-service/pkg/logging"
	"github.com/wms-platform/stock-ledger-service/pkg/outbox"
)

const defaultEventPageSize = 50

// QueryApplicationService serves the read side of the ledger: balance
// lookups, event history, replay and reconciliation.
type QueryApplicationService struct {
	balanceRepo domain.BalanceRepository
	eventRepo   domain.EventRepository
	outboxRepo  outbox.Repository
	logger      *logging.Logger
	eventTopic  string
}

// NewQueryApplicationService creates a new query application service
func NewQueryApplicationService(
	balanceRepo domain.BalanceRepository,
	eventRepo domain.EventRepository,
	outboxRepo outbox.Repository,
	logger *logging.Logger,
	eventTopic string,
) *QueryApplicationService {
	return &QueryApplicationService{
		balanceRepo: balanceRepo,
		eventRepo:   eventRepo,
		outboxRepo:  outboxRepo,
		logger:      logger,
		eventTopic:  eventTopic,
	}
}

// GetBalance returns one balance row. An item/location pair no event
// has ever touched reads as an empty balance rather than an error.
func (s *QueryApplicationService) GetBalance(ctx context.Context, query GetBalanceQuery) (*BalanceDTO, error) {
	balance, err := s.balanceRepo.Find(ctx, query.TenantID, query.ItemID, query.LocationID)
	if errors.Is(err, domain.ErrBalanceNotFound) {
		empty := toBalanceDTO(domain.NewInventoryBalance(query.TenantID, query.ItemID, query.LocationID, ""))
		return &empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find balance: %w", err)
	}

	dto := toBalanceDTO(balance)
	return &dto, nil
}

// ListBalances returns every balance row for an item.
func (s *QueryApplicationService) ListBalances(ctx context.Context, query ListBalancesQuery) ([]BalanceDTO, error) {
	balances, err := s.balanceRepo.FindForItem(ctx, query.TenantID, query.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	return toBalanceDTOs(balances), nil
}

// ListEvents pages through an item's event history, newest first.
func (s *QueryApplicationService) ListEvents(ctx context.Context, query ListEventsQuery) ([]StockEventDTO, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultEventPageSize
	}

	events, err := s.eventRepo.FindByItem(ctx, query.TenantID, query.ItemID, limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return toStockEventDTOs(events), nil
}

// GetEvent returns a single recorded event.
func (s *QueryApplicationService) GetEvent(ctx context.Context, tenantID, eventID string) (*StockEventDTO, error) {
	id, err := domain.ParseEventID(eventID)
	if err != nil {
		return nil, err
	}

	evt, err := s.eventRepo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find event: %w", err)
	}

	dto := toStockEventDTO(evt)
	return &dto, nil
}

// Replay folds an item's events up to the cutoff into per-location
// positions. This is the audit path; it never reads the projection.
func (s *QueryApplicationService) Replay(ctx context.Context, query ReplayQuery) (*ReplayDTO, error) {
	upto, err := parseUpto(query.Upto)
	if err != nil {
		return nil, err
	}

	events, err := s.eventRepo.FindForReplay(ctx, query.TenantID, query.ItemID, upto)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for replay: %w", err)
	}

	replayed := domain.ReplayBalances(events)
	balances := make([]ReplayedBalanceDTO, 0, len(replayed))
	for _, rb := range replayed {
		balances = append(balances, ReplayedBalanceDTO{
			LocationID:  rb.LocationID,
			QtyBase:     rb.QtyBase.String(),
			HeldQtyBase: rb.HeldQtyBase.String(),
		})
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].LocationID < balances[j].LocationID })

	return &ReplayDTO{
		TenantID: query.TenantID,
		ItemID:   query.ItemID,
		Upto:     upto,
		Balances: balances,
	}, nil
}

// Reconcile replays an item's full event stream and compares the
// result against the stored projection, reporting any variance per
// location. A completed run is published through the outbox.
func (s *QueryApplicationService) Reconcile(ctx context.Context, cmd ReconcileCommand) (*ReconciliationDTO, error) {
	events, err := s.eventRepo.FindForReplay(ctx, cmd.TenantID, cmd.ItemID, nowUTC())
	if err != nil {
		return nil, fmt.Errorf("failed to load events for replay: %w", err)
	}
	replayed := domain.ReplayBalances(events)

	stored, err := s.balanceRepo.FindForItem(ctx, cmd.TenantID, cmd.ItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored balances: %w", err)
	}
	storedByLocation := make(map[string]*domain.InventoryBalance, len(stored))
	for _, b := range stored {
		storedByLocation[b.LocationID] = b
	}

	var variances []VarianceDTO
	checked := make(map[string]struct{})
	for locationID, rb := range replayed {
		checked[locationID] = struct{}{}
		storedQty, storedHeld := domain.ZeroQuantity(), domain.ZeroQuantity()
		if b, ok := storedByLocation[locationID]; ok {
			storedQty, storedHeld = b.QtyBase, b.HeldQtyBase
		}
		if !storedQty.Equals(rb.QtyBase) || !storedHeld.Equals(rb.HeldQtyBase) {
			variances = append(variances, VarianceDTO{
				LocationID:   locationID,
				StoredQty:    storedQty.String(),
				ReplayedQty:  rb.QtyBase.String(),
				StoredHeld:   storedHeld.String(),
				ReplayedHeld: rb.HeldQtyBase.String(),
			})
		}
	}
	// Stored rows the replay never produced are variances too.
	for _, b := range stored {
		if _, ok := checked[b.LocationID]; ok {
			continue
		}
		checked[b.LocationID] = struct{}{}
		if !b.QtyBase.IsZero() || !b.HeldQtyBase.IsZero() {
			variances = append(variances, VarianceDTO{
				LocationID:   b.LocationID,
				StoredQty:    b.QtyBase.String(),
				ReplayedQty:  "0",
				StoredHeld:   b.HeldQtyBase.String(),
				ReplayedHeld: "0",
			})
		}
	}
	sort.Slice(variances, func(i, j int) bool { return variances[i].LocationID < variances[j].LocationID })

	status := "matched"
	if len(variances) > 0 {
		status = "variance_detected"
	}

	result := &ReconciliationDTO{
		ReconciliationID: uuid.New().String(),
		TenantID:         cmd.TenantID,
		ItemID:           cmd.ItemID,
		Status:           status,
		LocationsChecked: len(checked),
		Variances:        variances,
		CompletedAt:      nowUTC(),
	}

	completed := &domain.ReconciliationCompletedEvent{
		ReconciliationID: result.ReconciliationID,
		TenantID:         cmd.TenantID,
		ItemID:           cmd.ItemID,
		LocationsChecked: result.LocationsChecked,
		VarianceCount:    len(variances),
		Status:           status,
		CompletedAt:      result.CompletedAt,
	}
	obEvent, err := outbox.NewOutboxEvent(result.ReconciliationID, "Reconciliation", s.eventTopic, completed)
	if err == nil {
		err = s.outboxRepo.Save(ctx, obEvent)
	}
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("failed to record reconciliation event")
	}

	return result, nil
}
