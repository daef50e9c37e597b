package application

import (
	"fmt"
	"time"

	"github.com/wms-platform/stock-ledger-service/internal/domain"
	apperrors "github.com/wms-platform/stock-ledger-service/pkg/errors"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

// parseUpto resolves a replay cutoff: empty means now, otherwise the
// value must be RFC 3339.
func parseUpto(s string) (time.Time, error) {
	if s == "" {
		return nowUTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperrors.ErrValidation(fmt.Sprintf("invalid upto timestamp: %q", s)).Wrap(err)
	}
	return t.UTC(), nil
}

// toEventInput converts an incoming command into the domain input the
// ledger validates. The quantity string is parsed here; everything else
// is checked by the domain against resolved reference data.
func toEventInput(cmd ApplyEventCommand) (domain.EventInput, error) {
	qty, err := domain.NewQuantityFromString(cmd.Qty)
	if err != nil {
		return domain.EventInput{}, err
	}

	return domain.EventInput{
		TenantID:       cmd.TenantID,
		SiteID:         cmd.SiteID,
		Type:           domain.EventType(cmd.Type),
		ItemID:         cmd.ItemID,
		Qty:            qty,
		UOM:            cmd.UOM,
		FromLocationID: cmd.FromLocationID,
		ToLocationID:   cmd.ToLocationID,
		WorkcellID:     cmd.WorkcellID,
		ReasonCodeID:   cmd.ReasonCodeID,
		ReferenceID:    cmd.ReferenceID,
		ReferenceType:  cmd.ReferenceType,
		Note:           cmd.Note,
		ActorID:        cmd.ActorID,
		DeviceID:       cmd.DeviceID,
	}, nil
}

func toStockEventDTO(evt *domain.StockEvent) StockEventDTO {
	deltas := make([]BalanceDeltaDTO, 0, len(evt.Deltas))
	for _, d := range evt.Deltas {
		deltas = append(deltas, BalanceDeltaDTO{
			ItemID:      d.ItemID,
			LocationID:  d.LocationID,
			QtyBase:     d.QtyBase.String(),
			HeldQtyBase: d.HeldQtyBase.String(),
		})
	}

	return StockEventDTO{
		EventID:        evt.EventID.String(),
		TenantID:       evt.TenantID,
		SiteID:         evt.SiteID,
		Type:           string(evt.Type),
		ItemID:         evt.ItemID,
		Qty:            evt.Qty.String(),
		UOM:            evt.UOM,
		QtyBase:        evt.QtyBase.String(),
		Factor:         evt.Factor.String(),
		FromLocationID: evt.FromLocationID,
		ToLocationID:   evt.ToLocationID,
		WorkcellID:     evt.WorkcellID,
		ReasonCodeID:   evt.ReasonCodeID,
		ReferenceID:    evt.ReferenceID,
		ReferenceType:  evt.ReferenceType,
		Note:           evt.Note,
		ActorID:        evt.ActorID,
		DeviceID:       evt.DeviceID,
		Deltas:         deltas,
		CreatedAt:      evt.CreatedAt,
	}
}

func toStockEventDTOs(events []*domain.StockEvent) []StockEventDTO {
	dtos := make([]StockEventDTO, 0, len(events))
	for _, evt := range events {
		dtos = append(dtos, toStockEventDTO(evt))
	}
	return dtos
}

func toBalanceDTO(b *domain.InventoryBalance) BalanceDTO {
	return BalanceDTO{
		TenantID:    b.TenantID,
		ItemID:      b.ItemID,
		LocationID:  b.LocationID,
		SiteID:      b.SiteID,
		QtyBase:     b.QtyBase.String(),
		HeldQtyBase: b.HeldQtyBase.String(),
		Version:     b.Version,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toBalanceDTOs(balances []*domain.InventoryBalance) []BalanceDTO {
	dtos := make([]BalanceDTO, 0, len(balances))
	for _, b := range balances {
		dtos = append(dtos, toBalanceDTO(b))
	}
	return dtos
}
