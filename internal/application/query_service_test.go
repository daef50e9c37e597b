package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queryFixture struct {
	*ledgerFixture
	query *QueryApplicationService
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()
	fx := newLedgerFixture(t)
	return &queryFixture{
		ledgerFixture: fx,
		query:         NewQueryApplicationService(fx.balances, fx.events, fx.outbox, testLogger(), testTopic),
	}
}

func (fx *queryFixture) apply(t *testing.T, cmd ApplyEventCommand) *ApplyResultDTO {
	t.Helper()
	cmd.TenantID = "acme"
	cmd.ActorID = "user-1"
	result, err := fx.service.ApplyEvent(context.Background(), cmd)
	require.NoError(t, err)
	return result
}

func TestGetBalance_UntouchedPairReadsAsEmpty(t *testing.T) {
	fx := newQueryFixture(t)

	dto, err := fx.query.GetBalance(context.Background(), GetBalanceQuery{
		TenantID: "acme", ItemID: "ITEM-WIDGET", LocationID: "RACK1",
	})
	require.NoError(t, err)
	assert.Equal(t, "0", dto.QtyBase)
	assert.Equal(t, "0", dto.HeldQtyBase)
	assert.Equal(t, int64(0), dto.Version)
}

func TestGetBalance_AfterEvent(t *testing.T) {
	fx := newQueryFixture(t)
	fx.apply(t, ApplyEventCommand{Type: "RECEIVE", ItemID: "ITEM-WIDGET", Qty: "2", UOM: "CASE", ToLocationID: "DOCK1"})

	dto, err := fx.query.GetBalance(context.Background(), GetBalanceQuery{
		TenantID: "acme", ItemID: "ITEM-WIDGET", LocationID: "DOCK1",
	})
	require.NoError(t, err)
	assert.Equal(t, "48", dto.QtyBase)
	assert.Equal(t, int64(1), dto.Version)
}

func TestListBalances(t *testing.T) {
	fx := newQueryFixture(t)
	fx.apply(t, ApplyEventCommand{Type: "RECEIVE", ItemID: "ITEM-WIDGET", Qty: "48", UOM: "EA", ToLocationID: "DOCK1"})
	fx.apply(t, ApplyEventCommand{Type: "MOVE", ItemID: "ITEM-WIDGET", Qty: "12", UOM: "EA", FromLocationID: "DOCK1", ToLocationID: "RACK1"})

	dtos, err := fx.query.ListBalances(context.Background(), ListBalancesQuery{TenantID: "acme", ItemID: "ITEM-WIDGET"})
	require.NoError(t, err)
	require.Len(t, dtos, 2)
	assert.Equal(t, "DOCK1", dtos[0].LocationID)
	assert.Equal(t, "36", dtos[0].QtyBase)
	assert.Equal(t, "RACK1", dtos[1].LocationID)
	assert.Equal(t, "12", dtos[1].QtyBase)
}

func TestListEvents_NewestFirstWithPaging(t *testing.T) {
	fx := newQueryFixture(t)
	fx.apply(t, ApplyEventCommand{Type: "RECEIVE", ItemID: "ITEM-WIDGET", Qty: "48", UOM: "EA", ToLocationID: "DOCK1"})
	fx.apply(t, ApplyEventCommand{Type: "MOVE", ItemID: "ITEM-WIDGET", Qty: "12", UOM: "EA", FromLocationID: "DOCK1", ToLocationID: "RACK1"})
	fx.apply(t, ApplyEventCommand{Type: "SCRAP", ItemID: "ITEM-WIDGET", Qty: "1", UOM: "EA", FromLocationID: "RACK1", ReasonCodeID: "RC-DAMAGE"})

	page, err := fx.query.ListEvents(context.Background(), ListEventsQuery{TenantID: "acme", ItemID: "ITEM-WIDGET", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "SCRAP", page[0].Type)
	assert.Equal(t, "MOVE", page[1].Type)

	rest, err := fx.query.ListEvents(context.Background(), ListEventsQuery{TenantID: "acme", ItemID: "ITEM-WIDGET", Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "RECEIVE", rest[0].Type)
}

func TestGetEvent(t *testing.T) {
	fx := newQueryFixture(t)
	applied := fx.apply(t, ApplyEventCommand{Type: "RECEIVE", ItemID: "ITEM-WIDGET", Qty: "2", UOM: "CASE", ToLocationID: "DOCK1"})

	dto, err := fx.query.GetEvent(context.Background(), "acme", applied.Event.EventID)
	require.NoError(t, err)
	assert.Equal(t, "48", dto.QtyBase)

	_, err = fx.query.GetEvent(context.Background(), "acme", "not-an-event-id")
	require.Error(t, err)
}

func TestReplay_ReconstructsBalancesFromEvents(t *testing.T) {
	fx := newQueryFixture(t)
	fx.apply(t, ApplyEventCommand{Type: "RECEIVE", ItemID: "ITEM-WIDGET", Qty: "2", UOM: "CASE", ToLocationID: "DOCK1"})
	fx.apply(t, ApplyEventCommand{Type: "MOVE", ItemID: "ITEM-WIDGET", Qty: "40", UOM: "EA", FromLocationID: "DOCK1", ToLocationID: "RACK1"})
	fx.apply(t, ApplyEventCommand{Type: "HOLD", ItemID: "ITEM-WIDGET", Qty: "10", UOM: "EA", FromLocationID: "RACK1", ToLocationID: "RACK1", ReasonCodeID: "RC-QA"})
	fx.apply(t, ApplyEventCommand{Type: "COUNT", ItemID: "ITEM-WIDGET", Qty: "25", UOM: "EA", ToLocationID: "RACK1"})

	replay, err := fx.query.Replay(context.Background(), ReplayQuery{TenantID: "acme", ItemID: "ITEM-WIDGET"})
	require.NoError(t, err)
	require.Len(t, replay.Balances, 2)
	assert.Equal(t, ReplayedBalanceDTO{LocationID: "DOCK1", QtyBase: "8", HeldQtyBase: "0"}, replay.Balances[0])
	assert.Equal(t, ReplayedBalanceDTO{LocationID: "RACK1", QtyBase: "25", HeldQtyBase: "10"}, replay.Balances[1])

	// The replayed positions must match the stored projection exactly.
	stored, err := fx.query.ListBalances(context.Background(), ListBalancesQuery{TenantID: "acme", ItemID: "ITEM-WIDGET"})
	require.NoError(t, err)
	for i, b := range stored {
		assert.Equal(t, replay.Balances[i].QtyBase, b.QtyBase)
		assert.Equal(t, replay.Balances[i].HeldQtyBase, b.HeldQtyBase)
	}
}

func TestReplay_RespectsCutoff(t *testing.T) {
	fx := newQueryFixture(t)
	fx.apply(t, ApplyEventCommand{Type: "RECEIVE", ItemID: "ITEM-WIDGET", Qty: "48", UOM: "EA", ToLocationID: "DOCK1"})

	cutoff := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	replay, err := fx.query.Replay(context.Background(), ReplayQuery{TenantID: "acme", ItemID: "ITEM-WIDGET", Upto: cutoff})
	require.NoError(t, err)
	assert.Empty(t, replay.Balances, "events after the cutoff must not be folded")

	_, err = fx.query.Replay(context.Background(), ReplayQuery{TenantID: "acme", ItemID: "ITEM-WIDGET", Upto: "yesterday"})
	require.Error(t, err)
}

func TestReconcile_Matched(t *testing.T) {
	fx := newQueryFixture(t)
	fx.apply(t, ApplyEventCommand{Type: "RECEIVE", ItemID: "ITEM-WIDGET", Qty: "2", UOM: "CASE", ToLocationID: "DOCK1"})
	fx.apply(t, ApplyEventCommand{Type: "MOVE", ItemID: "ITEM-WIDGET", Qty: "12", UOM: "EA", FromLocationID: "DOCK1", ToLocationID: "RACK1"})

	result, err := fx.query.Reconcile(context.Background(), ReconcileCommand{TenantID: "acme", ItemID: "ITEM-WIDGET"})
	require.NoError(t, err)
	assert.Equal(t, "matched", result.Status)
	assert.Equal(t, 2, result.LocationsChecked)
	assert.Empty(t, result.Variances)
}

func TestReconcile_DetectsDriftedProjection(t *testing.T) {
	fx := newQueryFixture(t)
	fx.apply(t, ApplyEventCommand{Type: "RECEIVE", ItemID: "ITEM-WIDGET", Qty: "48", UOM: "EA", ToLocationID: "DOCK1"})

	// Tamper with the stored row behind the ledger's back.
	row, err := fx.balances.Find(context.Background(), "acme", "ITEM-WIDGET", "DOCK1")
	require.NoError(t, err)
	row.QtyBase = qty(t, "40")
	fx.balances.put(row)

	result, err := fx.query.Reconcile(context.Background(), ReconcileCommand{TenantID: "acme", ItemID: "ITEM-WIDGET"})
	require.NoError(t, err)
	assert.Equal(t, "variance_detected", result.Status)
	require.Len(t, result.Variances, 1)
	assert.Equal(t, "DOCK1", result.Variances[0].LocationID)
	assert.Equal(t, "40", result.Variances[0].StoredQty)
	assert.Equal(t, "48", result.Variances[0].ReplayedQty)
}

func TestReconcile_EquivalentDecimalFormsMatch(t *testing.T) {
	fx := newQueryFixture(t)
	fx.apply(t, ApplyEventCommand{Type: "RECEIVE", ItemID: "ITEM-WIDGET", Qty: "48", UOM: "EA", ToLocationID: "DOCK1"})

	// "48.0" and "48" are the same position, not a variance.
	row, err := fx.balances.Find(context.Background(), "acme", "ITEM-WIDGET", "DOCK1")
	require.NoError(t, err)
	row.QtyBase = qty(t, "48.0")
	fx.balances.put(row)

	result, err := fx.query.Reconcile(context.Background(), ReconcileCommand{TenantID: "acme", ItemID: "ITEM-WIDGET"})
	require.NoError(t, err)
	assert.Equal(t, "matched", result.Status)
}
