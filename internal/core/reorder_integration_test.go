package core_test

import (
	"testing"

	"procurement-engine/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exit(productID, stockID, qty int) core.MovementRequest {
	return core.MovementRequest{
		ProductID: productID, StockID: stockID, Quantity: qty,
		Type: core.MovementExit, Reason: "sale", Responsible: "ana",
	}
}

func TestSyncReorderPoints_IsIdempotent(t *testing.T) {
	pool, ctx := setupTestDB(t)
	ledger := core.NewLedgerService(pool)
	rops := core.NewReorderPointService(pool, core.DefaultAlertThresholds)

	_, err := ledger.RegisterMovement(ctx, entry(1, 1, 100))
	require.NoError(t, err)
	_, err = ledger.RegisterMovement(ctx, exit(1, 1, 30))
	require.NoError(t, err)
	_, err = ledger.RegisterMovement(ctx, exit(1, 1, 20))
	require.NoError(t, err)

	first, err := rops.SyncReorderPoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Pairs)
	assert.Equal(t, 1, first.Changed)
	assert.Equal(t, 1, first.Inadequate)

	before, err := rops.SearchReorderPoints(ctx, core.ReorderPointFilter{})
	require.NoError(t, err)

	second, err := rops.SyncReorderPoints(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Changed)

	after, err := rops.SearchReorderPoints(ctx, core.ReorderPointFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)

	require.Len(t, after, 1)
	rp := after[0]
	// 50 units left; peak day 50 × max lead 10 dominates.
	assert.InDelta(t, 500.0, rp.ROP, 1e-6)
	assert.Equal(t, 50, rp.CurrentBalance)
	assert.Equal(t, core.ReorderInadequate, rp.Status)
}

func TestSearchAlerts_DerivedFromReorderPoints(t *testing.T) {
	pool, ctx := setupTestDB(t)
	ledger := core.NewLedgerService(pool)
	rops := core.NewReorderPointService(pool, core.DefaultAlertThresholds)

	_, err := ledger.RegisterMovement(ctx, entry(1, 1, 100))
	require.NoError(t, err)
	_, err = ledger.RegisterMovement(ctx, exit(1, 1, 50))
	require.NoError(t, err)
	_, err = rops.SyncReorderPoints(ctx)
	require.NoError(t, err)

	alerts, err := rops.SearchAlerts(ctx, nil)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, core.AlertCritical, alerts[0].Level)
	assert.Equal(t, "Widget", alerts[0].ProductName)
	assert.InDelta(t, 90.0, alerts[0].PercentBelowROP, 1e-6)

	high := core.AlertHigh
	filtered, err := rops.SearchAlerts(ctx, &high)
	require.NoError(t, err)
	assert.Empty(t, filtered)

	totals, err := rops.AlertTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Critical)

	// An entry updates the mirrored balance without another sync.
	_, err = ledger.RegisterMovement(ctx, entry(1, 1, 40))
	require.NoError(t, err)
	alert, err := rops.AlertFor(ctx, 1, 1)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, 90, alert.CurrentQuantity)
	assert.Equal(t, core.AlertCritical, alert.Level)

	rt, err := rops.ReorderPointTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rt.Monitored)
	assert.Equal(t, 1, rt.Inadequate)
}

func TestRegisterReorderPoint_MonitorsEmptyPair(t *testing.T) {
	pool, ctx := setupTestDB(t)
	rops := core.NewReorderPointService(pool, core.DefaultAlertThresholds)

	rp, err := rops.RegisterReorderPoint(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, core.ReorderAdequate, rp.Status)
	assert.Zero(t, rp.ROP)

	_, err = rops.RegisterReorderPoint(ctx, 2, 99)
	var nf *core.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
