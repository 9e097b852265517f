package core_test

import (
	"testing"

	"procurement-engine/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventory_StockLevels(t *testing.T) {
	pool, ctx := setupTestDB(t)
	ledger := core.NewLedgerService(pool)
	inventory := core.NewInventoryService(pool)

	_, err := ledger.RegisterMovement(ctx, entry(1, 1, 25))
	require.NoError(t, err)
	_, err = core.NewOrderService(pool).CreateAutomaticOrder(ctx, 1, []core.ItemRequest{{ProductID: 1, Quantity: 15}})
	require.NoError(t, err)

	st, err := inventory.GetStock(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 25, st.CurrentQuantity)
	assert.Equal(t, 75, st.AvailableCapacity)
	assert.Equal(t, 15, st.InboundReserved)
	assert.Equal(t, 60, st.PlanningCapacity())
	assert.InDelta(t, 25.0, st.Occupancy, 0.001)

	stocks, err := inventory.ListStocks(ctx)
	require.NoError(t, err)
	require.Len(t, stocks, 3)
	assert.Equal(t, 0, stocks[1].InboundReserved)

	_, err = inventory.GetStock(ctx, 99)
	var nf *core.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestInventory_GetBalance(t *testing.T) {
	pool, ctx := setupTestDB(t)
	inventory := core.NewInventoryService(pool)

	qty, err := inventory.GetBalance(ctx, 1, 1)
	require.NoError(t, err)
	assert.Zero(t, qty)

	_, err = core.NewLedgerService(pool).RegisterMovement(ctx, entry(1, 1, 12))
	require.NoError(t, err)

	qty, err = inventory.GetBalance(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 12, qty)
}
