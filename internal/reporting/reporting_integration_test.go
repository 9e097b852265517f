package reporting_test

import (
	"context"
	"os"
	"testing"

	"procurement-engine/internal/core"
	"procurement-engine/internal/db"
	"procurement-engine/internal/reporting"
	"procurement-engine/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*pgxpool.Pool, *reporting.Service, context.Context) {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(ctx, pool, migrations.FS, t.Logf))

	rdb, err := sqlx.ConnectContext(ctx, "postgres", dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE reorder_points, movements, reservations, order_items, orders, transfers,
		               quotations, stock_balances, stocks, product_suppliers, products, suppliers
		RESTART IDENTITY CASCADE;

		INSERT INTO suppliers (id, name, lead_time_days, base_cost) VALUES (1, 'Alpha', 5, 10.00);
		INSERT INTO products (id, code, name) VALUES (1, 'W-1', 'Widget'), (2, 'G-1', 'Gadget');
		INSERT INTO product_suppliers (product_id, supplier_id) VALUES (1, 1), (2, 1);
		INSERT INTO stocks (id, name, capacity) VALUES (1, 'Main', 100), (2, 'Annex', 100);
		INSERT INTO quotations (product_id, supplier_id, price, lead_time_days, validity, approval) VALUES
		(1, 1, 10.00, 5, 'active', 'approved'),
		(2, 1,  4.00, 5, 'active', 'approved');
	`)
	require.NoError(t, err)
	return pool, reporting.NewService(rdb), ctx
}

func TestReporting_EmptyResultsAreNotNil(t *testing.T) {
	_, svc, ctx := setupTestDB(t)

	res, err := svc.SearchReservations(ctx, reporting.ReservationFilter{})
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)

	mv, err := svc.SearchMovements(ctx, reporting.MovementFilter{})
	require.NoError(t, err)
	assert.NotNil(t, mv)

	tr, err := svc.SearchTransfers(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, tr)

	totals, err := svc.TransferTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, &reporting.TransferTotals{}, totals)
}

func TestReporting_MovementsAndTransfers(t *testing.T) {
	pool, svc, ctx := setupTestDB(t)
	ledger := core.NewLedgerService(pool)

	_, err := ledger.RegisterMovement(ctx, core.MovementRequest{
		ProductID: 1, StockID: 1, Quantity: 20, Type: core.MovementEntry, Responsible: "ana",
	})
	require.NoError(t, err)
	_, err = ledger.RegisterTransfer(ctx, core.TransferRequest{
		ProductID: 1, OriginStockID: 1, DestinationStockID: 2, Quantity: 8, Responsible: "bruno",
	})
	require.NoError(t, err)

	totals, err := svc.MovementTotals(ctx, reporting.MovementFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, totals.Total)
	assert.Equal(t, 2, totals.Entries)
	assert.Equal(t, 1, totals.Exits)
	assert.Equal(t, 28, totals.EntryUnits)
	assert.Equal(t, 8, totals.ExitUnits)

	exits, err := svc.SearchMovements(ctx, reporting.MovementFilter{Type: core.MovementExit})
	require.NoError(t, err)
	require.Len(t, exits, 1)
	assert.Equal(t, "Main", exits[0].StockName)
	require.NotNil(t, exits[0].TransferID)

	got, err := svc.GetMovement(ctx, exits[0].ID)
	require.NoError(t, err)
	assert.Equal(t, exits[0].ID, got.ID)

	transfers, err := svc.SearchTransfers(ctx, "annex")
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "Widget", transfers[0].ProductName)
	assert.Equal(t, "Annex", transfers[0].DestinationStockName)

	none, err := svc.SearchTransfers(ctx, "nowhere")
	require.NoError(t, err)
	assert.Empty(t, none)

	tt, err := svc.TransferTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, &reporting.TransferTotals{Count: 1, UnitsMoved: 8, DistinctProducts: 1}, tt)
}

func TestReporting_Reservations(t *testing.T) {
	pool, svc, ctx := setupTestDB(t)
	orders := core.NewOrderService(pool)

	created, err := orders.CreateAutomaticOrder(ctx, 1, []core.ItemRequest{
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 4},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)

	_, err = orders.CancelOrder(ctx, created[0].ID)
	require.NoError(t, err)
	_, err = orders.CreateAutomaticOrder(ctx, 1, []core.ItemRequest{{ProductID: 2, Quantity: 6}})
	require.NoError(t, err)

	totals, err := svc.ReservationTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, &reporting.ReservationTotals{Total: 3, Active: 1, Released: 2, ActiveQuantity: 6}, totals)

	released, err := svc.SearchReservations(ctx, reporting.ReservationFilter{Status: core.ReservationReleased})
	require.NoError(t, err)
	require.Len(t, released, 2)
	require.NotNil(t, released[0].ReleaseType)
	assert.Equal(t, core.ReleaseCancelled, *released[0].ReleaseType)

	gadgets, err := svc.SearchReservations(ctx, reporting.ReservationFilter{Query: "gadg"})
	require.NoError(t, err)
	assert.Len(t, gadgets, 2)
}
