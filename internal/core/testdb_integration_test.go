package core_test

import (
	"context"
	"os"
	"testing"

	"procurement-engine/internal/db"
	"procurement-engine/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to TEST_DATABASE_URL, applies the schema and seeds a
// small catalog:
//
//	suppliers  1 Alpha (lead 5d, base 10.00)   2 Beta (lead 10d, base 8.00)   3 Gamma (inactive)
//	products   1 Widget (Alpha, Beta)           2 Gadget (Alpha)              3 Gizmo (no quotation)
//	stocks     1 Main (cap 100)                 2 Annex (cap 50)              3 Closed (inactive)
//
// Widget is cheapest at Beta (8.00), Gadget only quoted by Alpha (12.00).
func setupTestDB(t *testing.T) (*pgxpool.Pool, context.Context) {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "connect to test database")
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool, migrations.FS, t.Logf))

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE reorder_points, movements, reservations, order_items, orders, transfers,
		               quotations, stock_balances, stocks, product_suppliers, products, suppliers
		RESTART IDENTITY CASCADE;

		INSERT INTO suppliers (id, name, tax_id, lead_time_days, base_cost, status) VALUES
		(1, 'Alpha', '11.111.111/0001-11', 5,  10.00, 'active'),
		(2, 'Beta',  '22.222.222/0001-22', 10,  8.00, 'active'),
		(3, 'Gamma', '33.333.333/0001-33', 2,   1.00, 'inactive');

		INSERT INTO products (id, code, name) VALUES
		(1, 'W-1', 'Widget'),
		(2, 'G-1', 'Gadget'),
		(3, 'Z-1', 'Gizmo');

		INSERT INTO product_suppliers (product_id, supplier_id) VALUES
		(1, 1), (1, 2), (2, 1), (3, 3);

		INSERT INTO stocks (id, name, capacity, status) VALUES
		(1, 'Main',   100, 'active'),
		(2, 'Annex',   50, 'active'),
		(3, 'Closed', 100, 'inactive');

		INSERT INTO quotations (product_id, supplier_id, price, lead_time_days, validity, approval) VALUES
		(1, 1, 10.00, 5,  'active', 'approved'),
		(1, 2,  8.00, 10, 'active', 'approved'),
		(2, 1, 12.00, 5,  'active', 'approved');

		SELECT setval(pg_get_serial_sequence('suppliers', 'id'), 3);
		SELECT setval(pg_get_serial_sequence('products', 'id'), 3);
		SELECT setval(pg_get_serial_sequence('stocks', 'id'), 3);
	`)
	require.NoError(t, err, "seed test database")
	return pool, ctx
}

func countRows(t *testing.T, ctx context.Context, pool *pgxpool.Pool, sql string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(ctx, sql, args...).Scan(&n))
	return n
}

func stockQuantity(t *testing.T, ctx context.Context, pool *pgxpool.Pool, stockID int) int {
	t.Helper()
	return countRows(t, ctx, pool, "SELECT current_quantity FROM stocks WHERE id = $1", stockID)
}
