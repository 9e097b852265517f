// restore-seed loads a small demo catalog: suppliers, products, stocks and
// their links, then opening balances and a few weeks of consumption so that
// quotations, reorder points and alerts have something to show.
//
// Usage: go run ./cmd/restore-seed
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"procurement-engine/internal/config"
	"procurement-engine/internal/core"
	"procurement-engine/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadEnv()
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	if err := restoreCatalog(ctx, pool); err != nil {
		log.Fatalf("Failed to restore catalog: %v", err)
	}

	var balances int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM stock_balances").Scan(&balances); err != nil {
		log.Fatalf("Failed to count balances: %v", err)
	}
	if balances == 0 {
		log.Println("Registering opening balances and consumption...")
		if err := seedMovements(ctx, core.NewLedgerService(pool)); err != nil {
			log.Fatalf("Failed to seed movements: %v", err)
		}
	} else {
		log.Println("Balances already present, skipping movements.")
	}

	q, err := core.NewQuotationService(pool).SyncQuotations(ctx)
	if err != nil {
		log.Fatalf("Failed to sync quotations: %v", err)
	}
	log.Printf("Quotations: %d created, %d updated, %d skipped", q.Created, q.Updated, q.Skipped)

	thresholds := core.AlertThresholds{CriticalPercent: cfg.Alerts.CriticalPercent, HighPercent: cfg.Alerts.HighPercent}
	r, err := core.NewReorderPointService(pool, thresholds).SyncReorderPoints(ctx)
	if err != nil {
		log.Fatalf("Failed to sync reorder points: %v", err)
	}
	log.Printf("Reorder points: %d pairs, %d inadequate", r.Pairs, r.Inadequate)

	log.Println("Seed data restored successfully.")
}

func restoreCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	steps := []struct {
		name string
		sql  string
	}{
		{"suppliers", `
			INSERT INTO suppliers (id, name, tax_id, contact, lead_time_days, base_cost, status)
			VALUES
			  (1, 'Acme Industrial',   '11.111.111/0001-11', 'sales@acme.example',    5, 10.00, 'active'),
			  (2, 'Northwind Traders', '22.222.222/0001-22', 'orders@northwind.example', 10, 8.50, 'active'),
			  (3, 'Globex Supply',     '33.333.333/0001-33', 'buy@globex.example',    3, 12.75, 'active')
			ON CONFLICT (id) DO UPDATE
			  SET name = EXCLUDED.name,
			      lead_time_days = EXCLUDED.lead_time_days,
			      base_cost = EXCLUDED.base_cost,
			      status = EXCLUDED.status;
			SELECT setval('suppliers_id_seq', GREATEST((SELECT MAX(id) FROM suppliers), 1));`},
		{"products", `
			INSERT INTO products (id, code, name, weight, perishable)
			VALUES
			  (1, 'WID-001', 'Widget', 0.250, false),
			  (2, 'GAD-001', 'Gadget', 1.100, false),
			  (3, 'MLK-001', 'Milk 1L', 1.030, true)
			ON CONFLICT (id) DO UPDATE
			  SET code = EXCLUDED.code, name = EXCLUDED.name;
			SELECT setval('products_id_seq', GREATEST((SELECT MAX(id) FROM products), 1));`},
		{"product suppliers", `
			INSERT INTO product_suppliers (product_id, supplier_id)
			VALUES (1, 1), (1, 2), (2, 1), (2, 3), (3, 2), (3, 3)
			ON CONFLICT DO NOTHING;`},
		{"stocks", `
			INSERT INTO stocks (id, name, address, capacity)
			VALUES
			  (1, 'Main Warehouse', 'Rua Principal 100', 1000),
			  (2, 'Downtown Store', 'Av. Central 42',     200)
			ON CONFLICT (id) DO UPDATE
			  SET name = EXCLUDED.name, capacity = EXCLUDED.capacity;
			SELECT setval('stocks_id_seq', GREATEST((SELECT MAX(id) FROM stocks), 1));`},
	}
	for _, s := range steps {
		log.Printf("Restoring %s...", s.name)
		if _, err := tx.Exec(ctx, s.sql); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return tx.Commit(ctx)
}

// seedMovements goes through the ledger so balances, stock totals and
// reorder point mirrors stay consistent.
func seedMovements(ctx context.Context, ledger core.LedgerService) error {
	opening := []core.MovementRequest{
		{ProductID: 1, StockID: 1, Quantity: 300, Type: core.MovementEntry},
		{ProductID: 2, StockID: 1, Quantity: 120, Type: core.MovementEntry},
		{ProductID: 3, StockID: 2, Quantity: 60, Type: core.MovementEntry},
	}
	for _, m := range opening {
		m.Reason = "Opening balance"
		m.Responsible = "seed"
		if _, err := ledger.RegisterMovement(ctx, m); err != nil {
			return err
		}
	}

	// Daily consumption. Exits are timestamped now; the reorder point
	// window only needs them inside the last 90 days.
	consumption := []core.MovementRequest{
		{ProductID: 1, StockID: 1, Quantity: 40, Type: core.MovementExit},
		{ProductID: 1, StockID: 1, Quantity: 55, Type: core.MovementExit},
		{ProductID: 2, StockID: 1, Quantity: 30, Type: core.MovementExit},
		{ProductID: 3, StockID: 2, Quantity: 45, Type: core.MovementExit},
	}
	for _, m := range consumption {
		m.Reason = "Sales " + time.Now().Format("2006-01-02")
		m.Responsible = "seed"
		if _, err := ledger.RegisterMovement(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
