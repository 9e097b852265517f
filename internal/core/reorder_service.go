package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type reorderPointService struct {
	pool       *pgxpool.Pool
	thresholds AlertThresholds
	now        func() time.Time
}

func NewReorderPointService(pool *pgxpool.Pool, thresholds AlertThresholds) ReorderPointService {
	return &reorderPointService{pool: pool, thresholds: thresholds, now: time.Now}
}

const reorderPointSelect = `
	SELECT rp.id, rp.stock_id, st.name, rp.product_id, p.name,
	       rp.avg_daily_consumption, rp.max_daily_consumption,
	       rp.avg_lead_time, rp.max_lead_time, rp.safety_stock, rp.rop,
	       rp.current_balance, rp.status, rp.updated_at
	FROM reorder_points rp
	JOIN stocks st  ON st.id = rp.stock_id
	JOIN products p ON p.id = rp.product_id`

func scanReorderPoint(row pgx.Row) (ReorderPoint, error) {
	var rp ReorderPoint
	err := row.Scan(&rp.ID, &rp.StockID, &rp.StockName, &rp.ProductID, &rp.ProductName,
		&rp.AvgDailyConsumption, &rp.MaxDailyConsumption,
		&rp.AvgLeadTime, &rp.MaxLeadTime, &rp.SafetyStock, &rp.ROP,
		&rp.CurrentBalance, &rp.Status, &rp.UpdatedAt)
	return rp, err
}

// ── Synchronization ───────────────────────────────────────────────────────────

func (s *reorderPointService) RegisterReorderPoint(ctx context.Context, stockID, productID int) (*ReorderPoint, error) {
	if stockID <= 0 {
		return nil, &ValidationError{Field: "stock_id", Message: "must be positive"}
	}
	if productID <= 0 {
		return nil, &ValidationError{Field: "product_id", Message: "must be positive"}
	}
	if err := ensureExists(ctx, s.pool, "stock", "stocks", stockID); err != nil {
		return nil, err
	}
	if err := ensureExists(ctx, s.pool, "product", "products", productID); err != nil {
		return nil, err
	}

	if _, err := s.syncPair(ctx, stockID, productID); err != nil {
		return nil, err
	}
	return s.get(ctx, stockID, productID)
}

func (s *reorderPointService) SyncReorderPoints(ctx context.Context) (*ReorderSyncResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT stock_id, product_id FROM stock_balances WHERE quantity > 0
		UNION
		SELECT stock_id, product_id FROM reorder_points
		ORDER BY 1, 2
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query monitored pairs: %w", err)
	}
	type pair struct{ stockID, productID int }
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.stockID, &p.productID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pairs: %w", err)
	}

	result := &ReorderSyncResult{}
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rp, changed, err := s.syncPairDetailed(ctx, p.stockID, p.productID)
		if err != nil {
			return result, err
		}
		result.Pairs++
		if changed {
			result.Changed++
		}
		if rp.Status == ReorderInadequate {
			result.Inadequate++
		}
	}
	return result, nil
}

func (s *reorderPointService) syncPair(ctx context.Context, stockID, productID int) (ReorderPoint, error) {
	rp, _, err := s.syncPairDetailed(ctx, stockID, productID)
	return rp, err
}

// syncPairDetailed recomputes one pair in its own transaction. The balance row
// is read FOR SHARE so a concurrent movement cannot slip between the read and
// the upsert.
func (s *reorderPointService) syncPairDetailed(ctx context.Context, stockID, productID int) (ReorderPoint, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ReorderPoint{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance int
	err = tx.QueryRow(ctx, `
		SELECT quantity FROM stock_balances WHERE stock_id = $1 AND product_id = $2 FOR SHARE
	`, stockID, productID).Scan(&balance)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return ReorderPoint{}, false, fmt.Errorf("failed to read balance: %w", err)
	}

	since := s.now().AddDate(0, 0, -ConsumptionWindowDays)
	daily, err := collectInts(ctx, tx, `
		SELECT SUM(quantity)
		FROM movements
		WHERE stock_id = $1 AND product_id = $2 AND type = 'exit' AND occurred_at >= $3
		GROUP BY date_trunc('day', occurred_at)
	`, stockID, productID, since)
	if err != nil {
		return ReorderPoint{}, false, fmt.Errorf("failed to read daily exits: %w", err)
	}

	leadTimes, err := collectInts(ctx, tx, `
		SELECT s.lead_time_days
		FROM product_suppliers ps
		JOIN suppliers s ON s.id = ps.supplier_id
		WHERE ps.product_id = $1 AND s.status = 'active'
	`, productID)
	if err != nil {
		return ReorderPoint{}, false, fmt.Errorf("failed to read supplier lead times: %w", err)
	}

	rp := CalculateReorderPoint(stockID, productID,
		NewConsumptionStats(daily, ConsumptionWindowDays), NewLeadTimeStats(leadTimes), balance)

	tag, err := tx.Exec(ctx, `
		INSERT INTO reorder_points (stock_id, product_id, avg_daily_consumption, max_daily_consumption,
		                            avg_lead_time, max_lead_time, safety_stock, rop, current_balance, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (stock_id, product_id) DO UPDATE SET
			avg_daily_consumption = EXCLUDED.avg_daily_consumption,
			max_daily_consumption = EXCLUDED.max_daily_consumption,
			avg_lead_time         = EXCLUDED.avg_lead_time,
			max_lead_time         = EXCLUDED.max_lead_time,
			safety_stock          = EXCLUDED.safety_stock,
			rop                   = EXCLUDED.rop,
			current_balance       = EXCLUDED.current_balance,
			status                = EXCLUDED.status,
			updated_at            = now()
		WHERE (reorder_points.avg_daily_consumption, reorder_points.max_daily_consumption,
		       reorder_points.avg_lead_time, reorder_points.max_lead_time, reorder_points.safety_stock,
		       reorder_points.rop, reorder_points.current_balance, reorder_points.status)
		      IS DISTINCT FROM
		      (EXCLUDED.avg_daily_consumption, EXCLUDED.max_daily_consumption,
		       EXCLUDED.avg_lead_time, EXCLUDED.max_lead_time, EXCLUDED.safety_stock,
		       EXCLUDED.rop, EXCLUDED.current_balance, EXCLUDED.status)
	`, stockID, productID, rp.AvgDailyConsumption, rp.MaxDailyConsumption,
		rp.AvgLeadTime, rp.MaxLeadTime, rp.SafetyStock, rp.ROP, rp.CurrentBalance, rp.Status)
	if err != nil {
		return ReorderPoint{}, false, fmt.Errorf("failed to upsert reorder point (%d, %d): %w", stockID, productID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ReorderPoint{}, false, fmt.Errorf("failed to commit reorder point: %w", err)
	}
	return rp, tag.RowsAffected() > 0, nil
}

// refreshReorderBalanceTx mirrors a new balance into the pair's reorder point,
// if the pair is monitored, and re-evaluates its status against the stored ROP.
func refreshReorderBalanceTx(ctx context.Context, tx pgx.Tx, stockID, productID, balance int) error {
	_, err := tx.Exec(ctx, `
		UPDATE reorder_points
		SET current_balance = $3,
		    status = CASE WHEN $3 < rop THEN 'inadequate' ELSE 'adequate' END,
		    updated_at = now()
		WHERE stock_id = $1 AND product_id = $2 AND current_balance <> $3
	`, stockID, productID, balance)
	if err != nil {
		return fmt.Errorf("failed to refresh reorder point (%d, %d): %w", stockID, productID, err)
	}
	return nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *reorderPointService) SearchReorderPoints(ctx context.Context, filter ReorderPointFilter) ([]ReorderPoint, error) {
	rows, err := s.pool.Query(ctx, reorderPointSelect+`
		WHERE ($1 = '' OR rp.status = $1) AND ($2 = 0 OR rp.stock_id = $2)
		ORDER BY rp.stock_id, rp.product_id
	`, string(filter.Status), filter.StockID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reorder points: %w", err)
	}
	defer rows.Close()

	points := []ReorderPoint{}
	for rows.Next() {
		rp, err := scanReorderPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reorder point: %w", err)
		}
		points = append(points, rp)
	}
	return points, rows.Err()
}

func (s *reorderPointService) ReorderPointTotals(ctx context.Context) (*ReorderPointTotals, error) {
	var t ReorderPointTotals
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'adequate'),
		       COUNT(*) FILTER (WHERE status = 'inadequate')
		FROM reorder_points
	`).Scan(&t.Monitored, &t.Adequate, &t.Inadequate)
	if err != nil {
		return nil, fmt.Errorf("failed to count reorder points: %w", err)
	}
	return &t, nil
}

func (s *reorderPointService) SearchAlerts(ctx context.Context, level *AlertLevel) ([]Alert, error) {
	points, err := s.SearchReorderPoints(ctx, ReorderPointFilter{Status: ReorderInadequate})
	if err != nil {
		return nil, err
	}
	return s.deriveAlerts(points, level), nil
}

// deriveAlerts orders by deficit, largest first, with stock and product ids as tie-breaks.
func (s *reorderPointService) deriveAlerts(points []ReorderPoint, level *AlertLevel) []Alert {
	alerts := []Alert{}
	for _, rp := range points {
		a, ok := s.thresholds.AlertFromReorderPoint(rp)
		if !ok {
			continue
		}
		if level != nil && a.Level != *level {
			continue
		}
		alerts = append(alerts, a)
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].PercentBelowROP != alerts[j].PercentBelowROP {
			return alerts[i].PercentBelowROP > alerts[j].PercentBelowROP
		}
		if alerts[i].StockID != alerts[j].StockID {
			return alerts[i].StockID < alerts[j].StockID
		}
		return alerts[i].ProductID < alerts[j].ProductID
	})
	return alerts
}

func (s *reorderPointService) AlertTotals(ctx context.Context) (*AlertTotals, error) {
	alerts, err := s.SearchAlerts(ctx, nil)
	if err != nil {
		return nil, err
	}
	return CountAlerts(alerts), nil
}

func (s *reorderPointService) AlertFor(ctx context.Context, stockID, productID int) (*Alert, error) {
	rp, err := s.get(ctx, stockID, productID)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, err
	}
	a, ok := s.thresholds.AlertFromReorderPoint(*rp)
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *reorderPointService) get(ctx context.Context, stockID, productID int) (*ReorderPoint, error) {
	rp, err := scanReorderPoint(s.pool.QueryRow(ctx, reorderPointSelect+`
		WHERE rp.stock_id = $1 AND rp.product_id = $2
	`, stockID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "reorder point for stock", ID: stockID}
		}
		return nil, fmt.Errorf("failed to fetch reorder point: %w", err)
	}
	return &rp, nil
}

// CountAlerts tallies alerts per level.
func CountAlerts(alerts []Alert) *AlertTotals {
	t := &AlertTotals{}
	for _, a := range alerts {
		switch a.Level {
		case AlertCritical:
			t.Critical++
		case AlertHigh:
			t.High++
		case AlertMedium:
			t.Medium++
		}
	}
	return t
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func collectInts(ctx context.Context, q querier, sql string, args ...any) ([]int, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ensureExists returns NotFoundError when table has no row with the id.
// table is always a package constant.
func ensureExists(ctx context.Context, q querier, entity, table string, id int) error {
	var exists bool
	if err := q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+table+" WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up %s %d: %w", entity, id, err)
	}
	if !exists {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
