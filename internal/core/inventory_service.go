package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InventoryService exposes stock capacity figures and product balances.
type InventoryService interface {
	// Standalone operations (manage their own transactions).
	ListStocks(ctx context.Context) ([]StockLevel, error)
	GetStock(ctx context.Context, id int) (*StockLevel, error)
	GetBalance(ctx context.Context, stockID, productID int) (int, error)
}

type inventoryService struct {
	pool *pgxpool.Pool
}

func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

// ── Standalone operations ─────────────────────────────────────────────────────

func (s *inventoryService) ListStocks(ctx context.Context) ([]StockLevel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT st.id, st.name, st.address, st.capacity, st.current_quantity, st.version, st.status, st.created_at,
		       COALESCE(r.reserved, 0)
		FROM stocks st
		LEFT JOIN (
			SELECT stock_id, SUM(quantity) AS reserved
			FROM reservations WHERE status = 'active'
			GROUP BY stock_id
		) r ON r.stock_id = st.id
		ORDER BY st.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	levels := []StockLevel{}
	for rows.Next() {
		var st Stock
		var reserved int
		if err := rows.Scan(&st.ID, &st.Name, &st.Address, &st.Capacity, &st.CurrentQuantity, &st.Version,
			&st.Status, &st.CreatedAt, &reserved); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		levels = append(levels, newStockLevel(st, reserved))
	}
	return levels, rows.Err()
}

func (s *inventoryService) GetStock(ctx context.Context, id int) (*StockLevel, error) {
	st, err := scanStock(s.pool.QueryRow(ctx, stockSelect+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "stock", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch stock %d: %w", id, err)
	}
	reserved, err := inboundReservedTx(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	level := newStockLevel(st, reserved)
	return &level, nil
}

func (s *inventoryService) GetBalance(ctx context.Context, stockID, productID int) (int, error) {
	var qty int
	err := s.pool.QueryRow(ctx,
		"SELECT quantity FROM stock_balances WHERE stock_id = $1 AND product_id = $2",
		stockID, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to fetch balance: %w", err)
	}
	return qty, nil
}

// ── TX-scoped helpers ─────────────────────────────────────────────────────────
// Every read-then-write of a stock's quantity goes through lockStockTx or
// lockStocksTx first, which serializes writers per stock row.

const stockSelect = `
	SELECT id, name, address, capacity, current_quantity, version, status, created_at
	FROM stocks`

func scanStock(row pgx.Row) (Stock, error) {
	var st Stock
	err := row.Scan(&st.ID, &st.Name, &st.Address, &st.Capacity, &st.CurrentQuantity, &st.Version,
		&st.Status, &st.CreatedAt)
	return st, err
}

func lockStockTx(ctx context.Context, tx pgx.Tx, id int) (*Stock, error) {
	st, err := scanStock(tx.QueryRow(ctx, stockSelect+" WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "stock", ID: id}
		}
		return nil, fmt.Errorf("failed to lock stock %d: %w", id, mapPgError(err, "stock", id))
	}
	return &st, nil
}

// lockStocksTx locks several stocks in ascending id order so two transactions
// locking the same pair can never deadlock.
func lockStocksTx(ctx context.Context, tx pgx.Tx, ids ...int) (map[int]*Stock, error) {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)

	out := make(map[int]*Stock, len(sorted))
	for _, id := range sorted {
		if _, done := out[id]; done {
			continue
		}
		st, err := lockStockTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		out[id] = st
	}
	return out, nil
}

func lockBalanceTx(ctx context.Context, tx pgx.Tx, stockID, productID int) (int, error) {
	var qty int
	err := tx.QueryRow(ctx, `
		SELECT quantity FROM stock_balances WHERE stock_id = $1 AND product_id = $2 FOR UPDATE
	`, stockID, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to lock balance: %w", err)
	}
	return qty, nil
}

// applyMovementTx checks and applies one movement against a stock that the
// caller has already locked. It updates the product balance, the stock counter
// (guarded by its version), the reorder point mirror, and appends the ledger row.
// st is updated in place.
func applyMovementTx(ctx context.Context, tx pgx.Tx, st *Stock, m Movement) (Movement, error) {
	balance, err := lockBalanceTx(ctx, tx, st.ID, m.ProductID)
	if err != nil {
		return Movement{}, err
	}

	newBalance := balance
	newQuantity := st.CurrentQuantity
	switch m.Type {
	case MovementExit:
		if m.Quantity > balance {
			return Movement{}, &InsufficientStockError{
				StockID: st.ID, ProductID: m.ProductID, Requested: m.Quantity, Available: balance,
			}
		}
		newBalance -= m.Quantity
		newQuantity -= m.Quantity
	case MovementEntry:
		if m.Quantity > st.AvailableCapacity() {
			return Movement{}, capacityErrorTx(ctx, tx, st.ID, m.Quantity, st.AvailableCapacity())
		}
		newBalance += m.Quantity
		newQuantity += m.Quantity
	default:
		return Movement{}, &ValidationError{Field: "type", Message: "must be entry or exit"}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO stock_balances (stock_id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (stock_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
	`, st.ID, m.ProductID, newBalance); err != nil {
		return Movement{}, fmt.Errorf("failed to update balance: %w", mapPgError(err, "stock", st.ID))
	}

	var version int64
	err = tx.QueryRow(ctx, `
		UPDATE stocks SET current_quantity = $2, version = version + 1
		WHERE id = $1 AND version = $3
		RETURNING version
	`, st.ID, newQuantity, st.Version).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movement{}, &ConflictError{Entity: "stock", ID: st.ID, Reason: "stock changed concurrently, retry"}
		}
		return Movement{}, fmt.Errorf("failed to update stock %d: %w", st.ID, mapPgError(err, "stock", st.ID))
	}
	st.CurrentQuantity = newQuantity
	st.Version = version

	m.StockID = st.ID
	err = tx.QueryRow(ctx, `
		INSERT INTO movements (product_id, stock_id, quantity, type, reason, responsible, transfer_id, order_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, occurred_at
	`, m.ProductID, m.StockID, m.Quantity, m.Type, m.Reason, m.Responsible, m.TransferID, m.OrderID).
		Scan(&m.ID, &m.OccurredAt)
	if err != nil {
		return Movement{}, fmt.Errorf("failed to insert movement: %w", err)
	}

	if err := refreshReorderBalanceTx(ctx, tx, st.ID, m.ProductID, newBalance); err != nil {
		return Movement{}, err
	}
	return m, nil
}
