package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	receiptResponsible = "system:order-receipt"
)

type orderService struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewOrderService(pool *pgxpool.Pool) OrderService {
	return &orderService{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

// ── Automatic orders ─────────────────────────────────────────────────────────

func (s *orderService) CreateAutomaticOrder(ctx context.Context, stockID int, items []ItemRequest) ([]Order, error) {
	if stockID <= 0 {
		return nil, &ValidationError{Field: "stock_id", Message: "must be positive"}
	}
	items, err := NormalizeItems(items)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The stock row lock serializes every planner writing reservations against
	// this stock, so the capacity read below stays valid until commit.
	st, err := lockStockTx(ctx, tx, stockID)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return nil, &ValidationError{Field: "stock_id", Message: fmt.Sprintf("stock %d does not exist", stockID)}
		}
		return nil, err
	}
	if st.Status != StatusActive {
		return nil, &ValidationError{Field: "stock_id", Message: fmt.Sprintf("stock %d is inactive", stockID)}
	}

	inbound, err := inboundReservedTx(ctx, tx, stockID)
	if err != nil {
		return nil, err
	}
	productIDs := make([]int, len(items))
	for i, it := range items {
		productIDs[i] = it.ProductID
	}
	quotations, err := quotationsForProductsTx(ctx, tx, productIDs)
	if err != nil {
		return nil, err
	}

	plan, err := PlanAutomaticOrder(stockID, items, quotations, newStockLevel(*st, inbound).PlanningCapacity())
	if err != nil {
		var capErr *CapacityExceededError
		if errors.As(err, &capErr) {
			capErr.InboundReserved = inbound
		}
		return nil, err
	}

	productNames, err := productNamesTx(ctx, tx, productIDs)
	if err != nil {
		return nil, err
	}

	orderDate := s.now().Truncate(time.Microsecond)
	orders := make([]Order, 0, len(plan))
	for _, p := range plan {
		o, err := s.insertPlannedOrderTx(ctx, tx, st, p, productNames, orderDate)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit automatic order: %w", mapPgError(err, "stock", stockID))
	}
	return orders, nil
}

func (s *orderService) insertPlannedOrderTx(ctx context.Context, tx pgx.Tx, st *Stock, p PlannedOrder, productNames map[int]string, orderDate time.Time) (Order, error) {
	var leadTime int
	err := tx.QueryRow(ctx, "SELECT lead_time_days FROM suppliers WHERE id = $1", p.SupplierID).Scan(&leadTime)
	if err != nil {
		return Order{}, fmt.Errorf("failed to fetch supplier %d: %w", p.SupplierID, err)
	}

	o := Order{
		SupplierID:   p.SupplierID,
		SupplierName: p.SupplierName,
		StockID:      st.ID,
		StockName:    st.Name,
		TotalValue:   p.Total,
		OrderDate:    orderDate,
		ExpectedDate: ExpectedDate(orderDate, leadTime),
		Status:       OrderCreated,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (supplier_id, stock_id, total_value, order_date, expected_date, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $4)
		RETURNING id, updated_at
	`, o.SupplierID, o.StockID, o.TotalValue, o.OrderDate, o.ExpectedDate, o.Status).Scan(&o.ID, &o.UpdatedAt)
	if err != nil {
		return Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	o.Items = make([]OrderItem, 0, len(p.Items))
	for _, pi := range p.Items {
		item := OrderItem{
			ProductID:   pi.ProductID,
			ProductName: productNames[pi.ProductID],
			Quantity:    pi.Quantity,
			UnitPrice:   pi.UnitPrice,
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, o.ID, item.ProductID, item.Quantity, item.UnitPrice).Scan(&item.ID)
		if err != nil {
			return Order{}, fmt.Errorf("failed to insert item for product %d: %w", item.ProductID, err)
		}
		if _, err := reserveItemTx(ctx, tx, o.ID, st.ID, item); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, nil
}

func productNamesTx(ctx context.Context, q querier, ids []int) (map[int]string, error) {
	rows, err := q.Query(ctx, "SELECT id, name FROM products WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query product names: %w", err)
	}
	defer rows.Close()

	names := make(map[int]string, len(ids))
	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan product name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func (s *orderService) ChangeOrderStatus(ctx context.Context, id int, to OrderStatus) (*Order, error) {
	if _, err := ParseOrderStatus(string(to)); err != nil {
		return nil, err
	}
	switch to {
	case OrderReceived:
		return s.ConfirmReceipt(ctx, id)
	case OrderCancelled:
		return s.CancelOrder(ctx, id)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := lockOrderTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(id, o.Status, to); err != nil {
		return nil, err
	}
	if err := setOrderStatusTx(ctx, tx, id, to); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit status change: %w", mapPgError(err, "order", id))
	}
	return s.GetOrder(ctx, id)
}

func (s *orderService) ConfirmReceipt(ctx context.Context, id int) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := lockOrderTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == OrderReceived {
		// Release the row lock and connection before reading back through the pool.
		_ = tx.Rollback(ctx)
		return s.GetOrder(ctx, id)
	}
	if err := checkTransition(id, o.Status, OrderReceived); err != nil {
		return nil, err
	}

	items, err := orderItemsQ(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	st, err := lockStockTx(ctx, tx, o.StockID)
	if err != nil {
		return nil, err
	}
	orderID := id
	for _, it := range items {
		_, err := applyMovementTx(ctx, tx, st, Movement{
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			Type:        MovementEntry,
			Reason:      fmt.Sprintf("Order #%d receipt", id),
			Responsible: receiptResponsible,
			OrderID:     &orderID,
		})
		if err != nil {
			return nil, err
		}
	}

	if _, err := releaseReservationsTx(ctx, tx, id, ReleaseReceived); err != nil {
		return nil, err
	}
	if err := setOrderStatusTx(ctx, tx, id, OrderReceived); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit receipt: %w", mapPgError(err, "order", id))
	}
	return s.GetOrder(ctx, id)
}

func (s *orderService) CancelOrder(ctx context.Context, id int) (*Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	o, err := lockOrderTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == OrderCancelled {
		_ = tx.Rollback(ctx)
		return s.GetOrder(ctx, id)
	}
	if err := checkTransition(id, o.Status, OrderCancelled); err != nil {
		return nil, err
	}
	if _, err := releaseReservationsTx(ctx, tx, id, ReleaseCancelled); err != nil {
		return nil, err
	}
	if err := setOrderStatusTx(ctx, tx, id, OrderCancelled); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", mapPgError(err, "order", id))
	}
	return s.GetOrder(ctx, id)
}

type lockedOrder struct {
	StockID int
	Status  OrderStatus
}

func lockOrderTx(ctx context.Context, tx pgx.Tx, id int) (*lockedOrder, error) {
	var o lockedOrder
	err := tx.QueryRow(ctx, "SELECT stock_id, status FROM orders WHERE id = $1 FOR UPDATE", id).
		Scan(&o.StockID, &o.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "order", ID: id}
		}
		return nil, fmt.Errorf("failed to lock order %d: %w", id, mapPgError(err, "order", id))
	}
	return &o, nil
}

func setOrderStatusTx(ctx context.Context, tx pgx.Tx, id int, status OrderStatus) error {
	if _, err := tx.Exec(ctx, "UPDATE orders SET status = $2, updated_at = now() WHERE id = $1", id, status); err != nil {
		return fmt.Errorf("failed to update order %d: %w", id, mapPgError(err, "order", id))
	}
	return nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

const orderSelect = `
	SELECT o.id, o.supplier_id, s.name, o.stock_id, st.name, o.total_value,
	       o.order_date, o.expected_date, o.status, o.updated_at
	FROM orders o
	JOIN suppliers s ON s.id = o.supplier_id
	JOIN stocks st   ON st.id = o.stock_id`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.SupplierID, &o.SupplierName, &o.StockID, &o.StockName, &o.TotalValue,
		&o.OrderDate, &o.ExpectedDate, &o.Status, &o.UpdatedAt)
	return o, err
}

func (s *orderService) GetOrder(ctx context.Context, id int) (*Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, orderSelect+" WHERE o.id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "order", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", id, err)
	}
	o.Items, err = orderItemsQ(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *orderService) SearchOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	var where []string
	var args []any
	if filter.Status != "" {
		if _, err := ParseOrderStatus(string(filter.Status)); err != nil {
			return nil, err
		}
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("o.status = $%d", len(args)))
	}
	if filter.SupplierID > 0 {
		args = append(args, filter.SupplierID)
		where = append(where, fmt.Sprintf("o.supplier_id = $%d", len(args)))
	}
	if filter.StockID > 0 {
		args = append(args, filter.StockID)
		where = append(where, fmt.Sprintf("o.stock_id = $%d", len(args)))
	}
	sql := orderSelect
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY o.order_date DESC, o.id DESC"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	// Items are fetched after the order cursor is closed; one connection
	// cannot interleave two open result sets.
	for i := range orders {
		orders[i].Items, err = orderItemsQ(ctx, s.pool, orders[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func orderItemsQ(ctx context.Context, q querier, orderID int) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT oi.id, oi.product_id, p.name, oi.quantity, oi.unit_price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items of order %d: %w", orderID, err)
	}
	defer rows.Close()

	items := []OrderItem{}
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
