package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Reservations are only ever written inside an order transaction, so this
// file holds TX-scoped helpers rather than a standalone service.

// reserveItemTx creates the active reservation for one freshly inserted order item.
func reserveItemTx(ctx context.Context, tx pgx.Tx, orderID, stockID int, item OrderItem) (Reservation, error) {
	r := Reservation{
		OrderID:     orderID,
		OrderItemID: item.ID,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		StockID:     stockID,
		Quantity:    item.Quantity,
		Status:      ReservationActive,
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO reservations (order_id, order_item_id, product_id, stock_id, quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, reserved_at
	`, orderID, item.ID, item.ProductID, stockID, item.Quantity).Scan(&r.ID, &r.ReservedAt)
	if err != nil {
		return Reservation{}, fmt.Errorf("failed to reserve item %d of order %d: %w", item.ID, orderID, err)
	}
	return r, nil
}

// releaseReservationsTx releases every still-active reservation of an order.
// Already released rows are left untouched, so a repeated call releases nothing.
func releaseReservationsTx(ctx context.Context, tx pgx.Tx, orderID int, releaseType ReleaseType) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE reservations
		SET status = 'released', release_type = $2, released_at = now()
		WHERE order_id = $1 AND status = 'active'
	`, orderID, releaseType)
	if err != nil {
		return 0, fmt.Errorf("failed to release reservations of order %d: %w", orderID, err)
	}
	return tag.RowsAffected(), nil
}

// capacityErrorTx builds a CapacityExceededError that also carries the
// inbound reservations of the stock.
func capacityErrorTx(ctx context.Context, q querier, stockID, requested, available int) error {
	reserved, err := inboundReservedTx(ctx, q, stockID)
	if err != nil {
		return err
	}
	return &CapacityExceededError{
		StockID: stockID, Requested: requested, Available: available, InboundReserved: reserved,
	}
}

// inboundReservedTx sums active reservations destined for a stock.
func inboundReservedTx(ctx context.Context, q querier, stockID int) (int, error) {
	var reserved int
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM reservations WHERE stock_id = $1 AND status = 'active'
	`, stockID).Scan(&reserved)
	if err != nil {
		return 0, fmt.Errorf("failed to sum reservations for stock %d: %w", stockID, err)
	}
	return reserved, nil
}
