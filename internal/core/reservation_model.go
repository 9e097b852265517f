package core

import "time"

type ReservationStatus string

const (
	ReservationActive   ReservationStatus = "active"
	ReservationReleased ReservationStatus = "released"
)

type ReleaseType string

const (
	ReleaseReceived  ReleaseType = "received"
	ReleaseCancelled ReleaseType = "cancelled"
)

// Reservation commits an order item's quantity to its destination stock until
// the order is received or cancelled. Release is irreversible.
type Reservation struct {
	ID          int               `json:"id"`
	OrderID     int               `json:"order_id"`
	OrderItemID int               `json:"order_item_id"`
	ProductID   int               `json:"product_id"`
	ProductName string            `json:"product_name"`
	StockID     int               `json:"stock_id"`
	Quantity    int               `json:"quantity"`
	ReservedAt  time.Time         `json:"reserved_at"`
	Status      ReservationStatus `json:"status"`
	ReleaseType *ReleaseType      `json:"release_type"`
	ReleasedAt  *time.Time        `json:"released_at"`
}
