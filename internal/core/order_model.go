package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderCreated   OrderStatus = "created"
	OrderSent      OrderStatus = "sent"
	OrderInTransit OrderStatus = "in_transit"
	OrderReceived  OrderStatus = "received"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is a purchase order to one supplier, delivered to one stock.
type Order struct {
	ID           int         `json:"id"`
	SupplierID   int         `json:"supplier_id"`
	SupplierName string      `json:"supplier_name"`
	StockID      int         `json:"stock_id"`
	StockName    string      `json:"stock_name"`
	Items        []OrderItem `json:"items"`
	TotalValue   Money       `json:"total_value"`
	OrderDate    time.Time   `json:"order_date"`
	ExpectedDate time.Time   `json:"expected_date"`
	Status       OrderStatus `json:"status"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID          int    `json:"id"`
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unit_price"`
}

// Subtotal is unit price × quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderTotal sums item subtotals, rounded to cents.
func OrderTotal(items []OrderItem) Money {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return NewMoney(total)
}

// ExpectedDate adds the supplier lead time in whole days to the order date.
func ExpectedDate(orderDate time.Time, leadTimeDays int) time.Time {
	return orderDate.AddDate(0, 0, leadTimeDays)
}

// ItemRequest is one requested product line of an automatic order.
type ItemRequest struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// OrderFilter narrows SearchOrders. Zero values mean "any".
type OrderFilter struct {
	Status     OrderStatus
	SupplierID int
	StockID    int
}

// OrderService owns the purchase order lifecycle and automatic order creation.
type OrderService interface {
	// CreateAutomaticOrder splits the requested items by the supplier of their best quotation and
	// creates one order per supplier plus one active reservation per item. The destination stock is
	// locked for the duration, and nothing is written unless every item is quoted and the stock can
	// take the full quantity.
	CreateAutomaticOrder(ctx context.Context, stockID int, items []ItemRequest) ([]Order, error)

	// ChangeOrderStatus applies one state machine transition. Transitions into received or
	// cancelled carry the same side effects as ConfirmReceipt and CancelOrder.
	ChangeOrderStatus(ctx context.Context, id int, to OrderStatus) (*Order, error)

	// ConfirmReceipt credits the destination stock with every item and releases the order's
	// reservations as received. Confirming an already received order changes nothing.
	ConfirmReceipt(ctx context.Context, id int) (*Order, error)

	// CancelOrder releases the order's reservations as cancelled. Cancelling an already
	// cancelled order changes nothing.
	CancelOrder(ctx context.Context, id int) (*Order, error)

	GetOrder(ctx context.Context, id int) (*Order, error)
	SearchOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
}
