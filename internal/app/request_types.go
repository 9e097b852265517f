package app

import "procurement-engine/internal/core"

// AutomaticOrderRequest is the input for CreateAutomaticOrder.
type AutomaticOrderRequest struct {
	StockID int                `json:"stock_id"`
	Items   []core.ItemRequest `json:"items"`
}

// RegisterReorderPointRequest puts a (stock, product) pair under monitoring.
type RegisterReorderPointRequest struct {
	StockID   int `json:"stock_id"`
	ProductID int `json:"product_id"`
}
