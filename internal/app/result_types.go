package app

import "procurement-engine/internal/core"

// AutomaticOrderResult is returned by CreateAutomaticOrder.
type AutomaticOrderResult struct {
	Orders     []core.Order `json:"orders"`
	TotalValue core.Money   `json:"total_value"`
	Quantity   int          `json:"quantity"`
}

// ReorderSyncResult is returned by SyncReorderPoints.
type ReorderSyncResult struct {
	core.ReorderSyncResult
	NewCritical int `json:"new_critical"`
}

// StockBalance is one product's quantity in one stock.
type StockBalance struct {
	StockID   int `json:"stock_id"`
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}
