package app

import (
	"context"

	"procurement-engine/internal/core"
	"procurement-engine/internal/reporting"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no display logic of any kind.
type ApplicationService interface {
	// Health pings the write-side and read-side databases.
	Health(ctx context.Context) error

	// ListStocks returns every stock with capacity, occupancy and inbound reservations.
	ListStocks(ctx context.Context) ([]core.StockLevel, error)
	// GetBalance returns a product's quantity in a stock; 0 when it never held any.
	GetBalance(ctx context.Context, stockID, productID int) (*StockBalance, error)
	ListSuppliers(ctx context.Context) ([]core.Supplier, error)
	GetSupplier(ctx context.Context, id int) (*core.Supplier, error)
	ListProducts(ctx context.Context) ([]core.Product, error)
	GetProduct(ctx context.Context, id int) (*core.Product, error)

	// SearchQuotations returns all quotations grouped by product, each group
	// flagging its best quotation under the given strategy ("" means price).
	SearchQuotations(ctx context.Context, strategy string) ([]core.ProductQuotations, error)
	ApproveQuotation(ctx context.Context, id int) (*core.Quotation, error)
	UnapproveQuotation(ctx context.Context, id int) (*core.Quotation, error)
	// SyncQuotations refreshes quotations from supplier base costs. Only one
	// synchronization runs at a time; a concurrent call gets a ConflictError.
	SyncQuotations(ctx context.Context) (*core.QuotationSyncResult, error)

	RegisterReorderPoint(ctx context.Context, req RegisterReorderPointRequest) (*core.ReorderPoint, error)
	// SyncReorderPoints recomputes every monitored pair and notifies alerts
	// that became critical during the run.
	SyncReorderPoints(ctx context.Context) (*ReorderSyncResult, error)
	SearchReorderPoints(ctx context.Context, filter core.ReorderPointFilter) ([]core.ReorderPoint, error)
	ReorderPointTotals(ctx context.Context) (*core.ReorderPointTotals, error)
	// SearchAlerts lists current alerts; level "" means all levels.
	SearchAlerts(ctx context.Context, level string) ([]core.Alert, error)
	AlertTotals(ctx context.Context) (*core.AlertTotals, error)

	// CreateAutomaticOrder plans and creates one order per supplier, then
	// publishes an order.created event for each.
	CreateAutomaticOrder(ctx context.Context, req AutomaticOrderRequest) (*AutomaticOrderResult, error)
	ChangeOrderStatus(ctx context.Context, id int, status string) (*core.Order, error)
	ConfirmReceipt(ctx context.Context, id int) (*core.Order, error)
	CancelOrder(ctx context.Context, id int) (*core.Order, error)
	GetOrder(ctx context.Context, id int) (*core.Order, error)
	SearchOrders(ctx context.Context, filter core.OrderFilter) ([]core.Order, error)

	SearchReservations(ctx context.Context, filter reporting.ReservationFilter) ([]reporting.ReservationView, error)
	ReservationTotals(ctx context.Context) (*reporting.ReservationTotals, error)

	RegisterMovement(ctx context.Context, req core.MovementRequest) (*core.Movement, error)
	GetMovement(ctx context.Context, id int) (*reporting.MovementView, error)
	SearchMovements(ctx context.Context, filter reporting.MovementFilter) ([]reporting.MovementView, error)
	MovementTotals(ctx context.Context, filter reporting.MovementFilter) (*reporting.MovementTotals, error)

	RegisterTransfer(ctx context.Context, req core.TransferRequest) (*core.Transfer, error)
	SearchTransfers(ctx context.Context, query string) ([]reporting.TransferView, error)
	TransferTotals(ctx context.Context) (*reporting.TransferTotals, error)
}
