package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"procurement-engine/internal/core"
	"procurement-engine/internal/events"
	"procurement-engine/internal/lock"
	"procurement-engine/internal/notify"
	"procurement-engine/internal/reporting"
	"procurement-engine/internal/telemetry"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	syncLockTTL           = 10 * time.Minute
	reorderSyncLockName   = "sync:reorder-points"
	quotationSyncLockName = "sync:quotations"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Reports is the read-side query surface, satisfied by *reporting.Service.
type Reports interface {
	Ping(ctx context.Context) error
	SearchReservations(ctx context.Context, f reporting.ReservationFilter) ([]reporting.ReservationView, error)
	ReservationTotals(ctx context.Context) (*reporting.ReservationTotals, error)
	SearchMovements(ctx context.Context, f reporting.MovementFilter) ([]reporting.MovementView, error)
	GetMovement(ctx context.Context, id int) (*reporting.MovementView, error)
	MovementTotals(ctx context.Context, f reporting.MovementFilter) (*reporting.MovementTotals, error)
	SearchTransfers(ctx context.Context, query string) ([]reporting.TransferView, error)
	TransferTotals(ctx context.Context) (*reporting.TransferTotals, error)
}

// Deps wires the services an appService orchestrates.
type Deps struct {
	DB            Pinger
	Catalog       core.CatalogService
	Inventory     core.InventoryService
	Quotations    core.QuotationService
	ReorderPoints core.ReorderPointService
	Orders        core.OrderService
	Ledger        core.LedgerService
	Reports       Reports
	Events        events.Publisher
	Notifier      notify.AlertNotifier
	Locker        lock.Locker
	Log           *zap.Logger
}

type appService struct {
	Deps
	now func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
// Nil Events, Notifier, Locker and Log fall back to log-only, no-op,
// in-process and no-op implementations respectively.
func NewAppService(d Deps) ApplicationService {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Events == nil {
		d.Events = events.NewLogPublisher(d.Log)
	}
	if d.Notifier == nil {
		d.Notifier = notify.Noop{}
	}
	if d.Locker == nil {
		d.Locker = lock.NewLocalLocker()
	}
	return &appService{Deps: d, now: time.Now}
}

func (s *appService) Health(ctx context.Context) error {
	if err := s.DB.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := s.Reports.Ping(ctx); err != nil {
		return fmt.Errorf("read database: %w", err)
	}
	return nil
}

func (s *appService) ListStocks(ctx context.Context) ([]core.StockLevel, error) {
	return s.Inventory.ListStocks(ctx)
}

func (s *appService) GetBalance(ctx context.Context, stockID, productID int) (*StockBalance, error) {
	if _, err := s.Inventory.GetStock(ctx, stockID); err != nil {
		return nil, err
	}
	qty, err := s.Inventory.GetBalance(ctx, stockID, productID)
	if err != nil {
		return nil, err
	}
	return &StockBalance{StockID: stockID, ProductID: productID, Quantity: qty}, nil
}

func (s *appService) ListSuppliers(ctx context.Context) ([]core.Supplier, error) {
	return s.Catalog.ListSuppliers(ctx)
}

func (s *appService) GetSupplier(ctx context.Context, id int) (*core.Supplier, error) {
	return s.Catalog.GetSupplier(ctx, id)
}

func (s *appService) ListProducts(ctx context.Context) ([]core.Product, error) {
	return s.Catalog.ListProducts(ctx)
}

func (s *appService) GetProduct(ctx context.Context, id int) (*core.Product, error) {
	return s.Catalog.GetProduct(ctx, id)
}

// ── Quotations ───────────────────────────────────────────────────────────────

func (s *appService) SearchQuotations(ctx context.Context, strategy string) ([]core.ProductQuotations, error) {
	st, err := core.ParseRankingStrategy(strategy)
	if err != nil {
		return nil, err
	}
	return s.Quotations.SearchQuotations(ctx, st)
}

func (s *appService) ApproveQuotation(ctx context.Context, id int) (*core.Quotation, error) {
	return s.Quotations.ApproveQuotation(ctx, id)
}

func (s *appService) UnapproveQuotation(ctx context.Context, id int) (*core.Quotation, error) {
	return s.Quotations.UnapproveQuotation(ctx, id)
}

func (s *appService) SyncQuotations(ctx context.Context) (*core.QuotationSyncResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "SyncQuotations")
	defer span.End()

	release, err := s.acquire(ctx, quotationSyncLockName)
	if err != nil {
		return nil, endSpan(span, err)
	}
	defer s.release(release, quotationSyncLockName)

	res, err := s.Quotations.SyncQuotations(ctx)
	if err != nil {
		return nil, endSpan(span, err)
	}
	span.SetAttributes(
		attribute.Int("quotations.created", res.Created),
		attribute.Int("quotations.updated", res.Updated),
		attribute.Int("quotations.skipped", res.Skipped),
	)
	s.Log.Info("quotations synchronized",
		zap.Int("created", res.Created), zap.Int("updated", res.Updated), zap.Int("skipped", res.Skipped))
	return res, nil
}

// ── Reorder points and alerts ────────────────────────────────────────────────

func (s *appService) RegisterReorderPoint(ctx context.Context, req RegisterReorderPointRequest) (*core.ReorderPoint, error) {
	if req.StockID <= 0 {
		return nil, &core.ValidationError{Field: "stock_id", Message: "must be positive"}
	}
	if req.ProductID <= 0 {
		return nil, &core.ValidationError{Field: "product_id", Message: "must be positive"}
	}
	return s.ReorderPoints.RegisterReorderPoint(ctx, req.StockID, req.ProductID)
}

func (s *appService) SyncReorderPoints(ctx context.Context) (*ReorderSyncResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "SyncReorderPoints")
	defer span.End()

	release, err := s.acquire(ctx, reorderSyncLockName)
	if err != nil {
		return nil, endSpan(span, err)
	}
	defer s.release(release, reorderSyncLockName)

	critical := core.AlertCritical
	before, err := s.ReorderPoints.SearchAlerts(ctx, &critical)
	if err != nil {
		return nil, endSpan(span, err)
	}

	res, err := s.ReorderPoints.SyncReorderPoints(ctx)
	if err != nil {
		return nil, endSpan(span, err)
	}

	after, err := s.ReorderPoints.SearchAlerts(ctx, &critical)
	if err != nil {
		return nil, endSpan(span, err)
	}
	fresh := newAlerts(before, after)
	s.notify(ctx, fresh)

	span.SetAttributes(
		attribute.Int("reorder.pairs", res.Pairs),
		attribute.Int("reorder.changed", res.Changed),
		attribute.Int("reorder.inadequate", res.Inadequate),
	)
	s.Log.Info("reorder points synchronized",
		zap.Int("pairs", res.Pairs), zap.Int("changed", res.Changed),
		zap.Int("inadequate", res.Inadequate), zap.Int("new_critical", len(fresh)))
	return &ReorderSyncResult{ReorderSyncResult: *res, NewCritical: len(fresh)}, nil
}

func (s *appService) SearchReorderPoints(ctx context.Context, filter core.ReorderPointFilter) ([]core.ReorderPoint, error) {
	return s.ReorderPoints.SearchReorderPoints(ctx, filter)
}

func (s *appService) ReorderPointTotals(ctx context.Context) (*core.ReorderPointTotals, error) {
	return s.ReorderPoints.ReorderPointTotals(ctx)
}

func (s *appService) SearchAlerts(ctx context.Context, level string) ([]core.Alert, error) {
	l, err := core.ParseAlertLevel(level)
	if err != nil {
		return nil, err
	}
	return s.ReorderPoints.SearchAlerts(ctx, l)
}

func (s *appService) AlertTotals(ctx context.Context) (*core.AlertTotals, error) {
	return s.ReorderPoints.AlertTotals(ctx)
}

// ── Orders ───────────────────────────────────────────────────────────────────

func (s *appService) CreateAutomaticOrder(ctx context.Context, req AutomaticOrderRequest) (*AutomaticOrderResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "CreateAutomaticOrder",
		trace.WithAttributes(attribute.Int("stock.id", req.StockID), attribute.Int("items", len(req.Items))))
	defer span.End()

	orders, err := s.Orders.CreateAutomaticOrder(ctx, req.StockID, req.Items)
	if err != nil {
		return nil, endSpan(span, err)
	}

	result := &AutomaticOrderResult{Orders: orders}
	total := decimal.Zero
	evts := make([]events.Envelope, 0, len(orders))
	for _, o := range orders {
		total = total.Add(o.TotalValue.Decimal)
		for _, it := range o.Items {
			result.Quantity += it.Quantity
		}
		evts = append(evts, events.NewOrderEvent(events.OrderCreated, o, s.now()))
	}
	result.TotalValue = core.NewMoney(total)
	s.publish(ctx, evts...)

	span.SetAttributes(attribute.Int("orders", len(orders)))
	s.Log.Info("automatic order created",
		zap.Int("stock_id", req.StockID), zap.Int("orders", len(orders)),
		zap.Int("quantity", result.Quantity), zap.String("total", result.TotalValue.StringFixed(2)))
	return result, nil
}

func (s *appService) ChangeOrderStatus(ctx context.Context, id int, status string) (*core.Order, error) {
	to, err := core.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, to, func(ctx context.Context) (*core.Order, error) {
		return s.Orders.ChangeOrderStatus(ctx, id, to)
	})
}

func (s *appService) ConfirmReceipt(ctx context.Context, id int) (*core.Order, error) {
	return s.transition(ctx, id, core.OrderReceived, func(ctx context.Context) (*core.Order, error) {
		return s.Orders.ConfirmReceipt(ctx, id)
	})
}

func (s *appService) CancelOrder(ctx context.Context, id int) (*core.Order, error) {
	return s.transition(ctx, id, core.OrderCancelled, func(ctx context.Context) (*core.Order, error) {
		return s.Orders.CancelOrder(ctx, id)
	})
}

// transition runs one order status change and publishes its event. A call
// that finds the order already in the target status publishes nothing.
func (s *appService) transition(ctx context.Context, id int, to core.OrderStatus, apply func(context.Context) (*core.Order, error)) (*core.Order, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ChangeOrderStatus",
		trace.WithAttributes(attribute.Int("order.id", id), attribute.String("order.to", string(to))))
	defer span.End()

	prev, err := s.Orders.GetOrder(ctx, id)
	if err != nil {
		return nil, endSpan(span, err)
	}
	o, err := apply(ctx)
	if err != nil {
		return nil, endSpan(span, err)
	}
	if prev.Status == o.Status {
		return o, nil
	}

	s.publish(ctx, events.NewOrderEvent(events.EventTypeForStatus(o.Status), *o, s.now()))
	s.Log.Info("order status changed",
		zap.Int("order_id", id), zap.String("from", string(prev.Status)), zap.String("to", string(o.Status)))
	return o, nil
}

func (s *appService) GetOrder(ctx context.Context, id int) (*core.Order, error) {
	return s.Orders.GetOrder(ctx, id)
}

func (s *appService) SearchOrders(ctx context.Context, filter core.OrderFilter) ([]core.Order, error) {
	return s.Orders.SearchOrders(ctx, filter)
}

// ── Reservations ─────────────────────────────────────────────────────────────

func (s *appService) SearchReservations(ctx context.Context, filter reporting.ReservationFilter) ([]reporting.ReservationView, error) {
	return s.Reports.SearchReservations(ctx, filter)
}

func (s *appService) ReservationTotals(ctx context.Context) (*reporting.ReservationTotals, error) {
	return s.Reports.ReservationTotals(ctx)
}

// ── Movements and transfers ──────────────────────────────────────────────────

func (s *appService) RegisterMovement(ctx context.Context, req core.MovementRequest) (*core.Movement, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "RegisterMovement",
		trace.WithAttributes(attribute.Int("stock.id", req.StockID), attribute.String("movement.type", string(req.Type))))
	defer span.End()

	var before *core.Alert
	if req.Type == core.MovementExit {
		before = s.alertFor(ctx, req.StockID, req.ProductID)
	}
	m, err := s.Ledger.RegisterMovement(ctx, req)
	if err != nil {
		return nil, endSpan(span, err)
	}
	if req.Type == core.MovementExit {
		s.checkCritical(ctx, before, req.StockID, req.ProductID)
	}
	return m, nil
}

func (s *appService) GetMovement(ctx context.Context, id int) (*reporting.MovementView, error) {
	return s.Reports.GetMovement(ctx, id)
}

func (s *appService) SearchMovements(ctx context.Context, filter reporting.MovementFilter) ([]reporting.MovementView, error) {
	return s.Reports.SearchMovements(ctx, filter)
}

func (s *appService) MovementTotals(ctx context.Context, filter reporting.MovementFilter) (*reporting.MovementTotals, error) {
	return s.Reports.MovementTotals(ctx, filter)
}

func (s *appService) RegisterTransfer(ctx context.Context, req core.TransferRequest) (*core.Transfer, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "RegisterTransfer",
		trace.WithAttributes(attribute.Int("stock.origin", req.OriginStockID), attribute.Int("stock.destination", req.DestinationStockID)))
	defer span.End()

	before := s.alertFor(ctx, req.OriginStockID, req.ProductID)
	t, err := s.Ledger.RegisterTransfer(ctx, req)
	if err != nil {
		return nil, endSpan(span, err)
	}
	s.checkCritical(ctx, before, req.OriginStockID, req.ProductID)
	return t, nil
}

func (s *appService) SearchTransfers(ctx context.Context, query string) ([]reporting.TransferView, error) {
	return s.Reports.SearchTransfers(ctx, query)
}

func (s *appService) TransferTotals(ctx context.Context) (*reporting.TransferTotals, error) {
	return s.Reports.TransferTotals(ctx)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (s *appService) acquire(ctx context.Context, name string) (func(context.Context) error, error) {
	release, err := s.Locker.Acquire(ctx, name, syncLockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, &core.ConflictError{Entity: "synchronization", Reason: name + " is already running"}
		}
		return nil, err
	}
	return release, nil
}

func (s *appService) release(release func(context.Context) error, name string) {
	if err := release(context.Background()); err != nil {
		s.Log.Warn("failed to release lock", zap.String("lock", name), zap.Error(err))
	}
}

// publish never fails the caller: the state change is already committed.
func (s *appService) publish(ctx context.Context, evts ...events.Envelope) {
	if len(evts) == 0 {
		return
	}
	if err := s.Events.Publish(ctx, evts...); err != nil {
		s.Log.Error("failed to publish order events", zap.Int("count", len(evts)), zap.Error(err))
	}
}

// notify forwards only critical alerts.
func (s *appService) notify(ctx context.Context, alerts []core.Alert) {
	alerts = notify.Critical(alerts)
	if len(alerts) == 0 {
		return
	}
	if err := s.Notifier.NotifyAlerts(ctx, alerts); err != nil {
		s.Log.Error("failed to notify alerts", zap.Int("count", len(alerts)), zap.Error(err))
	}
}

func (s *appService) alertFor(ctx context.Context, stockID, productID int) *core.Alert {
	a, err := s.ReorderPoints.AlertFor(ctx, stockID, productID)
	if err != nil {
		s.Log.Warn("failed to read alert", zap.Int("stock_id", stockID), zap.Int("product_id", productID), zap.Error(err))
		return nil
	}
	return a
}

// checkCritical notifies when the pair is critical now and was not before.
func (s *appService) checkCritical(ctx context.Context, before *core.Alert, stockID, productID int) {
	if before != nil && before.Level == core.AlertCritical {
		return
	}
	if after := s.alertFor(ctx, stockID, productID); after != nil {
		s.notify(ctx, []core.Alert{*after})
	}
}

type alertKey struct{ stockID, productID int }

// newAlerts returns the alerts in after that have no counterpart in before.
func newAlerts(before, after []core.Alert) []core.Alert {
	seen := make(map[alertKey]bool, len(before))
	for _, a := range before {
		seen[alertKey{a.StockID, a.ProductID}] = true
	}
	var out []core.Alert
	for _, a := range after {
		if !seen[alertKey{a.StockID, a.ProductID}] {
			out = append(out, a)
		}
	}
	return out
}

func endSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
