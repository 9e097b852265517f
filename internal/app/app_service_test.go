package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"procurement-engine/internal/core"
	"procurement-engine/internal/events"
	"procurement-engine/internal/lock"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ── Fakes ────────────────────────────────────────────────────────────────────

type fakeOrders struct {
	core.OrderService
	created []core.Order
	orders  map[int]*core.Order
}

func (f *fakeOrders) CreateAutomaticOrder(_ context.Context, _ int, _ []core.ItemRequest) ([]core.Order, error) {
	return f.created, nil
}

func (f *fakeOrders) GetOrder(_ context.Context, id int) (*core.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, &core.NotFoundError{Entity: "order", ID: id}
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) ConfirmReceipt(_ context.Context, id int) (*core.Order, error) {
	o := f.orders[id]
	o.Status = core.OrderReceived
	cp := *o
	return &cp, nil
}

type fakeReorder struct {
	core.ReorderPointService
	mu        sync.Mutex
	critical  [][]core.Alert // successive SearchAlerts results
	alerts    []*core.Alert  // successive AlertFor results
	syncCalls int
	block     chan struct{}
}

func (f *fakeReorder) SearchAlerts(_ context.Context, _ *core.AlertLevel) ([]core.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := f.critical[0]
	f.critical = f.critical[1:]
	return next, nil
}

func (f *fakeReorder) SyncReorderPoints(_ context.Context) (*core.ReorderSyncResult, error) {
	f.mu.Lock()
	f.syncCalls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return &core.ReorderSyncResult{Pairs: 2, Changed: 1, Inadequate: 1}, nil
}

func (f *fakeReorder) AlertFor(_ context.Context, _, _ int) (*core.Alert, error) {
	next := f.alerts[0]
	f.alerts = f.alerts[1:]
	return next, nil
}

type fakeLedger struct {
	core.LedgerService
}

func (fakeLedger) RegisterMovement(_ context.Context, req core.MovementRequest) (*core.Movement, error) {
	return &core.Movement{ID: 1, ProductID: req.ProductID, StockID: req.StockID, Type: req.Type, Quantity: req.Quantity}, nil
}

type recordingPublisher struct {
	events []events.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, evts ...events.Envelope) error {
	p.events = append(p.events, evts...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []core.Alert
}

func (n *recordingNotifier) NotifyAlerts(_ context.Context, alerts []core.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alerts...)
	return nil
}

func amount(s string) core.Money {
	return core.NewMoney(decimal.RequireFromString(s))
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestCreateAutomaticOrder_PublishesCreatedEvents(t *testing.T) {
	pub := &recordingPublisher{}
	orders := &fakeOrders{created: []core.Order{
		{ID: 1, SupplierID: 1, TotalValue: amount("60.00"), Status: core.OrderCreated,
			Items: []core.OrderItem{{ProductID: 2, Quantity: 5}}},
		{ID: 2, SupplierID: 2, TotalValue: amount("80.00"), Status: core.OrderCreated,
			Items: []core.OrderItem{{ProductID: 1, Quantity: 10}}},
	}}
	svc := NewAppService(Deps{Orders: orders, Events: pub, Log: zap.NewNop()})

	res, err := svc.CreateAutomaticOrder(context.Background(), AutomaticOrderRequest{StockID: 1})
	require.NoError(t, err)
	assert.Len(t, res.Orders, 2)
	assert.Equal(t, 15, res.Quantity)
	assert.Equal(t, "140.00", res.TotalValue.StringFixed(2))

	require.Len(t, pub.events, 2)
	for i, e := range pub.events {
		assert.Equal(t, events.OrderCreated, e.EventType)
		assert.Equal(t, i+1, e.Payload.OrderID)
	}
}

func TestConfirmReceipt_PublishesOnlyOnChange(t *testing.T) {
	pub := &recordingPublisher{}
	orders := &fakeOrders{orders: map[int]*core.Order{
		7: {ID: 7, Status: core.OrderInTransit},
	}}
	svc := NewAppService(Deps{Orders: orders, Events: pub})

	o, err := svc.ConfirmReceipt(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, core.OrderReceived, o.Status)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.OrderReceived, pub.events[0].EventType)

	_, err = svc.ConfirmReceipt(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, pub.events, 1)
}

func TestChangeOrderStatus_RejectsUnknownStatus(t *testing.T) {
	svc := NewAppService(Deps{Orders: &fakeOrders{}})
	_, err := svc.ChangeOrderStatus(context.Background(), 1, "lost")
	var ve *core.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSyncReorderPoints_NotifiesNewCriticalOnly(t *testing.T) {
	old := core.Alert{Level: core.AlertCritical, StockID: 1, ProductID: 1}
	fresh := core.Alert{Level: core.AlertCritical, StockID: 1, ProductID: 2}
	rops := &fakeReorder{critical: [][]core.Alert{{old}, {old, fresh}}}
	notifier := &recordingNotifier{}
	svc := NewAppService(Deps{ReorderPoints: rops, Notifier: notifier})

	res, err := svc.SyncReorderPoints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pairs)
	assert.Equal(t, 1, res.NewCritical)
	assert.Equal(t, []core.Alert{fresh}, notifier.alerts)
}

func TestSyncReorderPoints_ConcurrentRunConflicts(t *testing.T) {
	rops := &fakeReorder{
		critical: [][]core.Alert{nil, nil},
		block:    make(chan struct{}),
	}
	locker := lock.NewLocalLocker()
	svc := NewAppService(Deps{ReorderPoints: rops, Locker: locker})

	done := make(chan error, 1)
	go func() {
		_, err := svc.SyncReorderPoints(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		rops.mu.Lock()
		defer rops.mu.Unlock()
		return rops.syncCalls == 1
	}, time.Second, 5*time.Millisecond)

	_, err := svc.SyncReorderPoints(context.Background())
	var conflict *core.ConflictError
	assert.ErrorAs(t, err, &conflict)

	close(rops.block)
	require.NoError(t, <-done)
}

func TestRegisterMovement_NotifiesWhenExitTurnsCritical(t *testing.T) {
	critical := &core.Alert{Level: core.AlertCritical, StockID: 1, ProductID: 1}
	high := &core.Alert{Level: core.AlertHigh, StockID: 1, ProductID: 1}
	rops := &fakeReorder{alerts: []*core.Alert{high, critical, critical, critical}}
	notifier := &recordingNotifier{}
	svc := NewAppService(Deps{ReorderPoints: rops, Ledger: fakeLedger{}, Notifier: notifier})

	req := core.MovementRequest{ProductID: 1, StockID: 1, Quantity: 5, Type: core.MovementExit, Responsible: "ana"}
	_, err := svc.RegisterMovement(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, notifier.alerts, 1)

	// Already critical before the exit: no second notification.
	_, err = svc.RegisterMovement(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, notifier.alerts, 1)
}

func TestSearchAlerts_RejectsUnknownLevel(t *testing.T) {
	svc := NewAppService(Deps{ReorderPoints: &fakeReorder{}})
	_, err := svc.SearchAlerts(context.Background(), "urgent")
	var ve *core.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestNewAlerts(t *testing.T) {
	a := core.Alert{StockID: 1, ProductID: 1}
	b := core.Alert{StockID: 1, ProductID: 2}
	assert.Equal(t, []core.Alert{b}, newAlerts([]core.Alert{a}, []core.Alert{a, b}))
	assert.Empty(t, newAlerts([]core.Alert{a, b}, []core.Alert{a}))
}

func TestRegisterMovement_HighAlertIsNotNotified(t *testing.T) {
	high := &core.Alert{Level: core.AlertHigh, StockID: 1, ProductID: 1}
	rops := &fakeReorder{alerts: []*core.Alert{nil, high}}
	notifier := &recordingNotifier{}
	svc := NewAppService(Deps{ReorderPoints: rops, Ledger: fakeLedger{}, Notifier: notifier})

	req := core.MovementRequest{ProductID: 1, StockID: 1, Quantity: 5, Type: core.MovementExit, Responsible: "ana"}
	_, err := svc.RegisterMovement(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, notifier.alerts)
}

type fakeInventory struct {
	core.InventoryService
	balances map[[2]int]int
}

func (f fakeInventory) GetStock(_ context.Context, id int) (*core.StockLevel, error) {
	if id != 1 {
		return nil, &core.NotFoundError{Entity: "stock", ID: id}
	}
	return &core.StockLevel{Stock: core.Stock{ID: 1, Name: "Main", Capacity: 100}}, nil
}

func (f fakeInventory) GetBalance(_ context.Context, stockID, productID int) (int, error) {
	return f.balances[[2]int{stockID, productID}], nil
}

func TestGetBalance(t *testing.T) {
	svc := NewAppService(Deps{Inventory: fakeInventory{balances: map[[2]int]int{{1, 2}: 14}}})

	bal, err := svc.GetBalance(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, &StockBalance{StockID: 1, ProductID: 2, Quantity: 14}, bal)

	bal, err = svc.GetBalance(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Zero(t, bal.Quantity)

	_, err = svc.GetBalance(context.Background(), 9, 1)
	var nf *core.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
