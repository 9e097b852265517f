package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"procurement-engine/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewOrderEvent(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	o := core.Order{
		ID: 7, SupplierID: 2, StockID: 1, Status: core.OrderCreated,
		TotalValue: core.NewMoney(decimal.RequireFromString("80")),
		Items:      []core.OrderItem{{ProductID: 1, Quantity: 10}},
	}

	e := NewOrderEvent(OrderCreated, o, now)
	_, err := uuid.Parse(e.EventID)
	require.NoError(t, err)
	assert.Equal(t, OrderCreated, e.EventType)
	assert.Equal(t, []ItemPayload{{ProductID: 1, Quantity: 10}}, e.Payload.Items)

	body, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"total_value":80.00`)
	assert.Contains(t, string(body), `"timestamp":"2026-04-02T10:00:00Z"`)

	other := NewOrderEvent(OrderCreated, o, now)
	assert.NotEqual(t, e.EventID, other.EventID)
}

func TestEventTypeForStatus(t *testing.T) {
	assert.Equal(t, OrderReceived, EventTypeForStatus(core.OrderReceived))
	assert.Equal(t, OrderCancelled, EventTypeForStatus(core.OrderCancelled))
	assert.Equal(t, OrderStatusChanged, EventTypeForStatus(core.OrderSent))
	assert.Equal(t, OrderStatusChanged, EventTypeForStatus(core.OrderInTransit))
}

func TestLogPublisher(t *testing.T) {
	zc, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(zc))

	err := p.Publish(context.Background(),
		NewOrderEvent(OrderCreated, core.Order{ID: 1}, time.Now()),
		NewOrderEvent(OrderCancelled, core.Order{ID: 1, Status: core.OrderCancelled}, time.Now()),
	)
	require.NoError(t, err)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, OrderCancelled, logs.All()[1].ContextMap()["event_type"])
	assert.NoError(t, p.Close())
}
