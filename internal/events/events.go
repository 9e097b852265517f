// Package events publishes order lifecycle events after the changes they
// describe have been committed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"procurement-engine/internal/core"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	OrderReceived      = "order.received"
	OrderCancelled     = "order.cancelled"
)

// Envelope is the message body written to the topic.
type Envelope struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	OrderID    int              `json:"order_id"`
	SupplierID int              `json:"supplier_id"`
	StockID    int              `json:"stock_id"`
	Status     core.OrderStatus `json:"status"`
	TotalValue core.Money       `json:"total_value"`
	Items      []ItemPayload    `json:"items"`
}

type ItemPayload struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// NewOrderEvent wraps an order in an envelope with a fresh event id.
func NewOrderEvent(eventType string, o core.Order, now time.Time) Envelope {
	items := make([]ItemPayload, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemPayload{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Payload: OrderPayload{
			OrderID:    o.ID,
			SupplierID: o.SupplierID,
			StockID:    o.StockID,
			Status:     o.Status,
			TotalValue: o.TotalValue,
			Items:      items,
		},
		Timestamp: now.UTC(),
	}
}

// EventTypeForStatus maps the status an order moved into to its event type.
func EventTypeForStatus(s core.OrderStatus) string {
	switch s {
	case core.OrderReceived:
		return OrderReceived
	case core.OrderCancelled:
		return OrderCancelled
	case core.OrderCreated:
		return OrderCreated
	}
	return OrderStatusChanged
}

// Publisher delivers envelopes. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, events ...Envelope) error
	Close() error
}

// KafkaPublisher writes envelopes keyed by order id, so every event of one
// order lands on the same partition in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events ...Envelope) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		body, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode %s event: %w", e.EventType, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.Itoa(e.Payload.OrderID)),
			Value: body,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(e.EventType)},
			},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write events: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher logs envelopes instead of sending them. Used when no brokers
// are configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, events ...Envelope) error {
	for _, e := range events {
		p.log.Info("order event",
			zap.String("event_id", e.EventID),
			zap.String("event_type", e.EventType),
			zap.Int("order_id", e.Payload.OrderID),
			zap.String("status", string(e.Payload.Status)),
		)
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }
