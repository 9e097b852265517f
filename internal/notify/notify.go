// Package notify forwards reorder alerts to an external webhook.
package notify

import (
	"context"
	"fmt"
	"time"

	"procurement-engine/internal/core"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// AlertNotifier delivers alerts that need attention.
type AlertNotifier interface {
	NotifyAlerts(ctx context.Context, alerts []core.Alert) error
}

// AlertPayload is the webhook body.
type AlertPayload struct {
	Source string       `json:"source"`
	SentAt time.Time    `json:"sent_at"`
	Alerts []core.Alert `json:"alerts"`
}

// WebhookNotifier posts alerts as JSON to a fixed URL.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	log    *zap.Logger
}

func NewWebhookNotifier(url string, timeout time.Duration, log *zap.Logger) *WebhookNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetHeader("Content-Type", "application/json")
	return &WebhookNotifier{client: client, url: url, log: log}
}

func (n *WebhookNotifier) NotifyAlerts(ctx context.Context, alerts []core.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(AlertPayload{Source: "procurement-engine", SentAt: time.Now().UTC(), Alerts: alerts}).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("failed to post alerts: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("alert webhook returned %s", resp.Status())
	}
	n.log.Info("alerts delivered", zap.Int("count", len(alerts)), zap.Int("status", resp.StatusCode()))
	return nil
}

// Noop drops every alert. Used when no webhook is configured.
type Noop struct{}

func (Noop) NotifyAlerts(context.Context, []core.Alert) error { return nil }

// Critical keeps only critical alerts.
func Critical(alerts []core.Alert) []core.Alert {
	var out []core.Alert
	for _, a := range alerts {
		if a.Level == core.AlertCritical {
			out = append(out, a)
		}
	}
	return out
}
