package core

import (
	"context"
	"time"
)

type ReorderStatus string

const (
	ReorderAdequate   ReorderStatus = "adequate"
	ReorderInadequate ReorderStatus = "inadequate"
)

// ConsumptionWindowDays is the trailing window of exit history used for ROP.
const ConsumptionWindowDays = 90

// ReorderPoint is the computed replenishment threshold for one (stock, product) pair.
type ReorderPoint struct {
	ID                  int           `json:"id"`
	StockID             int           `json:"stock_id"`
	StockName           string        `json:"stock_name"`
	ProductID           int           `json:"product_id"`
	ProductName         string        `json:"product_name"`
	AvgDailyConsumption float64       `json:"average_daily_consumption"`
	MaxDailyConsumption float64       `json:"maximum_daily_consumption"`
	AvgLeadTime         float64       `json:"average_lead_time"`
	MaxLeadTime         float64       `json:"maximum_lead_time"`
	SafetyStock         float64       `json:"safety_stock"`
	ROP                 float64       `json:"rop"`
	CurrentBalance      int           `json:"current_balance"`
	Status              ReorderStatus `json:"status"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// ReorderPointFilter narrows SearchReorderPoints. Zero values mean "any".
type ReorderPointFilter struct {
	Status  ReorderStatus
	StockID int
}

type ReorderPointTotals struct {
	Monitored  int `json:"monitored"`
	Adequate   int `json:"adequate"`
	Inadequate int `json:"inadequate"`
}

type ReorderSyncResult struct {
	Pairs      int `json:"pairs"`
	Changed    int `json:"changed"`
	Inadequate int `json:"inadequate"`
}

type AlertLevel string

const (
	AlertCritical AlertLevel = "critical"
	AlertHigh     AlertLevel = "high"
	AlertMedium   AlertLevel = "medium"
)

// ParseAlertLevel accepts an empty string as "no filter".
func ParseAlertLevel(s string) (*AlertLevel, error) {
	if s == "" {
		return nil, nil
	}
	l := AlertLevel(s)
	switch l {
	case AlertCritical, AlertHigh, AlertMedium:
		return &l, nil
	}
	return nil, &ValidationError{Field: "level", Message: "must be one of critical, high, medium"}
}

// Alert is derived from an inadequate reorder point on every query.
type Alert struct {
	Level           AlertLevel `json:"level"`
	ProductID       int        `json:"product_id"`
	ProductName     string     `json:"product_name"`
	StockID         int        `json:"stock_id"`
	StockName       string     `json:"stock_name"`
	CurrentQuantity int        `json:"current_quantity"`
	ROP             float64    `json:"rop"`
	PercentBelowROP float64    `json:"percent_below_rop"`
	Timestamp       time.Time  `json:"timestamp"`
}

type AlertTotals struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
}

// ReorderPointService computes reorder points and derives alerts from them.
type ReorderPointService interface {
	// RegisterReorderPoint puts a (stock, product) pair under monitoring and computes it immediately.
	RegisterReorderPoint(ctx context.Context, stockID, productID int) (*ReorderPoint, error)

	// SyncReorderPoints recomputes every pair that holds stock or is already monitored.
	// Each pair is written as one statement; cancellation stops between pairs.
	SyncReorderPoints(ctx context.Context) (*ReorderSyncResult, error)

	// SearchReorderPoints lists reorder points ordered by stock then product.
	SearchReorderPoints(ctx context.Context, filter ReorderPointFilter) ([]ReorderPoint, error)

	// ReorderPointTotals counts monitored, adequate and inadequate pairs.
	ReorderPointTotals(ctx context.Context) (*ReorderPointTotals, error)

	// SearchAlerts derives alerts from inadequate pairs, optionally keeping one level.
	SearchAlerts(ctx context.Context, level *AlertLevel) ([]Alert, error)

	// AlertTotals counts current alerts per level.
	AlertTotals(ctx context.Context) (*AlertTotals, error)

	// AlertFor returns the alert for one pair, or nil when the pair is adequate or unmonitored.
	AlertFor(ctx context.Context, stockID, productID int) (*Alert, error)
}
