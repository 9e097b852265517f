package core

import (
	"fmt"
	"math"
)

// ConsumptionStats holds exit statistics for one pair over the trailing window.
type ConsumptionStats struct {
	AvgDaily float64
	MaxDaily float64
}

// LeadTimeStats holds mean and maximum lead time across a product's active suppliers.
type LeadTimeStats struct {
	Avg float64
	Max float64
}

// NewConsumptionStats derives statistics from per-day exit totals. Days with
// no exits need not be present: the average always divides by windowDays.
func NewConsumptionStats(dailyExitTotals []int, windowDays int) ConsumptionStats {
	if windowDays <= 0 {
		windowDays = ConsumptionWindowDays
	}
	var sum, peak int
	for _, total := range dailyExitTotals {
		sum += total
		if total > peak {
			peak = total
		}
	}
	return ConsumptionStats{
		AvgDaily: float64(sum) / float64(windowDays),
		MaxDaily: float64(peak),
	}
}

// NewLeadTimeStats averages the given supplier lead times.
func NewLeadTimeStats(leadTimes []int) LeadTimeStats {
	if len(leadTimes) == 0 {
		return LeadTimeStats{}
	}
	var sum, peak int
	for _, lt := range leadTimes {
		sum += lt
		if lt > peak {
			peak = lt
		}
	}
	return LeadTimeStats{Avg: float64(sum) / float64(len(leadTimes)), Max: float64(peak)}
}

// CalculateReorderPoint applies
//
//	safety = max(0, maxDaily*maxLead - avgDaily*avgLead)
//	rop    = avgDaily*avgLead + safety
//
// and marks the pair inadequate when balance < rop.
func CalculateReorderPoint(stockID, productID int, c ConsumptionStats, lt LeadTimeStats, balance int) ReorderPoint {
	expected := c.AvgDaily * lt.Avg
	safety := math.Max(0, c.MaxDaily*lt.Max-expected)
	rop := expected + safety

	status := ReorderAdequate
	if float64(balance) < rop {
		status = ReorderInadequate
	}
	return ReorderPoint{
		StockID:             stockID,
		ProductID:           productID,
		AvgDailyConsumption: c.AvgDaily,
		MaxDailyConsumption: c.MaxDaily,
		AvgLeadTime:         lt.Avg,
		MaxLeadTime:         lt.Max,
		SafetyStock:         safety,
		ROP:                 rop,
		CurrentBalance:      balance,
		Status:              status,
	}
}

// statusFor re-evaluates a stored ROP against a new balance.
func statusFor(rop float64, balance int) ReorderStatus {
	if float64(balance) < rop {
		return ReorderInadequate
	}
	return ReorderAdequate
}

// AlertThresholds are the percent-below-ROP cut-offs for each level.
type AlertThresholds struct {
	CriticalPercent float64
	HighPercent     float64
}

var DefaultAlertThresholds = AlertThresholds{CriticalPercent: 50, HighPercent: 25}

// Validate keeps classification monotonic: a larger deficit never maps to a lower level.
func (t AlertThresholds) Validate() error {
	if t.HighPercent < 0 || t.CriticalPercent < t.HighPercent {
		return fmt.Errorf("alert thresholds must satisfy 0 <= high (%g) <= critical (%g)", t.HighPercent, t.CriticalPercent)
	}
	return nil
}

// PercentBelowROP returns (rop - balance) / rop * 100, or 0 when rop is not positive.
func PercentBelowROP(rop float64, balance int) float64 {
	if rop <= 0 {
		return 0
	}
	return (rop - float64(balance)) / rop * 100
}

// ClassifyAlert maps a deficit percentage to a level.
func (t AlertThresholds) ClassifyAlert(percentBelow float64) AlertLevel {
	switch {
	case percentBelow >= t.CriticalPercent:
		return AlertCritical
	case percentBelow >= t.HighPercent:
		return AlertHigh
	default:
		return AlertMedium
	}
}

// AlertFromReorderPoint derives the alert for an inadequate pair. The second
// return is false when the pair does not warrant an alert.
func (t AlertThresholds) AlertFromReorderPoint(rp ReorderPoint) (Alert, bool) {
	if rp.Status != ReorderInadequate || float64(rp.CurrentBalance) >= rp.ROP {
		return Alert{}, false
	}
	pct := PercentBelowROP(rp.ROP, rp.CurrentBalance)
	return Alert{
		Level:           t.ClassifyAlert(pct),
		ProductID:       rp.ProductID,
		ProductName:     rp.ProductName,
		StockID:         rp.StockID,
		StockName:       rp.StockName,
		CurrentQuantity: rp.CurrentBalance,
		ROP:             rp.ROP,
		PercentBelowROP: pct,
		Timestamp:       rp.UpdatedAt,
	}, true
}
