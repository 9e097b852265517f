package core_test

import (
	"testing"
	"time"

	"procurement-engine/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConsumptionStats_DividesByWindow(t *testing.T) {
	c := core.NewConsumptionStats([]int{30, 60, 90}, 90)
	assert.InDelta(t, 2.0, c.AvgDaily, 1e-9)
	assert.InDelta(t, 90.0, c.MaxDaily, 1e-9)

	empty := core.NewConsumptionStats(nil, 90)
	assert.Zero(t, empty.AvgDaily)
	assert.Zero(t, empty.MaxDaily)
}

func TestCalculateReorderPoint(t *testing.T) {
	tests := []struct {
		name        string
		consumption core.ConsumptionStats
		lead        core.LeadTimeStats
		balance     int
		wantSafety  float64
		wantROP     float64
		wantStatus  core.ReorderStatus
	}{
		{
			name:        "peaks add safety stock",
			consumption: core.ConsumptionStats{AvgDaily: 2, MaxDaily: 5},
			lead:        core.LeadTimeStats{Avg: 10, Max: 14},
			balance:     40,
			wantSafety:  50,
			wantROP:     70,
			wantStatus:  core.ReorderInadequate,
		},
		{
			name:        "balance equal to rop is adequate",
			consumption: core.ConsumptionStats{AvgDaily: 2, MaxDaily: 5},
			lead:        core.LeadTimeStats{Avg: 10, Max: 14},
			balance:     70,
			wantSafety:  50,
			wantROP:     70,
			wantStatus:  core.ReorderAdequate,
		},
		{
			name:        "no consumption",
			consumption: core.ConsumptionStats{},
			lead:        core.LeadTimeStats{Avg: 10, Max: 14},
			balance:     0,
			wantSafety:  0,
			wantROP:     0,
			wantStatus:  core.ReorderAdequate,
		},
		{
			name:        "no suppliers",
			consumption: core.ConsumptionStats{AvgDaily: 3, MaxDaily: 8},
			lead:        core.LeadTimeStats{},
			balance:     1,
			wantSafety:  0,
			wantROP:     0,
			wantStatus:  core.ReorderAdequate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rp := core.CalculateReorderPoint(1, 2, tt.consumption, tt.lead, tt.balance)
			assert.InDelta(t, tt.wantSafety, rp.SafetyStock, 1e-9)
			assert.InDelta(t, tt.wantROP, rp.ROP, 1e-9)
			assert.Equal(t, tt.wantStatus, rp.Status)
			assert.GreaterOrEqual(t, rp.SafetyStock, 0.0)
		})
	}
}

func TestNewLeadTimeStats(t *testing.T) {
	lt := core.NewLeadTimeStats([]int{5, 10, 15})
	assert.InDelta(t, 10.0, lt.Avg, 1e-9)
	assert.InDelta(t, 15.0, lt.Max, 1e-9)
}

func TestClassifyAlert_Thresholds(t *testing.T) {
	th := core.DefaultAlertThresholds
	assert.Equal(t, core.AlertCritical, th.ClassifyAlert(50))
	assert.Equal(t, core.AlertCritical, th.ClassifyAlert(100))
	assert.Equal(t, core.AlertHigh, th.ClassifyAlert(49.99))
	assert.Equal(t, core.AlertHigh, th.ClassifyAlert(25))
	assert.Equal(t, core.AlertMedium, th.ClassifyAlert(24.99))
	assert.Equal(t, core.AlertMedium, th.ClassifyAlert(0.1))
}

func TestClassifyAlert_Monotonic(t *testing.T) {
	rank := map[core.AlertLevel]int{core.AlertMedium: 0, core.AlertHigh: 1, core.AlertCritical: 2}
	th := core.DefaultAlertThresholds
	prev := th.ClassifyAlert(0)
	for pct := 0.0; pct <= 100; pct += 0.5 {
		level := th.ClassifyAlert(pct)
		assert.GreaterOrEqual(t, rank[level], rank[prev], "deficit %.1f%%", pct)
		prev = level
	}
}

func TestAlertThresholds_Validate(t *testing.T) {
	assert.NoError(t, core.DefaultAlertThresholds.Validate())
	assert.NoError(t, core.AlertThresholds{CriticalPercent: 30, HighPercent: 30}.Validate())
	assert.Error(t, core.AlertThresholds{CriticalPercent: 20, HighPercent: 30}.Validate())
	assert.Error(t, core.AlertThresholds{CriticalPercent: 20, HighPercent: -1}.Validate())
}

func TestAlertFromReorderPoint(t *testing.T) {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rp := core.CalculateReorderPoint(3, 4, core.ConsumptionStats{AvgDaily: 2, MaxDaily: 5},
		core.LeadTimeStats{Avg: 10, Max: 14}, 14)
	rp.UpdatedAt = updated

	alert, ok := core.DefaultAlertThresholds.AlertFromReorderPoint(rp)
	require.True(t, ok)
	assert.Equal(t, core.AlertCritical, alert.Level)
	assert.InDelta(t, 80.0, alert.PercentBelowROP, 1e-9)
	assert.Equal(t, 14, alert.CurrentQuantity)
	assert.Equal(t, updated, alert.Timestamp)

	// Deriving twice from unchanged data gives the same alert.
	again, ok := core.DefaultAlertThresholds.AlertFromReorderPoint(rp)
	require.True(t, ok)
	assert.Equal(t, alert, again)

	rp = core.CalculateReorderPoint(3, 4, core.ConsumptionStats{AvgDaily: 2, MaxDaily: 5},
		core.LeadTimeStats{Avg: 10, Max: 14}, 70)
	_, ok = core.DefaultAlertThresholds.AlertFromReorderPoint(rp)
	assert.False(t, ok)
}

func TestCountAlerts(t *testing.T) {
	totals := core.CountAlerts([]core.Alert{
		{Level: core.AlertCritical}, {Level: core.AlertHigh}, {Level: core.AlertHigh}, {Level: core.AlertMedium},
	})
	assert.Equal(t, &core.AlertTotals{Critical: 1, High: 2, Medium: 1}, totals)
}
