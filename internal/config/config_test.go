package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/procurement")
	for _, key := range []string{"READ_DATABASE_URL", "SERVER_PORT", "KAFKA_BROKERS", "ALERT_CRITICAL_PERCENT", "ALERT_HIGH_PERCENT"} {
		t.Setenv(key, "")
	}

	cfg := LoadEnv()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/procurement", cfg.Postgres.ReadURL)
	assert.Equal(t, 50.0, cfg.Alerts.CriticalPercent)
	assert.Equal(t, 25.0, cfg.Alerts.HighPercent)
	assert.Empty(t, cfg.Kafka.Brokers)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://primary/db")
	t.Setenv("READ_DATABASE_URL", "postgres://replica/db")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ALERT_CRITICAL_PERCENT", "60")
	t.Setenv("ALERT_HIGH_PERCENT", "30.5")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := LoadEnv()

	assert.Equal(t, "postgres://replica/db", cfg.Postgres.ReadURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 60.0, cfg.Alerts.CriticalPercent)
	assert.Equal(t, 30.5, cfg.Alerts.HighPercent)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		expectErr bool
	}{
		{
			name:      "missing database url",
			cfg:       Config{Alerts: AlertConfig{CriticalPercent: 50, HighPercent: 25}},
			expectErr: true,
		},
		{
			name: "critical below high",
			cfg: Config{
				Postgres: PostgresConfig{URL: "postgres://x"},
				Alerts:   AlertConfig{CriticalPercent: 20, HighPercent: 25},
			},
			expectErr: true,
		},
		{
			name: "equal thresholds",
			cfg: Config{
				Postgres: PostgresConfig{URL: "postgres://x"},
				Alerts:   AlertConfig{CriticalPercent: 40, HighPercent: 40},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
