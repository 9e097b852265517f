package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Postgres  PostgresConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Webhook   WebhookConfig
	Telemetry TelemetryConfig
	Alerts    AlertConfig
}

type ServerConfig struct {
	AppEnv         string
	Port           string
	AllowedOrigins string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

// PostgresConfig holds the write-side DSN and an optional read replica DSN.
// ReadURL falls back to URL when unset.
type PostgresConfig struct {
	URL             string
	ReadURL         string
	MaxConns        int
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

type JWTConfig struct {
	SecretKey string
}

// RedisConfig is optional; an empty Addr selects the in-process lock.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig is optional; no brokers means order events are only logged.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type WebhookConfig struct {
	AlertURL string
	Timeout  time.Duration
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// AlertConfig holds the percent-below-ROP thresholds for alert levels.
type AlertConfig struct {
	CriticalPercent float64
	HighPercent     float64
}

func LoadEnv() *Config {
	dbURL := getEnv("DATABASE_URL", "")
	readURL := getEnv("READ_DATABASE_URL", "")
	if readURL == "" {
		readURL = dbURL
	}
	return &Config{
		Server: ServerConfig{
			AppEnv:         getEnv("APP_ENV", "development"),
			Port:           getEnv("SERVER_PORT", "8080"),
			AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "info"),
			Encoding:          getEnv("LOGGER_ENCODING", "json"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Postgres: PostgresConfig{
			URL:             dbURL,
			ReadURL:         readURL,
			MaxConns:        getEnvInt("POSTGRES_MAX_CONNS", 10),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC_ORDERS", "procurement.orders"),
		},
		Webhook: WebhookConfig{
			AlertURL: getEnv("ALERT_WEBHOOK_URL", ""),
			Timeout:  time.Duration(getEnvInt("ALERT_WEBHOOK_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnvBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("SERVICE_NAME", "procurement-engine"),
		},
		Alerts: AlertConfig{
			CriticalPercent: getEnvFloat("ALERT_CRITICAL_PERCENT", 50),
			HighPercent:     getEnvFloat("ALERT_HIGH_PERCENT", 25),
		},
	}
}

// IsDevelopment reports whether APP_ENV selects development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.AppEnv == "dev"
}

// Validate rejects configurations the services cannot start with.
func (c *Config) Validate() error {
	if c.Postgres.URL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if c.Alerts.HighPercent < 0 || c.Alerts.CriticalPercent < c.Alerts.HighPercent {
		return fmt.Errorf("alert thresholds must satisfy 0 <= ALERT_HIGH_PERCENT (%g) <= ALERT_CRITICAL_PERCENT (%g)",
			c.Alerts.HighPercent, c.Alerts.CriticalPercent)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
