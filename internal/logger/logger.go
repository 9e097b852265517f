package logger

import (
	"procurement-engine/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Development mode switches to console output
// at debug level regardless of the configured encoding.
func New(cfg config.LoggerConfig, development bool) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	zc := zap.NewProductionConfig()
	if development {
		zc = zap.NewDevelopmentConfig()
		level.SetLevel(zapcore.DebugLevel)
	} else if cfg.Encoding != "" {
		zc.Encoding = cfg.Encoding
	}
	zc.Level = level
	zc.DisableCaller = cfg.DisableCaller
	zc.DisableStacktrace = cfg.DisableStacktrace
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build()
}

// Must is New for callers that cannot continue without a logger.
func Must(cfg config.LoggerConfig, development bool) *zap.Logger {
	l, err := New(cfg, development)
	if err != nil {
		panic("logger: " + err.Error())
	}
	return l
}
