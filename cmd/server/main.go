package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	webAdapter "procurement-engine/internal/adapters/web"
	"procurement-engine/internal/app"
	"procurement-engine/internal/config"
	"procurement-engine/internal/logger"
	"procurement-engine/internal/telemetry"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	cfg := config.LoadEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Logger, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry, version)
	if err != nil {
		zl.Fatal("telemetry", zap.Error(err))
	}

	svc, cleanup, err := app.Build(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("startup", zap.Error(err))
	}
	defer cleanup()

	if cfg.JWT.SecretKey == "" {
		zl.Warn("JWT_SECRET is not set; API routes are unauthenticated")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           webAdapter.NewHandler(svc, zl, cfg.Server.AllowedOrigins, cfg.JWT.SecretKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Server.AppEnv))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("server", zap.Error(err))
		}
	case <-ctx.Done():
		zl.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zl.Error("tracer shutdown", zap.Error(err))
	}
}
