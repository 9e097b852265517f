package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"procurement-engine/internal/adapters/cli"
	webAdapter "procurement-engine/internal/adapters/web"
	"procurement-engine/internal/app"
	"procurement-engine/internal/config"
	"procurement-engine/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatal("Usage: app <command> [args]\nCommands: sync-rop, sync-quotations, alerts, stocks, order, status, receive, cancel, token")
	}

	cfg := config.LoadEnv()

	// token does not need the database.
	if os.Args[1] == "token" {
		if len(os.Args) < 3 {
			log.Fatal("Usage: app token <subject> [role]")
		}
		role := "operator"
		if len(os.Args) > 3 {
			role = os.Args[3]
		}
		token, err := webAdapter.IssueToken(cfg.JWT.SecretKey, os.Args[2], role, 24*time.Hour)
		if err != nil {
			log.Fatalf("Token: %v", err)
		}
		fmt.Println(token)
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config: %v", err)
	}
	zl, err := logger.New(cfg.Logger, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	ctx := context.Background()
	svc, cleanup, err := app.Build(ctx, cfg, zl)
	if err != nil {
		log.Fatalf("Startup: %v", err)
	}
	defer cleanup()

	if err := cli.Run(ctx, svc, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		cleanup()
		log.Fatal(err)
	}
}
