package db

import (
	"context"
	"fmt"
	"time"

	"procurement-engine/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// NewPool opens the write-side pgx pool used by the transactional services.
func NewPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

// NewReadDB opens the read-side handle used by search and totals queries.
// It targets READ_DATABASE_URL, which defaults to the primary.
func NewReadDB(ctx context.Context, cfg config.PostgresConfig) (*sqlx.DB, error) {
	if cfg.ReadURL == "" {
		return nil, fmt.Errorf("READ_DATABASE_URL or DATABASE_URL must be set")
	}

	rdb, err := sqlx.ConnectContext(ctx, "postgres", cfg.ReadURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect read database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		rdb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		rdb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		rdb.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
	return rdb, nil
}
