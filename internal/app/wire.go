package app

import (
	"context"
	"fmt"

	"procurement-engine/internal/config"
	"procurement-engine/internal/core"
	"procurement-engine/internal/db"
	"procurement-engine/internal/events"
	"procurement-engine/internal/lock"
	"procurement-engine/internal/notify"
	"procurement-engine/internal/reporting"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Build connects to every backing service named in cfg and returns the
// ApplicationService along with a cleanup function that closes them.
// Optional backends (Redis, Kafka, webhook) fall back to their in-process
// variants when unconfigured.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (ApplicationService, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	pool, err := db.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("write database: %w", err)
	}
	closers = append(closers, pool.Close)

	readDB, err := db.NewReadDB(ctx, cfg.Postgres)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("read database: %w", err)
	}
	closers = append(closers, func() { _ = readDB.Close() })

	thresholds := core.AlertThresholds{
		CriticalPercent: cfg.Alerts.CriticalPercent,
		HighPercent:     cfg.Alerts.HighPercent,
	}
	if err := thresholds.Validate(); err != nil {
		cleanup()
		return nil, nil, err
	}

	deps := Deps{
		DB:            pool,
		Catalog:       core.NewCatalogService(pool),
		Inventory:     core.NewInventoryService(pool),
		Quotations:    core.NewQuotationService(pool),
		ReorderPoints: core.NewReorderPointService(pool, thresholds),
		Orders:        core.NewOrderService(pool),
		Ledger:        core.NewLedgerService(pool),
		Reports:       reporting.NewService(readDB),
		Log:           log,
	}

	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		deps.Events = pub
		closers = append(closers, func() {
			if err := pub.Close(); err != nil {
				log.Warn("closing kafka writer", zap.Error(err))
			}
		})
		log.Info("order events go to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	if cfg.Webhook.AlertURL != "" {
		deps.Notifier = notify.NewWebhookNotifier(cfg.Webhook.AlertURL, cfg.Webhook.Timeout, log)
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			cleanup()
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		deps.Locker = lock.NewRedisLocker(client, "procurement:")
		closers = append(closers, func() { _ = client.Close() })
	}

	return NewAppService(deps), cleanup, nil
}
