package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"rentals/internal/config"
	"rentals/internal/database"
	"rentals/internal/pkg/logger"
	"rentals/internal/repository"
)

func main() {
	keepEvents := flag.Duration("keep-events", 30*24*time.Hour, "how long settled webhook events are kept")
	keepNotifications := flag.Duration("keep-notifications", 90*24*time.Hour, "how long read notifications are kept")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	now := time.Now().UTC()

	events, err := repository.NewWebhookEventRepository(db).PruneSettled(ctx, now.Add(-*keepEvents))
	if err != nil {
		log.Fatal("webhook journal cleanup failed", zap.Error(err))
	}
	notifs, err := repository.NewNotificationRepository(db).DeleteReadOlderThan(ctx, now.Add(-*keepNotifications))
	if err != nil {
		log.Fatal("notification cleanup failed", zap.Error(err))
	}

	log.Info("cleanup completed",
		zap.Int64("webhook_events", events),
		zap.Int64("notifications", notifs),
		zap.Duration("took", time.Since(now)),
	)
}
