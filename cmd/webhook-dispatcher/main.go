// Package main is the entry point for the webhook dispatcher.
// It consumes completion messages from the broker and delivers signed
// result payloads to each tenant's webhook endpoint with retries.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vietcms/moderation/internal/broker"
	"github.com/vietcms/moderation/internal/config"
	"github.com/vietcms/moderation/internal/database"
	"github.com/vietcms/moderation/internal/dispatcher"
	"github.com/vietcms/moderation/internal/logging"
	"github.com/vietcms/moderation/internal/repository"
	"github.com/vietcms/moderation/internal/version"
)

func main() {
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting webhook-dispatcher",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseDSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db)

	mq, err := broker.Connect(cfg.BrokerURL(), logger)
	if err != nil {
		logger.Error("failed to connect to message broker", "error", err)
		os.Exit(1)
	}
	defer func() { _ = mq.Close() }()

	d := dispatcher.New(
		repos.Clients,
		repos.WebhookAttempts,
		mq,
		dispatcher.Config{
			Timeout:     cfg.WebhookTimeout,
			MaxAttempts: cfg.WebhookMaxRetries,
		},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		logger.Error("failed to start dispatcher", "error", err)
		os.Exit(1)
	}
	logger.Info("dispatcher started",
		"timeout", cfg.WebhookTimeout.String(),
		"max_attempts", cfg.WebhookMaxRetries,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	logger.Info("shutting down dispatcher")
	cancel()
	d.Stop()
	logger.Info("dispatcher stopped")
}
