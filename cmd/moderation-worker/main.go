// Package main is the entry point for the moderation worker.
// It consumes queued jobs from the broker, runs the three-layer Vietnamese
// classifier, persists results, and publishes completion messages.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vietcms/moderation/internal/broker"
	"github.com/vietcms/moderation/internal/config"
	"github.com/vietcms/moderation/internal/database"
	"github.com/vietcms/moderation/internal/logging"
	"github.com/vietcms/moderation/internal/moderation"
	"github.com/vietcms/moderation/internal/repository"
	"github.com/vietcms/moderation/internal/version"
	"github.com/vietcms/moderation/internal/worker"
)

func main() {
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting moderation-worker",
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

	// Text pipeline is shared; image and audio route their recovered text
	// through it. No OCR or ASR backends are wired in this deployment.
	thresholds := moderation.DefaultThresholds()
	if cfg.ConfidenceThreshold > 0 {
		thresholds.Reject = cfg.ConfidenceThreshold
	}
	text := moderation.NewPipeline(moderation.NewLexiconModel(), thresholds, logger)
	image := moderation.NewImagePipeline(nil, nil, text)
	audio := moderation.NewAudioPipeline(nil, text)

	jobWorker := worker.New(
		repos.Jobs,
		mq,
		mq,
		text,
		image,
		audio,
		worker.Config{
			Concurrency:  cfg.WorkerConcurrency,
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
		},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := jobWorker.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}
	logger.Info("worker started",
		"concurrency", cfg.WorkerConcurrency,
		"batch_size", cfg.BatchSize,
		"batch_timeout", cfg.BatchTimeout.String(),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	logger.Info("shutting down worker")
	cancel()
	jobWorker.Stop()
	logger.Info("worker stopped")
}
