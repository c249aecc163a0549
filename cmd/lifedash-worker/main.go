package main

import (
	"context"
	"errors"
	"os"
	"time"

	"lifedash/internal/amqp"
	"lifedash/internal/cli"
	applog "lifedash/internal/log"
	"lifedash/internal/services"
	"lifedash/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(applog.ComponentWorker, cfg.LogLevel)

	logger.Info("Starting lifedash-worker")

	if cfg.DataBackend != "sqlite" {
		logger.Error("The snapshot worker requires the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	trends := services.NewTrendService(repo, services.TrendServiceConfig{
		CacheSize: cfg.TrendCacheSize,
		CacheTTL:  cfg.TrendCacheTTL,
		Location:  cfg.Location(),
	})
	snapshots := worker.NewSnapshotWorker(repo, trends)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		amqpClient = client
	} else {
		logger.Info("AMQP disabled, rebuilding on the interval only", "interval", cfg.SnapshotInterval)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
	})

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeRecordChanged(ctx, snapshots.HandleRecordChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	}

	snapshots.Run(ctx, cfg.SnapshotInterval)

	cli.WaitForShutdown(ctx, done)
	if err := repo.Close(); err != nil {
		logger.Error("SQLite close error", "error", err)
	}
	logger.Info("Worker stopped gracefully")
}
