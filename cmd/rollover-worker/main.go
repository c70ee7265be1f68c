package main

import (
	"context"
	"os"
	"time"

	"qboard/internal/amqp"
	"qboard/internal/cli"
	"qboard/internal/services"
)

// The rollover worker seeds the new month's records from the previous one.
// It runs the check on startup and then once a day; the strategy decides
// what carries over.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting rollover-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	// Publish mirror messages for seeded records when AMQP is reachable.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without mirroring", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	var publisher services.ChangePublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	targetService := services.NewTargetService(sqliteRepo, sqliteRepo, sqliteRepo, publisher)

	strategy, err := services.GetRolloverStrategy(services.RolloverMode(cfg.RolloverMode))
	if err != nil {
		logger.Error("Unknown rollover mode", "error", err, "mode", cfg.RolloverMode)
		os.Exit(1)
	}
	processor := services.NewRolloverProcessor(sqliteRepo, targetService, strategy)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	runOnce := func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		created, err := processor.ProcessRollover(runCtx, time.Now())
		if err != nil {
			logger.Error("Rollover run failed", "error", err)
			return
		}
		logger.Info("Rollover run finished", "created", created, "mode", cfg.RolloverMode)
	}

	runOnce()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runOnce()
		case <-ctx.Done():
			<-done
			logger.Info("rollover-worker stopped")
			return
		}
	}
}
