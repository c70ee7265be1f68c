package main

import (
	"context"
	"os"
	"time"

	"qboard/internal/amqp"
	"qboard/internal/cli"
	gsheet "qboard/internal/mirror/google"
	"qboard/internal/services"
	"qboard/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting qboard-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	// The mirror target is optional: without a spreadsheet id the worker
	// starts but leaves the queue untouched so messages survive until a
	// mirror-enabled worker picks them up.
	var mirrorClient *gsheet.Client
	if cfg.GoogleSpreadsheetID != "" {
		var err error
		mirrorClient, err = gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Mirroring disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mirrorWorker *worker.MirrorWorker
	if mirrorClient != nil {
		mirrorWorker = worker.NewMirrorWorker(sqliteRepo, mirrorClient, cfg.MirrorBatchSize)

		// Pick up anything that accumulated while the worker was down.
		logger.Info("Performing startup mirror check...")
		if err := mirrorWorker.StartupCheck(ctx); err != nil {
			logger.Error("Startup mirror check failed", "error", err)
			// Keep running; the poll loop retries.
		}
	}

	if mirrorWorker != nil {
		go func() {
			err := amqpClient.ConsumeRecordChanges(ctx, func(msg *amqp.RecordChangeMessage) error {
				return mirrorWorker.HandleMessage(ctx, msg)
			})
			if err != nil && err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}()

		// Poll-based safety net behind the message path.
		processor := services.NewMirrorProcessor(sqliteRepo, mirrorClient, services.MirrorProcessorConfig{
			PollInterval: cfg.MirrorInterval,
			BatchSize:    cfg.MirrorBatchSize,
		})
		if err := processor.Start(ctx); err != nil {
			logger.Error("Failed to start mirror processor", "error", err)
			os.Exit(1)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := processor.Stop(stopCtx); err != nil {
				logger.Error("Mirror processor stop failed", "error", err)
			}
		}()
	} else {
		logger.Info("Skipping mirror pipeline - no mirror target available")
	}

	_, done := cli.GracefulShutdown(logger, 15*time.Second, cancel)
	<-ctx.Done()
	select {
	case <-done:
	case <-time.After(15 * time.Second):
	}
	logger.Info("qboard-worker stopped")
}
