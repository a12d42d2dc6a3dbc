package main

import (
	"context"
	"os"
	"time"

	"maasser/internal/amqp"
	"maasser/internal/cli"
	"maasser/internal/config"
	"maasser/internal/repository"
	gsheet "maasser/internal/sheets/google"
	"maasser/internal/worker"
)

func main() {
	cfg, logger := cli.LoadConfig((*config.Config).ValidateWorker)
	logger.Info("Starting maasser-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if cfg.DataBackend == "memory" {
		logger.Warn("Worker reads an in-memory store; only demo records will resolve")
	}
	store := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	journal, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetBase:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	exporter := worker.NewExportWorker(repository.New(store.Store, logger), journal, logger)

	err = cli.Run(ctx, logger, 30*time.Second,
		func(ctx context.Context) error {
			return client.ConsumeRecordChanged(ctx, exporter.HandleRecordChanged)
		},
		nil)
	if err != nil {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
