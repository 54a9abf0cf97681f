package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	mem "fintrack/internal/sheets/memory"
	"fintrack/internal/store"
	"fintrack/internal/worker"
)

func main() {
	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting fintrack-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the backup worker")
		os.Exit(1)
	}

	st, err := store.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer st.Close()

	// Without Sheets credentials the worker keeps draining the queue into an
	// in-memory appender, which is useful for local runs.
	var appender sheets.RowAppender
	if cfg.SheetsEnabled() {
		client, err := gsheet.NewFromConfig(context.Background(), cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		appender = client
		logger.Info("Google Sheets backup enabled",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		appender = mem.New()
		logger.Info("Google Sheets disabled - appending to memory only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backup := worker.NewBackupWorker(st, appender)

	go func() {
		handle := func(msg *amqp.ChangeMessage) error {
			return backup.HandleChange(ctx, msg)
		}
		if err := amqpClient.ConsumeChanges(ctx, handle); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Shutting down worker...")
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
