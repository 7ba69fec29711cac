package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"pulseboard/internal/amqp"
	"pulseboard/internal/config"
	gsheet "pulseboard/internal/sheets/google"
	"pulseboard/internal/storage"
	"pulseboard/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting pulseboard-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
		SalesTab:        cfg.GoogleSalesTab,
		SessionsTab:     cfg.GoogleSessionsTab,
		PayrollTab:      cfg.GooglePayrollTab,
		ClientsTab:      cfg.GoogleClientsTab,
		LeadsTab:        cfg.GoogleLeadsTab,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refreshWorker := worker.NewRefreshWorker(sheetsClient, repo)

	// Populate the mirror before accepting work.
	logger.Info("Performing startup refresh")
	refreshWorker.StartupRefresh(ctx)

	go func() {
		err := amqpClient.ConsumeRefreshRequests(ctx, func(msg *amqp.RefreshRequestMessage) error {
			return refreshWorker.HandleRefreshMessage(ctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
			cancel()
		}
	}()

	// Scheduled refreshes keep the mirror current even when nobody
	// presses the refresh button.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RefreshCron, func() {
		if err := refreshWorker.Refresh(ctx); err != nil {
			logger.Error("Scheduled refresh failed", "error", err)
		}
	}); err != nil {
		logger.Error("Failed to schedule periodic refresh", "error", err, "cron", cfg.RefreshCron)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Periodic refresh scheduled", "cron", cfg.RefreshCron)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	cancel()
	<-scheduler.Stop().Done()
	logger.Info("Worker stopped gracefully")
}
