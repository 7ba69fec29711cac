package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pulseboard/internal/amqp"
	"pulseboard/internal/config"
	apphttp "pulseboard/internal/http"
	ports "pulseboard/internal/sheets"
	gsheet "pulseboard/internal/sheets/google"
	mem "pulseboard/internal/sheets/memory"
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

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var (
		source    ports.Source
		refresher apphttp.Refresher
	)

	switch cfg.DataBackend {
	case "sheets":
		cli, err := gsheet.New(context.Background(), googleConfig(cfg))
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err, "backend", cfg.DataBackend)
			os.Exit(1)
		}
		source = cli
		logger.Info("Initialized Google Sheets backend", "backend", cfg.DataBackend, "spreadsheet_id", cfg.GoogleSpreadsheetID)

	case "sqlite":
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		source = repo

		// With credentials available the server can refresh the mirror
		// itself when no broker is reachable.
		if cfg.GoogleSpreadsheetID != "" {
			cli, err := gsheet.New(context.Background(), googleConfig(cfg))
			if err != nil {
				logger.Warn("Google Sheets client unavailable, relying on worker refreshes", "error", err)
			} else {
				refresher = worker.NewRefreshWorker(cli, repo)
			}
		}
		logger.Info("Initialized SQLite backend", "backend", cfg.DataBackend, "path", cfg.SQLiteDBPath)

	default:
		source = mem.NewSeeded()
		logger.Info("Initialized memory backend", "backend", cfg.DataBackend)
	}

	opts := apphttp.Options{
		CacheTTL:       cfg.CacheTTL,
		CacheSize:      cfg.CacheSize,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Refresher:      refresher,
	}

	if cfg.AMQPURL != "" && cfg.DataBackend != "memory" {
		mq, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, refresh requests run in-process", "error", err)
		} else {
			defer mq.Close()
			opts.Publisher = mq
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, source, opts)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting pulseboard server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

func googleConfig(cfg *config.Config) gsheet.Config {
	return gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		CredentialsFile: cfg.GoogleCredentialsFile,
		SalesTab:        cfg.GoogleSalesTab,
		SessionsTab:     cfg.GoogleSessionsTab,
		PayrollTab:      cfg.GooglePayrollTab,
		ClientsTab:      cfg.GoogleClientsTab,
		LeadsTab:        cfg.GoogleLeadsTab,
	}
}
