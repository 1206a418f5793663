package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/biomed-dq-validator/internal/api"
	"github.com/biomed-dq-validator/internal/archive"
	"github.com/biomed-dq-validator/internal/cache"
	"github.com/biomed-dq-validator/internal/config"
	"github.com/biomed-dq-validator/internal/logging"
	"github.com/biomed-dq-validator/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManagerFromFile(os.Getenv(config.ConfigFileEnv))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	engine, err := service.NewEngineFromConfig(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create validation engine")
	}

	store, err := archive.Open(ctx, cfg.Archive, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open report archive")
	}
	if store != nil {
		defer store.Close()
	}

	var reports *cache.ReportCache
	if cfg.Cache.Enabled {
		reports, err = cache.New(cfg.Cache, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create report cache")
		}
		defer reports.Close()
	}

	logger.WithField("environment", cfg.Environment).Info("Starting data quality validation server")

	server := api.NewServer(configManager, engine, store, reports, logger)
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		return
	}

	logger.Info("Server stopped")
}
