package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/biomed-dq-validator/internal/config"
	"github.com/biomed-dq-validator/internal/logging"
	"github.com/biomed-dq-validator/internal/mcp"
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

	// stdout carries the protocol
	logCfg := cfg.Logging
	if logCfg.Output == "" || logCfg.Output == logging.OutputStdout {
		logCfg.Output = logging.OutputStderr
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	engine, err := service.NewEngineFromConfig(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create validation engine")
	}

	mcpServer, err := mcp.NewServer(engine, cfg.MCP, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := mcpServer.Run(ctx); err != nil {
		logger.WithError(err).Error("MCP server stopped with error")
		return
	}

	logger.Info("Data quality MCP server stopped")
}
