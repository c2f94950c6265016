// Package main provides the API server entry point for the NFT inventory
// service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nft-inventory/internal/adapter"
	"github.com/nft-inventory/internal/api"
	"github.com/nft-inventory/internal/auth"
	"github.com/nft-inventory/internal/config"
	"github.com/nft-inventory/internal/logging"
	"github.com/nft-inventory/internal/service"
	"github.com/nft-inventory/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), logging.ParseFormat(cfg.Logging.Format))
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	// Initialize database connections
	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer clickhouse.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	// Initialize the ledger client
	ledger, err := adapter.NewBlockfrostClient(cfg.Blockfrost.BaseURL, cfg.Blockfrost.ProjectID, cfg.Blockfrost.Timeout)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Blockfrost client")
	}

	// Initialize storage layers
	profileStore := storage.NewProfileStore(postgres, logger)
	inventoryCache := storage.NewInventoryCache(redis, cfg.Cache.TTL, logger)
	transferLog := storage.NewTransferLog(clickhouse)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := transferLog.EnsureSchema(ctx); err != nil {
		cancel()
		logger.WithError(err).Fatal("Failed to prepare ownership event log")
	}
	cancel()

	// Initialize services
	logger.Info("Initializing services...")

	reconciler := service.NewReconciler(profileStore, transferLog, logger, cfg.Sync.ActiveSetCap)
	syncService := service.NewSyncService(ledger, profileStore, inventoryCache, reconciler, logger, cfg.Sync.MetadataConcurrency)
	inventoryService := service.NewInventoryService(profileStore, inventoryCache, transferLog, logger)
	claimService := service.NewClaimService(ledger, profileStore, inventoryCache, reconciler, syncService, logger,
		cfg.RateLimit.ClaimMaxPerWindow, cfg.RateLimit.ClaimWindow)

	verifier := auth.NewStaticVerifier(cfg.Auth.Tokens)

	logger.Info("Services initialized")

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimitRPS:    cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst:  cfg.RateLimit.Burst,
	}

	server := api.NewServer(serverConfig, syncService, inventoryService, claimService, verifier, logger)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
