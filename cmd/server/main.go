// Package main provides the console API server entry point.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vault-console/internal/adapter"
	"github.com/vault-console/internal/api"
	"github.com/vault-console/internal/config"
	"github.com/vault-console/internal/export"
	"github.com/vault-console/internal/logging"
	"github.com/vault-console/internal/retry"
	"github.com/vault-console/internal/service"
	"github.com/vault-console/internal/session"
	"github.com/vault-console/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	if cfg.Vault.BaseURL == "" {
		logger.Fatal("VAULT_URL is required")
	}

	ctx := logging.WithLogger(context.Background(), logger)

	// Optional stores. Each one is retried at startup and skipped when disabled.
	var (
		lists     *storage.ListCache
		audit     service.AuditRecorder
		observers []export.Observer
		statuses  api.ExportStatusStore
	)

	if cfg.Database.Redis.Enabled {
		var redis *storage.RedisCache
		err := retry.Do(ctx, retry.DefaultConfig(), func(context.Context, int) error {
			var err error
			redis, err = storage.NewRedisCache(&cfg.Database.Redis)
			return err
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redis.Close()

		lists = storage.NewListCache(redis, cfg.Cache.TTL)
		tracker := storage.NewExportTracker(redis, cfg.Export.TrackerTTL)
		observers = append(observers, tracker)
		statuses = tracker
		logger.Info("Redis list cache and export tracker enabled")
	} else {
		tracker := export.NewMemoryTracker()
		observers = append(observers, tracker)
		statuses = tracker
		logger.Warn("Redis disabled - lists are not cached and export state lives in memory")
	}

	if cfg.Database.Postgres.Enabled {
		var postgres *storage.PostgresDB
		err := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context, _ int) error {
			var err error
			postgres, err = storage.NewPostgresDB(ctx, &cfg.Database.Postgres)
			return err
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Postgres")
		}
		defer postgres.Close()

		audit = storage.NewModerationAuditRepository(postgres)
		logger.Info("Moderation audit log enabled")
	}

	if cfg.Database.ClickHouse.Enabled {
		var clickhouse *storage.ClickHouseDB
		err := retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context, _ int) error {
			var err error
			clickhouse, err = storage.NewClickHouseDB(ctx, &cfg.Database.ClickHouse)
			return err
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to ClickHouse")
		}
		defer clickhouse.Close()

		observers = append(observers, storage.NewExportEventRepository(clickhouse))
		logger.Info("Export event history enabled")
	}

	// Backends
	sess := session.NewState(cfg.Vault.Token, func() {
		logger.Warn("Vault session expired - set a fresh VAULT_TOKEN")
	})
	vault := adapter.NewVaultClient(adapter.VaultConfig{
		BaseURL: cfg.Vault.BaseURL,
		APIKey:  cfg.Vault.APIKey,
		Timeout: cfg.Vault.Timeout,
		RPS:     cfg.Vault.RPS,
	}, sess)
	iam := adapter.NewIAMClient(cfg.IAM.BaseURL, cfg.IAM.APIKey, cfg.IAM.Timeout)

	// Services
	downloads := export.NewRecordingDownloader()
	poller := export.NewPoller(vault, downloads, export.Config{
		Interval:    cfg.Export.PollInterval,
		MaxAttempts: cfg.Export.MaxAttempts,
		Timeout:     cfg.Export.Timeout,
	}, observers...)
	defer poller.Shutdown()

	services := api.Services{
		Tokens:       service.NewTokenService(vault, lists, audit),
		Analytics:    service.NewAnalyticsService(vault),
		Waitlist:     service.NewWaitlistService(iam, lists, time.Local),
		Exports:      poller,
		ExportStatus: statuses,
		Downloads:    downloads,
	}

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RateLimitRPS:    cfg.RateLimit.RPS,
		RateLimitBurst:  cfg.RateLimit.Burst,
		PageSize:        cfg.List.PageSize,
	}
	server := api.NewServer(serverConfig, services, logger)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	logger.Info("Server exited")
}
