package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"coupon-admin/internal/config"
	"coupon-admin/internal/database"
	"coupon-admin/internal/handler"
	"coupon-admin/internal/issuance"
	"coupon-admin/internal/lock"
	"coupon-admin/internal/model"
	"coupon-admin/internal/repository"
	"coupon-admin/internal/router"
	"coupon-admin/internal/service"
	"coupon-admin/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// shutdownTimeout bounds the HTTP drain and the wait for running jobs.
const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting coupon-admin API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize repositories
	jobRepo := repository.NewJobRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)
	operatorRepo := repository.NewOperatorRepository(pool, logger)

	if err := ensureOperators(ctx, operatorRepo, cfg.Auth.Operators, logger); err != nil {
		return err
	}

	// Initialize storage for uploaded customer lists
	store, err := newStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize the per-job run lock
	locker, closeLocker, err := newLocker(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize run lock: %w", err)
	}
	defer closeLocker()

	// Initialize background issuance
	orchestrator := issuance.NewOrchestrator(jobRepo, couponRepo, store, locker, issuance.Options{
		BatchSize:      cfg.Issuance.BatchSize,
		CouponValidity: cfg.Issuance.CouponValidity,
		RunTimeout:     cfg.Issuance.RunTimeout,
	}, logger)
	dispatcher := issuance.NewDispatcher(orchestrator, cfg.Issuance.Workers, cfg.Issuance.QueueSize, logger)
	dispatcher.Start(ctx)

	if cfg.Issuance.ResumeOnStart {
		if _, err := dispatcher.Resume(ctx, jobRepo); err != nil {
			logger.Error().Err(err).Msg("failed to resume uploaded jobs")
		}
	}

	// Initialize services
	jobService := service.NewJobService(jobRepo, operatorRepo, store, dispatcher, logger)

	// Initialize HTTP handlers
	jobHandler := handler.NewJobHandler(jobService, logger)
	fileHandler := handler.NewFileHandler(jobService, logger)

	// Initialize router
	mux := router.New(jobHandler, fileHandler, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       10 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		stopDispatcher(dispatcher, logger)
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			stopDispatcher(dispatcher, logger)
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		stopDispatcher(dispatcher, logger)
		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newStorage builds the configured storage driver. With the S3 driver and
// local fallback enabled, files missing from the bucket are read from disk.
func newStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverS3:
		s3Store, err := storage.NewS3Storage(ctx, storage.S3Options{
			Bucket:   cfg.S3.Bucket,
			Region:   cfg.S3.Region,
			Prefix:   cfg.S3.Prefix,
			Endpoint: cfg.S3.Endpoint,
		}, logger)
		if err != nil {
			return nil, err
		}
		if !cfg.Storage.LocalFallback {
			return s3Store, nil
		}
		local, err := storage.NewLocalStorage(cfg.Storage.LocalDir, logger)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("dir", cfg.Storage.LocalDir).Msg("S3 storage with local read fallback")
		return storage.NewFallbackStorage(s3Store, local, logger), nil
	default:
		logger.Info().Str("dir", cfg.Storage.LocalDir).Msg("using local file system for uploads")
		return storage.NewLocalStorage(cfg.Storage.LocalDir, logger)
	}
}

// newLocker returns a Redis-backed locker when enabled, otherwise an
// in-process one. The returned func releases the Redis client.
func newLocker(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (lock.Locker, func(), error) {
	if !cfg.Enabled {
		return lock.NewLocalLocker(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	logger.Info().Str("addr", cfg.Addr).Dur("ttl", cfg.LockTTL).Msg("using redis run lock")
	return lock.NewRedisLocker(client, cfg.LockTTL, logger), func() {
		if err := client.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}, nil
}

// ensureOperators creates the configured operators that do not exist yet.
func ensureOperators(ctx context.Context, repo repository.OperatorRepository, names []string, logger zerolog.Logger) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := repo.GetByName(ctx, name); err == nil {
			continue
		} else if !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("failed to look up operator %q: %w", name, err)
		}
		if _, err := repo.Create(ctx, name); err != nil && !errors.Is(err, model.ErrConflict) {
			return fmt.Errorf("failed to create operator %q: %w", name, err)
		}
		logger.Info().Str("operator", name).Msg("operator created")
	}
	return nil
}

func stopDispatcher(d *issuance.Dispatcher, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := d.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("issuance jobs did not finish before shutdown")
	}
}
