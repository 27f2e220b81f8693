package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/config"
	"github.com/kyosocan/demo-C-platform/internal/db"
	"github.com/kyosocan/demo-C-platform/internal/queue"
	"github.com/kyosocan/demo-C-platform/internal/repository"
	"github.com/kyosocan/demo-C-platform/internal/service"
	"github.com/kyosocan/demo-C-platform/internal/validation"
	"github.com/kyosocan/demo-C-platform/pkg/logger"
)

const brokerConnectTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Log.Error("Fill worker exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if cfg.Redis.URL == "" {
		return fmt.Errorf("redis.url is required for the fill worker")
	}
	// The worker shares state with the API server, so it only runs on Postgres.
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("the fill worker requires database.driver=%s", config.DriverPostgres)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database.Pool())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	store := repository.NewPostgresStore(pool)
	defer store.Close()

	svc := service.NewModerationService(store, validation.New(cfg.Moderation.MaxCapacity),
		service.WithDefaultCapacity(cfg.Moderation.DefaultCapacity),
		// No fill scheduler: refills triggered by fill tasks run inline.
		service.WithAutoFill(cfg.Moderation.AutoFill),
	)

	if cfg.RabbitMQ.Enabled {
		publisher, err := service.NewMessagePublisher(ctx, &cfg.RabbitMQ, brokerConnectTimeout)
		if err != nil {
			return fmt.Errorf("failed to connect event publisher: %w", err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Log.Warn("Failed to close event publisher", zap.Error(err))
			}
		}()
		svc.Events().Subscribe(publisher.Handler())
	}

	server, err := queue.NewServer(cfg.Redis.URL, cfg.Moderation.WorkerConcurrency, queue.NewFillHandler(svc))
	if err != nil {
		return fmt.Errorf("failed to create fill worker: %w", err)
	}

	var periodic *queue.PeriodicScheduler
	if cfg.Moderation.FillInterval > 0 {
		periodic, err = queue.NewPeriodicScheduler(cfg.Redis.URL, cfg.Moderation.FillInterval)
		if err != nil {
			return fmt.Errorf("failed to create periodic fill scheduler: %w", err)
		}
		if err := periodic.Start(); err != nil {
			return fmt.Errorf("failed to start periodic fill scheduler: %w", err)
		}
		defer periodic.Stop()
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start fill worker: %w", err)
	}
	logger.Log.Info("Fill worker started",
		zap.Int("concurrency", cfg.Moderation.WorkerConcurrency),
		zap.Duration("fillInterval", cfg.Moderation.FillInterval),
	)

	<-ctx.Done()
	logger.Log.Info("Shutdown signal received")
	server.Stop()
	logger.Log.Info("Fill worker stopped gracefully")
	return nil
}
