package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kyosocan/demo-C-platform/internal/config"
	"github.com/kyosocan/demo-C-platform/internal/db"
	"github.com/kyosocan/demo-C-platform/internal/handler"
	"github.com/kyosocan/demo-C-platform/internal/middleware"
	"github.com/kyosocan/demo-C-platform/internal/queue"
	"github.com/kyosocan/demo-C-platform/internal/repository"
	"github.com/kyosocan/demo-C-platform/internal/scheduler"
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
		logger.Log.Error("Server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := []service.Option{
		service.WithAutoFill(cfg.Moderation.AutoFill),
		service.WithDefaultCapacity(cfg.Moderation.DefaultCapacity),
	}

	if cfg.Redis.URL != "" {
		redisOpts, err := queue.RedisOptions(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()

		listCache := service.NewRedisListCache(redisClient, cfg.Redis.CacheTTL)
		if err := listCache.LoadFromStore(ctx, store); err != nil {
			logger.Log.Warn("Failed to warm publisher list cache", zap.Error(err))
		}
		opts = append(opts, service.WithListCache(listCache))
		logger.Log.Info("Publisher list cache backed by Redis")
	} else {
		opts = append(opts, service.WithListCache(service.NewLocalListCache(cfg.Redis.CacheTTL, 2*cfg.Redis.CacheTTL)))
	}

	var queueClient *queue.Client
	if cfg.Moderation.FillViaQueue {
		queueClient, err = queue.NewClient(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to create queue client: %w", err)
		}
		defer queueClient.Close()
		opts = append(opts, service.WithFillScheduler(queueClient))
		logger.Log.Info("Refills are handed to the fill worker")
	}

	svc := service.NewModerationService(store, validation.New(cfg.Moderation.MaxCapacity), opts...)

	var broker handler.BrokerHealth
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
		broker = publisher
	}

	if cfg.Moderation.SeedDemoData {
		if err := svc.SeedDemoData(ctx); err != nil {
			logger.Log.Warn("Failed to seed demo data", zap.Error(err))
		}
	}
	svc.RefreshGauges(ctx)

	// Items that arrived while no worker was sweeping are picked up now
	// instead of at the next periodic tick.
	if queueClient != nil {
		if err := queueClient.EnqueueFillAll(ctx); err != nil {
			logger.Log.Warn("Failed to enqueue startup fill sweep", zap.Error(err))
		}
	}

	// With the queue enabled the worker's periodic task owns the sweep.
	if cfg.Moderation.FillInterval > 0 && !cfg.Moderation.FillViaQueue {
		ticker, err := scheduler.NewFillTicker(svc, cfg.Moderation.FillInterval, cfg.Moderation.FillInterval)
		if err != nil {
			return err
		}
		ticker.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := ticker.Stop(stopCtx); err != nil {
				logger.Log.Warn("Fill ticker did not stop in time", zap.Error(err))
			}
		}()
	}

	if len(cfg.Auth.AdminKeys) == 0 {
		logger.Log.Warn("No admin API keys configured - admin endpoints will reject all requests")
	}

	gin.SetMode(cfg.Server.Mode)
	router := handler.NewRouter(handler.RouterConfig{
		Service: svc,
		Health:  handler.NewHealthHandler(store, broker),
		Auth:    middleware.NewAPIKeyAuth(cfg.Auth.AdminKeys, cfg.Auth.ReviewerKeys).Middleware(),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("driver", cfg.Database.Driver),
		)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Graceful shutdown failed", zap.Error(err))
		if err := server.Close(); err != nil {
			logger.Log.Error("Failed to close server", zap.Error(err))
		}
		return err
	}

	logger.Log.Info("Server stopped gracefully")
	return nil
}

func openStore(ctx context.Context, cfg *config.DatabaseConfig) (repository.Store, error) {
	if cfg.Driver != config.DriverPostgres {
		logger.Log.Info("Using in-memory store")
		return repository.NewMemoryStore(), nil
	}

	pool, err := db.NewPool(ctx, cfg.Pool())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Log.Info("Database connection established",
		zap.Int32("maxConns", pool.Config().MaxConns),
	)
	return repository.NewPostgresStore(pool), nil
}
