package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/config"
	amqpdelivery "github.com/Harsh-BH/Lumina/internal/delivery/amqp"
	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/notifier"
	"github.com/Harsh-BH/Lumina/internal/pool"
	redisrepo "github.com/Harsh-BH/Lumina/internal/repository/redis"
	"github.com/Harsh-BH/Lumina/internal/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting Lumina Event Relay Worker")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to Redis
	redisClient, err := redisrepo.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	idempotencyStore := redisrepo.NewRedisIdempotencyStore(redisClient, cfg.Worker.DedupTTL)

	// Subscriber: signed CloudEvents when NOTIFY_URL is set, log lines otherwise
	var n notifier.Notifier
	if cfg.Notifier.URL != "" {
		n = notifier.NewHTTPNotifier(notifier.Config{
			URL:        cfg.Notifier.URL,
			SigningKey: cfg.Notifier.SigningKey,
			Source:     cfg.Notifier.Source,
			Timeout:    cfg.Notifier.Timeout,
		})
		logger.Info("Relaying job events over HTTP", zap.String("url", cfg.Notifier.URL))
	} else {
		n = notifier.NewLogNotifier(logger)
		logger.Warn("NOTIFY_URL is not set; job events are only logged")
	}

	relayUC := usecase.NewRelayEventUsecase(idempotencyStore, n, logger)

	// Create buffered event channel
	events := make(chan *domain.JobEventMessage, cfg.Worker.PoolSize*2)

	// Initialize AMQP consumer
	consumer, err := amqpdelivery.NewConsumer(cfg.RabbitMQ.URL, cfg.Worker.PoolSize, events, logger)
	if err != nil {
		logger.Fatal("Failed to initialize AMQP consumer", zap.Error(err))
	}
	defer consumer.Close()
	logger.Info("Connected to RabbitMQ")

	// Start worker pool
	workerPool := pool.NewWorkerPool(cfg.Worker.PoolSize, events, relayUC, logger)
	workerPool.Start(ctx)

	// Start AMQP consumer in a goroutine
	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error("AMQP consumer error", zap.Error(err))
			cancel()
		}
	}()

	// Start Prometheus metrics server
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Metrics server listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Wait for workers to finish in-flight events
	workerPool.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Metrics server shutdown failed", zap.Error(err))
	}

	logger.Info("Worker stopped")
}
