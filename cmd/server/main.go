package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/config"
	handler "github.com/Harsh-BH/Lumina/internal/delivery/http"
	"github.com/Harsh-BH/Lumina/internal/provider"
	"github.com/Harsh-BH/Lumina/internal/provider/fal"
	"github.com/Harsh-BH/Lumina/internal/publisher"
	"github.com/Harsh-BH/Lumina/internal/repository/postgres"
	redisrepo "github.com/Harsh-BH/Lumina/internal/repository/redis"
	"github.com/Harsh-BH/Lumina/internal/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting Lumina API Server")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()

	// Connect to PostgreSQL
	dbPool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()
	logger.Info("Connected to PostgreSQL")

	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Database migrations applied", zap.String("source", cfg.Database.MigrationsPath))
	}

	// Connect to Redis
	rdb, err := redisrepo.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()
	logger.Info("Connected to Redis")

	// Initialize RabbitMQ publisher
	pub, err := publisher.NewRabbitMQPublisher(cfg.RabbitMQ.URL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize RabbitMQ publisher", zap.Error(err))
	}
	defer pub.Close()
	logger.Info("Connected to RabbitMQ")

	if cfg.Provider.APIKey == "" {
		logger.Warn("FAL_KEY is not set; provider submissions will be rejected")
	}
	if cfg.Webhook.Secret == "" {
		logger.Warn("WEBHOOK_SECRET is not set; webhook signatures are not verified")
	}

	// Inference provider behind a circuit breaker
	gateway := provider.NewGuarded(fal.NewClient(fal.Config{
		BaseURL:         cfg.Provider.BaseURL,
		APIKey:          cfg.Provider.APIKey,
		TrainingModel:   cfg.Provider.TrainingModel,
		GenerationModel: cfg.Provider.GenerationModel,
		WebhookBaseURL:  cfg.Webhook.BaseURL,
		Timeout:         cfg.Provider.Timeout,
	}), provider.BreakerConfig{
		Threshold: cfg.Provider.BreakerThreshold,
		Cooldown:  cfg.Provider.BreakerCooldown,
	}, logger)

	// Initialize repositories
	trainingRepo := postgres.NewPostgresTrainingRepository(dbPool)
	generationRepo := postgres.NewPostgresGenerationRepository(dbPool)
	packRepo := postgres.NewPostgresPackRepository(dbPool)
	submissionKeys := redisrepo.NewRedisSubmissionKeys(rdb, cfg.Redis.IdempotencyTTL)

	// Initialize use cases
	submitGeneration := usecase.NewSubmitGenerationUsecase(trainingRepo, generationRepo, gateway, logger)
	uc := handler.Usecases{
		SubmitTraining:   usecase.NewSubmitTrainingUsecase(trainingRepo, gateway, logger),
		SubmitGeneration: submitGeneration,
		SubmitPack:       usecase.NewSubmitPackUsecase(packRepo, submitGeneration, cfg.Pack.FanoutConcurrency, logger),
		Reconcile:        usecase.NewReconcileWebhookUsecase(trainingRepo, generationRepo, pub, logger),
		Query:            usecase.NewQueryUsecase(trainingRepo, generationRepo, packRepo, logger),
		Idempotency:      usecase.NewIdempotencyGuard(submissionKeys, logger),
	}

	// Initialize router
	router := handler.NewRouter(uc, handler.RouterConfig{
		RateLimitPerMin: cfg.Server.RateLimit,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		DefaultOwnerID:  cfg.Auth.DefaultOwnerID,
		WebhookSecret:   cfg.Webhook.Secret,
		HealthChecks: map[string]handler.HealthCheck{
			"postgres": dbPool.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"rabbitmq": pub.Ping,
		},
	}, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("API server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}
