package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/delivery/http/middleware"
	"github.com/Harsh-BH/Lumina/internal/usecase"
)

// Usecases groups what the HTTP layer drives.
type Usecases struct {
	SubmitTraining   *usecase.SubmitTrainingUsecase
	SubmitGeneration *usecase.SubmitGenerationUsecase
	SubmitPack       *usecase.SubmitPackUsecase
	Reconcile        *usecase.ReconcileWebhookUsecase
	Query            *usecase.QueryUsecase
	Idempotency      *usecase.IdempotencyGuard
}

// RouterConfig holds the HTTP-level settings.
type RouterConfig struct {
	RateLimitPerMin int
	MaxBodyBytes    int64
	AllowedOrigins  []string
	DefaultOwnerID  string
	WebhookSecret   string
	HealthChecks    map[string]HealthCheck
}

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(uc Usecases, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.Logger(logger))
	if cfg.MaxBodyBytes > 0 {
		router.Use(middleware.BodySizeLimit(cfg.MaxBodyBytes))
	}

	// Metrics and health (no rate limiting)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	healthHandler := NewHealthHandler(cfg.HealthChecks, logger)
	router.GET("/health", healthHandler.Health)

	// Provider callbacks carry no user identity and are not rate limited.
	webhookHandler := NewWebhookHandler(uc.Reconcile, cfg.WebhookSecret, logger)
	webhooks := router.Group("/webhook")
	{
		webhooks.POST("/train", webhookHandler.Train)
		webhooks.POST("/generate", webhookHandler.Generate)
	}

	api := router.Group("/")
	api.Use(middleware.Identity(cfg.DefaultOwnerID))
	api.Use(middleware.RateLimiter(cfg.RateLimitPerMin))
	{
		trainingHandler := NewTrainingHandler(uc.SubmitTraining, uc.Query, uc.Idempotency, logger)
		api.POST("/ai/training", trainingHandler.Train)
		api.GET("/models", trainingHandler.ListModels)

		optionsHandler := NewOptionsHandler(uc.Query)
		api.GET("/ai/training/options", optionsHandler.List)

		generationHandler := NewGenerationHandler(uc.SubmitGeneration, uc.Query, uc.Idempotency, logger)
		api.POST("/ai/generate", generationHandler.Generate)
		api.GET("/image/bulk", generationHandler.ListImages)
		api.GET("/image/:id", generationHandler.GetImage)

		wsHandler := NewWebSocketHandler(uc.Query, logger)
		api.GET("/image/:id/stream", wsHandler.Stream)

		packHandler := NewPackHandler(uc.SubmitPack, uc.Query, uc.Idempotency, logger)
		api.GET("/pack/bulk", packHandler.List)
		api.POST("/pack/generate", packHandler.Generate)
	}

	return router
}
