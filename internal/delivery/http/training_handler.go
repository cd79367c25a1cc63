package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/delivery/http/middleware"
	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/usecase"
)

// TrainingHandler handles model training requests and the model listing.
type TrainingHandler struct {
	submitUC *usecase.SubmitTrainingUsecase
	queryUC  *usecase.QueryUsecase
	guard    *usecase.IdempotencyGuard
	logger   *zap.Logger
}

// NewTrainingHandler creates a new TrainingHandler.
func NewTrainingHandler(
	submitUC *usecase.SubmitTrainingUsecase,
	queryUC *usecase.QueryUsecase,
	guard *usecase.IdempotencyGuard,
	logger *zap.Logger,
) *TrainingHandler {
	return &TrainingHandler{
		submitUC: submitUC,
		queryUC:  queryUC,
		guard:    guard,
		logger:   logger,
	}
}

// Train handles POST /ai/training
func (h *TrainingHandler) Train(c *gin.Context) {
	var req domain.TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	caller := middleware.CallerFrom(c)
	sub, replayed, err := h.guard.Do(c.Request.Context(), caller, "training", c.GetHeader(idempotencyKeyHeader),
		func(ctx context.Context) (*domain.Submission, error) {
			resp, err := h.submitUC.Execute(ctx, caller, req.Input())
			if err != nil {
				return nil, err
			}
			return &domain.Submission{JobIDs: []uuid.UUID{resp.JobID}}, nil
		})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	markReplayed(c, replayed)
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Model training started",
		"jobId":   sub.JobIDs[0],
		"status":  domain.StatusPending,
	})
}

// ListModels handles GET /models
func (h *TrainingHandler) ListModels(c *gin.Context) {
	models, err := h.queryUC.ListModels(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}
