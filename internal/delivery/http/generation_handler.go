package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/delivery/http/middleware"
	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/usecase"
)

// GenerationHandler handles single-image generation and image queries.
type GenerationHandler struct {
	submitUC *usecase.SubmitGenerationUsecase
	queryUC  *usecase.QueryUsecase
	guard    *usecase.IdempotencyGuard
	logger   *zap.Logger
}

// NewGenerationHandler creates a new GenerationHandler.
func NewGenerationHandler(
	submitUC *usecase.SubmitGenerationUsecase,
	queryUC *usecase.QueryUsecase,
	guard *usecase.IdempotencyGuard,
	logger *zap.Logger,
) *GenerationHandler {
	return &GenerationHandler{
		submitUC: submitUC,
		queryUC:  queryUC,
		guard:    guard,
		logger:   logger,
	}
}

// Generate handles POST /ai/generate
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req domain.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	caller := middleware.CallerFrom(c)
	in := domain.GenerationInput{Prompt: req.Prompt, ModelRef: req.ModelID}
	sub, replayed, err := h.guard.Do(c.Request.Context(), caller, "generate", c.GetHeader(idempotencyKeyHeader),
		func(ctx context.Context) (*domain.Submission, error) {
			resp, err := h.submitUC.Execute(ctx, caller, in)
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
		"message": "Image generation started",
		"jobId":   sub.JobIDs[0],
		"status":  domain.StatusPending,
	})
}

// ListImages handles GET /image/bulk?ids=...&limit=...&offset=...
func (h *GenerationHandler) ListImages(c *gin.Context) {
	filter, err := parseImageFilter(c)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	images, err := h.queryUC.ListImages(c.Request.Context(), middleware.CallerFrom(c), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

// GetImage handles GET /image/:id
func (h *GenerationHandler) GetImage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID format"})
		return
	}

	image, err := h.queryUC.GetImage(c.Request.Context(), middleware.CallerFrom(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, image)
}

// parseImageFilter accepts ids both repeated (ids=a&ids=b) and comma-separated (ids=a,b).
func parseImageFilter(c *gin.Context) (domain.ImageFilter, error) {
	var filter domain.ImageFilter

	for _, raw := range c.QueryArray("ids") {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return filter, domain.Invalid("ids", "invalid image ID "+strconv.Quote(part))
			}
			filter.IDs = append(filter.IDs, id)
		}
	}

	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, domain.Invalid("limit", "limit must be a non-negative integer")
		}
		filter.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, domain.Invalid("offset", "offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	return filter, nil
}
