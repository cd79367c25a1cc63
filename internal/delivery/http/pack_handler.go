package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/delivery/http/middleware"
	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/usecase"
)

// PackHandler handles the pack catalog and pack fan-out.
type PackHandler struct {
	submitUC *usecase.SubmitPackUsecase
	queryUC  *usecase.QueryUsecase
	guard    *usecase.IdempotencyGuard
	logger   *zap.Logger
}

// NewPackHandler creates a new PackHandler.
func NewPackHandler(
	submitUC *usecase.SubmitPackUsecase,
	queryUC *usecase.QueryUsecase,
	guard *usecase.IdempotencyGuard,
	logger *zap.Logger,
) *PackHandler {
	return &PackHandler{
		submitUC: submitUC,
		queryUC:  queryUC,
		guard:    guard,
		logger:   logger,
	}
}

// List handles GET /pack/bulk
func (h *PackHandler) List(c *gin.Context) {
	packs, err := h.queryUC.ListPacks(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packs": packs})
}

// Generate handles POST /pack/generate. Templates that fail are reported next to the jobs
// that were created; the request only fails when no template produced a job.
func (h *PackHandler) Generate(c *gin.Context) {
	var req domain.PackGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	caller := middleware.CallerFrom(c)
	sub, replayed, err := h.guard.Do(c.Request.Context(), caller, "pack", c.GetHeader(idempotencyKeyHeader),
		func(ctx context.Context) (*domain.Submission, error) {
			result, err := h.submitUC.Execute(ctx, caller, &req)
			if result == nil {
				return nil, err
			}
			return &domain.Submission{JobIDs: result.JobIDs, Failures: result.Failures}, err
		})
	var failures []domain.PackFailure
	if sub != nil {
		failures = sub.Failures
	}
	if err != nil {
		if len(failures) > 0 && (errors.Is(err, domain.ErrProviderRejected) ||
			errors.Is(err, domain.ErrProviderUnavailable) || errors.Is(err, domain.ErrStoreUnavailable)) {
			h.logger.Warn("Pack generation produced no jobs", zap.Error(err), zap.Int("failures", len(failures)))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":    "No pack image could be submitted",
				"jobIds":   []uuid.UUID{},
				"failures": failures,
			})
			return
		}
		writeError(c, h.logger, err)
		return
	}

	if failures == nil {
		failures = []domain.PackFailure{}
	}
	markReplayed(c, replayed)
	c.JSON(http.StatusOK, gin.H{
		"message":  "Pack generation started",
		"jobIds":   sub.JobIDs,
		"failures": failures,
	})
}
