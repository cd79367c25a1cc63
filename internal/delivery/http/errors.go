package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/domain"
)

// statusFor maps a usecase error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrModelNotReady):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPackNotFound), errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSubmissionInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrProviderRejected):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrProviderUnavailable), errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as a JSON error body. Internal details of 5xx errors are logged, not returned.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		body["error"] = vErr.Message
		body["field"] = vErr.Field
	case errors.Is(err, domain.ErrProviderRejected):
		// RejectedError carries the provider's own reason, which is safe to surface.
	case errors.Is(err, domain.ErrProviderUnavailable):
		body["error"] = domain.ErrProviderUnavailable.Error()
	case errors.Is(err, domain.ErrStoreUnavailable):
		body["error"] = domain.ErrStoreUnavailable.Error()
	case status == http.StatusInternalServerError:
		body["error"] = "Internal server error"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.Error(err),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
		)
	}
	c.JSON(status, body)
}

func invalidBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
}
