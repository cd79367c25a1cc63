package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Harsh-BH/Lumina/internal/usecase"
)

// OptionsHandler lists the attribute values accepted by POST /ai/training.
type OptionsHandler struct {
	queryUC *usecase.QueryUsecase
}

// NewOptionsHandler creates a new OptionsHandler.
func NewOptionsHandler(queryUC *usecase.QueryUsecase) *OptionsHandler {
	return &OptionsHandler{queryUC: queryUC}
}

// List handles GET /ai/training/options
func (h *OptionsHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.queryUC.TrainingOptions())
}
