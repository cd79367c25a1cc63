package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/signature"
	"github.com/Harsh-BH/Lumina/internal/usecase"
)

// WebhookHandler receives provider completion callbacks.
type WebhookHandler struct {
	reconcileUC *usecase.ReconcileWebhookUsecase
	secret      string
	logger      *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler. When secret is set, callbacks must carry a
// valid X-Signature-256 header.
func NewWebhookHandler(reconcileUC *usecase.ReconcileWebhookUsecase, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconcileUC: reconcileUC,
		secret:      secret,
		logger:      logger,
	}
}

// Train handles POST /webhook/train
func (h *WebhookHandler) Train(c *gin.Context) {
	h.handle(c, domain.KindTraining)
}

// Generate handles POST /webhook/generate
func (h *WebhookHandler) Generate(c *gin.Context) {
	h.handle(c, domain.KindGeneration)
}

// handle answers 200 for every callback that was understood, including duplicates, conflicts
// and unknown correlation IDs, so the provider stops redelivering them. Store failures answer
// 503 so it tries again.
func (h *WebhookHandler) handle(c *gin.Context, kind domain.JobKind) {
	body, err := c.GetRawData()
	if err != nil {
		invalidBody(c, err)
		return
	}

	if h.secret != "" && !signature.Verify(h.secret, body, c.GetHeader(signature.Header)) {
		h.logger.Warn("Rejected webhook with invalid signature", zap.String("kind", string(kind)))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook signature"})
		return
	}

	var req domain.WebhookRequest
	if err := binding.JSON.BindBody(body, &req); err != nil {
		invalidBody(c, err)
		return
	}

	rec, err := h.reconcileUC.Execute(c.Request.Context(), &domain.Callback{
		Kind:          kind,
		CorrelationID: req.CorrelationID,
		Outcome:       req.Outcome,
		ResultRef:     req.ResultRef,
		Error:         req.Error,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	if rec.Result != domain.ReconcileApplied {
		h.logger.Info("Webhook did not change any job",
			zap.String("kind", string(kind)),
			zap.String("correlation_id", req.CorrelationID),
			zap.String("result", string(rec.Result)),
		)
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Webhook received",
		"result":  rec.Result,
		"jobId":   rec.JobID,
		"status":  rec.Status,
	})
}
