package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/shared/constants"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

// maxWebhookBodyBytes caps the raw event body read from the provider.
const maxWebhookBodyBytes = 1 << 20

type handleWebhookUseCase interface {
	Execute(ctx context.Context, payload []byte, signature string) error
}

// WebhookHandler receives payment provider events. It answers with a bare JSON body
// rather than the API envelope because the provider only inspects the status code.
type WebhookHandler struct {
	handleUC handleWebhookUseCase
	logger   logger.Interface
}

func NewWebhookHandler(handleUC handleWebhookUseCase, log logger.Interface) *WebhookHandler {
	return &WebhookHandler{handleUC: handleUC, logger: log}
}

// HandleStripe handles POST /webhooks/stripe
// @Summary Stripe webhook receiver
// @Description Verifies the Stripe-Signature header and applies the event. A 500 asks the provider to retry.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := c.GetRawData()
	if err != nil {
		h.logger.Warnw("failed to read webhook body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	signature := c.GetHeader(constants.HeaderStripeSignature)
	if signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing signature"})
		return
	}

	if err := h.handleUC.Execute(c.Request.Context(), payload, signature); err != nil {
		var sigErr *billing.SignatureVerificationError
		switch {
		case errors.As(err, &sigErr):
			h.logger.Warnw("rejected webhook", "error", err, "client_ip", c.ClientIP())
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		case billing.IsConfigurationError(err):
			h.logger.Errorw("webhook received but not configured", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "webhook not configured"})
		default:
			h.logger.Errorw("webhook processing failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
