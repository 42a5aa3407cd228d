package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v78"
	"go.uber.org/zap"
	"schuppenweg-backend/internal/models"
	"schuppenweg-backend/internal/observability"
	"schuppenweg-backend/internal/payments"
)

const maxWebhookBody = 1 << 20

type EventVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error)
}

type PaymentEventHandler interface {
	HandleEvent(ctx context.Context, event payments.PaymentEvent) error
}

type WebhookHandler struct {
	verifier EventVerifier
	events   PaymentEventHandler
	logger   *zap.Logger
}

func NewWebhookHandler(verifier EventVerifier, events PaymentEventHandler, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		events:   events,
		logger:   observability.OrNop(logger),
	}
}

// HandleStripeWebhook godoc
// @Summary     Stripe webhook endpoint
// @Description Verifies the Stripe-Signature header and creates the order for successful payments.
// @Description Every verified event is acknowledged with 200.
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Param       Stripe-Signature header string true "Stripe signature"
// @Success     200 {object} models.WebhookResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /api/webhooks/stripe [post]
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read request body", Message: err.Error()})
		return
	}

	event, err := h.verifier.VerifyEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook signature rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid signature"})
		return
	}

	log := h.logger.With(zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
	decoded, err := payments.DecodeEvent(event)
	if err != nil {
		log.Error("webhook event decode failed", zap.Error(err))
	} else if err := h.events.HandleEvent(c.Request.Context(), decoded); err != nil {
		log.Error("webhook event processing failed", zap.Error(err))
	}

	c.JSON(http.StatusOK, models.WebhookResponse{Received: true})
}
