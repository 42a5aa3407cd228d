package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"schuppenweg-backend/internal/models"
	"schuppenweg-backend/internal/observability"
	"schuppenweg-backend/internal/payments"
)

type IntentCreator interface {
	CanCreateIntents() bool
	CreatePaymentIntent(ctx context.Context, req payments.PaymentIntentRequest) (payments.PaymentIntent, error)
}

type PaymentsHandler struct {
	intents       IntentCreator
	defaultAmount int64
	logger        *zap.Logger
}

func NewPaymentsHandler(intents IntentCreator, defaultAmount int64, logger *zap.Logger) *PaymentsHandler {
	return &PaymentsHandler{
		intents:       intents,
		defaultAmount: defaultAmount,
		logger:        observability.OrNop(logger),
	}
}

// CreatePaymentIntent godoc
// @Summary     Create a Stripe payment intent for the kit
// @Description Shipping details and the upload session id travel on the intent metadata so the
// @Description webhook can create the order even if the customer never returns to the site.
// @Tags        payments
// @Accept      json
// @Produce     json
// @Param       request body models.CreatePaymentIntentRequest true "Shipping details"
// @Success     200 {object} models.PaymentIntentResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/create-payment-intent [post]
func (h *PaymentsHandler) CreatePaymentIntent(c *gin.Context) {
	if h.intents == nil || !h.intents.CanCreateIntents() {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Stripe is not configured"})
		return
	}

	var req models.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}
	if req.ShippingDetails == nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Shipping details are required"})
		return
	}
	if !req.ShippingDetails.Complete() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "All shipping fields are required"})
		return
	}
	tempID := strings.TrimSpace(req.TempID)
	if tempID != "" && !validTempID(tempID) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid tempId"})
		return
	}

	amount := req.Amount
	if amount <= 0 {
		amount = h.defaultAmount
	}

	intent, err := h.intents.CreatePaymentIntent(c.Request.Context(), payments.PaymentIntentRequest{
		Amount:   amount,
		Shipping: *req.ShippingDetails,
		TempID:   tempID,
	})
	if err != nil {
		h.logger.Error("create payment intent failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create payment intent", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.PaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	})
}
