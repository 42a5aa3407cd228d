package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"schuppenweg-backend/internal/models"
	"schuppenweg-backend/internal/observability"
	"schuppenweg-backend/internal/services"
)

type OrderCompleter interface {
	CompleteOrder(ctx context.Context, in services.CompleteOrderInput) (services.CompleteOrderResult, error)
}

type OrdersHandler struct {
	completer OrderCompleter
	logger    *zap.Logger
}

func NewOrdersHandler(completer OrderCompleter, logger *zap.Logger) *OrdersHandler {
	return &OrdersHandler{
		completer: completer,
		logger:    observability.OrNop(logger),
	}
}

// CompleteOrder godoc
// @Summary     Complete an order after payment
// @Description Resolves or creates the order for the payment intent, migrates pre-payment photos
// @Description from temp storage and stores any photos sent directly in this request.
// @Description Safe to call repeatedly for the same payment intent.
// @Tags        orders
// @Accept      multipart/form-data
// @Produce     json
// @Param       paymentIntentId formData string true  "Stripe payment intent id"
// @Param       email           formData string false "Required when the order does not exist yet"
// @Param       customer_name   formData string false "Required when the order does not exist yet"
// @Param       address         formData string false "Required when the order does not exist yet"
// @Param       city            formData string false "Required when the order does not exist yet"
// @Param       postal_code     formData string false "Required when the order does not exist yet"
// @Param       tempId          formData string false "Upload session id used for temp photos"
// @Param       image_front     formData file   false "Photo for position front (same for back, left, right, top)"
// @Param       image_front_url formData string false "Set when front was already uploaded to temp storage"
// @Success     200 {object} models.CompleteOrderResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/complete-order [post]
func (h *OrdersHandler) CompleteOrder(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to parse multipart form",
			Message: err.Error(),
		})
		return
	}

	in := services.CompleteOrderInput{
		PaymentIntentID: strings.TrimSpace(c.PostForm("paymentIntentId")),
		Shipping: models.ShippingDetails{
			Email:        strings.TrimSpace(c.PostForm("email")),
			CustomerName: strings.TrimSpace(c.PostForm("customer_name")),
			Address:      strings.TrimSpace(c.PostForm("address")),
			City:         strings.TrimSpace(c.PostForm("city")),
			PostalCode:   strings.TrimSpace(c.PostForm("postal_code")),
		},
		TempID:      strings.TrimSpace(c.PostForm("tempId")),
		Images:      make(map[models.Position]services.DirectImage),
		PreUploaded: make(map[models.Position]bool),
	}

	if in.TempID != "" && !validTempID(in.TempID) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid tempId"})
		return
	}

	for _, position := range models.Positions {
		field := "image_" + string(position)
		if strings.TrimSpace(c.PostForm(field+"_url")) != "" {
			in.PreUploaded[position] = true
		}
		fh, err := c.FormFile(field)
		if err != nil {
			continue
		}
		data, contentType, err := readImage(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid image",
				Message: err.Error(),
			})
			return
		}
		in.Images[position] = services.DirectImage{
			Data:        data,
			ContentType: contentType,
			Ext:         imageExt(fh.Filename),
		}
	}

	result, err := h.completer.CompleteOrder(c.Request.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingIdentifier):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Missing required fields", Message: err.Error()})
		case errors.Is(err, services.ErrOrderNotFoundAndIncomplete):
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Missing required fields", Message: err.Error()})
		default:
			h.logger.Error("complete order failed",
				zap.String("payment_intent_id", in.PaymentIntentID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to complete order"})
		}
		return
	}

	c.JSON(http.StatusOK, models.CompleteOrderResponse{
		OrderID:        result.OrderID.String(),
		UploadedImages: result.UploadedImages,
		Message:        "Order created successfully",
	})
}
