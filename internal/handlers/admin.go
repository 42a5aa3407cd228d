package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"schuppenweg-backend/internal/models"
	"schuppenweg-backend/internal/observability"
	"schuppenweg-backend/internal/services"
)

type OrderUpdater interface {
	UpdateOrderAdmin(ctx context.Context, orderID uuid.UUID, update models.AdminUpdate) (*models.Order, error)
}

type TempMigrator interface {
	MigrateTempImages(ctx context.Context, orderID uuid.UUID) (int, error)
}

type AdminHandler struct {
	reader   services.AdminReader
	updater  OrderUpdater
	migrator TempMigrator
	logger   *zap.Logger
}

func NewAdminHandler(reader services.AdminReader, updater OrderUpdater, migrator TempMigrator, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		reader:   reader,
		updater:  updater,
		migrator: migrator,
		logger:   observability.OrNop(logger),
	}
}

// ListOrders godoc
// @Summary     List orders
// @Description All orders with their photos, newest first.
// @Tags        admin
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.OrderListResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/admin/orders [get]
func (h *AdminHandler) ListOrders(c *gin.Context) {
	orders, err := h.reader.ListOrdersWithImages(c.Request.Context())
	if err != nil {
		h.logger.Error("list orders failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list orders", Message: err.Error()})
		return
	}

	resp := models.OrderListResponse{Orders: make([]models.OrderResponse, 0, len(orders))}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, models.NewOrderResponse(o))
	}
	c.JSON(http.StatusOK, resp)
}

// GetOrder godoc
// @Summary     Get an order
// @Tags        admin
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Order ID (UUID)"
// @Success     200 {object} models.OrderResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/admin/orders/{id} [get]
func (h *AdminHandler) GetOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := h.reader.GetOrderWithImages(c.Request.Context(), orderID)
	if err != nil {
		respondStoreError(c, h.logger, "get order", err)
		return
	}
	c.JSON(http.StatusOK, models.NewOrderResponse(*order))
}

// UpdateOrder godoc
// @Summary     Record diagnosis, tracking number or status
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       id      path string                     true "Order ID (UUID)"
// @Param       request body models.UpdateOrderRequest  true "Fields to change"
// @Success     200 {object} models.OrderResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /api/admin/orders/{id} [patch]
func (h *AdminHandler) UpdateOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req models.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	var update models.AdminUpdate
	if req.Diagnosis != nil {
		d := models.Diagnosis(strings.ToLower(strings.TrimSpace(*req.Diagnosis)))
		if !d.Valid() {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid diagnosis", Message: "diagnosis must be oily or dry"})
			return
		}
		update.Diagnosis = &d
	}
	if req.TrackingNumber != nil {
		tn := strings.TrimSpace(*req.TrackingNumber)
		update.TrackingNumber = &tn
	}
	if req.Status != nil {
		s := models.OrderStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid status"})
			return
		}
		update.Status = &s
	}
	if update.Diagnosis == nil && update.TrackingNumber == nil && update.Status == nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "no fields to update"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.updater.UpdateOrderAdmin(ctx, orderID, update); err != nil {
		respondStoreError(c, h.logger, "update order", err)
		return
	}

	order, err := h.reader.GetOrderWithImages(ctx, orderID)
	if err != nil {
		respondStoreError(c, h.logger, "reload order", err)
		return
	}
	c.JSON(http.StatusOK, models.NewOrderResponse(*order))
}

// MigrateOrderImages godoc
// @Summary     Re-run temp photo migration for an order
// @Tags        admin
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Order ID (UUID)"
// @Success     200 {object} models.MigrateResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /api/admin/orders/{id}/migrate [post]
func (h *AdminHandler) MigrateOrderImages(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	moved, err := h.migrator.MigrateTempImages(c.Request.Context(), orderID)
	if err != nil {
		h.logger.Error("manual migration failed", zap.String("order_id", orderID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "migration failed", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.MigrateResponse{OrderID: orderID.String(), Moved: moved})
}

func orderIDParam(c *gin.Context) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid order id"})
		return uuid.Nil, false
	}
	return orderID, true
}

func respondStoreError(c *gin.Context, logger *zap.Logger, op string, err error) {
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "order not found"})
		return
	}
	logger.Error(op+" failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to " + op, Message: err.Error()})
}
