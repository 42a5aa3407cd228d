package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"schuppenweg-backend/internal/models"
	"schuppenweg-backend/internal/observability"
	"schuppenweg-backend/internal/payments"
)

// PaymentEventService applies verified Stripe events to the order store.
type PaymentEventService struct {
	orders OrderStore
	logger *zap.Logger
}

func NewPaymentEventService(orders OrderStore, logger *zap.Logger) *PaymentEventService {
	return &PaymentEventService{
		orders: orders,
		logger: observability.OrNop(logger),
	}
}

// HandleEvent creates the order for a successful payment unless it already
// exists. Losing the insert race to the completion call counts as success.
func (s *PaymentEventService) HandleEvent(ctx context.Context, event payments.PaymentEvent) error {
	log := s.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("payment_intent_id", event.PaymentIntentID),
	)

	switch event.Kind {
	case payments.EventPaymentSucceeded:
		return s.handleSucceeded(ctx, event, log)
	case payments.EventPaymentFailed:
		log.Warn("payment failed", zap.String("reason", event.FailureMessage))
	case payments.EventCheckoutExpired:
		log.Info("checkout session expired")
	default:
		log.Debug("webhook event ignored")
	}
	return nil
}

func (s *PaymentEventService) handleSucceeded(ctx context.Context, event payments.PaymentEvent, log *zap.Logger) error {
	if event.PaymentIntentID == "" {
		log.Warn("payment succeeded without payment intent id")
		return nil
	}

	existing, err := s.orders.GetOrderByPaymentIntent(ctx, event.PaymentIntentID)
	if err == nil {
		if event.TempID != "" && !existing.TempID.Valid {
			if err := s.orders.SetOrderTempID(ctx, existing.ID, event.TempID); err != nil {
				log.Warn("record temp id failed", zap.Error(err))
			}
		}
		log.Info("order already exists", zap.String("order_id", existing.ID.String()))
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("lookup order: %w", err)
	}

	order, err := createPaidOrder(ctx, s.orders, event.PaymentIntentID, event.Shipping, event.TempID)
	if err != nil {
		return err
	}
	log.Info("order created from webhook", zap.String("order_id", order.ID.String()))
	return nil
}
