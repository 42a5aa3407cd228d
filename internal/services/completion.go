package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"schuppenweg-backend/internal/models"
	"schuppenweg-backend/internal/observability"
)

var (
	ErrMissingIdentifier          = errors.New("payment intent id is required")
	ErrOrderNotFoundAndIncomplete = errors.New("order not found and shipping details incomplete")
)

// DirectImage is a photo sent in the completion request body.
type DirectImage struct {
	Data        []byte
	ContentType string
	Ext         string
}

type CompleteOrderInput struct {
	PaymentIntentID string
	Shipping        models.ShippingDetails
	TempID          string
	Images          map[models.Position]DirectImage
	// PreUploaded marks positions the client already uploaded to temp/{TempID}.
	PreUploaded map[models.Position]bool
}

type CompleteOrderResult struct {
	OrderID        uuid.UUID
	UploadedImages int
}

// CompletionService finalises an order after payment. Every step is
// idempotent so the client may retry the whole call.
type CompletionService struct {
	orders    OrderStore
	images    ImageStore
	blobs     BlobStore
	migration *MigrationEngine
	logger    *zap.Logger
}

func NewCompletionService(orders OrderStore, images ImageStore, blobs BlobStore, migration *MigrationEngine, logger *zap.Logger) *CompletionService {
	return &CompletionService{
		orders:    orders,
		images:    images,
		blobs:     blobs,
		migration: migration,
		logger:    observability.OrNop(logger),
	}
}

func (s *CompletionService) CompleteOrder(ctx context.Context, in CompleteOrderInput) (CompleteOrderResult, error) {
	paymentIntentID := strings.TrimSpace(in.PaymentIntentID)
	if paymentIntentID == "" {
		return CompleteOrderResult{}, ErrMissingIdentifier
	}

	order, err := s.resolveOrder(ctx, paymentIntentID, in.Shipping, in.TempID)
	if err != nil {
		return CompleteOrderResult{}, err
	}
	log := s.logger.With(zap.String("order_id", order.ID.String()), zap.String("payment_intent_id", paymentIntentID))

	if in.TempID != "" && !order.TempID.Valid {
		if err := s.orders.SetOrderTempID(ctx, order.ID, in.TempID); err != nil {
			log.Warn("complete order: record temp id failed", zap.Error(err))
		}
	}

	if _, err := s.migration.MigrateTempImages(ctx, order.ID); err != nil {
		log.Error("complete order: temp migration failed", zap.Error(err))
	}

	present, err := s.presentPositions(ctx, order.ID)
	if err != nil {
		return CompleteOrderResult{}, err
	}
	if len(present) == len(models.Positions) {
		return CompleteOrderResult{OrderID: order.ID, UploadedImages: len(models.Positions)}, nil
	}

	for _, position := range models.Positions {
		if present[position] {
			continue
		}
		plog := log.With(zap.String("position", string(position)))

		if in.PreUploaded[position] && in.TempID != "" {
			err := s.migration.MovePosition(ctx, order.ID, in.TempID, position)
			if err == nil {
				continue
			}
			plog.Warn("complete order: move pre-uploaded image failed", zap.Error(err))
		}

		if img, ok := in.Images[position]; ok && len(img.Data) > 0 {
			if err := s.uploadDirect(ctx, order.ID, position, img); err != nil {
				plog.Warn("complete order: direct upload failed", zap.Error(err))
			}
		}
	}

	images, err := s.images.ListOrderImages(ctx, order.ID)
	if err != nil {
		return CompleteOrderResult{}, fmt.Errorf("list order images: %w", err)
	}
	log.Info("order completed", zap.Int("images", len(images)))
	return CompleteOrderResult{OrderID: order.ID, UploadedImages: len(images)}, nil
}

// resolveOrder finds the order for the payment intent or creates it. The
// webhook creates the same row concurrently, so a duplicate insert re-reads
// the winner.
func (s *CompletionService) resolveOrder(ctx context.Context, paymentIntentID string, shipping models.ShippingDetails, tempID string) (*models.Order, error) {
	order, err := s.orders.GetOrderByPaymentIntent(ctx, paymentIntentID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("lookup order: %w", err)
	}
	if !shipping.Complete() {
		return nil, ErrOrderNotFoundAndIncomplete
	}

	return createPaidOrder(ctx, s.orders, paymentIntentID, shipping, tempID)
}

func createPaidOrder(ctx context.Context, orders OrderStore, paymentIntentID string, shipping models.ShippingDetails, tempID string) (*models.Order, error) {
	order := &models.Order{
		ID:              uuid.New(),
		Email:           shipping.Email,
		CustomerName:    shipping.CustomerName,
		Address:         shipping.Address,
		City:            shipping.City,
		PostalCode:      shipping.PostalCode,
		PaymentIntentID: paymentIntentID,
		PaymentStatus:   models.PaymentPaid,
		Status:          models.StatusPaid,
	}
	if tempID != "" {
		order.TempID.String, order.TempID.Valid = tempID, true
	}

	created, err := orders.CreateOrder(ctx, order)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, models.ErrAlreadyExists) {
		return nil, fmt.Errorf("create order: %w", err)
	}
	existing, err := orders.GetOrderByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("reload order after duplicate: %w", err)
	}
	return existing, nil
}

func (s *CompletionService) presentPositions(ctx context.Context, orderID uuid.UUID) (map[models.Position]bool, error) {
	images, err := s.images.ListOrderImages(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order images: %w", err)
	}
	present := make(map[models.Position]bool, len(images))
	for _, img := range images {
		present[img.Position] = true
	}
	return present, nil
}

func (s *CompletionService) uploadDirect(ctx context.Context, orderID uuid.UUID, position models.Position, img DirectImage) error {
	ext := img.Ext
	if ext == "" {
		ext = "jpg"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = finalContentType
	}
	storagePath := fmt.Sprintf("%s/%s.%s", orderID, position, ext)

	if err := s.blobs.Upload(ctx, storagePath, img.Data, contentType, false); err != nil {
		if !errors.Is(err, models.ErrAlreadyExists) {
			return fmt.Errorf("upload: %w", err)
		}
	}

	exists, err := s.images.ImageExists(ctx, orderID, position)
	if err != nil {
		return fmt.Errorf("check image: %w", err)
	}
	if exists {
		return nil
	}
	err = s.images.CreateOrderImage(ctx, &models.OrderImage{
		OrderID:  orderID,
		ImageURL: s.blobs.PublicURL(storagePath),
		Position: position,
	})
	if err != nil && !errors.Is(err, models.ErrAlreadyExists) {
		return fmt.Errorf("record image: %w", err)
	}
	return nil
}
