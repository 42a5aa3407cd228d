package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"schuppenweg-backend/internal/models"
)

type OrderStore interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	SetOrderTempID(ctx context.Context, orderID uuid.UUID, tempID string) error
	UpdateOrderAdmin(ctx context.Context, orderID uuid.UUID, update models.AdminUpdate) (*models.Order, error)
	ListOrdersWithoutImages(ctx context.Context, limit int) ([]models.Order, error)
}

type ImageStore interface {
	ListOrderImages(ctx context.Context, orderID uuid.UUID) ([]models.OrderImage, error)
	ImageExists(ctx context.Context, orderID uuid.UUID, position models.Position) (bool, error)
	CreateOrderImage(ctx context.Context, image *models.OrderImage) error
}

// Store is the combined order and image persistence both database
// backends provide.
type Store interface {
	OrderStore
	ImageStore
}

type BlobStore interface {
	List(ctx context.Context, prefix string, opts models.ListOptions) ([]models.BlobObject, error)
	Download(ctx context.Context, storagePath string) ([]byte, error)
	Upload(ctx context.Context, storagePath string, data []byte, contentType string, upsert bool) error
	Remove(ctx context.Context, storagePaths ...string) error
	PublicURL(storagePath string) string
	SignedURL(ctx context.Context, storagePath string, ttl time.Duration) (string, error)
}

// AdminReader serves the admin dashboard listing.
type AdminReader interface {
	ListOrdersWithImages(ctx context.Context) ([]models.OrderWithImages, error)
	GetOrderWithImages(ctx context.Context, orderID uuid.UUID) (*models.OrderWithImages, error)
}
