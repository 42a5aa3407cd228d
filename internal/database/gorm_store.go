package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"schuppenweg-backend/internal/models"
)

type orderRow struct {
	ID              string `gorm:"primaryKey"`
	Email           string `gorm:"not null"`
	CustomerName    string `gorm:"not null"`
	Address         string `gorm:"not null"`
	City            string `gorm:"not null"`
	PostalCode      string `gorm:"not null"`
	PaymentIntentID string `gorm:"uniqueIndex:orders_payment_intent_id_key;not null"`
	PaymentStatus   string `gorm:"not null;default:pending"`
	Status          string `gorm:"not null;default:pending"`
	Diagnosis       sql.NullString
	TrackingNumber  sql.NullString
	TempID          sql.NullString
	CreatedAt       time.Time `gorm:"index"`
}

func (orderRow) TableName() string { return "orders" }

type orderImageRow struct {
	ID        string `gorm:"primaryKey"`
	OrderID   string `gorm:"uniqueIndex:order_images_order_position_key;not null"`
	ImageURL  string `gorm:"not null"`
	Position  string `gorm:"uniqueIndex:order_images_order_position_key;not null"`
	CreatedAt time.Time
}

func (orderImageRow) TableName() string { return "order_images" }

// GormStore is the order and image store used when DB_DRIVER=sqlite.
// Schema comes from AutoMigrate instead of the embedded SQL migrations.
type GormStore struct {
	db *gorm.DB
}

func OpenSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	return NewGormStore(db)
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&orderRow{}, &orderImageRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var row orderRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", orderID.String()).Error; err != nil {
		return nil, translate("get order", err)
	}
	return row.toModel()
}

func (s *GormStore) GetOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	var row orderRow
	if err := s.db.WithContext(ctx).First(&row, "payment_intent_id = ?", paymentIntentID).Error; err != nil {
		return nil, translate("get order by payment intent", err)
	}
	return row.toModel()
}

func (s *GormStore) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	row := orderRowFromModel(order)
	if row.ID == uuid.Nil.String() {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, translate("create order", err)
	}
	return row.toModel()
}

func (s *GormStore) SetOrderTempID(ctx context.Context, orderID uuid.UUID, tempID string) error {
	err := s.db.WithContext(ctx).Model(&orderRow{}).
		Where("id = ? AND temp_id IS NULL", orderID.String()).
		Update("temp_id", tempID).Error
	return translate("set order temp id", err)
}

func (s *GormStore) UpdateOrderAdmin(ctx context.Context, orderID uuid.UUID, update models.AdminUpdate) (*models.Order, error) {
	values := map[string]interface{}{}
	if update.Diagnosis != nil {
		values["diagnosis"] = string(*update.Diagnosis)
	}
	if update.TrackingNumber != nil {
		if *update.TrackingNumber == "" {
			values["tracking_number"] = nil
		} else {
			values["tracking_number"] = *update.TrackingNumber
		}
	}
	if update.Status != nil {
		values["status"] = string(*update.Status)
	}
	if len(values) > 0 {
		res := s.db.WithContext(ctx).Model(&orderRow{}).Where("id = ?", orderID.String()).Updates(values)
		if res.Error != nil {
			return nil, translate("update order", res.Error)
		}
	}
	return s.GetOrder(ctx, orderID)
}

func (s *GormStore) ListOrdersWithoutImages(ctx context.Context, limit int) ([]models.Order, error) {
	var rows []orderRow
	err := s.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM order_images WHERE order_images.order_id = orders.id)").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, translate("list orders without images", err)
	}
	return orderRowsToModels(rows)
}

func (s *GormStore) ListOrderImages(ctx context.Context, orderID uuid.UUID) ([]models.OrderImage, error) {
	var rows []orderImageRow
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID.String()).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate("list order images", err)
	}
	images := make([]models.OrderImage, 0, len(rows))
	for _, row := range rows {
		img, err := row.toModel()
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	return images, nil
}

func (s *GormStore) ImageExists(ctx context.Context, orderID uuid.UUID, position models.Position) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&orderImageRow{}).
		Where("order_id = ? AND position = ?", orderID.String(), string(position)).
		Count(&count).Error
	if err != nil {
		return false, translate("check order image", err)
	}
	return count > 0, nil
}

func (s *GormStore) CreateOrderImage(ctx context.Context, image *models.OrderImage) error {
	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now().UTC()
	}
	row := orderImageRow{
		ID:        image.ID.String(),
		OrderID:   image.OrderID.String(),
		ImageURL:  image.ImageURL,
		Position:  string(image.Position),
		CreatedAt: image.CreatedAt,
	}
	return translate("create order image", s.db.WithContext(ctx).Create(&row).Error)
}

func (s *GormStore) ListOrdersWithImages(ctx context.Context) ([]models.OrderWithImages, error) {
	var rows []orderRow
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, translate("list orders", err)
	}
	orders, err := orderRowsToModels(rows)
	if err != nil {
		return nil, err
	}
	out := make([]models.OrderWithImages, 0, len(orders))
	for _, o := range orders {
		images, err := s.ListOrderImages(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, models.OrderWithImages{Order: o, Images: images})
	}
	return out, nil
}

func (s *GormStore) GetOrderWithImages(ctx context.Context, orderID uuid.UUID) (*models.OrderWithImages, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	images, err := s.ListOrderImages(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &models.OrderWithImages{Order: *order, Images: images}, nil
}

func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w", op, models.ErrAlreadyExists)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

func orderRowFromModel(o *models.Order) orderRow {
	return orderRow{
		ID:              o.ID.String(),
		Email:           o.Email,
		CustomerName:    o.CustomerName,
		Address:         o.Address,
		City:            o.City,
		PostalCode:      o.PostalCode,
		PaymentIntentID: o.PaymentIntentID,
		PaymentStatus:   string(o.PaymentStatus),
		Status:          string(o.Status),
		Diagnosis:       o.Diagnosis,
		TrackingNumber:  o.TrackingNumber,
		TempID:          o.TempID,
		CreatedAt:       o.CreatedAt,
	}
}

func (r orderRow) toModel() (*models.Order, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid order id %q: %w", r.ID, err)
	}
	return &models.Order{
		ID:              id,
		Email:           r.Email,
		CustomerName:    r.CustomerName,
		Address:         r.Address,
		City:            r.City,
		PostalCode:      r.PostalCode,
		PaymentIntentID: r.PaymentIntentID,
		PaymentStatus:   models.PaymentStatus(r.PaymentStatus),
		Status:          models.OrderStatus(r.Status),
		Diagnosis:       r.Diagnosis,
		TrackingNumber:  r.TrackingNumber,
		TempID:          r.TempID,
		CreatedAt:       r.CreatedAt,
	}, nil
}

func orderRowsToModels(rows []orderRow) ([]models.Order, error) {
	orders := make([]models.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.toModel()
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

func (r orderImageRow) toModel() (*models.OrderImage, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid image id %q: %w", r.ID, err)
	}
	orderID, err := uuid.Parse(r.OrderID)
	if err != nil {
		return nil, fmt.Errorf("invalid order id %q: %w", r.OrderID, err)
	}
	return &models.OrderImage{
		ID:        id,
		OrderID:   orderID,
		ImageURL:  r.ImageURL,
		Position:  models.Position(r.Position),
		CreatedAt: r.CreatedAt,
	}, nil
}
