package database_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"schuppenweg-backend/internal/database"
	"schuppenweg-backend/internal/models"
)

func newStore(t *testing.T) *database.GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	store, err := database.OpenSQLite(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func paidOrder(paymentIntentID string) *models.Order {
	return &models.Order{
		ID:              uuid.New(),
		Email:           "kunde@example.com",
		CustomerName:    "Erika Mustermann",
		Address:         "Hauptstr. 1",
		City:            "Berlin",
		PostalCode:      "10115",
		PaymentIntentID: paymentIntentID,
		PaymentStatus:   models.PaymentPaid,
		Status:          models.StatusPaid,
	}
}

func TestGormStore_CreateAndFindByPaymentIntent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	created, err := store.CreateOrder(ctx, paidOrder("pi_123"))
	require.NoError(t, err)

	found, err := store.GetOrderByPaymentIntent(ctx, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, models.StatusPaid, found.Status)
	assert.False(t, found.TempID.Valid)
}

func TestGormStore_DuplicatePaymentIntent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.CreateOrder(ctx, paidOrder("pi_dup"))
	require.NoError(t, err)

	_, err = store.CreateOrder(ctx, paidOrder("pi_dup"))
	assert.ErrorIs(t, err, models.ErrAlreadyExists)
}

func TestGormStore_NotFound(t *testing.T) {
	store := newStore(t)

	_, err := store.GetOrderByPaymentIntent(context.Background(), "pi_missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGormStore_ImageUniquePerPosition(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	order, err := store.CreateOrder(ctx, paidOrder("pi_img"))
	require.NoError(t, err)

	img := &models.OrderImage{OrderID: order.ID, ImageURL: "https://x/front.jpg", Position: models.PositionFront}
	require.NoError(t, store.CreateOrderImage(ctx, img))

	again := &models.OrderImage{OrderID: order.ID, ImageURL: "https://x/front.jpg", Position: models.PositionFront}
	assert.ErrorIs(t, store.CreateOrderImage(ctx, again), models.ErrAlreadyExists)

	exists, err := store.ImageExists(ctx, order.ID, models.PositionFront)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.ImageExists(ctx, order.ID, models.PositionTop)
	require.NoError(t, err)
	assert.False(t, exists)

	images, err := store.ListOrderImages(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestGormStore_SetOrderTempIDOnlyOnce(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	order, err := store.CreateOrder(ctx, paidOrder("pi_temp"))
	require.NoError(t, err)

	require.NoError(t, store.SetOrderTempID(ctx, order.ID, "temp_first"))
	require.NoError(t, store.SetOrderTempID(ctx, order.ID, "temp_second"))

	got, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "temp_first", got.TempID.String)
}

func TestGormStore_ListOrdersWithoutImages(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	withImage, err := store.CreateOrder(ctx, paidOrder("pi_a"))
	require.NoError(t, err)
	bare, err := store.CreateOrder(ctx, paidOrder("pi_b"))
	require.NoError(t, err)

	require.NoError(t, store.CreateOrderImage(ctx, &models.OrderImage{
		OrderID: withImage.ID, ImageURL: "u", Position: models.PositionBack,
	}))

	orders, err := store.ListOrdersWithoutImages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, bare.ID, orders[0].ID)
}

func TestGormStore_UpdateOrderAdmin(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	order, err := store.CreateOrder(ctx, paidOrder("pi_admin"))
	require.NoError(t, err)

	diagnosis := models.DiagnosisOily
	status := models.StatusDiagnosed
	updated, err := store.UpdateOrderAdmin(ctx, order.ID, models.AdminUpdate{Diagnosis: &diagnosis, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "oily", updated.Diagnosis.String)
	assert.Equal(t, models.StatusDiagnosed, updated.Status)
	assert.False(t, updated.TrackingNumber.Valid)

	withImages, err := store.GetOrderWithImages(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, withImages.Images)

	_, err = store.UpdateOrderAdmin(ctx, uuid.New(), models.AdminUpdate{Status: &status})
	assert.ErrorIs(t, err, models.ErrNotFound)
}
