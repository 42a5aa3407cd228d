package supabase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"schuppenweg-backend/internal/models"
)

const uniqueViolation = "23505"

const orderColumns = `id, email, customer_name, address, city, postal_code, payment_intent_id,
	payment_status, status, diagnosis, tracking_number, temp_id, created_at`

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var order models.Order
	var paymentStatus, status string
	err := row.Scan(
		&order.ID, &order.Email, &order.CustomerName, &order.Address, &order.City, &order.PostalCode,
		&order.PaymentIntentID, &paymentStatus, &status, &order.Diagnosis, &order.TrackingNumber,
		&order.TempID, &order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.PaymentStatus = models.PaymentStatus(paymentStatus)
	order.Status = models.OrderStatus(status)
	return &order, nil
}

func (d *DatabaseClient) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := scanOrder(d.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		return nil, translate("get order", err)
	}
	return order, nil
}

func (d *DatabaseClient) GetOrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	order, err := scanOrder(d.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = $1`, paymentIntentID))
	if err != nil {
		return nil, translate("get order by payment intent", err)
	}
	return order, nil
}

// CreateOrder inserts the order. A concurrent insert for the same payment
// intent surfaces as models.ErrAlreadyExists via the unique index.
func (d *DatabaseClient) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	id := order.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	created, err := scanOrder(d.db.QueryRowContext(ctx, `
		INSERT INTO orders (id, email, customer_name, address, city, postal_code, payment_intent_id,
			payment_status, status, temp_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+orderColumns,
		id, order.Email, order.CustomerName, order.Address, order.City, order.PostalCode,
		order.PaymentIntentID, string(order.PaymentStatus), string(order.Status), order.TempID,
	))
	if err != nil {
		return nil, translate("create order", err)
	}
	return created, nil
}

func (d *DatabaseClient) SetOrderTempID(ctx context.Context, orderID uuid.UUID, tempID string) error {
	_, err := d.db.ExecContext(ctx, `
		UPDATE orders SET temp_id = $1
		WHERE id = $2 AND temp_id IS NULL
	`, tempID, orderID)
	return translate("set order temp id", err)
}

func (d *DatabaseClient) UpdateOrderAdmin(ctx context.Context, orderID uuid.UUID, update models.AdminUpdate) (*models.Order, error) {
	sets := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	if update.Diagnosis != nil {
		args = append(args, string(*update.Diagnosis))
		sets = append(sets, fmt.Sprintf("diagnosis = $%d", len(args)))
	}
	if update.TrackingNumber != nil {
		args = append(args, sql.NullString{String: *update.TrackingNumber, Valid: *update.TrackingNumber != ""})
		sets = append(sets, fmt.Sprintf("tracking_number = $%d", len(args)))
	}
	if update.Status != nil {
		args = append(args, string(*update.Status))
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(sets) == 0 {
		return d.GetOrder(ctx, orderID)
	}
	args = append(args, orderID)

	order, err := scanOrder(d.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE orders SET %s WHERE id = $%d RETURNING %s`,
			strings.Join(sets, ", "), len(args), orderColumns),
		args...))
	if err != nil {
		return nil, translate("update order", err)
	}
	return order, nil
}

func (d *DatabaseClient) ListOrdersWithoutImages(ctx context.Context, limit int) ([]models.Order, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE NOT EXISTS (SELECT 1 FROM order_images i WHERE i.order_id = o.id)
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders without images: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (d *DatabaseClient) ListOrderImages(ctx context.Context, orderID uuid.UUID) ([]models.OrderImage, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, order_id, image_url, position, created_at
		FROM order_images
		WHERE order_id = $1
		ORDER BY created_at ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order images: %w", err)
	}
	defer rows.Close()

	var images []models.OrderImage
	for rows.Next() {
		var img models.OrderImage
		var position string
		if err := rows.Scan(&img.ID, &img.OrderID, &img.ImageURL, &position, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order image: %w", err)
		}
		img.Position = models.Position(position)
		images = append(images, img)
	}
	return images, rows.Err()
}

func (d *DatabaseClient) ImageExists(ctx context.Context, orderID uuid.UUID, position models.Position) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM order_images WHERE order_id = $1 AND position = $2)
	`, orderID, string(position)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check order image: %w", err)
	}
	return exists, nil
}

func (d *DatabaseClient) CreateOrderImage(ctx context.Context, image *models.OrderImage) error {
	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now().UTC()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO order_images (id, order_id, image_url, position, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, image.ID, image.OrderID, image.ImageURL, string(image.Position), image.CreatedAt)
	return translate("create order image", err)
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}

func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, models.ErrAlreadyExists)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
