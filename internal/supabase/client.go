package supabase

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
	"schuppenweg-backend/internal/models"
)

const orderWithImagesSelect = "*, order_images(*)"

// Client reads orders through the PostgREST API with the service role key.
// It backs the admin listing, where nested order_images come back in one call.
type Client struct {
	Supabase *supabase.Client
}

func NewClient(supabaseURL, serviceRoleKey string) (*Client, error) {
	client, err := supabase.NewClient(strings.TrimRight(supabaseURL, "/"), serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &Client{Supabase: client}, nil
}

type restOrderImage struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	ImageURL  string    `json:"image_url"`
	Position  string    `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

type restOrder struct {
	ID              uuid.UUID        `json:"id"`
	Email           string           `json:"email"`
	CustomerName    string           `json:"customer_name"`
	Address         string           `json:"address"`
	City            string           `json:"city"`
	PostalCode      string           `json:"postal_code"`
	PaymentIntentID string           `json:"payment_intent_id"`
	PaymentStatus   string           `json:"payment_status"`
	Status          string           `json:"status"`
	Diagnosis       *string          `json:"diagnosis"`
	TrackingNumber  *string          `json:"tracking_number"`
	TempID          *string          `json:"temp_id"`
	CreatedAt       time.Time        `json:"created_at"`
	Images          []restOrderImage `json:"order_images"`
}

func (r restOrder) toModel() models.OrderWithImages {
	out := models.OrderWithImages{
		Order: models.Order{
			ID:              r.ID,
			Email:           r.Email,
			CustomerName:    r.CustomerName,
			Address:         r.Address,
			City:            r.City,
			PostalCode:      r.PostalCode,
			PaymentIntentID: r.PaymentIntentID,
			PaymentStatus:   models.PaymentStatus(r.PaymentStatus),
			Status:          models.OrderStatus(r.Status),
			Diagnosis:       nullString(r.Diagnosis),
			TrackingNumber:  nullString(r.TrackingNumber),
			TempID:          nullString(r.TempID),
			CreatedAt:       r.CreatedAt,
		},
		Images: make([]models.OrderImage, 0, len(r.Images)),
	}
	for _, img := range r.Images {
		out.Images = append(out.Images, models.OrderImage{
			ID:        img.ID,
			OrderID:   img.OrderID,
			ImageURL:  img.ImageURL,
			Position:  models.Position(img.Position),
			CreatedAt: img.CreatedAt,
		})
	}
	return out
}

// ListOrdersWithImages returns every order, newest first, with its images.
func (c *Client) ListOrdersWithImages(ctx context.Context) ([]models.OrderWithImages, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []restOrder
	_, err := c.Supabase.From("orders").
		Select(orderWithImagesSelect, "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]models.OrderWithImages, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, r.toModel())
	}
	return orders, nil
}

func (c *Client) GetOrderWithImages(ctx context.Context, orderID uuid.UUID) (*models.OrderWithImages, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []restOrder
	_, err := c.Supabase.From("orders").
		Select(orderWithImagesSelect, "", false).
		Eq("id", orderID.String()).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("get order %s: %w", orderID, models.ErrNotFound)
	}
	order := rows[0].toModel()
	return &order, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
