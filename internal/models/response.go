package models

import "time"

type CompleteOrderResponse struct {
	OrderID        string `json:"orderId"`
	UploadedImages int    `json:"uploadedImages"`
	Message        string `json:"message"`
}

type TempUploadResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl"`
	Position string `json:"position"`
}

type SignedURLResponse struct {
	SignedURL string `json:"signedUrl"`
}

type PaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type WebhookResponse struct {
	Received bool `json:"received"`
}

type MigrateResponse struct {
	OrderID string `json:"orderId"`
	Moved   int    `json:"moved"`
}

type OrderResponse struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	CustomerName    string          `json:"customer_name"`
	Address         string          `json:"address"`
	City            string          `json:"city"`
	PostalCode      string          `json:"postal_code"`
	PaymentIntentID string          `json:"payment_intent_id"`
	PaymentStatus   string          `json:"payment_status"`
	Status          string          `json:"status"`
	Diagnosis       *string         `json:"diagnosis"`
	TrackingNumber  *string         `json:"tracking_number"`
	CreatedAt       time.Time       `json:"created_at"`
	Images          []ImageResponse `json:"order_images"`
}

type ImageResponse struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	ImageURL  string    `json:"image_url"`
	Position  string    `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// NewOrderResponse flattens an order and its images into the admin JSON shape.
func NewOrderResponse(o OrderWithImages) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID.String(),
		Email:           o.Email,
		CustomerName:    o.CustomerName,
		Address:         o.Address,
		City:            o.City,
		PostalCode:      o.PostalCode,
		PaymentIntentID: o.PaymentIntentID,
		PaymentStatus:   string(o.PaymentStatus),
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		Images:          make([]ImageResponse, 0, len(o.Images)),
	}
	if o.Diagnosis.Valid {
		d := o.Diagnosis.String
		resp.Diagnosis = &d
	}
	if o.TrackingNumber.Valid {
		t := o.TrackingNumber.String
		resp.TrackingNumber = &t
	}
	for _, img := range o.Images {
		resp.Images = append(resp.Images, ImageResponse{
			ID:        img.ID.String(),
			OrderID:   img.OrderID.String(),
			ImageURL:  img.ImageURL,
			Position:  string(img.Position),
			CreatedAt: img.CreatedAt,
		})
	}
	return resp
}
