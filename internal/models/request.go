package models

type CreatePaymentIntentRequest struct {
	ShippingDetails *ShippingDetails `json:"shippingDetails"`
	// Amount in minor currency units. Defaults to the configured kit price.
	Amount int64  `json:"amount,omitempty" example:"3000"`
	TempID string `json:"tempId,omitempty"`
}

type UpdateOrderRequest struct {
	Diagnosis      *string `json:"diagnosis,omitempty" example:"oily"`
	TrackingNumber *string `json:"tracking_number,omitempty" example:"DHL 1234567890"`
	Status         *string `json:"status,omitempty" example:"diagnosed"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
