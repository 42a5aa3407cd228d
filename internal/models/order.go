package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Position string

const (
	PositionFront Position = "front"
	PositionBack  Position = "back"
	PositionLeft  Position = "left"
	PositionRight Position = "right"
	PositionTop   Position = "top"
)

// Positions lists the five canonical photo viewpoints in upload order.
var Positions = []Position{PositionFront, PositionBack, PositionLeft, PositionRight, PositionTop}

func (p Position) Valid() bool {
	switch p {
	case PositionFront, PositionBack, PositionLeft, PositionRight, PositionTop:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusDiagnosed OrderStatus = "diagnosed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusDiagnosed, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

type Diagnosis string

const (
	DiagnosisOily Diagnosis = "oily"
	DiagnosisDry  Diagnosis = "dry"
)

func (d Diagnosis) Valid() bool {
	return d == DiagnosisOily || d == DiagnosisDry
}

type Order struct {
	ID              uuid.UUID
	Email           string
	CustomerName    string
	Address         string
	City            string
	PostalCode      string
	PaymentIntentID string
	PaymentStatus   PaymentStatus
	Status          OrderStatus
	Diagnosis       sql.NullString
	TrackingNumber  sql.NullString
	TempID          sql.NullString
	CreatedAt       time.Time
}

type OrderImage struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ImageURL  string
	Position  Position
	CreatedAt time.Time
}

type OrderWithImages struct {
	Order
	Images []OrderImage
}

// ShippingDetails is the customer data collected at checkout. It travels on
// payment metadata and on the completion request.
type ShippingDetails struct {
	Email        string `json:"email"`
	CustomerName string `json:"customer_name"`
	Address      string `json:"address"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
}

func (s ShippingDetails) Complete() bool {
	return s.Email != "" && s.CustomerName != "" && s.Address != "" && s.City != "" && s.PostalCode != ""
}

// AdminUpdate carries the fields an administrator may change after diagnosis.
// Nil pointers leave the column untouched.
type AdminUpdate struct {
	Diagnosis      *Diagnosis
	TrackingNumber *string
	Status         *OrderStatus
}
