package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
	"schuppenweg-backend/internal/models"
)

// Metadata keys carried on the payment intent and checkout session.
const (
	MetaEmail        = "email"
	MetaCustomerName = "customer_name"
	MetaAddress      = "address"
	MetaCity         = "city"
	MetaPostalCode   = "postal_code"
	MetaTempID       = "temp_id"
)

var (
	ErrMissingSignature = errors.New("stripe: missing signature header")
	ErrInvalidSignature = errors.New("stripe: invalid signature")
)

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// GatewayConfig configures the Stripe gateway.
type GatewayConfig struct {
	APIKey        string
	WebhookSecret string
	Currency      string
	Backends      *stripe.Backends
	Intents       stripePaymentIntentAPI
}

// Gateway wraps the Stripe calls the storefront needs: payment intent
// creation for the checkout form and webhook signature verification.
type Gateway struct {
	intents       stripePaymentIntentAPI
	webhookSecret string
	currency      string
}

func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, errors.New("stripe: webhook secret is required")
	}

	intents := cfg.Intents
	if intents == nil && strings.TrimSpace(cfg.APIKey) != "" {
		intents = client.New(cfg.APIKey, cfg.Backends).PaymentIntents
	}

	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "eur"
	}

	return &Gateway{
		intents:       intents,
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
	}, nil
}

// CanCreateIntents reports whether a secret key was configured.
func (g *Gateway) CanCreateIntents() bool {
	return g != nil && g.intents != nil
}

type PaymentIntentRequest struct {
	Amount   int64
	Shipping models.ShippingDetails
	TempID   string
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// CreatePaymentIntent creates an intent whose metadata carries the shipping
// details and upload namespace, so the webhook can create the order later.
func (g *Gateway) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (PaymentIntent, error) {
	if !g.CanCreateIntents() {
		return PaymentIntent{}, errors.New("stripe: secret key not configured")
	}
	if req.Amount <= 0 {
		return PaymentIntent{}, errors.New("stripe: amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.Shipping.Email != "" {
		params.ReceiptEmail = stripe.String(req.Shipping.Email)
	}
	for k, v := range shippingMetadata(req.Shipping, req.TempID) {
		params.AddMetadata(k, v)
	}

	intent, err := g.intents.New(params)
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return PaymentIntent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func shippingMetadata(s models.ShippingDetails, tempID string) map[string]string {
	meta := map[string]string{
		MetaEmail:        s.Email,
		MetaCustomerName: s.CustomerName,
		MetaAddress:      s.Address,
		MetaCity:         s.City,
		MetaPostalCode:   s.PostalCode,
	}
	if tempID != "" {
		meta[MetaTempID] = tempID
	}
	for k, v := range meta {
		if v == "" {
			delete(meta, k)
		}
	}
	return meta
}

// VerifyEvent checks the Stripe-Signature header against the raw body.
func (g *Gateway) VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return stripe.Event{}, ErrMissingSignature
	}
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

type EventKind int

const (
	EventIgnored EventKind = iota
	EventPaymentSucceeded
	EventPaymentFailed
	EventCheckoutExpired
)

// PaymentEvent is the part of a verified webhook event the order flow uses.
type PaymentEvent struct {
	ID              string
	Type            string
	Kind            EventKind
	PaymentIntentID string
	Shipping        models.ShippingDetails
	TempID          string
	FailureMessage  string
}

// DecodeEvent maps a verified event onto a PaymentEvent. Unknown types come
// back with Kind EventIgnored.
func DecodeEvent(event stripe.Event) (PaymentEvent, error) {
	out := PaymentEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}

	switch out.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return out, fmt.Errorf("stripe: decode payment intent: %w", err)
		}
		out.PaymentIntentID = intent.ID
		out.Shipping = shippingFromMetadata(intent.Metadata, "")
		out.TempID = intent.Metadata[MetaTempID]
		if out.Type == "payment_intent.succeeded" {
			out.Kind = EventPaymentSucceeded
		} else {
			out.Kind = EventPaymentFailed
			if intent.LastPaymentError != nil {
				out.FailureMessage = intent.LastPaymentError.Msg
			}
		}

	case "checkout.session.completed", "checkout.session.expired":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return out, fmt.Errorf("stripe: decode checkout session: %w", err)
		}
		if session.PaymentIntent != nil {
			out.PaymentIntentID = session.PaymentIntent.ID
		}
		email := session.CustomerEmail
		if email == "" && session.CustomerDetails != nil {
			email = session.CustomerDetails.Email
		}
		out.Shipping = shippingFromMetadata(session.Metadata, email)
		out.TempID = session.Metadata[MetaTempID]
		if out.Type == "checkout.session.completed" {
			out.Kind = EventPaymentSucceeded
		} else {
			out.Kind = EventCheckoutExpired
		}
	}
	return out, nil
}

func shippingFromMetadata(meta map[string]string, email string) models.ShippingDetails {
	if email == "" {
		email = meta[MetaEmail]
	}
	return models.ShippingDetails{
		Email:        email,
		CustomerName: meta[MetaCustomerName],
		Address:      meta[MetaAddress],
		City:         meta[MetaCity],
		PostalCode:   meta[MetaPostalCode],
	}
}
