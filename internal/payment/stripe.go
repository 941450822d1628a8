package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

const signatureHeader = "Stripe-Signature"

// StripeGateway creates Stripe Checkout sessions and verifies Stripe webhooks.
type StripeGateway struct {
	sessions      *session.Client
	webhookSecret string
}

// NewStripeGateway builds a gateway whose API calls give up after timeout.
func NewStripeGateway(secretKey, webhookSecret string, timeout time.Duration) *StripeGateway {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: timeout},
	})
	return &StripeGateway{
		sessions:      &session.Client{B: backend, Key: secretKey},
		webhookSecret: webhookSecret,
	}
}

func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		ClientReferenceID:  stripe.String(strconv.Itoa(req.DonationID)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(MinorUnits(req.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.Name),
						Description: description(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	for k, v := range metadata(req) {
		params.AddMetadata(k, v)
	}

	s, err := g.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// Stripe rejects empty product descriptions.
func description(s string) *string {
	if s == "" {
		return nil
	}
	return stripe.String(s)
}

// ParseEvent verifies the Stripe-Signature header and maps checkout session
// events onto donation outcomes.
func (g *StripeGateway) ParseEvent(payload []byte, header http.Header) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, header.Get(signatureHeader), g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		log.Printf("⚠️ Stripe webhook rejected: %v\n", err)
		return nil, ErrInvalidSignature
	}
	return mapStripeEvent(event)
}

func mapStripeEvent(event stripe.Event) (*Event, error) {
	ev := &Event{ID: event.ID, Type: string(event.Type)}

	switch ev.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		ev.Outcome = OutcomeCompleted
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		ev.Outcome = OutcomeFailed
	default:
		ev.Ignored = true
		return ev, nil
	}

	if event.Data == nil {
		return nil, fmt.Errorf("stripe event %s has no data", event.ID)
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	ev.CorrelationID = s.ID
	if id, err := strconv.Atoi(s.Metadata["donation_id"]); err == nil {
		ev.DonationID = id
	}

	// Delayed payment methods complete the session before the money arrives;
	// async_payment_succeeded follows.
	if ev.Type == "checkout.session.completed" && s.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		ev.Outcome = ""
		ev.Ignored = true
	}
	return ev, nil
}

var _ Gateway = (*StripeGateway)(nil)
