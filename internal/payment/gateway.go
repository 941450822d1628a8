// Package payment talks to the external payment processor: it opens hosted
// checkout sessions for pending donations and turns processor callbacks into
// donation outcomes.
package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
)

// Outcomes a processor event can report for a checkout session.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// ErrInvalidSignature is returned by ParseEvent when the payload was not signed
// with the configured webhook secret.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Gateway is implemented by every payment processor adapter.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	ParseEvent(payload []byte, header http.Header) (*Event, error)
}

// CheckoutRequest describes the single line item of a donation checkout.
type CheckoutRequest struct {
	DonationID  int
	UserID      int
	CampaignID  int
	Amount      decimal.Decimal
	Currency    string
	Name        string
	Description string
	SuccessURL  string
	CancelURL   string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a processor callback reduced to what the resolution flow needs.
// Ignored events carry no outcome and must be acknowledged without action.
type Event struct {
	ID            string
	Type          string
	CorrelationID string
	DonationID    int
	Outcome       string
	Ignored       bool
}

// MinorUnits converts an amount to the processor's integer minor units (cents).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// Metadata attached to every checkout session.
func metadata(req CheckoutRequest) map[string]string {
	return map[string]string{
		"donation_id": itoa(req.DonationID),
		"user_id":     itoa(req.UserID),
		"campaign_id": itoa(req.CampaignID),
	}
}
