package model

import (
    "time"

    "github.com/shopspring/decimal"
)

const (
    EventDonationCompleted = "donation.completed"
    EventDonationReversed  = "donation.reversed"
)

// LedgerEvent is published whenever a status change moves a campaign's amount_raised.
type LedgerEvent struct {
    Type       string          `json:"type"`
    DonationID int             `json:"donation_id"`
    CampaignID int             `json:"campaign_id"`
    DonorID    *int            `json:"donor_id,omitempty"`
    Amount     decimal.Decimal `json:"amount"`
    Delta      decimal.Decimal `json:"delta"`
    OccurredAt time.Time       `json:"occurred_at"`
}
