package model

import (
    "time"

    "github.com/shopspring/decimal"
)

const (
    DonationPending   = "pending"
    DonationCompleted = "completed"
    DonationCancelled = "cancelled"
    DonationRefunded  = "refunded"
)

type Donation struct {
    ID            int             `db:"id" json:"id"`
    DonorID       *int            `db:"donor_id" json:"donor_id,omitempty"`
    CampaignID    int             `db:"campaign_id" json:"campaign_id"`
    Amount        decimal.Decimal `db:"amount" json:"amount"`
    Status        string          `db:"status" json:"status"` // pending, completed, cancelled, refunded
    IsAnonymous   bool            `db:"is_anonymous" json:"is_anonymous"`
    Message       string          `db:"message" json:"message,omitempty"`
    TransactionID string          `db:"transaction_id" json:"transaction_id,omitempty"`
    CreatedAt     time.Time       `db:"created_at" json:"created_at"`
    UpdatedAt     *time.Time      `db:"updated_at" json:"updated_at,omitempty"`

    // Filled by joins on read paths only.
    DonorName     string `db:"-" json:"donor_name,omitempty"`
    CampaignTitle string `db:"-" json:"campaign_title,omitempty"`
    CampaignSlug  string `db:"-" json:"campaign_slug,omitempty"`
}

func IsDonationStatus(s string) bool {
    switch s {
    case DonationPending, DonationCompleted, DonationCancelled, DonationRefunded:
        return true
    }
    return false
}

// Transition is the outcome of a single donation status update.
type Transition struct {
    DonationID int             `json:"donation_id"`
    CampaignID int             `json:"campaign_id"`
    DonorID    *int            `json:"donor_id,omitempty"`
    Amount     decimal.Decimal `json:"amount"`
    From       string          `json:"from"`
    To         string          `json:"to"`
    Changed    bool            `json:"changed"`
    Delta      decimal.Decimal `json:"delta"` // applied to the campaign's amount_raised
}
