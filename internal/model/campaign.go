// internal/model/campaign.go
package model

import (
    "time"

    "github.com/shopspring/decimal"
)

const (
    CampaignDraft     = "draft"
    CampaignActive    = "active"
    CampaignCompleted = "completed"
    CampaignCancelled = "cancelled"
    CampaignExpired   = "expired"
)

type Campaign struct {
    ID           int             `db:"id" json:"id"`
    CreatorID    int             `db:"creator_id" json:"creator_id"`
    Title        string          `db:"title" json:"title"`
    Description  string          `db:"description" json:"description"`
    Goal         decimal.Decimal `db:"goal" json:"goal"`
    AmountRaised decimal.Decimal `db:"amount_raised" json:"amount_raised"`
    EndDate      time.Time       `db:"end_date" json:"end_date"`
    CategoryID   *int            `db:"category_id" json:"category_id,omitempty"`
    ImageURL     string          `db:"image_url" json:"image_url,omitempty"`
    Status       string          `db:"status" json:"status"`
    Slug         string          `db:"slug" json:"slug"`
    CreatedAt    time.Time       `db:"created_at" json:"created_at"`
    UpdatedAt    *time.Time      `db:"updated_at" json:"updated_at,omitempty"`
}

// Progress is amount_raised as a percentage of goal. It is not capped at 100.
func (c *Campaign) Progress() decimal.Decimal {
    if !c.Goal.IsPositive() {
        return decimal.Zero
    }
    return c.AmountRaised.Div(c.Goal).Mul(decimal.NewFromInt(100))
}

// DaysLeft counts whole calendar days from now until EndDate, never negative.
func (c *Campaign) DaysLeft(now time.Time) int {
    today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
    end := time.Date(c.EndDate.Year(), c.EndDate.Month(), c.EndDate.Day(), 0, 0, 0, 0, time.UTC)
    days := int(end.Sub(today).Hours() / 24)
    if days < 0 {
        return 0
    }
    return days
}

// IsActive reports whether the campaign accepts donations at the given instant.
func (c *Campaign) IsActive(now time.Time) bool {
    return c.Status == CampaignActive && c.DaysLeft(now) > 0
}

func IsCampaignStatus(s string) bool {
    switch s {
    case CampaignDraft, CampaignActive, CampaignCompleted, CampaignCancelled, CampaignExpired:
        return true
    }
    return false
}

type Category struct {
    ID          int    `db:"id" json:"id"`
    Name        string `db:"name" json:"name"`
    Description string `db:"description" json:"description"`
    Icon        string `db:"icon" json:"icon,omitempty"`
}

// CampaignStats aggregates campaign counters, either site-wide or for one creator.
type CampaignStats struct {
    Total       int             `json:"total"`
    Active      int             `json:"active"`
    Completed   int             `json:"completed"`
    TotalRaised decimal.Decimal `json:"total_raised"`
}
