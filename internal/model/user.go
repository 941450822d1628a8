package model

import (
    "time"

    "github.com/shopspring/decimal"
)

type User struct {
    ID           int       `db:"id" json:"id"`
    Username     string    `db:"username" json:"username"`
    Email        string    `db:"email" json:"email"`
    PasswordHash string    `db:"password_hash" json:"-"`
    APIToken     string    `db:"api_token" json:"-"`
    CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Profile struct {
    UserID           int             `db:"user_id" json:"user_id"`
    Bio              string          `db:"bio" json:"bio"`
    Phone            string          `db:"phone" json:"phone"`
    BirthDate        *time.Time      `db:"birth_date" json:"birth_date,omitempty"`
    Country          string          `db:"country" json:"country"`
    City             string          `db:"city" json:"city"`
    Website          string          `db:"website" json:"website"`
    TotalDonated     decimal.Decimal `db:"total_donated" json:"total_donated"`
    CampaignsCreated int             `db:"campaigns_created" json:"campaigns_created"`
}
