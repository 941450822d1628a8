package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/db"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := db.Open(config.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(testDB, config.DriverSQLite))

	t.Cleanup(func() {
		testDB.Close()
	})
	return testDB
}

type repos struct {
	users     *repository.UserRepository
	campaigns *repository.CampaignRepository
	donations *repository.DonationRepository
	category  *repository.CategoryRepository
}

func newRepos(testDB *sql.DB) repos {
	campaigns := &repository.CampaignRepository{DB: testDB}
	return repos{
		users:     &repository.UserRepository{DB: testDB},
		campaigns: campaigns,
		donations: &repository.DonationRepository{DB: testDB, Campaigns: campaigns},
		category:  &repository.CategoryRepository{DB: testDB},
	}
}

// seedUser inserts a user with its profile and returns it.
func seedUser(t *testing.T, r repos, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Email: username + "@example.org", PasswordHash: "x", APIToken: "token-" + username}
	require.NoError(t, r.users.CreateWithProfile(context.Background(), u))
	return u
}

// seedCampaign inserts a campaign with the given goal and status ending in 30 days.
func seedCampaign(t *testing.T, r repos, creator *model.User, slug, goal, status string) *model.Campaign {
	t.Helper()
	c := &model.Campaign{
		CreatorID: creator.ID,
		Title:     "Campaign " + slug,
		Goal:      decimal.RequireFromString(goal),
		EndDate:   time.Now().UTC().AddDate(0, 0, 30),
		Status:    status,
		Slug:      slug,
	}
	require.NoError(t, r.campaigns.Create(context.Background(), c))
	return c
}

// seedDonation inserts a pending donation.
func seedDonation(t *testing.T, r repos, donor *model.User, campaign *model.Campaign, amount string) *model.Donation {
	t.Helper()
	d := &model.Donation{
		CampaignID: campaign.ID,
		Amount:     decimal.RequireFromString(amount),
	}
	if donor != nil {
		d.DonorID = &donor.ID
	}
	require.NoError(t, r.donations.Create(context.Background(), d))
	return d
}

func raised(t *testing.T, r repos, campaignID int) decimal.Decimal {
	t.Helper()
	c, err := r.campaigns.GetByID(context.Background(), campaignID)
	require.NoError(t, err)
	return c.AmountRaised
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(want).Equal(got), fmt.Sprintf("want %s, got %s", want, got))
}
