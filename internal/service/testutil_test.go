package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/db"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/payment"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

// recordingQueue keeps every published payload.
type recordingQueue struct {
	mu        sync.Mutex
	published []any
}

func (q *recordingQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, payload)
	return nil
}

func (q *recordingQueue) Subscribe(topic string, handler func(payload any) error) error {
	return nil
}

func (q *recordingQueue) events() []model.LedgerEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := []model.LedgerEvent{}
	for _, p := range q.published {
		if ev, ok := p.(model.LedgerEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

type testEnv struct {
	campaigns *service.CampaignService
	donations *service.DonationService
	accounts  *service.AccountService
	gateway   *payment.MockGateway
	queue     *recordingQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testDB, err := db.Open(config.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(testDB, config.DriverSQLite))
	t.Cleanup(func() { testDB.Close() })

	campaignRepo := &repository.CampaignRepository{DB: testDB}
	donationRepo := &repository.DonationRepository{DB: testDB, Campaigns: campaignRepo}
	userRepo := &repository.UserRepository{DB: testDB}
	categoryRepo := &repository.CategoryRepository{DB: testDB}

	gateway := &payment.MockGateway{}
	q := &recordingQueue{}

	return &testEnv{
		campaigns: &service.CampaignService{
			CampaignRepo: campaignRepo,
			DonationRepo: donationRepo,
			CategoryRepo: categoryRepo,
			UserRepo:     userRepo,
		},
		donations: &service.DonationService{
			CampaignRepo: campaignRepo,
			DonationRepo: donationRepo,
			Gateway:      gateway,
			Queue:        q,
			BaseURL:      "http://localhost:8080",
			Currency:     "usd",
			Timeout:      time.Second,
		},
		accounts: &service.AccountService{
			UserRepo:     userRepo,
			DonationRepo: donationRepo,
			BcryptCost:   bcrypt.MinCost,
		},
		gateway: gateway,
		queue:   q,
	}
}

func (e *testEnv) register(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := e.accounts.Register(context.Background(), username, username+"@example.org", "password123")
	require.NoError(t, err)
	return u
}

func (e *testEnv) draftCampaign(t *testing.T, creator *model.User, title, goal string) *model.Campaign {
	t.Helper()
	c, err := e.campaigns.CreateCampaign(context.Background(), creator.ID, service.CampaignInput{
		Title:   title,
		Goal:    decimal.RequireFromString(goal),
		EndDate: time.Now().UTC().AddDate(0, 0, 30),
	})
	require.NoError(t, err)
	return c
}

func (e *testEnv) activeCampaign(t *testing.T, creator *model.User, title, goal string) *model.Campaign {
	t.Helper()
	c := e.draftCampaign(t, creator, title, goal)
	c, err := e.campaigns.Publish(context.Background(), creator.ID, c.Slug)
	require.NoError(t, err)
	return c
}

func (e *testEnv) donate(t *testing.T, donor *model.User, c *model.Campaign, amount string) *model.Donation {
	t.Helper()
	res, err := e.donations.Donate(context.Background(), donor.ID, c.Slug, service.DonationInput{Amount: decimal.RequireFromString(amount)})
	require.NoError(t, err)
	return res.Donation
}

// complete delivers a completed callback for the donation's checkout session.
func (e *testEnv) complete(t *testing.T, d *model.Donation) *model.Transition {
	t.Helper()
	tr, err := e.donations.ResolveEvent(context.Background(), &payment.Event{
		ID: "evt_" + d.TransactionID, CorrelationID: d.TransactionID, Outcome: payment.OutcomeCompleted,
	})
	require.NoError(t, err)
	return tr
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}
