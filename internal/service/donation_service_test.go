package service_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/payment"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

func TestDonation_CompletedDonationCreditsCampaign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.register(t, "maria")
	donor := env.register(t, "joao")
	c := env.activeCampaign(t, creator, "Rebuild the school", "1000.00")

	res, err := env.donations.Donate(ctx, donor.ID, c.Slug, service.DonationInput{
		Amount: decimal.RequireFromString("300.00"), Message: "  go!  ",
	})
	require.NoError(t, err)
	d := res.Donation
	assert.Equal(t, model.DonationPending, d.Status)
	assert.Equal(t, "go!", d.Message)
	assert.NotEmpty(t, d.TransactionID)
	assert.Contains(t, res.RedirectURL, "/donations/success/")

	tr := env.complete(t, d)
	assert.True(t, tr.Changed)

	details, err := env.campaigns.GetCampaignDetails(ctx, c.Slug)
	require.NoError(t, err)
	requireDecimal(t, "300", details.AmountRaised)
	requireDecimal(t, "30", details.Progress)
	assert.Equal(t, 1, details.DonorsCount)
	require.Len(t, details.RecentDonations, 1)
	assert.Equal(t, "joao", details.RecentDonations[0].DonorName)
	assert.Empty(t, details.RecentDonations[0].TransactionID)

	events := env.queue.events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventDonationCompleted, events[0].Type)
	require.NotNil(t, events[0].DonorID)
	assert.Equal(t, donor.ID, *events[0].DonorID)
}

func TestDonation_ConcurrentDuplicateCallbacks(t *testing.T) {
	env := newTestEnv(t)
	creator := env.register(t, "maria")
	donor := env.register(t, "joao")
	c := env.activeCampaign(t, creator, "Rebuild the school", "1000.00")

	a := env.donate(t, donor, c, "300.00")
	b := env.donate(t, donor, c, "300.00")
	env.complete(t, a)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.donations.ResolveEvent(context.Background(), &payment.Event{
				CorrelationID: b.TransactionID, Outcome: payment.OutcomeCompleted,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	check, err := env.donations.VerifyLedger(context.Background(), c.Slug)
	require.NoError(t, err)
	requireDecimal(t, "600", check.AmountRaised)
	assert.True(t, check.Consistent)
	assert.Len(t, env.queue.events(), 2)
}

func TestDonation_CampaignNotAccepting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.register(t, "maria")
	donor := env.register(t, "joao")

	closed := env.activeCampaign(t, creator, "Finished", "100.00")
	_, err := env.campaigns.SetStatus(ctx, closed.Slug, model.CampaignCompleted)
	require.NoError(t, err)
	draft := env.draftCampaign(t, creator, "Not yet", "100.00")

	for _, slug := range []string{closed.Slug, draft.Slug} {
		_, err := env.donations.Donate(ctx, donor.ID, slug, service.DonationInput{Amount: decimal.NewFromInt(10)})
		var notAccepting *appErrors.ErrCampaignNotAcceptingDonations
		require.True(t, errors.As(err, &notAccepting), slug)
	}

	history, err := env.donations.MyDonations(ctx, donor.ID)
	require.NoError(t, err)
	assert.Empty(t, history.Donations)
}

func TestDonation_Validation(t *testing.T) {
	env := newTestEnv(t)
	creator := env.register(t, "maria")
	c := env.activeCampaign(t, creator, "Rebuild the school", "1000.00")

	for _, amount := range []string{"0", "-5", "10.001"} {
		_, err := env.donations.Donate(context.Background(), creator.ID, c.Slug, service.DonationInput{Amount: decimal.RequireFromString(amount)})
		var validation *appErrors.ErrValidation
		assert.True(t, errors.As(err, &validation), amount)
	}
}

func TestDonation_PaymentFailureLeavesPendingAndRetries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.register(t, "maria")
	donor := env.register(t, "joao")
	other := env.register(t, "ana")
	c := env.activeCampaign(t, creator, "Rebuild the school", "1000.00")

	env.gateway.Fail = true
	res, err := env.donations.Donate(ctx, donor.ID, c.Slug, service.DonationInput{Amount: decimal.NewFromInt(25)})
	var failed *appErrors.ErrPaymentInitiationFailed
	require.True(t, errors.As(err, &failed))
	require.NotNil(t, res)
	assert.Equal(t, res.Donation.ID, failed.DonationID)
	assert.Equal(t, model.DonationPending, res.Donation.Status)
	assert.Empty(t, res.Donation.TransactionID)

	env.gateway.Fail = false
	_, err = env.donations.Checkout(ctx, other.ID, res.Donation.ID)
	var mismatch *appErrors.ErrOwnershipMismatch
	require.True(t, errors.As(err, &mismatch))

	retried, err := env.donations.Checkout(ctx, donor.ID, res.Donation.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, retried.RedirectURL)
	assert.NotEmpty(t, retried.Donation.TransactionID)

	env.complete(t, retried.Donation)
	_, err = env.donations.Checkout(ctx, donor.ID, res.Donation.ID)
	var invalid *appErrors.ErrInvalidTransition
	assert.True(t, errors.As(err, &invalid))
}

// blockingGateway never answers before the context expires.
type blockingGateway struct{}

func (blockingGateway) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingGateway) ParseEvent(payload []byte, header http.Header) (*payment.Event, error) {
	return nil, payment.ErrInvalidSignature
}

func TestDonation_ProcessorTimeout(t *testing.T) {
	env := newTestEnv(t)
	creator := env.register(t, "maria")
	c := env.activeCampaign(t, creator, "Rebuild the school", "1000.00")
	env.donations.Gateway = blockingGateway{}
	env.donations.Timeout = 20 * time.Millisecond

	res, err := env.donations.Donate(context.Background(), creator.ID, c.Slug, service.DonationInput{Amount: decimal.NewFromInt(5)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, model.DonationPending, res.Donation.Status)
}

// recordingGateway captures the checkout request.
type recordingGateway struct {
	payment.MockGateway
	last payment.CheckoutRequest
}

func (g *recordingGateway) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	g.last = req
	return g.MockGateway.CreateCheckout(ctx, req)
}

func TestDonation_CheckoutRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.register(t, "maria")
	donor := env.register(t, "joao")
	long := ""
	for i := 0; i < 30; i++ {
		long += "ação "
	}
	c, err := env.campaigns.CreateCampaign(ctx, creator.ID, service.CampaignInput{
		Title: "Rebuild", Description: long, Goal: decimal.NewFromInt(100), EndDate: time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	_, err = env.campaigns.Publish(ctx, creator.ID, c.Slug)
	require.NoError(t, err)

	gw := &recordingGateway{}
	env.donations.Gateway = gw
	env.donations.NameTemplate = "Support {title}"
	d := env.donate(t, donor, c, "12.34")

	assert.Equal(t, "Support Rebuild", gw.last.Name)
	assert.Equal(t, []rune(long)[:100], []rune(gw.last.Description)[:100])
	assert.Equal(t, "...", string([]rune(gw.last.Description)[100:]))
	assert.Equal(t, donor.ID, gw.last.UserID)
	assert.Equal(t, c.ID, gw.last.CampaignID)
	assert.Equal(t, "http://localhost:8080/campaigns/"+c.Slug, gw.last.CancelURL)
	assert.Equal(t, int64(1234), payment.MinorUnits(gw.last.Amount))
	assert.Equal(t, d.ID, gw.last.DonationID)
}

func TestDonation_FailedOutcome(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.register(t, "maria")
	c := env.activeCampaign(t, creator, "Rebuild the school", "1000.00")

	pending := env.donate(t, creator, c, "10.00")
	tr, err := env.donations.Resolve(ctx, pending.ID, payment.OutcomeFailed)
	require.NoError(t, err)
	assert.True(t, tr.Changed)
	assert.Equal(t, model.DonationCancelled, tr.To)

	done := env.donate(t, creator, c, "20.00")
	env.complete(t, done)
	tr, err = env.donations.Resolve(ctx, done.ID, payment.OutcomeFailed)
	require.NoError(t, err)
	assert.False(t, tr.Changed)

	// the processor may still confirm a session it reported as failed
	env.complete(t, pending)

	check, err := env.donations.VerifyLedger(ctx, c.Slug)
	require.NoError(t, err)
	requireDecimal(t, "30", check.AmountRaised)
	assert.True(t, check.Consistent)

	_, err = env.donations.Resolve(ctx, done.ID, "maybe")
	var validation *appErrors.ErrValidation
	assert.True(t, errors.As(err, &validation))
}

func TestDonation_ResolveEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.register(t, "maria")
	c := env.activeCampaign(t, creator, "Rebuild the school", "1000.00")
	d := env.donate(t, creator, c, "10.00")

	tr, err := env.donations.ResolveEvent(ctx, &payment.Event{ID: "evt_1", Type: "payment_intent.created", Ignored: true})
	require.NoError(t, err)
	assert.Nil(t, tr)

	_, err = env.donations.ResolveEvent(ctx, &payment.Event{CorrelationID: "cs_unknown", Outcome: payment.OutcomeCompleted})
	var notFound *appErrors.ErrDonationNotFound
	assert.True(t, errors.As(err, &notFound))

	// an older session of a retried checkout still resolves through its metadata
	tr, err = env.donations.ResolveEvent(ctx, &payment.Event{CorrelationID: "cs_old", DonationID: d.ID, Outcome: payment.OutcomeCompleted})
	require.NoError(t, err)
	assert.True(t, tr.Changed)
}

func TestDonation_ReplacedSessionFailureKeepsDonationPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.register(t, "maria")
	donor := env.register(t, "joao")
	c := env.activeCampaign(t, creator, "Rebuild the school", "1000.00")
	d := env.donate(t, donor, c, "10.00")
	oldSession := d.TransactionID

	retried, err := env.donations.Checkout(ctx, donor.ID, d.ID)
	require.NoError(t, err)
	require.NotEqual(t, oldSession, retried.Donation.TransactionID)

	tr, err := env.donations.ResolveEvent(ctx, &payment.Event{
		ID: "evt_expired", CorrelationID: oldSession, DonationID: d.ID, Outcome: payment.OutcomeFailed,
	})
	require.NoError(t, err)
	assert.Nil(t, tr)

	receipt, err := env.donations.Success(ctx, donor.ID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DonationPending, receipt.Donation.Status)

	// the donor can still pay
	_, err = env.donations.Checkout(ctx, donor.ID, d.ID)
	require.NoError(t, err)

	// a failure of the current session still cancels
	current, err := env.donations.Success(ctx, donor.ID, d.ID)
	require.NoError(t, err)
	tr, err = env.donations.ResolveEvent(ctx, &payment.Event{
		ID: "evt_failed", CorrelationID: current.Donation.TransactionID, Outcome: payment.OutcomeFailed,
	})
	require.NoError(t, err)
	assert.Equal(t, model.DonationCancelled, tr.To)
}

func TestDonation_SuccessIsReadOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.register(t, "maria")
	donor := env.register(t, "joao")
	c := env.activeCampaign(t, creator, "Rebuild the school", "1000.00")
	d := env.donate(t, donor, c, "10.00")

	receipt, err := env.donations.Success(ctx, donor.ID, d.ID)
	require.NoError(t, err)
	assert.True(t, receipt.AwaitingConfirmation)
	assert.Equal(t, model.DonationPending, receipt.Donation.Status)
	assert.Equal(t, c.Slug, receipt.CampaignSlug)

	_, err = env.donations.Success(ctx, creator.ID, d.ID)
	var mismatch *appErrors.ErrOwnershipMismatch
	assert.True(t, errors.As(err, &mismatch))

	_, err = env.donations.Success(ctx, donor.ID, 4242)
	var notFound *appErrors.ErrDonationNotFound
	assert.True(t, errors.As(err, &notFound))

	check, err := env.donations.VerifyLedger(ctx, c.Slug)
	require.NoError(t, err)
	requireDecimal(t, "0", check.AmountRaised)
}

func TestDonation_RefundPublishesReversal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	creator := env.register(t, "maria")
	c := env.activeCampaign(t, creator, "Rebuild the school", "1000.00")
	d := env.donate(t, creator, c, "75.00")
	env.complete(t, d)

	tr, err := env.donations.SetStatus(ctx, d.ID, model.DonationRefunded)
	require.NoError(t, err)
	requireDecimal(t, "-75", tr.Delta)

	events := env.queue.events()
	require.Len(t, events, 2)
	assert.Equal(t, model.EventDonationReversed, events[1].Type)

	history, err := env.donations.MyDonations(ctx, creator.ID)
	require.NoError(t, err)
	requireDecimal(t, "0", history.TotalDonated)
	require.Len(t, history.Donations, 1)
	assert.Equal(t, model.DonationRefunded, history.Donations[0].Status)
}

func TestDonation_StalePending(t *testing.T) {
	env := newTestEnv(t)
	creator := env.register(t, "maria")
	c := env.activeCampaign(t, creator, "Rebuild the school", "1000.00")
	env.donate(t, creator, c, "10.00")

	stale, err := env.donations.StalePending(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, stale)

	env.donations.Now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	stale, err = env.donations.StalePending(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, stale, 1)
}
