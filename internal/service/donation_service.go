package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/ledger"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/payment"
	"github.com/unclebandit/crowdfund-backend/internal/queue"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
)

const maxMessageLength = 500

// DonationService owns the donation flow: creation, payment initiation and
// resolution of processor outcomes through the ledger rule.
type DonationService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	DonationRepo repository.DonationRepositoryInterface
	Gateway      payment.Gateway
	Queue        queue.Queue

	BaseURL      string
	Currency     string
	NameTemplate string
	// Timeout bounds each call to the payment processor.
	Timeout time.Duration

	Now func() time.Time
}

type DonationInput struct {
	Amount      decimal.Decimal
	IsAnonymous bool
	Message     string
}

// DonateResult is returned even when payment initiation fails, so that the
// caller can offer a retry for the pending donation.
type DonateResult struct {
	Donation    *model.Donation `json:"donation"`
	RedirectURL string          `json:"redirect_url,omitempty"`
}

// Receipt is the read-only view behind the checkout return URL.
type Receipt struct {
	Donation             *model.Donation `json:"donation"`
	CampaignTitle        string          `json:"campaign_title"`
	CampaignSlug         string          `json:"campaign_slug"`
	AwaitingConfirmation bool            `json:"awaiting_confirmation"`
}

type DonorHistory struct {
	Donations    []*model.Donation `json:"donations"`
	TotalDonated decimal.Decimal   `json:"total_donated"`
}

// LedgerCheck compares a campaign's amount_raised with its completed donations.
type LedgerCheck struct {
	CampaignID   int             `json:"campaign_id"`
	Slug         string          `json:"slug"`
	AmountRaised decimal.Decimal `json:"amount_raised"`
	CompletedSum decimal.Decimal `json:"completed_sum"`
	Consistent   bool            `json:"consistent"`
}

func (s *DonationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func validateDonation(in DonationInput) error {
	if !in.Amount.IsPositive() {
		return appErrors.NewValidation("amount", "must be greater than zero")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return appErrors.NewValidation("amount", "must have at most two decimal places")
	}
	if utf8.RuneCountInString(in.Message) > maxMessageLength {
		return appErrors.NewValidation("message", "must be at most 500 characters")
	}
	return nil
}

// Donate records a pending donation to an active campaign and opens a checkout
// session for it. A failed initiation keeps the donation pending and returns
// ErrPaymentInitiationFailed along with the result.
func (s *DonationService) Donate(ctx context.Context, donorID int, campaignSlug string, in DonationInput) (*DonateResult, error) {
	in.Message = strings.TrimSpace(in.Message)
	if err := validateDonation(in); err != nil {
		return nil, err
	}

	c, err := s.CampaignRepo.GetBySlug(ctx, campaignSlug)
	if err != nil {
		return nil, err
	}
	if !c.IsActive(s.now()) {
		return nil, appErrors.NewCampaignNotAcceptingDonations(c.Slug, c.Status)
	}

	d := &model.Donation{
		DonorID:     &donorID,
		CampaignID:  c.ID,
		Amount:      in.Amount,
		IsAnonymous: in.IsAnonymous,
		Message:     in.Message,
	}
	if err := s.DonationRepo.Create(ctx, d); err != nil {
		return nil, err
	}
	log.Printf("💸 Donation %d of %s created for campaign %q\n", d.ID, d.Amount.StringFixed(2), c.Slug)

	result := &DonateResult{Donation: d}
	url, err := s.initiate(ctx, d, c)
	if err != nil {
		return result, err
	}
	result.RedirectURL = url
	return result, nil
}

// Checkout retries payment initiation for a pending donation owned by the actor.
func (s *DonationService) Checkout(ctx context.Context, actorID, donationID int) (*DonateResult, error) {
	d, err := s.owned(ctx, actorID, donationID)
	if err != nil {
		return nil, err
	}
	if d.Status != model.DonationPending {
		return nil, appErrors.NewInvalidTransition("donation", d.Status, "checkout")
	}
	c, err := s.CampaignRepo.GetByID(ctx, d.CampaignID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive(s.now()) {
		return nil, appErrors.NewCampaignNotAcceptingDonations(c.Slug, c.Status)
	}

	result := &DonateResult{Donation: d}
	url, err := s.initiate(ctx, d, c)
	if err != nil {
		return result, err
	}
	result.RedirectURL = url
	return result, nil
}

// initiate asks the processor for a checkout session and stores its id on the
// donation. No database transaction is open while the processor is called.
func (s *DonationService) initiate(ctx context.Context, d *model.Donation, c *model.Campaign) (string, error) {
	nameTemplate := s.NameTemplate
	if nameTemplate == "" {
		nameTemplate = DefaultCheckoutNameTemplate
	}
	req := payment.CheckoutRequest{
		DonationID:  d.ID,
		CampaignID:  c.ID,
		Amount:      d.Amount,
		Currency:    s.Currency,
		Name:        RenderTemplate(nameTemplate, map[string]string{"title": c.Title}),
		Description: truncateRunes(c.Description, checkoutDescriptionLength),
		SuccessURL:  fmt.Sprintf("%s/donations/success/%d", s.BaseURL, d.ID),
		CancelURL:   fmt.Sprintf("%s/campaigns/%s", s.BaseURL, c.Slug),
	}
	if d.DonorID != nil {
		req.UserID = *d.DonorID
	}

	callCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	session, err := s.Gateway.CreateCheckout(callCtx, req)
	if err != nil {
		log.Printf("❌ Payment initiation failed for donation %d: %v\n", d.ID, err)
		return "", appErrors.NewPaymentInitiationFailed(d.ID, err)
	}

	if err := s.DonationRepo.SetTransactionID(ctx, d.ID, session.ID); err != nil {
		var invalid *appErrors.ErrInvalidTransition
		if errors.As(err, &invalid) {
			return "", err
		}
		return "", appErrors.NewPaymentInitiationFailed(d.ID, err)
	}
	d.TransactionID = session.ID
	return session.URL, nil
}

func (s *DonationService) owned(ctx context.Context, actorID, donationID int) (*model.Donation, error) {
	d, err := s.DonationRepo.GetByID(ctx, donationID)
	if err != nil {
		return nil, err
	}
	if d.DonorID == nil || *d.DonorID != actorID {
		return nil, appErrors.NewOwnershipMismatch(donationID, actorID)
	}
	return d, nil
}

// Success is the read-only return path of a checkout. It never changes the
// donation; confirmation only comes from the signed processor callback.
func (s *DonationService) Success(ctx context.Context, actorID, donationID int) (*Receipt, error) {
	d, err := s.owned(ctx, actorID, donationID)
	if err != nil {
		return nil, err
	}
	c, err := s.CampaignRepo.GetByID(ctx, d.CampaignID)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		Donation:             d,
		CampaignTitle:        c.Title,
		CampaignSlug:         c.Slug,
		AwaitingConfirmation: d.Status == model.DonationPending,
	}, nil
}

// SetStatus is the single entry point for donation status changes. Changes
// that move money are published as ledger events.
func (s *DonationService) SetStatus(ctx context.Context, donationID int, status string) (*model.Transition, error) {
	t, err := s.DonationRepo.SetStatus(ctx, donationID, status)
	if err != nil {
		return nil, err
	}
	s.afterTransition(t)
	return t, nil
}

func (s *DonationService) afterTransition(t *model.Transition) {
	if !t.Changed {
		log.Printf("ℹ️ Donation %d already %s, nothing to do\n", t.DonationID, t.To)
		return
	}
	log.Printf("✅ Donation %d moved %s -> %s (campaign %d delta %s)\n", t.DonationID, t.From, t.To, t.CampaignID, t.Delta.StringFixed(2))
	if t.Delta.IsZero() || s.Queue == nil {
		return
	}

	ev := model.LedgerEvent{
		Type:       ledger.EventType(t.Delta),
		DonationID: t.DonationID,
		CampaignID: t.CampaignID,
		DonorID:    t.DonorID,
		Amount:     t.Amount,
		Delta:      t.Delta,
		OccurredAt: s.now(),
	}
	if err := s.Queue.Publish(queue.LedgerTopic, ev); err != nil {
		log.Println("⚠️ failed to publish ledger event for donation", t.DonationID, ":", err)
	}
}

// Resolve applies a processor outcome to a donation. A failure only cancels a
// donation that is still pending; anything else is left untouched.
func (s *DonationService) Resolve(ctx context.Context, donationID int, outcome string) (*model.Transition, error) {
	switch outcome {
	case payment.OutcomeCompleted:
		return s.SetStatus(ctx, donationID, model.DonationCompleted)
	case payment.OutcomeFailed:
		t, err := s.DonationRepo.SetStatusFrom(ctx, donationID, model.DonationPending, model.DonationCancelled)
		if err != nil {
			return nil, err
		}
		s.afterTransition(t)
		return t, nil
	default:
		return nil, appErrors.NewValidation("outcome", fmt.Sprintf("unknown outcome %q", outcome))
	}
}

// ResolveEvent handles a verified processor callback. The donation is found by
// the checkout session id; the donation id in the session metadata is used when
// the session was replaced by a retried checkout. A replaced session can only
// complete the donation: its failure says nothing about the current session.
func (s *DonationService) ResolveEvent(ctx context.Context, ev *payment.Event) (*model.Transition, error) {
	if ev.Ignored {
		log.Printf("ℹ️ Ignoring processor event %s (%s)\n", ev.ID, ev.Type)
		return nil, nil
	}

	d, err := s.DonationRepo.GetByTransactionID(ctx, ev.CorrelationID)
	if err != nil {
		var notFound *appErrors.ErrDonationNotFound
		if !errors.As(err, &notFound) || ev.DonationID == 0 {
			return nil, err
		}
		d, err = s.DonationRepo.GetByID(ctx, ev.DonationID)
		if err != nil {
			return nil, err
		}
		if ev.Outcome != payment.OutcomeCompleted {
			log.Printf("ℹ️ Ignoring %s outcome of replaced session %s for donation %d\n", ev.Outcome, ev.CorrelationID, d.ID)
			return nil, nil
		}
		log.Printf("⚠️ Session %s is not the current session of donation %d\n", ev.CorrelationID, d.ID)
	}
	return s.Resolve(ctx, d.ID, ev.Outcome)
}

func (s *DonationService) MyDonations(ctx context.Context, donorID int) (*DonorHistory, error) {
	donations, err := s.DonationRepo.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	total, err := s.DonationRepo.SumCompletedByDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	return &DonorHistory{Donations: donations, TotalDonated: total}, nil
}

// StalePending lists donations still pending after olderThan, for reconciliation.
func (s *DonationService) StalePending(ctx context.Context, olderThan time.Duration) ([]*model.Donation, error) {
	return s.DonationRepo.ListStalePending(ctx, s.now().Add(-olderThan))
}

// VerifyLedger checks amount_raised of a campaign against its completed donations.
func (s *DonationService) VerifyLedger(ctx context.Context, campaignSlug string) (*LedgerCheck, error) {
	c, err := s.CampaignRepo.GetBySlug(ctx, campaignSlug)
	if err != nil {
		return nil, err
	}
	sum, err := s.DonationRepo.SumCompletedForCampaign(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return &LedgerCheck{
		CampaignID:   c.ID,
		Slug:         c.Slug,
		AmountRaised: c.AmountRaised,
		CompletedSum: sum,
		Consistent:   c.AmountRaised.Equal(sum),
	}, nil
}

