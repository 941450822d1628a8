package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/ledger"
	"github.com/unclebandit/crowdfund-backend/internal/model"
)

// maxStatusAttempts bounds the compare-and-swap loop in SetStatus.
const maxStatusAttempts = 5

type DonationRepositoryInterface interface {
	Create(ctx context.Context, d *model.Donation) error
	GetByID(ctx context.Context, id int) (*model.Donation, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*model.Donation, error)
	SetTransactionID(ctx context.Context, id int, transactionID string) error
	SetStatus(ctx context.Context, id int, status string) (*model.Transition, error)
	SetStatusFrom(ctx context.Context, id int, from, to string) (*model.Transition, error)

	ListByDonor(ctx context.Context, donorID int) ([]*model.Donation, error)
	ListCompletedForCampaign(ctx context.Context, campaignID, limit int) ([]*model.Donation, error)
	ListCompletedForCreator(ctx context.Context, creatorID, limit int) ([]*model.Donation, error)
	ListStalePending(ctx context.Context, createdBefore time.Time) ([]*model.Donation, error)
	CountDonors(ctx context.Context, campaignID int) (int, error)
	SumCompletedForCampaign(ctx context.Context, campaignID int) (decimal.Decimal, error)
	SumCompletedByDonor(ctx context.Context, donorID int) (decimal.Decimal, error)
}

// CampaignCreditor applies ledger deltas to a campaign inside the caller's transaction.
type CampaignCreditor interface {
	Credit(ctx context.Context, exec Execer, campaignID int, amount decimal.Decimal) error
}

type DonationRepository struct {
	DB        *sql.DB
	Campaigns CampaignCreditor

	// afterRead runs between the status read and the conditional update.
	afterRead func(id int)
}

const donationColumns = `d.id, d.donor_id, d.campaign_id, d.amount, d.status, d.is_anonymous, d.message, d.transaction_id, d.created_at, d.updated_at`

func scanDonation(row rowScanner, extra ...any) (*model.Donation, error) {
	var (
		d         model.Donation
		donorID   sql.NullInt64
		updatedAt sql.NullTime
	)
	dest := []any{&d.ID, &donorID, &d.CampaignID, &d.Amount, &d.Status, &d.IsAnonymous,
		&d.Message, &d.TransactionID, &d.CreatedAt, &updatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if donorID.Valid {
		id := int(donorID.Int64)
		d.DonorID = &id
	}
	if updatedAt.Valid {
		d.UpdatedAt = &updatedAt.Time
	}
	d.Amount = d.Amount.Round(2)
	return &d, nil
}

// Create inserts a new donation. Donations always start pending.
func (r *DonationRepository) Create(ctx context.Context, d *model.Donation) error {
	d.CreatedAt = time.Now().UTC()
	d.Status = model.DonationPending
	query := `
        INSERT INTO donations (donor_id, campaign_id, amount, status, is_anonymous, message, transaction_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	err := r.DB.QueryRowContext(ctx, query, d.DonorID, d.CampaignID, d.Amount, d.Status,
		d.IsAnonymous, d.Message, d.TransactionID, d.CreatedAt).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to create donation: %w", err)
	}
	return nil
}

func (r *DonationRepository) GetByID(ctx context.Context, id int) (*model.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations d WHERE d.id=$1`
	d, err := scanDonation(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewDonationNotFound(id)
		}
		return nil, fmt.Errorf("failed to get donation: %w", err)
	}
	return d, nil
}

// GetByTransactionID looks a donation up by its payment processor correlation id.
func (r *DonationRepository) GetByTransactionID(ctx context.Context, transactionID string) (*model.Donation, error) {
	if transactionID == "" {
		return nil, appErrors.NewDonationByTransactionNotFound(transactionID)
	}
	query := `SELECT ` + donationColumns + ` FROM donations d WHERE d.transaction_id=$1`
	d, err := scanDonation(r.DB.QueryRowContext(ctx, query, transactionID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewDonationByTransactionNotFound(transactionID)
		}
		return nil, fmt.Errorf("failed to get donation: %w", err)
	}
	return d, nil
}

// SetTransactionID records the checkout session of a pending donation. A retried
// checkout replaces the previous session id; settled donations are left alone.
func (r *DonationRepository) SetTransactionID(ctx context.Context, id int, transactionID string) error {
	query := `UPDATE donations SET transaction_id=$1, updated_at=$2 WHERE id=$3 AND status=$4`
	res, err := r.DB.ExecContext(ctx, query, transactionID, time.Now().UTC(), id, model.DonationPending)
	if err != nil {
		return fmt.Errorf("failed to store transaction id: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		d, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return appErrors.NewInvalidTransition("donation", d.Status, "checkout")
	}
	return nil
}

// SetStatus is the only writer of donations.status. It applies the ledger rule:
// the new status is written with a compare-and-swap on the status that was read,
// and the resulting delta is applied to the campaign in the same transaction.
// Repeating a status the donation already has changes nothing.
func (r *DonationRepository) SetStatus(ctx context.Context, id int, status string) (*model.Transition, error) {
	return r.transition(ctx, id, "", status)
}

// SetStatusFrom applies the status change only while the donation is still in
// `from`. Otherwise it returns an unchanged transition describing the current status.
func (r *DonationRepository) SetStatusFrom(ctx context.Context, id int, from, to string) (*model.Transition, error) {
	return r.transition(ctx, id, from, to)
}

func (r *DonationRepository) transition(ctx context.Context, id int, expect, status string) (*model.Transition, error) {
	for attempt := 1; attempt <= maxStatusAttempts; attempt++ {
		t, retry, err := r.setStatusOnce(ctx, id, expect, status)
		if err != nil {
			return nil, err
		}
		if !retry {
			return t, nil
		}
		log.Printf("⚠️ donation %d changed concurrently, retrying status update (attempt %d/%d)\n", id, attempt, maxStatusAttempts)
	}
	return nil, fmt.Errorf("failed to set status of donation %d: too many concurrent updates", id)
}

// setStatusOnce reads the current status, then moves it with an update
// conditioned on that status. When another writer got there first the update
// matches no row and the caller retries with a fresh read.
func (r *DonationRepository) setStatusOnce(ctx context.Context, id int, expect, status string) (*model.Transition, bool, error) {
	var donorID sql.NullInt64
	t := &model.Transition{DonationID: id, To: status}
	err := r.DB.QueryRowContext(ctx, `SELECT campaign_id, donor_id, amount, status FROM donations WHERE id=$1`, id).
		Scan(&t.CampaignID, &donorID, &t.Amount, &t.From)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, appErrors.NewDonationNotFound(id)
		}
		return nil, false, fmt.Errorf("failed to read donation: %w", err)
	}
	if donorID.Valid {
		donor := int(donorID.Int64)
		t.DonorID = &donor
	}
	t.Amount = t.Amount.Round(2)
	t.Delta = decimal.Zero

	if expect != "" && t.From != expect {
		t.To = t.From
		return t, false, nil
	}
	guard := ledger.CanTransition(t.From, status)
	if !guard.Allowed {
		if !model.IsDonationStatus(status) {
			return nil, false, appErrors.NewValidation("status", guard.Reason)
		}
		return nil, false, appErrors.NewInvalidTransition("donation", t.From, status)
	}
	if t.From == status {
		return t, false, nil
	}

	if r.afterRead != nil {
		r.afterRead(id)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE donations SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
		status, time.Now().UTC(), id, t.From)
	if err != nil {
		return nil, false, fmt.Errorf("failed to update donation status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, true, nil
	}

	t.Delta = ledger.Delta(t.From, status, t.Amount)
	if !t.Delta.IsZero() {
		if err := r.Campaigns.Credit(ctx, tx, t.CampaignID, t.Delta); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit status change: %w", err)
	}
	t.Changed = true
	return t, false, nil
}

// ====================== Read paths ======================

func (r *DonationRepository) ListByDonor(ctx context.Context, donorID int) ([]*model.Donation, error) {
	query := `
        SELECT ` + donationColumns + `, c.title, c.slug
        FROM donations d JOIN campaigns c ON c.id = d.campaign_id
        WHERE d.donor_id=$1
        ORDER BY d.created_at DESC, d.id DESC
    `
	rows, err := r.DB.QueryContext(ctx, query, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	defer rows.Close()

	donations := []*model.Donation{}
	for rows.Next() {
		var title, slug string
		d, err := scanDonation(rows, &title, &slug)
		if err != nil {
			return nil, err
		}
		d.CampaignTitle, d.CampaignSlug = title, slug
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// ListCompletedForCampaign returns recent completed donations with donor names.
// Anonymous donations and deleted donors come back without a name.
func (r *DonationRepository) ListCompletedForCampaign(ctx context.Context, campaignID, limit int) ([]*model.Donation, error) {
	query := `
        SELECT ` + donationColumns + `, COALESCE(u.username, '')
        FROM donations d LEFT JOIN users u ON u.id = d.donor_id
        WHERE d.campaign_id=$1 AND d.status=$2
        ORDER BY d.created_at DESC, d.id DESC
        LIMIT $3
    `
	return r.listWithDonor(ctx, query, campaignID, model.DonationCompleted, limit)
}

// ListCompletedForCreator returns completed donations received by a creator's campaigns.
func (r *DonationRepository) ListCompletedForCreator(ctx context.Context, creatorID, limit int) ([]*model.Donation, error) {
	query := `
        SELECT ` + donationColumns + `, COALESCE(u.username, '')
        FROM donations d
        JOIN campaigns c ON c.id = d.campaign_id
        LEFT JOIN users u ON u.id = d.donor_id
        WHERE c.creator_id=$1 AND d.status=$2
        ORDER BY d.created_at DESC, d.id DESC
        LIMIT $3
    `
	return r.listWithDonor(ctx, query, creatorID, model.DonationCompleted, limit)
}

func (r *DonationRepository) listWithDonor(ctx context.Context, query string, args ...any) ([]*model.Donation, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	defer rows.Close()

	donations := []*model.Donation{}
	for rows.Next() {
		var username string
		d, err := scanDonation(rows, &username)
		if err != nil {
			return nil, err
		}
		if !d.IsAnonymous {
			d.DonorName = username
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// ListStalePending returns pending donations created before the cutoff.
func (r *DonationRepository) ListStalePending(ctx context.Context, createdBefore time.Time) ([]*model.Donation, error) {
	query := `
        SELECT ` + donationColumns + `
        FROM donations d
        WHERE d.status=$1 AND d.created_at < $2
        ORDER BY d.created_at ASC
    `
	rows, err := r.DB.QueryContext(ctx, query, model.DonationPending, createdBefore.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending donations: %w", err)
	}
	defer rows.Close()

	donations := []*model.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// CountDonors counts distinct donors with a completed donation to the campaign.
func (r *DonationRepository) CountDonors(ctx context.Context, campaignID int) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT donor_id) FROM donations WHERE campaign_id=$1 AND status=$2`,
		campaignID, model.DonationCompleted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count donors: %w", err)
	}
	return count, nil
}

func (r *DonationRepository) SumCompletedForCampaign(ctx context.Context, campaignID int) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM donations WHERE campaign_id=$1 AND status=$2`, campaignID)
}

func (r *DonationRepository) SumCompletedByDonor(ctx context.Context, donorID int) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(amount), 0) FROM donations WHERE donor_id=$1 AND status=$2`, donorID)
}

func (r *DonationRepository) sum(ctx context.Context, query string, id int) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.DB.QueryRowContext(ctx, query, id, model.DonationCompleted).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum donations: %w", err)
	}
	return total.Round(2), nil
}

var _ DonationRepositoryInterface = (*DonationRepository)(nil)
