package repository

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/shopspring/decimal"

    "github.com/unclebandit/crowdfund-backend/internal/db"
    appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
    "github.com/unclebandit/crowdfund-backend/internal/model"
)

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type CampaignRepositoryInterface interface {
    // Campaign CRUD
    Create(ctx context.Context, c *model.Campaign) error
    GetByID(ctx context.Context, id int) (*model.Campaign, error)
    GetBySlug(ctx context.Context, slug string) (*model.Campaign, error)
    Update(ctx context.Context, c *model.Campaign) error
    CompareAndSetStatus(ctx context.Context, campaignID int, from, to string) (bool, error)
    ListCampaigns(ctx context.Context, offset, limit int, categoryID *int, status string) ([]*model.Campaign, int, error)
    ListByCreator(ctx context.Context, creatorID, limit int) ([]*model.Campaign, error)
    TopFunded(ctx context.Context, limit int) ([]*model.Campaign, error)
    Stats(ctx context.Context, creatorID *int) (*model.CampaignStats, error)
    ExpireOverdue(ctx context.Context, today time.Time) (int64, error)

    // Ledger
    Credit(ctx context.Context, exec Execer, campaignID int, amount decimal.Decimal) error
}

type CampaignRepository struct {
    DB *sql.DB
}

const campaignColumns = `id, creator_id, title, description, goal, amount_raised, end_date, category_id, image_url, status, slug, created_at, updated_at`

type rowScanner interface {
    Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
    var (
        c          model.Campaign
        categoryID sql.NullInt64
        updatedAt  sql.NullTime
    )
    err := row.Scan(&c.ID, &c.CreatorID, &c.Title, &c.Description, &c.Goal, &c.AmountRaised,
        &c.EndDate, &categoryID, &c.ImageURL, &c.Status, &c.Slug, &c.CreatedAt, &updatedAt)
    if err != nil {
        return nil, err
    }
    if categoryID.Valid {
        id := int(categoryID.Int64)
        c.CategoryID = &id
    }
    if updatedAt.Valid {
        c.UpdatedAt = &updatedAt.Time
    }
    c.Goal = c.Goal.Round(2)
    c.AmountRaised = c.AmountRaised.Round(2)
    return &c, nil
}

func dateOnly(t time.Time) time.Time {
    return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ====================== Campaign CRUD ======================

// Create inserts a campaign. amount_raised always starts at zero.
func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
    c.CreatedAt = time.Now().UTC()
    c.AmountRaised = decimal.Zero
    c.EndDate = dateOnly(c.EndDate)
    if c.Status == "" {
        c.Status = model.CampaignDraft
    }
    query := `
        INSERT INTO campaigns (creator_id, title, description, goal, amount_raised, end_date, category_id, image_url, status, slug, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id
    `
    err := r.DB.QueryRowContext(ctx, query, c.CreatorID, c.Title, c.Description, c.Goal, c.AmountRaised,
        c.EndDate, c.CategoryID, c.ImageURL, c.Status, c.Slug, c.CreatedAt).Scan(&c.ID)
    if err != nil {
        if db.IsUniqueViolation(err) {
            return appErrors.NewDuplicateSlug(c.Slug)
        }
        return fmt.Errorf("failed to create campaign: %w", err)
    }
    return nil
}

// Update writes the editable fields. Slug, status and amount_raised are never
// touched here; status only moves through CompareAndSetStatus.
func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign) error {
    now := time.Now().UTC()
    query := `
        UPDATE campaigns
        SET title=$1, description=$2, goal=$3, end_date=$4, category_id=$5, image_url=$6, updated_at=$7
        WHERE id=$8
    `
    res, err := r.DB.ExecContext(ctx, query, c.Title, c.Description, c.Goal, dateOnly(c.EndDate),
        c.CategoryID, c.ImageURL, now, c.ID)
    if err != nil {
        return fmt.Errorf("failed to update campaign: %w", err)
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return appErrors.NewCampaignNotFound(c.ID)
    }
    c.UpdatedAt = &now
    return nil
}

// CompareAndSetStatus moves the campaign to `to` only while it is still in `from`.
func (r *CampaignRepository) CompareAndSetStatus(ctx context.Context, campaignID int, from, to string) (bool, error) {
    query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`
    res, err := r.DB.ExecContext(ctx, query, to, time.Now().UTC(), campaignID, from)
    if err != nil {
        return false, fmt.Errorf("failed to update campaign status: %w", err)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
    c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewCampaignNotFound(id)
        }
        return nil, fmt.Errorf("failed to get campaign: %w", err)
    }
    return c, nil
}

func (r *CampaignRepository) GetBySlug(ctx context.Context, slug string) (*model.Campaign, error) {
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE slug=$1`
    c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, slug))
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewCampaignSlugNotFound(slug)
        }
        return nil, fmt.Errorf("failed to get campaign: %w", err)
    }
    return c, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, offset, limit int, categoryID *int, status string) ([]*model.Campaign, int, error) {
    campaigns := []*model.Campaign{}
    where := ` WHERE 1=1`
    args := []interface{}{}
    argPos := 1

    if categoryID != nil {
        where += fmt.Sprintf(" AND category_id=$%d", argPos)
        args = append(args, *categoryID)
        argPos++
    }
    if status != "" {
        where += fmt.Sprintf(" AND status=$%d", argPos)
        args = append(args, status)
        argPos++
    }

    query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
        fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)

    rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
    if err != nil {
        return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
    }
    defer rows.Close()

    for rows.Next() {
        c, err := scanCampaign(rows)
        if err != nil {
            return nil, 0, err
        }
        campaigns = append(campaigns, c)
    }
    if err := rows.Err(); err != nil {
        return nil, 0, err
    }

    // Count total
    var total int
    if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
        return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
    }

    return campaigns, total, nil
}

func (r *CampaignRepository) ListByCreator(ctx context.Context, creatorID, limit int) ([]*model.Campaign, error) {
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE creator_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`
    return r.list(ctx, query, creatorID, limit)
}

// TopFunded returns the active campaigns with the largest amount_raised.
func (r *CampaignRepository) TopFunded(ctx context.Context, limit int) ([]*model.Campaign, error) {
    query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status=$1 ORDER BY amount_raised DESC, id ASC LIMIT $2`
    return r.list(ctx, query, model.CampaignActive, limit)
}

func (r *CampaignRepository) list(ctx context.Context, query string, args ...any) ([]*model.Campaign, error) {
    rows, err := r.DB.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, fmt.Errorf("failed to list campaigns: %w", err)
    }
    defer rows.Close()

    campaigns := []*model.Campaign{}
    for rows.Next() {
        c, err := scanCampaign(rows)
        if err != nil {
            return nil, err
        }
        campaigns = append(campaigns, c)
    }
    return campaigns, rows.Err()
}

// Stats aggregates counters over all campaigns, or over one creator's campaigns.
func (r *CampaignRepository) Stats(ctx context.Context, creatorID *int) (*model.CampaignStats, error) {
    query := `
        SELECT
            COUNT(*),
            COALESCE(SUM(CASE WHEN status=$1 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status=$2 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(amount_raised), 0)
        FROM campaigns`
    args := []interface{}{model.CampaignActive, model.CampaignCompleted}
    if creatorID != nil {
        query += ` WHERE creator_id=$3`
        args = append(args, *creatorID)
    }

    var stats model.CampaignStats
    err := r.DB.QueryRowContext(ctx, query, args...).Scan(&stats.Total, &stats.Active, &stats.Completed, &stats.TotalRaised)
    if err != nil {
        return nil, fmt.Errorf("failed to compute campaign stats: %w", err)
    }
    stats.TotalRaised = stats.TotalRaised.Round(2)
    return &stats, nil
}

// ExpireOverdue marks active campaigns whose end date has passed as expired.
func (r *CampaignRepository) ExpireOverdue(ctx context.Context, today time.Time) (int64, error) {
    query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE status=$3 AND end_date <= $4`
    res, err := r.DB.ExecContext(ctx, query, model.CampaignExpired, time.Now().UTC(), model.CampaignActive, dateOnly(today))
    if err != nil {
        return 0, fmt.Errorf("failed to expire campaigns: %w", err)
    }
    return res.RowsAffected()
}

// ====================== Ledger ======================

// Credit adds amount (negative to debit) to amount_raised as a single row update,
// so concurrent completions for one campaign serialize on the row instead of
// overwriting each other. exec is normally the transaction of the status change.
func (r *CampaignRepository) Credit(ctx context.Context, exec Execer, campaignID int, amount decimal.Decimal) error {
    if exec == nil {
        exec = r.DB
    }
    query := `UPDATE campaigns SET amount_raised = amount_raised + $1, updated_at = $2 WHERE id = $3`
    res, err := exec.ExecContext(ctx, query, amount, time.Now().UTC(), campaignID)
    if err != nil {
        return fmt.Errorf("failed to credit campaign %d: %w", campaignID, err)
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return appErrors.NewCampaignNotFound(campaignID)
    }
    return nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
