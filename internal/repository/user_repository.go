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

// UserRepositoryInterface defines methods used by services
type UserRepositoryInterface interface {
	CreateWithProfile(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id int) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByToken(ctx context.Context, token string) (*model.User, error)

	GetProfile(ctx context.Context, userID int) (*model.Profile, error)
	UpdateProfile(ctx context.Context, p *model.Profile) error
	IncrementCampaignsCreated(ctx context.Context, userID int) error
	SetTotalDonated(ctx context.Context, userID int, total decimal.Decimal) error
}

// UserRepository is the concrete implementation
type UserRepository struct {
	DB *sql.DB
}

// CreateWithProfile inserts the user and then its empty profile in one transaction.
func (r *UserRepository) CreateWithProfile(ctx context.Context, u *model.User) error {
	u.CreatedAt = time.Now().UTC()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
        INSERT INTO users (username, email, password_hash, api_token, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `, u.Username, u.Email, u.PasswordHash, u.APIToken, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return appErrors.NewValidation("username", "already taken")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO profiles (user_id) VALUES ($1)`, u.ID); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user: %w", err)
	}
	return nil
}

const userColumns = `id, username, email, password_hash, api_token, created_at`

func (r *UserRepository) getBy(ctx context.Context, column string, value any) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+`=$1`, value).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.APIToken, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	u, err := r.getBy(ctx, "id", id)
	if err == sql.ErrNoRows {
		return nil, appErrors.NewUserNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := r.getBy(ctx, "username", username)
	if err == sql.ErrNoRows {
		return nil, appErrors.NewUsernameNotFound(username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, appErrors.NewUnauthorized("missing token")
	}
	u, err := r.getBy(ctx, "api_token", token)
	if err == sql.ErrNoRows {
		return nil, appErrors.NewUnauthorized("unknown token")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetProfile(ctx context.Context, userID int) (*model.Profile, error) {
	var (
		p         model.Profile
		birthDate sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
        SELECT user_id, bio, phone, birth_date, country, city, website, total_donated, campaigns_created
        FROM profiles WHERE user_id=$1
    `, userID).Scan(&p.UserID, &p.Bio, &p.Phone, &birthDate, &p.Country, &p.City, &p.Website, &p.TotalDonated, &p.CampaignsCreated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewUserNotFound(userID)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if birthDate.Valid {
		p.BirthDate = &birthDate.Time
	}
	p.TotalDonated = p.TotalDonated.Round(2)
	return &p, nil
}

// UpdateProfile writes the user editable fields. Stats are maintained separately.
func (r *UserRepository) UpdateProfile(ctx context.Context, p *model.Profile) error {
	var birthDate any
	if p.BirthDate != nil {
		birthDate = dateOnly(*p.BirthDate)
	}
	res, err := r.DB.ExecContext(ctx, `
        UPDATE profiles SET bio=$1, phone=$2, birth_date=$3, country=$4, city=$5, website=$6
        WHERE user_id=$7
    `, p.Bio, p.Phone, birthDate, p.Country, p.City, p.Website, p.UserID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewUserNotFound(p.UserID)
	}
	return nil
}

func (r *UserRepository) IncrementCampaignsCreated(ctx context.Context, userID int) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE profiles SET campaigns_created = campaigns_created + 1 WHERE user_id=$1`, userID)
	if err != nil {
		return fmt.Errorf("failed to update campaigns_created: %w", err)
	}
	return nil
}

func (r *UserRepository) SetTotalDonated(ctx context.Context, userID int, total decimal.Decimal) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE profiles SET total_donated=$1 WHERE user_id=$2`, total, userID)
	if err != nil {
		return fmt.Errorf("failed to update total_donated: %w", err)
	}
	return nil
}

var _ UserRepositoryInterface = (*UserRepository)(nil)
