package service

import (
	"context"
	"errors"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
)

const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.@+-]{3,150}$`)

type AccountService struct {
	UserRepo     repository.UserRepositoryInterface
	DonationRepo repository.DonationRepositoryInterface

	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// ProfileInput carries the editable profile fields; nil means unchanged.
type ProfileInput struct {
	Bio       *string
	Phone     *string
	BirthDate *time.Time
	Country   *string
	City      *string
	Website   *string
}

// Register creates the user and then, in the same transaction, its profile.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if !usernamePattern.MatchString(username) {
		return nil, appErrors.NewValidation("username", "must be 3-150 letters, digits or @.+-_")
	}
	if email != "" && !strings.Contains(email, "@") {
		return nil, appErrors.NewValidation("email", "is not a valid address")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, appErrors.NewValidation("password", "must be at least 8 characters")
	}

	cost := s.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		APIToken:     uuid.NewString(),
	}
	if err := s.UserRepo.CreateWithProfile(ctx, u); err != nil {
		return nil, err
	}
	log.Printf("👤 User %q registered\n", u.Username)
	return u, nil
}

// Login checks the password and returns the user's API token.
func (s *AccountService) Login(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.UserRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		var notFound *appErrors.ErrUserNotFound
		if errors.As(err, &notFound) {
			return nil, appErrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, appErrors.NewUnauthorized("invalid credentials")
	}
	return u, nil
}

func (s *AccountService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	return s.UserRepo.GetByToken(ctx, token)
}

func (s *AccountService) GetProfile(ctx context.Context, userID int) (*model.Profile, error) {
	return s.UserRepo.GetProfile(ctx, userID)
}

// UpdateProfile edits the owner's profile. Donation and campaign counters are
// maintained by the system and cannot be set here.
func (s *AccountService) UpdateProfile(ctx context.Context, userID int, in ProfileInput) (*model.Profile, error) {
	p, err := s.UserRepo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Bio != nil {
		p.Bio = *in.Bio
	}
	if in.Phone != nil {
		if utf8.RuneCountInString(*in.Phone) > 20 {
			return nil, appErrors.NewValidation("phone", "must be at most 20 characters")
		}
		p.Phone = *in.Phone
	}
	if in.BirthDate != nil {
		if in.BirthDate.After(time.Now()) {
			return nil, appErrors.NewValidation("birth_date", "must not be in the future")
		}
		p.BirthDate = in.BirthDate
	}
	if in.Country != nil {
		p.Country = *in.Country
	}
	if in.City != nil {
		p.City = *in.City
	}
	if in.Website != nil {
		if *in.Website != "" {
			u, err := url.Parse(*in.Website)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return nil, appErrors.NewValidation("website", "must be an http(s) URL")
			}
		}
		p.Website = *in.Website
	}

	if err := s.UserRepo.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RefreshDonorTotals recomputes total_donated from the donor's completed donations.
func (s *AccountService) RefreshDonorTotals(ctx context.Context, donorID int) error {
	total, err := s.DonationRepo.SumCompletedByDonor(ctx, donorID)
	if err != nil {
		return err
	}
	return s.UserRepo.SetTotalDonated(ctx, donorID, total)
}
