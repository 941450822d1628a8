package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

func TestRegisterLoginAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u := env.register(t, "maria")
	assert.NotEqual(t, "password123", u.PasswordHash)
	assert.NotEmpty(t, u.APIToken)

	logged, err := env.accounts.Login(ctx, "maria", "password123")
	require.NoError(t, err)
	assert.Equal(t, u.APIToken, logged.APIToken)

	var unauthorized *appErrors.ErrUnauthorized
	_, err = env.accounts.Login(ctx, "maria", "wrong-password")
	assert.True(t, errors.As(err, &unauthorized))
	_, err = env.accounts.Login(ctx, "nobody", "password123")
	assert.True(t, errors.As(err, &unauthorized))

	me, err := env.accounts.Authenticate(ctx, u.APIToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, me.ID)

	profile, err := env.accounts.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, profile.UserID)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "maria")

	tests := []struct {
		username, email, password, field string
	}{
		{"ab", "", "password123", "username"},
		{"with space", "", "password123", "username"},
		{"joao", "not-an-email", "password123", "email"},
		{"joao", "", "short", "password"},
		{"maria", "", "password123", "username"},
	}
	for _, tt := range tests {
		_, err := env.accounts.Register(context.Background(), tt.username, tt.email, tt.password)
		var validation *appErrors.ErrValidation
		require.True(t, errors.As(err, &validation), tt.username)
		assert.Equal(t, tt.field, validation.Field)
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "maria")

	bio, site := "Nurse in Porto", "https://maria.example.org"
	birth := time.Date(1988, 7, 2, 0, 0, 0, 0, time.UTC)
	p, err := env.accounts.UpdateProfile(ctx, u.ID, service.ProfileInput{Bio: &bio, Website: &site, BirthDate: &birth})
	require.NoError(t, err)
	assert.Equal(t, bio, p.Bio)

	bad := "ftp://example.org"
	_, err = env.accounts.UpdateProfile(ctx, u.ID, service.ProfileInput{Website: &bad})
	var validation *appErrors.ErrValidation
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "website", validation.Field)

	future := time.Now().AddDate(1, 0, 0)
	_, err = env.accounts.UpdateProfile(ctx, u.ID, service.ProfileInput{BirthDate: &future})
	require.True(t, errors.As(err, &validation))

	p, err = env.accounts.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, site, p.Website)
}

func TestWorker_RefreshesDonorTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	maria := env.register(t, "maria")
	joao := env.register(t, "joao")
	c := env.activeCampaign(t, maria, "Rebuild the school", "1000.00")
	env.complete(t, env.donate(t, joao, c, "40.00"))
	env.complete(t, env.donate(t, joao, c, "2.50"))

	worker := service.NewWorker(env.accounts)
	for _, ev := range env.queue.events() {
		require.NoError(t, worker.Handle(ev))
	}
	// anonymous or deleted donors have nothing to refresh
	require.NoError(t, worker.Handle(model.LedgerEvent{Type: model.EventDonationCompleted, DonationID: 99}))

	p, err := env.accounts.GetProfile(ctx, joao.ID)
	require.NoError(t, err)
	requireDecimal(t, "42.5", p.TotalDonated)
}
