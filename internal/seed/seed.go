// Package seed loads demo users, categories and campaigns from a YAML file.
// Everything goes through the services so the data obeys the same rules as
// data created over HTTP.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/unclebandit/crowdfund-backend/internal/app"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
	"github.com/unclebandit/crowdfund-backend/internal/service"
	"github.com/unclebandit/crowdfund-backend/internal/slug"
)

type Fixtures struct {
	Categories []Category `yaml:"categories"`
	Users      []User     `yaml:"users"`
	Campaigns  []Campaign `yaml:"campaigns"`
}

type Category struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
}

type User struct {
	Username string  `yaml:"username"`
	Email    string  `yaml:"email"`
	Password string  `yaml:"password"`
	Profile  Profile `yaml:"profile"`
}

type Profile struct {
	Bio     string `yaml:"bio"`
	City    string `yaml:"city"`
	Country string `yaml:"country"`
	Website string `yaml:"website"`
}

type Campaign struct {
	Creator     string `yaml:"creator"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Goal        string `yaml:"goal"`
	Days        int    `yaml:"days"`
	Category    string `yaml:"category"`
	ImageURL    string `yaml:"image_url"`
	Publish     bool   `yaml:"publish"`
}

// Summary counts what a run created. Existing rows are skipped.
type Summary struct {
	Categories int
	Users      int
	Campaigns  int
}

func Load(path string) (*Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &f, nil
}

// Apply creates the fixtures. Running it again only adds what is missing.
func Apply(ctx context.Context, a *app.App, f *Fixtures) (*Summary, error) {
	var sum Summary

	categories := map[string]int{}
	for _, c := range f.Categories {
		existing, err := a.Campaigns.CategoryRepo.GetByName(ctx, c.Name)
		if err == nil {
			categories[c.Name] = existing.ID
			continue
		}
		var notFound *appErrors.ErrCategoryNotFound
		if !errors.As(err, &notFound) {
			return nil, err
		}
		cat := &model.Category{Name: c.Name, Description: c.Description, Icon: c.Icon}
		if err := a.Campaigns.CreateCategory(ctx, cat); err != nil {
			return nil, fmt.Errorf("category %q: %w", c.Name, err)
		}
		categories[c.Name] = cat.ID
		sum.Categories++
	}

	users := map[string]*model.User{}
	for _, u := range f.Users {
		user, created, err := ensureUser(ctx, a.Accounts, u)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", u.Username, err)
		}
		users[u.Username] = user
		if created {
			sum.Users++
		}
	}

	for _, c := range f.Campaigns {
		created, err := ensureCampaign(ctx, a.Campaigns, c, users, categories)
		if err != nil {
			return nil, fmt.Errorf("campaign %q: %w", c.Title, err)
		}
		if created {
			sum.Campaigns++
		}
	}

	return &sum, nil
}

func ensureUser(ctx context.Context, accounts *service.AccountService, u User) (*model.User, bool, error) {
	user, err := accounts.Register(ctx, u.Username, u.Email, u.Password)
	var invalid *appErrors.ErrValidation
	if errors.As(err, &invalid) && invalid.Field == "username" {
		// already seeded
		user, err = accounts.Login(ctx, u.Username, u.Password)
		return user, false, err
	}
	if err != nil {
		return nil, false, err
	}

	p := u.Profile
	_, err = accounts.UpdateProfile(ctx, user.ID, service.ProfileInput{
		Bio:     &p.Bio,
		City:    &p.City,
		Country: &p.Country,
		Website: &p.Website,
	})
	if err != nil {
		return nil, false, err
	}
	log.Println("👤 Seeded user", u.Username)
	return user, true, nil
}

func ensureCampaign(ctx context.Context, campaigns *service.CampaignService, c Campaign, users map[string]*model.User, categories map[string]int) (bool, error) {
	creator, ok := users[c.Creator]
	if !ok {
		return false, appErrors.NewUsernameNotFound(c.Creator)
	}
	if _, err := campaigns.CampaignRepo.GetBySlug(ctx, slug.Make(c.Title, creator.Username)); err == nil {
		return false, nil
	}

	goal, err := decimal.NewFromString(c.Goal)
	if err != nil {
		return false, appErrors.NewValidation("goal", "must be a number")
	}
	days := c.Days
	if days <= 0 {
		days = 30
	}

	in := service.CampaignInput{
		Title:       c.Title,
		Description: c.Description,
		Goal:        goal,
		EndDate:     time.Now().UTC().AddDate(0, 0, days),
		ImageURL:    c.ImageURL,
	}
	if c.Category != "" {
		id, ok := categories[c.Category]
		if !ok {
			return false, appErrors.NewCategoryNameNotFound(c.Category)
		}
		in.CategoryID = &id
	}

	created, err := campaigns.CreateCampaign(ctx, creator.ID, in)
	if err != nil {
		return false, err
	}
	if c.Publish {
		if _, err := campaigns.Publish(ctx, creator.ID, created.Slug); err != nil {
			return false, err
		}
	}
	log.Println("📣 Seeded campaign", created.Slug)
	return true, nil
}
