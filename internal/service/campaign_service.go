// internal/service/campaign_service.go
package service

import (
    "context"
    "errors"
    "log"
    "strings"
    "time"
    "unicode/utf8"

    "github.com/shopspring/decimal"

    appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
    "github.com/unclebandit/crowdfund-backend/internal/model"
    "github.com/unclebandit/crowdfund-backend/internal/repository"
    "github.com/unclebandit/crowdfund-backend/internal/slug"
)

// maxSlugAttempts bounds the numeric suffixes tried for a colliding slug.
const maxSlugAttempts = 20

const (
    maxTitleLength    = 200
    recentDonations   = 10
    topFundedCount    = 3
    dashboardDonation = 10
    dashboardCampaign = 5
)

type CampaignService struct {
    CampaignRepo repository.CampaignRepositoryInterface
    DonationRepo repository.DonationRepositoryInterface
    CategoryRepo repository.CategoryRepositoryInterface
    UserRepo     repository.UserRepositoryInterface

    // Now defaults to time.Now.
    Now func() time.Time
}

type CampaignInput struct {
    Title       string
    Description string
    Goal        decimal.Decimal
    EndDate     time.Time
    CategoryID  *int
    ImageURL    string
}

// CampaignUpdate carries the editable fields; nil means unchanged.
// Status may only be set to cancelled.
type CampaignUpdate struct {
    Title       *string
    Description *string
    Goal        *decimal.Decimal
    EndDate     *time.Time
    CategoryID  *int
    ImageURL    *string
    Status      *string
}

// CampaignView is a campaign with its derived values.
type CampaignView struct {
    model.Campaign
    Progress decimal.Decimal `json:"progress"`
    DaysLeft int             `json:"days_left"`
    IsActive bool            `json:"is_active"`
}

type CampaignDetails struct {
    CampaignView
    DonorsCount     int               `json:"donors_count"`
    RecentDonations []*model.Donation `json:"recent_donations"`
}

type CampaignOverview struct {
    Stats     *model.CampaignStats `json:"stats"`
    TopFunded []CampaignView       `json:"top_funded"`
}

type Dashboard struct {
    Profile         *model.Profile       `json:"profile"`
    Stats           *model.CampaignStats `json:"stats"`
    RecentDonations []*model.Donation    `json:"recent_donations"`
    Campaigns       []CampaignView       `json:"campaigns"`
}

func (s *CampaignService) now() time.Time {
    if s.Now != nil {
        return s.Now().UTC()
    }
    return time.Now().UTC()
}

func (s *CampaignService) view(c *model.Campaign) CampaignView {
    now := s.now()
    return CampaignView{
        Campaign: *c,
        Progress: c.Progress().Round(2),
        DaysLeft: c.DaysLeft(now),
        IsActive: c.IsActive(now),
    }
}

func (s *CampaignService) views(campaigns []*model.Campaign) []CampaignView {
    out := make([]CampaignView, len(campaigns))
    for i, c := range campaigns {
        out[i] = s.view(c)
    }
    return out
}

func validateTitle(title string) error {
    if title == "" {
        return appErrors.NewValidation("title", "must not be empty")
    }
    if utf8.RuneCountInString(title) > maxTitleLength {
        return appErrors.NewValidation("title", "must be at most 200 characters")
    }
    return nil
}

func validateGoal(goal decimal.Decimal) error {
    if !goal.IsPositive() {
        return appErrors.NewValidation("goal", "must be greater than zero")
    }
    if !goal.Equal(goal.Round(2)) {
        return appErrors.NewValidation("goal", "must have at most two decimal places")
    }
    return nil
}

func (s *CampaignService) validateCategory(ctx context.Context, categoryID *int) error {
    if categoryID == nil {
        return nil
    }
    if _, err := s.CategoryRepo.GetByID(ctx, *categoryID); err != nil {
        var notFound *appErrors.ErrCategoryNotFound
        if errors.As(err, &notFound) {
            return appErrors.NewValidation("category", "does not exist")
        }
        return err
    }
    return nil
}

// CreateCampaign stores a draft campaign for the creator. The slug is derived
// from the title and the creator's username; collisions get a numeric suffix.
func (s *CampaignService) CreateCampaign(ctx context.Context, creatorID int, in CampaignInput) (*model.Campaign, error) {
    in.Title = strings.TrimSpace(in.Title)
    if err := validateTitle(in.Title); err != nil {
        return nil, err
    }
    if err := validateGoal(in.Goal); err != nil {
        return nil, err
    }
    if in.EndDate.IsZero() || !in.EndDate.After(s.now()) {
        return nil, appErrors.NewValidation("end_date", "must be in the future")
    }
    if err := s.validateCategory(ctx, in.CategoryID); err != nil {
        return nil, err
    }

    creator, err := s.UserRepo.GetByID(ctx, creatorID)
    if err != nil {
        return nil, err
    }

    base := slug.Make(in.Title, creator.Username)
    if base == "" {
        base = slug.Make("campaign", creator.Username)
    }

    c := &model.Campaign{
        CreatorID:   creatorID,
        Title:       in.Title,
        Description: in.Description,
        Goal:        in.Goal,
        EndDate:     in.EndDate,
        CategoryID:  in.CategoryID,
        ImageURL:    in.ImageURL,
        Status:      model.CampaignDraft,
    }

    created := false
    for n := 1; n <= maxSlugAttempts; n++ {
        c.Slug = slug.WithSuffix(base, n)
        err = s.CampaignRepo.Create(ctx, c)
        var dup *appErrors.ErrDuplicateSlug
        if errors.As(err, &dup) {
            continue
        }
        if err != nil {
            return nil, err
        }
        created = true
        break
    }
    if !created {
        return nil, appErrors.NewDuplicateSlug(base)
    }

    if err := s.UserRepo.IncrementCampaignsCreated(ctx, creatorID); err != nil {
        log.Println("⚠️ failed to update campaigns_created for user", creatorID, ":", err)
    }

    log.Printf("📝 Campaign %q created by user %d\n", c.Slug, creatorID)
    return c, nil
}

func (s *CampaignService) getOwned(ctx context.Context, actorID int, campaignSlug, action string) (*model.Campaign, error) {
    c, err := s.CampaignRepo.GetBySlug(ctx, campaignSlug)
    if err != nil {
        return nil, err
    }
    if c.CreatorID != actorID {
        return nil, appErrors.NewPermissionDenied(actorID, action)
    }
    return c, nil
}

// UpdateCampaign edits a campaign on behalf of its creator. Slug and
// amount_raised are never editable.
func (s *CampaignService) UpdateCampaign(ctx context.Context, actorID int, campaignSlug string, in CampaignUpdate) (*model.Campaign, error) {
    c, err := s.getOwned(ctx, actorID, campaignSlug, "edit this campaign")
    if err != nil {
        return nil, err
    }

    if in.Title != nil {
        title := strings.TrimSpace(*in.Title)
        if err := validateTitle(title); err != nil {
            return nil, err
        }
        c.Title = title
    }
    if in.Description != nil {
        c.Description = *in.Description
    }
    if in.Goal != nil {
        if err := validateGoal(*in.Goal); err != nil {
            return nil, err
        }
        c.Goal = *in.Goal
    }
    if in.EndDate != nil {
        if in.EndDate.IsZero() {
            return nil, appErrors.NewValidation("end_date", "is required")
        }
        c.EndDate = *in.EndDate
    }
    if in.CategoryID != nil {
        if err := s.validateCategory(ctx, in.CategoryID); err != nil {
            return nil, err
        }
        c.CategoryID = in.CategoryID
    }
    if in.ImageURL != nil {
        c.ImageURL = *in.ImageURL
    }
    cancel := false
    if in.Status != nil && *in.Status != c.Status {
        if *in.Status != model.CampaignCancelled {
            return nil, appErrors.NewValidation("status", "creators may only cancel a campaign")
        }
        if c.Status != model.CampaignDraft && c.Status != model.CampaignActive {
            return nil, appErrors.NewInvalidTransition("campaign", c.Status, model.CampaignCancelled)
        }
        cancel = true
    }

    if err := s.CampaignRepo.Update(ctx, c); err != nil {
        return nil, err
    }
    if cancel {
        ok, err := s.CampaignRepo.CompareAndSetStatus(ctx, c.ID, c.Status, model.CampaignCancelled)
        if err != nil {
            return nil, err
        }
        if !ok {
            current, err := s.CampaignRepo.GetByID(ctx, c.ID)
            if err != nil {
                return nil, err
            }
            return nil, appErrors.NewInvalidTransition("campaign", current.Status, model.CampaignCancelled)
        }
        log.Printf("🛑 Campaign %q cancelled by its creator\n", c.Slug)
    }

    // status may have been changed by an admin since it was read
    return s.CampaignRepo.GetByID(ctx, c.ID)
}

// Publish moves a draft campaign to active. Publishing a campaign that is not a
// draft returns the campaign together with an ErrInvalidTransition, which
// callers report as a warning.
func (s *CampaignService) Publish(ctx context.Context, actorID int, campaignSlug string) (*model.Campaign, error) {
    c, err := s.getOwned(ctx, actorID, campaignSlug, "publish this campaign")
    if err != nil {
        return nil, err
    }
    if c.Status != model.CampaignDraft {
        return c, appErrors.NewInvalidTransition("campaign", c.Status, model.CampaignActive)
    }

    ok, err := s.CampaignRepo.CompareAndSetStatus(ctx, c.ID, model.CampaignDraft, model.CampaignActive)
    if err != nil {
        return nil, err
    }
    if !ok {
        current, err := s.CampaignRepo.GetByID(ctx, c.ID)
        if err != nil {
            return nil, err
        }
        return current, appErrors.NewInvalidTransition("campaign", current.Status, model.CampaignActive)
    }

    c.Status = model.CampaignActive
    log.Printf("🚀 Campaign %q published\n", c.Slug)
    return c, nil
}

// SetStatus is the administrative close of a campaign: completed, cancelled or expired.
func (s *CampaignService) SetStatus(ctx context.Context, campaignSlug, status string) (*model.Campaign, error) {
    switch status {
    case model.CampaignCompleted, model.CampaignCancelled, model.CampaignExpired:
    default:
        return nil, appErrors.NewValidation("status", "must be completed, cancelled or expired")
    }

    c, err := s.CampaignRepo.GetBySlug(ctx, campaignSlug)
    if err != nil {
        return nil, err
    }
    if c.Status == status {
        return c, nil
    }
    if c.Status != model.CampaignDraft && c.Status != model.CampaignActive {
        return nil, appErrors.NewInvalidTransition("campaign", c.Status, status)
    }

    ok, err := s.CampaignRepo.CompareAndSetStatus(ctx, c.ID, c.Status, status)
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, appErrors.NewInvalidTransition("campaign", c.Status, status)
    }
    c.Status = status
    return c, nil
}

// ExpireOverdue marks active campaigns with no days left as expired.
func (s *CampaignService) ExpireOverdue(ctx context.Context) (int64, error) {
    n, err := s.CampaignRepo.ExpireOverdue(ctx, s.now())
    if err != nil {
        return 0, err
    }
    log.Printf("⏰ %d campaign(s) expired\n", n)
    return n, nil
}

// ListCampaigns fetches active campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int, categoryID *int) ([]CampaignView, map[string]int, error) {
    if page < 1 {
        page = 1
    }
    if pageSize < 1 {
        pageSize = 20
    }
    if pageSize > 100 {
        pageSize = 100
    }
    offset := (page - 1) * pageSize

    ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, offset, pageSize, categoryID, model.CampaignActive)
    if err != nil {
        return nil, nil, err
    }

    totalPages := (total + pageSize - 1) / pageSize
    pagination := map[string]int{
        "page":        page,
        "page_size":   pageSize,
        "total_count": total,
        "total_pages": totalPages,
    }

    return s.views(ptrs), pagination, nil
}

// Overview returns site-wide stats and the most funded active campaigns.
func (s *CampaignService) Overview(ctx context.Context) (*CampaignOverview, error) {
    stats, err := s.CampaignRepo.Stats(ctx, nil)
    if err != nil {
        return nil, err
    }
    top, err := s.CampaignRepo.TopFunded(ctx, topFundedCount)
    if err != nil {
        return nil, err
    }
    return &CampaignOverview{Stats: stats, TopFunded: s.views(top)}, nil
}

func (s *CampaignService) GetCampaignDetails(ctx context.Context, campaignSlug string) (*CampaignDetails, error) {
    c, err := s.CampaignRepo.GetBySlug(ctx, campaignSlug)
    if err != nil {
        return nil, err
    }

    donors, err := s.DonationRepo.CountDonors(ctx, c.ID)
    if err != nil {
        return nil, err
    }
    recent, err := s.DonationRepo.ListCompletedForCampaign(ctx, c.ID, recentDonations)
    if err != nil {
        return nil, err
    }
    for _, d := range recent {
        if d.IsAnonymous {
            d.DonorID = nil
        }
        d.TransactionID = ""
    }

    return &CampaignDetails{
        CampaignView:    s.view(c),
        DonorsCount:     donors,
        RecentDonations: recent,
    }, nil
}

// Dashboard summarizes a creator's campaigns and the donations they received.
func (s *CampaignService) Dashboard(ctx context.Context, userID int) (*Dashboard, error) {
    profile, err := s.UserRepo.GetProfile(ctx, userID)
    if err != nil {
        return nil, err
    }
    stats, err := s.CampaignRepo.Stats(ctx, &userID)
    if err != nil {
        return nil, err
    }
    received, err := s.DonationRepo.ListCompletedForCreator(ctx, userID, dashboardDonation)
    if err != nil {
        return nil, err
    }
    for _, d := range received {
        if d.IsAnonymous {
            d.DonorID = nil
        }
        d.TransactionID = ""
    }
    campaigns, err := s.CampaignRepo.ListByCreator(ctx, userID, dashboardCampaign)
    if err != nil {
        return nil, err
    }

    return &Dashboard{
        Profile:         profile,
        Stats:           stats,
        RecentDonations: received,
        Campaigns:       s.views(campaigns),
    }, nil
}

func (s *CampaignService) Categories(ctx context.Context) ([]model.Category, error) {
    return s.CategoryRepo.ListAll(ctx)
}

// CreateCategory is used by the seeder and the admin CLI.
func (s *CampaignService) CreateCategory(ctx context.Context, c *model.Category) error {
    c.Name = strings.TrimSpace(c.Name)
    if c.Name == "" {
        return appErrors.NewValidation("name", "must not be empty")
    }
    return s.CategoryRepo.Create(ctx, c)
}
