// internal/controller/campaign_controller.go
package controller

import (
    "errors"
    "net/http"

    "github.com/go-chi/chi/v5"
    "github.com/shopspring/decimal"

    appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
    "github.com/unclebandit/crowdfund-backend/internal/service"
)

type CampaignController struct {
    CampaignService *service.CampaignService
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
    actorID, ok := actor(w, r)
    if !ok {
        return
    }

    var body struct {
        Title       string          `json:"title"`
        Description string          `json:"description"`
        Goal        decimal.Decimal `json:"goal"`
        EndDate     string          `json:"end_date"`
        CategoryID  *int            `json:"category_id"`
        ImageURL    string          `json:"image_url"`
    }
    if !decodeJSON(w, r, &body) {
        return
    }
    endDate, err := parseDate("end_date", body.EndDate)
    if err != nil {
        writeError(w, err)
        return
    }

    campaign, err := c.CampaignService.CreateCampaign(r.Context(), actorID, service.CampaignInput{
        Title:       body.Title,
        Description: body.Description,
        Goal:        body.Goal,
        EndDate:     endDate,
        CategoryID:  body.CategoryID,
        ImageURL:    body.ImageURL,
    })
    if err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
    actorID, ok := actor(w, r)
    if !ok {
        return
    }

    var body struct {
        Title       *string          `json:"title"`
        Description *string          `json:"description"`
        Goal        *decimal.Decimal `json:"goal"`
        EndDate     *string          `json:"end_date"`
        CategoryID  *int             `json:"category_id"`
        ImageURL    *string          `json:"image_url"`
        Status      *string          `json:"status"`
    }
    if !decodeJSON(w, r, &body) {
        return
    }

    update := service.CampaignUpdate{
        Title:       body.Title,
        Description: body.Description,
        Goal:        body.Goal,
        CategoryID:  body.CategoryID,
        ImageURL:    body.ImageURL,
        Status:      body.Status,
    }
    if body.EndDate != nil {
        endDate, err := parseDate("end_date", *body.EndDate)
        if err != nil {
            writeError(w, err)
            return
        }
        update.EndDate = &endDate
    }

    campaign, err := c.CampaignService.UpdateCampaign(r.Context(), actorID, chi.URLParam(r, "slug"), update)
    if err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusOK, campaign)
}

// Publish activates a draft. Publishing twice is answered with a warning.
func (c *CampaignController) Publish(w http.ResponseWriter, r *http.Request) {
    actorID, ok := actor(w, r)
    if !ok {
        return
    }

    campaign, err := c.CampaignService.Publish(r.Context(), actorID, chi.URLParam(r, "slug"))
    var invalid *appErrors.ErrInvalidTransition
    if errors.As(err, &invalid) && campaign != nil {
        writeJSON(w, http.StatusOK, map[string]interface{}{
            "campaign": campaign,
            "warning":  "campaign is already " + campaign.Status,
        })
        return
    }
    if err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusOK, map[string]interface{}{"campaign": campaign})
}

func (c *CampaignController) Dashboard(w http.ResponseWriter, r *http.Request) {
    actorID, ok := actor(w, r)
    if !ok {
        return
    }

    dashboard, err := c.CampaignService.Dashboard(r.Context(), actorID)
    if err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusOK, dashboard)
}
