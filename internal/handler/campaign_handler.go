// internal/handler/campaign_handler.go
package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

// CampaignHandler serves the public, read-only campaign pages
type CampaignHandler struct {
	Service *service.CampaignService
}

// NewCampaignHandler creates a new CampaignHandler with the given service
func NewCampaignHandler(svc *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{
		Service: svc,
	}
}

// ListCampaignsHandler returns a paginated list of active campaigns together
// with site-wide stats and the most funded campaigns
func (h *CampaignHandler) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	pageStr := r.URL.Query().Get("page")
	pageSizeStr := r.URL.Query().Get("page_size")
	page := 1
	pageSize := 10

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if pageSizeStr != "" {
		if ps, err := strconv.Atoi(pageSizeStr); err == nil && ps > 0 {
			pageSize = ps
		}
	}

	var categoryID *int
	if raw := r.URL.Query().Get("category"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, appErrors.NewValidation("category", "must be an integer"))
			return
		}
		categoryID = &id
	}

	campaigns, pagination, err := h.Service.ListCampaigns(r.Context(), page, pageSize, categoryID)
	if err != nil {
		writeError(w, err)
		return
	}
	overview, err := h.Service.Overview(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
		"stats":      overview.Stats,
		"top_funded": overview.TopFunded,
	})
}

// GetCampaignHandler returns a campaign with progress, donors and recent donations
func (h *CampaignHandler) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	details, err := h.Service.GetCampaignDetails(r.Context(), slug)
	if err != nil {
		log.Println("❌ Error fetching campaign:", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, details)
}

func (h *CampaignHandler) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.Categories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": categories})
}
