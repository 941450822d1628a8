package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unclebandit/crowdfund-backend/internal/controller"
	"github.com/unclebandit/crowdfund-backend/internal/handler"
)

const requestTimeout = 30 * time.Second

// Router mounts the public pages, the processor callback and the
// authenticated account, campaign and donation routes.
func (a *App) Router() http.Handler {
	campaignHandler := handler.NewCampaignHandler(a.Campaigns)
	webhookHandler := &handler.WebhookHandler{Gateway: a.Gateway, Resolver: a.Donations}

	campaignController := &controller.CampaignController{CampaignService: a.Campaigns}
	donationController := &controller.DonationController{DonationService: a.Donations}
	accountController := &controller.AccountController{AccountService: a.Accounts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public routes
	r.Post("/accounts/register", accountController.Register)
	r.Post("/accounts/login", accountController.Login)
	r.Get("/categories", campaignHandler.ListCategoriesHandler)
	r.Get("/campaigns", campaignHandler.ListCampaignsHandler)
	r.Get("/campaigns/{slug}", campaignHandler.GetCampaignHandler)
	r.Post("/donations/webhook", webhookHandler.HandleWebhook)

	r.Group(func(r chi.Router) {
		r.Use(handler.RequireAuth(a.Accounts))

		r.Get("/accounts/profile", accountController.GetProfile)
		r.Put("/accounts/profile", accountController.UpdateProfile)
		r.Get("/accounts/dashboard", campaignController.Dashboard)

		r.Post("/campaigns", campaignController.CreateCampaign)
		r.Put("/campaigns/{slug}", campaignController.UpdateCampaign)
		r.Post("/campaigns/{slug}/publish", campaignController.Publish)
		r.Post("/campaigns/{slug}/donate", donationController.Donate)

		r.Get("/donations/mine", donationController.MyDonations)
		r.Get("/donations/success/{id}", donationController.Success)
		r.Post("/donations/{id}/checkout", donationController.Checkout)
	})

	return r
}
