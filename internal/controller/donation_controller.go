package controller

import (
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "strings"

    "github.com/go-chi/chi/v5"
    "github.com/shopspring/decimal"

    appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
    "github.com/unclebandit/crowdfund-backend/internal/service"
)

type DonationController struct {
    DonationService *service.DonationService
}

type donateBody struct {
    Amount      decimal.Decimal `json:"amount"`
    IsAnonymous bool            `json:"is_anonymous"`
    Message     string          `json:"message"`
}

// readDonation accepts a JSON body or a submitted form.
func readDonation(r *http.Request) (donateBody, error) {
    var body donateBody
    if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
        if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
            return body, appErrors.NewValidation("body", "invalid JSON")
        }
        return body, nil
    }

    if err := r.ParseForm(); err != nil {
        return body, appErrors.NewValidation("body", "invalid form")
    }
    amount, err := decimal.NewFromString(strings.TrimSpace(r.PostFormValue("amount")))
    if err != nil {
        return body, appErrors.NewValidation("amount", "must be a number")
    }
    body.Amount = amount
    body.IsAnonymous, _ = strconv.ParseBool(r.PostFormValue("is_anonymous"))
    if r.PostFormValue("is_anonymous") == "on" {
        body.IsAnonymous = true
    }
    body.Message = r.PostFormValue("message")
    return body, nil
}

// Donate creates a pending donation and redirects to the processor's checkout.
func (c *DonationController) Donate(w http.ResponseWriter, r *http.Request) {
    actorID, ok := actor(w, r)
    if !ok {
        return
    }

    body, err := readDonation(r)
    if err != nil {
        writeError(w, err)
        return
    }

    result, err := c.DonationService.Donate(r.Context(), actorID, chi.URLParam(r, "slug"), service.DonationInput{
        Amount:      body.Amount,
        IsAnonymous: body.IsAnonymous,
        Message:     body.Message,
    })
    if err != nil {
        c.writeInitiationError(w, result, err)
        return
    }

    http.Redirect(w, r, result.RedirectURL, http.StatusSeeOther)
}

// Checkout retries payment initiation for a pending donation.
func (c *DonationController) Checkout(w http.ResponseWriter, r *http.Request) {
    actorID, ok := actor(w, r)
    if !ok {
        return
    }
    id, err := idParam(r, "id")
    if err != nil {
        writeError(w, err)
        return
    }

    result, err := c.DonationService.Checkout(r.Context(), actorID, id)
    if err != nil {
        c.writeInitiationError(w, result, err)
        return
    }

    http.Redirect(w, r, result.RedirectURL, http.StatusSeeOther)
}

// A failed initiation still created the donation: tell the client how to retry.
func (c *DonationController) writeInitiationError(w http.ResponseWriter, result *service.DonateResult, err error) {
    var failed *appErrors.ErrPaymentInitiationFailed
    if errors.As(err, &failed) && result != nil && result.Donation != nil {
        writeJSON(w, http.StatusBadGateway, map[string]interface{}{
            "error":       "payment could not be started, please try again",
            "donation_id": result.Donation.ID,
            "retry_url":   fmt.Sprintf("/donations/%d/checkout", result.Donation.ID),
        })
        return
    }
    writeError(w, err)
}

// Success is the checkout return page. It only reports the donation's state.
func (c *DonationController) Success(w http.ResponseWriter, r *http.Request) {
    actorID, ok := actor(w, r)
    if !ok {
        return
    }
    id, err := idParam(r, "id")
    if err != nil {
        writeError(w, err)
        return
    }

    receipt, err := c.DonationService.Success(r.Context(), actorID, id)
    if err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusOK, receipt)
}

func (c *DonationController) MyDonations(w http.ResponseWriter, r *http.Request) {
    actorID, ok := actor(w, r)
    if !ok {
        return
    }

    history, err := c.DonationService.MyDonations(r.Context(), actorID)
    if err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusOK, history)
}
