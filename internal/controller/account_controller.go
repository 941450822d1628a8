package controller

import (
    "net/http"

    "github.com/unclebandit/crowdfund-backend/internal/service"
)

type AccountController struct {
    AccountService *service.AccountService
}

func (c *AccountController) Register(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Username string `json:"username"`
        Email    string `json:"email"`
        Password string `json:"password"`
    }
    if !decodeJSON(w, r, &body) {
        return
    }

    user, err := c.AccountService.Register(r.Context(), body.Username, body.Email, body.Password)
    if err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusCreated, map[string]interface{}{
        "user":  user,
        "token": user.APIToken,
    })
}

func (c *AccountController) Login(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Username string `json:"username"`
        Password string `json:"password"`
    }
    if !decodeJSON(w, r, &body) {
        return
    }

    user, err := c.AccountService.Login(r.Context(), body.Username, body.Password)
    if err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusOK, map[string]interface{}{
        "user":  user,
        "token": user.APIToken,
    })
}

func (c *AccountController) GetProfile(w http.ResponseWriter, r *http.Request) {
    actorID, ok := actor(w, r)
    if !ok {
        return
    }

    profile, err := c.AccountService.GetProfile(r.Context(), actorID)
    if err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusOK, profile)
}

// UpdateProfile edits the caller's own profile. Stats in the body are ignored.
func (c *AccountController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
    actorID, ok := actor(w, r)
    if !ok {
        return
    }

    var body struct {
        Bio       *string `json:"bio"`
        Phone     *string `json:"phone"`
        BirthDate *string `json:"birth_date"`
        Country   *string `json:"country"`
        City      *string `json:"city"`
        Website   *string `json:"website"`
    }
    if !decodeJSON(w, r, &body) {
        return
    }

    in := service.ProfileInput{
        Bio:     body.Bio,
        Phone:   body.Phone,
        Country: body.Country,
        City:    body.City,
        Website: body.Website,
    }
    if body.BirthDate != nil && *body.BirthDate != "" {
        birth, err := parseDate("birth_date", *body.BirthDate)
        if err != nil {
            writeError(w, err)
            return
        }
        in.BirthDate = &birth
    }

    profile, err := c.AccountService.UpdateProfile(r.Context(), actorID, in)
    if err != nil {
        writeError(w, err)
        return
    }

    writeJSON(w, http.StatusOK, profile)
}
