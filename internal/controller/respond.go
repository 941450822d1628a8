package controller

import (
    "encoding/json"
    "log"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/go-chi/chi/v5"

    "github.com/unclebandit/crowdfund-backend/internal/ctxutil"
    appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
)

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    if err := json.NewEncoder(w).Encode(v); err != nil {
        log.Println("⚠️ failed to encode response:", err)
    }
}

func writeError(w http.ResponseWriter, err error) {
    status := appErrors.HTTPStatus(err)
    if status == http.StatusInternalServerError {
        log.Println("❌ internal error:", err)
        writeJSON(w, status, map[string]string{"error": "internal server error"})
        return
    }
    writeJSON(w, status, map[string]string{"error": err.Error()})
}

// actor returns the authenticated user id set by the auth middleware.
func actor(w http.ResponseWriter, r *http.Request) (int, bool) {
    id, ok := ctxutil.ActorFromContext(r.Context())
    if !ok {
        writeError(w, appErrors.NewUnauthorized("authentication required"))
    }
    return id, ok
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
    if err := json.NewDecoder(r.Body).Decode(v); err != nil {
        writeError(w, appErrors.NewValidation("body", "invalid JSON"))
        return false
    }
    return true
}

func idParam(r *http.Request, name string) (int, error) {
    id, err := strconv.Atoi(chi.URLParam(r, name))
    if err != nil || id <= 0 {
        return 0, appErrors.NewValidation(name, "must be a positive integer")
    }
    return id, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(field, s string) (time.Time, error) {
    s = strings.TrimSpace(s)
    if t, err := time.Parse(dateLayout, s); err == nil {
        return t, nil
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t.UTC(), nil
    }
    return time.Time{}, appErrors.NewValidation(field, "must be a date (YYYY-MM-DD)")
}
