package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/unclebandit/crowdfund-backend/internal/ctxutil"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
)

// Authenticator resolves an API token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// RequireAuth rejects requests without a valid "Authorization: Bearer <token>"
// header and stores the authenticated user id in the request context.
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, appErrors.NewUnauthorized("missing bearer token"))
				return
			}
			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctxutil.WithActorID(r.Context(), user.ID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
