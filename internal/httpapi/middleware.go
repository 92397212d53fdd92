package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dsmelov/chirp/internal/auth"
	"github.com/dsmelov/chirp/internal/models"
)

type ctxKey string

const principalKey ctxKey = "principal"

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// extractAccessToken pulls the access token from the request: the
// accessToken cookie takes precedence, then the Authorization bearer header.
func extractAccessToken(r *http.Request) string {
	if c, err := r.Cookie(accessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

// requireAuth is the gate in front of every protected route. It verifies the
// access token, resolves the principal's public-safe projection, and attaches
// it to the request context. Every failure mode (missing token, expired,
// malformed, unknown principal) collapses into one uniform 401 response so
// nothing about the token's state is leaked.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unauthorized := func() {
			s.writeJSON(w, http.StatusUnauthorized, nil, "unauthorized request")
		}

		token := extractAccessToken(r)
		if token == "" {
			unauthorized()
			return
		}

		userID, err := auth.ParseToken(token, s.accessTokenSecret)
		if err != nil {
			unauthorized()
			return
		}

		principal, err := s.users.CurrentUser(r.Context(), userID)
		if err != nil {
			unauthorized()
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next(w, r.WithContext(ctx))
	}
}

// principalFromContext returns the authenticated principal attached by
// requireAuth.
func principalFromContext(ctx context.Context) (*models.PublicUser, bool) {
	principal, ok := ctx.Value(principalKey).(*models.PublicUser)
	return principal, ok
}
