package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/blockvault/blockvault/internal/server/auth"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// withAuth resolves the Bearer token into a principal ID and stores it on
// the request context. Missing, malformed, or expired tokens end the request
// with 401.
func (s *Server) withAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing token")
			return
		}

		userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	})
}

// principalID returns the authenticated user ID placed by withAuth.
func principalID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
