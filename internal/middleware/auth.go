package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/ogevents/server/internal/auth"
)

type contextKey string

const userIDKey contextKey = "user_id"

// SessionAuth validates the session cookie and attaches the user ID to the request context
func SessionAuth(sessions *auth.SessionIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := sessions.TokenFromRequest(r)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized: No session token")
				return
			}

			claims, err := sessions.Verify(token)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized: Invalid session token")
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUserID returns a copy of ctx carrying the authenticated user ID
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok
}
