package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/fleetradar/fleetradar-backend/internal/db"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal identifies the authenticated user on a request
type Principal struct {
	UserID uuid.UUID
	Kind   db.UserKind
	Email  string
}

// PrincipalFrom extracts the authenticated principal from a request context
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// RequireAuth rejects requests without a valid Bearer token and injects
// the principal into the request context.
func RequireAuth(tokens *TokenIssuer, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Parse(tokenString)
			if err != nil {
				logger.Debug("rejected token", zap.Error(err))
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			principal := Principal{
				UserID: userID,
				Kind:   db.UserKind(claims.Kind),
				Email:  claims.Email,
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, principal)))
		})
	}
}
