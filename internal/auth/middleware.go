package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MediVision-io/medivision/internal/models"
	"github.com/MediVision-io/medivision/internal/store"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

// Middleware validates the bearer token on every request and loads the
// authenticated user into the request context. A token whose user no longer
// exists is rejected the same way as an invalid token.
func Middleware(tm *TokenManager, users store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "authorization header required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "invalid authorization header")
				return
			}

			claims, err := tm.ValidateToken(parts[1])
			if err != nil {
				if err == ErrExpiredToken {
					unauthorized(w, "token expired")
				} else {
					unauthorized(w, "invalid token")
				}
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext retrieves the authenticated user from the context
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

func unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": reason})
}
