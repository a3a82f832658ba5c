package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/bidhaven/backend/internal/models"
	pkghttp "github.com/bidhaven/backend/pkg/http"
)

type contextKey string

// UserContextKey is the request context key holding the authenticated claims.
const UserContextKey contextKey = "user"

// Middleware validates the bearer token and stores the claims in context.
func (tm *TokenManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkghttp.WriteUnauthorized(w, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			pkghttp.WriteUnauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := tm.ValidateToken(parts[1])
		if err != nil {
			pkghttp.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserFromContext returns the authenticated claims stored by Middleware.
func GetUserFromContext(ctx context.Context) (*models.TokenClaims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.TokenClaims)
	return claims, ok
}

// RequireAdminPanel rejects requests whose role is not an admin panel role.
func RequireAdminPanel(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := GetUserFromContext(r.Context())
		if !ok {
			pkghttp.WriteUnauthorized(w, "Authentication required")
			return
		}

		if !models.IsAdminPanelRole(claims.RoleCode) {
			pkghttp.WriteForbidden(w, "Admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
