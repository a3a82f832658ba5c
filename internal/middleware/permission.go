package middleware

import (
	"context"
	"net/http"

	"github.com/bidhaven/backend/internal/auth"
	pkghttp "github.com/bidhaven/backend/pkg/http"
)

// PermissionChecker answers whether a role holds a permission.
type PermissionChecker interface {
	HasPermission(ctx context.Context, roleCode, permissionCode string) bool
}

// RequirePermission creates a middleware that gates a route on a permission
// code. Must run after token authentication.
func RequirePermission(perms PermissionChecker, permissionCode string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.GetUserFromContext(r.Context())
			if !ok {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}

			if !perms.HasPermission(r.Context(), claims.RoleCode, permissionCode) {
				pkghttp.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
