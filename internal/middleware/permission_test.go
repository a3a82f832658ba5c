package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bidhaven/backend/internal/auth"
	"github.com/bidhaven/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

type stubPermissionChecker struct {
	allow bool

	gotRole       string
	gotPermission string
}

func (s *stubPermissionChecker) HasPermission(ctx context.Context, roleCode, permissionCode string) bool {
	s.gotRole = roleCode
	s.gotPermission = permissionCode
	return s.allow
}

func withClaims(req *http.Request, roleCode string) *http.Request {
	claims := &models.TokenClaims{UserID: "user_123", RoleCode: roleCode}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

func TestRequirePermission_NoClaimsRejected(t *testing.T) {
	checker := &stubPermissionChecker{allow: true}
	handler := RequirePermission(checker, "users.manage")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/admin/users", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequirePermission_DeniedRole(t *testing.T) {
	checker := &stubPermissionChecker{allow: false}
	handler := RequirePermission(checker, "users.manage")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	req := withClaims(httptest.NewRequest("GET", "/admin/users", nil), "VIEWER")
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "VIEWER", checker.gotRole)
	assert.Equal(t, "users.manage", checker.gotPermission)
}

func TestRequirePermission_GrantedRolePasses(t *testing.T) {
	checker := &stubPermissionChecker{allow: true}
	var called bool
	handler := RequirePermission(checker, "logs.view")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	req := withClaims(httptest.NewRequest("GET", "/admin/login-logs", nil), "SUPPORT")
	handler.ServeHTTP(w, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}
