package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bidhaven/backend/internal/auth"
	"github.com/bidhaven/backend/internal/models"
	"github.com/bidhaven/backend/internal/services"
	pkghttp "github.com/bidhaven/backend/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, email, roleCode string) *http.Request {
	claims := &models.TokenClaims{
		UserID:   userID,
		Email:    email,
		RoleCode: roleCode,
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithChiRouteContext adds chi URL parameters to request context for testing
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertEnvelope checks the response status and decodes the standard envelope
func AssertEnvelope(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) pkghttp.Envelope {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var envelope pkghttp.Envelope
	err := json.Unmarshal(w.Body.Bytes(), &envelope)
	assert.NoError(t, err, "Failed to decode response envelope")
	return envelope
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	SignupFunc             func(ctx context.Context, email, password, fullName, roleCode string, meta services.RequestMeta) (*services.AuthResponse, error)
	LoginFunc              func(ctx context.Context, email, password string, meta services.RequestMeta) (*services.LoginResult, error)
	CompleteMFALoginFunc   func(ctx context.Context, tempToken, otp string, meta services.RequestMeta) (*services.AuthResponse, error)
	RefreshFunc            func(ctx context.Context, refreshToken string, meta services.RequestMeta) (*services.AuthResponse, error)
	LogoutFunc             func(ctx context.Context, refreshToken string) error
	ForgotPasswordFunc     func(ctx context.Context, email string, meta services.RequestMeta) error
	ResetPasswordFunc      func(ctx context.Context, resetToken, newPassword, email string, meta services.RequestMeta) error
	VerifyEmailFunc        func(ctx context.Context, token string) error
	ResendVerificationFunc func(ctx context.Context, email string) error
}

func (m *MockAuthService) Signup(ctx context.Context, email, password, fullName, roleCode string, meta services.RequestMeta) (*services.AuthResponse, error) {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, email, password, fullName, roleCode, meta)
	}
	return nil, models.ErrConflict
}

func (m *MockAuthService) Login(ctx context.Context, email, password string, meta services.RequestMeta) (*services.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, meta)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAuthService) CompleteMFALogin(ctx context.Context, tempToken, otp string, meta services.RequestMeta) (*services.AuthResponse, error) {
	if m.CompleteMFALoginFunc != nil {
		return m.CompleteMFALoginFunc(ctx, tempToken, otp, meta)
	}
	return nil, models.ErrInvalidToken
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string, meta services.RequestMeta) (*services.AuthResponse, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken, meta)
	}
	return nil, models.ErrTokenReuse
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, refreshToken)
	}
	return nil
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string, meta services.RequestMeta) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email, meta)
	}
	return nil
}

func (m *MockAuthService) ResetPassword(ctx context.Context, resetToken, newPassword, email string, meta services.RequestMeta) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, resetToken, newPassword, email, meta)
	}
	return nil
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, token string) error {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, token)
	}
	return nil
}

func (m *MockAuthService) ResendVerification(ctx context.Context, email string) error {
	if m.ResendVerificationFunc != nil {
		return m.ResendVerificationFunc(ctx, email)
	}
	return nil
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	GetMeFunc             func(ctx context.Context, userID string) (*services.ProfileResponse, error)
	UpdateProfileFunc     func(ctx context.Context, userID string, update services.ProfileUpdate) (*services.ProfileResponse, error)
	ListSessionsFunc      func(ctx context.Context, userID string) ([]*services.SessionResponse, error)
	RevokeSessionFunc     func(ctx context.Context, userID, sessionID string) error
	RevokeAllSessionsFunc func(ctx context.Context, userID string) (int64, error)
}

func (m *MockUserService) GetMe(ctx context.Context, userID string) (*services.ProfileResponse, error) {
	if m.GetMeFunc != nil {
		return m.GetMeFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID string, update services.ProfileUpdate) (*services.ProfileResponse, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, userID, update)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) ListSessions(ctx context.Context, userID string) ([]*services.SessionResponse, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx, userID)
	}
	return []*services.SessionResponse{}, nil
}

func (m *MockUserService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	if m.RevokeSessionFunc != nil {
		return m.RevokeSessionFunc(ctx, userID, sessionID)
	}
	return nil
}

func (m *MockUserService) RevokeAllSessions(ctx context.Context, userID string) (int64, error) {
	if m.RevokeAllSessionsFunc != nil {
		return m.RevokeAllSessionsFunc(ctx, userID)
	}
	return 0, nil
}

// MockCredentialService implements CredentialServiceInterface for testing
type MockCredentialService struct {
	ChangePasswordFunc func(ctx context.Context, userID, currentPassword, newPassword string) error
	ToggleMFAFunc      func(ctx context.Context, userID string, enable bool) error
}

func (m *MockCredentialService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, userID, currentPassword, newPassword)
	}
	return nil
}

func (m *MockCredentialService) ToggleMFA(ctx context.Context, userID string, enable bool) error {
	if m.ToggleMFAFunc != nil {
		return m.ToggleMFAFunc(ctx, userID, enable)
	}
	return nil
}

// MockAdminService implements AdminServiceInterface for testing
type MockAdminService struct {
	ListUsersFunc      func(ctx context.Context, limit, offset int) ([]*services.ProfileResponse, error)
	CreateUserFunc     func(ctx context.Context, actorID, email, password, fullName, roleCode string) (*services.ProfileResponse, error)
	ChangeUserRoleFunc func(ctx context.Context, actorID, userID, roleCode string) (*services.ProfileResponse, error)
	SuspendUserFunc    func(ctx context.Context, actorID, userID, reason string) error
	UnsuspendUserFunc  func(ctx context.Context, actorID, userID string) error
	LockUserFunc       func(ctx context.Context, actorID, userID, reason string) error
	UnlockUserFunc     func(ctx context.Context, actorID, userID string) error
	RestoreUserFunc    func(ctx context.Context, actorID, userID string) error
	SoftDeleteUserFunc func(ctx context.Context, actorID, userID string) error
	GetLoginLogsFunc   func(ctx context.Context, email string, limit, offset int) ([]*models.LoginLog, error)
	GetLoginStatsFunc  func(ctx context.Context) (*services.LoginStats, error)
	GetUserStatsFunc   func(ctx context.Context) (map[string]int, error)
}

func (m *MockAdminService) ListUsers(ctx context.Context, limit, offset int) ([]*services.ProfileResponse, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx, limit, offset)
	}
	return []*services.ProfileResponse{}, nil
}

func (m *MockAdminService) CreateUser(ctx context.Context, actorID, email, password, fullName, roleCode string) (*services.ProfileResponse, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, actorID, email, password, fullName, roleCode)
	}
	return nil, models.ErrConflict
}

func (m *MockAdminService) ChangeUserRole(ctx context.Context, actorID, userID, roleCode string) (*services.ProfileResponse, error) {
	if m.ChangeUserRoleFunc != nil {
		return m.ChangeUserRoleFunc(ctx, actorID, userID, roleCode)
	}
	return nil, models.ErrNotFound
}

func (m *MockAdminService) SuspendUser(ctx context.Context, actorID, userID, reason string) error {
	if m.SuspendUserFunc != nil {
		return m.SuspendUserFunc(ctx, actorID, userID, reason)
	}
	return nil
}

func (m *MockAdminService) UnsuspendUser(ctx context.Context, actorID, userID string) error {
	if m.UnsuspendUserFunc != nil {
		return m.UnsuspendUserFunc(ctx, actorID, userID)
	}
	return nil
}

func (m *MockAdminService) LockUser(ctx context.Context, actorID, userID, reason string) error {
	if m.LockUserFunc != nil {
		return m.LockUserFunc(ctx, actorID, userID, reason)
	}
	return nil
}

func (m *MockAdminService) UnlockUser(ctx context.Context, actorID, userID string) error {
	if m.UnlockUserFunc != nil {
		return m.UnlockUserFunc(ctx, actorID, userID)
	}
	return nil
}

func (m *MockAdminService) RestoreUser(ctx context.Context, actorID, userID string) error {
	if m.RestoreUserFunc != nil {
		return m.RestoreUserFunc(ctx, actorID, userID)
	}
	return nil
}

func (m *MockAdminService) SoftDeleteUser(ctx context.Context, actorID, userID string) error {
	if m.SoftDeleteUserFunc != nil {
		return m.SoftDeleteUserFunc(ctx, actorID, userID)
	}
	return nil
}

func (m *MockAdminService) GetLoginLogs(ctx context.Context, email string, limit, offset int) ([]*models.LoginLog, error) {
	if m.GetLoginLogsFunc != nil {
		return m.GetLoginLogsFunc(ctx, email, limit, offset)
	}
	return []*models.LoginLog{}, nil
}

func (m *MockAdminService) GetLoginStats(ctx context.Context) (*services.LoginStats, error) {
	if m.GetLoginStatsFunc != nil {
		return m.GetLoginStatsFunc(ctx)
	}
	return &services.LoginStats{}, nil
}

func (m *MockAdminService) GetUserStats(ctx context.Context) (map[string]int, error) {
	if m.GetUserStatsFunc != nil {
		return m.GetUserStatsFunc(ctx)
	}
	return map[string]int{}, nil
}
