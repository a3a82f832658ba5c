package handlers

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bidhaven/backend/internal/models"
	"github.com/bidhaven/backend/internal/services"
	pkghttp "github.com/bidhaven/backend/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthHandler(service *MockAuthService) *AuthHandler {
	return NewAuthHandler(service, &pkghttp.IPConfig{})
}

func authResponse() *services.AuthResponse {
	return &services.AuthResponse{
		Token:        "access-token",
		RefreshToken: "refresh-token",
		User:         &services.ProfileResponse{ID: "user_123", Email: "test@example.com", RoleCode: "VIEWER"},
	}
}

func TestAuthHandlerSignup_Success(t *testing.T) {
	service := &MockAuthService{
		SignupFunc: func(ctx context.Context, email, password, fullName, roleCode string, meta services.RequestMeta) (*services.AuthResponse, error) {
			return authResponse(), nil
		},
	}
	handler := newAuthHandler(service)

	req := NewTestRequest(t, "POST", "/auth/signup", map[string]string{
		"email":     "test@example.com",
		"password":  "Sup3rSecret!",
		"full_name": "Test User",
	})
	w := httptest.NewRecorder()
	handler.Signup(w, req)

	envelope := AssertEnvelope(t, w, 201)
	assert.True(t, envelope.Success)
	assert.Equal(t, "Signup successful", envelope.Message)
	assert.NotNil(t, envelope.Data)
}

func TestAuthHandlerSignup_MissingEmail(t *testing.T) {
	handler := newAuthHandler(&MockAuthService{})

	req := NewTestRequest(t, "POST", "/auth/signup", map[string]string{
		"password": "Sup3rSecret!",
	})
	w := httptest.NewRecorder()
	handler.Signup(w, req)

	envelope := AssertEnvelope(t, w, 400)
	assert.False(t, envelope.Success)
}

func TestAuthHandlerSignup_DuplicateEmail(t *testing.T) {
	service := &MockAuthService{
		SignupFunc: func(ctx context.Context, email, password, fullName, roleCode string, meta services.RequestMeta) (*services.AuthResponse, error) {
			return nil, models.ErrConflict
		},
	}
	handler := newAuthHandler(service)

	req := NewTestRequest(t, "POST", "/auth/signup", map[string]string{
		"email":    "taken@example.com",
		"password": "Sup3rSecret!",
	})
	w := httptest.NewRecorder()
	handler.Signup(w, req)

	AssertEnvelope(t, w, 409)
}

func TestAuthHandlerLogin_Success(t *testing.T) {
	var gotEmail string
	service := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string, meta services.RequestMeta) (*services.LoginResult, error) {
			gotEmail = email
			return &services.LoginResult{AuthResponse: authResponse()}, nil
		},
	}
	handler := newAuthHandler(service)

	req := NewTestRequest(t, "POST", "/auth/login", map[string]string{
		"email":    "test@example.com",
		"password": "Sup3rSecret!",
	})
	w := httptest.NewRecorder()
	handler.Login(w, req)

	envelope := AssertEnvelope(t, w, 200)
	assert.Equal(t, "Login successful", envelope.Message)
	assert.Equal(t, "test@example.com", gotEmail)

	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "access-token", data["token"])
	assert.Equal(t, "refresh-token", data["refresh_token"])
}

func TestAuthHandlerLogin_MFARequired(t *testing.T) {
	service := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string, meta services.RequestMeta) (*services.LoginResult, error) {
			return &services.LoginResult{
				MFARequired: true,
				TempToken:   "temp-token-abc",
				Email:       email,
			}, nil
		},
	}
	handler := newAuthHandler(service)

	req := NewTestRequest(t, "POST", "/auth/login", map[string]string{
		"email":    "test@example.com",
		"password": "Sup3rSecret!",
	})
	w := httptest.NewRecorder()
	handler.Login(w, req)

	envelope := AssertEnvelope(t, w, 200)
	assert.Equal(t, "MFA required", envelope.Message)

	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["mfa_required"])
	assert.Equal(t, "temp-token-abc", data["temp_token"])
	assert.NotContains(t, data, "token")
}

func TestAuthHandlerLogin_InvalidCredentials(t *testing.T) {
	handler := newAuthHandler(&MockAuthService{})

	req := NewTestRequest(t, "POST", "/auth/login", map[string]string{
		"email":    "test@example.com",
		"password": "wrong",
	})
	w := httptest.NewRecorder()
	handler.Login(w, req)

	envelope := AssertEnvelope(t, w, 400)
	assert.Equal(t, "Invalid email or password", envelope.Message)
}

func TestAuthHandlerLogin_LockedAccount(t *testing.T) {
	service := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string, meta services.RequestMeta) (*services.LoginResult, error) {
			return nil, &models.AccountLockedError{RetryAfter: 15 * time.Minute}
		},
	}
	handler := newAuthHandler(service)

	req := NewTestRequest(t, "POST", "/auth/login", map[string]string{
		"email":    "test@example.com",
		"password": "Sup3rSecret!",
	})
	w := httptest.NewRecorder()
	handler.Login(w, req)

	envelope := AssertEnvelope(t, w, 403)
	assert.Contains(t, envelope.Message, "15 minutes")
}

func TestAuthHandlerLogin_RateLimited(t *testing.T) {
	service := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string, meta services.RequestMeta) (*services.LoginResult, error) {
			return nil, models.NewRateLimitError(time.Hour, "Too many reset requests. Try again in 1 hour.")
		},
	}
	handler := newAuthHandler(service)

	req := NewTestRequest(t, "POST", "/auth/login", map[string]string{
		"email":    "test@example.com",
		"password": "Sup3rSecret!",
	})
	w := httptest.NewRecorder()
	handler.Login(w, req)

	envelope := AssertEnvelope(t, w, 429)
	assert.Contains(t, envelope.Message, "1 hour")
}

func TestAuthHandlerVerifyOTP_RejectsShortCode(t *testing.T) {
	handler := newAuthHandler(&MockAuthService{})

	req := NewTestRequest(t, "POST", "/auth/verify-otp", map[string]string{
		"temp_token": "temp-token-abc",
		"otp":        "123",
	})
	w := httptest.NewRecorder()
	handler.VerifyOTP(w, req)

	AssertEnvelope(t, w, 400)
}

func TestAuthHandlerVerifyOTP_WrongCode(t *testing.T) {
	service := &MockAuthService{
		CompleteMFALoginFunc: func(ctx context.Context, tempToken, otp string, meta services.RequestMeta) (*services.AuthResponse, error) {
			return nil, models.ErrInvalidOTP
		},
	}
	handler := newAuthHandler(service)

	req := NewTestRequest(t, "POST", "/auth/verify-otp", map[string]string{
		"temp_token": "temp-token-abc",
		"otp":        "123456",
	})
	w := httptest.NewRecorder()
	handler.VerifyOTP(w, req)

	envelope := AssertEnvelope(t, w, 400)
	assert.Equal(t, "Invalid OTP", envelope.Message)
}

func TestAuthHandlerVerifyOTP_TrimsWhitespace(t *testing.T) {
	var gotOTP string
	service := &MockAuthService{
		CompleteMFALoginFunc: func(ctx context.Context, tempToken, otp string, meta services.RequestMeta) (*services.AuthResponse, error) {
			gotOTP = otp
			return authResponse(), nil
		},
	}
	handler := newAuthHandler(service)

	req := NewTestRequest(t, "POST", "/auth/verify-otp", map[string]string{
		"temp_token": "temp-token-abc",
		"otp":        "123456",
	})
	w := httptest.NewRecorder()
	handler.VerifyOTP(w, req)

	AssertEnvelope(t, w, 200)
	assert.Equal(t, "123456", gotOTP)
}

func TestAuthHandlerRefresh_TokenReuse(t *testing.T) {
	handler := newAuthHandler(&MockAuthService{})

	req := NewTestRequest(t, "POST", "/auth/refresh-token", map[string]string{
		"refresh_token": "replayed-token",
	})
	w := httptest.NewRecorder()
	handler.Refresh(w, req)

	envelope := AssertEnvelope(t, w, 401)
	assert.Contains(t, envelope.Message, "Token reuse detected")
}

func TestAuthHandlerLogout_Success(t *testing.T) {
	var gotToken string
	service := &MockAuthService{
		LogoutFunc: func(ctx context.Context, refreshToken string) error {
			gotToken = refreshToken
			return nil
		},
	}
	handler := newAuthHandler(service)

	req := NewTestRequest(t, "POST", "/auth/logout", map[string]string{
		"refresh_token": "live-token",
	})
	w := httptest.NewRecorder()
	handler.Logout(w, req)

	AssertEnvelope(t, w, 200)
	assert.Equal(t, "live-token", gotToken)
}

func TestAuthHandlerForgotPassword_AlwaysGeneric(t *testing.T) {
	handler := newAuthHandler(&MockAuthService{})

	req := NewTestRequest(t, "POST", "/auth/forgot-password", map[string]string{
		"email": "nobody@example.com",
	})
	w := httptest.NewRecorder()
	handler.ForgotPassword(w, req)

	envelope := AssertEnvelope(t, w, 200)
	assert.Equal(t, "If this email exists, we sent a link.", envelope.Message)
}

func TestAuthHandlerForgotPassword_RateLimited(t *testing.T) {
	service := &MockAuthService{
		ForgotPasswordFunc: func(ctx context.Context, email string, meta services.RequestMeta) error {
			return models.NewRateLimitError(time.Hour, "Too many reset requests. Try again in 1 hour.")
		},
	}
	handler := newAuthHandler(service)

	req := NewTestRequest(t, "POST", "/auth/forgot-password", map[string]string{
		"email": "test@example.com",
	})
	w := httptest.NewRecorder()
	handler.ForgotPassword(w, req)

	AssertEnvelope(t, w, 429)
}

func TestAuthHandlerResetPassword_InvalidToken(t *testing.T) {
	service := &MockAuthService{
		ResetPasswordFunc: func(ctx context.Context, resetToken, newPassword, email string, meta services.RequestMeta) error {
			return models.ErrInvalidToken
		},
	}
	handler := newAuthHandler(service)

	req := NewTestRequest(t, "POST", "/auth/reset-password", map[string]string{
		"token":        "stale-token",
		"new_password": "N3w-Passw0rd!",
	})
	w := httptest.NewRecorder()
	handler.ResetPassword(w, req)

	envelope := AssertEnvelope(t, w, 400)
	assert.Equal(t, "Invalid or expired token", envelope.Message)
}

func TestAuthHandlerVerifyEmail_MissingToken(t *testing.T) {
	handler := newAuthHandler(&MockAuthService{})

	req := NewTestRequest(t, "GET", "/auth/verify-email", nil)
	w := httptest.NewRecorder()
	handler.VerifyEmail(w, req)

	envelope := AssertEnvelope(t, w, 400)
	assert.Equal(t, "Missing token", envelope.Message)
}

func TestAuthHandlerResendVerification_AlreadyVerified(t *testing.T) {
	service := &MockAuthService{
		ResendVerificationFunc: func(ctx context.Context, email string) error {
			return models.ErrConflict
		},
	}
	handler := newAuthHandler(service)

	req := NewTestRequest(t, "POST", "/auth/resend-verification", map[string]string{
		"email": "test@example.com",
	})
	w := httptest.NewRecorder()
	handler.ResendVerification(w, req)

	envelope := AssertEnvelope(t, w, 400)
	assert.Equal(t, "Email already verified", envelope.Message)
}
