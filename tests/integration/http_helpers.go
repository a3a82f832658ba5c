package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/bidhaven/backend/internal/auth"
	"github.com/bidhaven/backend/internal/cache"
	"github.com/bidhaven/backend/internal/config"
	"github.com/bidhaven/backend/internal/database"
	"github.com/bidhaven/backend/internal/handlers"
	middlewareCustom "github.com/bidhaven/backend/internal/middleware"
	"github.com/bidhaven/backend/internal/routes"
	"github.com/bidhaven/backend/internal/services"
	pkghttp "github.com/bidhaven/backend/pkg/http"
	pkglogger "github.com/bidhaven/backend/pkg/logger"
)

// SentEmail represents a captured email message
type SentEmail struct {
	To    string
	Kind  string
	Token string
	OTP   string
}

// CapturingEmailService records outbound emails for test assertions
type CapturingEmailService struct {
	mu   sync.Mutex
	Sent []SentEmail
}

func (m *CapturingEmailService) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentEmail{To: email, Kind: "verification", Token: token})
	return nil
}

func (m *CapturingEmailService) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentEmail{To: email, Kind: "password_reset", Token: token})
	return nil
}

func (m *CapturingEmailService) SendOTPEmail(ctx context.Context, name, email, otp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentEmail{To: email, Kind: "otp", OTP: otp})
	return nil
}

// LastEmail returns the most recent captured email, or nil
func (m *CapturingEmailService) LastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	return &m.Sent[len(m.Sent)-1]
}

// TestServer wraps httptest.Server with a real database and mocked email
type TestServer struct {
	Server       *httptest.Server
	DB           *database.DB
	EmailService *CapturingEmailService
	Config       *config.Config

	permCache     *cache.TTL
	burstCounters *cache.TTL
}

// NewTestServer wires the full HTTP stack against a live database, swapping
// only the email transport for a capturing mock.
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:           "test-secret-32-characters-long-for-testing",
			TokenExpiry:         15 * time.Minute,
			SessionTTL:          7 * 24 * time.Hour,
			VerificationExpiry:  24 * time.Hour,
			ResetExpiry:         time.Hour,
			OTPExpiry:           5 * time.Minute,
			PermissionCacheTTL:  5 * time.Minute,
			PermissionTimeout:   2 * time.Second,
			CleanupInterval:     time.Hour,
			LoginRatePerMinute:  1000,
			ResetRatePerHour:    1000,
			GlobalRatePerWindow: 100000,
		},
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
			TrustedProxies: []string{},
		},
	}

	profileRepo, failedLoginRepo, sessionRepo, loginLogRepo, resetLogRepo, roleRepo, _ :=
		InitializeRepositories(db)

	mockEmail := &CapturingEmailService{}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	auditLogger := pkglogger.NewAuditLogger(logger)

	permCache := cache.NewTTL(cfg.Auth.PermissionCacheTTL, 0)
	burstCounters := cache.NewTTL(time.Second, 0)

	lockoutService := services.NewLockoutService(failedLoginRepo, profileRepo, logger, auditLogger)
	sessionService := services.NewSessionService(sessionRepo, logger, auditLogger, cfg.Auth.SessionTTL)
	mfaService := services.NewMFAService(profileRepo, sessionService, mockEmail, logger, auditLogger, cfg.Auth.OTPExpiry)
	resetLimiterService := services.NewResetLimiterService(resetLogRepo, profileRepo, logger, auditLogger)
	authService := services.NewAuthService(
		profileRepo,
		roleRepo,
		loginLogRepo,
		lockoutService,
		sessionService,
		mfaService,
		resetLimiterService,
		tokenManager,
		mockEmail,
		logger,
		auditLogger,
		cfg.Auth.VerificationExpiry,
		cfg.Auth.ResetExpiry,
	)
	userService := services.NewUserService(profileRepo, sessionService, logger)
	adminService := services.NewAdminService(db, profileRepo, roleRepo, sessionRepo, loginLogRepo, failedLoginRepo, logger, auditLogger)
	permissionService := services.NewPermissionService(roleRepo, permCache, logger, cfg.Auth.PermissionTimeout)

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	userHandler := handlers.NewUserHandler(userService, authService)
	adminHandler := handlers.NewAdminHandler(adminService)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, cfg, authHandler, userHandler, adminHandler, tokenManager, permissionService)

	return &TestServer{
		Server:        httptest.NewServer(r),
		DB:            db,
		EmailService:  mockEmail,
		Config:        cfg,
		permCache:     permCache,
		burstCounters: burstCounters,
	}
}

// Close shuts down the test server and its caches
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
	ts.permCache.Stop()
	ts.burstCounters.Stop()
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with a bearer token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	return ts.Request(method, path, body, headers)
}

// ParseEnvelope decodes the uniform response envelope
func ParseEnvelope(resp *http.Response) (*pkghttp.Envelope, error) {
	defer resp.Body.Close()

	var envelope pkghttp.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &envelope, nil
}

// ExtractAuthFromResponse pulls tokens out of a login/signup/refresh envelope
func ExtractAuthFromResponse(resp *http.Response) (accessToken, refreshToken, tempToken string, mfaRequired bool, err error) {
	envelope, err := ParseEnvelope(resp)
	if err != nil {
		return "", "", "", false, err
	}

	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		return "", "", "", false, fmt.Errorf("response has no data object")
	}

	if v, ok := data["token"].(string); ok {
		accessToken = v
	}
	if v, ok := data["refresh_token"].(string); ok {
		refreshToken = v
	}
	if v, ok := data["temp_token"].(string); ok {
		tempToken = v
	}
	if v, ok := data["mfa_required"].(bool); ok {
		mfaRequired = v
	}

	return
}
