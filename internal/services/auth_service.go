package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	internalauth "github.com/bidhaven/backend/internal/auth"
	"github.com/bidhaven/backend/internal/models"
	pkgauth "github.com/bidhaven/backend/pkg/auth"
	"github.com/bidhaven/backend/pkg/device"
	pkglogger "github.com/bidhaven/backend/pkg/logger"
)

// RoleRepository defines the interface for role lookups
type RoleRepository interface {
	GetByCode(ctx context.Context, code string) (*models.Role, error)
	GetByID(ctx context.Context, id string) (*models.Role, error)
}

// LoginLogRepository defines the interface for the login audit trail
type LoginLogRepository interface {
	Record(ctx context.Context, log *models.LoginLog) error
}

// RequestMeta carries the network context of the calling request into the
// audit trail and session rows.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// ProfileResponse represents a profile in HTTP responses
type ProfileResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	RoleCode  string `json:"role_code"`
	UserType  string `json:"user_type"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// AuthResponse represents the response from auth operations
type AuthResponse struct {
	Token        string           `json:"token"`
	RefreshToken string           `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
	User         *ProfileResponse `json:"user"`
}

// LoginResult is either full credentials or a pending OTP challenge.
type LoginResult struct {
	MFARequired bool   `json:"mfa_required,omitempty"`
	TempToken   string `json:"temp_token,omitempty"`
	Email       string `json:"email,omitempty"`

	*AuthResponse
}

// AuthService orchestrates signup, login and the credential lifecycle. Login
// runs its checks in a fixed order: lockout, account lookup, account state,
// email verification, password, MFA.
type AuthService struct {
	profiles     ProfileRepository
	roles        RoleRepository
	loginLogs    LoginLogRepository
	lockout      *LockoutService
	sessions     *SessionService
	mfa          *MFAService
	resetLimiter *ResetLimiterService
	tm           *internalauth.TokenManager
	email        EmailService
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger

	verificationExpiry time.Duration
	resetExpiry        time.Duration
	now                func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	profiles ProfileRepository,
	roles RoleRepository,
	loginLogs LoginLogRepository,
	lockout *LockoutService,
	sessions *SessionService,
	mfa *MFAService,
	resetLimiter *ResetLimiterService,
	tm *internalauth.TokenManager,
	email EmailService,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	verificationExpiry, resetExpiry time.Duration,
) *AuthService {
	return &AuthService{
		profiles:           profiles,
		roles:              roles,
		loginLogs:          loginLogs,
		lockout:            lockout,
		sessions:           sessions,
		mfa:                mfa,
		resetLimiter:       resetLimiter,
		tm:                 tm,
		email:              email,
		logger:             logger,
		auditLogger:        auditLogger,
		verificationExpiry: verificationExpiry,
		resetExpiry:        resetExpiry,
		now:                time.Now,
	}
}

func toProfileResponse(p *models.Profile) *ProfileResponse {
	return &ProfileResponse{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		Role:      p.RoleCode,
		RoleCode:  p.RoleCode,
		UserType:  p.UserType,
		Phone:     p.Phone,
		AvatarURL: p.AvatarURL,
	}
}

// Signup registers an account and logs it straight in. The account starts
// verified so the session is usable immediately, but a verification link is
// still emailed and must be clicked before verified_at is set.
func (s *AuthService) Signup(ctx context.Context, email, password, fullName, roleCode string, meta RequestMeta) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.ErrBadRequest
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	if roleCode == "" {
		roleCode = models.DefaultRoleCode
	}

	role, err := s.roles.GetByCode(ctx, roleCode)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrBadRequest
		}
		s.logger.Error("failed to look up role", slog.String("role_code", roleCode), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	verificationToken, err := pkgauth.NewOpaqueToken()
	if err != nil {
		return nil, models.ErrInternalServer
	}
	verificationExpiresAt := s.now().Add(s.verificationExpiry)

	if fullName == "" {
		fullName = "New User"
	}

	profile := &models.Profile{
		Email:                 email,
		PasswordHash:          hash,
		FullName:              fullName,
		RoleID:                role.ID,
		RoleCode:              role.RoleCode,
		UserType:              models.UserTypeForRole(role.RoleCode),
		Status:                models.StatusActive,
		EmailVerified:         true,
		VerificationToken:     &verificationToken,
		VerificationExpiresAt: &verificationExpiresAt,
	}

	created, err := s.profiles.Create(ctx, profile)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create profile", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.sendVerificationEmail(created.Email, verificationToken, verificationExpiresAt)

	token, err := s.tm.Generate(created)
	if err != nil {
		s.logger.Error("failed to generate token", slog.String("user_id", created.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	resp := &AuthResponse{
		Token: token,
		User:  toProfileResponse(created),
	}

	// Session creation failure degrades to a token-only login.
	if session, err := s.sessions.Create(ctx, created.ID, meta.IPAddress, meta.UserAgent); err == nil {
		resp.RefreshToken = session.RefreshToken
		resp.ExpiresAt = &session.ExpiresAt
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "signup",
		UserID:    created.ID,
		IPAddress: meta.IPAddress,
		Success:   true,
	})

	return resp, nil
}

// Login authenticates a password and either issues credentials or, for MFA
// accounts, opens an OTP challenge. Every attempt lands in the login log.
func (s *AuthService) Login(ctx context.Context, email, password string, meta RequestMeta) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.ErrBadRequest
	}

	// Lockout applies before the account is even looked up.
	if err := s.lockout.CheckLock(ctx, email); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, s.failLogin(ctx, nil, email, models.LoginReasonInvalidEmail, meta)
		}
		s.logger.Error("failed to get profile by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	switch profile.Status {
	case models.StatusSuspended:
		s.recordLogin(ctx, &profile.ID, email, false, models.LoginReasonSuspended, meta)
		return nil, models.ErrAccountSuspended
	case models.StatusDeleted:
		s.recordLogin(ctx, &profile.ID, email, false, models.LoginReasonDeleted, meta)
		return nil, models.ErrAccountDeleted
	case models.StatusLocked:
		s.recordLogin(ctx, &profile.ID, email, false, models.LoginReasonLocked, meta)
		return nil, models.ErrAccountLocked
	}

	if !profile.EmailVerified {
		s.recordLogin(ctx, &profile.ID, email, false, models.LoginReasonUnverified, meta)
		return nil, models.ErrEmailNotVerified
	}

	if err := pkgauth.ComparePassword(profile.PasswordHash, password); err != nil {
		return nil, s.failLogin(ctx, &profile.ID, email, models.LoginReasonWrongPassword, meta)
	}

	if profile.MFAEnabled {
		// Mint the refresh token now but hold it back until the code passes.
		stash, err := pkgauth.NewOpaqueToken()
		if err != nil {
			return nil, models.ErrInternalServer
		}

		tempToken, err := s.mfa.Challenge(ctx, profile, stash)
		if err != nil {
			s.logger.Error("failed to issue mfa challenge", slog.String("user_id", profile.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		return &LoginResult{
			MFARequired: true,
			TempToken:   tempToken,
			Email:       email,
		}, nil
	}

	resp, err := s.completeLogin(ctx, profile, nil, meta)
	if err != nil {
		return nil, err
	}

	return &LoginResult{AuthResponse: resp}, nil
}

// CompleteMFALogin finishes a login whose OTP challenge just passed.
func (s *AuthService) CompleteMFALogin(ctx context.Context, tempToken, otp string, meta RequestMeta) (*AuthResponse, error) {
	profile, session, err := s.mfa.Verify(ctx, tempToken, otp, meta.IPAddress, meta.UserAgent)
	if err != nil {
		return nil, err
	}

	return s.completeLogin(ctx, profile, session, meta)
}

// completeLogin issues the signed token, records the success and resets the
// failure counter. A nil session means one still needs to be minted.
func (s *AuthService) completeLogin(ctx context.Context, profile *models.Profile, session *models.Session, meta RequestMeta) (*AuthResponse, error) {
	token, err := s.tm.Generate(profile)
	if err != nil {
		s.logger.Error("failed to generate token", slog.String("user_id", profile.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if session == nil {
		session, err = s.sessions.Create(ctx, profile.ID, meta.IPAddress, meta.UserAgent)
		if err != nil {
			return nil, err
		}
	}

	s.recordLogin(ctx, &profile.ID, profile.Email, true, "", meta)

	if err := s.lockout.RecordSuccess(ctx, profile.Email); err != nil {
		s.logger.Warn("failed to reset failure counter", slog.Any("error", err))
	}

	now := s.now()
	profile.LastLoginAt = &now
	if meta.IPAddress != "" {
		ip := meta.IPAddress
		profile.LastLoginIP = &ip
	}
	if _, err := s.profiles.Update(ctx, profile.ID, profile); err != nil {
		s.logger.Warn("failed to record last login", slog.String("user_id", profile.ID), slog.Any("error", err))
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login",
		UserID:    profile.ID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   true,
	})

	resp := &AuthResponse{
		Token: token,
		User:  toProfileResponse(profile),
	}
	if session != nil {
		resp.RefreshToken = session.RefreshToken
		resp.ExpiresAt = &session.ExpiresAt
	}

	return resp, nil
}

// failLogin records the attempt, bumps the failure counter and returns the
// generic credential error so the response never reveals which check failed.
func (s *AuthService) failLogin(ctx context.Context, userID *string, email, reason string, meta RequestMeta) error {
	s.recordLogin(ctx, userID, email, false, reason, meta)

	if _, err := s.lockout.RecordFailure(ctx, email); err != nil {
		s.logger.Warn("failed to record login failure", slog.Any("error", err))
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		Email:         email,
		IPAddress:     meta.IPAddress,
		Success:       false,
		FailureReason: reason,
	})

	return models.ErrInvalidCredentials
}

func (s *AuthService) recordLogin(ctx context.Context, userID *string, email string, success bool, reason string, meta RequestMeta) {
	log := &models.LoginLog{
		UserID:         userID,
		EmailAttempted: email,
		Success:        success,
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
		Device:         device.Parse(meta.UserAgent),
	}
	if reason != "" {
		log.Reason = &reason
	}

	if err := s.loginLogs.Record(ctx, log); err != nil {
		s.logger.Warn("failed to record login attempt", slog.Any("error", err))
	}
}

// Refresh rotates a refresh token and issues a fresh signed token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta RequestMeta) (*AuthResponse, error) {
	session, err := s.sessions.Rotate(ctx, refreshToken, meta.IPAddress, meta.UserAgent)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByID(ctx, session.UserID)
	if err != nil {
		s.logger.Error("failed to load profile for refresh", slog.String("user_id", session.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := s.tm.Generate(profile)
	if err != nil {
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		Token:        token,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    &session.ExpiresAt,
		User:         toProfileResponse(profile),
	}, nil
}

// Logout invalidates the session holding a refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return models.ErrBadRequest
	}
	return s.sessions.Logout(ctx, refreshToken)
}

// ForgotPassword starts the reset flow. The response is identical whether or
// not the account exists; only the audit log distinguishes the outcomes.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, meta RequestMeta) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.ErrBadRequest
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.resetLimiter.Record(ctx, email, meta.IPAddress, meta.UserAgent, models.ResetReasonEmailNotFound, false)
			return nil
		}
		s.logger.Error("failed to get profile by email", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.resetLimiter.CheckRequest(ctx, profile); err != nil {
		s.resetLimiter.Record(ctx, email, meta.IPAddress, meta.UserAgent, models.ResetReasonRateLimit, false)
		return err
	}

	resetToken, err := pkgauth.NewOpaqueToken()
	if err != nil {
		return models.ErrInternalServer
	}
	resetExpiresAt := s.now().Add(s.resetExpiry)

	profile.ResetToken = &resetToken
	profile.ResetTokenExpiresAt = &resetExpiresAt
	if _, err := s.profiles.Update(ctx, profile.ID, profile); err != nil {
		s.logger.Error("failed to store reset token", slog.String("user_id", profile.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.email.SendPasswordResetEmail(ctx, email, resetToken); err != nil {
		s.resetLimiter.Record(ctx, email, meta.IPAddress, meta.UserAgent, models.ResetReasonEmailSendFailed, false)
		return nil
	}

	s.resetLimiter.Record(ctx, email, meta.IPAddress, meta.UserAgent, models.ResetReasonEmailSent, true)
	return nil
}

// ResetPassword consumes a reset token and sets a new password. Success also
// clears any standing reset block.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, newPassword, email string, meta RequestMeta) error {
	if resetToken == "" || newPassword == "" {
		return models.ErrBadRequest
	}

	profile, lookupErr := s.profiles.GetByResetToken(ctx, resetToken)
	if lookupErr != nil && !errors.Is(lookupErr, models.ErrNotFound) {
		s.logger.Error("failed to look up reset token", slog.Any("error", lookupErr))
		return models.ErrInternalServer
	}

	limiterEmail := strings.ToLower(strings.TrimSpace(email))
	if profile != nil {
		limiterEmail = profile.Email
	}

	if limiterEmail != "" {
		if err := s.resetLimiter.CheckConsume(ctx, profile, limiterEmail, meta.IPAddress, meta.UserAgent); err != nil {
			return err
		}
	}

	if profile == nil || profile.ResetTokenExpiresAt == nil || profile.ResetTokenExpiresAt.Before(s.now()) {
		if limiterEmail != "" {
			s.resetLimiter.Record(ctx, limiterEmail, meta.IPAddress, meta.UserAgent, models.ResetReasonInvalidToken, false)
		}
		return models.ErrInvalidToken
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	profile.PasswordHash = hash
	profile.ResetToken = nil
	profile.ResetTokenExpiresAt = nil
	profile.ResetBlockUntil = nil

	if _, err := s.profiles.Update(ctx, profile.ID, profile); err != nil {
		s.resetLimiter.Record(ctx, profile.Email, meta.IPAddress, meta.UserAgent, models.ResetReasonUpdateFailed, false)
		s.logger.Error("failed to update password", slog.String("user_id", profile.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.resetLimiter.Record(ctx, profile.Email, meta.IPAddress, meta.UserAgent, models.ResetReasonResetSuccess, true)

	s.auditLogger.LogAccountAction("password_reset", profile.ID, meta.IPAddress, nil)
	return nil
}

// ChangePassword verifies the current password before setting a new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return models.ErrBadRequest
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(profile.PasswordHash, currentPassword); err != nil {
		return models.ErrInvalidCredentials
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return models.ErrInternalServer
	}

	profile.PasswordHash = hash
	if _, err := s.profiles.Update(ctx, profile.ID, profile); err != nil {
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_changed", userID, "", nil)
	return nil
}

// VerifyEmail consumes a verification token and marks the address verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return models.ErrBadRequest
	}

	profile, err := s.profiles.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidToken
		}
		return models.ErrInternalServer
	}

	if profile.VerificationExpiresAt == nil || profile.VerificationExpiresAt.Before(s.now()) {
		return models.ErrInvalidToken
	}

	now := s.now()
	profile.EmailVerified = true
	profile.VerifiedAt = &now
	profile.VerificationToken = nil
	profile.VerificationExpiresAt = nil

	if _, err := s.profiles.Update(ctx, profile.ID, profile); err != nil {
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("email_verified", profile.ID, "", nil)
	return nil
}

// ResendVerification issues a fresh verification token. The response is
// generic when the email is unknown; already-verified addresses are told so.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.ErrBadRequest
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return models.ErrInternalServer
	}

	if profile.VerifiedAt != nil {
		return models.ErrConflict
	}

	token, err := pkgauth.NewOpaqueToken()
	if err != nil {
		return models.ErrInternalServer
	}
	expiresAt := s.now().Add(s.verificationExpiry)

	profile.VerificationToken = &token
	profile.VerificationExpiresAt = &expiresAt
	if _, err := s.profiles.Update(ctx, profile.ID, profile); err != nil {
		return models.ErrInternalServer
	}

	s.sendVerificationEmail(email, token, expiresAt)
	return nil
}

// ToggleMFA enables or disables the OTP requirement. Disabling also clears
// any pending challenge.
func (s *AuthService) ToggleMFA(ctx context.Context, userID string, enable bool) error {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		return models.ErrInternalServer
	}

	profile.MFAEnabled = enable
	if !enable {
		profile.MFAOTP = nil
		profile.MFAOTPExpiresAt = nil
		profile.MFATempToken = nil
		profile.MFAAttempts = 0
		profile.MFATempRefreshToken = nil
	}

	if _, err := s.profiles.Update(ctx, profile.ID, profile); err != nil {
		return models.ErrInternalServer
	}

	action := "mfa_disabled"
	if enable {
		action = "mfa_enabled"
	}
	s.auditLogger.LogAccountAction(action, userID, "", nil)

	return nil
}

func (s *AuthService) sendVerificationEmail(email, token string, expiresAt time.Time) {
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.email.SendVerificationEmail(sendCtx, email, token, expiresAt); err != nil {
			s.logger.Error("failed to send verification email", slog.Any("error", err))
		}
	}()
}
