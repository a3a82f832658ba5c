package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/bidhaven/backend/internal/models"
	pkgauth "github.com/bidhaven/backend/pkg/auth"
	pkglogger "github.com/bidhaven/backend/pkg/logger"
)

// MFAMaxAttempts wrong codes against one challenge blocks verification for
// MFABlockDuration. The challenge itself survives the block.
const (
	MFAMaxAttempts   = 5
	MFABlockDuration = 15 * time.Minute
)

// MFAService runs the emailed one-time-passcode challenge between password
// verification and token issuance.
type MFAService struct {
	profiles    ProfileRepository
	sessions    *SessionService
	email       EmailService
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	otpExpiry   time.Duration
	now         func() time.Time
}

// NewMFAService creates a new MFAService
func NewMFAService(profiles ProfileRepository, sessions *SessionService, email EmailService, logger *slog.Logger, auditLogger *pkglogger.AuditLogger, otpExpiry time.Duration) *MFAService {
	return &MFAService{
		profiles:    profiles,
		sessions:    sessions,
		email:       email,
		logger:      logger,
		auditLogger: auditLogger,
		otpExpiry:   otpExpiry,
		now:         time.Now,
	}
}

// Challenge issues a fresh OTP challenge for a profile whose password already
// verified. The refresh token minted at login is stashed on the profile and
// only becomes a session once the code is confirmed. Issuing a new challenge
// overwrites any pending one. The OTP email is sent asynchronously; delivery
// failure does not fail the login.
func (s *MFAService) Challenge(ctx context.Context, profile *models.Profile, loginRefreshToken string) (string, error) {
	otp, err := pkgauth.NewNumericOTP()
	if err != nil {
		return "", err
	}

	tempToken, err := pkgauth.NewOpaqueToken()
	if err != nil {
		return "", err
	}

	expiresAt := s.now().Add(s.otpExpiry)
	profile.MFAOTP = &otp
	profile.MFAOTPExpiresAt = &expiresAt
	profile.MFATempToken = &tempToken
	profile.MFAAttempts = 0
	profile.MFATempRefreshToken = nil
	if loginRefreshToken != "" {
		profile.MFATempRefreshToken = &loginRefreshToken
	}

	if _, err := s.profiles.Update(ctx, profile.ID, profile); err != nil {
		return "", err
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.email.SendOTPEmail(sendCtx, profile.FullName, profile.Email, otp); err != nil {
			s.logger.Error("failed to send otp email",
				slog.String("user_id", profile.ID),
				slog.Any("error", err))
		}
	}()

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "mfa_challenge_issued",
		UserID:    profile.ID,
		Success:   true,
	})

	return tempToken, nil
}

// Verify checks a submitted code against the pending challenge. On success
// all challenge fields are cleared and the stashed refresh token becomes a
// live session; the returned session is nil when no token was stashed and
// the user has no live session to rotate.
func (s *MFAService) Verify(ctx context.Context, tempToken, otp, ipAddress, userAgent string) (*models.Profile, *models.Session, error) {
	profile, err := s.profiles.GetByMFATempToken(ctx, tempToken)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, models.ErrInvalidToken
		}
		s.logger.Error("failed to look up mfa challenge", slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	now := s.now()

	// An active block rejects the attempt but leaves the challenge intact.
	if profile.ResetBlocked(now) {
		retryAfter := profile.ResetBlockUntil.Sub(now)
		s.auditLogger.LogRateLimit("mfa_verify", profile.Email, ipAddress, retryAfter)
		return nil, nil, models.NewRateLimitError(retryAfter, "Too many OTP attempts. Try again in %s.", models.FormatRetryAfter(retryAfter))
	}

	if profile.MFAOTPExpiresAt != nil && profile.MFAOTPExpiresAt.Before(now) {
		s.clearChallenge(ctx, profile)
		return nil, nil, models.ErrOTPExpired
	}

	stored := ""
	if profile.MFAOTP != nil {
		stored = strings.TrimSpace(*profile.MFAOTP)
	}
	submitted := strings.TrimSpace(otp)

	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) != 1 {
		return nil, nil, s.recordWrongCode(ctx, profile, ipAddress)
	}

	stashed := profile.MFATempRefreshToken

	profile.MFAOTP = nil
	profile.MFAOTPExpiresAt = nil
	profile.MFATempToken = nil
	profile.MFAAttempts = 0
	profile.MFATempRefreshToken = nil

	updated, err := s.profiles.Update(ctx, profile.ID, profile)
	if err != nil {
		s.logger.Error("failed to clear mfa challenge", slog.String("user_id", profile.ID), slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	session := s.materializeSession(ctx, updated.ID, stashed, ipAddress, userAgent)

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "mfa_verified",
		UserID:    updated.ID,
		IPAddress: ipAddress,
		Success:   true,
	})

	return updated, session, nil
}

func (s *MFAService) recordWrongCode(ctx context.Context, profile *models.Profile, ipAddress string) error {
	profile.MFAAttempts++

	if profile.MFAAttempts >= MFAMaxAttempts {
		until := s.now().Add(MFABlockDuration)
		profile.ResetBlockUntil = &until

		if _, err := s.profiles.Update(ctx, profile.ID, profile); err != nil {
			s.logger.Error("failed to record mfa block", slog.String("user_id", profile.ID), slog.Any("error", err))
			return models.ErrInternalServer
		}

		s.auditLogger.LogRateLimit("mfa_verify", profile.Email, ipAddress, MFABlockDuration)
		return models.NewRateLimitError(MFABlockDuration, "Too many OTP attempts. Try again in 15 minutes.")
	}

	if _, err := s.profiles.Update(ctx, profile.ID, profile); err != nil {
		s.logger.Error("failed to record mfa attempt", slog.String("user_id", profile.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "mfa_verify_failed",
		UserID:        profile.ID,
		IPAddress:     ipAddress,
		Success:       false,
		FailureReason: "wrong_otp",
	})

	return models.ErrInvalidOTP
}

func (s *MFAService) clearChallenge(ctx context.Context, profile *models.Profile) {
	profile.MFAOTP = nil
	profile.MFAOTPExpiresAt = nil
	profile.MFATempToken = nil
	profile.MFAAttempts = 0
	profile.MFATempRefreshToken = nil

	if _, err := s.profiles.Update(ctx, profile.ID, profile); err != nil {
		s.logger.Warn("failed to clear expired mfa challenge", slog.String("user_id", profile.ID), slog.Any("error", err))
	}
}

// materializeSession turns the stashed login refresh token into a session, or
// rotates the newest live session when nothing was stashed. Both failures
// degrade to a nil session; the signed token alone still authenticates.
func (s *MFAService) materializeSession(ctx context.Context, userID string, stashed *string, ipAddress, userAgent string) *models.Session {
	if stashed != nil && *stashed != "" {
		session, err := s.sessions.Adopt(ctx, userID, *stashed, ipAddress, userAgent)
		if err != nil {
			s.logger.Error("failed to create session after otp verification",
				slog.String("user_id", userID),
				slog.Any("error", err))
			return nil
		}
		return session
	}

	newest, err := s.sessions.NewestForUser(ctx, userID)
	if err != nil || newest == nil {
		return nil
	}

	session, err := s.sessions.Rotate(ctx, newest.RefreshToken, ipAddress, userAgent)
	if err != nil {
		s.logger.Error("failed to rotate session after otp verification",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return nil
	}

	return session
}
