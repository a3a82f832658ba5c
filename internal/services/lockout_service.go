package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bidhaven/backend/internal/models"
	pkglogger "github.com/bidhaven/backend/pkg/logger"
)

// FailedLoginRepository defines the interface for failure counter operations
type FailedLoginRepository interface {
	Get(ctx context.Context, email string) (*models.FailedLogin, error)
	Upsert(ctx context.Context, fl *models.FailedLogin) error
	Delete(ctx context.Context, email string) error
}

// ProfileRepository defines the interface for profile operations
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	GetByVerificationToken(ctx context.Context, token string) (*models.Profile, error)
	GetByMFATempToken(ctx context.Context, token string) (*models.Profile, error)
	GetByResetToken(ctx context.Context, token string) (*models.Profile, error)
	Update(ctx context.Context, id string, profile *models.Profile) (*models.Profile, error)
}

// LockoutService escalates per-email lockouts as failed logins accumulate.
// The counter is keyed on the submitted email, so lockouts apply even to
// emails with no matching account.
type LockoutService struct {
	failedLogins FailedLoginRepository
	profiles     ProfileRepository
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger
	now          func() time.Time
}

// NewLockoutService creates a new LockoutService
func NewLockoutService(failedLogins FailedLoginRepository, profiles ProfileRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *LockoutService {
	return &LockoutService{
		failedLogins: failedLogins,
		profiles:     profiles,
		logger:       logger,
		auditLogger:  auditLogger,
		now:          time.Now,
	}
}

// CheckLock returns an AccountLockedError when the email is under an active
// lock. It runs before password verification so locked accounts never reach
// the credential check. Counter read errors fail open.
func (s *LockoutService) CheckLock(ctx context.Context, email string) error {
	fl, err := s.failedLogins.Get(ctx, email)
	if err != nil {
		s.logger.Warn("failed to read failure counter, allowing attempt",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return nil
	}

	if fl == nil || fl.LockedUntil == nil {
		return nil
	}

	now := s.now()
	if fl.LockedAt(now) {
		return &models.AccountLockedError{RetryAfter: fl.LockedUntil.Sub(now)}
	}

	return nil
}

// RecordFailure increments the counter and applies the lockout tier the new
// total earns. Reaching the permanent tier also forces the owning profile,
// if one exists, to status locked.
func (s *LockoutService) RecordFailure(ctx context.Context, email string) (int, error) {
	fl, err := s.failedLogins.Get(ctx, email)
	if err != nil {
		return 0, err
	}

	attempts := 1
	if fl != nil {
		attempts = fl.Attempts + 1
	}

	now := s.now()
	updated := &models.FailedLogin{
		Email:         email,
		Attempts:      attempts,
		LastAttemptAt: now,
	}

	duration, permanent := models.LockDurationForAttempts(attempts)
	if duration > 0 {
		until := now.Add(duration)
		updated.LockedUntil = &until

		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "account_lockout",
			Email:         email,
			Success:       false,
			FailureReason: "failed_login_threshold",
		})
	}

	if err := s.failedLogins.Upsert(ctx, updated); err != nil {
		return attempts, err
	}

	if permanent {
		if err := s.lockProfile(ctx, email); err != nil {
			s.logger.Error("failed to lock profile after permanent lockout",
				slog.String("email", pkglogger.SanitizedEmail(email)),
				slog.Any("error", err))
		}
	}

	return attempts, nil
}

// RecordSuccess resets the counter and clears any lock.
func (s *LockoutService) RecordSuccess(ctx context.Context, email string) error {
	fl, err := s.failedLogins.Get(ctx, email)
	if err != nil {
		return err
	}
	if fl == nil {
		return nil
	}

	return s.failedLogins.Upsert(ctx, &models.FailedLogin{
		Email:         email,
		Attempts:      0,
		LastAttemptAt: s.now(),
	})
}

func (s *LockoutService) lockProfile(ctx context.Context, email string) error {
	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}

	profile.Status = models.StatusLocked
	profile.LockedReason = models.LockedReasonTooManyFailures

	if _, err := s.profiles.Update(ctx, profile.ID, profile); err != nil {
		return err
	}

	s.auditLogger.LogAccountAction("account_locked", profile.ID, "", map[string]string{
		"reason": models.LockedReasonTooManyFailures,
	})

	return nil
}
