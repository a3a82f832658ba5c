package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/bidhaven/backend/internal/models"
	pkglogger "github.com/bidhaven/backend/pkg/logger"
)

// PasswordResetLogRepository defines the interface for reset audit rows
type PasswordResetLogRepository interface {
	Record(ctx context.Context, log *models.PasswordResetLog) error
	CountSince(ctx context.Context, email string, since time.Time) (int, error)
	CountByReasonsSince(ctx context.Context, email string, reasons []string, since time.Time) (int, error)
}

// Request-flow and consume-flow limits. The request flow meters every row for
// the email; the consume flow meters only its own reason codes, so requesting
// emails never burns consume budget and vice versa.
const (
	ResetRequestHourlyLimit = 3
	ResetRequestDailyLimit  = 10
	ResetConsumeHourlyLimit = 5
	ResetConsumeDailyLimit  = 15

	ResetRequestHourlyBlock = time.Hour
	ResetRequestDailyBlock  = 24 * time.Hour
)

// ResetLimiterService meters password reset traffic per email against the
// append-only reset log, writing standing blocks to the profile when a
// threshold is crossed.
type ResetLimiterService struct {
	resetLogs   PasswordResetLogRepository
	profiles    ProfileRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

// NewResetLimiterService creates a new ResetLimiterService
func NewResetLimiterService(resetLogs PasswordResetLogRepository, profiles ProfileRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *ResetLimiterService {
	return &ResetLimiterService{
		resetLogs:   resetLogs,
		profiles:    profiles,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// CheckRequest gates the forgot-password flow for an existing account. A
// standing profile block or a crossed threshold yields a RateLimitError;
// crossing a threshold also writes the block back to the profile. Counting
// errors fail open so a log outage never strands legitimate users.
func (s *ResetLimiterService) CheckRequest(ctx context.Context, profile *models.Profile) error {
	now := s.now()

	if profile.ResetBlocked(now) {
		retryAfter := profile.ResetBlockUntil.Sub(now)
		s.auditLogger.LogRateLimit("password_reset_request", profile.Email, "", retryAfter)
		return models.NewRateLimitError(retryAfter, "Too many reset requests. Try again in %s.", models.FormatRetryAfter(retryAfter))
	}

	hourly, err := s.resetLogs.CountSince(ctx, profile.Email, now.Add(-time.Hour))
	if err != nil {
		s.logger.Warn("reset request count failed, allowing request", slog.Any("error", err))
		return nil
	}

	if hourly >= ResetRequestHourlyLimit {
		s.applyBlock(ctx, profile, now.Add(ResetRequestHourlyBlock))
		s.auditLogger.LogRateLimit("password_reset_request", profile.Email, "", ResetRequestHourlyBlock)
		return models.NewRateLimitError(ResetRequestHourlyBlock, "Too many reset requests. Try again in 1 hour.")
	}

	daily, err := s.resetLogs.CountSince(ctx, profile.Email, now.Add(-24*time.Hour))
	if err != nil {
		s.logger.Warn("reset request count failed, allowing request", slog.Any("error", err))
		return nil
	}

	if daily >= ResetRequestDailyLimit {
		s.applyBlock(ctx, profile, now.Add(ResetRequestDailyBlock))
		s.auditLogger.LogRateLimit("password_reset_request", profile.Email, "", ResetRequestDailyBlock)
		return models.NewRateLimitError(ResetRequestDailyBlock, "Too many reset requests. Try again in 24 hours.")
	}

	return nil
}

// CheckConsume gates the reset-password flow. Only consume-flow reason codes
// count toward its limits. Crossing a threshold logs the rejection but sets
// no standing block.
func (s *ResetLimiterService) CheckConsume(ctx context.Context, profile *models.Profile, email, ipAddress, userAgent string) error {
	now := s.now()

	if profile != nil && profile.ResetBlocked(now) {
		retryAfter := profile.ResetBlockUntil.Sub(now)
		s.record(ctx, email, ipAddress, userAgent, models.ResetReasonRateLimitConsume)
		s.auditLogger.LogRateLimit("password_reset_consume", email, ipAddress, retryAfter)
		return models.NewRateLimitError(retryAfter, "Too many reset requests. Try again in %s.", models.FormatRetryAfter(retryAfter))
	}

	hourly, err := s.resetLogs.CountByReasonsSince(ctx, email, models.ConsumeFlowReasons, now.Add(-time.Hour))
	if err != nil {
		s.logger.Warn("reset consume count failed, allowing attempt", slog.Any("error", err))
		return nil
	}

	if hourly >= ResetConsumeHourlyLimit {
		s.record(ctx, email, ipAddress, userAgent, models.ResetReasonRateLimitConsume)
		s.auditLogger.LogRateLimit("password_reset_consume", email, ipAddress, time.Hour)
		return models.NewRateLimitError(time.Hour, "Too many reset attempts. Try later.")
	}

	daily, err := s.resetLogs.CountByReasonsSince(ctx, email, models.ConsumeFlowReasons, now.Add(-24*time.Hour))
	if err != nil {
		s.logger.Warn("reset consume count failed, allowing attempt", slog.Any("error", err))
		return nil
	}

	if daily >= ResetConsumeDailyLimit {
		s.record(ctx, email, ipAddress, userAgent, models.ResetReasonRateLimitConsumeDay)
		s.auditLogger.LogRateLimit("password_reset_consume", email, ipAddress, 24*time.Hour)
		return models.NewRateLimitError(24*time.Hour, "Too many reset attempts today. Try again tomorrow.")
	}

	return nil
}

// Record appends a reset event row. Logging failures are swallowed after a
// warn; the audit trail must never break the flow it observes.
func (s *ResetLimiterService) Record(ctx context.Context, email, ipAddress, userAgent, reason string, success bool) {
	err := s.resetLogs.Record(ctx, &models.PasswordResetLog{
		Email:     email,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   success,
		Reason:    reason,
	})
	if err != nil {
		s.logger.Warn("failed to record reset event",
			slog.String("reason", reason),
			slog.Any("error", err))
	}
}

// ClearBlock removes a standing block after a successful reset.
func (s *ResetLimiterService) ClearBlock(ctx context.Context, profile *models.Profile) {
	if profile.ResetBlockUntil == nil {
		return
	}

	profile.ResetBlockUntil = nil
	if _, err := s.profiles.Update(ctx, profile.ID, profile); err != nil {
		s.logger.Warn("failed to clear reset block", slog.String("user_id", profile.ID), slog.Any("error", err))
	}
}

func (s *ResetLimiterService) record(ctx context.Context, email, ipAddress, userAgent, reason string) {
	s.Record(ctx, email, ipAddress, userAgent, reason, false)
}

func (s *ResetLimiterService) applyBlock(ctx context.Context, profile *models.Profile, until time.Time) {
	profile.ResetBlockUntil = &until
	if _, err := s.profiles.Update(ctx, profile.ID, profile); err != nil {
		s.logger.Warn("failed to write reset block", slog.String("user_id", profile.ID), slog.Any("error", err))
	}
}
