package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bidhaven/backend/internal/models"
	pkgauth "github.com/bidhaven/backend/pkg/auth"
	pkglogger "github.com/bidhaven/backend/pkg/logger"
)

// SessionRepository defines the interface for session persistence
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error)
	GetByID(ctx context.Context, id string) (*models.Session, error)
	GetNewestByUserID(ctx context.Context, userID string) (*models.Session, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.Session, error)
	Rotate(ctx context.Context, oldID string, replacement *models.Session) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByRefreshToken(ctx context.Context, refreshToken string) error
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}

// SessionService owns refresh tokens: it mints them, rotates them on use and
// treats a lookup miss as proof of reuse, since every live token has a row.
type SessionService struct {
	sessions    SessionRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	ttl         time.Duration
	now         func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(sessions SessionRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger, ttl time.Duration) *SessionService {
	return &SessionService{
		sessions:    sessions,
		logger:      logger,
		auditLogger: auditLogger,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Create mints a fresh session for a user. Existing sessions are untouched;
// each device gets its own row.
func (s *SessionService) Create(ctx context.Context, userID, ipAddress, userAgent string) (*models.Session, error) {
	token, err := pkgauth.NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		UserID:       userID,
		RefreshToken: token,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		ExpiresAt:    s.now().Add(s.ttl),
	}

	created, err := s.sessions.Create(ctx, session)
	if err != nil {
		s.logger.Error("failed to create session", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return created, nil
}

// Adopt registers a pre-minted refresh token as a live session. Used after
// OTP verification, where the token was minted at login but held back until
// the challenge passed.
func (s *SessionService) Adopt(ctx context.Context, userID, refreshToken, ipAddress, userAgent string) (*models.Session, error) {
	session := &models.Session{
		UserID:       userID,
		RefreshToken: refreshToken,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		ExpiresAt:    s.now().Add(s.ttl),
	}

	created, err := s.sessions.Create(ctx, session)
	if err != nil {
		s.logger.Error("failed to adopt session", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return created, nil
}

// Rotate exchanges a refresh token for a new session. A token with no row is
// either already rotated or was never issued, both treated as reuse.
func (s *SessionService) Rotate(ctx context.Context, refreshToken, ipAddress, userAgent string) (*models.Session, error) {
	current, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "token_reuse_detected",
				IPAddress:     ipAddress,
				UserAgent:     userAgent,
				Success:       false,
				FailureReason: "unknown_refresh_token",
			})
			return nil, models.ErrTokenReuse
		}
		s.logger.Error("failed to look up session", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := s.now()
	if current.Expired(now) {
		_ = s.sessions.DeleteByRefreshToken(ctx, refreshToken)
		return nil, models.ErrInvalidToken
	}

	token, err := pkgauth.NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	replacement := &models.Session{
		UserID:       current.UserID,
		RefreshToken: token,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		ExpiresAt:    now.Add(s.ttl),
	}

	rotated, err := s.sessions.Rotate(ctx, current.ID, replacement)
	if err != nil {
		s.logger.Error("failed to rotate session", slog.String("user_id", current.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return rotated, nil
}

// List returns the user's non-expired sessions, newest first. The repository
// filters by expiry too; rows a slow cleanup pass has not removed yet are
// dropped here as well so callers never see a dead session.
func (s *SessionService) List(ctx context.Context, userID string) ([]*models.Session, error) {
	sessions, err := s.sessions.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	live := make([]*models.Session, 0, len(sessions))
	for _, session := range sessions {
		if session.ExpiresAt.After(now) {
			live = append(live, session)
		}
	}

	return live, nil
}

// Revoke deletes one of the user's own sessions. A session that belongs to
// someone else is reported as forbidden, not missing.
func (s *SessionService) Revoke(ctx context.Context, userID, sessionID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}

	if session.UserID != userID {
		return models.ErrForbidden
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	s.auditLogger.LogAccountAction("session_revoked", userID, "", map[string]string{
		"session_id": sessionID,
	})

	return nil
}

// RevokeAll deletes every session for a user.
func (s *SessionService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	count, err := s.sessions.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		s.auditLogger.LogAccountAction("all_sessions_revoked", userID, "", nil)
	}

	return count, nil
}

// Logout deletes the session holding a refresh token. Unknown tokens succeed;
// logout is idempotent.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.DeleteByRefreshToken(ctx, refreshToken)
}

// NewestForUser returns the user's most recent unexpired session, or nil when
// none exists.
func (s *SessionService) NewestForUser(ctx context.Context, userID string) (*models.Session, error) {
	session, err := s.sessions.GetNewestByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if session.Expired(s.now()) {
		return nil, nil
	}

	return session, nil
}
