package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bidhaven/backend/internal/models"
	"github.com/bidhaven/backend/pkg/device"
)

// SessionResponse represents one of the user's sessions in HTTP responses.
// The refresh token itself is never echoed back.
type SessionResponse struct {
	ID        string `json:"id"`
	IPAddress string `json:"ip_address"`
	Device    string `json:"device"`
	LoginTime string `json:"login_time"`
	ExpiresAt string `json:"expires_at"`
}

// ProfileUpdate carries the caller-editable profile fields. Nil means leave
// the field untouched.
type ProfileUpdate struct {
	FullName  *string `json:"full_name"`
	Phone     *string `json:"phone"`
	AvatarURL *string `json:"avatar_url"`
}

// UserService serves the authenticated user's own profile and sessions.
type UserService struct {
	profiles ProfileRepository
	sessions *SessionService
	logger   *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(profiles ProfileRepository, sessions *SessionService, logger *slog.Logger) *UserService {
	return &UserService{
		profiles: profiles,
		sessions: sessions,
		logger:   logger,
	}
}

// GetMe returns the caller's own profile.
func (s *UserService) GetMe(ctx context.Context, userID string) (*ProfileResponse, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load profile", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return toProfileResponse(profile), nil
}

// UpdateProfile applies the caller's edits. At least one field must be set.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*ProfileResponse, error) {
	if update.FullName == nil && update.Phone == nil && update.AvatarURL == nil {
		return nil, models.ErrBadRequest
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, models.ErrInternalServer
	}

	if update.FullName != nil {
		profile.FullName = *update.FullName
	}
	if update.Phone != nil {
		profile.Phone = *update.Phone
	}
	if update.AvatarURL != nil {
		profile.AvatarURL = *update.AvatarURL
	}

	updated, err := s.profiles.Update(ctx, userID, profile)
	if err != nil {
		s.logger.Error("failed to update profile", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return toProfileResponse(updated), nil
}

// ListSessions returns the caller's live sessions with parsed device names.
func (s *UserService) ListSessions(ctx context.Context, userID string) ([]*SessionResponse, error) {
	sessions, err := s.sessions.List(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list sessions", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, &SessionResponse{
			ID:        session.ID,
			IPAddress: session.IPAddress,
			Device:    device.Parse(session.UserAgent),
			LoginTime: session.CreatedAt.UTC().Format(time.RFC3339),
			ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}

	return responses, nil
}

// RevokeSession deletes one of the caller's sessions.
func (s *UserService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		return models.ErrBadRequest
	}
	return s.sessions.Revoke(ctx, userID, sessionID)
}

// RevokeAllSessions signs the user out everywhere and returns the number of
// sessions removed.
func (s *UserService) RevokeAllSessions(ctx context.Context, userID string) (int64, error) {
	revoked, err := s.sessions.RevokeAll(ctx, userID)
	if err != nil {
		s.logger.Error("failed to revoke sessions", slog.String("user_id", userID), slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	s.logger.Info("all sessions revoked",
		slog.String("user_id", userID),
		slog.Int64("count", revoked))
	return revoked, nil
}
