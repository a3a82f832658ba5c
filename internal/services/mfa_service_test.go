package services

import (
	"context"
	"testing"
	"time"

	"github.com/bidhaven/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMFAService(profiles ProfileRepository, sessionRepo SessionRepository, email EmailService) *MFAService {
	logger, auditLogger := newTestLoggers()
	sessions := NewSessionService(sessionRepo, logger, auditLogger, 30*24*time.Hour)
	return NewMFAService(profiles, sessions, email, logger, auditLogger, 10*time.Minute)
}

func strPtr(s string) *string { return &s }

func pendingChallenge(otp, tempToken string, expiresAt time.Time) *models.Profile {
	return &models.Profile{
		ID:              "user_123",
		Email:           "test@example.com",
		FullName:        "Test User",
		MFAEnabled:      true,
		MFAOTP:          strPtr(otp),
		MFAOTPExpiresAt: &expiresAt,
		MFATempToken:    strPtr(tempToken),
	}
}

func TestMFAServiceChallenge_StashesLoginToken(t *testing.T) {
	var updated *models.Profile
	profiles := &MockProfileRepository{
		UpdateFunc: func(ctx context.Context, id string, profile *models.Profile) (*models.Profile, error) {
			updated = profile
			return profile, nil
		},
	}
	service := newMFAService(profiles, &MockSessionRepository{}, &MockEmailService{})

	profile := &models.Profile{ID: "user_123", Email: "test@example.com", MFAEnabled: true}
	tempToken, err := service.Challenge(context.Background(), profile, "login-refresh-token")

	require.NoError(t, err)
	assert.NotEmpty(t, tempToken)
	require.NotNil(t, updated)
	require.NotNil(t, updated.MFAOTP)
	assert.Len(t, *updated.MFAOTP, 6)
	assert.Equal(t, 0, updated.MFAAttempts)
	require.NotNil(t, updated.MFATempRefreshToken)
	assert.Equal(t, "login-refresh-token", *updated.MFATempRefreshToken)
}

func TestMFAServiceVerify_UnknownTempToken(t *testing.T) {
	service := newMFAService(&MockProfileRepository{}, &MockSessionRepository{}, &MockEmailService{})

	_, _, err := service.Verify(context.Background(), "never-issued", "123456", "192.168.1.1", "Mozilla/5.0")

	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestMFAServiceVerify_CorrectCodeAdoptsStashedToken(t *testing.T) {
	profile := pendingChallenge("123456", "temp-token", time.Now().Add(5*time.Minute))
	profile.MFATempRefreshToken = strPtr("stashed-refresh-token")

	profiles := &MockProfileRepository{
		GetByMFATempTokenFunc: func(ctx context.Context, token string) (*models.Profile, error) {
			return profile, nil
		},
		UpdateFunc: func(ctx context.Context, id string, p *models.Profile) (*models.Profile, error) {
			return p, nil
		},
	}
	var created *models.Session
	sessionRepo := &MockSessionRepository{
		CreateFunc: func(ctx context.Context, session *models.Session) (*models.Session, error) {
			created = session
			session.ID = "session_123"
			return session, nil
		},
	}
	service := newMFAService(profiles, sessionRepo, &MockEmailService{})

	verified, session, err := service.Verify(context.Background(), "temp-token", "123456", "192.168.1.1", "Mozilla/5.0")

	require.NoError(t, err)
	require.NotNil(t, verified)
	assert.Nil(t, verified.MFAOTP)
	assert.Nil(t, verified.MFATempToken)
	assert.Nil(t, verified.MFATempRefreshToken)
	require.NotNil(t, session)
	require.NotNil(t, created)
	assert.Equal(t, "stashed-refresh-token", created.RefreshToken)
}

func TestMFAServiceVerify_WrongCodeIncrements(t *testing.T) {
	profile := pendingChallenge("123456", "temp-token", time.Now().Add(5*time.Minute))

	var updated *models.Profile
	profiles := &MockProfileRepository{
		GetByMFATempTokenFunc: func(ctx context.Context, token string) (*models.Profile, error) {
			return profile, nil
		},
		UpdateFunc: func(ctx context.Context, id string, p *models.Profile) (*models.Profile, error) {
			updated = p
			return p, nil
		},
	}
	service := newMFAService(profiles, &MockSessionRepository{}, &MockEmailService{})

	_, _, err := service.Verify(context.Background(), "temp-token", "000000", "192.168.1.1", "Mozilla/5.0")

	assert.ErrorIs(t, err, models.ErrInvalidOTP)
	require.NotNil(t, updated)
	assert.Equal(t, 1, updated.MFAAttempts)
	// The challenge survives a wrong code.
	assert.NotNil(t, updated.MFAOTP)
	assert.NotNil(t, updated.MFATempToken)
}

func TestMFAServiceVerify_FifthWrongCodeBlocks(t *testing.T) {
	profile := pendingChallenge("123456", "temp-token", time.Now().Add(5*time.Minute))
	profile.MFAAttempts = MFAMaxAttempts - 1

	var updated *models.Profile
	profiles := &MockProfileRepository{
		GetByMFATempTokenFunc: func(ctx context.Context, token string) (*models.Profile, error) {
			return profile, nil
		},
		UpdateFunc: func(ctx context.Context, id string, p *models.Profile) (*models.Profile, error) {
			updated = p
			return p, nil
		},
	}
	service := newMFAService(profiles, &MockSessionRepository{}, &MockEmailService{})

	_, _, err := service.Verify(context.Background(), "temp-token", "000000", "192.168.1.1", "Mozilla/5.0")

	require.ErrorIs(t, err, models.ErrRateLimited)
	assert.Contains(t, err.Error(), "15 minutes")
	require.NotNil(t, updated)
	require.NotNil(t, updated.ResetBlockUntil)
	// Blocking keeps the challenge pending for after the block lapses.
	assert.NotNil(t, updated.MFAOTP)
	assert.NotNil(t, updated.MFATempToken)
}

func TestMFAServiceVerify_ActiveBlockRejectsCorrectCode(t *testing.T) {
	profile := pendingChallenge("123456", "temp-token", time.Now().Add(5*time.Minute))
	until := time.Now().Add(10 * time.Minute)
	profile.ResetBlockUntil = &until

	updateCalls := 0
	profiles := &MockProfileRepository{
		GetByMFATempTokenFunc: func(ctx context.Context, token string) (*models.Profile, error) {
			return profile, nil
		},
		UpdateFunc: func(ctx context.Context, id string, p *models.Profile) (*models.Profile, error) {
			updateCalls++
			return p, nil
		},
	}
	service := newMFAService(profiles, &MockSessionRepository{}, &MockEmailService{})

	_, _, err := service.Verify(context.Background(), "temp-token", "123456", "192.168.1.1", "Mozilla/5.0")

	assert.ErrorIs(t, err, models.ErrRateLimited)
	assert.Equal(t, 0, updateCalls)
}

func TestMFAServiceVerify_ExpiredOTPClearsChallenge(t *testing.T) {
	profile := pendingChallenge("123456", "temp-token", time.Now().Add(-time.Minute))
	profile.MFATempRefreshToken = strPtr("stashed-refresh-token")

	var updated *models.Profile
	profiles := &MockProfileRepository{
		GetByMFATempTokenFunc: func(ctx context.Context, token string) (*models.Profile, error) {
			return profile, nil
		},
		UpdateFunc: func(ctx context.Context, id string, p *models.Profile) (*models.Profile, error) {
			updated = p
			return p, nil
		},
	}
	service := newMFAService(profiles, &MockSessionRepository{}, &MockEmailService{})

	_, _, err := service.Verify(context.Background(), "temp-token", "123456", "192.168.1.1", "Mozilla/5.0")

	assert.ErrorIs(t, err, models.ErrOTPExpired)
	require.NotNil(t, updated)
	assert.Nil(t, updated.MFAOTP)
	assert.Nil(t, updated.MFATempToken)
	assert.Nil(t, updated.MFATempRefreshToken)
}

func TestMFAServiceVerify_NoStashRotatesNewestSession(t *testing.T) {
	profile := pendingChallenge("123456", "temp-token", time.Now().Add(5*time.Minute))

	profiles := &MockProfileRepository{
		GetByMFATempTokenFunc: func(ctx context.Context, token string) (*models.Profile, error) {
			return profile, nil
		},
		UpdateFunc: func(ctx context.Context, id string, p *models.Profile) (*models.Profile, error) {
			return p, nil
		},
	}
	sessionRepo := &MockSessionRepository{
		GetNewestByUserIDFunc: func(ctx context.Context, userID string) (*models.Session, error) {
			return &models.Session{
				ID:           "session_live",
				UserID:       userID,
				RefreshToken: "live-token",
				ExpiresAt:    time.Now().Add(time.Hour),
			}, nil
		},
		GetByRefreshTokenFunc: func(ctx context.Context, refreshToken string) (*models.Session, error) {
			return &models.Session{
				ID:           "session_live",
				UserID:       "user_123",
				RefreshToken: refreshToken,
				ExpiresAt:    time.Now().Add(time.Hour),
			}, nil
		},
	}
	service := newMFAService(profiles, sessionRepo, &MockEmailService{})

	_, session, err := service.Verify(context.Background(), "temp-token", "123456", "192.168.1.1", "Mozilla/5.0")

	require.NoError(t, err)
	require.NotNil(t, session)
	assert.NotEqual(t, "live-token", session.RefreshToken)
}

func TestMFAServiceVerify_NoStashNoSessionDegradesToTokenOnly(t *testing.T) {
	profile := pendingChallenge("123456", "temp-token", time.Now().Add(5*time.Minute))

	profiles := &MockProfileRepository{
		GetByMFATempTokenFunc: func(ctx context.Context, token string) (*models.Profile, error) {
			return profile, nil
		},
		UpdateFunc: func(ctx context.Context, id string, p *models.Profile) (*models.Profile, error) {
			return p, nil
		},
	}
	service := newMFAService(profiles, &MockSessionRepository{}, &MockEmailService{})

	verified, session, err := service.Verify(context.Background(), "temp-token", "123456", "192.168.1.1", "Mozilla/5.0")

	require.NoError(t, err)
	assert.NotNil(t, verified)
	assert.Nil(t, session)
}
