package services

import (
	"context"
	"testing"
	"time"

	"github.com/bidhaven/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAdminLoginLogRepository implements AdminLoginLogRepository for testing
type MockAdminLoginLogRepository struct {
	ListFunc            func(ctx context.Context, email string, limit, offset int) ([]*models.LoginLog, error)
	CountSinceFunc      func(ctx context.Context, since time.Time) (total, succeeded, failed int, err error)
	TopIPsSinceFunc     func(ctx context.Context, since time.Time, limit int) (map[string]int, error)
	TopDevicesSinceFunc func(ctx context.Context, since time.Time, limit int) (map[string]int, error)
}

func (m *MockAdminLoginLogRepository) List(ctx context.Context, email string, limit, offset int) ([]*models.LoginLog, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, email, limit, offset)
	}
	return []*models.LoginLog{}, nil
}

func (m *MockAdminLoginLogRepository) CountSince(ctx context.Context, since time.Time) (int, int, int, error) {
	if m.CountSinceFunc != nil {
		return m.CountSinceFunc(ctx, since)
	}
	return 0, 0, 0, nil
}

func (m *MockAdminLoginLogRepository) TopIPsSince(ctx context.Context, since time.Time, limit int) (map[string]int, error) {
	if m.TopIPsSinceFunc != nil {
		return m.TopIPsSinceFunc(ctx, since, limit)
	}
	return map[string]int{}, nil
}

func (m *MockAdminLoginLogRepository) TopDevicesSince(ctx context.Context, since time.Time, limit int) (map[string]int, error) {
	if m.TopDevicesSinceFunc != nil {
		return m.TopDevicesSinceFunc(ctx, since, limit)
	}
	return map[string]int{}, nil
}

// MockSessionPurger implements SessionPurger for testing
type MockSessionPurger struct {
	DeleteByUserIDTxFunc func(ctx context.Context, tx pgx.Tx, userID string) (int64, error)
}

func (m *MockSessionPurger) DeleteByUserIDTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error) {
	if m.DeleteByUserIDTxFunc != nil {
		return m.DeleteByUserIDTxFunc(ctx, tx, userID)
	}
	return 0, nil
}

type adminMocks struct {
	profiles     *MockProfileRepository
	roles        *MockRoleRepository
	sessions     *MockSessionPurger
	loginLogs    *MockAdminLoginLogRepository
	failedLogins *MockFailedLoginRepository
}

func newAdminMocks() *adminMocks {
	return &adminMocks{
		profiles:     &MockProfileRepository{},
		roles:        &MockRoleRepository{},
		sessions:     &MockSessionPurger{},
		loginLogs:    &MockAdminLoginLogRepository{},
		failedLogins: &MockFailedLoginRepository{},
	}
}

func newAdminService(m *adminMocks) *AdminService {
	logger, auditLogger := newTestLoggers()
	return NewAdminService(nil, m.profiles, m.roles, m.sessions, m.loginLogs, m.failedLogins, logger, auditLogger)
}

func TestAdminServiceCreateUser_RequiresAllFields(t *testing.T) {
	service := newAdminService(newAdminMocks())

	_, err := service.CreateUser(context.Background(), "actor_1", "new@example.com", testPassword, "", "BIDDER")

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestAdminServiceCreateUser_UnknownRole(t *testing.T) {
	m := newAdminMocks()
	m.roles.GetByCodeFunc = func(ctx context.Context, code string) (*models.Role, error) {
		return nil, models.ErrNotFound
	}
	service := newAdminService(m)

	_, err := service.CreateUser(context.Background(), "actor_1", "new@example.com", testPassword, "New User", "NOPE")

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestAdminServiceCreateUser_SetsExplicitRole(t *testing.T) {
	m := newAdminMocks()
	m.roles.GetByCodeFunc = func(ctx context.Context, code string) (*models.Role, error) {
		return &models.Role{ID: "role_mod", RoleCode: "MOD", Name: "Moderator", Type: models.UserTypeAdmin}, nil
	}
	var created *models.Profile
	m.profiles.CreateFunc = func(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
		profile.ID = "user_new"
		created = profile
		return profile, nil
	}
	service := newAdminService(m)

	resp, err := service.CreateUser(context.Background(), "actor_1", "mod@example.com", testPassword, "Mod User", "MOD")

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "MOD", created.RoleCode)
	assert.Equal(t, models.UserTypeAdmin, created.UserType)
	assert.True(t, created.EmailVerified)
	assert.Equal(t, "MOD", resp.RoleCode)
}

func TestAdminServiceChangeUserRole_RecomputesUserType(t *testing.T) {
	m := newAdminMocks()
	m.roles.GetByCodeFunc = func(ctx context.Context, code string) (*models.Role, error) {
		return &models.Role{ID: "role_admin", RoleCode: "ADMIN", Name: "Administrator", Type: models.UserTypeAdmin}, nil
	}
	m.profiles.GetByIDFunc = func(ctx context.Context, id string) (*models.Profile, error) {
		return &models.Profile{ID: id, Email: "test@example.com", RoleCode: "BIDDER", UserType: models.UserTypeApp, Status: models.StatusActive}, nil
	}
	var updated *models.Profile
	m.profiles.UpdateFunc = func(ctx context.Context, id string, p *models.Profile) (*models.Profile, error) {
		updated = p
		return p, nil
	}
	service := newAdminService(m)

	_, err := service.ChangeUserRole(context.Background(), "actor_1", "user_123", "ADMIN")

	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "ADMIN", updated.RoleCode)
	assert.Equal(t, models.UserTypeAdmin, updated.UserType)
}

func TestAdminServiceUnsuspendUser_RequiresSuspendedStatus(t *testing.T) {
	m := newAdminMocks()
	m.profiles.GetByIDFunc = func(ctx context.Context, id string) (*models.Profile, error) {
		return &models.Profile{ID: id, Email: "test@example.com", Status: models.StatusActive}, nil
	}
	service := newAdminService(m)

	err := service.UnsuspendUser(context.Background(), "actor_1", "user_123")

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestAdminServiceLockUser_DefaultsReason(t *testing.T) {
	m := newAdminMocks()
	m.profiles.GetByIDFunc = func(ctx context.Context, id string) (*models.Profile, error) {
		return &models.Profile{ID: id, Email: "test@example.com", Status: models.StatusActive}, nil
	}
	var updated *models.Profile
	m.profiles.UpdateFunc = func(ctx context.Context, id string, p *models.Profile) (*models.Profile, error) {
		updated = p
		return p, nil
	}
	service := newAdminService(m)

	err := service.LockUser(context.Background(), "actor_1", "user_123", "")

	require.NoError(t, err)
	assert.Equal(t, models.StatusLocked, updated.Status)
	assert.Equal(t, LockedReasonAdmin, updated.LockedReason)
}

func TestAdminServiceUnlockUser_ResetsFailureCounter(t *testing.T) {
	m := newAdminMocks()
	m.profiles.GetByIDFunc = func(ctx context.Context, id string) (*models.Profile, error) {
		return &models.Profile{ID: id, Email: "test@example.com", Status: models.StatusLocked, LockedReason: models.LockedReasonTooManyFailures}, nil
	}
	var updated *models.Profile
	m.profiles.UpdateFunc = func(ctx context.Context, id string, p *models.Profile) (*models.Profile, error) {
		updated = p
		return p, nil
	}
	deletedEmail := ""
	m.failedLogins.DeleteFunc = func(ctx context.Context, email string) error {
		deletedEmail = email
		return nil
	}
	service := newAdminService(m)

	err := service.UnlockUser(context.Background(), "actor_1", "user_123")

	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, updated.Status)
	assert.Empty(t, updated.LockedReason)
	assert.Equal(t, "test@example.com", deletedEmail)
}

func TestAdminServiceRestoreUser_ActiveAccountRejected(t *testing.T) {
	m := newAdminMocks()
	m.profiles.GetByIDFunc = func(ctx context.Context, id string) (*models.Profile, error) {
		return &models.Profile{ID: id, Email: "test@example.com", Status: models.StatusActive}, nil
	}
	service := newAdminService(m)

	err := service.RestoreUser(context.Background(), "actor_1", "user_123")

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestAdminServiceRestoreUser_ClearsReasonsAndCounter(t *testing.T) {
	m := newAdminMocks()
	m.profiles.GetByIDFunc = func(ctx context.Context, id string) (*models.Profile, error) {
		return &models.Profile{
			ID:           id,
			Email:        "test@example.com",
			Status:       models.StatusLocked,
			LockedReason: models.LockedReasonTooManyFailures,
		}, nil
	}
	var updated *models.Profile
	m.profiles.UpdateFunc = func(ctx context.Context, id string, p *models.Profile) (*models.Profile, error) {
		updated = p
		return p, nil
	}
	counterReset := false
	m.failedLogins.DeleteFunc = func(ctx context.Context, email string) error {
		counterReset = true
		return nil
	}
	service := newAdminService(m)

	err := service.RestoreUser(context.Background(), "actor_1", "user_123")

	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, updated.Status)
	assert.Empty(t, updated.LockedReason)
	assert.Empty(t, updated.SuspendReason)
	assert.True(t, counterReset)
}

func TestAdminServiceSoftDeleteUser_SelfDeletionRejected(t *testing.T) {
	service := newAdminService(newAdminMocks())

	err := service.SoftDeleteUser(context.Background(), "user_123", "user_123")

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestAdminServiceGetLoginStats_ThirtyDayWindow(t *testing.T) {
	m := newAdminMocks()
	var countedSince time.Time
	m.loginLogs.CountSinceFunc = func(ctx context.Context, since time.Time) (int, int, int, error) {
		countedSince = since
		return 100, 80, 20, nil
	}
	m.loginLogs.TopIPsSinceFunc = func(ctx context.Context, since time.Time, limit int) (map[string]int, error) {
		assert.Equal(t, 10, limit)
		return map[string]int{"192.168.1.1": 42}, nil
	}
	service := newAdminService(m)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return fixed }

	stats, err := service.GetLoginStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, fixed.Add(-30*24*time.Hour), countedSince)
	assert.Equal(t, 30, stats.WindowDays)
	assert.Equal(t, 100, stats.TotalAttempts)
	assert.Equal(t, 80, stats.SuccessfulLogins)
	assert.Equal(t, 20, stats.FailedAttempts)
	assert.Equal(t, 42, stats.TopIPs["192.168.1.1"])
}

func TestAdminServiceListUsers_ClampsLimit(t *testing.T) {
	m := newAdminMocks()
	var gotLimit int
	m.profiles.ListFunc = func(ctx context.Context, limit, offset int) ([]*models.Profile, error) {
		gotLimit = limit
		return []*models.Profile{}, nil
	}
	service := newAdminService(m)

	_, err := service.ListUsers(context.Background(), 500, 0)

	require.NoError(t, err)
	assert.Equal(t, 50, gotLimit)
}
