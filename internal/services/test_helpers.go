package services

import (
	"context"
	"time"

	"github.com/bidhaven/backend/internal/models"
	"github.com/jackc/pgx/v5"
)

// MockProfileRepository implements ProfileRepository for testing
type MockProfileRepository struct {
	CreateFunc                 func(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	GetByIDFunc                func(ctx context.Context, id string) (*models.Profile, error)
	GetByEmailFunc             func(ctx context.Context, email string) (*models.Profile, error)
	GetByVerificationTokenFunc func(ctx context.Context, token string) (*models.Profile, error)
	GetByMFATempTokenFunc      func(ctx context.Context, token string) (*models.Profile, error)
	GetByResetTokenFunc        func(ctx context.Context, token string) (*models.Profile, error)
	UpdateFunc                 func(ctx context.Context, id string, profile *models.Profile) (*models.Profile, error)
	ListFunc                   func(ctx context.Context, limit, offset int) ([]*models.Profile, error)
	CountByStatusFunc          func(ctx context.Context) (map[string]int, error)
	UpdateStatusTxFunc         func(ctx context.Context, tx pgx.Tx, id, status string) error
}

func (m *MockProfileRepository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, profile)
	}
	return profile, nil
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockProfileRepository) GetByVerificationToken(ctx context.Context, token string) (*models.Profile, error) {
	if m.GetByVerificationTokenFunc != nil {
		return m.GetByVerificationTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockProfileRepository) GetByMFATempToken(ctx context.Context, token string) (*models.Profile, error) {
	if m.GetByMFATempTokenFunc != nil {
		return m.GetByMFATempTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockProfileRepository) GetByResetToken(ctx context.Context, token string) (*models.Profile, error) {
	if m.GetByResetTokenFunc != nil {
		return m.GetByResetTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockProfileRepository) Update(ctx context.Context, id string, profile *models.Profile) (*models.Profile, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, profile)
	}
	return profile, nil
}

func (m *MockProfileRepository) List(ctx context.Context, limit, offset int) ([]*models.Profile, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.Profile{}, nil
}

func (m *MockProfileRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	if m.CountByStatusFunc != nil {
		return m.CountByStatusFunc(ctx)
	}
	return map[string]int{}, nil
}

func (m *MockProfileRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id, status string) error {
	if m.UpdateStatusTxFunc != nil {
		return m.UpdateStatusTxFunc(ctx, tx, id, status)
	}
	return nil
}

// MockFailedLoginRepository implements FailedLoginRepository for testing
type MockFailedLoginRepository struct {
	GetFunc    func(ctx context.Context, email string) (*models.FailedLogin, error)
	UpsertFunc func(ctx context.Context, fl *models.FailedLogin) error
	DeleteFunc func(ctx context.Context, email string) error
}

func (m *MockFailedLoginRepository) Get(ctx context.Context, email string) (*models.FailedLogin, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, email)
	}
	return nil, nil
}

func (m *MockFailedLoginRepository) Upsert(ctx context.Context, fl *models.FailedLogin) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, fl)
	}
	return nil
}

func (m *MockFailedLoginRepository) Delete(ctx context.Context, email string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, email)
	}
	return nil
}

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	CreateFunc               func(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByRefreshTokenFunc    func(ctx context.Context, refreshToken string) (*models.Session, error)
	GetByIDFunc              func(ctx context.Context, id string) (*models.Session, error)
	GetNewestByUserIDFunc    func(ctx context.Context, userID string) (*models.Session, error)
	ListByUserIDFunc         func(ctx context.Context, userID string) ([]*models.Session, error)
	RotateFunc               func(ctx context.Context, oldID string, replacement *models.Session) (*models.Session, error)
	DeleteSessionFunc        func(ctx context.Context, id string) error
	DeleteByRefreshTokenFunc func(ctx context.Context, refreshToken string) error
	DeleteByUserIDFunc       func(ctx context.Context, userID string) (int64, error)
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	session.ID = "session_123"
	return session, nil
}

func (m *MockSessionRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	if m.GetByRefreshTokenFunc != nil {
		return m.GetByRefreshTokenFunc(ctx, refreshToken)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionRepository) GetNewestByUserID(ctx context.Context, userID string) (*models.Session, error) {
	if m.GetNewestByUserIDFunc != nil {
		return m.GetNewestByUserIDFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionRepository) ListByUserID(ctx context.Context, userID string) ([]*models.Session, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID)
	}
	return []*models.Session{}, nil
}

func (m *MockSessionRepository) Rotate(ctx context.Context, oldID string, replacement *models.Session) (*models.Session, error) {
	if m.RotateFunc != nil {
		return m.RotateFunc(ctx, oldID, replacement)
	}
	replacement.ID = "session_rotated"
	return replacement, nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, id)
	}
	return nil
}

func (m *MockSessionRepository) DeleteByRefreshToken(ctx context.Context, refreshToken string) error {
	if m.DeleteByRefreshTokenFunc != nil {
		return m.DeleteByRefreshTokenFunc(ctx, refreshToken)
	}
	return nil
}

func (m *MockSessionRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	if m.DeleteByUserIDFunc != nil {
		return m.DeleteByUserIDFunc(ctx, userID)
	}
	return 0, nil
}

// MockPasswordResetLogRepository implements PasswordResetLogRepository for testing
type MockPasswordResetLogRepository struct {
	RecordFunc              func(ctx context.Context, log *models.PasswordResetLog) error
	CountSinceFunc          func(ctx context.Context, email string, since time.Time) (int, error)
	CountByReasonsSinceFunc func(ctx context.Context, email string, reasons []string, since time.Time) (int, error)
}

func (m *MockPasswordResetLogRepository) Record(ctx context.Context, log *models.PasswordResetLog) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, log)
	}
	return nil
}

func (m *MockPasswordResetLogRepository) CountSince(ctx context.Context, email string, since time.Time) (int, error) {
	if m.CountSinceFunc != nil {
		return m.CountSinceFunc(ctx, email, since)
	}
	return 0, nil
}

func (m *MockPasswordResetLogRepository) CountByReasonsSince(ctx context.Context, email string, reasons []string, since time.Time) (int, error) {
	if m.CountByReasonsSinceFunc != nil {
		return m.CountByReasonsSinceFunc(ctx, email, reasons, since)
	}
	return 0, nil
}

// MockRoleRepository implements RoleRepository for testing
type MockRoleRepository struct {
	GetByCodeFunc func(ctx context.Context, code string) (*models.Role, error)
	GetByIDFunc   func(ctx context.Context, id string) (*models.Role, error)
}

func (m *MockRoleRepository) GetByCode(ctx context.Context, code string) (*models.Role, error) {
	if m.GetByCodeFunc != nil {
		return m.GetByCodeFunc(ctx, code)
	}
	return &models.Role{ID: "role_123", RoleCode: code, Name: code}, nil
}

func (m *MockRoleRepository) GetByID(ctx context.Context, id string) (*models.Role, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

// MockLoginLogRepository implements LoginLogRepository for testing
type MockLoginLogRepository struct {
	RecordFunc func(ctx context.Context, log *models.LoginLog) error

	Recorded []*models.LoginLog
}

func (m *MockLoginLogRepository) Record(ctx context.Context, log *models.LoginLog) error {
	m.Recorded = append(m.Recorded, log)
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, log)
	}
	return nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendVerificationEmailFunc  func(ctx context.Context, email, token string, expiresAt time.Time) error
	SendPasswordResetEmailFunc func(ctx context.Context, email, token string) error
	SendOTPEmailFunc           func(ctx context.Context, name, email, otp string) error
}

func (m *MockEmailService) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, email, token, expiresAt)
	}
	return nil
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email, token)
	}
	return nil
}

func (m *MockEmailService) SendOTPEmail(ctx context.Context, name, email, otp string) error {
	if m.SendOTPEmailFunc != nil {
		return m.SendOTPEmailFunc(ctx, name, email, otp)
	}
	return nil
}

// MockRolePermissionRepository implements RolePermissionRepository for testing
type MockRolePermissionRepository struct {
	GetPermissionCodesFunc func(ctx context.Context, roleCode string) ([]string, error)

	Calls int
}

func (m *MockRolePermissionRepository) GetPermissionCodes(ctx context.Context, roleCode string) ([]string, error) {
	m.Calls++
	if m.GetPermissionCodesFunc != nil {
		return m.GetPermissionCodesFunc(ctx, roleCode)
	}
	return []string{}, nil
}
