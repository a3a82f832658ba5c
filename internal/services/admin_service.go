package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bidhaven/backend/internal/database"
	"github.com/bidhaven/backend/internal/models"
	pkgauth "github.com/bidhaven/backend/pkg/auth"
	pkglogger "github.com/bidhaven/backend/pkg/logger"
	"github.com/jackc/pgx/v5"
)

// AdminProfileRepository extends profile access with the listing and
// transactional operations the admin surface needs.
type AdminProfileRepository interface {
	ProfileRepository
	List(ctx context.Context, limit, offset int) ([]*models.Profile, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id, status string) error
}

// AdminLoginLogRepository extends the login log with admin queries.
type AdminLoginLogRepository interface {
	List(ctx context.Context, email string, limit, offset int) ([]*models.LoginLog, error)
	CountSince(ctx context.Context, since time.Time) (total, succeeded, failed int, err error)
	TopIPsSince(ctx context.Context, since time.Time, limit int) (map[string]int, error)
	TopDevicesSince(ctx context.Context, since time.Time, limit int) (map[string]int, error)
}

// SessionPurger deletes a user's sessions inside a caller-owned transaction.
type SessionPurger interface {
	DeleteByUserIDTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error)
}

// LockedReasonAdmin is recorded when an admin locks an account manually.
const LockedReasonAdmin = "locked_by_admin"

// LoginStats is the aggregate view served to the admin panel.
type LoginStats struct {
	WindowDays       int            `json:"window_days"`
	TotalAttempts    int            `json:"total_attempts"`
	SuccessfulLogins int            `json:"successful_logins"`
	FailedAttempts   int            `json:"failed_attempts"`
	TopIPs           map[string]int `json:"top_ips"`
	TopDevices       map[string]int `json:"top_devices"`
}

// AdminService drives account lifecycle transitions and serves the login
// audit surface. Lifecycle transitions are one-directional; only Restore
// moves an account back to active.
type AdminService struct {
	db           *database.DB
	profiles     AdminProfileRepository
	roles        RoleRepository
	sessions     SessionPurger
	loginLogs    AdminLoginLogRepository
	failedLogins FailedLoginRepository
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger
	now          func() time.Time
}

// NewAdminService creates a new AdminService
func NewAdminService(
	db *database.DB,
	profiles AdminProfileRepository,
	roles RoleRepository,
	sessions SessionPurger,
	loginLogs AdminLoginLogRepository,
	failedLogins FailedLoginRepository,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AdminService {
	return &AdminService{
		db:           db,
		profiles:     profiles,
		roles:        roles,
		sessions:     sessions,
		loginLogs:    loginLogs,
		failedLogins: failedLogins,
		logger:       logger,
		auditLogger:  auditLogger,
		now:          time.Now,
	}
}

// ListUsers returns profiles newest first.
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]*ProfileResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	profiles, err := s.profiles.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list profiles", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	responses := make([]*ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		responses = append(responses, toProfileResponse(p))
	}

	return responses, nil
}

// CreateUser provisions an account with an explicit role. Unlike signup the
// role is required and no session is issued.
func (s *AdminService) CreateUser(ctx context.Context, actorID, email, password, fullName, roleCode string) (*ProfileResponse, error) {
	if email == "" || password == "" || fullName == "" || roleCode == "" {
		return nil, models.ErrBadRequest
	}

	role, err := s.roles.GetByCode(ctx, roleCode)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrBadRequest
		}
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return nil, models.ErrInternalServer
	}

	profile := &models.Profile{
		Email:         email,
		PasswordHash:  hash,
		FullName:      fullName,
		RoleID:        role.ID,
		RoleCode:      role.RoleCode,
		UserType:      models.UserTypeForRole(role.RoleCode),
		Status:        models.StatusActive,
		EmailVerified: true,
	}

	created, err := s.profiles.Create(ctx, profile)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("admin_user_created", created.ID, "", map[string]string{
		"actor_id":  actorID,
		"role_code": role.RoleCode,
	})

	return toProfileResponse(created), nil
}

// ChangeUserRole reassigns a user's role and recomputes the user type.
func (s *AdminService) ChangeUserRole(ctx context.Context, actorID, userID, roleCode string) (*ProfileResponse, error) {
	if userID == "" || roleCode == "" {
		return nil, models.ErrBadRequest
	}

	role, err := s.roles.GetByCode(ctx, roleCode)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrBadRequest
		}
		return nil, models.ErrInternalServer
	}

	profile, err := s.getProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.RoleID = role.ID
	profile.RoleCode = role.RoleCode
	profile.UserType = models.UserTypeForRole(role.RoleCode)

	updated, err := s.profiles.Update(ctx, userID, profile)
	if err != nil {
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("admin_role_changed", userID, "", map[string]string{
		"actor_id":  actorID,
		"role_code": role.RoleCode,
	})

	return toProfileResponse(updated), nil
}

// SuspendUser moves an active account to suspended.
func (s *AdminService) SuspendUser(ctx context.Context, actorID, userID, reason string) error {
	profile, err := s.getProfile(ctx, userID)
	if err != nil {
		return err
	}

	profile.Status = models.StatusSuspended
	profile.SuspendReason = reason

	if _, err := s.profiles.Update(ctx, userID, profile); err != nil {
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("admin_user_suspended", userID, "", map[string]string{
		"actor_id": actorID,
		"reason":   reason,
	})

	return nil
}

// UnsuspendUser moves a suspended account back to active.
func (s *AdminService) UnsuspendUser(ctx context.Context, actorID, userID string) error {
	profile, err := s.getProfile(ctx, userID)
	if err != nil {
		return err
	}

	if profile.Status != models.StatusSuspended {
		return models.ErrBadRequest
	}

	profile.Status = models.StatusActive
	profile.SuspendReason = ""

	if _, err := s.profiles.Update(ctx, userID, profile); err != nil {
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("admin_user_unsuspended", userID, "", map[string]string{
		"actor_id": actorID,
	})

	return nil
}

// LockUser locks an account manually.
func (s *AdminService) LockUser(ctx context.Context, actorID, userID, reason string) error {
	profile, err := s.getProfile(ctx, userID)
	if err != nil {
		return err
	}

	if reason == "" {
		reason = LockedReasonAdmin
	}

	profile.Status = models.StatusLocked
	profile.LockedReason = reason

	if _, err := s.profiles.Update(ctx, userID, profile); err != nil {
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("admin_user_locked", userID, "", map[string]string{
		"actor_id": actorID,
		"reason":   reason,
	})

	return nil
}

// UnlockUser unlocks a locked account and clears its failure counter so the
// next login is not immediately re-locked.
func (s *AdminService) UnlockUser(ctx context.Context, actorID, userID string) error {
	profile, err := s.getProfile(ctx, userID)
	if err != nil {
		return err
	}

	if profile.Status != models.StatusLocked {
		return models.ErrBadRequest
	}

	profile.Status = models.StatusActive
	profile.LockedReason = ""

	if _, err := s.profiles.Update(ctx, userID, profile); err != nil {
		return models.ErrInternalServer
	}

	s.resetFailureCounter(ctx, profile.Email)

	s.auditLogger.LogAccountAction("admin_user_unlocked", userID, "", map[string]string{
		"actor_id": actorID,
	})

	return nil
}

// RestoreUser moves a suspended, locked or deleted account back to active and
// clears all block state.
func (s *AdminService) RestoreUser(ctx context.Context, actorID, userID string) error {
	profile, err := s.getProfile(ctx, userID)
	if err != nil {
		return err
	}

	switch profile.Status {
	case models.StatusSuspended, models.StatusLocked, models.StatusDeleted:
	default:
		return models.ErrBadRequest
	}

	profile.Status = models.StatusActive
	profile.SuspendReason = ""
	profile.LockedReason = ""

	if _, err := s.profiles.Update(ctx, userID, profile); err != nil {
		return models.ErrInternalServer
	}

	s.resetFailureCounter(ctx, profile.Email)

	s.auditLogger.LogAccountAction("admin_user_restored", userID, "", map[string]string{
		"actor_id": actorID,
	})

	return nil
}

// SoftDeleteUser marks an account deleted and purges its sessions in one
// transaction, so a half-deleted account can never keep logging in.
func (s *AdminService) SoftDeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return models.ErrBadRequest
	}

	if _, err := s.getProfile(ctx, userID); err != nil {
		return err
	}

	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.profiles.UpdateStatusTx(ctx, tx, userID, models.StatusDeleted); err != nil {
			return err
		}

		_, err := s.sessions.DeleteByUserIDTx(ctx, tx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to soft delete user", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("admin_user_deleted", userID, "", map[string]string{
		"actor_id": actorID,
	})

	return nil
}

// GetLoginLogs returns the login audit trail, optionally filtered by email.
func (s *AdminService) GetLoginLogs(ctx context.Context, email string, limit, offset int) ([]*models.LoginLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	logs, err := s.loginLogs.List(ctx, email, limit, offset)
	if err != nil {
		s.logger.Error("failed to list login logs", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return logs, nil
}

// GetLoginStats aggregates the last 30 days of login activity.
func (s *AdminService) GetLoginStats(ctx context.Context) (*LoginStats, error) {
	const windowDays = 30
	since := s.now().Add(-windowDays * 24 * time.Hour)

	total, succeeded, failed, err := s.loginLogs.CountSince(ctx, since)
	if err != nil {
		s.logger.Error("failed to count login logs", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	topIPs, err := s.loginLogs.TopIPsSince(ctx, since, 10)
	if err != nil {
		return nil, models.ErrInternalServer
	}

	topDevices, err := s.loginLogs.TopDevicesSince(ctx, since, 10)
	if err != nil {
		return nil, models.ErrInternalServer
	}

	return &LoginStats{
		WindowDays:       windowDays,
		TotalAttempts:    total,
		SuccessfulLogins: succeeded,
		FailedAttempts:   failed,
		TopIPs:           topIPs,
		TopDevices:       topDevices,
	}, nil
}

// GetUserStats returns profile counts per lifecycle status.
func (s *AdminService) GetUserStats(ctx context.Context) (map[string]int, error) {
	counts, err := s.profiles.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("failed to count profiles", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return counts, nil
}

func (s *AdminService) getProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if userID == "" {
		return nil, models.ErrBadRequest
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to load profile", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return profile, nil
}

func (s *AdminService) resetFailureCounter(ctx context.Context, email string) {
	if err := s.failedLogins.Delete(ctx, email); err != nil {
		s.logger.Warn("failed to reset failure counter",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
	}
}
