package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/bidhaven/backend/internal/database"
	"github.com/bidhaven/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const profileColumns = `id, email, password_hash, full_name, phone, avatar_url, role_id, role_code, user_type, status,
	locked_reason, suspend_reason, email_verified, verification_token, verification_expires_at, verified_at,
	mfa_enabled, mfa_otp, mfa_otp_expires_at, mfa_temp_token, mfa_attempts, mfa_temp_refresh_token,
	reset_token, reset_token_expires_at, reset_block_until, last_login_at, last_login_ip, created_at, updated_at`

type ProfileRepository struct {
	db *database.DB
}

func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfileRow(scanner rowScanner) (*models.Profile, error) {
	var p models.Profile

	err := scanner.Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.FullName, &p.Phone, &p.AvatarURL,
		&p.RoleID, &p.RoleCode, &p.UserType, &p.Status,
		&p.LockedReason, &p.SuspendReason,
		&p.EmailVerified, &p.VerificationToken, &p.VerificationExpiresAt, &p.VerifiedAt,
		&p.MFAEnabled, &p.MFAOTP, &p.MFAOTPExpiresAt, &p.MFATempToken, &p.MFAAttempts, &p.MFATempRefreshToken,
		&p.ResetToken, &p.ResetTokenExpiresAt, &p.ResetBlockUntil, &p.LastLoginAt, &p.LastLoginIP,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &p, nil
}

func scanProfileRows(rows pgx.Rows) ([]*models.Profile, error) {
	defer rows.Close()

	profiles := make([]*models.Profile, 0)

	for rows.Next() {
		profile, err := scanProfileRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return profiles, nil
}

func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	profile.ID = uuid.New().String()

	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if profile.Status == "" {
		profile.Status = models.StatusActive
	}

	query := `
		INSERT INTO profiles (id, email, password_hash, full_name, phone, avatar_url, role_id, role_code, user_type, status,
			email_verified, verification_token, verification_expires_at, verified_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING ` + profileColumns

	created, err := scanProfileRow(r.db.Pool.QueryRow(ctx, query,
		profile.ID, profile.Email, profile.PasswordHash, profile.FullName, profile.Phone, profile.AvatarURL,
		profile.RoleID, profile.RoleCode, profile.UserType, profile.Status,
		profile.EmailVerified, profile.VerificationToken, profile.VerificationExpiresAt, profile.VerifiedAt,
		profile.CreatedAt, profile.UpdatedAt,
	))
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	return scanProfileRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`
	return scanProfileRow(r.db.Pool.QueryRow(ctx, query, email))
}

func (r *ProfileRepository) GetByVerificationToken(ctx context.Context, token string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE verification_token = $1`
	return scanProfileRow(r.db.Pool.QueryRow(ctx, query, token))
}

func (r *ProfileRepository) GetByMFATempToken(ctx context.Context, token string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE mfa_temp_token = $1`
	return scanProfileRow(r.db.Pool.QueryRow(ctx, query, token))
}

func (r *ProfileRepository) GetByResetToken(ctx context.Context, token string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE reset_token = $1`
	return scanProfileRow(r.db.Pool.QueryRow(ctx, query, token))
}

// Update writes every mutable column back from the model. Callers mutate the
// loaded profile and persist it whole; partial updates share this path.
func (r *ProfileRepository) Update(ctx context.Context, id string, profile *models.Profile) (*models.Profile, error) {
	profile.UpdatedAt = time.Now()

	query := `
		UPDATE profiles SET
			email = $1, password_hash = $2, full_name = $3, phone = $4, avatar_url = $5,
			role_id = $6, role_code = $7, user_type = $8, status = $9,
			locked_reason = $10, suspend_reason = $11,
			email_verified = $12, verification_token = $13, verification_expires_at = $14, verified_at = $15,
			mfa_enabled = $16, mfa_otp = $17, mfa_otp_expires_at = $18, mfa_temp_token = $19,
			mfa_attempts = $20, mfa_temp_refresh_token = $21,
			reset_token = $22, reset_token_expires_at = $23, reset_block_until = $24,
			last_login_at = $25, last_login_ip = $26, updated_at = $27
		WHERE id = $28
		RETURNING ` + profileColumns

	updated, err := scanProfileRow(r.db.Pool.QueryRow(ctx, query,
		profile.Email, profile.PasswordHash, profile.FullName, profile.Phone, profile.AvatarURL,
		profile.RoleID, profile.RoleCode, profile.UserType, profile.Status,
		profile.LockedReason, profile.SuspendReason,
		profile.EmailVerified, profile.VerificationToken, profile.VerificationExpiresAt, profile.VerifiedAt,
		profile.MFAEnabled, profile.MFAOTP, profile.MFAOTPExpiresAt, profile.MFATempToken,
		profile.MFAAttempts, profile.MFATempRefreshToken,
		profile.ResetToken, profile.ResetTokenExpiresAt, profile.ResetBlockUntil,
		profile.LastLoginAt, profile.LastLoginIP, profile.UpdatedAt,
		id,
	))
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// UpdateStatusTx changes the lifecycle status inside a caller-owned
// transaction, used when the change must land atomically with other writes.
func (r *ProfileRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id, status string) error {
	query := `UPDATE profiles SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := tx.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *ProfileRepository) List(ctx context.Context, limit, offset int) ([]*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}

	return scanProfileRows(rows)
}

// CountByStatus returns the number of profiles per lifecycle status.
func (r *ProfileRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM profiles GROUP BY status`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query profile counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan profile count: %w", err)
		}
		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return counts, nil
}
