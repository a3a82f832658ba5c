package repositories

import (
	"context"
	"time"

	"github.com/bidhaven/backend/internal/database"
	"github.com/bidhaven/backend/internal/models"
	"github.com/google/uuid"
)

// PasswordResetLogRepository handles the append-only reset audit trail the
// reset limiter meters against.
type PasswordResetLogRepository struct {
	db *database.DB
}

// NewPasswordResetLogRepository creates a new PasswordResetLogRepository
func NewPasswordResetLogRepository(db *database.DB) *PasswordResetLogRepository {
	return &PasswordResetLogRepository{db: db}
}

// Record inserts a reset event row.
func (r *PasswordResetLogRepository) Record(ctx context.Context, log *models.PasswordResetLog) error {
	log.ID = uuid.New().String()
	log.CreatedAt = time.Now()

	query := `
		INSERT INTO password_reset_logs (id, email, ip_address, user_agent, success, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		log.ID, log.Email, log.IPAddress, log.UserAgent, log.Success, log.Reason, log.CreatedAt,
	)
	return database.MapPostgresError(err)
}

// CountSince returns the number of rows for an email since the given time,
// regardless of reason.
func (r *PasswordResetLogRepository) CountSince(ctx context.Context, email string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM password_reset_logs
		WHERE email = $1 AND created_at >= $2
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, email, since).Scan(&count)
	return count, err
}

// CountByReasonsSince returns the number of rows for an email since the given
// time whose reason is in the supplied set.
func (r *PasswordResetLogRepository) CountByReasonsSince(ctx context.Context, email string, reasons []string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM password_reset_logs
		WHERE email = $1 AND reason = ANY($2) AND created_at >= $3
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, email, reasons, since).Scan(&count)
	return count, err
}

// DeleteOlderThan removes audit rows past the retention cutoff.
func (r *PasswordResetLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM password_reset_logs WHERE created_at < $1`

	result, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
