package repositories

import (
	"context"
	"time"

	"github.com/bidhaven/backend/internal/database"
	"github.com/bidhaven/backend/internal/models"
	"github.com/jackc/pgx/v5"
)

// FailedLoginRepository handles database operations for the per-email
// failure counter.
type FailedLoginRepository struct {
	db *database.DB
}

// NewFailedLoginRepository creates a new FailedLoginRepository
func NewFailedLoginRepository(db *database.DB) *FailedLoginRepository {
	return &FailedLoginRepository{db: db}
}

// Get returns the counter row for an email, or nil when none exists.
func (r *FailedLoginRepository) Get(ctx context.Context, email string) (*models.FailedLogin, error) {
	query := `
		SELECT email, attempts, last_attempt_at, locked_until
		FROM failed_logins WHERE email = $1
	`

	var fl models.FailedLogin
	err := r.db.Pool.QueryRow(ctx, query, email).Scan(
		&fl.Email, &fl.Attempts, &fl.LastAttemptAt, &fl.LockedUntil,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &fl, nil
}

// Upsert inserts or replaces the counter row for an email.
func (r *FailedLoginRepository) Upsert(ctx context.Context, fl *models.FailedLogin) error {
	query := `
		INSERT INTO failed_logins (email, attempts, last_attempt_at, locked_until)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			attempts = EXCLUDED.attempts,
			last_attempt_at = EXCLUDED.last_attempt_at,
			locked_until = EXCLUDED.locked_until
	`

	_, err := r.db.Pool.Exec(ctx, query, fl.Email, fl.Attempts, fl.LastAttemptAt, fl.LockedUntil)
	return database.MapPostgresError(err)
}

// Delete removes the counter row for an email. Missing rows are not an error.
func (r *FailedLoginRepository) Delete(ctx context.Context, email string) error {
	query := `DELETE FROM failed_logins WHERE email = $1`
	_, err := r.db.Pool.Exec(ctx, query, email)
	return database.MapPostgresError(err)
}

// DeleteStale removes unlocked counter rows whose last attempt is older than
// the cutoff.
func (r *FailedLoginRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM failed_logins
		WHERE last_attempt_at < $1 AND (locked_until IS NULL OR locked_until <= CURRENT_TIMESTAMP)
	`

	result, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
