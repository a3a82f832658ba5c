package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/bidhaven/backend/internal/database"
	"github.com/bidhaven/backend/internal/models"
	"github.com/google/uuid"
)

// LoginLogRepository handles the append-only login audit trail.
type LoginLogRepository struct {
	db *database.DB
}

// NewLoginLogRepository creates a new LoginLogRepository
func NewLoginLogRepository(db *database.DB) *LoginLogRepository {
	return &LoginLogRepository{db: db}
}

// Record inserts a login attempt row.
func (r *LoginLogRepository) Record(ctx context.Context, log *models.LoginLog) error {
	log.ID = uuid.New().String()
	log.CreatedAt = time.Now()

	query := `
		INSERT INTO login_logs (id, user_id, email_attempted, success, reason, ip_address, user_agent, device, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		log.ID, log.UserID, log.EmailAttempted, log.Success, log.Reason,
		log.IPAddress, log.UserAgent, log.Device, log.CreatedAt,
	)
	return database.MapPostgresError(err)
}

// List returns login attempts newest first, optionally filtered by email.
func (r *LoginLogRepository) List(ctx context.Context, email string, limit, offset int) ([]*models.LoginLog, error) {
	query := `
		SELECT id, user_id, email_attempted, success, reason, ip_address, user_agent, device, created_at
		FROM login_logs
		WHERE ($1 = '' OR email_attempted = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, email, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query login logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.LoginLog, 0)
	for rows.Next() {
		var log models.LoginLog
		err := rows.Scan(
			&log.ID, &log.UserID, &log.EmailAttempted, &log.Success, &log.Reason,
			&log.IPAddress, &log.UserAgent, &log.Device, &log.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan login log: %w", err)
		}
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return logs, nil
}

// CountSince returns total, successful and failed attempt counts since the
// given time.
func (r *LoginLogRepository) CountSince(ctx context.Context, since time.Time) (total, succeeded, failed int, err error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE success),
			COUNT(*) FILTER (WHERE NOT success)
		FROM login_logs WHERE created_at >= $1
	`

	err = r.db.Pool.QueryRow(ctx, query, since).Scan(&total, &succeeded, &failed)
	return total, succeeded, failed, err
}

// TopIPsSince returns the most frequent source IPs since the given time.
func (r *LoginLogRepository) TopIPsSince(ctx context.Context, since time.Time, limit int) (map[string]int, error) {
	query := `
		SELECT ip_address, COUNT(*) FROM login_logs
		WHERE created_at >= $1 AND ip_address <> ''
		GROUP BY ip_address
		ORDER BY COUNT(*) DESC
		LIMIT $2
	`
	return r.countGroups(ctx, query, since, limit)
}

// TopDevicesSince returns the most frequent devices since the given time.
func (r *LoginLogRepository) TopDevicesSince(ctx context.Context, since time.Time, limit int) (map[string]int, error) {
	query := `
		SELECT device, COUNT(*) FROM login_logs
		WHERE created_at >= $1 AND device <> ''
		GROUP BY device
		ORDER BY COUNT(*) DESC
		LIMIT $2
	`
	return r.countGroups(ctx, query, since, limit)
}

func (r *LoginLogRepository) countGroups(ctx context.Context, query string, since time.Time, limit int) (map[string]int, error) {
	rows, err := r.db.Pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query login log groups: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("failed to scan group count: %w", err)
		}
		counts[key] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return counts, nil
}

// DeleteOlderThan removes audit rows past the retention cutoff.
func (r *LoginLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM login_logs WHERE created_at < $1`

	result, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
