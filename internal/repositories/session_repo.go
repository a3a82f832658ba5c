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

type SessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSessionRow(scanner rowScanner) (*models.Session, error) {
	var s models.Session

	err := scanner.Scan(
		&s.ID, &s.UserID, &s.RefreshToken, &s.IPAddress, &s.UserAgent,
		&s.CreatedAt, &s.ExpiresAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &s, nil
}

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	session.ID = uuid.New().String()
	session.CreatedAt = time.Now()

	query := `
		INSERT INTO sessions (id, user_id, refresh_token, ip_address, user_agent, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, user_id, refresh_token, ip_address, user_agent, created_at, expires_at
	`

	return scanSessionRow(r.db.Pool.QueryRow(ctx, query,
		session.ID, session.UserID, session.RefreshToken,
		session.IPAddress, session.UserAgent, session.CreatedAt, session.ExpiresAt,
	))
}

func (r *SessionRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	query := `
		SELECT id, user_id, refresh_token, ip_address, user_agent, created_at, expires_at
		FROM sessions WHERE refresh_token = $1
	`

	return scanSessionRow(r.db.Pool.QueryRow(ctx, query, refreshToken))
}

// GetNewestByUserID returns the most recently created session for a user,
// or ErrNotFound when the user has none.
func (r *SessionRepository) GetNewestByUserID(ctx context.Context, userID string) (*models.Session, error) {
	query := `
		SELECT id, user_id, refresh_token, ip_address, user_agent, created_at, expires_at
		FROM sessions WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	return scanSessionRow(r.db.Pool.QueryRow(ctx, query, userID))
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, refresh_token, ip_address, user_agent, created_at, expires_at
		FROM sessions WHERE id = $1
	`

	return scanSessionRow(r.db.Pool.QueryRow(ctx, query, id))
}

// ListByUserID returns the user's non-expired sessions, newest first.
func (r *SessionRepository) ListByUserID(ctx context.Context, userID string) ([]*models.Session, error) {
	query := `
		SELECT id, user_id, refresh_token, ip_address, user_agent, created_at, expires_at
		FROM sessions WHERE user_id = $1 AND expires_at > CURRENT_TIMESTAMP
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return sessions, nil
}

// Rotate atomically inserts the replacement session and deletes the old row.
// The insert happens first so a crash cannot leave the user with no session.
func (r *SessionRepository) Rotate(ctx context.Context, oldID string, replacement *models.Session) (*models.Session, error) {
	replacement.ID = uuid.New().String()
	replacement.CreatedAt = time.Now()

	var created *models.Session
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		insert := `
			INSERT INTO sessions (id, user_id, refresh_token, ip_address, user_agent, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, user_id, refresh_token, ip_address, user_agent, created_at, expires_at
		`

		var err error
		created, err = scanSessionRow(tx.QueryRow(ctx, insert,
			replacement.ID, replacement.UserID, replacement.RefreshToken,
			replacement.IPAddress, replacement.UserAgent, replacement.CreatedAt, replacement.ExpiresAt,
		))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, oldID)
		return database.MapPostgresError(err)
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteByRefreshToken removes the session holding a refresh token. Missing
// rows are not an error; logout is idempotent.
func (r *SessionRepository) DeleteByRefreshToken(ctx context.Context, refreshToken string) error {
	query := `DELETE FROM sessions WHERE refresh_token = $1`
	_, err := r.db.Pool.Exec(ctx, query, refreshToken)
	return database.MapPostgresError(err)
}

func (r *SessionRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM sessions WHERE user_id = $1`

	result, err := r.db.Pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}

// DeleteByUserIDTx is DeleteByUserID inside a caller-owned transaction.
func (r *SessionRepository) DeleteByUserIDTx(ctx context.Context, tx pgx.Tx, userID string) (int64, error) {
	query := `DELETE FROM sessions WHERE user_id = $1`

	result, err := tx.Exec(ctx, query, userID)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}

// DeleteExpired removes sessions past their expiry.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP`

	result, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
