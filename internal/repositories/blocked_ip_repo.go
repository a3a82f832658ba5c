package repositories

import (
	"context"

	"github.com/bidhaven/backend/internal/database"
	"github.com/bidhaven/backend/internal/models"
	"github.com/jackc/pgx/v5"
)

// BlockedIPRepository handles temporary network-level blocks written by the
// burst detector.
type BlockedIPRepository struct {
	db *database.DB
}

// NewBlockedIPRepository creates a new BlockedIPRepository
func NewBlockedIPRepository(db *database.DB) *BlockedIPRepository {
	return &BlockedIPRepository{db: db}
}

// Upsert inserts or extends a block for an IP.
func (r *BlockedIPRepository) Upsert(ctx context.Context, block *models.BlockedIP) error {
	query := `
		INSERT INTO blocked_ips (ip, reason, blocked_until)
		VALUES ($1, $2, $3)
		ON CONFLICT (ip) DO UPDATE SET
			reason = EXCLUDED.reason,
			blocked_until = EXCLUDED.blocked_until
	`

	_, err := r.db.Pool.Exec(ctx, query, block.IP, block.Reason, block.BlockedUntil)
	return database.MapPostgresError(err)
}

// Get returns the block for an IP, or nil when none exists.
func (r *BlockedIPRepository) Get(ctx context.Context, ip string) (*models.BlockedIP, error) {
	query := `SELECT ip, reason, blocked_until FROM blocked_ips WHERE ip = $1`

	var block models.BlockedIP
	err := r.db.Pool.QueryRow(ctx, query, ip).Scan(&block.IP, &block.Reason, &block.BlockedUntil)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &block, nil
}

// DeleteExpired removes blocks past their end time.
func (r *BlockedIPRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM blocked_ips WHERE blocked_until <= CURRENT_TIMESTAMP`

	result, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
