package background

import (
	"context"
	"log/slog"
	"time"
)

const (
	// staleFailureAge is how long an unlocked failure counter may sit idle
	// before it is purged.
	staleFailureAge = 24 * time.Hour

	// logRetention is how long login and password reset logs are kept.
	logRetention = 90 * 24 * time.Hour
)

// SessionCleaner removes refresh sessions past their expiry.
type SessionCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// FailedLoginCleaner removes stale failure counters.
type FailedLoginCleaner interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// LogCleaner removes log rows older than a cutoff.
type LogCleaner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// BlockCleaner removes expired IP blocks.
type BlockCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupManager periodically removes expired sessions, stale failure
// counters, old security logs and lapsed IP blocks from the database
type CleanupManager struct {
	sessions     SessionCleaner
	failedLogins FailedLoginCleaner
	loginLogs    LogCleaner
	resetLogs    LogCleaner
	blockedIPs   BlockCleaner
	logger       *slog.Logger
	interval     time.Duration
	stopCh       chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	sessions SessionCleaner,
	failedLogins FailedLoginCleaner,
	loginLogs LogCleaner,
	resetLogs LogCleaner,
	blockedIPs BlockCleaner,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		sessions:     sessions,
		failedLogins: failedLogins,
		loginLogs:    loginLogs,
		resetLogs:    resetLogs,
		blockedIPs:   blockedIPs,
		logger:       logger,
		interval:     interval,
		stopCh:       make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := time.Now().UTC()

	cm.run(cleanupCtx, "expired sessions", func(ctx context.Context) (int64, error) {
		return cm.sessions.DeleteExpired(ctx)
	})
	cm.run(cleanupCtx, "stale failure counters", func(ctx context.Context) (int64, error) {
		return cm.failedLogins.DeleteStale(ctx, now.Add(-staleFailureAge))
	})
	cm.run(cleanupCtx, "old login logs", func(ctx context.Context) (int64, error) {
		return cm.loginLogs.DeleteOlderThan(ctx, now.Add(-logRetention))
	})
	cm.run(cleanupCtx, "old reset logs", func(ctx context.Context) (int64, error) {
		return cm.resetLogs.DeleteOlderThan(ctx, now.Add(-logRetention))
	})
	cm.run(cleanupCtx, "lapsed ip blocks", func(ctx context.Context) (int64, error) {
		return cm.blockedIPs.DeleteExpired(ctx)
	})
}

func (cm *CleanupManager) run(ctx context.Context, what string, fn func(ctx context.Context) (int64, error)) {
	rows, err := fn(ctx)
	if err != nil {
		cm.logger.Error("cleanup failed", slog.String("target", what), slog.Any("error", err))
		return
	}
	if rows > 0 {
		cm.logger.Info("cleanup completed", slog.String("target", what), slog.Int64("rows_deleted", rows))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
