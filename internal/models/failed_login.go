package models

import "time"

// Failed-login lockout tiers, keyed on cumulative attempts since the counter
// was last reset.
const (
	LockTier1Attempts = 5
	LockTier2Attempts = 10
	LockTier3Attempts = 20

	LockTier1Duration = 15 * time.Minute
	LockTier2Duration = 24 * time.Hour
	// LockTier3Duration is effectively permanent; the owning profile is also
	// forced to status locked when this tier is reached.
	LockTier3Duration = 100 * 365 * 24 * time.Hour
)

// LockedReasonTooManyFailures is written to the profile when the permanent
// tier is reached.
const LockedReasonTooManyFailures = "too_many_failed_logins"

// FailedLogin is the per-email failure counter. A row may exist for emails
// with no matching account; lockout applies before account lookup.
type FailedLogin struct {
	Email         string
	Attempts      int
	LastAttemptAt time.Time
	LockedUntil   *time.Time
}

// LockedAt reports whether the row is locked at t.
func (f *FailedLogin) LockedAt(t time.Time) bool {
	return f.LockedUntil != nil && f.LockedUntil.After(t)
}

// LockDurationForAttempts returns the lockout duration the given cumulative
// attempt count earns, and whether the permanent tier was reached.
func LockDurationForAttempts(attempts int) (time.Duration, bool) {
	switch {
	case attempts >= LockTier3Attempts:
		return LockTier3Duration, true
	case attempts >= LockTier2Attempts:
		return LockTier2Duration, false
	case attempts >= LockTier1Attempts:
		return LockTier1Duration, false
	default:
		return 0, false
	}
}
