package models

import "time"

// SessionTTL is the fixed lifetime of a refresh-session row.
const SessionTTL = 30 * 24 * time.Hour

// Session is one row per live refresh token. Deleting the row invalidates the
// token immediately; rotation inserts the replacement before deleting the old
// row so there is never a gap.
type Session struct {
	ID           string
	UserID       string
	RefreshToken string
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Expired reports whether the session is past its expiry at t.
func (s *Session) Expired(t time.Time) bool {
	return !s.ExpiresAt.After(t)
}
