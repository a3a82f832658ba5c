package models

import "time"

// Login attempt reason codes.
const (
	LoginReasonWrongPassword = "wrong_password"
	LoginReasonInvalidEmail  = "invalid_email"
	LoginReasonLocked        = "account_locked"
	LoginReasonSuspended     = "account_suspended"
	LoginReasonDeleted       = "account_deleted"
	LoginReasonUnverified    = "email_not_verified"
)

// LoginLog is one row in the append-only login audit trail. Every attempt is
// recorded, success or failure, regardless of lock state.
type LoginLog struct {
	ID             string
	UserID         *string
	EmailAttempted string
	Success        bool
	Reason         *string
	IPAddress      string
	UserAgent      string
	Device         string
	CreatedAt      time.Time
}
