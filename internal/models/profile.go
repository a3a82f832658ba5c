package models

import (
	"time"
)

// Account lifecycle statuses. Transitions are one-directional except for an
// explicit admin restore (locked/suspended/deleted -> active).
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusLocked    = "locked"
	StatusDeleted   = "deleted"
)

// User types derived from the role's panel membership.
const (
	UserTypeAdmin = "ADMIN_USER"
	UserTypeApp   = "APP_USER"
)

// Profile is the account credential record, one per user.
type Profile struct {
	ID            string
	Email         string
	PasswordHash  string
	FullName      string
	Phone         string
	AvatarURL     string
	RoleID        string
	RoleCode      string
	UserType      string
	Status        string
	LockedReason  string
	SuspendReason string

	EmailVerified         bool
	VerificationToken     *string
	VerificationExpiresAt *time.Time
	VerifiedAt            *time.Time

	MFAEnabled          bool
	MFAOTP              *string
	MFAOTPExpiresAt     *time.Time
	MFATempToken        *string
	MFAAttempts         int
	MFATempRefreshToken *string

	ResetToken          *string
	ResetTokenExpiresAt *time.Time
	ResetBlockUntil     *time.Time

	LastLoginAt *time.Time
	LastLoginIP *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasMFAChallenge reports whether an OTP challenge is currently issued.
func (p *Profile) HasMFAChallenge() bool {
	return p.MFATempToken != nil && p.MFAOTP != nil
}

// ResetBlocked reports whether a standing reset/OTP block is active at t.
func (p *Profile) ResetBlocked(t time.Time) bool {
	return p.ResetBlockUntil != nil && p.ResetBlockUntil.After(t)
}
