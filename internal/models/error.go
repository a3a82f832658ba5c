package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrAccountSuspended = errors.New("account suspended")
	ErrAccountDeleted   = errors.New("account deactivated")
	ErrAccountLocked    = errors.New("account locked")
	ErrEmailNotVerified = errors.New("email address not verified")

	// Auth flow errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrOTPExpired         = errors.New("otp expired")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrRateLimited        = errors.New("rate limit exceeded")
)

// AccountLockedError carries the remaining lock duration alongside the
// ErrAccountLocked sentinel so handlers can render it in the 403 body.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("Account locked. Try again in %s.", FormatRetryAfter(e.RetryAfter))
}

func (e *AccountLockedError) Unwrap() error {
	return ErrAccountLocked
}

// RateLimitError carries a human-readable retry-after alongside the
// ErrRateLimited sentinel so handlers can render it in the 429 body.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Too many requests. Try again in %s.", FormatRetryAfter(e.RetryAfter))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// NewRateLimitError builds a RateLimitError with a templated message.
func NewRateLimitError(retryAfter time.Duration, format string, args ...any) *RateLimitError {
	return &RateLimitError{
		RetryAfter: retryAfter,
		Message:    fmt.Sprintf(format, args...),
	}
}

// FormatRetryAfter renders a duration as whole minutes (rounded up), matching
// the wording of client-facing lockout messages.
func FormatRetryAfter(d time.Duration) string {
	minutes := int((d + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
