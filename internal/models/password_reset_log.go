package models

import "time"

// Reason codes for password_reset_logs rows. The request flow ("forgot
// password") and the consume flow ("reset password" with a token) share the
// table; ConsumeFlowReasons is the exact set counted toward the consume-side
// limit so neither flow's entries ever count against the other.
const (
	ResetReasonEmailSent            = "email_sent"
	ResetReasonEmailNotFound        = "email_not_found"
	ResetReasonEmailSendFailed      = "email_send_failed"
	ResetReasonRateLimit            = "rate_limit"
	ResetReasonRateLimitConsume     = "rate_limit_reset_attempts"
	ResetReasonRateLimitConsumeDay  = "rate_limit_reset_attempts_daily"
	ResetReasonInvalidToken         = "invalid_token"
	ResetReasonResetSuccess         = "password_reset_success"
	ResetReasonUpdateFailed         = "password_update_failed"
)

// ConsumeFlowReasons are the reason codes metered by the consume-flow limiter.
var ConsumeFlowReasons = []string{
	ResetReasonInvalidToken,
	ResetReasonResetSuccess,
	ResetReasonUpdateFailed,
}

// PasswordResetLog is an append-only audit and rate-limit record. Rows are
// never mutated after insert.
type PasswordResetLog struct {
	ID        string
	Email     string
	IPAddress string
	UserAgent string
	Success   bool
	Reason    string
	CreatedAt time.Time
}
