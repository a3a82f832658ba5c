package models

import "time"

// BlockedIP is a temporary network-level block written by the burst detector.
type BlockedIP struct {
	IP           string
	Reason       string
	BlockedUntil time.Time
}

// BlockReasonBurst is recorded when the one-second burst threshold is crossed.
const BlockReasonBurst = "ddos_detected"
