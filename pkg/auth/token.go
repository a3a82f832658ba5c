package auth

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

const (
	// OpaqueTokenLength is the byte length of generated opaque tokens
	// (refresh tokens, verification tokens, MFA challenge tokens).
	OpaqueTokenLength = 32

	// OTPDigits is the length of generated one-time passcodes.
	OTPDigits = 6
)

// NewOpaqueToken generates a random hex-encoded token.
func NewOpaqueToken() (string, error) {
	bytes := make([]byte, OpaqueTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// NewNumericOTP generates a random 6-digit passcode as a string. The first
// digit is never zero so the code survives integer round-trips in clients.
func NewNumericOTP() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	n := binary.BigEndian.Uint64(buf[:]) % 900000
	return fmt.Sprintf("%06d", 100000+n), nil
}
