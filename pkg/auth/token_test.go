package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpaqueToken(t *testing.T) {
	token, err := NewOpaqueToken()
	require.NoError(t, err)
	assert.Len(t, token, OpaqueTokenLength*2)

	other, err := NewOpaqueToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestNewNumericOTP(t *testing.T) {
	for i := 0; i < 100; i++ {
		otp, err := NewNumericOTP()
		require.NoError(t, err)
		assert.Len(t, otp, OTPDigits)
		assert.GreaterOrEqual(t, otp[0], byte('1'))
		assert.LessOrEqual(t, otp[0], byte('9'))
	}
}
