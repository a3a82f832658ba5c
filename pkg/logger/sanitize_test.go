package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizedEmail(t *testing.T) {
	assert.Equal(t, "t***@*******.com", SanitizedEmail("test@example.com"))
	assert.Equal(t, "a@*******.com", SanitizedEmail("a@example.com"))
	assert.Equal(t, "[invalid-email]", SanitizedEmail("not-an-email"))
	assert.Equal(t, "[invalid-email]", SanitizedEmail("two@at@signs"))
}

func TestRedactedAttr(t *testing.T) {
	attr := RedactedAttr("token", "secret-value", "production")
	assert.Equal(t, "[REDACTED]", attr.Value.String())

	attr = RedactedAttr("token", "secret-value", "development")
	assert.Equal(t, "secret-value", attr.Value.String())
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("token=abc123"))
	assert.True(t, SanitizeQueryString("email=test%40example.com"))
	assert.True(t, SanitizeQueryString("OTP=123456"))
	assert.False(t, SanitizeQueryString("limit=50&offset=0"))
	assert.False(t, SanitizeQueryString(""))
}
