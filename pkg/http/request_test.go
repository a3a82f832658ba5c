package http

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP_DirectConnection(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.5:51234"

	ip := ExtractClientIP(req, &IPConfig{})
	assert.Equal(t, "203.0.113.5", ip)
}

func TestExtractClientIP_ForwardedForIgnoredFromUntrustedPeer(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.5:51234"
	req.Header.Set("X-Forwarded-For", "198.51.100.9")

	ip := ExtractClientIP(req, &IPConfig{})
	assert.Equal(t, "203.0.113.5", ip)
}

func TestExtractClientIP_ForwardedForHonoredFromTrustedProxy(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.2:443"
	req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.2")

	config := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	ip := ExtractClientIP(req, config)
	assert.Equal(t, "198.51.100.9", ip)
}

func TestExtractClientIP_SkipsInvalidForwardedEntries(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.2:443"
	req.Header.Set("X-Forwarded-For", "not-an-ip, 198.51.100.9")

	config := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	ip := ExtractClientIP(req, config)
	assert.Equal(t, "198.51.100.9", ip)
}

func TestExtractClientIP_RealIPFallback(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.2:443"
	req.Header.Set("X-Real-IP", "198.51.100.9")

	config := &IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	ip := ExtractClientIP(req, config)
	assert.Equal(t, "198.51.100.9", ip)
}

func TestExtractClientIP_NilConfig(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.5:51234"
	req.Header.Set("X-Forwarded-For", "198.51.100.9")

	ip := ExtractClientIP(req, nil)
	assert.Equal(t, "203.0.113.5", ip)
}

func TestExtractClientIP_InvalidCIDRSkipped(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.2:443"
	req.Header.Set("X-Forwarded-For", "198.51.100.9")

	config := &IPConfig{TrustedProxies: []string{"bogus", "10.0.0.0/8"}}
	ip := ExtractClientIP(req, config)
	assert.Equal(t, "198.51.100.9", ip)
}
