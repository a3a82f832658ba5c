package integration

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	db, err := SetupTestDatabase(ctx)
	if err != nil {
		// No Docker available, skip the suite.
		os.Exit(0)
	}
	testDB = db

	code := m.Run()

	testDB.Teardown(ctx)
	os.Exit(code)
}

func newServer(t *testing.T) *TestServer {
	t.Helper()
	require.NoError(t, testDB.CleanupTables(context.Background()))
	ts := NewTestServer(testDB.DB)
	t.Cleanup(ts.Close)
	return ts
}

func TestSignupLoginRefreshLogout(t *testing.T) {
	ts := newServer(t)
	email, password := TestAccount("flow")

	resp, err := ts.Request("POST", "/auth/signup", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	accessToken, refreshToken, _, _, err := ExtractAuthFromResponse(resp)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)
	require.NotEmpty(t, refreshToken)

	resp, err = ts.Request("POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	accessToken, refreshToken, _, mfaRequired, err := ExtractAuthFromResponse(resp)
	require.NoError(t, err)
	assert.False(t, mfaRequired)
	require.NotEmpty(t, refreshToken)

	resp, err = ts.RequestWithAuth("GET", "/auth/me", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	envelope, err := ParseEnvelope(resp)
	require.NoError(t, err)
	profile := envelope.Data.(map[string]interface{})
	assert.Equal(t, email, profile["email"])

	resp, err = ts.Request("POST", "/auth/refresh-token", map[string]string{
		"refresh_token": refreshToken,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, rotatedToken, _, _, err := ExtractAuthFromResponse(resp)
	require.NoError(t, err)
	require.NotEmpty(t, rotatedToken)
	assert.NotEqual(t, refreshToken, rotatedToken)

	// The replaced token is dead; replaying it reads as reuse.
	resp, err = ts.Request("POST", "/auth/refresh-token", map[string]string{
		"refresh_token": refreshToken,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp, err = ts.Request("POST", "/auth/logout", map[string]string{
		"refresh_token": rotatedToken,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestLogoutEverywhere(t *testing.T) {
	ts := newServer(t)
	email, password := TestAccount("everywhere")

	resp, err := ts.Request("POST", "/auth/signup", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Two logins from "different devices" leave two live sessions.
	var refreshTokens []string
	var accessToken string
	for i := 0; i < 2; i++ {
		resp, err := ts.Request("POST", "/auth/login", map[string]string{
			"email":    email,
			"password": password,
		}, nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		token, refreshToken, _, _, err := ExtractAuthFromResponse(resp)
		require.NoError(t, err)
		accessToken = token
		refreshTokens = append(refreshTokens, refreshToken)
	}

	resp, err = ts.RequestWithAuth("GET", "/auth/sessions", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	envelope, err := ParseEnvelope(resp)
	require.NoError(t, err)
	sessions, ok := envelope.Data.([]interface{})
	require.True(t, ok)
	require.GreaterOrEqual(t, len(sessions), 2)

	resp, err = ts.RequestWithAuth("DELETE", "/auth/sessions", accessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Every refresh token is now dead.
	for _, refreshToken := range refreshTokens {
		resp, err := ts.Request("POST", "/auth/refresh-token", map[string]string{
			"refresh_token": refreshToken,
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	ts := newServer(t)
	email, password := TestAccount("lockout")

	_, err := SeedProfile(context.Background(), testDB.Pool, email, password, "BIDDER")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		resp, err := ts.Request("POST", "/auth/login", map[string]string{
			"email":    email,
			"password": "Wrong-Passw0rd!",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	}

	// The fifth failure sets a 15-minute lock; even the right password bounces.
	resp, err := ts.Request("POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	envelope, err := ParseEnvelope(resp)
	require.NoError(t, err)
	assert.Contains(t, envelope.Message, "minutes")
}

func TestPasswordResetFlow(t *testing.T) {
	ts := newServer(t)
	email, password := TestAccount("reset")

	_, err := SeedProfile(context.Background(), testDB.Pool, email, password, "SELLER")
	require.NoError(t, err)

	resp, err := ts.Request("POST", "/auth/forgot-password", map[string]string{
		"email": email,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	sent := ts.EmailService.LastEmail()
	require.NotNil(t, sent)
	require.Equal(t, "password_reset", sent.Kind)
	require.NotEmpty(t, sent.Token)

	newPassword := "Fresh-Passw0rd!"
	resp, err = ts.Request("POST", "/auth/reset-password", map[string]string{
		"token":        sent.Token,
		"new_password": newPassword,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = ts.Request("POST", "/auth/login", map[string]string{
		"email":    email,
		"password": newPassword,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The consumed token is single-use.
	resp, err = ts.Request("POST", "/auth/reset-password", map[string]string{
		"token":        sent.Token,
		"new_password": "Another-Passw0rd1!",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestMFALoginFlow(t *testing.T) {
	ts := newServer(t)
	email, password := TestAccount("mfa")

	_, err := SeedMFAProfile(context.Background(), testDB.Pool, email, password, "BIDDER")
	require.NoError(t, err)

	resp, err := ts.Request("POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	accessToken, _, tempToken, mfaRequired, err := ExtractAuthFromResponse(resp)
	require.NoError(t, err)
	require.True(t, mfaRequired)
	require.NotEmpty(t, tempToken)
	assert.Empty(t, accessToken)

	otp, storedTempToken, err := ReadMFAChallenge(context.Background(), testDB.Pool, email)
	require.NoError(t, err)
	require.Equal(t, tempToken, storedTempToken)
	require.Len(t, otp, 6)

	sent := ts.EmailService.LastEmail()
	require.NotNil(t, sent)
	assert.Equal(t, "otp", sent.Kind)
	assert.Equal(t, otp, sent.OTP)

	resp, err = ts.Request("POST", "/auth/verify-otp", map[string]string{
		"temp_token": tempToken,
		"otp":        otp,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	accessToken, refreshToken, _, _, err := ExtractAuthFromResponse(resp)
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	ts := newServer(t)
	email, password := TestAccount("viewer")

	_, err := SeedProfile(context.Background(), testDB.Pool, email, password, "VIEWER")
	require.NoError(t, err)

	resp, err := ts.Request("POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	accessToken, _, _, _, err := ExtractAuthFromResponse(resp)
	require.NoError(t, err)

	resp, err = ts.RequestWithAuth("GET", "/admin/users", accessToken, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminUserLifecycle(t *testing.T) {
	ts := newServer(t)
	adminEmail, adminPassword := TestAccount("admin")
	targetEmail, targetPassword := TestAccount("target")

	_, err := SeedProfile(context.Background(), testDB.Pool, adminEmail, adminPassword, "ADMIN")
	require.NoError(t, err)
	target, err := SeedProfile(context.Background(), testDB.Pool, targetEmail, targetPassword, "BIDDER")
	require.NoError(t, err)

	resp, err := ts.Request("POST", "/auth/login", map[string]string{
		"email":    adminEmail,
		"password": adminPassword,
	}, nil)
	require.NoError(t, err)
	accessToken, _, _, _, err := ExtractAuthFromResponse(resp)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)

	resp, err = ts.RequestWithAuth("POST", "/admin/users/"+target.ID+"/suspend", accessToken, map[string]string{
		"reason": "shill bidding",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Suspended accounts cannot log in.
	resp, err = ts.Request("POST", "/auth/login", map[string]string{
		"email":    targetEmail,
		"password": targetPassword,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp, err = ts.RequestWithAuth("POST", "/admin/users/"+target.ID+"/unsuspend", accessToken, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = ts.Request("POST", "/auth/login", map[string]string{
		"email":    targetEmail,
		"password": targetPassword,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
