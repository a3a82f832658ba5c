package handlers

import (
	"errors"
	"net/http"

	"github.com/bidhaven/backend/internal/models"
	pkgauth "github.com/bidhaven/backend/pkg/auth"
	pkghttp "github.com/bidhaven/backend/pkg/http"
)

// writeServiceError maps service-layer errors to envelope responses. Typed
// lock and rate-limit errors carry their own client-facing message; sentinels
// map to fixed phrasings so internals never leak.
func writeServiceError(w http.ResponseWriter, err error) {
	var lockedErr *models.AccountLockedError
	if errors.As(err, &lockedErr) {
		pkghttp.WriteForbidden(w, lockedErr.Error())
		return
	}

	var rateErr *models.RateLimitError
	if errors.As(err, &rateErr) {
		pkghttp.WriteTooManyRequests(w, rateErr.Error())
		return
	}

	var pwErr *pkgauth.PasswordValidationError
	if errors.As(err, &pwErr) {
		pkghttp.WriteBadRequest(w, pwErr.Error())
		return
	}

	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteBadRequest(w, "Invalid email or password")
	case errors.Is(err, models.ErrTokenReuse):
		pkghttp.WriteUnauthorized(w, "Token reuse detected. Invalid or expired refresh token.")
	case errors.Is(err, models.ErrInvalidToken):
		pkghttp.WriteBadRequest(w, "Invalid or expired token")
	case errors.Is(err, models.ErrOTPExpired):
		pkghttp.WriteBadRequest(w, "OTP expired")
	case errors.Is(err, models.ErrInvalidOTP):
		pkghttp.WriteBadRequest(w, "Invalid OTP")
	case errors.Is(err, models.ErrAccountSuspended):
		pkghttp.WriteForbidden(w, "Account suspended. Please contact support.")
	case errors.Is(err, models.ErrAccountDeleted):
		pkghttp.WriteForbidden(w, "Account deactivated.")
	case errors.Is(err, models.ErrAccountLocked):
		pkghttp.WriteForbidden(w, "Account locked. Please contact support.")
	case errors.Is(err, models.ErrEmailNotVerified):
		pkghttp.WriteForbidden(w, "Please verify your email")
	case errors.Is(err, models.ErrRateLimited):
		pkghttp.WriteTooManyRequests(w, "Too many requests. Slow down.")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Access denied")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
