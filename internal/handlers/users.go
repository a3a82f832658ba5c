package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bidhaven/backend/internal/auth"
	"github.com/bidhaven/backend/internal/services"
	pkghttp "github.com/bidhaven/backend/pkg/http"
	"github.com/go-chi/chi/v5"
)

// UserServiceInterface defines the interface for profile and session access
type UserServiceInterface interface {
	GetMe(ctx context.Context, userID string) (*services.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID string, update services.ProfileUpdate) (*services.ProfileResponse, error)
	ListSessions(ctx context.Context, userID string) ([]*services.SessionResponse, error)
	RevokeSession(ctx context.Context, userID, sessionID string) error
	RevokeAllSessions(ctx context.Context, userID string) (int64, error)
}

// CredentialServiceInterface covers the self-service credential operations
type CredentialServiceInterface interface {
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	ToggleMFA(ctx context.Context, userID string, enable bool) error
}

// UserHandler serves the authenticated user's own account
type UserHandler struct {
	users       UserServiceInterface
	credentials CredentialServiceInterface
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserServiceInterface, credentials CredentialServiceInterface) *UserHandler {
	return &UserHandler{
		users:       users,
		credentials: credentials,
	}
}

// ChangePasswordRequest represents the request body for password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// ToggleMFARequest represents the request body for enabling/disabling MFA
type ToggleMFARequest struct {
	Enable *bool `json:"enable" validate:"required"`
}

// GetMe returns the caller's profile
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	profile, err := h.users.GetMe(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Profile retrieved", profile)
}

// UpdateProfile applies the caller's profile edits
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var update services.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	profile, err := h.users.UpdateProfile(r.Context(), claims.UserID, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Profile updated successfully", profile)
}

// ChangePassword verifies the current password and sets a new one
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.credentials.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Password updated successfully", nil)
}

// ToggleMFA enables or disables MFA for the caller
func (h *UserHandler) ToggleMFA(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ToggleMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if req.Enable == nil {
		pkghttp.WriteBadRequest(w, "enable must be true or false")
		return
	}

	if err := h.credentials.ToggleMFA(r.Context(), claims.UserID, *req.Enable); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "MFA updated", map[string]bool{"enabled": *req.Enable})
}

// ListSessions returns the caller's live sessions
func (h *UserHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	sessions, err := h.users.ListSessions(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Sessions retrieved", sessions)
}

// DeleteAllSessions signs the caller out everywhere
func (h *UserHandler) DeleteAllSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	revoked, err := h.users.RevokeAllSessions(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "All sessions deleted successfully", map[string]int64{"revoked": revoked})
}

// DeleteSession revokes one of the caller's sessions
func (h *UserHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		pkghttp.WriteBadRequest(w, "Session ID is required")
		return
	}

	if err := h.users.RevokeSession(r.Context(), claims.UserID, sessionID); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Session deleted successfully", nil)
}
