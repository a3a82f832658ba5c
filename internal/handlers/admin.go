package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/bidhaven/backend/internal/auth"
	"github.com/bidhaven/backend/internal/models"
	"github.com/bidhaven/backend/internal/services"
	pkghttp "github.com/bidhaven/backend/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AdminServiceInterface defines the interface for admin operations
type AdminServiceInterface interface {
	ListUsers(ctx context.Context, limit, offset int) ([]*services.ProfileResponse, error)
	CreateUser(ctx context.Context, actorID, email, password, fullName, roleCode string) (*services.ProfileResponse, error)
	ChangeUserRole(ctx context.Context, actorID, userID, roleCode string) (*services.ProfileResponse, error)
	SuspendUser(ctx context.Context, actorID, userID, reason string) error
	UnsuspendUser(ctx context.Context, actorID, userID string) error
	LockUser(ctx context.Context, actorID, userID, reason string) error
	UnlockUser(ctx context.Context, actorID, userID string) error
	RestoreUser(ctx context.Context, actorID, userID string) error
	SoftDeleteUser(ctx context.Context, actorID, userID string) error
	GetLoginLogs(ctx context.Context, email string, limit, offset int) ([]*models.LoginLog, error)
	GetLoginStats(ctx context.Context) (*services.LoginStats, error)
	GetUserStats(ctx context.Context) (map[string]int, error)
}

// AdminHandler serves the admin panel's user management surface
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// AdminCreateUserRequest represents the request body for admin user creation
type AdminCreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"required,max=100"`
	RoleCode string `json:"role_code" validate:"required,max=20"`
}

// ChangeRoleRequest represents the request body for role reassignment
type ChangeRoleRequest struct {
	RoleCode string `json:"role_code" validate:"required,max=20"`
}

// StatusReasonRequest carries the optional reason for suspend/lock actions
type StatusReasonRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

// LoginLogResponse represents a login log row in HTTP responses
type LoginLogResponse struct {
	ID             string    `json:"id"`
	UserID         *string   `json:"user_id,omitempty"`
	EmailAttempted string    `json:"email_attempted"`
	Success        bool      `json:"success"`
	Reason         *string   `json:"reason,omitempty"`
	IPAddress      string    `json:"ip_address"`
	Device         string    `json:"device"`
	CreatedAt      time.Time `json:"created_at"`
}

func actorID(r *http.Request) (string, bool) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		return "", false
	}
	return claims.UserID, true
}

func queryInt(r *http.Request, key, fallback string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		raw = fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

// ListUsers returns profiles newest first
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), queryInt(r, "limit", "50"), queryInt(r, "offset", "0"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Users retrieved", users)
}

// CreateUser provisions an account with an explicit role
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req AdminCreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.CreateUser(r.Context(), actor, req.Email, req.Password, req.FullName, req.RoleCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteCreated(w, "User created successfully", user)
}

// ChangeRole reassigns a user's role
func (h *AdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.ChangeUserRole(r.Context(), actor, chi.URLParam(r, "id"), req.RoleCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Role updated", user)
}

// statusAction runs one of the reason-less lifecycle transitions
func (h *AdminHandler) statusAction(w http.ResponseWriter, r *http.Request, message string, fn func(ctx context.Context, actorID, userID string) error) {
	actor, ok := actorID(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := fn(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, message, nil)
}

// reasonAction runs one of the lifecycle transitions carrying a reason
func (h *AdminHandler) reasonAction(w http.ResponseWriter, r *http.Request, message string, fn func(ctx context.Context, actorID, userID, reason string) error) {
	actor, ok := actorID(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req StatusReasonRequest
	if r.Body != nil {
		// A missing or empty body means no reason was given.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := fn(r.Context(), actor, chi.URLParam(r, "id"), req.Reason); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, message, nil)
}

// SuspendUser suspends an account
func (h *AdminHandler) SuspendUser(w http.ResponseWriter, r *http.Request) {
	h.reasonAction(w, r, "User suspended", h.service.SuspendUser)
}

// UnsuspendUser reactivates a suspended account
func (h *AdminHandler) UnsuspendUser(w http.ResponseWriter, r *http.Request) {
	h.statusAction(w, r, "User unsuspended", h.service.UnsuspendUser)
}

// LockUser locks an account
func (h *AdminHandler) LockUser(w http.ResponseWriter, r *http.Request) {
	h.reasonAction(w, r, "User locked", h.service.LockUser)
}

// UnlockUser unlocks an account
func (h *AdminHandler) UnlockUser(w http.ResponseWriter, r *http.Request) {
	h.statusAction(w, r, "User unlocked", h.service.UnlockUser)
}

// RestoreUser reactivates a suspended, locked or deleted account
func (h *AdminHandler) RestoreUser(w http.ResponseWriter, r *http.Request) {
	h.statusAction(w, r, "User restored", h.service.RestoreUser)
}

// DeleteUser soft-deletes an account and purges its sessions
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	h.statusAction(w, r, "User deactivated", h.service.SoftDeleteUser)
}

// GetLoginLogs returns the login audit trail
func (h *AdminHandler) GetLoginLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.GetLoginLogs(r.Context(),
		r.URL.Query().Get("email"),
		queryInt(r, "limit", "50"),
		queryInt(r, "offset", "0"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	responses := make([]*LoginLogResponse, 0, len(logs))
	for _, log := range logs {
		responses = append(responses, &LoginLogResponse{
			ID:             log.ID,
			UserID:         log.UserID,
			EmailAttempted: log.EmailAttempted,
			Success:        log.Success,
			Reason:         log.Reason,
			IPAddress:      log.IPAddress,
			Device:         log.Device,
			CreatedAt:      log.CreatedAt,
		})
	}

	pkghttp.WriteSuccess(w, "Login logs retrieved", responses)
}

// GetLoginStats returns aggregate login activity
func (h *AdminHandler) GetLoginStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetLoginStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Login statistics retrieved", stats)
}

// GetUserStats returns profile counts per lifecycle status
func (h *AdminHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetUserStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "User statistics retrieved", stats)
}
