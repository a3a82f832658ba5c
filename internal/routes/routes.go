package routes

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bidhaven/backend/internal/auth"
	"github.com/bidhaven/backend/internal/config"
	"github.com/bidhaven/backend/internal/handlers"
	"github.com/bidhaven/backend/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
	perms middleware.PermissionChecker,
) {
	loginLimit := middleware.RateLimit(cfg.Auth.LoginRatePerMinute, 1*time.Minute)
	resetLimit := middleware.RateLimit(cfg.Auth.ResetRatePerHour, 1*time.Hour)

	// Public routes - no authentication required
	router.With(loginLimit).Post("/auth/signup", authHandler.Signup)
	router.With(loginLimit).Post("/auth/login", authHandler.Login)
	router.With(loginLimit).Post("/auth/verify-otp", authHandler.VerifyOTP)
	router.Post("/auth/refresh-token", authHandler.Refresh)
	router.Post("/auth/logout", authHandler.Logout)
	router.With(resetLimit).Post("/auth/forgot-password", authHandler.ForgotPassword)
	router.With(resetLimit).Post("/auth/reset-password", authHandler.ResetPassword)
	router.Get("/auth/verify-email", authHandler.VerifyEmail)
	router.With(resetLimit).Post("/auth/resend-verification", authHandler.ResendVerification)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(tokenManager.Middleware)

		r.Get("/auth/me", userHandler.GetMe)
		r.Put("/auth/me", userHandler.UpdateProfile)
		r.Post("/auth/change-password", userHandler.ChangePassword)
		r.Post("/auth/toggle-mfa", userHandler.ToggleMFA)
		r.Get("/auth/sessions", userHandler.ListSessions)
		r.Delete("/auth/sessions", userHandler.DeleteAllSessions)
		r.Delete("/auth/sessions/{id}", userHandler.DeleteSession)

		// Admin panel routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdminPanel)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(perms, "users.manage"))
				r.Get("/admin/users", adminHandler.ListUsers)
				r.Post("/admin/users", adminHandler.CreateUser)
				r.Put("/admin/users/{id}/role", adminHandler.ChangeRole)
				r.Post("/admin/users/{id}/suspend", adminHandler.SuspendUser)
				r.Post("/admin/users/{id}/unsuspend", adminHandler.UnsuspendUser)
				r.Post("/admin/users/{id}/lock", adminHandler.LockUser)
				r.Post("/admin/users/{id}/unlock", adminHandler.UnlockUser)
				r.Post("/admin/users/{id}/restore", adminHandler.RestoreUser)
				r.Delete("/admin/users/{id}", adminHandler.DeleteUser)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequirePermission(perms, "logs.view"))
				r.Get("/admin/login-logs", adminHandler.GetLoginLogs)
				r.Get("/admin/login-stats", adminHandler.GetLoginStats)
				r.Get("/admin/user-stats", adminHandler.GetUserStats)
			})
		})
	})
}
