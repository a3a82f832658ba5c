package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bidhaven/backend/internal/auth"
	"github.com/bidhaven/backend/internal/background"
	"github.com/bidhaven/backend/internal/cache"
	"github.com/bidhaven/backend/internal/config"
	"github.com/bidhaven/backend/internal/database"
	"github.com/bidhaven/backend/internal/handlers"
	middlewareCustom "github.com/bidhaven/backend/internal/middleware"
	"github.com/bidhaven/backend/internal/repositories"
	"github.com/bidhaven/backend/internal/routes"
	"github.com/bidhaven/backend/internal/services"
	pkghttp "github.com/bidhaven/backend/pkg/http"
	pkglogger "github.com/bidhaven/backend/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	profileRepo := repositories.NewProfileRepository(db)
	failedLoginRepo := repositories.NewFailedLoginRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	loginLogRepo := repositories.NewLoginLogRepository(db)
	resetLogRepo := repositories.NewPasswordResetLogRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	blockedIPRepo := repositories.NewBlockedIPRepository(db)

	// Initialize caches
	permCache := cache.NewTTL(cfg.Auth.PermissionCacheTTL, 1*time.Minute)
	defer permCache.Stop()
	burstCounters := cache.NewTTL(1*time.Second, 10*time.Second)
	defer burstCounters.Stop()

	// Initialize token manager and audit logging
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	auditLogger := pkglogger.NewAuditLogger(logger)

	// AWS SES email service
	emailService, err := services.NewAWSSESEmailService(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Server.FrontendURL,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	lockoutService := services.NewLockoutService(failedLoginRepo, profileRepo, logger, auditLogger)
	sessionService := services.NewSessionService(sessionRepo, logger, auditLogger, cfg.Auth.SessionTTL)
	mfaService := services.NewMFAService(profileRepo, sessionService, emailService, logger, auditLogger, cfg.Auth.OTPExpiry)
	resetLimiterService := services.NewResetLimiterService(resetLogRepo, profileRepo, logger, auditLogger)
	authService := services.NewAuthService(
		profileRepo,
		roleRepo,
		loginLogRepo,
		lockoutService,
		sessionService,
		mfaService,
		resetLimiterService,
		tokenManager,
		emailService,
		logger,
		auditLogger,
		cfg.Auth.VerificationExpiry,
		cfg.Auth.ResetExpiry,
	)
	userService := services.NewUserService(profileRepo, sessionService, logger)
	adminService := services.NewAdminService(db, profileRepo, roleRepo, sessionRepo, loginLogRepo, failedLoginRepo, logger, auditLogger)
	permissionService := services.NewPermissionService(roleRepo, permCache, logger, cfg.Auth.PermissionTimeout)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, ipConfig)
	userHandler := handlers.NewUserHandler(userService, authService)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Network-level IP guard
	ipGuard := middlewareCustom.NewIPGuard(blockedIPRepo, burstCounters, ipConfig, logger)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(
		sessionRepo,
		failedLoginRepo,
		loginLogRepo,
		resetLogRepo,
		blockedIPRepo,
		logger,
		cfg.Auth.CleanupInterval,
	)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env, cfg.Server.AllowedOrigins)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(ipGuard.CheckBlocked)
	router.Use(ipGuard.DetectBurst)
	router.Use(middlewareCustom.RateLimit(cfg.Auth.GlobalRatePerWindow, 15*time.Minute))

	// Register routes
	routes.RegisterRoutes(router, cfg, authHandler, userHandler, adminHandler, tokenManager, permissionService)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
