package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bidhaven/backend/internal/cache"
	"github.com/bidhaven/backend/internal/models"
)

// RolePermissionRepository defines the interface for permission matrix lookups
type RolePermissionRepository interface {
	GetPermissionCodes(ctx context.Context, roleCode string) ([]string, error)
}

// PermissionService answers role/permission queries for non-auth resources.
// Unlike the auth core it fails OPEN: a slow or broken permission store must
// not take the marketplace down, and the grant is cached so the outage is
// not re-probed per request.
type PermissionService struct {
	repo    RolePermissionRepository
	cache   *cache.TTL
	logger  *slog.Logger
	timeout time.Duration
}

// NewPermissionService creates a new PermissionService
func NewPermissionService(repo RolePermissionRepository, permCache *cache.TTL, logger *slog.Logger, timeout time.Duration) *PermissionService {
	return &PermissionService{
		repo:    repo,
		cache:   permCache,
		logger:  logger,
		timeout: timeout,
	}
}

// HasPermission reports whether a role holds a permission. Admin panel roles
// short-circuit before any lookup.
func (s *PermissionService) HasPermission(ctx context.Context, roleCode, permissionCode string) bool {
	roleCode = strings.ToUpper(roleCode)
	if roleCode == "" {
		return false
	}

	if models.IsAdminPanelRole(roleCode) {
		return true
	}

	cacheKey := roleCode + ":" + permissionCode
	if cached, ok := s.cache.Get(cacheKey); ok {
		allowed, _ := cached.(bool)
		return allowed
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	codes, err := s.repo.GetPermissionCodes(lookupCtx, roleCode)
	if err != nil {
		s.logger.Warn("permission lookup failed, allowing access",
			slog.String("role_code", roleCode),
			slog.String("permission_code", permissionCode),
			slog.Any("error", err))
		s.cache.Set(cacheKey, true)
		return true
	}

	allowed := false
	for _, code := range codes {
		if code == permissionCode {
			allowed = true
			break
		}
	}

	s.cache.Set(cacheKey, allowed)
	return allowed
}
