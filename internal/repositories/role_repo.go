package repositories

import (
	"context"

	"github.com/bidhaven/backend/internal/database"
	"github.com/bidhaven/backend/internal/models"
	"github.com/lib/pq"
)

type RoleRepository struct {
	db *database.DB
}

func NewRoleRepository(db *database.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) GetByCode(ctx context.Context, code string) (*models.Role, error) {
	query := `SELECT id, role_code, name, type FROM roles WHERE role_code = $1`

	var role models.Role
	err := r.db.Pool.QueryRow(ctx, query, code).Scan(&role.ID, &role.RoleCode, &role.Name, &role.Type)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &role, nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id string) (*models.Role, error) {
	query := `SELECT id, role_code, name, type FROM roles WHERE id = $1`

	var role models.Role
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&role.ID, &role.RoleCode, &role.Name, &role.Type)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &role, nil
}

// GetPermissionCodes returns the permission codes granted to a role.
func (r *RoleRepository) GetPermissionCodes(ctx context.Context, roleCode string) ([]string, error) {
	query := `SELECT permission_codes FROM role_permissions WHERE role_code = $1`

	var codes []string
	err := r.db.Pool.QueryRow(ctx, query, roleCode).Scan(pq.Array(&codes))
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return codes, nil
}
