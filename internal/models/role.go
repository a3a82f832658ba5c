package models

// Role is a row from the roles table.
type Role struct {
	ID       string
	RoleCode string
	Name     string
	Type     string
}

// DefaultRoleCode is assigned at signup when no role_code is supplied.
const DefaultRoleCode = "VIEWER"

// AdminPanelRoles are the role codes granted the admin surface. They
// short-circuit permission checks.
var AdminPanelRoles = []string{"SUPER", "ADMIN", "FIN", "MOD", "SUPPORT"}

// IsAdminPanelRole reports whether code belongs to the admin panel.
func IsAdminPanelRole(code string) bool {
	for _, r := range AdminPanelRoles {
		if r == code {
			return true
		}
	}
	return false
}

// UserTypeForRole maps a role code to its user type. Only SUPER and ADMIN
// create accounts of the admin user type at signup; the wider panel list is
// used for permission short-circuiting.
func UserTypeForRole(code string) string {
	if code == "SUPER" || code == "ADMIN" {
		return UserTypeAdmin
	}
	return UserTypeApp
}

// RolePermission is a row from the role_permissions matrix.
type RolePermission struct {
	RoleCode        string
	PermissionCodes []string
}
