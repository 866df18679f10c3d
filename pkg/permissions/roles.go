// Package permissions describes the app_role catalogue stored in user_roles
// and which tenant records each role may reach.
//
// Role hierarchy (highest first):
//   - super_admin - platform operator, the only role allowed to use the
//     database-management endpoint
//   - owner - property owner, scoped to an organization
//   - manager - property manager
//   - staff - maintenance and front-desk staff
//   - tenant - resident
package permissions

// Role is a value of the app_role enum
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleOwner      Role = "owner"
	RoleManager    Role = "manager"
	RoleStaff      Role = "staff"
	RoleTenant     Role = "tenant"
)

// RoleEnumName is the PostgreSQL type that stores roles
const RoleEnumName = "app_role"

// AllRoles lists every role in enum declaration order
func AllRoles() []Role {
	return []Role{RoleSuperAdmin, RoleOwner, RoleManager, RoleStaff, RoleTenant}
}

// RoleValues returns AllRoles as plain strings
func RoleValues() []string {
	roles := AllRoles()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// HasRole checks if the assigned roles include the required role.
// An empty requirement is always satisfied.
func HasRole(assigned []string, required Role) bool {
	if required == "" {
		return true
	}
	for _, r := range assigned {
		if Role(r) == required {
			return true
		}
	}
	return false
}
