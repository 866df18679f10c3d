package permissions

// Operation classifies a call against one tenant's records
type Operation string

const (
	// OpRead covers the profile and every detail listing
	OpRead Operation = "read"
	// OpWrite covers household detail records: family members, documents
	// and meter readings
	OpWrite Operation = "write"
	// OpManage covers billing and room placement
	OpManage Operation = "manage"
)

// StaffRoles may act on any tenant of their own organization
func StaffRoles() []Role {
	return []Role{RoleOwner, RoleManager, RoleStaff}
}

// Subject is a caller as seen by an access decision
type Subject struct {
	UserID         string
	OrganizationID string
	Roles          []string
}

// TenantRecord is the part of a tenant an access decision looks at
type TenantRecord struct {
	OrganizationID string
	UserID         string
}

// HasAnyRole reports whether any of the required roles is assigned
func HasAnyRole(assigned []string, required ...Role) bool {
	for _, r := range required {
		if r != "" && HasRole(assigned, r) {
			return true
		}
	}
	return false
}

// CanAccessTenant decides whether s may perform op on t.
//
//   - super_admin may do anything
//   - staff roles may do anything inside their own organization
//   - a tenant may read and write its own record, but never manage it
//
// An empty organization or user id never matches.
func CanAccessTenant(s Subject, t TenantRecord, op Operation) bool {
	if HasRole(s.Roles, RoleSuperAdmin) {
		return true
	}
	if HasAnyRole(s.Roles, StaffRoles()...) && s.OrganizationID != "" && s.OrganizationID == t.OrganizationID {
		return true
	}
	if HasRole(s.Roles, RoleTenant) && s.UserID != "" && s.UserID == t.UserID {
		return op == OpRead || op == OpWrite
	}
	return false
}
