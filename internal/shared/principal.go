package shared

import "strings"

// Well-known role names. Roles are open-ended; only these two carry
// special meaning for authorization.
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"
	RoleDefault    = "EMPLOYEE"
)

// Principal is the resolved, request-scoped representation of the
// authenticated caller. It is built once per request by the identity
// binder and never persisted.
type Principal struct {
	ID           string
	EmpID        string
	FullName     string
	Username     string
	Email        string
	DepartmentID *string
	RoleID       *string
	UserTypeID   *string
	RoleName     string
	UserTypeName string
	CompCode     string
	Status       string
}

// IsSuperAdmin reports whether the principal holds the elevated
// cross-tenant role.
func (p Principal) IsSuperAdmin() bool {
	return p.RoleName == RoleSuperAdmin
}

// Tenant returns the tenant context for the principal. SUPER_ADMIN sees
// all companies; everyone else is locked to their own company code.
func (p Principal) Tenant() Tenant {
	if p.IsSuperAdmin() {
		return AllTenants()
	}
	return TenantFor(p.CompCode)
}

// NormalizeCompCode canonicalizes a company code for comparison and storage.
func NormalizeCompCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeRoleName canonicalizes a role or user-type name, falling back
// to the given default when empty.
func NormalizeRoleName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	return strings.ToUpper(name)
}
