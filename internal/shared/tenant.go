package shared

// Tenant is the per-request tenant context consumed by the scoped query
// layer. The all-tenants sentinel disables isolation entirely and is
// reachable only for SUPER_ADMIN; the zero value is invalid and rejected
// by any write path.
type Tenant struct {
	code string
	all  bool
}

// AllTenants returns the sentinel that disables tenant isolation.
func AllTenants() Tenant {
	return Tenant{all: true}
}

// TenantFor returns a tenant context bound to the given company code.
func TenantFor(code string) Tenant {
	return Tenant{code: NormalizeCompCode(code)}
}

// All reports whether isolation is disabled.
func (t Tenant) All() bool {
	return t.all
}

// Code returns the bound company code. Empty for the all-tenants sentinel.
func (t Tenant) Code() string {
	return t.code
}

// IsZero reports whether the tenant context is the invalid zero value.
func (t Tenant) IsZero() bool {
	return !t.all && t.code == ""
}
