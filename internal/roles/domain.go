package roles

import "time"

// Role is a global, tenant-agnostic permission grouping. Roles are mutated
// through an administrative path outside this service; here they are
// read-only.
type Role struct {
	ID          string
	Name        string
	Description string
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserType is a global lookup classifying accounts.
type UserType struct {
	ID       string
	TypeName string
}
