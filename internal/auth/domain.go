package auth

import "time"

// Identity is the live account row the binder and login flow read, joined
// with the global role and user-type lookups.
type Identity struct {
	ID           string
	EmpID        string
	FullName     string
	Username     string
	Email        string
	PasswordHash string
	DepartmentID *string
	UserTypeID   *string
	RoleID       *string
	Status       string
	CompCode     string
	RoleName     *string
	UserTypeName *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
