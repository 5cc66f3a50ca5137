package accounts

import (
	"errors"
	"time"
)

// Account is an employee account row. Every account belongs to exactly one
// company; the business employee id is unique within that company.
type Account struct {
	ID           string
	EmpID        string
	FullName     string
	Username     string
	Email        string
	DepartmentID *string
	UserTypeID   *string
	RoleID       *string
	Status       string
	CompCode     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Account statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

var (
	// ErrNotFound indicates the account does not exist within the tenant.
	ErrNotFound = errors.New("accounts: not found")
	// ErrEmpIDTaken indicates the employee id is already used in the tenant.
	ErrEmpIDTaken = errors.New("accounts: employee id already exists")
	// ErrDepartmentInvalid indicates the referenced department does not
	// exist in the target company.
	ErrDepartmentInvalid = errors.New("accounts: department does not exist in the selected company")
	// ErrRoleInvalid indicates the referenced role does not exist.
	ErrRoleInvalid = errors.New("accounts: role not found")
	// ErrUserTypeInvalid indicates the referenced user type does not exist.
	ErrUserTypeInvalid = errors.New("accounts: user type not found")
)

// NewAccountRow carries the full column set for an insert.
type NewAccountRow struct {
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
}

// AccountUpdate is a partial update. Pointer fields are skipped when nil;
// the Set* flags allow nullable references to be cleared explicitly.
type AccountUpdate struct {
	EmpID         *string
	FullName      *string
	Username      *string
	Email         *string
	PasswordHash  *string
	Status        *string
	DepartmentID  *string
	SetDepartment bool
	UserTypeID    *string
	SetUserType   bool
	RoleID        *string
	SetRole       bool
}

// IsEmpty reports whether the update changes nothing.
func (u AccountUpdate) IsEmpty() bool {
	return u.EmpID == nil && u.FullName == nil && u.Username == nil && u.Email == nil &&
		u.PasswordHash == nil && u.Status == nil && !u.SetDepartment && !u.SetUserType && !u.SetRole
}

// ListFilter narrows a collection read. EmpID is used by the self scope,
// DepartmentID doubles as the department-scope predicate.
type ListFilter struct {
	DepartmentID string
	UserTypeID   string
	Status       string
	Search       string
	EmpID        string
	Limit        int
	Offset       int
}
