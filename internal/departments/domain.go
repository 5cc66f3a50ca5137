package departments

import (
	"errors"
	"time"
)

// Department is an organizational unit within one company.
type Department struct {
	ID          string
	Name        string
	Description string
	Status      string
	CompCode    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Department statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var (
	// ErrNotFound indicates the department does not exist within the tenant.
	ErrNotFound = errors.New("departments: not found")
	// ErrNameTaken indicates a department with that name already exists in
	// the company.
	ErrNameTaken = errors.New("departments: name already exists")
	// ErrBadStatus indicates an unknown status value.
	ErrBadStatus = errors.New("departments: status must be active or inactive")
)

// DepartmentUpdate is a partial update; nil fields are left untouched.
type DepartmentUpdate struct {
	Name        *string
	Description *string
	Status      *string
}

// IsEmpty reports whether the update changes nothing.
func (u DepartmentUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Status == nil
}
