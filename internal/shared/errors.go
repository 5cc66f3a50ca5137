package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTenantRequired occurs when a write reaches the scoped query layer
	// without a concrete tenant context. Always a programming error.
	ErrTenantRequired = errors.New("tenant required")
)
