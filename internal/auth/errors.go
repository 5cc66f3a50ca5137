package auth

import "errors"

// Authentication failures. All surface as 401; the detail distinguishes
// token problems from a session that is no longer valid.
var (
	ErrMissingToken   = errors.New("missing token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token expired")
	ErrMalformedToken = errors.New("invalid token - missing user or company")
	ErrTokenRevoked   = errors.New("token revoked")
	ErrSessionInvalid = errors.New("invalid token - user not found, disabled, or company mismatch")
)
