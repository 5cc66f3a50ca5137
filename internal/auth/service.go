package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo    Repository
	issuer  *TokenIssuer
	revoked *RevocationList
}

// NewService constructs a new Service.
func NewService(repo Repository, issuer *TokenIssuer, revoked *RevocationList) *Service {
	return &Service{repo: repo, issuer: issuer, revoked: revoked}
}

// LoginResult carries the signed token and the public identity payload.
type LoginResult struct {
	Token    string
	Identity *Identity
	RoleName string
}

// Login validates credentials within a company and issues a session token.
// Lookup failures and bad passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, login, password, compCode string) (*LoginResult, error) {
	tenant := shared.TenantFor(compCode)
	if tenant.IsZero() {
		return nil, shared.ErrInvalidCredentials
	}

	ident, err := s.repo.FindActiveByLogin(ctx, tenant, login)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}

	roleName := shared.RoleDefault
	if ident.RoleName != nil {
		roleName = shared.NormalizeRoleName(*ident.RoleName, shared.RoleDefault)
	}

	token, err := s.issuer.Issue(ident, roleName)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Identity: ident, RoleName: roleName}, nil
}

// Logout revokes the given token id for the remainder of its lifetime.
func (s *Service) Logout(ctx context.Context, jti string, expires time.Time) error {
	return s.revoked.Revoke(ctx, jti, expires)
}
