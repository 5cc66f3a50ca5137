package roles

import (
	"context"

	"github.com/atlas-hr/atlas-hr/internal/authz"
)

// Service exposes role lookups to handlers and to the permission resolver.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches one role.
func (s *Service) GetRole(ctx context.Context, id string) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// ListUserTypes returns the user-type lookup table.
func (s *Service) ListUserTypes(ctx context.Context) ([]UserType, error) {
	return s.repo.ListUserTypes(ctx)
}

// RoleGrant loads a role's live name and permission set for the resolver.
// Fetched fresh per request; a role edit is visible on the very next call.
func (s *Service) RoleGrant(ctx context.Context, roleID string) (authz.RoleGrant, error) {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return authz.RoleGrant{}, err
	}
	return authz.RoleGrant{Name: role.Name, Permissions: role.Permissions}, nil
}

var _ authz.RoleSource = (*Service)(nil)
