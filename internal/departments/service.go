package departments

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// CreateInput carries validated fields for a new department.
type CreateInput struct {
	Name        string
	Description string
}

// Service implements department use cases.
type Service struct {
	repo Repository
}

// NewService constructs the department service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create writes a new active department into the tenant.
func (s *Service) Create(ctx context.Context, tenant shared.Tenant, in CreateInput) (*Department, error) {
	dept := Department{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Status:      StatusActive,
	}
	return s.repo.Insert(ctx, tenant, dept)
}

// Get fetches one department.
func (s *Service) Get(ctx context.Context, tenant shared.Tenant, id string) (*Department, error) {
	return s.repo.GetByID(ctx, tenant, id)
}

// List returns departments, optionally narrowed by status.
func (s *Service) List(ctx context.Context, tenant shared.Tenant, status string) ([]Department, error) {
	if status != "" && status != StatusActive && status != StatusInactive {
		return nil, ErrBadStatus
	}
	return s.repo.List(ctx, tenant, status)
}

// Update applies a partial change.
func (s *Service) Update(ctx context.Context, tenant shared.Tenant, id string, update DepartmentUpdate) (*Department, error) {
	if update.Status != nil && *update.Status != StatusActive && *update.Status != StatusInactive {
		return nil, ErrBadStatus
	}
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		update.Name = &trimmed
	}
	return s.repo.Update(ctx, tenant, id, update)
}

// UpdateStatus flips a department between active and inactive.
func (s *Service) UpdateStatus(ctx context.Context, tenant shared.Tenant, id, status string) (*Department, error) {
	if status != StatusActive && status != StatusInactive {
		return nil, ErrBadStatus
	}
	return s.repo.Update(ctx, tenant, id, DepartmentUpdate{Status: &status})
}

// Delete removes a department permanently.
func (s *Service) Delete(ctx context.Context, tenant shared.Tenant, id string) (*Department, error) {
	return s.repo.Delete(ctx, tenant, id)
}

// CompanyOf resolves a department's company across tenants.
func (s *Service) CompanyOf(ctx context.Context, id string) (string, error) {
	return s.repo.CompanyOf(ctx, id)
}
