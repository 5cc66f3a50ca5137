package accounts

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// CreateInput carries validated fields for a new account.
type CreateInput struct {
	EmpID        string
	FullName     string
	Username     string
	Email        string
	Password     string
	DepartmentID *string
	UserTypeID   *string
	RoleID       *string
}

// UpdateInput carries a partial account change. A nil pointer leaves the
// field untouched; Set* flags distinguish "clear" from "leave alone" for
// nullable references.
type UpdateInput struct {
	EmpID         *string
	FullName      *string
	Username      *string
	Email         *string
	Password      *string
	Status        *string
	DepartmentID  *string
	SetDepartment bool
	UserTypeID    *string
	SetUserType   bool
	RoleID        *string
	SetRole       bool
}

// Service implements account use cases on top of the repository.
type Service struct {
	repo       Repository
	bcryptCost int
}

// NewService constructs the account service.
func NewService(repo Repository, bcryptCost int) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, bcryptCost: bcryptCost}
}

// Create validates references, enforces per-company employee-id uniqueness
// and writes the account into the tenant.
func (s *Service) Create(ctx context.Context, tenant shared.Tenant, in CreateInput) (*Account, error) {
	empID := strings.TrimSpace(in.EmpID)
	taken, err := s.repo.EmpIDExists(ctx, tenant, empID, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmpIDTaken
	}
	if err := s.checkReferences(ctx, tenant, in.DepartmentID, in.UserTypeID, in.RoleID); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	row := NewAccountRow{
		ID:           uuid.NewString(),
		EmpID:        empID,
		FullName:     strings.TrimSpace(in.FullName),
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		DepartmentID: in.DepartmentID,
		UserTypeID:   in.UserTypeID,
		RoleID:       in.RoleID,
		Status:       StatusActive,
	}
	return s.repo.Insert(ctx, tenant, row)
}

// Get fetches one account by internal id.
func (s *Service) Get(ctx context.Context, tenant shared.Tenant, id string) (*Account, error) {
	return s.repo.GetByID(ctx, tenant, id)
}

// GetByEmpID fetches one account by business employee id.
func (s *Service) GetByEmpID(ctx context.Context, tenant shared.Tenant, empID string) (*Account, error) {
	return s.repo.GetByEmpID(ctx, tenant, empID)
}

// List returns matching accounts with pagination metadata.
func (s *Service) List(ctx context.Context, tenant shared.Tenant, filter ListFilter, page, perPage int) ([]Account, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage

	items, total, err := s.repo.List(ctx, tenant, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// Update applies a partial change after re-validating uniqueness and the
// moved references.
func (s *Service) Update(ctx context.Context, tenant shared.Tenant, id string, in UpdateInput) (*Account, error) {
	update := AccountUpdate{
		FullName:      in.FullName,
		Username:      in.Username,
		Email:         in.Email,
		Status:        in.Status,
		DepartmentID:  in.DepartmentID,
		SetDepartment: in.SetDepartment,
		UserTypeID:    in.UserTypeID,
		SetUserType:   in.SetUserType,
		RoleID:        in.RoleID,
		SetRole:       in.SetRole,
	}

	if in.EmpID != nil {
		empID := strings.TrimSpace(*in.EmpID)
		taken, err := s.repo.EmpIDExists(ctx, tenant, empID, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrEmpIDTaken
		}
		update.EmpID = &empID
	}

	var deptRef, typeRef, roleRef *string
	if in.SetDepartment {
		deptRef = in.DepartmentID
	}
	if in.SetUserType {
		typeRef = in.UserTypeID
	}
	if in.SetRole {
		roleRef = in.RoleID
	}
	if err := s.checkReferences(ctx, tenant, deptRef, typeRef, roleRef); err != nil {
		return nil, err
	}

	if in.Password != nil && *in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.bcryptCost)
		if err != nil {
			return nil, err
		}
		hashed := string(hash)
		update.PasswordHash = &hashed
	}

	return s.repo.Update(ctx, tenant, id, update)
}

// Disable marks the account disabled; its sessions stop binding on the
// next request because the live re-read requires active status.
func (s *Service) Disable(ctx context.Context, tenant shared.Tenant, id string) (*Account, error) {
	return s.repo.Disable(ctx, tenant, id)
}

// Delete removes the account permanently.
func (s *Service) Delete(ctx context.Context, tenant shared.Tenant, id string) (*Account, error) {
	return s.repo.Delete(ctx, tenant, id)
}

// CompanyOf resolves an account's company across tenants.
func (s *Service) CompanyOf(ctx context.Context, id string) (string, error) {
	return s.repo.CompanyOf(ctx, id)
}

func (s *Service) checkReferences(ctx context.Context, tenant shared.Tenant, deptID, userTypeID, roleID *string) error {
	if deptID != nil && *deptID != "" {
		ok, err := s.repo.DepartmentExists(ctx, tenant, *deptID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDepartmentInvalid
		}
	}
	if userTypeID != nil && *userTypeID != "" {
		ok, err := s.repo.UserTypeExists(ctx, *userTypeID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUserTypeInvalid
		}
	}
	if roleID != nil && *roleID != "" {
		ok, err := s.repo.RoleExists(ctx, *roleID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRoleInvalid
		}
	}
	return nil
}
