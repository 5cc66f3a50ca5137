package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	platformdb "github.com/atlas-hr/atlas-hr/internal/platform/db"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	// FindActiveByID re-reads the live account row for a bound session.
	// Disabled, deleted, or tenant-mismatched accounts return shared.ErrNotFound.
	FindActiveByID(ctx context.Context, tenant shared.Tenant, id string) (*Identity, error)
	// FindActiveByLogin resolves a username or email within a tenant.
	FindActiveByLogin(ctx context.Context, tenant shared.Tenant, login string) (*Identity, error)
}

const identityColumns = `
	a.id, a.emp_id, a.fullname, a.username, a.email, a.password_hash,
	a.department_id, a.user_type_id, a.role_id, a.status, a.comp_code,
	r.role_name, ut.type_name`

// PGRepository implements Repository using PostgreSQL through the
// tenant-scoped query layer.
type PGRepository struct {
	db *platformdb.TenantDB
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db *platformdb.TenantDB) *PGRepository {
	return &PGRepository{db: db}
}

func scanIdentity(row pgx.Row) (*Identity, error) {
	var ident Identity
	err := row.Scan(
		&ident.ID, &ident.EmpID, &ident.FullName, &ident.Username, &ident.Email, &ident.PasswordHash,
		&ident.DepartmentID, &ident.UserTypeID, &ident.RoleID, &ident.Status, &ident.CompCode,
		&ident.RoleName, &ident.UserTypeName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ident, nil
}

// FindActiveByID fetches an active account by internal id.
func (r *PGRepository) FindActiveByID(ctx context.Context, tenant shared.Tenant, id string) (*Identity, error) {
	row, err := r.db.QueryRow(ctx, tenant, `
		SELECT `+identityColumns+`
		FROM accounts a
		LEFT JOIN user_types ut ON a.user_type_id = ut.id
		LEFT JOIN roles r ON a.role_id = r.id
		WHERE a.id = $1 AND a.status = 'active'`, id)
	if err != nil {
		return nil, err
	}
	return scanIdentity(row)
}

// FindActiveByLogin fetches an active account by username or email.
func (r *PGRepository) FindActiveByLogin(ctx context.Context, tenant shared.Tenant, login string) (*Identity, error) {
	row, err := r.db.QueryRow(ctx, tenant, `
		SELECT `+identityColumns+`
		FROM accounts a
		LEFT JOIN user_types ut ON a.user_type_id = ut.id
		LEFT JOIN roles r ON a.role_id = r.id
		WHERE (a.username = $1 OR a.email = $1) AND a.status = 'active'`, login)
	if err != nil {
		return nil, err
	}
	return scanIdentity(row)
}

var _ Repository = (*PGRepository)(nil)
