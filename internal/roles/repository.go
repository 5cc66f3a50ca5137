package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// Repository defines read access to the global roles and user_types tables.
// These tables carry no tenant column, so lookups run on the raw pool.
type Repository interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id string) (Role, error)
	ListUserTypes(ctx context.Context) ([]UserType, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListRoles returns all roles ordered by name.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, role_name, COALESCE(description, ''), permissions, created_at, updated_at FROM roles ORDER BY role_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Permissions, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRole fetches a role by id.
func (r *PGRepository) GetRole(ctx context.Context, id string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, role_name, COALESCE(description, ''), permissions, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.Permissions, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// ListUserTypes returns all user types ordered by name.
func (r *PGRepository) ListUserTypes(ctx context.Context) ([]UserType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, type_name FROM user_types ORDER BY type_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []UserType
	for rows.Next() {
		var ut UserType
		if err := rows.Scan(&ut.ID, &ut.TypeName); err != nil {
			return nil, err
		}
		types = append(types, ut)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return types, nil
}

var _ Repository = (*PGRepository)(nil)
