package departments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	platformdb "github.com/atlas-hr/atlas-hr/internal/platform/db"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// Repository defines persistence operations for departments.
type Repository interface {
	Insert(ctx context.Context, tenant shared.Tenant, dept Department) (*Department, error)
	GetByID(ctx context.Context, tenant shared.Tenant, id string) (*Department, error)
	List(ctx context.Context, tenant shared.Tenant, status string) ([]Department, error)
	Update(ctx context.Context, tenant shared.Tenant, id string, update DepartmentUpdate) (*Department, error)
	Delete(ctx context.Context, tenant shared.Tenant, id string) (*Department, error)
	// CompanyOf resolves a department's company across all tenants.
	CompanyOf(ctx context.Context, id string) (string, error)
}

const departmentColumns = "department_id, department_name, description, status, comp_code, created_at, updated_at"

const uniqueViolation = "23505"

// PGRepository implements Repository using PostgreSQL through the scoped
// query layer.
type PGRepository struct {
	db   *platformdb.TenantDB
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(db *platformdb.TenantDB, pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: db, pool: pool}
}

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.Status, &d.CompCode, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrNameTaken
	}
	return err
}

// Insert writes a new department within the tenant.
func (r *PGRepository) Insert(ctx context.Context, tenant shared.Tenant, dept Department) (*Department, error) {
	cols := []string{"department_id", "department_name", "description", "status"}
	vals := []any{dept.ID, dept.Name, dept.Description, dept.Status}

	row, err := r.db.Insert(ctx, tenant, "departments", cols, vals, departmentColumns)
	if err != nil {
		return nil, err
	}
	out, err := scanDepartment(row)
	if err != nil {
		return nil, mapUnique(err)
	}
	return out, nil
}

// GetByID fetches one department within the tenant.
func (r *PGRepository) GetByID(ctx context.Context, tenant shared.Tenant, id string) (*Department, error) {
	row, err := r.db.QueryRow(ctx, tenant, "SELECT "+departmentColumns+" FROM departments WHERE department_id = $1", id)
	if err != nil {
		return nil, err
	}
	return scanDepartment(row)
}

// List returns departments ordered by name.
func (r *PGRepository) List(ctx context.Context, tenant shared.Tenant, status string) ([]Department, error) {
	query := "SELECT " + departmentColumns + " FROM departments"
	var params []any
	if status != "" {
		query += " WHERE status = $1"
		params = append(params, status)
	}
	query += " ORDER BY department_name ASC"

	rows, err := r.db.Query(ctx, tenant, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Status, &d.CompCode, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies a partial change and returns the new row.
func (r *PGRepository) Update(ctx context.Context, tenant shared.Tenant, id string, update DepartmentUpdate) (*Department, error) {
	var (
		sets   []string
		params []any
	)
	set := func(col string, value any) {
		params = append(params, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(params)))
	}
	if update.Name != nil {
		set("department_name", *update.Name)
	}
	if update.Description != nil {
		set("description", *update.Description)
	}
	if update.Status != nil {
		set("status", *update.Status)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, tenant, id)
	}

	params = append(params, id)
	query := fmt.Sprintf("UPDATE departments SET %s, updated_at = NOW() WHERE department_id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(params), departmentColumns)

	row, err := r.db.QueryRow(ctx, tenant, query, params...)
	if err != nil {
		return nil, err
	}
	out, err := scanDepartment(row)
	if err != nil {
		return nil, mapUnique(err)
	}
	return out, nil
}

// Delete removes a department permanently.
func (r *PGRepository) Delete(ctx context.Context, tenant shared.Tenant, id string) (*Department, error) {
	row, err := r.db.QueryRow(ctx, tenant,
		"DELETE FROM departments WHERE department_id = $1 RETURNING "+departmentColumns, id)
	if err != nil {
		return nil, err
	}
	return scanDepartment(row)
}

// CompanyOf looks up which company a department belongs to, across tenants.
func (r *PGRepository) CompanyOf(ctx context.Context, id string) (string, error) {
	var compCode string
	err := r.pool.QueryRow(ctx, "SELECT comp_code FROM departments WHERE department_id = $1", id).Scan(&compCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return compCode, nil
}

var _ Repository = (*PGRepository)(nil)
