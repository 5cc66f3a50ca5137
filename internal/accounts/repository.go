package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-hr/atlas-hr/internal/authz"
	platformdb "github.com/atlas-hr/atlas-hr/internal/platform/db"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// Repository defines persistence operations for accounts.
type Repository interface {
	Insert(ctx context.Context, tenant shared.Tenant, row NewAccountRow) (*Account, error)
	GetByID(ctx context.Context, tenant shared.Tenant, id string) (*Account, error)
	GetByEmpID(ctx context.Context, tenant shared.Tenant, empID string) (*Account, error)
	List(ctx context.Context, tenant shared.Tenant, filter ListFilter) ([]Account, int, error)
	Update(ctx context.Context, tenant shared.Tenant, id string, update AccountUpdate) (*Account, error)
	Disable(ctx context.Context, tenant shared.Tenant, id string) (*Account, error)
	Delete(ctx context.Context, tenant shared.Tenant, id string) (*Account, error)
	EmpIDExists(ctx context.Context, tenant shared.Tenant, empID, excludeID string) (bool, error)
	// CompanyOf resolves an account's company across all tenants. Reserved
	// for the elevated role's per-id tenant override.
	CompanyOf(ctx context.Context, id string) (string, error)
	RoleExists(ctx context.Context, id string) (bool, error)
	UserTypeExists(ctx context.Context, id string) (bool, error)
	DepartmentExists(ctx context.Context, tenant shared.Tenant, id string) (bool, error)
}

const accountColumns = "id, emp_id, fullname, username, email, department_id, user_type_id, role_id, status, created_at, updated_at, comp_code"

const uniqueViolation = "23505"

// PGRepository implements Repository using PostgreSQL. All tenant-scoped
// statements go through the scoped query layer; only the global lookup
// tables and the elevated company resolution touch the raw pool.
type PGRepository struct {
	db   *platformdb.TenantDB
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(db *platformdb.TenantDB, pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: db, pool: pool}
}

func scanAccount(row pgx.Row) (*Account, error) {
	var acc Account
	err := row.Scan(
		&acc.ID, &acc.EmpID, &acc.FullName, &acc.Username, &acc.Email,
		&acc.DepartmentID, &acc.UserTypeID, &acc.RoleID, &acc.Status,
		&acc.CreatedAt, &acc.UpdatedAt, &acc.CompCode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// Insert writes a new account within the tenant.
func (r *PGRepository) Insert(ctx context.Context, tenant shared.Tenant, row NewAccountRow) (*Account, error) {
	cols := []string{"id", "emp_id", "fullname", "username", "email", "password_hash", "department_id", "user_type_id", "role_id", "status"}
	vals := []any{row.ID, row.EmpID, row.FullName, row.Username, row.Email, row.PasswordHash, row.DepartmentID, row.UserTypeID, row.RoleID, row.Status}

	inserted, err := r.db.Insert(ctx, tenant, "accounts", cols, vals, accountColumns)
	if err != nil {
		return nil, err
	}
	acc, err := scanAccount(inserted)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrEmpIDTaken
		}
		return nil, err
	}
	return acc, nil
}

// GetByID fetches an account by internal id within the tenant.
func (r *PGRepository) GetByID(ctx context.Context, tenant shared.Tenant, id string) (*Account, error) {
	row, err := r.db.QueryRow(ctx, tenant, "SELECT "+accountColumns+" FROM accounts WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	return scanAccount(row)
}

// GetByEmpID fetches an account by business employee id within the tenant.
func (r *PGRepository) GetByEmpID(ctx context.Context, tenant shared.Tenant, empID string) (*Account, error) {
	row, err := r.db.QueryRow(ctx, tenant, "SELECT "+accountColumns+" FROM accounts WHERE emp_id = $1", empID)
	if err != nil {
		return nil, err
	}
	return scanAccount(row)
}

// List returns accounts matching the filter plus the total match count.
func (r *PGRepository) List(ctx context.Context, tenant shared.Tenant, filter ListFilter) ([]Account, int, error) {
	var (
		where  []string
		params []any
	)
	add := func(clause string, value any) {
		params = append(params, value)
		where = append(where, fmt.Sprintf(clause, len(params)))
	}
	if filter.DepartmentID != "" {
		add("department_id = $%d", filter.DepartmentID)
	}
	if filter.UserTypeID != "" {
		add("user_type_id = $%d", filter.UserTypeID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.EmpID != "" {
		add("emp_id = $%d", filter.EmpID)
	}
	if filter.Search != "" {
		params = append(params, "%"+filter.Search+"%")
		n := len(params)
		where = append(where, fmt.Sprintf("(fullname ILIKE $%d OR username ILIKE $%d OR email ILIKE $%d OR emp_id ILIKE $%d)", n, n, n, n))
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	countRow, err := r.db.QueryRow(ctx, tenant, "SELECT COUNT(*) FROM accounts"+whereSQL, params...)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	params = append(params, limit, filter.Offset)
	query := fmt.Sprintf("SELECT %s FROM accounts%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		accountColumns, whereSQL, len(params)-1, len(params))

	rows, err := r.db.Query(ctx, tenant, query, params...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var acc Account
		if err := rows.Scan(
			&acc.ID, &acc.EmpID, &acc.FullName, &acc.Username, &acc.Email,
			&acc.DepartmentID, &acc.UserTypeID, &acc.RoleID, &acc.Status,
			&acc.CreatedAt, &acc.UpdatedAt, &acc.CompCode,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update applies a partial update and returns the new row.
func (r *PGRepository) Update(ctx context.Context, tenant shared.Tenant, id string, update AccountUpdate) (*Account, error) {
	var (
		sets   []string
		params []any
	)
	set := func(col string, value any) {
		params = append(params, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(params)))
	}
	if update.EmpID != nil {
		set("emp_id", *update.EmpID)
	}
	if update.FullName != nil {
		set("fullname", *update.FullName)
	}
	if update.Username != nil {
		set("username", *update.Username)
	}
	if update.Email != nil {
		set("email", *update.Email)
	}
	if update.PasswordHash != nil {
		set("password_hash", *update.PasswordHash)
	}
	if update.Status != nil {
		set("status", *update.Status)
	}
	if update.SetDepartment {
		set("department_id", update.DepartmentID)
	}
	if update.SetUserType {
		set("user_type_id", update.UserTypeID)
	}
	if update.SetRole {
		set("role_id", update.RoleID)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, tenant, id)
	}

	params = append(params, id)
	query := fmt.Sprintf("UPDATE accounts SET %s, updated_at = NOW() WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(params), accountColumns)

	row, err := r.db.QueryRow(ctx, tenant, query, params...)
	if err != nil {
		return nil, err
	}
	acc, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrEmpIDTaken
		}
		return nil, err
	}
	return acc, nil
}

// Disable marks an account disabled without deleting it.
func (r *PGRepository) Disable(ctx context.Context, tenant shared.Tenant, id string) (*Account, error) {
	row, err := r.db.QueryRow(ctx, tenant,
		"UPDATE accounts SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING "+accountColumns,
		StatusDisabled, id)
	if err != nil {
		return nil, err
	}
	return scanAccount(row)
}

// Delete removes an account permanently.
func (r *PGRepository) Delete(ctx context.Context, tenant shared.Tenant, id string) (*Account, error) {
	row, err := r.db.QueryRow(ctx, tenant,
		"DELETE FROM accounts WHERE id = $1 RETURNING "+accountColumns, id)
	if err != nil {
		return nil, err
	}
	return scanAccount(row)
}

// EmpIDExists checks employee-id uniqueness within the tenant, optionally
// excluding one account (for updates).
func (r *PGRepository) EmpIDExists(ctx context.Context, tenant shared.Tenant, empID, excludeID string) (bool, error) {
	query := "SELECT 1 FROM accounts WHERE emp_id = $1"
	params := []any{empID}
	if excludeID != "" {
		query += " AND id != $2"
		params = append(params, excludeID)
	}
	rows, err := r.db.Query(ctx, tenant, query, params...)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	exists := rows.Next()
	if err := rows.Err(); err != nil {
		return false, err
	}
	return exists, nil
}

// CompanyOf looks up which company an account belongs to, across tenants.
func (r *PGRepository) CompanyOf(ctx context.Context, id string) (string, error) {
	var compCode string
	err := r.pool.QueryRow(ctx, "SELECT comp_code FROM accounts WHERE id = $1", id).Scan(&compCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return compCode, nil
}

// RoleExists checks the global roles table.
func (r *PGRepository) RoleExists(ctx context.Context, id string) (bool, error) {
	return r.globalExists(ctx, "SELECT 1 FROM roles WHERE id = $1", id)
}

// UserTypeExists checks the global user_types table.
func (r *PGRepository) UserTypeExists(ctx context.Context, id string) (bool, error) {
	return r.globalExists(ctx, "SELECT 1 FROM user_types WHERE id = $1", id)
}

func (r *PGRepository) globalExists(ctx context.Context, query, id string) (bool, error) {
	var one int
	err := r.pool.QueryRow(ctx, query, id).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DepartmentExists checks that a department exists in the target company.
func (r *PGRepository) DepartmentExists(ctx context.Context, tenant shared.Tenant, id string) (bool, error) {
	rows, err := r.db.Query(ctx, tenant, "SELECT 1 FROM departments WHERE department_id = $1", id)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	exists := rows.Next()
	if err := rows.Err(); err != nil {
		return false, err
	}
	return exists, nil
}

// FindTarget adapts account lookups for the permission resolver's lazy
// target fetch.
func (r *PGRepository) FindTarget(ctx context.Context, tenant shared.Tenant, id string) (*authz.Target, error) {
	acc, err := r.GetByID(ctx, tenant, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &authz.Target{ID: acc.ID, DepartmentID: acc.DepartmentID}, nil
}

// FindTargetByEmpID is FindTarget keyed by the business employee id.
func (r *PGRepository) FindTargetByEmpID(ctx context.Context, tenant shared.Tenant, empID string) (*authz.Target, error) {
	acc, err := r.GetByEmpID(ctx, tenant, empID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &authz.Target{ID: acc.ID, DepartmentID: acc.DepartmentID}, nil
}

var (
	_ Repository         = (*PGRepository)(nil)
	_ authz.TargetSource = (*PGRepository)(nil)
)
