package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// Querier is the subset of pgx execution methods the scoped layer needs.
// *pgxpool.Pool and pgx.Tx both satisfy it, so repositories can run scoped
// statements inside or outside a transaction.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TenantDB wraps a Querier and injects the tenant-isolation predicate into
// every statement it runs. Centralizing the predicate here makes isolation a
// property of the query layer instead of each call site.
type TenantDB struct {
	q Querier
}

// NewTenantDB constructs a TenantDB over the given executor.
func NewTenantDB(q Querier) *TenantDB {
	return &TenantDB{q: q}
}

var (
	whereClauseRe = regexp.MustCompile(`(?i)\sWHERE\s`)
	tailClauseRe  = regexp.MustCompile(`(?i)\s+(ORDER|LIMIT|GROUP|HAVING|FOR)\s`)
)

// scope rewrites sql so that it only touches rows of the bound tenant. The
// predicate is conjoined to an existing WHERE, inserted before any trailing
// ORDER/LIMIT/GROUP/HAVING/FOR clause, or appended at the very end. argCount
// is the number of parameters already bound; the tenant code becomes the
// next placeholder and is never interpolated as literal text.
func scope(sql string, argCount int) string {
	s := strings.TrimSpace(sql)
	s = strings.TrimSpace(strings.TrimRight(s, ";"))
	cond := fmt.Sprintf("comp_code = $%d", argCount+1)

	if loc := whereClauseRe.FindStringIndex(s); loc != nil {
		return s[:loc[0]] + " WHERE " + cond + " AND " + s[loc[1]:]
	}
	if loc := tailClauseRe.FindStringIndex(s); loc != nil {
		return s[:loc[0]] + " WHERE " + cond + s[loc[0]:]
	}
	return s + " WHERE " + cond
}

// Query runs sql restricted to the tenant's rows. The all-tenants sentinel
// executes the statement unmodified.
func (t *TenantDB) Query(ctx context.Context, tenant shared.Tenant, sql string, args ...any) (pgx.Rows, error) {
	if tenant.All() {
		return t.q.Query(ctx, strings.TrimRight(strings.TrimSpace(sql), ";"), args...)
	}
	if tenant.IsZero() {
		return nil, shared.ErrTenantRequired
	}
	return t.q.Query(ctx, scope(sql, len(args)), append(args, tenant.Code())...)
}

// QueryRow is the single-row variant of Query.
func (t *TenantDB) QueryRow(ctx context.Context, tenant shared.Tenant, sql string, args ...any) (pgx.Row, error) {
	if tenant.All() {
		return t.q.QueryRow(ctx, strings.TrimRight(strings.TrimSpace(sql), ";"), args...), nil
	}
	if tenant.IsZero() {
		return nil, shared.ErrTenantRequired
	}
	return t.q.QueryRow(ctx, scope(sql, len(args)), append(args, tenant.Code())...), nil
}

// Exec runs a statement that returns no rows, restricted to the tenant.
func (t *TenantDB) Exec(ctx context.Context, tenant shared.Tenant, sql string, args ...any) (pgconn.CommandTag, error) {
	if tenant.All() {
		return t.q.Exec(ctx, strings.TrimRight(strings.TrimSpace(sql), ";"), args...)
	}
	if tenant.IsZero() {
		return pgconn.CommandTag{}, shared.ErrTenantRequired
	}
	return t.q.Exec(ctx, scope(sql, len(args)), append(args, tenant.Code())...)
}

// buildInsert assembles an INSERT that always carries the tenant column.
func buildInsert(table string, cols []string, returning string, argCount int) string {
	placeholders := make([]string, 0, argCount+1)
	for i := 1; i <= argCount+1; i++ {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i))
	}
	columns := strings.Join(append(append([]string{}, cols...), "comp_code"), ", ")
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, columns, strings.Join(placeholders, ", "))
	if returning != "" {
		stmt += " RETURNING " + returning
	}
	return stmt
}

// Insert writes the given columns plus the tenant code and returns the
// requested projection. Inserts always need a concrete tenant; the
// all-tenants sentinel is rejected along with the zero value.
func (t *TenantDB) Insert(ctx context.Context, tenant shared.Tenant, table string, cols []string, vals []any, returning string) (pgx.Row, error) {
	if tenant.All() || tenant.IsZero() {
		return nil, shared.ErrTenantRequired
	}
	if len(cols) != len(vals) {
		return nil, fmt.Errorf("platform/db: insert %s: %d columns with %d values", table, len(cols), len(vals))
	}
	stmt := buildInsert(table, cols, returning, len(vals))
	return t.q.QueryRow(ctx, stmt, append(vals, tenant.Code())...), nil
}
