package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-hr/atlas-hr/internal/shared"
)

type stubRoleSource struct {
	grants map[string]RoleGrant
	err    error
}

func (s *stubRoleSource) RoleGrant(ctx context.Context, roleID string) (RoleGrant, error) {
	if s.err != nil {
		return RoleGrant{}, s.err
	}
	grant, ok := s.grants[roleID]
	if !ok {
		return RoleGrant{}, shared.ErrNotFound
	}
	return grant, nil
}

func strPtr(s string) *string { return &s }

func principalWith(roleID string, deptID *string) *shared.Principal {
	return &shared.Principal{
		ID:           "u-1",
		EmpID:        "EMP001",
		RoleID:       strPtr(roleID),
		DepartmentID: deptID,
		RoleName:     "EMPLOYEE",
		CompCode:     "ACME",
	}
}

func fixedTarget(t *Target) TargetFetcher {
	return func(ctx context.Context) (*Target, error) { return t, nil }
}

func newResolver(grants map[string]RoleGrant) *Resolver {
	return NewResolver(&stubRoleSource{grants: grants})
}

func TestResolveSuperAdminBypass(t *testing.T) {
	r := newResolver(map[string]RoleGrant{
		"r-sa": {Name: "super_admin", Permissions: nil},
	})

	d, err := r.Resolve(context.Background(), Input{
		Principal: principalWith("r-sa", nil),
		Required:  []string{"accounts:delete"},
		Action:    ActionDelete,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectAllow, d.Effect)
	assert.Equal(t, FilterNone, d.Filter)
}

func TestResolveExactMatch(t *testing.T) {
	r := newResolver(map[string]RoleGrant{
		"r-admin": {Name: "ADMIN", Permissions: []string{"accounts:read", "accounts:create"}},
	})

	d, err := r.Resolve(context.Background(), Input{
		Principal: principalWith("r-admin", nil),
		Required:  []string{"accounts:read"},
		Action:    ActionList,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectAllow, d.Effect)
	assert.Equal(t, FilterNone, d.Filter)
}

func TestResolveOwnScopeDeniesList(t *testing.T) {
	r := newResolver(map[string]RoleGrant{
		"r-emp": {Name: "EMPLOYEE", Permissions: []string{"accounts:read_own"}},
	})

	d, err := r.Resolve(context.Background(), Input{
		Principal: principalWith("r-emp", nil),
		Required:  []string{"accounts:read"},
		Action:    ActionList,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectDeny, d.Effect)
	assert.Contains(t, d.Reason, "list")
}

func TestResolveOwnScopeSingleTarget(t *testing.T) {
	r := newResolver(map[string]RoleGrant{
		"r-emp": {Name: "EMPLOYEE", Permissions: []string{"accounts:read_own"}},
	})
	p := principalWith("r-emp", nil)

	own, err := r.Resolve(context.Background(), Input{
		Principal: p,
		Required:  []string{"accounts:read"},
		Action:    ActionRead,
		Target:    fixedTarget(&Target{ID: "u-1"}),
	})
	require.NoError(t, err)
	assert.Equal(t, EffectAllow, own.Effect)
	assert.Equal(t, FilterSelf, own.Filter)

	other, err := r.Resolve(context.Background(), Input{
		Principal: p,
		Required:  []string{"accounts:read"},
		Action:    ActionRead,
		Target:    fixedTarget(&Target{ID: "u-2"}),
	})
	require.NoError(t, err)
	assert.Equal(t, EffectDeny, other.Effect)
	assert.Contains(t, other.Reason, "your own")
}

func TestResolveOwnScopeMissingTargetIsNotFound(t *testing.T) {
	r := newResolver(map[string]RoleGrant{
		"r-emp": {Name: "EMPLOYEE", Permissions: []string{"accounts:read_own"}},
	})

	d, err := r.Resolve(context.Background(), Input{
		Principal: principalWith("r-emp", nil),
		Required:  []string{"accounts:read"},
		Action:    ActionRead,
		Target:    fixedTarget(nil),
	})
	require.NoError(t, err)
	assert.Equal(t, EffectNotFound, d.Effect, "missing target is not found, never deny")
}

func TestResolveDeptScopeCreate(t *testing.T) {
	r := newResolver(map[string]RoleGrant{
		"r-mgr": {Name: "MANAGER", Permissions: []string{"accounts:create:own-dept"}},
	})
	p := principalWith("r-mgr", strPtr("dept-1"))
	required := []string{"accounts:create", "accounts:create:own-dept"}

	sameDept, err := r.Resolve(context.Background(), Input{
		Principal:            p,
		Required:             required,
		Action:               ActionCreate,
		DeclaredDepartmentID: strPtr("dept-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, EffectAllow, sameDept.Effect)

	noDept, err := r.Resolve(context.Background(), Input{
		Principal: p,
		Required:  required,
		Action:    ActionCreate,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectAllow, noDept.Effect)

	otherDept, err := r.Resolve(context.Background(), Input{
		Principal:            p,
		Required:             required,
		Action:               ActionCreate,
		DeclaredDepartmentID: strPtr("dept-2"),
	})
	require.NoError(t, err)
	assert.Equal(t, EffectDeny, otherDept.Effect)
	assert.Contains(t, otherDept.Reason, "own department")
}

func TestResolveDeptScopeCreateWithoutOwnDepartment(t *testing.T) {
	// A manager with no department may still create accounts with no
	// department. Behavior carried over deliberately.
	r := newResolver(map[string]RoleGrant{
		"r-mgr": {Name: "MANAGER", Permissions: []string{"accounts:create:own-dept"}},
	})

	d, err := r.Resolve(context.Background(), Input{
		Principal: principalWith("r-mgr", nil),
		Required:  []string{"accounts:create", "accounts:create:own-dept"},
		Action:    ActionCreate,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectAllow, d.Effect)
}

func TestResolveDeptScopeListAllowsWithFilter(t *testing.T) {
	r := newResolver(map[string]RoleGrant{
		"r-mgr": {Name: "MANAGER", Permissions: []string{"accounts:read:own-dept"}},
	})

	d, err := r.Resolve(context.Background(), Input{
		Principal: principalWith("r-mgr", strPtr("dept-1")),
		Required:  []string{"accounts:read"},
		Action:    ActionList,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectAllow, d.Effect)
	assert.Equal(t, FilterDept, d.Filter, "service must apply the department predicate")
}

func TestResolveDeptScopeSingleTarget(t *testing.T) {
	r := newResolver(map[string]RoleGrant{
		"r-mgr": {Name: "MANAGER", Permissions: []string{"accounts:update:own-dept"}},
	})
	p := principalWith("r-mgr", strPtr("dept-1"))

	inside, err := r.Resolve(context.Background(), Input{
		Principal: p,
		Required:  []string{"accounts:update"},
		Action:    ActionUpdate,
		Target:    fixedTarget(&Target{ID: "u-9", DepartmentID: strPtr("dept-1")}),
	})
	require.NoError(t, err)
	assert.Equal(t, EffectAllow, inside.Effect)

	outside, err := r.Resolve(context.Background(), Input{
		Principal: p,
		Required:  []string{"accounts:update"},
		Action:    ActionUpdate,
		Target:    fixedTarget(&Target{ID: "u-9", DepartmentID: strPtr("dept-2")}),
	})
	require.NoError(t, err)
	assert.Equal(t, EffectDeny, outside.Effect)

	missing, err := r.Resolve(context.Background(), Input{
		Principal: p,
		Required:  []string{"accounts:update"},
		Action:    ActionUpdate,
		Target:    fixedTarget(nil),
	})
	require.NoError(t, err)
	assert.Equal(t, EffectNotFound, missing.Effect)
}

func TestResolveDepartmentMutationRequiresAdmin(t *testing.T) {
	r := newResolver(map[string]RoleGrant{
		"r-mgr":   {Name: "MANAGER", Permissions: []string{"departments:create"}},
		"r-admin": {Name: "ADMIN", Permissions: []string{"departments:create"}},
	})

	denied, err := r.Resolve(context.Background(), Input{
		Principal: principalWith("r-mgr", nil),
		Required:  []string{"departments:create"},
		Action:    ActionCreate,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectDeny, denied.Effect)
	assert.Contains(t, denied.Reason, "manage departments")

	allowed, err := r.Resolve(context.Background(), Input{
		Principal: principalWith("r-admin", nil),
		Required:  []string{"departments:create"},
		Action:    ActionCreate,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectAllow, allowed.Effect)
}

func TestResolveDepartmentTokensNeverWiden(t *testing.T) {
	r := newResolver(map[string]RoleGrant{
		"r-x": {Name: "AUDITOR", Permissions: []string{"departments:read:own-dept"}},
	})

	d, err := r.Resolve(context.Background(), Input{
		Principal: principalWith("r-x", strPtr("dept-1")),
		Required:  []string{"departments:read"},
		Action:    ActionList,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectDeny, d.Effect)
}

func TestResolveFallbackDeny(t *testing.T) {
	r := newResolver(map[string]RoleGrant{
		"r-emp": {Name: "EMPLOYEE", Permissions: []string{"accounts:read_own"}},
	})

	d, err := r.Resolve(context.Background(), Input{
		Principal: principalWith("r-emp", nil),
		Required:  []string{"accounts:delete"},
		Action:    ActionDelete,
		Target:    fixedTarget(&Target{ID: "u-1"}),
	})
	require.NoError(t, err)
	assert.Equal(t, EffectDeny, d.Effect)
	assert.Contains(t, d.Reason, "insufficient permissions")
}

func TestResolveRoleNotFoundDenies(t *testing.T) {
	r := newResolver(map[string]RoleGrant{})

	d, err := r.Resolve(context.Background(), Input{
		Principal: principalWith("r-gone", nil),
		Required:  []string{"accounts:read"},
		Action:    ActionList,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectDeny, d.Effect)
	assert.Contains(t, d.Reason, "role not found")
}

func TestResolveStorageErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewResolver(&stubRoleSource{err: boom})

	_, err := r.Resolve(context.Background(), Input{
		Principal: principalWith("r-1", nil),
		Required:  []string{"accounts:read"},
		Action:    ActionList,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom), "storage failures must never become deny")
}

func TestResolveTargetFetchErrorPropagates(t *testing.T) {
	boom := errors.New("query timeout")
	r := newResolver(map[string]RoleGrant{
		"r-emp": {Name: "EMPLOYEE", Permissions: []string{"accounts:read_own"}},
	})

	_, err := r.Resolve(context.Background(), Input{
		Principal: principalWith("r-emp", nil),
		Required:  []string{"accounts:read"},
		Action:    ActionRead,
		Target:    func(ctx context.Context) (*Target, error) { return nil, boom },
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestResolveMissingRole(t *testing.T) {
	r := newResolver(nil)
	p := &shared.Principal{ID: "u-1", CompCode: "ACME"}

	d, err := r.Resolve(context.Background(), Input{
		Principal: p,
		Required:  []string{"accounts:read"},
		Action:    ActionList,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectDeny, d.Effect)
}

func TestResolveUsesLiveRoleName(t *testing.T) {
	// The token may still claim EMPLOYEE, but the live role row decides.
	r := newResolver(map[string]RoleGrant{
		"r-1": {Name: "Super_Admin"},
	})
	p := principalWith("r-1", nil)
	p.RoleName = "EMPLOYEE"

	d, err := r.Resolve(context.Background(), Input{
		Principal: p,
		Required:  []string{"accounts:delete"},
		Action:    ActionDelete,
	})
	require.NoError(t, err)
	assert.Equal(t, EffectAllow, d.Effect)
	assert.Equal(t, shared.RoleSuperAdmin, p.RoleName)
}
