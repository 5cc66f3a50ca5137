package authz

import (
	"context"
	"errors"

	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// Action is the operation being authorized. List is the collection read;
// every other action targets a single resource.
type Action int

const (
	ActionCreate Action = iota
	ActionList
	ActionRead
	ActionUpdate
	ActionDisable
	ActionDelete
)

func (a Action) name() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionList, ActionRead:
		return "read"
	case ActionUpdate:
		return "update"
	case ActionDisable:
		return "disable"
	case ActionDelete:
		return "delete"
	}
	return ""
}

func (a Action) mutates() bool {
	return a != ActionList && a != ActionRead
}

// Effect is the terminal outcome of a resolution.
type Effect int

const (
	EffectDeny Effect = iota
	EffectAllow
	EffectNotFound
)

// Filter tells the resource service which data-layer predicate the grant
// carries. It is only meaningful on Allow.
type Filter int

const (
	FilterNone Filter = iota
	FilterSelf
	FilterDept
)

// Decision is the resolver's answer for one request.
type Decision struct {
	Effect Effect
	Filter Filter
	Reason string
}

func allow(f Filter) Decision     { return Decision{Effect: EffectAllow, Filter: f} }
func deny(reason string) Decision { return Decision{Effect: EffectDeny, Reason: reason} }
func notFound(reason string) Decision {
	return Decision{Effect: EffectNotFound, Reason: reason}
}

// Target is the subset of the requested resource the scope rules inspect.
type Target struct {
	ID           string
	DepartmentID *string
}

// TargetFetcher lazily loads the target resource. It returns (nil, nil)
// when the target does not exist; any error is a storage failure and
// propagates uninterpreted.
type TargetFetcher func(ctx context.Context) (*Target, error)

// RoleGrant is one role's live permission state.
type RoleGrant struct {
	Name        string
	Permissions []string
}

// RoleSource loads a role's grant fresh from storage. shared.ErrNotFound
// means the role row no longer exists.
type RoleSource interface {
	RoleGrant(ctx context.Context, roleID string) (RoleGrant, error)
}

// Input carries everything a single resolution needs.
type Input struct {
	Principal *shared.Principal
	// Required is the endpoint's OR set of acceptable tokens, tried in order.
	Required []string
	Action   Action
	// DeclaredDepartmentID is the department named in a create request body,
	// inspected by the own-dept create rule.
	DeclaredDepartmentID *string
	// Target lazily fetches the addressed resource; nil for collection
	// endpoints and creates.
	Target TargetFetcher
}

// Resolver decides, per request, whether access is permitted and at what
// scope. It holds no per-request state and reads role permissions fresh on
// every call so role edits are visible to the next request.
type Resolver struct {
	roles RoleSource
}

// NewResolver constructs a Resolver.
func NewResolver(roles RoleSource) *Resolver {
	return &Resolver{roles: roles}
}

// Resolve walks the widening ladder: elevated bypass, exact match, self
// scope, department scope, department-management exact match, then deny.
// The first satisfied rule wins; storage failures return an error and never
// turn into a deny.
func (r *Resolver) Resolve(ctx context.Context, in Input) (Decision, error) {
	p := in.Principal
	if p == nil {
		return deny("missing principal"), nil
	}
	if p.RoleID == nil || *p.RoleID == "" {
		return deny("missing role"), nil
	}

	grant, err := r.roles.RoleGrant(ctx, *p.RoleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return deny("role not found"), nil
		}
		return Decision{}, err
	}

	// The live role name wins over the token claim; a role rename or
	// reassignment takes effect without waiting for token expiry.
	roleName := shared.NormalizeRoleName(grant.Name, shared.RoleDefault)
	p.RoleName = roleName

	if roleName == shared.RoleSuperAdmin {
		return allow(FilterNone), nil
	}

	set := NewPermissionSet(grant.Permissions)

	// Department administration is all-or-nothing: mutations are reserved
	// for ADMIN regardless of which tokens the role carries.
	if in.Action.mutates() && requiresResource(in.Required, ResourceDepartments) {
		if roleName != shared.RoleAdmin {
			return deny("only SuperAdmin or Admin can manage departments"), nil
		}
	}

	var (
		target       *Target
		targetLoaded bool
	)
	fetchTarget := func() (*Target, error) {
		if !targetLoaded {
			if in.Target == nil {
				targetLoaded = true
				return nil, nil
			}
			t, err := in.Target(ctx)
			if err != nil {
				return nil, err
			}
			target = t
			targetLoaded = true
		}
		return target, nil
	}

	for _, raw := range in.Required {
		required := ParsePermission(raw)

		// 1. Exact permission match.
		if set.Has(raw) {
			return allow(FilterNone), nil
		}

		// 2. Self-scope widening, read/update family on accounts only.
		if required.Scope == ScopeUnscoped && required.Resource == ResourceAccounts &&
			(required.Action == "read" || required.Action == "update") &&
			set.HasScoped(ResourceAccounts, required.Action, ScopeOwn) {

			// Self scope never implies list visibility.
			if in.Action == ActionList {
				return deny("you cannot list all accounts"), nil
			}

			t, err := fetchTarget()
			if err != nil {
				return Decision{}, err
			}
			if t == nil {
				return notFound("account not found"), nil
			}
			if t.ID != p.ID {
				return deny("you can only access your own account"), nil
			}
			return allow(FilterSelf), nil
		}

		// 3. Department-scope widening on accounts.
		if required.Scope == ScopeUnscoped && required.Resource == ResourceAccounts &&
			deptScopedAction(required.Action) &&
			set.HasScoped(ResourceAccounts, required.Action, ScopeOwnDept) {

			if in.Action == ActionCreate {
				if in.DeclaredDepartmentID != nil && !sameDepartment(in.DeclaredDepartmentID, p.DepartmentID) {
					return deny("managers can only create in their own department"), nil
				}
				// A missing department in the request is allowed, even for a
				// caller without a department. Policy choice carried over
				// from the previous system.
				return allow(FilterDept), nil
			}

			// Collection reads pass here; the resource service applies the
			// department predicate at the data layer.
			if in.Action == ActionList {
				return allow(FilterDept), nil
			}

			t, err := fetchTarget()
			if err != nil {
				return Decision{}, err
			}
			if t == nil {
				return notFound("account not found"), nil
			}
			if !sameDepartment(t.DepartmentID, p.DepartmentID) {
				return deny("you can only manage accounts in your own department"), nil
			}
			return allow(FilterDept), nil
		}

		// 4. Department-management tokens match exactly or deny outright;
		// no widening applies.
		if required.Resource == ResourceDepartments {
			return deny("insufficient permission to manage departments"), nil
		}
	}

	return deny("insufficient permissions"), nil
}

func requiresResource(required []string, resource string) bool {
	for _, raw := range required {
		if ParsePermission(raw).Resource == resource {
			return true
		}
	}
	return false
}

func deptScopedAction(action string) bool {
	switch action {
	case "create", "read", "update", "disable", "delete":
		return true
	}
	return false
}

func sameDepartment(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
