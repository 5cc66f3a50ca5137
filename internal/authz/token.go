package authz

import "strings"

// Scope is the access scope a permission token grants. Unscoped means
// unrestricted within the tenant; Own and OwnDept narrow access to the
// caller's own record or own department.
type Scope int

const (
	ScopeUnscoped Scope = iota
	ScopeOwn
	ScopeOwnDept
)

// Resources with scope-widening rules.
const (
	ResourceAccounts    = "accounts"
	ResourceDepartments = "departments"
)

// Permission is a parsed permission token. Tokens take the forms
// "resource:action", "resource:action_own", "resource:action:own" and
// "resource:action:own-dept". Anything else is kept as an opaque token
// that matches only by exact string equality, so unknown suffixes fail
// closed.
type Permission struct {
	Raw      string
	Resource string
	Action   string
	Scope    Scope
}

// ParsePermission splits a permission token into its parts.
func ParsePermission(raw string) Permission {
	parts := strings.Split(raw, ":")
	switch len(parts) {
	case 2:
		resource, action := parts[0], parts[1]
		if base, ok := strings.CutSuffix(action, "_own"); ok && base != "" {
			return Permission{Raw: raw, Resource: resource, Action: base, Scope: ScopeOwn}
		}
		return Permission{Raw: raw, Resource: resource, Action: action, Scope: ScopeUnscoped}
	case 3:
		switch parts[2] {
		case "own":
			return Permission{Raw: raw, Resource: parts[0], Action: parts[1], Scope: ScopeOwn}
		case "own-dept":
			return Permission{Raw: raw, Resource: parts[0], Action: parts[1], Scope: ScopeOwnDept}
		}
	}
	return Permission{Raw: raw, Scope: ScopeUnscoped}
}

type scopedKey struct {
	resource string
	action   string
	scope    Scope
}

// PermissionSet holds a role's granted tokens, parsed once. Exact matching
// always compares raw strings; scoped lookups only consider well-formed
// scoped tokens.
type PermissionSet struct {
	raw    map[string]struct{}
	scoped map[scopedKey]struct{}
}

// NewPermissionSet parses the stored token list for a role.
func NewPermissionSet(tokens []string) PermissionSet {
	set := PermissionSet{
		raw:    make(map[string]struct{}, len(tokens)),
		scoped: make(map[scopedKey]struct{}),
	}
	for _, raw := range tokens {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		set.raw[raw] = struct{}{}
		p := ParsePermission(raw)
		if p.Scope != ScopeUnscoped && p.Resource != "" && p.Action != "" {
			set.scoped[scopedKey{p.Resource, p.Action, p.Scope}] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set literally contains the token.
func (s PermissionSet) Has(raw string) bool {
	_, ok := s.raw[raw]
	return ok
}

// HasScoped reports whether the set grants the action at the given scope.
func (s PermissionSet) HasScoped(resource, action string, scope Scope) bool {
	_, ok := s.scoped[scopedKey{resource, action, scope}]
	return ok
}
