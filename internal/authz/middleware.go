package authz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// TargetSource loads the addressed account for scope checks. Lookups run
// under the caller's tenant scoping; shared.ErrNotFound maps to a missing
// target.
type TargetSource interface {
	FindTarget(ctx context.Context, tenant shared.Tenant, id string) (*Target, error)
	FindTargetByEmpID(ctx context.Context, tenant shared.Tenant, empID string) (*Target, error)
}

// DecisionObserver records resolution outcomes, typically for metrics.
type DecisionObserver interface {
	ObserveAuthzDecision(effect string)
}

// Middleware wires the permission resolver into HTTP handlers.
type Middleware struct {
	Resolver *Resolver
	Targets  TargetSource
	Logger   *slog.Logger
	Observer DecisionObserver
}

// Require authorizes the request against the declared action and OR set of
// permission tokens before the handler runs. Deny halts with 403, a missing
// target with 404; the granted scope filter is left in the request context.
func (m Middleware) Require(action Action, perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			if principal.RoleID == nil || *principal.RoleID == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing role")
				return
			}

			in := Input{
				Principal: principal,
				Required:  perms,
				Action:    action,
				Target:    m.targetFetcher(r, principal),
			}
			if action == ActionCreate {
				declared, err := m.peekDeclaredDepartment(r)
				if err != nil {
					httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
					return
				}
				in.DeclaredDepartmentID = declared
			}

			decision, err := m.Resolver.Resolve(r.Context(), in)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz resolve", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			m.observe(decision)

			switch decision.Effect {
			case EffectAllow:
				ctx := ContextWithDecision(r.Context(), decision)
				next.ServeHTTP(w, r.WithContext(ctx))
			case EffectNotFound:
				httpx.Problem(w, http.StatusNotFound, "Not Found", decision.Reason)
			default:
				httpx.Problem(w, http.StatusForbidden, "Forbidden", decision.Reason)
			}
		})
	}
}

// targetFetcher builds the lazy accessor for the addressed account, keyed by
// either the internal id or the business employee id route parameter.
func (m Middleware) targetFetcher(r *http.Request, principal *shared.Principal) TargetFetcher {
	id := chi.URLParam(r, "id")
	empID := chi.URLParam(r, "empID")
	if (id == "" && empID == "") || m.Targets == nil {
		return nil
	}
	tenant := principal.Tenant()
	return func(ctx context.Context) (*Target, error) {
		var (
			target *Target
			err    error
		)
		if id != "" {
			target, err = m.Targets.FindTarget(ctx, tenant, id)
		} else {
			target, err = m.Targets.FindTargetByEmpID(ctx, tenant, empID)
		}
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return target, nil
	}
}

type createBody struct {
	DepartmentID *string `json:"department_id"`
}

// peekDeclaredDepartment reads the department named in a create body without
// consuming it for the handler.
func (m Middleware) peekDeclaredDepartment(r *http.Request) (*string, error) {
	if r.Body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var body createBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	if body.DepartmentID != nil && *body.DepartmentID == "" {
		return nil, nil
	}
	return body.DepartmentID, nil
}

func (m Middleware) observe(d Decision) {
	if m.Observer == nil {
		return
	}
	switch d.Effect {
	case EffectAllow:
		m.Observer.ObserveAuthzDecision("allow")
	case EffectNotFound:
		m.Observer.ObserveAuthzDecision("not_found")
	default:
		m.Observer.ObserveAuthzDecision("deny")
	}
}
