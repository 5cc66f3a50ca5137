package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// Binder turns a bearer token into a resolved principal bound to its
// tenant. The account row is re-read on every request rather than trusted
// from the token, so a disabled account or company transfer invalidates
// the session immediately.
type Binder struct {
	issuer  *TokenIssuer
	repo    Repository
	revoked *RevocationList
	logger  *slog.Logger
}

// NewBinder constructs a Binder.
func NewBinder(issuer *TokenIssuer, repo Repository, revoked *RevocationList, logger *slog.Logger) *Binder {
	return &Binder{issuer: issuer, repo: repo, revoked: revoked, logger: logger}
}

// Authenticate verifies the bearer token, re-reads the live account, and
// stores the principal and verified claims in the request context. Any
// failure halts the request with 401 before the resolver runs.
func (b *Binder) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, claims, err := b.bind(r)
		if err != nil {
			var detail string
			switch {
			case errors.Is(err, ErrMissingToken),
				errors.Is(err, ErrInvalidToken),
				errors.Is(err, ErrExpiredToken),
				errors.Is(err, ErrMalformedToken),
				errors.Is(err, ErrTokenRevoked),
				errors.Is(err, ErrSessionInvalid):
				detail = err.Error()
			default:
				if b.logger != nil {
					b.logger.Error("bind identity", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", detail)
			return
		}

		ctx := shared.ContextWithPrincipal(r.Context(), principal)
		ctx = ContextWithClaims(ctx, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (b *Binder) bind(r *http.Request) (*shared.Principal, *Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return nil, nil, ErrMissingToken
	}

	claims, err := b.issuer.Verify(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return nil, nil, err
	}

	revoked, err := b.revoked.IsRevoked(r.Context(), claims.JTI)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, ErrTokenRevoked
	}

	ident, err := b.repo.FindActiveByID(r.Context(), shared.TenantFor(claims.CompCode), claims.Subject)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, ErrSessionInvalid
		}
		return nil, nil, err
	}

	principal := &shared.Principal{
		ID:           ident.ID,
		EmpID:        ident.EmpID,
		FullName:     ident.FullName,
		Username:     ident.Username,
		Email:        ident.Email,
		DepartmentID: ident.DepartmentID,
		RoleID:       ident.RoleID,
		UserTypeID:   ident.UserTypeID,
		RoleName:     shared.RoleDefault,
		CompCode:     ident.CompCode,
		Status:       ident.Status,
	}
	if ident.RoleName != nil {
		principal.RoleName = shared.NormalizeRoleName(*ident.RoleName, shared.RoleDefault)
	}
	if ident.UserTypeName != nil {
		principal.UserTypeName = shared.NormalizeRoleName(*ident.UserTypeName, "")
	}
	return principal, claims, nil
}
