package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-hr/atlas-hr/internal/auth"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

type stubRepo struct {
	identities map[string]*auth.Identity
	err        error
	lastTenant shared.Tenant
}

func (s *stubRepo) FindActiveByID(ctx context.Context, tenant shared.Tenant, id string) (*auth.Identity, error) {
	s.lastTenant = tenant
	if s.err != nil {
		return nil, s.err
	}
	ident, ok := s.identities[id]
	if !ok || ident.CompCode != tenant.Code() {
		return nil, shared.ErrNotFound
	}
	return ident, nil
}

func (s *stubRepo) FindActiveByLogin(ctx context.Context, tenant shared.Tenant, login string) (*auth.Identity, error) {
	s.lastTenant = tenant
	if s.err != nil {
		return nil, s.err
	}
	for _, ident := range s.identities {
		if (ident.Username == login || ident.Email == login) && ident.CompCode == tenant.Code() {
			return ident, nil
		}
	}
	return nil, shared.ErrNotFound
}

func strPtr(s string) *string { return &s }

func testIdentity() *auth.Identity {
	return &auth.Identity{
		ID:       "u-1",
		EmpID:    "EMP001",
		FullName: "Test User",
		Username: "tester",
		Email:    "tester@acme.local",
		RoleID:   strPtr("r-1"),
		RoleName: strPtr("manager"),
		Status:   "active",
		CompCode: "ACME",
	}
}

func newBinder(t *testing.T, repo auth.Repository) (*auth.Binder, *auth.TokenIssuer, *auth.RevocationList) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	revoked := auth.NewRevocationList(client)
	return auth.NewBinder(issuer, repo, revoked, nil), issuer, revoked
}

func bindRequest(t *testing.T, binder *auth.Binder, token string) (*httptest.ResponseRecorder, *shared.Principal) {
	t.Helper()
	var bound *shared.Principal
	handler := binder.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bound = shared.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res, bound
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := &stubRepo{identities: map[string]*auth.Identity{"u-1": testIdentity()}}
	binder, issuer, _ := newBinder(t, repo)

	token, err := issuer.Issue(testIdentity(), "MANAGER")
	require.NoError(t, err)

	res, principal := bindRequest(t, binder, token)
	require.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, principal)
	assert.Equal(t, "u-1", principal.ID)
	assert.Equal(t, "MANAGER", principal.RoleName)
	assert.Equal(t, "ACME", principal.CompCode)
	assert.Equal(t, "ACME", repo.lastTenant.Code(), "live re-read is tenant scoped")
}

func TestAuthenticateMissingToken(t *testing.T) {
	binder, _, _ := newBinder(t, &stubRepo{})
	res, _ := bindRequest(t, binder, "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAuthenticateBadSignature(t *testing.T) {
	binder, _, _ := newBinder(t, &stubRepo{})
	other := auth.NewTokenIssuer("other-secret", time.Hour)
	token, err := other.Issue(testIdentity(), "MANAGER")
	require.NoError(t, err)

	res, _ := bindRequest(t, binder, token)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	repo := &stubRepo{identities: map[string]*auth.Identity{"u-1": testIdentity()}}
	binder, _, _ := newBinder(t, repo)

	expired := auth.NewTokenIssuer("test-secret", -time.Minute)
	token, err := expired.Issue(testIdentity(), "MANAGER")
	require.NoError(t, err)

	res, _ := bindRequest(t, binder, token)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	// Repo holds no matching active row; a disabled account dies here even
	// though the token itself is still valid.
	repo := &stubRepo{identities: map[string]*auth.Identity{}}
	binder, issuer, _ := newBinder(t, repo)

	token, err := issuer.Issue(testIdentity(), "MANAGER")
	require.NoError(t, err)

	res, _ := bindRequest(t, binder, token)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAuthenticateCompanyTransfer(t *testing.T) {
	moved := testIdentity()
	moved.CompCode = "OTHERCO"
	repo := &stubRepo{identities: map[string]*auth.Identity{"u-1": moved}}
	binder, issuer, _ := newBinder(t, repo)

	// Token still claims the old company.
	token, err := issuer.Issue(testIdentity(), "MANAGER")
	require.NoError(t, err)

	res, _ := bindRequest(t, binder, token)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAuthenticateRevokedToken(t *testing.T) {
	repo := &stubRepo{identities: map[string]*auth.Identity{"u-1": testIdentity()}}
	binder, issuer, revoked := newBinder(t, repo)

	token, err := issuer.Issue(testIdentity(), "MANAGER")
	require.NoError(t, err)
	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	require.NoError(t, revoked.Revoke(context.Background(), claims.JTI, claims.Expires))

	res, _ := bindRequest(t, binder, token)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAuthenticateStorageErrorIs500(t *testing.T) {
	repo := &stubRepo{err: assert.AnError}
	binder, issuer, _ := newBinder(t, repo)

	token, err := issuer.Issue(testIdentity(), "MANAGER")
	require.NoError(t, err)

	res, _ := bindRequest(t, binder, token)
	assert.Equal(t, http.StatusInternalServerError, res.Code, "storage failures are loud, not 401")
}
