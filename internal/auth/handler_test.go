package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atlas-hr/atlas-hr/internal/auth"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

type handlerRepo struct {
	identity *auth.Identity
}

func (s *handlerRepo) FindActiveByID(ctx context.Context, tenant shared.Tenant, id string) (*auth.Identity, error) {
	if s.identity == nil || s.identity.ID != id || s.identity.CompCode != tenant.Code() {
		return nil, shared.ErrNotFound
	}
	return s.identity, nil
}

func (s *handlerRepo) FindActiveByLogin(ctx context.Context, tenant shared.Tenant, login string) (*auth.Identity, error) {
	if s.identity == nil || s.identity.CompCode != tenant.Code() {
		return nil, shared.ErrNotFound
	}
	if s.identity.Username != login && s.identity.Email != login {
		return nil, shared.ErrNotFound
	}
	return s.identity, nil
}

func newAuthRouter(t *testing.T, repo auth.Repository) chi.Router {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	issuer := auth.NewTokenIssuer("handler-test-secret", time.Hour)
	revoked := auth.NewRevocationList(redisClient)
	service := auth.NewService(repo, issuer, revoked)
	binder := auth.NewBinder(issuer, repo, revoked, slog.Default())
	handler := auth.NewHandler(slog.Default(), service, binder)

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r
}

func seedIdentity(t *testing.T, password string) *auth.Identity {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	role := "EMPLOYEE"
	return &auth.Identity{
		ID:           "acc-1",
		EmpID:        "E100",
		FullName:     "Jo Field",
		Username:     "jfield",
		Email:        "jo@acme.example",
		PasswordHash: string(hash),
		RoleName:     &role,
		CompCode:     "ACME",
		Status:       "active",
	}
}

func TestLoginReturnsTokenAndUser(t *testing.T) {
	router := newAuthRouter(t, &handlerRepo{identity: seedIdentity(t, "hunter2hunter2")})

	body, _ := json.Marshal(map[string]string{
		"username_or_email": "jfield",
		"password":          "hunter2hunter2",
		"comp_code":         "acme",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Token string `json:"token"`
		User  struct {
			EmpID    string `json:"emp_id"`
			CompCode string `json:"comp_code"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "E100", resp.User.EmpID)
	require.Equal(t, "ACME", resp.User.CompCode)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	router := newAuthRouter(t, &handlerRepo{identity: seedIdentity(t, "hunter2hunter2")})

	body, _ := json.Marshal(map[string]string{
		"username_or_email": "jfield",
		"password":          "wrong-password",
		"comp_code":         "ACME",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginRejectsMissingCompany(t *testing.T) {
	router := newAuthRouter(t, &handlerRepo{identity: seedIdentity(t, "hunter2hunter2")})

	body, _ := json.Marshal(map[string]string{
		"username_or_email": "jfield",
		"password":          "hunter2hunter2",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	ident := seedIdentity(t, "hunter2hunter2")
	repo := &handlerRepo{identity: ident}
	router := newAuthRouter(t, repo)

	body, _ := json.Marshal(map[string]string{
		"username_or_email": "jfield",
		"password":          "hunter2hunter2",
		"comp_code":         "ACME",
	})
	loginReq := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	loginRR := httptest.NewRecorder()
	router.ServeHTTP(loginRR, loginReq)
	require.Equal(t, http.StatusOK, loginRR.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(loginRR.Body.Bytes(), &resp))

	logoutReq := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	logoutReq.Header.Set("Authorization", "Bearer "+resp.Token)
	logoutRR := httptest.NewRecorder()
	router.ServeHTTP(logoutRR, logoutReq)
	require.Equal(t, http.StatusNoContent, logoutRR.Code)

	// The same token no longer authenticates.
	again := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	again.Header.Set("Authorization", "Bearer "+resp.Token)
	againRR := httptest.NewRecorder()
	router.ServeHTTP(againRR, again)
	require.Equal(t, http.StatusUnauthorized, againRR.Code)
}
