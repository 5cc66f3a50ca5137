package accounts

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-hr/atlas-hr/internal/authz"
	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// Handler exposes the account CRUD endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	audit     *shared.AuditLogger
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authz authz.Middleware, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		authz:     authz,
		audit:     audit,
		validator: validator.New(),
	}
}

// MountRoutes registers account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.authz.Require(authz.ActionCreate, "accounts:create", "accounts:create:own-dept")).
		Post("/", h.create)
	r.With(h.authz.Require(authz.ActionList, "accounts:read", "accounts:read_own", "accounts:read:own-dept")).
		Get("/", h.list)
	r.With(h.authz.Require(authz.ActionRead, "accounts:read", "accounts:read_own", "accounts:read:own-dept")).
		Get("/{id}", h.get)
	r.With(h.authz.Require(authz.ActionRead, "accounts:read", "accounts:read_own", "accounts:read:own-dept")).
		Get("/emp/{empID}", h.getByEmpID)
	r.With(h.authz.Require(authz.ActionUpdate, "accounts:update", "accounts:update_own", "accounts:update:own-dept")).
		Put("/{id}", h.update)
	r.With(h.authz.Require(authz.ActionDisable, "accounts:disable", "accounts:disable:own-dept")).
		Patch("/{id}/disable", h.disable)
	r.With(h.authz.Require(authz.ActionDelete, "accounts:delete", "accounts:delete:own-dept")).
		Delete("/{id}", h.remove)
}

type accountResponse struct {
	ID           string  `json:"id"`
	EmpID        string  `json:"emp_id"`
	FullName     string  `json:"fullname"`
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	DepartmentID *string `json:"department_id"`
	UserTypeID   *string `json:"user_type_id"`
	RoleID       *string `json:"role_id"`
	Status       string  `json:"status"`
	CompCode     string  `json:"comp_code"`
}

func toAccountResponse(acc *Account) accountResponse {
	return accountResponse{
		ID:           acc.ID,
		EmpID:        acc.EmpID,
		FullName:     acc.FullName,
		Username:     acc.Username,
		Email:        acc.Email,
		DepartmentID: acc.DepartmentID,
		UserTypeID:   acc.UserTypeID,
		RoleID:       acc.RoleID,
		Status:       acc.Status,
		CompCode:     acc.CompCode,
	}
}

type createAccountRequest struct {
	EmpID        string  `json:"emp_id" validate:"required"`
	FullName     string  `json:"fullname" validate:"required"`
	Username     string  `json:"username" validate:"required"`
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8"`
	DepartmentID *string `json:"department_id"`
	UserTypeID   *string `json:"user_type_id"`
	RoleID       *string `json:"role_id"`
	CompCode     string  `json:"comp_code"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())

	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing or invalid account fields")
		return
	}

	// The elevated role creates on behalf of any company and must say which.
	tenant := principal.Tenant()
	if principal.IsSuperAdmin() {
		if req.CompCode == "" {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "comp_code is required")
			return
		}
		tenant = shared.TenantFor(req.CompCode)
	}

	acc, err := h.service.Create(r.Context(), tenant, CreateInput{
		EmpID:        req.EmpID,
		FullName:     req.FullName,
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		DepartmentID: emptyToNil(req.DepartmentID),
		UserTypeID:   emptyToNil(req.UserTypeID),
		RoleID:       emptyToNil(req.RoleID),
	})
	if err != nil {
		h.respondServiceError(w, "create account", err)
		return
	}

	h.recordAudit(r, principal, acc, "account.create", nil)
	httpx.JSON(w, http.StatusCreated, toAccountResponse(acc))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	decision := authz.DecisionFromContext(r.Context())

	q := r.URL.Query()
	filter := ListFilter{
		DepartmentID: q.Get("department_id"),
		UserTypeID:   q.Get("user_type_id"),
		Status:       q.Get("status"),
		Search:       q.Get("search"),
	}
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	tenant := principal.Tenant()
	if principal.IsSuperAdmin() {
		if code := q.Get("comp_code"); code != "" {
			tenant = shared.TenantFor(code)
		}
	}

	if decision.Filter == authz.FilterDept {
		if principal.DepartmentID == nil {
			httpx.JSON(w, http.StatusOK, listResponse{
				Data:       []accountResponse{},
				Pagination: shared.NewPagination(page, perPage, 0),
			})
			return
		}
		filter.DepartmentID = *principal.DepartmentID
	}

	items, pagination, err := h.service.List(r.Context(), tenant, filter, page, perPage)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	out := make([]accountResponse, 0, len(items))
	for i := range items {
		out = append(out, toAccountResponse(&items[i]))
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: out, Pagination: pagination})
}

type listResponse struct {
	Data       []accountResponse `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	tenant, ok := h.resolveTenant(w, r, principal, id)
	if !ok {
		return
	}
	acc, err := h.service.Get(r.Context(), tenant, id)
	if err != nil {
		h.respondServiceError(w, "get account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(acc))
}

func (h *Handler) getByEmpID(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())

	acc, err := h.service.GetByEmpID(r.Context(), principal.Tenant(), chi.URLParam(r, "empID"))
	if err != nil {
		h.respondServiceError(w, "get account by emp id", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(acc))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	in, err := decodeUpdate(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}

	tenant, ok := h.resolveTenant(w, r, principal, id)
	if !ok {
		return
	}
	acc, err := h.service.Update(r.Context(), tenant, id, in)
	if err != nil {
		h.respondServiceError(w, "update account", err)
		return
	}

	h.recordAudit(r, principal, acc, "account.update", nil)
	httpx.JSON(w, http.StatusOK, toAccountResponse(acc))
}

func (h *Handler) disable(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	tenant, ok := h.resolveTenant(w, r, principal, id)
	if !ok {
		return
	}
	acc, err := h.service.Disable(r.Context(), tenant, id)
	if err != nil {
		h.respondServiceError(w, "disable account", err)
		return
	}

	h.recordAudit(r, principal, acc, "account.disable", nil)
	httpx.JSON(w, http.StatusOK, toAccountResponse(acc))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	tenant, ok := h.resolveTenant(w, r, principal, id)
	if !ok {
		return
	}
	acc, err := h.service.Delete(r.Context(), tenant, id)
	if err != nil {
		h.respondServiceError(w, "delete account", err)
		return
	}

	h.recordAudit(r, principal, acc, "account.delete", map[string]any{"emp_id": acc.EmpID})
	httpx.NoContent(w)
}

// resolveTenant picks the tenant for a per-id operation. The elevated role
// carries no company of its own, so the target account's company is looked
// up first; everyone else stays inside their own company.
func (h *Handler) resolveTenant(w http.ResponseWriter, r *http.Request, principal *shared.Principal, id string) (shared.Tenant, bool) {
	if !principal.IsSuperAdmin() {
		return principal.Tenant(), true
	}
	code, err := h.service.CompanyOf(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "account not found")
			return shared.Tenant{}, false
		}
		h.logger.Error("resolve account company", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return shared.Tenant{}, false
	}
	return shared.TenantFor(code), true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "account not found")
	case errors.Is(err, ErrEmpIDTaken):
		httpx.Problem(w, http.StatusConflict, "Conflict", "employee id already exists in this company")
	case errors.Is(err, ErrDepartmentInvalid), errors.Is(err, ErrRoleInvalid), errors.Is(err, ErrUserTypeInvalid):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrTenantRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "comp_code is required")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) recordAudit(r *http.Request, principal *shared.Principal, acc *Account, action string, meta map[string]any) {
	if h.audit == nil {
		return
	}
	err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  principal.ID,
		CompCode: acc.CompCode,
		Action:   action,
		Entity:   "account",
		EntityID: acc.ID,
		Meta:     meta,
	})
	if err != nil {
		h.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}

// decodeUpdate reads a partial body. Key presence matters for the nullable
// references: an absent key leaves the field alone, an explicit null clears
// it.
func decodeUpdate(r *http.Request) (UpdateInput, error) {
	var raw map[string]json.RawMessage
	if err := httpx.DecodeJSON(r, &raw); err != nil {
		return UpdateInput{}, err
	}

	var in UpdateInput
	str := func(key string) (*string, error) {
		msg, ok := raw[key]
		if !ok {
			return nil, nil
		}
		var s *string
		if err := json.Unmarshal(msg, &s); err != nil {
			return nil, err
		}
		return s, nil
	}

	var err error
	if in.EmpID, err = str("emp_id"); err != nil {
		return UpdateInput{}, err
	}
	if in.FullName, err = str("fullname"); err != nil {
		return UpdateInput{}, err
	}
	if in.Username, err = str("username"); err != nil {
		return UpdateInput{}, err
	}
	if in.Email, err = str("email"); err != nil {
		return UpdateInput{}, err
	}
	if in.Password, err = str("password"); err != nil {
		return UpdateInput{}, err
	}
	if in.Status, err = str("status"); err != nil {
		return UpdateInput{}, err
	}
	if _, ok := raw["department_id"]; ok {
		in.SetDepartment = true
		if in.DepartmentID, err = str("department_id"); err != nil {
			return UpdateInput{}, err
		}
	}
	if _, ok := raw["user_type_id"]; ok {
		in.SetUserType = true
		if in.UserTypeID, err = str("user_type_id"); err != nil {
			return UpdateInput{}, err
		}
	}
	if _, ok := raw["role_id"]; ok {
		in.SetRole = true
		if in.RoleID, err = str("role_id"); err != nil {
			return UpdateInput{}, err
		}
	}
	return in, nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
