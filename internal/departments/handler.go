package departments

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-hr/atlas-hr/internal/authz"
	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// Handler exposes the department CRUD endpoints.
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

// MountRoutes registers department routes. The resolver holds mutations to
// the Admin role; department tokens never widen to own or own-dept scopes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.authz.Require(authz.ActionCreate, "departments:create")).Post("/", h.create)
	r.With(h.authz.Require(authz.ActionList, "departments:read")).Get("/", h.list)
	r.With(h.authz.Require(authz.ActionRead, "departments:read")).Get("/{id}", h.get)
	r.With(h.authz.Require(authz.ActionUpdate, "departments:update")).Put("/{id}", h.update)
	r.With(h.authz.Require(authz.ActionUpdate, "departments:update")).Patch("/{id}/status", h.updateStatus)
	r.With(h.authz.Require(authz.ActionDelete, "departments:delete")).Delete("/{id}", h.remove)
}

type departmentResponse struct {
	ID          string `json:"department_id"`
	Name        string `json:"department_name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	CompCode    string `json:"comp_code"`
}

func toDepartmentResponse(d *Department) departmentResponse {
	return departmentResponse{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Status:      d.Status,
		CompCode:    d.CompCode,
	}
}

type createDepartmentRequest struct {
	Name        string `json:"department_name" validate:"required"`
	Description string `json:"description"`
	CompCode    string `json:"comp_code"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())

	var req createDepartmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "department_name is required")
		return
	}

	tenant := principal.Tenant()
	if principal.IsSuperAdmin() {
		if req.CompCode == "" {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "comp_code is required")
			return
		}
		tenant = shared.TenantFor(req.CompCode)
	}

	dept, err := h.service.Create(r.Context(), tenant, CreateInput{Name: req.Name, Description: req.Description})
	if err != nil {
		h.respondServiceError(w, "create department", err)
		return
	}

	h.recordAudit(r, principal, dept, "department.create")
	httpx.JSON(w, http.StatusCreated, toDepartmentResponse(dept))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())

	tenant := principal.Tenant()
	if principal.IsSuperAdmin() {
		if code := r.URL.Query().Get("comp_code"); code != "" {
			tenant = shared.TenantFor(code)
		}
	}

	depts, err := h.service.List(r.Context(), tenant, r.URL.Query().Get("status"))
	if err != nil {
		h.respondServiceError(w, "list departments", err)
		return
	}

	out := make([]departmentResponse, 0, len(depts))
	for i := range depts {
		out = append(out, toDepartmentResponse(&depts[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	tenant, ok := h.resolveTenant(w, r, principal, id)
	if !ok {
		return
	}
	dept, err := h.service.Get(r.Context(), tenant, id)
	if err != nil {
		h.respondServiceError(w, "get department", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDepartmentResponse(dept))
}

type updateDepartmentRequest struct {
	Name        *string `json:"department_name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req updateDepartmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}

	tenant, ok := h.resolveTenant(w, r, principal, id)
	if !ok {
		return
	}
	dept, err := h.service.Update(r.Context(), tenant, id, DepartmentUpdate{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		h.respondServiceError(w, "update department", err)
		return
	}

	h.recordAudit(r, principal, dept, "department.update")
	httpx.JSON(w, http.StatusOK, toDepartmentResponse(dept))
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "status is required")
		return
	}

	tenant, ok := h.resolveTenant(w, r, principal, id)
	if !ok {
		return
	}
	dept, err := h.service.UpdateStatus(r.Context(), tenant, id, req.Status)
	if err != nil {
		h.respondServiceError(w, "update department status", err)
		return
	}

	h.recordAudit(r, principal, dept, "department.status")
	httpx.JSON(w, http.StatusOK, toDepartmentResponse(dept))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	id := chi.URLParam(r, "id")

	tenant, ok := h.resolveTenant(w, r, principal, id)
	if !ok {
		return
	}
	dept, err := h.service.Delete(r.Context(), tenant, id)
	if err != nil {
		h.respondServiceError(w, "delete department", err)
		return
	}

	h.recordAudit(r, principal, dept, "department.delete")
	httpx.NoContent(w)
}

func (h *Handler) resolveTenant(w http.ResponseWriter, r *http.Request, principal *shared.Principal, id string) (shared.Tenant, bool) {
	if !principal.IsSuperAdmin() {
		return principal.Tenant(), true
	}
	code, err := h.service.CompanyOf(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "department not found")
			return shared.Tenant{}, false
		}
		h.logger.Error("resolve department company", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return shared.Tenant{}, false
	}
	return shared.TenantFor(code), true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "department not found")
	case errors.Is(err, ErrNameTaken):
		httpx.Problem(w, http.StatusConflict, "Conflict", "department name already exists in this company")
	case errors.Is(err, ErrBadStatus):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "status must be active or inactive")
	case errors.Is(err, shared.ErrTenantRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "comp_code is required")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) recordAudit(r *http.Request, principal *shared.Principal, dept *Department, action string) {
	if h.audit == nil {
		return
	}
	err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  principal.ID,
		CompCode: dept.CompCode,
		Action:   action,
		Entity:   "department",
		EntityID: dept.ID,
	})
	if err != nil {
		h.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
