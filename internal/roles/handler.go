package roles

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-hr/atlas-hr/internal/authz"
	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
)

// Handler exposes read-only role and user-type endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authz   authz.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authz authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: authz}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.ActionList, "roles:read"))
		r.Get("/", h.listRoles)
		r.Get("/user-types", h.listUserTypes)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.ActionRead, "roles:read"))
		r.Get("/{id}", h.getRole)
	})
}

type roleResponse struct {
	ID          string    `json:"id"`
	RoleName    string    `json:"role_name"`
	Description string    `json:"description,omitempty"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toRoleResponse(role Role) roleResponse {
	return roleResponse{
		ID:          role.ID,
		RoleName:    role.Name,
		Description: role.Description,
		Permissions: role.Permissions,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.GetRole(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleResponse(role))
}

type userTypeResponse struct {
	ID       string `json:"id"`
	TypeName string `json:"type_name"`
}

func (h *Handler) listUserTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListUserTypes(r.Context())
	if err != nil {
		h.logger.Error("list user types", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]userTypeResponse, 0, len(types))
	for _, ut := range types {
		out = append(out, userTypeResponse{ID: ut.ID, TypeName: ut.TypeName})
	}
	httpx.JSON(w, http.StatusOK, out)
}
