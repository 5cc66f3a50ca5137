package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-hr/atlas-hr/internal/platform/httpx"
	"github.com/atlas-hr/atlas-hr/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	binder    *Binder
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, binder *Binder) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		binder:    binder,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(h.binder.Authenticate)
		r.Post("/logout", h.handleLogout)
	})
}

type loginRequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required"`
	Password        string `json:"password" validate:"required"`
	CompCode        string `json:"comp_code" validate:"required"`
}

type loginUser struct {
	ID           string  `json:"id"`
	EmpID        string  `json:"emp_id"`
	FullName     string  `json:"fullname"`
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	DepartmentID *string `json:"department_id"`
	RoleName     string  `json:"role_name"`
	CompCode     string  `json:"comp_code"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  loginUser `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing credentials or company code")
		return
	}

	result, err := h.service.Login(r.Context(), req.UsernameOrEmail, req.Password, req.CompCode)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials or company")
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	ident := result.Identity
	httpx.JSON(w, http.StatusOK, loginResponse{
		Token: result.Token,
		User: loginUser{
			ID:           ident.ID,
			EmpID:        ident.EmpID,
			FullName:     ident.FullName,
			Username:     ident.Username,
			Email:        ident.Email,
			DepartmentID: ident.DepartmentID,
			RoleName:     result.RoleName,
			CompCode:     ident.CompCode,
		},
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	if err := h.service.Logout(r.Context(), claims.JTI, claims.Expires); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.NoContent(w)
}
