package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/atlas-hr/atlas-hr/internal/accounts"
	"github.com/atlas-hr/atlas-hr/internal/auth"
	"github.com/atlas-hr/atlas-hr/internal/departments"
	"github.com/atlas-hr/atlas-hr/internal/observability"
	"github.com/atlas-hr/atlas-hr/internal/roles"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Binder             *auth.Binder
	AuthHandler        *auth.Handler
	AccountsHandler    *accounts.Handler
	DepartmentsHandler *departments.Handler
	RolesHandler       *roles.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	loginLimit, loginWindow := 10, time.Minute
	if params.Config != nil && params.Config.LoginRateLimit > 0 {
		loginLimit = params.Config.LoginRateLimit
	}
	if params.Config != nil && params.Config.LoginRateWindow > 0 {
		loginWindow = params.Config.LoginRateWindow
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			// Credential guessing gets a tighter budget than the rest of the API.
			r.Use(httprate.Limit(loginLimit, loginWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
			r.Route("/auth", params.AuthHandler.MountRoutes)
		})

		r.Group(func(r chi.Router) {
			r.Use(params.Binder.Authenticate)
			if params.AccountsHandler != nil {
				r.Route("/accounts", params.AccountsHandler.MountRoutes)
			}
			if params.DepartmentsHandler != nil {
				r.Route("/departments", params.DepartmentsHandler.MountRoutes)
			}
			if params.RolesHandler != nil {
				r.Route("/roles", params.RolesHandler.MountRoutes)
			}
		})
	})

	return r
}
