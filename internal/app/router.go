package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/zamsuite/zamsuite-auth/internal/audit"
	"github.com/zamsuite/zamsuite-auth/internal/auth"
	"github.com/zamsuite/zamsuite-auth/internal/dashboard"
	"github.com/zamsuite/zamsuite-auth/internal/locale"
	"github.com/zamsuite/zamsuite-auth/internal/observability"
	"github.com/zamsuite/zamsuite-auth/internal/permissions"
	"github.com/zamsuite/zamsuite-auth/internal/roles"
	"github.com/zamsuite/zamsuite-auth/internal/services"
	"github.com/zamsuite/zamsuite-auth/internal/shared"
	"github.com/zamsuite/zamsuite-auth/internal/users"
	"github.com/zamsuite/zamsuite-auth/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	CSRFManager        *shared.CSRFManager
	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *permissions.Handler
	ServicesHandler    *services.Handler
	DashboardHandler   *dashboard.Handler
	LocaleHandler      *locale.Handler
	AuditHandler       *audit.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with platform defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	params.AuthHandler.MountRoutes(r)
	if params.UsersHandler != nil {
		params.UsersHandler.MountRoutes(r)
	}
	if params.RolesHandler != nil {
		params.RolesHandler.MountRoutes(r)
	}
	if params.PermissionsHandler != nil {
		params.PermissionsHandler.MountRoutes(r)
	}
	if params.ServicesHandler != nil {
		params.ServicesHandler.MountRoutes(r)
	}
	if params.DashboardHandler != nil {
		params.DashboardHandler.MountRoutes(r)
	}
	if params.LocaleHandler != nil {
		params.LocaleHandler.MountRoutes(r)
	}
	if params.AuditHandler != nil {
		params.AuditHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
