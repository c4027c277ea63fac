package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-his/meridian-his/internal/audit"
	"github.com/meridian-his/meridian-his/internal/auth"
	"github.com/meridian-his/meridian-his/internal/directory"
	"github.com/meridian-his/meridian-his/internal/observability"
	"github.com/meridian-his/meridian-his/internal/patients"
	"github.com/meridian-his/meridian-his/internal/rbac"
	"github.com/meridian-his/meridian-his/internal/shared"
	"github.com/meridian-his/meridian-his/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Directory      directory.Middleware
	AuthHandler    *auth.Handler
	RBACHandler    *rbac.Handler
	PatientHandler *patients.Handler
	AuditHandler   *audit.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
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

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Everything below requires a resolved principal.
	r.Group(func(r chi.Router) {
		r.Use(params.Directory.LoadPrincipal)

		if params.RBACHandler != nil {
			r.Route("/api/admin", params.RBACHandler.MountRoutes)
		}
		if params.PatientHandler != nil {
			r.Route("/api", params.PatientHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/api/audit", params.AuditHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
