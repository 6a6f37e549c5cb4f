package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/leasecraft/leasecraft/internal/accesscontrol"
	"github.com/leasecraft/leasecraft/internal/agreements"
	"github.com/leasecraft/leasecraft/internal/audit"
	"github.com/leasecraft/leasecraft/internal/principals"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AccessHandler     *accesscontrol.Handler
	PrincipalsHandler *principals.Handler
	AgreementsHandler *agreements.Handler
	AuditHandler      *audit.Handler
}

// NewRouter constructs the chi.Router with Leasecraft defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.AccessHandler != nil {
		r.Route("/admin", params.AccessHandler.MountRoutes)
	}
	if params.PrincipalsHandler != nil {
		r.Route("/principals", params.PrincipalsHandler.MountRoutes)
	}
	if params.AgreementsHandler != nil {
		r.Route("/agreements", params.AgreementsHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		params.AuditHandler.MountRoutes(r)
	}

	return r
}
