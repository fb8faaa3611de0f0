package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/blueprintpro/estimator/internal/api/handlers"
	mw "github.com/blueprintpro/estimator/internal/api/middleware"
	"github.com/blueprintpro/estimator/pkg/metrics"
)

type Dependencies struct {
	// HMACSecret protects the project routes when set.
	HMACSecret  []byte
	CORSOrigins []string
	Metrics     *metrics.Metrics
	RateLimiter *mw.RateLimiter

	HealthHandler   *handlers.HealthHandler
	AnalyzeHandler  *handlers.AnalyzeHandler
	ProjectsHandler *handlers.ProjectsHandler
	CatalogHandler  *handlers.CatalogHandler
	ScheduleHandler *handlers.ScheduleHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging(dep.Metrics))
	r.Use(mw.CORS(dep.CORSOrigins))
	if dep.RateLimiter != nil {
		r.Use(dep.RateLimiter.Middleware)
	}
	r.Use(chimid.Compress(5))

	// Health endpoints
	hh := dep.HealthHandler
	if hh == nil {
		hh = handlers.NewHealthHandler(nil)
	}
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)
	if dep.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", dep.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		// Stateless routes
		api.Post("/analyze", dep.AnalyzeHandler.Analyze)
		api.Get("/materials", dep.CatalogHandler.Materials)
		api.Get("/regions", dep.CatalogHandler.Regions)
		api.Post("/schedule", dep.ScheduleHandler.Derive)

		api.Group(func(protected chi.Router) {
			if len(dep.HMACSecret) > 0 {
				protected.Use(mw.Auth(dep.HMACSecret))
			}

			protected.Route("/projects", func(pr chi.Router) {
				pr.Get("/", dep.ProjectsHandler.List)
				pr.Post("/", dep.ProjectsHandler.Create)
				pr.Get("/{id}", dep.ProjectsHandler.Get)
				pr.Put("/{id}", dep.ProjectsHandler.Update)
				pr.Delete("/{id}", dep.ProjectsHandler.Delete)
				pr.Post("/{id}/analyze", dep.ProjectsHandler.Analyze)
				pr.Post("/{id}/estimate", dep.ProjectsHandler.Estimate)
			})
		})
	})

	return r
}
