package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sitepulse/sitepulse/internal/api/handlers"
	"github.com/sitepulse/sitepulse/internal/api/middleware"
	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/observability"
	"github.com/sitepulse/sitepulse/internal/repository/postgres"
	rediscache "github.com/sitepulse/sitepulse/internal/repository/redis"
	"github.com/sitepulse/sitepulse/internal/review"
	"github.com/sitepulse/sitepulse/pkg/httputil"
)

// Router holds the HTTP router and its dependencies
type Router struct {
	chi.Router
	logger *zap.Logger
}

// RouterConfig contains configuration for the router
type RouterConfig struct {
	Service     *review.Service
	DB          *postgres.DB
	Audits      *postgres.AuditRepository
	Cache       *rediscache.Cache
	Metrics     *observability.Metrics
	Security    config.SecurityConfig
	Logger      *zap.Logger
	RateLimit   int
	Development bool
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Base middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(cfg.Logger).Handler)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Handler)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.HTTPMiddleware)
	}
	// Audits run a browser and a model call end to end, so the timeout is
	// generous compared to a plain CRUD service.
	r.Use(chimw.Timeout(5 * time.Minute))

	if cfg.Security.CORSEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Security.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", cfg.Security.APIKeyHeader, "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Rate limiting (if Redis is available)
	if cfg.Cache != nil && cfg.RateLimit > 0 {
		r.Use(middleware.NewRateLimitMiddleware(cfg.Cache, cfg.RateLimit, true).Handler)
	}

	// Health check endpoints (no auth required)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(cfg.DB, cfg.Cache))
	r.Handle("/metrics", observability.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(cfg.Security.APIKeyHeader, cfg.Security.APIKeys, cfg.Development).Handler)

		auditHandler := handlers.NewAuditHandler(cfg.Service, cfg.Audits, cfg.Cache, cfg.Metrics, cfg.Logger)

		r.Route("/audits", func(r chi.Router) {
			r.Post("/", auditHandler.Create)
			r.Get("/", auditHandler.List)
			r.Get("/diff", auditHandler.Diff)
			r.Get("/{id}", auditHandler.Get)
		})

		r.Get("/urls", auditHandler.ListURLs)
	})

	return &Router{
		Router: r,
		logger: cfg.Logger,
	}
}

// healthHandler returns basic health status
func healthHandler(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "sitepulse-api",
	})
}

// readyHandler checks if all dependencies are ready
func readyHandler(db *postgres.DB, cache *rediscache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]string)
		allHealthy := true

		if db != nil {
			if err := db.Health(r.Context()); err != nil {
				checks["database"] = "unhealthy: " + err.Error()
				allHealthy = false
			} else {
				checks["database"] = "healthy"
			}
		}

		if cache != nil {
			if err := cache.Health(r.Context()); err != nil {
				checks["redis"] = "unhealthy: " + err.Error()
				allHealthy = false
			} else {
				checks["redis"] = "healthy"
			}
		}

		status := http.StatusOK
		statusText := "ready"
		if !allHealthy {
			status = http.StatusServiceUnavailable
			statusText = "not ready"
		}

		httputil.JSON(w, status, map[string]any{
			"status": statusText,
			"checks": checks,
		})
	}
}
