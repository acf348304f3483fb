// Package api provides the HTTP API of the environmental health dashboard.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/breatheroute/envhealth/internal/api/handler"
	"github.com/breatheroute/envhealth/internal/api/middleware"
	"github.com/breatheroute/envhealth/internal/dashboard"
	"github.com/breatheroute/envhealth/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	RequireTLS  bool

	// Metrics records HTTP metrics (optional).
	Metrics *middleware.Metrics

	// Sessions owns the open dashboards (required).
	Sessions *dashboard.Manager

	// Registry reports upstream health (optional).
	Registry *resilience.Registry
}

// NewRouter creates a chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "envhealth-dashboard"
	}

	// Request ID first so every later middleware can log it.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.Sessions)
	sessionHandler := handler.NewSessionHandler(cfg.Sessions, cfg.Logger)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.With(middleware.RateLimitByIP(middleware.StandardRateLimit)).Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.With(middleware.RateLimitByIP(middleware.SessionCreateRateLimit)).Post("/", sessionHandler.CreateSession)

			r.Route("/{sessionId}", func(r chi.Router) {
				r.Use(middleware.RateLimitBySession(middleware.DashboardRateLimit))
				r.Delete("/", sessionHandler.CloseSession)
				r.Get("/dashboard", sessionHandler.GetDashboard)
				r.Post("/domains/{domain}/refetch", sessionHandler.RefetchDomain)
			})
		})
	})

	return r
}
