// Package api provides the HTTP API for Outly.
package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/api/handler"
	"github.com/lucasmontegu/outly/internal/api/middleware"
	"github.com/lucasmontegu/outly/internal/auth"
	"github.com/lucasmontegu/outly/internal/confirmation"
	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/forecast"
	"github.com/lucasmontegu/outly/internal/gamification"
	"github.com/lucasmontegu/outly/internal/risk"
	"github.com/lucasmontegu/outly/internal/route"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version             string
	BuildTime           string
	Logger              zerolog.Logger
	ServiceName         string
	Metrics             *middleware.Metrics
	AuthService         *auth.Service
	EventService        *event.Service
	RiskService         *risk.Service
	ForecastService     *forecast.Service
	ConfirmationService *confirmation.Service
	RouteService        *route.Service
	GamificationService *gamification.Service
	ReadyCheck          func(ctx context.Context) error
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "outly-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.ReadyCheck)
	eventHandler := handler.NewEventHandler(cfg.EventService)
	riskHandler := handler.NewRiskHandler(cfg.RiskService, cfg.ForecastService)
	confirmationHandler := handler.NewConfirmationHandler(cfg.ConfirmationService)
	routeHandler := handler.NewRouteHandler(cfg.RouteService)
	gamificationHandler := handler.NewGamificationHandler(cfg.GamificationService)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.AuthService)

	// Create rate limit middleware for different endpoint categories
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Public read endpoints - standard rate limiting
		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/events", eventHandler.ListEvents)
			r.Get("/events/nearby", eventHandler.ListNearby)
			r.Get("/risk/current", riskHandler.GetCurrent)
			r.Get("/badges", gamificationHandler.ListBadges)
		})

		// Forecast projects eight slots per call - stricter rate limiting
		r.With(expensiveRateLimit).Get("/risk/forecast", riskHandler.GetForecast)

		// Event reporting and voting (authenticated) - user-based rate limiting.
		// Registered inline so the public GET /events above keeps its own chain.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			writeRateLimit := middleware.RateLimitByUser(middleware.WriteRateLimit) // 10 req/min per user
			r.With(writeRateLimit).Post("/events", eventHandler.ReportEvent)
			r.With(writeRateLimit).Post("/events/{eventId}/confirmations", confirmationHandler.Cast)
			r.With(middleware.RateLimitByUser(middleware.StandardRateLimit)).
				Get("/events/{eventId}/confirmations/me", confirmationHandler.GetMine)
		})

		// Me endpoints (authenticated) - user-based rate limiting
		r.Route("/me", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit)) // 100 req/min per user

			// Saved routes
			r.Route("/routes", func(r chi.Router) {
				r.Get("/", routeHandler.ListRoutes)
				r.Post("/", routeHandler.CreateRoute)
				r.Route("/{routeId}", func(r chi.Router) {
					r.Get("/", routeHandler.GetRoute)
					r.Put("/", routeHandler.UpdateRoute)
					r.Delete("/", routeHandler.DeleteRoute)
				})
			})
			r.Get("/routes:forecast", routeHandler.RouteForecasts)

			// Gamification
			r.Get("/stats", gamificationHandler.GetMyStats)
			r.Get("/badges", gamificationHandler.GetMyBadges)
		})
	})

	return r
}
