// Package main provides the entrypoint for the Outly API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/api"
	"github.com/lucasmontegu/outly/internal/api/middleware"
	"github.com/lucasmontegu/outly/internal/auth"
	"github.com/lucasmontegu/outly/internal/confirmation"
	"github.com/lucasmontegu/outly/internal/database"
	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/forecast"
	"github.com/lucasmontegu/outly/internal/gamification"
	"github.com/lucasmontegu/outly/internal/risk"
	"github.com/lucasmontegu/outly/internal/route"
	"github.com/lucasmontegu/outly/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "outly-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Outly API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Initialize auth service (token verification only; the identity
	// provider handles sign-in and refresh)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	authService := auth.NewService(auth.Config{
		SigningKey: jwtSigningKey,
		Issuer:     envOr("JWT_ISSUER", "https://id.outly.app"),
		Audience:   envOr("JWT_AUDIENCE", "outly-api"),
	})
	log.Info().Msg("auth service initialized")

	// Initialize event store
	eventRepo := event.NewPostgresRepository(pool)
	eventService := event.NewService(event.ServiceConfig{
		Repository: eventRepo,
		Logger:     log,
	})
	log.Info().Msg("event service initialized")

	// Initialize risk scoring
	riskService := risk.NewService(risk.ServiceConfig{
		Repository: risk.NewPostgresRepository(pool),
		Events:     eventService,
		Logger:     log,
	})
	forecastService := forecast.NewService(forecast.ServiceConfig{
		Events: eventService,
		Logger: log,
	})
	log.Info().Msg("risk and forecast services initialized")

	// Initialize gamification and confirmation voting
	gamificationService := gamification.NewService(gamification.ServiceConfig{
		Repository: gamification.NewPostgresRepository(pool),
		Logger:     log,
	})
	confirmationService := confirmation.NewService(confirmation.ServiceConfig{
		Events:        eventRepo,
		Confirmations: confirmation.NewPostgresRepository(pool),
		Gamification:  gamificationService,
		Tx:            database.NewPoolTxRunner(pool),
		Logger:        log,
	})
	log.Info().Msg("confirmation service initialized")

	// Initialize saved routes
	routeService := route.NewService(route.ServiceConfig{
		Repository: route.NewPostgresRepository(pool),
		Events:     eventService,
		Logger:     log,
	})
	log.Info().Msg("route service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:             Version,
		BuildTime:           BuildTime,
		Logger:              log,
		ServiceName:         serviceName,
		Metrics:             metrics,
		AuthService:         authService,
		EventService:        eventService,
		RiskService:         riskService,
		ForecastService:     forecastService,
		ConfirmationService: confirmationService,
		RouteService:        routeService,
		GamificationService: gamificationService,
		ReadyCheck:          pool.Ping,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
