// Package main provides the entrypoint for the Outly background worker.
// It runs the periodic refresh cycle (providers, event sweep, route caches)
// and optionally consumes Pub/Sub job messages.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/database"
	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/ingest"
	"github.com/lucasmontegu/outly/internal/ingest/here"
	"github.com/lucasmontegu/outly/internal/ingest/openweathermap"
	"github.com/lucasmontegu/outly/internal/ingest/tomorrowio"
	"github.com/lucasmontegu/outly/internal/risk"
	"github.com/lucasmontegu/outly/internal/route"
	"github.com/lucasmontegu/outly/internal/telemetry"
	"github.com/lucasmontegu/outly/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "outly-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Outly worker")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Enabled:        os.Getenv("OTEL_ENABLED") == "true",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Initialize services
	eventService := event.NewService(event.ServiceConfig{
		Repository: event.NewPostgresRepository(pool),
		Logger:     log,
	})
	riskService := risk.NewService(risk.ServiceConfig{
		Repository: risk.NewPostgresRepository(pool),
		Events:     eventService,
		Logger:     log,
	})
	routeService := route.NewService(route.ServiceConfig{
		Repository: route.NewPostgresRepository(pool),
		Events:     eventService,
		Logger:     log,
	})

	// Initialize provider clients. A missing API key disables that provider;
	// the ingestor degrades the matching subscore to zero.
	ingestorCfg := ingest.Config{
		Events: eventService,
		Risk:   riskService,
		Logger: log,
	}
	if providerMetrics, err := ingest.NewProviderMetrics(); err != nil {
		log.Warn().Err(err).Msg("provider metrics unavailable")
	} else {
		ingestorCfg.Metrics = providerMetrics
	}
	if key := os.Getenv("OPENWEATHERMAP_API_KEY"); key != "" {
		ingestorCfg.Weather = openweathermap.NewClient(openweathermap.ClientConfig{APIKey: key})
		log.Info().Msg("openweathermap provider enabled")
	} else {
		log.Warn().Msg("OPENWEATHERMAP_API_KEY not set - weather fetch disabled")
	}
	if key := os.Getenv("TOMORROW_API_KEY"); key != "" {
		ingestorCfg.Nowcast = tomorrowio.NewClient(tomorrowio.ClientConfig{APIKey: key})
		log.Info().Msg("tomorrow.io provider enabled")
	} else {
		log.Warn().Msg("TOMORROW_API_KEY not set - nowcast fetch disabled")
	}
	if key := os.Getenv("HERE_API_KEY"); key != "" {
		ingestorCfg.Traffic = here.NewClient(here.ClientConfig{APIKey: key})
		log.Info().Msg("here traffic provider enabled")
	} else {
		log.Warn().Msg("HERE_API_KEY not set - traffic fetch disabled")
	}

	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.DefaultRefreshConfig(),
		Logger:   log,
		Ingestor: ingest.NewIngestor(ingestorCfg),
		Events:   eventService,
		Routes:   routeService,
	})

	// Health endpoint for the container runtime, with job metrics attached.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"version": Version,
			"metrics": refreshJob.MetricsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	// Pub/Sub consumption is optional; the ticker loop below covers
	// deployments without a broker.
	if projectID := os.Getenv("PUBSUB_PROJECT_ID"); projectID != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: envOr("PUBSUB_SUBSCRIPTION", "outly-worker-jobs"),
			RefreshJob:       refreshJob,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(ctx); err != nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	}

	interval := 15 * time.Minute
	if raw := os.Getenv("REFRESH_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatal().Err(err).Str("value", raw).Msg("invalid REFRESH_INTERVAL")
		}
		interval = parsed
	}

	go func() {
		log.Info().Dur("interval", interval).Msg("refresh loop started")

		// Run once at startup so a fresh deploy has data immediately.
		refreshJob.Run(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				refreshJob.Run(ctx)
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
