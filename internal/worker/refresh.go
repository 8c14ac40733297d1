package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/ingest"
)

// Ingestor runs a provider fetch cycle for a set of monitored points.
type Ingestor interface {
	Cycle(ctx context.Context, points []event.Point, now time.Time) ingest.CycleStats
}

// EventSweeper removes expired events from the store.
type EventSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// RouteRecomputer refreshes the cached score on every saved route.
type RouteRecomputer interface {
	RecomputeCache(ctx context.Context, now time.Time) (int, error)
}

// RefreshJob runs the periodic refresh: sweep expired events, fetch
// conditions for every monitored point, then recompute route caches.
type RefreshJob struct {
	config RefreshConfig
	logger zerolog.Logger

	// Collaborators (optional, nil skips that stage)
	ingestor Ingestor
	events   EventSweeper
	routes   RouteRecomputer

	// Metrics
	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRefreshes   int64
	EventsCreated    int64
	Snapshots        int64
	ProviderErrors   int64
	ExpiredSwept     int64
	RoutesRecomputed int64

	// Timings
	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	TotalDuration       time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config   RefreshConfig
	Logger   zerolog.Logger
	Ingestor Ingestor
	Events   EventSweeper
	Routes   RouteRecomputer
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config = DefaultRefreshConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &RefreshJob{
		config:   config,
		logger:   cfg.Logger,
		ingestor: cfg.Ingestor,
		events:   cfg.Events,
		routes:   cfg.Routes,
		metrics:  &RefreshMetrics{},
	}
}

// RefreshResult contains the result of one refresh run.
type RefreshResult struct {
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
	TotalPoints      int
	EventsCreated    int
	Snapshots        int
	ProviderErrors   int
	ExpiredSwept     int64
	RoutesRecomputed int
}

// Run executes the refresh job for all configured targets.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := time.Now().UTC()
	result := &RefreshResult{
		StartTime:   startTime,
		TotalPoints: j.config.TotalPoints(),
	}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Msg("starting refresh job")

	if j.config.SweepExpired && j.events != nil {
		swept, err := j.events.SweepExpired(ctx, startTime)
		if err != nil {
			j.logger.Error().Err(err).Msg("expired event sweep failed")
		} else {
			result.ExpiredSwept = swept
		}
	}

	if j.ingestor != nil {
		j.runCycle(ctx, startTime, result)
	}

	if j.config.RecomputeRoutes && j.routes != nil {
		recomputed, err := j.routes.RecomputeCache(ctx, time.Now().UTC())
		if err != nil {
			j.logger.Error().Err(err).Msg("route cache recompute failed")
		} else {
			result.RoutesRecomputed = recomputed
		}
	}

	result.EndTime = time.Now().UTC()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("events_created", result.EventsCreated).
		Int("snapshots", result.Snapshots).
		Int("provider_errors", result.ProviderErrors).
		Int64("expired_swept", result.ExpiredSwept).
		Int("routes_recomputed", result.RoutesRecomputed).
		Msg("refresh job completed")

	return result
}

// runCycle fans the monitored points out over a bounded worker pool. Each
// point gets its own timeout so one slow provider cannot stall the run.
func (j *RefreshJob) runCycle(ctx context.Context, now time.Time, result *RefreshResult) {
	points := j.config.AllPoints()

	pointsChan := make(chan event.Point, len(points))
	resultsChan := make(chan ingest.CycleStats, len(points))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range pointsChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
				stats := j.ingestor.Cycle(pointCtx, []event.Point{p}, now)
				cancel()

				resultsChan <- stats
			}
		}()
	}

	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for stats := range resultsChan {
		result.EventsCreated += stats.EventsCreated
		result.Snapshots += stats.Snapshots
		result.ProviderErrors += stats.ProviderErrors
	}
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRefreshes++
	j.metrics.EventsCreated += int64(result.EventsCreated)
	j.metrics.Snapshots += int64(result.Snapshots)
	j.metrics.ProviderErrors += int64(result.ProviderErrors)
	j.metrics.ExpiredSwept += result.ExpiredSwept
	j.metrics.RoutesRecomputed += int64(result.RoutesRecomputed)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRefreshes:      j.metrics.TotalRefreshes,
		EventsCreated:       j.metrics.EventsCreated,
		Snapshots:           j.metrics.Snapshots,
		ProviderErrors:      j.metrics.ProviderErrors,
		ExpiredSwept:        j.metrics.ExpiredSwept,
		RoutesRecomputed:    j.metrics.RoutesRecomputed,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_refreshes":       m.TotalRefreshes,
		"events_created":        m.EventsCreated,
		"snapshots":             m.Snapshots,
		"provider_errors":       m.ProviderErrors,
		"expired_swept":         m.ExpiredSwept,
		"routes_recomputed":     m.RoutesRecomputed,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
		"total_duration":        m.TotalDuration.String(),
	}
}
