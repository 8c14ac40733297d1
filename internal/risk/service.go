package risk

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/geo"
)

// DefaultQueryRadiusKm bounds how far events influence a location's score.
// It matches the 10 km falloff of the live impact formula.
const DefaultQueryRadiusKm = 10.0

// EventSource is the slice of the event store the scoring engine reads.
type EventSource interface {
	ListNearby(ctx context.Context, lat, lng, radiusKm float64, now time.Time) ([]*event.Event, error)
}

// ServiceConfig holds configuration for the risk service.
type ServiceConfig struct {
	// Repository stores computed snapshots.
	Repository Repository

	// Events supplies nearby events for both scoring paths.
	Events EventSource

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service computes and stores risk scores.
type Service struct {
	repo   Repository
	events EventSource
	logger zerolog.Logger
}

// NewService creates a new risk service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:   cfg.Repository,
		events: cfg.Events,
		logger: cfg.Logger,
	}
}

// Calculate computes and stores the snapshot for a monitored location using
// the stored-snapshot weighting (0.4/0.4/0.2). The ingestion cycle calls
// this once per monitored grid cell with whatever feed data it managed to
// fetch; nil weather or traffic degrades to a zero subscore.
func (s *Service) Calculate(ctx context.Context, loc event.Point, weather *WeatherConditions, traffic *TrafficConditions, now time.Time) (*RiskSnapshot, error) {
	now = FloorMinute(now)

	nearby, err := s.events.ListNearby(ctx, loc.Lat, loc.Lng, DefaultQueryRadiusKm, now)
	if err != nil {
		return nil, err
	}

	weatherScore := WeatherSubscore(weather)
	trafficScore := TrafficSubscore(traffic)
	eventScore := EventSubscoreSnapshot(nearby)
	score := CombineSnapshot(weatherScore, trafficScore, eventScore)

	gridCell := geo.CellID(loc.Lat, loc.Lng)

	previous := 0
	if prev, err := s.repo.GetLatest(ctx, gridCell); err == nil {
		previous = prev.Score
	}

	snapshot := &RiskSnapshot{
		ID:             "rsk_" + uuid.New().String()[:22],
		Location:       loc,
		GridCell:       gridCell,
		Score:          score,
		PreviousScore:  previous,
		Classification: Classify(score),
		WeatherScore:   weatherScore,
		TrafficScore:   trafficScore,
		EventScore:     eventScore,
		Weather:        weather,
		Traffic:        traffic,
		CalculatedAt:   now,
	}

	if err := s.repo.ReplaceLatest(ctx, snapshot); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("grid_cell", gridCell).
		Int("score", score).
		Int("previous", previous).
		Str("classification", string(snapshot.Classification)).
		Msg("risk snapshot stored")

	return snapshot, nil
}

// GetCurrentRisk answers a live coordinate query using the
// distance/confidence-weighted impact of nearby events and the live
// weighting (0.35/0.45/0.2). Pure read; never mutates state.
func (s *Service) GetCurrentRisk(ctx context.Context, lat, lng float64, asOf time.Time) (*CurrentRisk, error) {
	asOf = FloorMinute(asOf)

	nearby, err := s.events.ListNearby(ctx, lat, lng, DefaultQueryRadiusKm, asOf)
	if err != nil {
		return nil, err
	}

	impact := EventImpactAt(lat, lng, nearby)
	score := CombineLive(impact.WeatherScore, impact.TrafficScore, impact.EventScore)

	return &CurrentRisk{
		Score:          score,
		Classification: Classify(score),
		Description:    Describe(score),
		WeatherScore:   impact.WeatherScore,
		TrafficScore:   impact.TrafficScore,
		EventScore:     impact.EventScore,
		AsOf:           asOf,
	}, nil
}

// GetSnapshot retrieves the latest stored snapshot for a coordinate's cell.
func (s *Service) GetSnapshot(ctx context.Context, lat, lng float64) (*RiskSnapshot, error) {
	return s.repo.GetLatest(ctx, geo.CellID(lat, lng))
}
