package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/geo"
)

// ServiceConfig holds configuration for the event service.
type ServiceConfig struct {
	// Repository is the event store backend.
	Repository Repository

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service provides event store operations.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new event service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}
}

// ReportInput is a user-submitted event report.
type ReportInput struct {
	Type     Type
	Subtype  string
	Location Point
	Severity int
}

// ReportUserEvent creates an event from a user report. User reports start at
// confidence 60 with a one hour TTL. Requires an authenticated caller.
func (s *Service) ReportUserEvent(ctx context.Context, userID string, input ReportInput, now time.Time) (*Event, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	ev := &Event{
		ID:              newEventID(),
		Type:            input.Type,
		Subtype:         input.Subtype,
		Location:        input.Location,
		Severity:        ClampSeverity(input.Severity),
		Source:          SourceUser,
		ConfidenceScore: UserReportConfidence,
		TTL:             now.Add(UserReportTTL),
		GridCell:        geo.CellID(input.Location.Lat, input.Location.Lng),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, ev); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("event_id", ev.ID).
		Str("type", string(ev.Type)).
		Str("subtype", ev.Subtype).
		Str("grid_cell", ev.GridCell).
		Msg("user event reported")

	return ev, nil
}

// FeedInput is an event produced by the ingestion adapter.
type FeedInput struct {
	Type         Type
	Subtype      string
	Location     Point
	RoutePoints  []Point
	RadiusMeters float64
	Severity     int
	Source       Source
	TTL          time.Time
	RawData      *RawData
}

// UpsertFromFeed creates an event from the ingestion adapter. Feed events
// are trusted unconditionally at ingestion time and start at confidence 100.
// Never called on behalf of end users.
func (s *Service) UpsertFromFeed(ctx context.Context, input FeedInput, now time.Time) (*Event, error) {
	ev := &Event{
		ID:              newEventID(),
		Type:            input.Type,
		Subtype:         input.Subtype,
		Location:        input.Location,
		RoutePoints:     input.RoutePoints,
		RadiusMeters:    input.RadiusMeters,
		Severity:        ClampSeverity(input.Severity),
		Source:          input.Source,
		ConfidenceScore: FeedConfidence,
		TTL:             input.TTL,
		RawData:         input.RawData,
		GridCell:        geo.CellID(input.Location.Lat, input.Location.Lng),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, ev); err != nil {
		return nil, err
	}

	return ev, nil
}

// Get retrieves an event by ID.
func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	return s.repo.Get(ctx, id)
}

// ListActive retrieves all active events, optionally filtered by type.
func (s *Service) ListActive(ctx context.Context, typ *Type, now time.Time) ([]*Event, error) {
	return s.repo.ListActive(ctx, typ, now)
}

// ListNearby retrieves active events within radiusKm of the given
// coordinate. The grid index narrows the candidate set first; candidates are
// then deduplicated by id and filtered by exact great-circle distance. The
// two-phase filter is what keeps nearby queries from scanning the whole
// store.
func (s *Service) ListNearby(ctx context.Context, lat, lng, radiusKm float64, now time.Time) ([]*Event, error) {
	cells := geo.CoveringCells(lat, lng, radiusKm)

	candidates, err := s.repo.ListByCells(ctx, cells, now)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(candidates))
	var out []*Event
	for _, ev := range candidates {
		if seen[ev.ID] {
			continue
		}
		seen[ev.ID] = true

		if geo.DistanceKm(lat, lng, ev.Location.Lat, ev.Location.Lng) > radiusKm {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// ListInCells retrieves active events in a precomputed cell union,
// deduplicated by id. Used by the route batch path, which builds one cell
// union across all stale routes so events are queried once, not per route.
func (s *Service) ListInCells(ctx context.Context, cells []string, now time.Time) ([]*Event, error) {
	candidates, err := s.repo.ListByCells(ctx, cells, now)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(candidates))
	var out []*Event
	for _, ev := range candidates {
		if seen[ev.ID] {
			continue
		}
		seen[ev.ID] = true
		out = append(out, ev)
	}
	return out, nil
}

// SweepExpired deletes all events whose TTL has passed. Idempotent and safe
// to run on any schedule.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	deleted, err := s.repo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.logger.Info().
			Int64("deleted", deleted).
			Msg("expired events swept")
	}
	return deleted, nil
}

func newEventID() string {
	return "evt_" + uuid.New().String()[:22]
}
