package route

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/api/models"
	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/forecast"
	"github.com/lucasmontegu/outly/internal/geo"
	"github.com/lucasmontegu/outly/internal/risk"
)

// Validation constants.
const (
	MaxLabelLength   = 80
	MaxRoutesPerUser = 20
)

// Service errors.
var (
	ErrTooManyRoutes = errors.New("route limit reached")
)

// timeHHMMRegex validates HH:mm format.
var timeHHMMRegex = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)

// Departure advice strings served on the dashboard.
const (
	RecommendLeaveNow = "Now is a good time to leave."
	RecommendWait     = "Conditions should ease shortly. Consider waiting 15 minutes."
)

// EventSource is the slice of the event store the forecast path reads.
type EventSource interface {
	ListInCells(ctx context.Context, cells []string, now time.Time) ([]*event.Event, error)
}

// ServiceConfig holds configuration for the route service.
type ServiceConfig struct {
	// Repository is the route store backend.
	Repository Repository

	// Events supplies active events for route forecasting.
	Events EventSource

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service provides route operations.
type Service struct {
	repo   Repository
	events EventSource
	logger zerolog.Logger
}

// NewService creates a new route service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:   cfg.Repository,
		events: cfg.Events,
		logger: cfg.Logger,
	}
}

// CreateInput holds the fields for creating a route.
type CreateInput struct {
	Label          string
	Origin         event.Point
	Destination    event.Point
	DaysOfWeek     []int
	AlertThreshold int
	AlertTimeLocal string
}

// UpdateInput holds the fields for updating a route. Nil fields are left
// unchanged.
type UpdateInput struct {
	Label          *string
	Origin         *event.Point
	Destination    *event.Point
	DaysOfWeek     []int
	AlertThreshold *int
	AlertTimeLocal *string
}

// List retrieves all routes for a user.
func (s *Service) List(ctx context.Context, userID string) ([]*Route, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get retrieves a route by ID for a user.
func (s *Service) Get(ctx context.Context, userID, routeID string) (*Route, error) {
	return s.repo.GetByUserAndID(ctx, userID, routeID)
}

// Create creates a new route for a user.
func (s *Service) Create(ctx context.Context, userID string, input CreateInput, now time.Time) (*Route, error) {
	if fieldErrors := validateCreateInput(&input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	existing, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= MaxRoutesPerUser {
		return nil, ErrTooManyRoutes
	}

	rt := &Route{
		ID:             "rt_" + uuid.New().String()[:22],
		UserID:         userID,
		Label:          input.Label,
		Origin:         input.Origin,
		Destination:    input.Destination,
		DaysOfWeek:     input.DaysOfWeek,
		AlertThreshold: input.AlertThreshold,
		AlertTimeLocal: input.AlertTimeLocal,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, rt); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("route_id", rt.ID).
		Str("user_id", userID).
		Msg("route created")

	return rt, nil
}

// Update updates an existing route for a user.
func (s *Service) Update(ctx context.Context, userID, routeID string, input UpdateInput, now time.Time) (*Route, error) {
	rt, err := s.repo.GetByUserAndID(ctx, userID, routeID)
	if err != nil {
		return nil, err
	}

	if fieldErrors := validateUpdateInput(&input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	if input.Label != nil {
		rt.Label = *input.Label
	}
	if input.Origin != nil {
		rt.Origin = *input.Origin
	}
	if input.Destination != nil {
		rt.Destination = *input.Destination
	}
	if input.DaysOfWeek != nil {
		rt.DaysOfWeek = input.DaysOfWeek
	}
	if input.AlertThreshold != nil {
		rt.AlertThreshold = *input.AlertThreshold
	}
	if input.AlertTimeLocal != nil {
		rt.AlertTimeLocal = *input.AlertTimeLocal
	}
	rt.UpdatedAt = now

	if err := s.repo.Update(ctx, rt); err != nil {
		return nil, err
	}

	return rt, nil
}

// Delete deletes a route for a user.
func (s *Service) Delete(ctx context.Context, userID, routeID string) error {
	// Verify ownership
	if _, err := s.repo.GetByUserAndID(ctx, userID, routeID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, routeID)
}

// Status is the dashboard view of one route: its score plus departure
// advice.
type Status struct {
	Route          *Route
	Score          int
	Classification risk.Classification
	Recommendation string

	// FromCache is true when the cached score was recent enough to serve
	// without touching the event store.
	FromCache bool

	AsOf time.Time
}

// RoutesWithForecast returns the status of every route the user monitors.
// When every route's cache is fresh the cached scores are served directly.
// Otherwise the grid cells of all stale routes are unioned into one event
// query and each stale route is scored from that shared read.
func (s *Service) RoutesWithForecast(ctx context.Context, userID string, asOf time.Time) ([]*Status, error) {
	asOf = risk.FloorMinute(asOf)

	routes, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var stale []*Route
	for _, rt := range routes {
		if !rt.CacheFresh(asOf) {
			stale = append(stale, rt)
		}
	}

	var events []*event.Event
	if len(stale) > 0 {
		events, err = s.events.ListInCells(ctx, unionCells(stale), asOf)
		if err != nil {
			return nil, err
		}
	}

	statuses := make([]*Status, 0, len(routes))
	for _, rt := range routes {
		if rt.CacheFresh(asOf) {
			statuses = append(statuses, cachedStatus(rt, asOf))
			continue
		}
		statuses = append(statuses, s.liveStatus(rt, events, asOf))
	}
	return statuses, nil
}

// cachedStatus serves a route straight from its cached score.
func cachedStatus(rt *Route, asOf time.Time) *Status {
	rec := RecommendWait
	if risk.Classify(*rt.CachedScore) == risk.ClassificationLow {
		rec = RecommendLeaveNow
	}
	return &Status{
		Route:          rt,
		Score:          *rt.CachedScore,
		Classification: *rt.CachedClassification,
		Recommendation: rec,
		FromCache:      true,
		AsOf:           *rt.CachedAt,
	}
}

// liveStatus scores a route from the shared event read. Risk is evaluated
// at the origin, where the journey starts; advice compares leaving now with
// leaving one slot later.
func (s *Service) liveStatus(rt *Route, events []*event.Event, asOf time.Time) *Status {
	base := forecast.BaseFrom(rt.Origin.Lat, rt.Origin.Lng, events)
	now := forecast.Project(base, 0, asOf)
	next := forecast.Project(base, 1, asOf.Add(forecast.SlotInterval))

	rec := RecommendLeaveNow
	if next.Score < now.Score {
		rec = RecommendWait
	}

	return &Status{
		Route:          rt,
		Score:          now.Score,
		Classification: now.Classification,
		Recommendation: rec,
		AsOf:           asOf,
	}
}

// RecomputeCache rescores every saved route and refreshes the cached score
// fields. One event query covers all routes. Returns the number of routes
// refreshed; a route that fails to persist is logged and skipped so one bad
// row never stalls the sweep.
func (s *Service) RecomputeCache(ctx context.Context, now time.Time) (int, error) {
	now = risk.FloorMinute(now)

	routes, err := s.repo.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(routes) == 0 {
		return 0, nil
	}

	events, err := s.events.ListInCells(ctx, unionCells(routes), now)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, rt := range routes {
		base := forecast.BaseFrom(rt.Origin.Lat, rt.Origin.Lng, events)
		slot := forecast.Project(base, 0, now)

		if err := s.repo.UpdateCache(ctx, rt.ID, slot.Score, slot.Classification, now); err != nil {
			s.logger.Error().
				Err(err).
				Str("route_id", rt.ID).
				Msg("route cache update failed")
			continue
		}
		updated++
	}

	s.logger.Debug().
		Int("updated", updated).
		Int("routes", len(routes)).
		Msg("route cache recomputed")

	return updated, nil
}

// unionCells merges the covering cells of every route's origin into one
// deduplicated list.
func unionCells(routes []*Route) []string {
	seen := make(map[string]bool)
	var cells []string
	for _, rt := range routes {
		for _, c := range geo.CoveringCells(rt.Origin.Lat, rt.Origin.Lng, risk.DefaultQueryRadiusKm) {
			if seen[c] {
				continue
			}
			seen[c] = true
			cells = append(cells, c)
		}
	}
	return cells
}

// validateCreateInput validates the create route input.
func validateCreateInput(input *CreateInput) []models.FieldError {
	var errs []models.FieldError

	if input.Label == "" {
		errs = append(errs, models.FieldError{Field: "label", Message: "is required"})
	} else if len(input.Label) > MaxLabelLength {
		errs = append(errs, models.FieldError{Field: "label", Message: "must be at most 80 characters"})
	}

	errs = append(errs, validatePoint(input.Origin, "origin")...)
	errs = append(errs, validatePoint(input.Destination, "destination")...)
	errs = append(errs, validateDaysOfWeek(input.DaysOfWeek, true)...)
	errs = append(errs, validateAlertThreshold(input.AlertThreshold)...)

	if input.AlertTimeLocal != "" && !timeHHMMRegex.MatchString(input.AlertTimeLocal) {
		errs = append(errs, models.FieldError{Field: "alertTimeLocal", Message: "must be in HH:mm format"})
	}

	return errs
}

// validateUpdateInput validates the update route input.
func validateUpdateInput(input *UpdateInput) []models.FieldError {
	var errs []models.FieldError

	if input.Label != nil {
		if *input.Label == "" {
			errs = append(errs, models.FieldError{Field: "label", Message: "cannot be empty"})
		} else if len(*input.Label) > MaxLabelLength {
			errs = append(errs, models.FieldError{Field: "label", Message: "must be at most 80 characters"})
		}
	}
	if input.Origin != nil {
		errs = append(errs, validatePoint(*input.Origin, "origin")...)
	}
	if input.Destination != nil {
		errs = append(errs, validatePoint(*input.Destination, "destination")...)
	}
	if input.DaysOfWeek != nil {
		errs = append(errs, validateDaysOfWeek(input.DaysOfWeek, false)...)
	}
	if input.AlertThreshold != nil {
		errs = append(errs, validateAlertThreshold(*input.AlertThreshold)...)
	}
	if input.AlertTimeLocal != nil && *input.AlertTimeLocal != "" && !timeHHMMRegex.MatchString(*input.AlertTimeLocal) {
		errs = append(errs, models.FieldError{Field: "alertTimeLocal", Message: "must be in HH:mm format"})
	}

	return errs
}

func validatePoint(p event.Point, prefix string) []models.FieldError {
	var errs []models.FieldError

	if p.Lat < -90 || p.Lat > 90 {
		errs = append(errs, models.FieldError{
			Field:   prefix + ".lat",
			Message: "must be between -90 and 90",
		})
	}
	if p.Lng < -180 || p.Lng > 180 {
		errs = append(errs, models.FieldError{
			Field:   prefix + ".lng",
			Message: "must be between -180 and 180",
		})
	}

	return errs
}

func validateDaysOfWeek(days []int, required bool) []models.FieldError {
	if len(days) == 0 {
		if required {
			return []models.FieldError{{Field: "daysOfWeek", Message: "is required"}}
		}
		return []models.FieldError{{Field: "daysOfWeek", Message: "cannot be empty"}}
	}
	for _, day := range days {
		if day < 1 || day > 7 {
			return []models.FieldError{{Field: "daysOfWeek", Message: "must contain values between 1 and 7"}}
		}
	}
	return nil
}

func validateAlertThreshold(threshold int) []models.FieldError {
	if threshold < 0 || threshold > 100 {
		return []models.FieldError{{Field: "alertThreshold", Message: "must be between 0 and 100"}}
	}
	return nil
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
