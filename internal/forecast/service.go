package forecast

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/risk"
)

// EventSource is the slice of the event store the forecast engine reads.
type EventSource interface {
	ListNearby(ctx context.Context, lat, lng, radiusKm float64, now time.Time) ([]*event.Event, error)
}

// Forecast is the full slot projection for one coordinate.
type Forecast struct {
	// CurrentScore and CurrentClassification mirror the first slot, the
	// "leave right now" option.
	CurrentScore          int
	CurrentClassification risk.Classification

	Slots []Slot

	// OptimalIndex points at the slot with the strictly lowest score,
	// earliest on ties. OptimalDeparture is that slot's start time.
	OptimalIndex     int
	OptimalDeparture time.Time

	AsOf time.Time
}

// ServiceConfig holds configuration for the forecast service.
type ServiceConfig struct {
	// Events supplies nearby events for the projection base.
	Events EventSource

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service projects departure slot forecasts.
type Service struct {
	events EventSource
	logger zerolog.Logger
}

// NewService creates a new forecast service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		events: cfg.Events,
		logger: cfg.Logger,
	}
}

// At computes the forecast for a coordinate. The event store is read once;
// every slot is projected from the same base so the slots never disagree
// about the underlying conditions.
func (s *Service) At(ctx context.Context, lat, lng float64, asOf time.Time) (*Forecast, error) {
	asOf = risk.FloorMinute(asOf)

	nearby, err := s.events.ListNearby(ctx, lat, lng, risk.DefaultQueryRadiusKm, asOf)
	if err != nil {
		return nil, err
	}

	base := BaseFrom(lat, lng, nearby)
	return projectAll(base, asOf), nil
}

// projectAll builds the slot list and picks the optimal departure. Split
// from At so route forecasting can reuse a base derived from a batched
// event query.
func projectAll(base Base, asOf time.Time) *Forecast {
	slots := make([]Slot, 0, SlotCount)
	optimal := 0
	for i := 0; i < SlotCount; i++ {
		slot := Project(base, i, asOf.Add(time.Duration(i)*SlotInterval))
		slot.MinutesFromNow = i * int(SlotInterval/time.Minute)
		slots = append(slots, slot)

		// Strictly lower only: ties keep the earliest slot.
		if slot.Score < slots[optimal].Score {
			optimal = i
		}
	}

	return &Forecast{
		CurrentScore:          slots[0].Score,
		CurrentClassification: slots[0].Classification,
		Slots:                 slots,
		OptimalIndex:          optimal,
		OptimalDeparture:      slots[optimal].Time,
		AsOf:                  asOf,
	}
}

// ProjectBase computes the forecast for a precomputed base. The route batch
// path derives one base per route from a shared event query and calls this
// instead of At.
func ProjectBase(base Base, asOf time.Time) *Forecast {
	return projectAll(base, risk.FloorMinute(asOf))
}
