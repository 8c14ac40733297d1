package risk

import (
	"errors"
	"time"

	"github.com/lucasmontegu/outly/internal/event"
)

// Repository errors.
var (
	ErrSnapshotNotFound = errors.New("risk snapshot not found")
)

// RiskSnapshot is the computed score for one monitored location. Exactly one
// latest snapshot is retained per location; writing a new one deletes the
// previous. It is a cache of the last calculation, not a history log.
type RiskSnapshot struct {
	ID             string
	Location       event.Point
	GridCell       string
	Score          int
	PreviousScore  int
	Classification Classification
	WeatherScore   int
	TrafficScore   int
	EventScore     int
	// Weather and Traffic are the raw inputs the score was computed from,
	// kept for debugging and re-scoring. Either may be nil when the feed
	// was unavailable.
	Weather      *WeatherConditions
	Traffic      *TrafficConditions
	CalculatedAt time.Time
}

// CurrentRisk is the live-path answer for a coordinate query.
type CurrentRisk struct {
	Score          int
	Classification Classification
	Description    string
	WeatherScore   int
	TrafficScore   int
	EventScore     int
	AsOf           time.Time
}
