// Package ingest pulls weather and traffic conditions from external
// providers, turns alerts and incidents into store events, and feeds the
// risk calculator.
package ingest

import (
	"context"
	"time"

	"github.com/lucasmontegu/outly/internal/event"
)

// WeatherReport is the normalized current-conditions payload from a weather
// provider.
type WeatherReport struct {
	PrecipMMPerHour float64
	WindKMH         float64

	// VisibilityM is meters of visibility; zero or negative means the
	// provider did not report it.
	VisibilityM float64

	Alerts []Alert
}

// Alert is an active severe weather warning.
type Alert struct {
	Event       string
	Severity    int
	Description string
	Sender      string
	Start       time.Time
	End         time.Time
}

// Nowcast is the minute-scale precipitation outlook from a nowcast provider.
type Nowcast struct {
	// MaxPrecipMMPerHour is the peak precipitation intensity across the
	// nowcast horizon.
	MaxPrecipMMPerHour float64
}

// TrafficReport is the normalized congestion payload from a traffic
// provider.
type TrafficReport struct {
	// JamFactor grades congestion 0 (free flow) to 10 (standstill).
	JamFactor float64

	Incidents []Incident
}

// Incident is a reported traffic disruption.
type Incident struct {
	ID          string
	Type        string
	Severity    int
	Description string
	Location    event.Point

	// Shape traces the affected road stretch; empty when the provider
	// only gave a point location.
	Shape []event.Point

	EndTime time.Time
}

// WeatherProvider fetches current conditions and active alerts.
type WeatherProvider interface {
	Name() string
	Current(ctx context.Context, lat, lng float64) (*WeatherReport, error)
}

// NowcastProvider fetches short-horizon precipitation intensity.
type NowcastProvider interface {
	Name() string
	Nowcast(ctx context.Context, lat, lng float64) (*Nowcast, error)
}

// TrafficProvider fetches congestion levels and incidents around a point.
type TrafficProvider interface {
	Name() string
	Traffic(ctx context.Context, lat, lng, radiusKm float64) (*TrafficReport, error)
}
