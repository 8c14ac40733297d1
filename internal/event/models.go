// Package event provides the transient hazard event store.
//
// Events are short-lived, location-anchored observations (heavy rain, a
// traffic jam, a user report) with a decaying confidence score and an
// absolute expiry. An event whose TTL has passed or whose confidence has
// dropped to 20 or below is inactive and excluded from every read path;
// physical deletion happens separately in the expiry sweep.
package event

import (
	"errors"
	"time"
)

// Repository and service errors.
var (
	ErrEventNotFound   = errors.New("event not found")
	ErrUnauthenticated = errors.New("caller identity required")
)

// Type classifies an event as weather- or traffic-related.
type Type string

// Event types.
const (
	TypeWeather Type = "weather"
	TypeTraffic Type = "traffic"
)

// Source identifies where an event came from.
type Source string

// Event sources. API-sourced events are trusted unconditionally at ingestion
// time; user reports start at a lower confidence and a short TTL.
const (
	SourceOpenWeatherMap Source = "openweathermap"
	SourceTomorrow       Source = "tomorrow"
	SourceHere           Source = "here"
	SourceUser           Source = "user"
)

// Confidence and lifetime constants.
const (
	// MinActiveConfidence is the confidence floor below which an event is
	// treated as inactive on all read paths.
	MinActiveConfidence = 20

	// UserReportConfidence is the starting confidence for user reports.
	UserReportConfidence = 60

	// FeedConfidence is the starting confidence for API-sourced events.
	FeedConfidence = 100

	// UserReportTTL is the initial lifetime of a user report.
	UserReportTTL = 1 * time.Hour
)

// Point is a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Event is a transient, location-anchored observation.
type Event struct {
	ID              string
	Type            Type
	Subtype         string
	Location        Point
	RoutePoints     []Point
	RadiusMeters    float64
	Severity        int
	Source          Source
	ConfidenceScore int
	TTL             time.Time
	RawData         *RawData
	GridCell        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Active reports whether the event should be visible on read paths.
func (e *Event) Active(now time.Time) bool {
	return e.TTL.After(now) && e.ConfidenceScore > MinActiveConfidence
}

// Expired reports whether the event is eligible for the expiry sweep.
func (e *Event) Expired(now time.Time) bool {
	return !e.TTL.After(now)
}

// RawData is the source payload kept alongside an event, tagged by source so
// downstream code only sees the variant its adapter produced.
type RawData struct {
	Source   Source           `json:"source"`
	Alert    *AlertPayload    `json:"alert,omitempty"`
	Incident *IncidentPayload `json:"incident,omitempty"`
}

// AlertPayload carries the fields of a severe weather alert the scoring side
// needs (severity mapping, validity window).
type AlertPayload struct {
	Event    string     `json:"event"`
	Severity string     `json:"severity,omitempty"`
	Sender   string     `json:"sender,omitempty"`
	Start    *time.Time `json:"start,omitempty"`
	End      *time.Time `json:"end,omitempty"`
}

// IncidentPayload carries the fields of a traffic incident used downstream
// (incident location extraction, expiry).
type IncidentPayload struct {
	Type         string     `json:"type"`
	Severity     int        `json:"severity"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	EncodedShape string     `json:"encodedShape,omitempty"`
}

// ClampSeverity clamps a severity into [1,5].
func ClampSeverity(s int) int {
	if s < 1 {
		return 1
	}
	if s > 5 {
		return 5
	}
	return s
}

// ClampConfidence clamps a confidence score into [0,100].
func ClampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
