// Package risk computes the 0-100 travel risk score from weather data,
// traffic data, and nearby events.
//
// Two scoring paths exist on purpose. Stored snapshots (written by the
// ingestion cycle per monitored location) weight weather/traffic/events
// 0.4/0.4/0.2 and take event contributions as a flat severity sum. Live
// coordinate queries weight 0.35/0.45/0.2 and weight each event's impact by
// distance and confidence. The two paths produce different user-visible
// numbers today and must not be unified.
package risk

import (
	"math"
	"time"

	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/geo"
)

// Classification is the 3-tier risk class derived from a score.
type Classification string

// Risk classifications and their score thresholds.
const (
	ClassificationLow    Classification = "low"
	ClassificationMedium Classification = "medium"
	ClassificationHigh   Classification = "high"

	mediumThreshold = 34
	highThreshold   = 67
)

// Classify maps a score to its risk tier.
func Classify(score int) Classification {
	switch {
	case score < mediumThreshold:
		return ClassificationLow
	case score < highThreshold:
		return ClassificationMedium
	default:
		return ClassificationHigh
	}
}

// Describe returns the fixed user-facing description for a score. The five
// band strings are contract text consumed verbatim by the mobile client.
func Describe(score int) string {
	switch {
	case score <= 20:
		return "Conditions look clear. A good time to head out."
	case score <= 40:
		return "Mostly calm with minor disruptions possible."
	case score <= 60:
		return "Moderate risk. Expect some delays along the way."
	case score <= 80:
		return "Elevated risk. Consider delaying non-essential travel."
	default:
		return "Severe conditions. Avoid travel if you can."
	}
}

// WeatherConditions are the weather inputs to scoring. A nil value means the
// weather feed was unavailable this cycle and contributes a zero subscore.
type WeatherConditions struct {
	// PrecipMMPerHour is the current precipitation rate.
	PrecipMMPerHour float64

	// NowcastMaxPrecip is the peak precipitation over the next 10 minutes
	// from the minute-by-minute nowcast, when available.
	NowcastMaxPrecip float64

	// WindKMH is the current wind speed.
	WindKMH float64

	// VisibilityM is visibility in meters; zero or negative means unknown.
	VisibilityM float64

	// SevereAlert is true when any severe weather alert is active.
	SevereAlert bool
}

// TrafficConditions are the traffic inputs to scoring. A nil value means the
// traffic feed was unavailable this cycle and contributes a zero subscore.
type TrafficConditions struct {
	// JamFactor is congestion on a 0-10 scale.
	JamFactor float64

	// Incidents are the currently active incidents.
	Incidents []IncidentInput
}

// IncidentInput is one active traffic incident.
type IncidentInput struct {
	Severity int
}

// WeatherSubscore computes the 0-100 weather contribution. Missing data
// (nil) scores 0; partial feeds must degrade, never error.
func WeatherSubscore(w *WeatherConditions) int {
	if w == nil {
		return 0
	}

	score := 0

	precip := math.Max(w.PrecipMMPerHour, w.NowcastMaxPrecip)
	switch {
	case precip > 10:
		score += 30
	case precip > 5:
		score += 20
	case precip > 1:
		score += 10
	}

	switch {
	case w.WindKMH > 60:
		score += 25
	case w.WindKMH > 40:
		score += 15
	case w.WindKMH > 25:
		score += 5
	}

	if w.VisibilityM > 0 {
		switch {
		case w.VisibilityM < 200:
			score += 40
		case w.VisibilityM < 500:
			score += 25
		case w.VisibilityM < 1000:
			score += 10
		}
	}

	if w.SevereAlert {
		score += 50
	}

	return clampScore(score)
}

// TrafficSubscore computes the 0-100 traffic contribution. Missing data
// (nil) scores 0.
func TrafficSubscore(t *TrafficConditions) int {
	if t == nil {
		return 0
	}

	score := 0

	switch {
	case t.JamFactor > 7:
		score += 40
	case t.JamFactor > 5:
		score += 25
	case t.JamFactor > 3:
		score += 10
	}

	incidentPoints := 10 * len(t.Incidents)
	if incidentPoints > 30 {
		incidentPoints = 30
	}
	score += incidentPoints

	worst := 0
	for _, inc := range t.Incidents {
		if inc.Severity > worst {
			worst = inc.Severity
		}
	}
	score += 5 * worst

	return clampScore(score)
}

// EventSubscoreSnapshot computes the snapshot-form event contribution: a
// flat severity sum over events the community still believes in
// (confidence above 50).
func EventSubscoreSnapshot(events []*event.Event) int {
	score := 0
	for _, ev := range events {
		if ev.ConfidenceScore <= 50 {
			continue
		}
		score += ev.Severity * 4
	}
	return clampScore(score)
}

// EventImpact is the live-form event contribution: per-event impact weighted
// by distance and confidence, accumulated by event type.
type EventImpact struct {
	WeatherScore int
	TrafficScore int
	EventScore   int
}

// EventImpactAt computes the live event impact at a coordinate. Each event
// contributes severity x (1 - distKm/10) x (confidence/100) x 10, so a
// severity-5 full-confidence event at the query point is worth 50 and the
// contribution fades to nothing at 10 km.
func EventImpactAt(lat, lng float64, events []*event.Event) EventImpact {
	var weather, traffic, total float64

	for _, ev := range events {
		distKm := geo.DistanceKm(lat, lng, ev.Location.Lat, ev.Location.Lng)
		proximity := math.Max(0, 1-distKm/10)
		impact := float64(ev.Severity) * proximity * float64(ev.ConfidenceScore) / 100 * 10

		switch ev.Type {
		case event.TypeWeather:
			weather += impact
		case event.TypeTraffic:
			traffic += impact
		}
		total += impact
	}

	return EventImpact{
		WeatherScore: clampScore(round(weather)),
		TrafficScore: clampScore(round(traffic)),
		EventScore:   clampScore(round(0.5 * total)),
	}
}

// CombineSnapshot combines subscores with the stored-snapshot weighting.
func CombineSnapshot(weather, traffic, eventScore int) int {
	return round(float64(weather)*0.4 + float64(traffic)*0.4 + float64(eventScore)*0.2)
}

// CombineLive combines subscores with the live coordinate-query weighting.
func CombineLive(weather, traffic, eventScore int) int {
	return round(float64(weather)*0.35 + float64(traffic)*0.45 + float64(eventScore)*0.2)
}

// FloorMinute truncates a timestamp to the minute. Scoring and forecast
// entry points floor their "as of" time so repeated polls inside the same
// minute are cache-friendly and deterministic.
func FloorMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func round(f float64) int {
	return int(math.Round(f))
}
