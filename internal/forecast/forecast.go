// Package forecast projects near-term risk for a coordinate by decaying the
// current event-derived conditions across fifteen minute departure slots.
// Weather influence fades with lead time while traffic follows a time of day
// congestion curve, so the slot scores answer "when should I leave" rather
// than "how bad is it right now".
package forecast

import (
	"math"
	"time"

	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/risk"
)

const (
	// SlotCount is the number of projected departure slots.
	SlotCount = 8

	// SlotInterval is the spacing between departure slots.
	SlotInterval = 15 * time.Minute

	// weatherDecayPerSlot fades the weather contribution as lead time
	// grows; nowcast confidence drops quickly past the first hour.
	weatherDecayPerSlot = 0.08
)

// Base holds the shared starting conditions every slot is projected from.
// Computing it once per forecast keeps all slots consistent with a single
// read of the event store.
type Base struct {
	Weather float64
	Traffic float64
}

// BaseFrom derives the projection base from nearby active events using the
// same impact formula as the live risk path.
func BaseFrom(lat, lng float64, events []*event.Event) Base {
	impact := risk.EventImpactAt(lat, lng, events)
	return Base{
		Weather: float64(impact.WeatherScore),
		Traffic: float64(impact.TrafficScore),
	}
}

// Slot is one projected departure window.
type Slot struct {
	Time           time.Time
	MinutesFromNow int
	WeatherScore   int
	TrafficScore   int
	Score          int
	Classification risk.Classification
}

// Project computes the slot at the given index from the shared base. The
// index scales the weather decay; the slot's wall clock hour selects the
// traffic modifier.
func Project(base Base, index int, slotTime time.Time) Slot {
	decay := 1 - float64(index)*weatherDecayPerSlot
	if decay < 0 {
		decay = 0
	}
	weather := int(math.Round(base.Weather * decay))

	traffic := base.Traffic * trafficModifier(slotTime.Hour())
	if traffic > 100 {
		traffic = 100
	}
	trafficScore := int(math.Round(traffic))

	score := int(math.Round(0.4*float64(weather) + 0.6*float64(trafficScore)))
	if score > 100 {
		score = 100
	}

	return Slot{
		Time:           slotTime,
		WeatherScore:   weather,
		TrafficScore:   trafficScore,
		Score:          score,
		Classification: risk.Classify(score),
	}
}

// trafficModifier models the daily congestion curve. Morning and evening
// rush amplify the base traffic reading; nights suppress it.
func trafficModifier(hour int) float64 {
	switch {
	case hour >= 7 && hour < 9:
		return 1.4
	case hour >= 9 && hour < 12:
		return 1.0
	case hour >= 12 && hour < 14:
		return 1.1
	case hour >= 14 && hour < 17:
		return 1.0
	case hour >= 17 && hour < 19:
		return 1.5
	case hour >= 19 && hour < 21:
		return 0.8
	default:
		return 0.5
	}
}
