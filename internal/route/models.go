// Package route provides saved route management and the cached route risk
// scores the mobile dashboard is built from.
package route

import (
	"errors"
	"time"

	"github.com/lucasmontegu/outly/internal/event"
	"github.com/lucasmontegu/outly/internal/risk"
)

// Repository errors.
var (
	ErrRouteNotFound = errors.New("route not found")
)

// CacheFreshness is how long a cached route score stays servable before the
// forecast path recomputes it.
const CacheFreshness = 15 * time.Minute

// Route represents a saved route a user monitors.
type Route struct {
	ID          string
	UserID      string
	Label       string
	Origin      event.Point
	Destination event.Point

	// DaysOfWeek holds ISO weekday numbers (1 = Monday) the user travels
	// this route.
	DaysOfWeek []int

	// AlertThreshold is the risk score at or above which the user wants to
	// be notified; AlertTimeLocal is the local HH:mm to evaluate it.
	AlertThreshold int
	AlertTimeLocal string

	// Cached score fields. All three are set together by UpdateCache and
	// are nil until the first recompute touches the route.
	CachedScore          *int
	CachedClassification *risk.Classification
	CachedAt             *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CacheFresh reports whether the cached score is recent enough to serve
// without recomputing. A score exactly CacheFreshness old is stale.
func (r *Route) CacheFresh(now time.Time) bool {
	return r.CachedAt != nil && now.Sub(*r.CachedAt) < CacheFreshness
}
