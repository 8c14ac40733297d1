// Package worker provides background job processing for Outly.
package worker

import (
	"time"

	"github.com/lucasmontegu/outly/internal/event"
)

// RefreshTarget represents a geographic region the refresh cycle monitors.
type RefreshTarget struct {
	// Name is the human-readable name of the target.
	Name string

	// Points are the lat/lng coordinates to refresh.
	// Typically the centers of major cities or commuter hubs.
	Points []event.Point

	// Priority determines refresh order (lower = higher priority).
	Priority int
}

// RefreshConfig holds configuration for the refresh job.
type RefreshConfig struct {
	// Targets are the geographic regions to refresh.
	// If empty, uses DefaultRefreshTargets.
	Targets []RefreshTarget

	// Concurrency is the number of concurrent point refreshes.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each point's fetch cycle.
	// Default: 30 seconds
	Timeout time.Duration

	// SweepExpired enables deleting expired events before the cycle.
	// Default: true
	SweepExpired bool

	// RecomputeRoutes enables the route cache recompute after the cycle.
	// Default: true
	RecomputeRoutes bool
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Targets:         DefaultRefreshTargets(),
		Concurrency:     3,
		Timeout:         30 * time.Second,
		SweepExpired:    true,
		RecomputeRoutes: true,
	}
}

// DefaultRefreshTargets returns the default refresh targets for the
// Netherlands launch region. Focuses on the Randstad metropolitan area and
// major commuter corridors.
func DefaultRefreshTargets() []RefreshTarget {
	return []RefreshTarget{
		{
			Name:     "Amsterdam",
			Priority: 1,
			Points: []event.Point{
				{Lat: 52.3676, Lng: 4.9041}, // Amsterdam Centraal
				{Lat: 52.3386, Lng: 4.8919}, // Amsterdam Zuid
				{Lat: 52.3114, Lng: 4.9469}, // Amsterdam Zuidoost
				{Lat: 52.3894, Lng: 4.9006}, // Amsterdam Noord
			},
		},
		{
			Name:     "Rotterdam",
			Priority: 1,
			Points: []event.Point{
				{Lat: 51.9244, Lng: 4.4777}, // Rotterdam Centraal
				{Lat: 51.9062, Lng: 4.4874}, // Rotterdam Zuid
				{Lat: 51.9161, Lng: 4.3895}, // Rotterdam West
			},
		},
		{
			Name:     "Den Haag",
			Priority: 1,
			Points: []event.Point{
				{Lat: 52.0705, Lng: 4.3007}, // Den Haag Centraal
				{Lat: 52.0887, Lng: 4.3234}, // Den Haag HS
				{Lat: 52.1024, Lng: 4.2828}, // Scheveningen
			},
		},
		{
			Name:     "Utrecht",
			Priority: 1,
			Points: []event.Point{
				{Lat: 52.0894, Lng: 5.1102}, // Utrecht Centraal
				{Lat: 52.0627, Lng: 5.1179}, // Utrecht Science Park
			},
		},
		{
			Name:     "Eindhoven",
			Priority: 2,
			Points: []event.Point{
				{Lat: 51.4416, Lng: 5.4697}, // Eindhoven Centraal
				{Lat: 51.4548, Lng: 5.4553}, // High Tech Campus
			},
		},
		{
			Name:     "Schiphol",
			Priority: 2,
			Points: []event.Point{
				{Lat: 52.3105, Lng: 4.7683}, // Schiphol Airport
			},
		},
		{
			Name:     "Leiden",
			Priority: 3,
			Points: []event.Point{
				{Lat: 52.1664, Lng: 4.4819}, // Leiden Centraal
			},
		},
		{
			Name:     "Haarlem",
			Priority: 3,
			Points: []event.Point{
				{Lat: 52.3874, Lng: 4.6462}, // Haarlem
			},
		},
		{
			Name:     "Delft",
			Priority: 3,
			Points: []event.Point{
				{Lat: 52.0116, Lng: 4.3571}, // Delft
			},
		},
		{
			Name:     "Amersfoort",
			Priority: 3,
			Points: []event.Point{
				{Lat: 52.1530, Lng: 5.3711}, // Amersfoort Centraal
			},
		},
	}
}

// AllPoints returns all points from all targets, ordered by priority.
func (c RefreshConfig) AllPoints() []event.Point {
	var points []event.Point
	for _, target := range c.Targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of points to refresh.
func (c RefreshConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}
