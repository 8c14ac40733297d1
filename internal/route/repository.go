package route

import (
	"context"
	"time"

	"github.com/lucasmontegu/outly/internal/risk"
)

// Repository defines the interface for route data persistence.
type Repository interface {
	// GetByUserAndID retrieves a route by user ID and route ID.
	// Returns ErrRouteNotFound if the route doesn't exist or doesn't belong to the user.
	GetByUserAndID(ctx context.Context, userID, routeID string) (*Route, error)

	// ListByUser retrieves all routes for a user.
	ListByUser(ctx context.Context, userID string) ([]*Route, error)

	// ListAll retrieves every saved route. Used by the cache recompute job.
	ListAll(ctx context.Context) ([]*Route, error)

	// Create creates a new route.
	Create(ctx context.Context, route *Route) error

	// Update updates an existing route.
	Update(ctx context.Context, route *Route) error

	// Delete deletes a route by ID.
	Delete(ctx context.Context, id string) error

	// UpdateCache writes the three cache fields in one write so readers
	// never observe a score without its timestamp.
	UpdateCache(ctx context.Context, routeID string, score int, classification risk.Classification, cachedAt time.Time) error
}
