package route

import (
	"context"
	"sync"
	"time"

	"github.com/lucasmontegu/outly/internal/risk"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	routes map[string]*Route
}

// NewInMemoryRepository creates a new in-memory route repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		routes: make(map[string]*Route),
	}
}

// GetByUserAndID retrieves a route by user ID and route ID.
func (r *InMemoryRepository) GetByUserAndID(_ context.Context, userID, routeID string) (*Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rt, ok := r.routes[routeID]
	if !ok || rt.UserID != userID {
		return nil, ErrRouteNotFound
	}

	cpy := *rt
	return &cpy, nil
}

// ListByUser retrieves all routes for a user.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID string) ([]*Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Route
	for _, rt := range r.routes {
		if rt.UserID == userID {
			cpy := *rt
			out = append(out, &cpy)
		}
	}
	return out, nil
}

// ListAll retrieves every saved route.
func (r *InMemoryRepository) ListAll(_ context.Context) ([]*Route, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Route, 0, len(r.routes))
	for _, rt := range r.routes {
		cpy := *rt
		out = append(out, &cpy)
	}
	return out, nil
}

// Create creates a new route.
func (r *InMemoryRepository) Create(_ context.Context, rt *Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *rt
	r.routes[rt.ID] = &cpy
	return nil
}

// Update updates an existing route.
func (r *InMemoryRepository) Update(_ context.Context, rt *Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.routes[rt.ID]; !ok {
		return ErrRouteNotFound
	}

	cpy := *rt
	r.routes[rt.ID] = &cpy
	return nil
}

// Delete deletes a route by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.routes, id)
	return nil
}

// UpdateCache writes the three cache fields together.
func (r *InMemoryRepository) UpdateCache(_ context.Context, routeID string, score int, classification risk.Classification, cachedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.routes[routeID]
	if !ok {
		return ErrRouteNotFound
	}

	rt.CachedScore = &score
	rt.CachedClassification = &classification
	rt.CachedAt = &cachedAt
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
