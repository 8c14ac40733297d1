package event

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	events map[string]*Event
}

// NewInMemoryRepository creates a new in-memory event repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		events: make(map[string]*Event),
	}
}

// Get retrieves an event by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ev, ok := r.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}

	cpy := *ev
	return &cpy, nil
}

// Insert creates a new event.
func (r *InMemoryRepository) Insert(_ context.Context, ev *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *ev
	r.events[ev.ID] = &cpy
	return nil
}

// Update persists an existing event.
func (r *InMemoryRepository) Update(_ context.Context, ev *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[ev.ID]; !ok {
		return ErrEventNotFound
	}

	cpy := *ev
	r.events[ev.ID] = &cpy
	return nil
}

// ListActive retrieves all active events, optionally filtered by type.
func (r *InMemoryRepository) ListActive(_ context.Context, typ *Type, now time.Time) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Event
	for _, ev := range r.events {
		if !ev.Active(now) {
			continue
		}
		if typ != nil && ev.Type != *typ {
			continue
		}
		cpy := *ev
		out = append(out, &cpy)
	}
	return out, nil
}

// ListByCells retrieves active events in the given grid cells.
func (r *InMemoryRepository) ListByCells(_ context.Context, cells []string, now time.Time) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cellSet := make(map[string]bool, len(cells))
	for _, c := range cells {
		cellSet[c] = true
	}

	var out []*Event
	for _, ev := range r.events {
		if !ev.Active(now) || !cellSet[ev.GridCell] {
			continue
		}
		cpy := *ev
		out = append(out, &cpy)
	}
	return out, nil
}

// DeleteExpired removes events whose TTL has passed.
func (r *InMemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, ev := range r.events {
		if ev.Expired(now) {
			delete(r.events, id)
			deleted++
		}
	}
	return deleted, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
