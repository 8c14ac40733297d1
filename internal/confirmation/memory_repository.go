package confirmation

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu sync.RWMutex
	// byEvent maps eventID -> userID -> confirmation, mirroring the
	// (user, event) uniqueness constraint.
	byEvent map[string]map[string]*Confirmation
}

// NewInMemoryRepository creates a new in-memory confirmation repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byEvent: make(map[string]map[string]*Confirmation),
	}
}

// GetByEventAndUser retrieves a user's vote on an event.
func (r *InMemoryRepository) GetByEventAndUser(_ context.Context, eventID, userID string) (*Confirmation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byEvent[eventID][userID]
	if !ok {
		return nil, ErrConfirmationNotFound
	}

	cpy := *c
	return &cpy, nil
}

// Create inserts a new confirmation.
func (r *InMemoryRepository) Create(_ context.Context, c *Confirmation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byEvent[c.EventID] == nil {
		r.byEvent[c.EventID] = make(map[string]*Confirmation)
	}

	cpy := *c
	r.byEvent[c.EventID][c.UserID] = &cpy
	return nil
}

// Update overwrites an existing confirmation.
func (r *InMemoryRepository) Update(_ context.Context, c *Confirmation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEvent[c.EventID][c.UserID]; !ok {
		return ErrConfirmationNotFound
	}

	cpy := *c
	r.byEvent[c.EventID][c.UserID] = &cpy
	return nil
}

// ListByEvent retrieves all confirmations on an event.
func (r *InMemoryRepository) ListByEvent(_ context.Context, eventID string) ([]*Confirmation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Confirmation
	for _, c := range r.byEvent[eventID] {
		cpy := *c
		out = append(out, &cpy)
	}
	return out, nil
}

// CountByEvent returns the number of confirmations on an event.
func (r *InMemoryRepository) CountByEvent(_ context.Context, eventID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byEvent[eventID]), nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
