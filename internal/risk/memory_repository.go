package risk

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu        sync.RWMutex
	snapshots map[string]*RiskSnapshot
}

// NewInMemoryRepository creates a new in-memory snapshot repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		snapshots: make(map[string]*RiskSnapshot),
	}
}

// GetLatest retrieves the latest snapshot for a grid cell.
func (r *InMemoryRepository) GetLatest(_ context.Context, gridCell string) (*RiskSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.snapshots[gridCell]
	if !ok {
		return nil, ErrSnapshotNotFound
	}

	cpy := *s
	return &cpy, nil
}

// ReplaceLatest stores a snapshot as the latest for its grid cell.
func (r *InMemoryRepository) ReplaceLatest(_ context.Context, snapshot *RiskSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *snapshot
	r.snapshots[snapshot.GridCell] = &cpy
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
