package gamification

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	stats  map[string]*UserStats
	badges map[string]map[string]*UserBadge
}

// NewInMemoryRepository creates a new in-memory gamification repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		stats:  make(map[string]*UserStats),
		badges: make(map[string]map[string]*UserBadge),
	}
}

// GetStats retrieves the stats ledger for a user.
func (r *InMemoryRepository) GetStats(_ context.Context, userID string) (*UserStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stats[userID]
	if !ok {
		return nil, ErrStatsNotFound
	}

	cpy := *s
	return &cpy, nil
}

// SaveStats creates or replaces the stats ledger for a user.
func (r *InMemoryRepository) SaveStats(_ context.Context, stats *UserStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *stats
	r.stats[stats.UserID] = &cpy
	return nil
}

// HasBadge reports whether the user holds an active badge.
func (r *InMemoryRepository) HasBadge(_ context.Context, userID, badgeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.badges[userID][badgeID]
	return ok && b.IsActive, nil
}

// AwardBadge records an earned badge.
func (r *InMemoryRepository) AwardBadge(_ context.Context, badge *UserBadge) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.badges[badge.UserID] == nil {
		r.badges[badge.UserID] = make(map[string]*UserBadge)
	}
	if _, ok := r.badges[badge.UserID][badge.BadgeID]; ok {
		return nil
	}

	cpy := *badge
	r.badges[badge.UserID][badge.BadgeID] = &cpy
	return nil
}

// ListBadges retrieves all badges earned by a user.
func (r *InMemoryRepository) ListBadges(_ context.Context, userID string) ([]*UserBadge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*UserBadge
	for _, b := range r.badges[userID] {
		cpy := *b
		out = append(out, &cpy)
	}
	return out, nil
}

// CountUsers returns the number of users with a stats ledger.
func (r *InMemoryRepository) CountUsers(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stats), nil
}

// CountUsersWithFewerPoints returns how many users have strictly fewer
// total points.
func (r *InMemoryRepository) CountUsersWithFewerPoints(_ context.Context, points int) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, s := range r.stats {
		if s.TotalPoints < points {
			count++
		}
	}
	return count, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
