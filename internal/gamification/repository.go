package gamification

import "context"

// Repository defines the interface for gamification persistence.
type Repository interface {
	// GetStats retrieves the stats ledger for a user.
	// Returns ErrStatsNotFound if the user has never voted.
	GetStats(ctx context.Context, userID string) (*UserStats, error)

	// SaveStats creates or replaces the stats ledger for a user.
	SaveStats(ctx context.Context, stats *UserStats) error

	// HasBadge reports whether the user holds an active badge.
	HasBadge(ctx context.Context, userID, badgeID string) (bool, error)

	// AwardBadge records an earned badge. Awarding the same (user, badge)
	// twice is a no-op; badges are monotonic.
	AwardBadge(ctx context.Context, badge *UserBadge) error

	// ListBadges retrieves all badges earned by a user.
	ListBadges(ctx context.Context, userID string) ([]*UserBadge, error)

	// CountUsers returns the number of users with a stats ledger.
	CountUsers(ctx context.Context) (int, error)

	// CountUsersWithFewerPoints returns how many users have strictly fewer
	// total points. Used for percentile ranking.
	CountUsersWithFewerPoints(ctx context.Context, points int) (int, error)
}
