package gamification

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasmontegu/outly/internal/database"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL gamification repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) db(ctx context.Context) database.Querier {
	return database.QuerierFrom(ctx, r.pool)
}

// GetStats retrieves the stats ledger for a user.
func (r *PostgresRepository) GetStats(ctx context.Context, userID string) (*UserStats, error) {
	query := `
		SELECT
			user_id, total_points, level, total_votes, correct_votes,
			accuracy_percent, current_streak, longest_streak, last_vote_date,
			votes_this_week, weather_votes, traffic_votes,
			first_responder_count, created_at, updated_at
		FROM user_stats
		WHERE user_id = $1
	`

	var s UserStats
	err := r.db(ctx).QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.TotalPoints,
		&s.Level,
		&s.TotalVotes,
		&s.CorrectVotes,
		&s.AccuracyPercent,
		&s.CurrentStreak,
		&s.LongestStreak,
		&s.LastVoteDate,
		&s.VotesThisWeek,
		&s.WeatherVotes,
		&s.TrafficVotes,
		&s.FirstResponderCount,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatsNotFound
		}
		return nil, err
	}

	return &s, nil
}

// SaveStats creates or replaces the stats ledger for a user.
func (r *PostgresRepository) SaveStats(ctx context.Context, s *UserStats) error {
	query := `
		INSERT INTO user_stats (
			user_id, total_points, level, total_votes, correct_votes,
			accuracy_percent, current_streak, longest_streak, last_vote_date,
			votes_this_week, weather_votes, traffic_votes,
			first_responder_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (user_id) DO UPDATE SET
			total_points = EXCLUDED.total_points,
			level = EXCLUDED.level,
			total_votes = EXCLUDED.total_votes,
			correct_votes = EXCLUDED.correct_votes,
			accuracy_percent = EXCLUDED.accuracy_percent,
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_vote_date = EXCLUDED.last_vote_date,
			votes_this_week = EXCLUDED.votes_this_week,
			weather_votes = EXCLUDED.weather_votes,
			traffic_votes = EXCLUDED.traffic_votes,
			first_responder_count = EXCLUDED.first_responder_count,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db(ctx).Exec(ctx, query,
		s.UserID,
		s.TotalPoints,
		s.Level,
		s.TotalVotes,
		s.CorrectVotes,
		s.AccuracyPercent,
		s.CurrentStreak,
		s.LongestStreak,
		s.LastVoteDate,
		s.VotesThisWeek,
		s.WeatherVotes,
		s.TrafficVotes,
		s.FirstResponderCount,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return err
}

// HasBadge reports whether the user holds an active badge.
func (r *PostgresRepository) HasBadge(ctx context.Context, userID, badgeID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM user_badges
			WHERE user_id = $1 AND badge_id = $2 AND is_active
		)
	`

	var exists bool
	if err := r.db(ctx).QueryRow(ctx, query, userID, badgeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// AwardBadge records an earned badge. Re-awarding is a no-op.
func (r *PostgresRepository) AwardBadge(ctx context.Context, badge *UserBadge) error {
	query := `
		INSERT INTO user_badges (user_id, badge_id, is_active, earned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, badge_id) DO NOTHING
	`

	_, err := r.db(ctx).Exec(ctx, query,
		badge.UserID,
		badge.BadgeID,
		badge.IsActive,
		badge.EarnedAt,
	)
	return err
}

// ListBadges retrieves all badges earned by a user.
func (r *PostgresRepository) ListBadges(ctx context.Context, userID string) ([]*UserBadge, error) {
	query := `
		SELECT user_id, badge_id, is_active, earned_at
		FROM user_badges
		WHERE user_id = $1
		ORDER BY earned_at
	`

	rows, err := r.db(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*UserBadge
	for rows.Next() {
		var b UserBadge
		if err := rows.Scan(&b.UserID, &b.BadgeID, &b.IsActive, &b.EarnedAt); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// CountUsers returns the number of users with a stats ledger.
func (r *PostgresRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM user_stats`).Scan(&count)
	return count, err
}

// CountUsersWithFewerPoints returns how many users have strictly fewer
// total points.
func (r *PostgresRepository) CountUsersWithFewerPoints(ctx context.Context, points int) (int, error) {
	var count int
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM user_stats WHERE total_points < $1`, points,
	).Scan(&count)
	return count, err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
