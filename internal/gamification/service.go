package gamification

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucasmontegu/outly/internal/event"
)

// ServiceConfig holds configuration for the gamification service.
type ServiceConfig struct {
	// Repository is the gamification store backend.
	Repository Repository

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service provides points, levels, streaks, and badges.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new gamification service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}
}

// RecordVote updates the user's ledger for one newly cast vote. Vote updates
// (changing an existing vote) do not come through here. The caller runs this
// inside the same transaction as the event mutation.
func (s *Service) RecordVote(ctx context.Context, userID string, typ event.Type, firstResponder bool, now time.Time) (*UserStats, error) {
	stats, err := s.loadOrCreate(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	points := BaseVotePoints
	if firstResponder {
		points += FirstResponderPoints
		stats.FirstResponderCount++
	}

	s.advanceStreak(stats, now)

	// Weekly counter resets when the ISO week changes.
	if !sameISOWeek(stats.LastVoteDate, now) {
		stats.VotesThisWeek = 0
	}
	stats.VotesThisWeek++
	stats.LastVoteDate = now.Format(dateLayout)

	stats.TotalVotes++
	switch typ {
	case event.TypeWeather:
		stats.WeatherVotes++
	case event.TypeTraffic:
		stats.TrafficVotes++
	}

	stats.TotalPoints += points
	stats.recalcAccuracy()

	if err := s.awardNewBadges(ctx, stats, voteBadges(stats), now); err != nil {
		return nil, err
	}

	stats.Level = LevelFor(stats.TotalPoints)
	stats.UpdatedAt = now

	if err := s.repo.SaveStats(ctx, stats); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("user_id", userID).
		Int("points", points).
		Bool("first_responder", firstResponder).
		Int("streak", stats.CurrentStreak).
		Msg("vote recorded")

	return stats, nil
}

// AwardAccuracyBonus credits a voter for matching the consensus majority on
// an event: +15 points, one more correct vote, and an accuracy badge check.
// Consensus recomputes from scratch on every vote past the threshold, so the
// same voter can be credited again if the majority flips.
func (s *Service) AwardAccuracyBonus(ctx context.Context, userID string, now time.Time) (*UserStats, error) {
	stats, err := s.repo.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats.CorrectVotes++
	stats.TotalPoints += AccuracyBonusPoints
	stats.recalcAccuracy()

	// Accuracy badges are only evaluated here, inside consensus processing.
	if err := s.awardNewBadges(ctx, stats, accuracyBadges(stats), now); err != nil {
		return nil, err
	}

	stats.Level = LevelFor(stats.TotalPoints)
	stats.UpdatedAt = now

	if err := s.repo.SaveStats(ctx, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// GetStats retrieves the user's ledger with a fresh percentile rank.
// Users who have never voted get a zeroed ledger rather than an error.
func (s *Service) GetStats(ctx context.Context, userID string) (*UserStats, error) {
	if userID == "" {
		return nil, ErrStatsNotFound
	}

	stats, err := s.repo.GetStats(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrStatsNotFound) {
			return &UserStats{UserID: userID, Level: 1}, nil
		}
		return nil, err
	}

	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	if total > 1 {
		below, err := s.repo.CountUsersWithFewerPoints(ctx, stats.TotalPoints)
		if err != nil {
			return nil, err
		}
		stats.PercentileRank = int(math.Round(float64(below) / float64(total) * 100))
	}

	return stats, nil
}

// GetBadges retrieves the user's earned badges joined with catalog metadata.
func (s *Service) GetBadges(ctx context.Context, userID string) ([]*EarnedBadge, error) {
	earned, err := s.repo.ListBadges(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]*EarnedBadge, 0, len(earned))
	for _, ub := range earned {
		badge, ok := catalogByID[ub.BadgeID]
		if !ok {
			continue
		}
		out = append(out, &EarnedBadge{
			Badge:    badge,
			IsActive: ub.IsActive,
			EarnedAt: ub.EarnedAt,
		})
	}
	return out, nil
}

// AllBadges returns the full badge catalog.
func (s *Service) AllBadges() []Badge {
	out := make([]Badge, len(Catalog))
	copy(out, Catalog)
	return out
}

// EarnedBadge is a catalog badge together with when the user earned it.
type EarnedBadge struct {
	Badge
	IsActive bool      `json:"isActive"`
	EarnedAt time.Time `json:"earnedAt"`
}

func (s *Service) loadOrCreate(ctx context.Context, userID string, now time.Time) (*UserStats, error) {
	stats, err := s.repo.GetStats(ctx, userID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, ErrStatsNotFound) {
		return nil, err
	}

	return &UserStats{
		UserID:    userID,
		Level:     1,
		CreatedAt: now,
	}, nil
}

// advanceStreak applies the daily streak rules: consecutive-day votes extend
// the streak, a gap resets it to 1, and repeat votes on the same day leave
// it unchanged.
func (s *Service) advanceStreak(stats *UserStats, now time.Time) {
	today := now.Format(dateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(dateLayout)

	switch stats.LastVoteDate {
	case today:
		// Already voted today.
	case yesterday:
		stats.CurrentStreak++
	default:
		stats.CurrentStreak = 1
	}

	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}
}

// awardNewBadges awards any badge in candidates the user doesn't hold yet
// and adds its bonus to the running point total.
func (s *Service) awardNewBadges(ctx context.Context, stats *UserStats, candidates []string, now time.Time) error {
	for _, id := range candidates {
		has, err := s.repo.HasBadge(ctx, stats.UserID, id)
		if err != nil {
			return err
		}
		if has {
			continue
		}

		if err := s.repo.AwardBadge(ctx, &UserBadge{
			UserID:   stats.UserID,
			BadgeID:  id,
			IsActive: true,
			EarnedAt: now,
		}); err != nil {
			return err
		}

		stats.TotalPoints += catalogByID[id].BonusPoints

		s.logger.Info().
			Str("user_id", stats.UserID).
			Str("badge_id", id).
			Msg("badge awarded")
	}
	return nil
}

// sameISOWeek reports whether the stored vote date falls in the same ISO
// week as now. An empty or malformed date counts as a new week.
func sameISOWeek(lastVoteDate string, now time.Time) bool {
	if lastVoteDate == "" {
		return false
	}
	last, err := time.Parse(dateLayout, lastVoteDate)
	if err != nil {
		return false
	}
	ly, lw := last.ISOWeek()
	ny, nw := now.ISOWeek()
	return ly == ny && lw == nw
}
