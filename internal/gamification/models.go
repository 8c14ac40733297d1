// Package gamification converts voting activity into points, levels,
// streaks, and badges, and tracks per-user accuracy against vote consensus.
package gamification

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrStatsNotFound = errors.New("user stats not found")
)

// Point awards.
const (
	// BaseVotePoints is awarded for every recorded vote.
	BaseVotePoints = 5

	// FirstResponderPoints is the bonus for the first-ever vote on an event.
	FirstResponderPoints = 10

	// AccuracyBonusPoints is awarded per event when a voter matches the
	// consensus majority.
	AccuracyBonusPoints = 15
)

// dateLayout is the calendar-day format used for streak bookkeeping.
const dateLayout = "2006-01-02"

// UserStats is the per-user gamification ledger. Exactly one record per
// user, created lazily on the first vote.
type UserStats struct {
	UserID              string
	TotalPoints         int
	Level               int
	TotalVotes          int
	CorrectVotes        int
	AccuracyPercent     int
	CurrentStreak       int
	LongestStreak       int
	LastVoteDate        string
	VotesThisWeek       int
	WeatherVotes        int
	TrafficVotes        int
	FirstResponderCount int
	PercentileRank      int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// recalcAccuracy maintains the invariant
// accuracyPercent = round(100 * correctVotes / totalVotes).
func (s *UserStats) recalcAccuracy() {
	if s.TotalVotes <= 0 {
		s.AccuracyPercent = 0
		return
	}
	s.AccuracyPercent = int(float64(s.CorrectVotes)/float64(s.TotalVotes)*100 + 0.5)
}

// UserBadge is an earned achievement. (user, badgeId) is unique and badges
// are never revoked once active.
type UserBadge struct {
	UserID   string
	BadgeID  string
	IsActive bool
	EarnedAt time.Time
}

// Badge describes an achievement in the catalog.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	BonusPoints int    `json:"bonusPoints"`
}

// levelThresholds maps each level to the minimum total points required.
// The highest threshold not exceeding the user's points wins.
var levelThresholds = []struct {
	Level  int
	Points int
}{
	{1, 0},
	{2, 500},
	{3, 1500},
	{4, 4000},
	{5, 10000},
	{6, 25000},
	{7, 50000},
}

// LevelFor returns the level for a point total. Levels are monotonic
// non-decreasing in points; LevelFor(0) = 1 and LevelFor(50000) = 7.
func LevelFor(points int) int {
	level := 1
	for _, t := range levelThresholds {
		if points >= t.Points {
			level = t.Level
		}
	}
	return level
}
