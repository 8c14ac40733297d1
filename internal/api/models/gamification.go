package models

// UserStats represents a user's gamification ledger.
type UserStats struct {
	TotalPoints         int    `json:"totalPoints"`
	Level               int    `json:"level"`
	TotalVotes          int    `json:"totalVotes"`
	CorrectVotes        int    `json:"correctVotes"`
	AccuracyPercent     int    `json:"accuracyPercent"`
	CurrentStreak       int    `json:"currentStreak"`
	LongestStreak       int    `json:"longestStreak"`
	VotesThisWeek       int    `json:"votesThisWeek"`
	WeatherVotes        int    `json:"weatherVotes"`
	TrafficVotes        int    `json:"trafficVotes"`
	FirstResponderCount int    `json:"firstResponderCount"`
	PercentileRank      int    `json:"percentileRank"`
	LastVoteDate        string `json:"lastVoteDate,omitempty"`
}

// Badge represents a badge definition from the catalog.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	BonusPoints int    `json:"bonusPoints"`
}

// EarnedBadge represents a badge a user has earned.
type EarnedBadge struct {
	Badge    Badge     `json:"badge"`
	EarnedAt Timestamp `json:"earnedAt"`
}

// BadgeCatalog represents the full badge catalog.
type BadgeCatalog struct {
	Items []Badge `json:"items"`
}

// EarnedBadgeList represents the badges a user has earned.
type EarnedBadgeList struct {
	Items []EarnedBadge `json:"items"`
}
