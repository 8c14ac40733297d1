package gamification

// Badge identifiers.
const (
	BadgeFirstSteps      = "first_steps"
	BadgeDedicated       = "dedicated"
	BadgeVeteran         = "veteran"
	BadgeEliteValidator  = "elite_validator"
	BadgeWeeklyWarrior   = "weekly_warrior"
	BadgeMonthlyGuardian = "monthly_guardian"
	BadgeQuarterlyLegend = "quarterly_legend"
	BadgeStormChaser     = "storm_chaser"
	BadgeTrafficMaster   = "traffic_master"
	BadgeFirstResponder  = "first_responder"
	BadgeSharpEye        = "sharp_eye"
	BadgeLaserFocus      = "laser_focus"
	BadgeUntouchable     = "untouchable"
)

// Catalog is the full badge catalog in award-check order.
var Catalog = []Badge{
	{ID: BadgeFirstSteps, Name: "First Steps", Description: "Cast 5 votes", BonusPoints: 10},
	{ID: BadgeDedicated, Name: "Dedicated", Description: "Cast 50 votes", BonusPoints: 75},
	{ID: BadgeVeteran, Name: "Veteran", Description: "Cast 250 votes", BonusPoints: 300},
	{ID: BadgeEliteValidator, Name: "Elite Validator", Description: "Cast 1000 votes", BonusPoints: 1000},
	{ID: BadgeWeeklyWarrior, Name: "Weekly Warrior", Description: "Vote 7 days in a row", BonusPoints: 100},
	{ID: BadgeMonthlyGuardian, Name: "Monthly Guardian", Description: "Vote 30 days in a row", BonusPoints: 500},
	{ID: BadgeQuarterlyLegend, Name: "Quarterly Legend", Description: "Vote 90 days in a row", BonusPoints: 2000},
	{ID: BadgeStormChaser, Name: "Storm Chaser", Description: "Cast 50 weather votes", BonusPoints: 150},
	{ID: BadgeTrafficMaster, Name: "Traffic Master", Description: "Cast 50 traffic votes", BonusPoints: 150},
	{ID: BadgeFirstResponder, Name: "First Responder", Description: "Be first to vote on 25 events", BonusPoints: 300},
	{ID: BadgeSharpEye, Name: "Sharp Eye", Description: "85% accuracy over 50+ votes", BonusPoints: 200},
	{ID: BadgeLaserFocus, Name: "Laser Focus", Description: "95% accuracy over 100+ votes", BonusPoints: 500},
	{ID: BadgeUntouchable, Name: "Untouchable", Description: "98% accuracy over 200+ votes", BonusPoints: 1500},
}

// catalogByID indexes Catalog for bonus lookups.
var catalogByID = func() map[string]Badge {
	m := make(map[string]Badge, len(Catalog))
	for _, b := range Catalog {
		m[b.ID] = b
	}
	return m
}()

// voteBadges returns the badge ids earned by the given activity counters.
// Accuracy badges are excluded; those are only evaluated during consensus
// processing.
func voteBadges(s *UserStats) []string {
	var earned []string

	volume := []struct {
		threshold int
		id        string
	}{
		{5, BadgeFirstSteps},
		{50, BadgeDedicated},
		{250, BadgeVeteran},
		{1000, BadgeEliteValidator},
	}
	for _, v := range volume {
		if s.TotalVotes >= v.threshold {
			earned = append(earned, v.id)
		}
	}

	streaks := []struct {
		threshold int
		id        string
	}{
		{7, BadgeWeeklyWarrior},
		{30, BadgeMonthlyGuardian},
		{90, BadgeQuarterlyLegend},
	}
	for _, v := range streaks {
		if s.CurrentStreak >= v.threshold {
			earned = append(earned, v.id)
		}
	}

	if s.WeatherVotes >= 50 {
		earned = append(earned, BadgeStormChaser)
	}
	if s.TrafficVotes >= 50 {
		earned = append(earned, BadgeTrafficMaster)
	}
	if s.FirstResponderCount >= 25 {
		earned = append(earned, BadgeFirstResponder)
	}

	return earned
}

// accuracyBadges returns the accuracy badge ids the stats qualify for.
// Each is gated on a minimum vote volume so small samples don't qualify.
func accuracyBadges(s *UserStats) []string {
	var earned []string
	if s.AccuracyPercent >= 85 && s.TotalVotes >= 50 {
		earned = append(earned, BadgeSharpEye)
	}
	if s.AccuracyPercent >= 95 && s.TotalVotes >= 100 {
		earned = append(earned, BadgeLaserFocus)
	}
	if s.AccuracyPercent >= 98 && s.TotalVotes >= 200 {
		earned = append(earned, BadgeUntouchable)
	}
	return earned
}
