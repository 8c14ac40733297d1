package models

// RiskBreakdown carries the per-domain subscores behind a risk score.
type RiskBreakdown struct {
	Weather int `json:"weather"`
	Traffic int `json:"traffic"`
	Events  int `json:"events"`
}

// CurrentRisk represents the live risk at a coordinate.
type CurrentRisk struct {
	Score          int           `json:"score"`
	Classification string        `json:"classification"`
	Description    string        `json:"description"`
	Breakdown      RiskBreakdown `json:"breakdown"`
	AsOf           Timestamp     `json:"asOf"`
}

// ForecastSlot represents one projected departure window.
type ForecastSlot struct {
	Time           Timestamp `json:"time"`
	MinutesFromNow int       `json:"minutesFromNow"`
	Score          int       `json:"score"`
	Classification string    `json:"classification"`
}

// Forecast represents the departure slot projection for a coordinate.
type Forecast struct {
	CurrentScore          int            `json:"currentScore"`
	CurrentClassification string         `json:"currentClassification"`
	Slots                 []ForecastSlot `json:"slots"`
	OptimalDeparture      Timestamp      `json:"optimalDeparture"`
	OptimalInMinutes      int            `json:"optimalInMinutes"`
	AsOf                  Timestamp      `json:"asOf"`
}
