package models

// Event represents an active event on the map.
type Event struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Subtype         string    `json:"subtype,omitempty"`
	Location        Point     `json:"location"`
	RoutePoints     []Point   `json:"routePoints,omitempty"`
	RadiusMeters    float64   `json:"radiusMeters,omitempty"`
	Severity        int       `json:"severity"`
	Source          string    `json:"source"`
	ConfidenceScore int       `json:"confidenceScore"`
	ExpiresAt       Timestamp `json:"expiresAt"`
	CreatedAt       Timestamp `json:"createdAt"`
	UpdatedAt       Timestamp `json:"updatedAt"`
}

// EventCreateRequest is the request body for reporting an event.
type EventCreateRequest struct {
	Type     string `json:"type" validate:"required,oneof=weather traffic"`
	Subtype  string `json:"subtype" validate:"required,min=1,max=60"`
	Location Point  `json:"location" validate:"required"`
	Severity int    `json:"severity" validate:"required,gte=1,lte=5"`
}

// EventList represents a list of events.
type EventList struct {
	Items []Event `json:"items"`
}
