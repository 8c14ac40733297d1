package models

// Route represents a saved route.
type Route struct {
	ID             string    `json:"id"`
	Label          string    `json:"label"`
	Origin         Point     `json:"origin"`
	Destination    Point     `json:"destination"`
	DaysOfWeek     []int     `json:"daysOfWeek"`
	AlertThreshold int       `json:"alertThreshold"`
	AlertTimeLocal string    `json:"alertTimeLocal,omitempty"`
	CreatedAt      Timestamp `json:"createdAt"`
	UpdatedAt      Timestamp `json:"updatedAt"`
}

// RouteCreateRequest is the request body for creating a route.
type RouteCreateRequest struct {
	Label          string `json:"label" validate:"required,min=1,max=80"`
	Origin         Point  `json:"origin" validate:"required"`
	Destination    Point  `json:"destination" validate:"required"`
	DaysOfWeek     []int  `json:"daysOfWeek" validate:"required,dive,gte=1,lte=7"`
	AlertThreshold int    `json:"alertThreshold" validate:"gte=0,lte=100"`
	AlertTimeLocal string `json:"alertTimeLocal,omitempty" validate:"omitempty,time_hhmm"`
}

// RouteUpdateRequest is the request body for updating a route.
type RouteUpdateRequest struct {
	Label          *string `json:"label,omitempty" validate:"omitempty,min=1,max=80"`
	Origin         *Point  `json:"origin,omitempty"`
	Destination    *Point  `json:"destination,omitempty"`
	DaysOfWeek     []int   `json:"daysOfWeek,omitempty" validate:"omitempty,dive,gte=1,lte=7"`
	AlertThreshold *int    `json:"alertThreshold,omitempty" validate:"omitempty,gte=0,lte=100"`
	AlertTimeLocal *string `json:"alertTimeLocal,omitempty" validate:"omitempty,time_hhmm"`
}

// RouteList represents a list of routes.
type RouteList struct {
	Items []Route `json:"items"`
}

// RouteStatus represents a route on the dashboard with its current score
// and departure advice.
type RouteStatus struct {
	Route          Route     `json:"route"`
	Score          int       `json:"score"`
	Classification string    `json:"classification"`
	Recommendation string    `json:"recommendation"`
	FromCache      bool      `json:"fromCache"`
	AsOf           Timestamp `json:"asOf"`
}

// RouteStatusList represents the forecast dashboard for all saved routes.
type RouteStatusList struct {
	Items []RouteStatus `json:"items"`
}
