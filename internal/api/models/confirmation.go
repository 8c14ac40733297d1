package models

// ConfirmationRequest is the request body for voting on an event.
type ConfirmationRequest struct {
	Vote string `json:"vote" validate:"required,oneof=still_active cleared not_exists"`
}

// Confirmation represents a user's vote on an event.
type Confirmation struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	Vote      string    `json:"vote"`
	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// ConfirmationResult is the response after casting a vote: the recorded
// confirmation plus the event as the vote left it.
type ConfirmationResult struct {
	Confirmation Confirmation `json:"confirmation"`
	Event        Event        `json:"event"`
}
