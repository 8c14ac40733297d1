package confirmation

import "context"

// Repository defines the interface for confirmation persistence.
type Repository interface {
	// GetByEventAndUser retrieves a user's vote on an event.
	// Returns ErrConfirmationNotFound if the user hasn't voted.
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*Confirmation, error)

	// Create inserts a new confirmation.
	Create(ctx context.Context, c *Confirmation) error

	// Update overwrites the vote value of an existing confirmation.
	Update(ctx context.Context, c *Confirmation) error

	// ListByEvent retrieves all confirmations on an event.
	ListByEvent(ctx context.Context, eventID string) ([]*Confirmation, error)

	// CountByEvent returns the number of confirmations on an event.
	CountByEvent(ctx context.Context, eventID string) (int, error)
}
