package event

import (
	"context"
	"time"
)

// Repository defines the interface for event persistence.
type Repository interface {
	// Get retrieves an event by ID, active or not.
	// Returns ErrEventNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*Event, error)

	// Insert creates a new event.
	Insert(ctx context.Context, ev *Event) error

	// Update persists an existing event's mutable fields
	// (confidence, TTL, severity).
	Update(ctx context.Context, ev *Event) error

	// ListActive retrieves all active events as of now, optionally filtered
	// by type.
	ListActive(ctx context.Context, typ *Type, now time.Time) ([]*Event, error)

	// ListByCells retrieves active events whose grid cell is in cells.
	// The result may contain duplicates when cells does; callers dedupe.
	ListByCells(ctx context.Context, cells []string, now time.Time) ([]*Event, error)

	// DeleteExpired removes events with TTL at or before now and returns the
	// number deleted. Idempotent.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
