package risk

import "context"

// Repository defines the interface for risk snapshot persistence.
type Repository interface {
	// GetLatest retrieves the latest snapshot for a grid cell.
	// Returns ErrSnapshotNotFound if none has been computed yet.
	GetLatest(ctx context.Context, gridCell string) (*RiskSnapshot, error)

	// ReplaceLatest stores a snapshot as the latest for its grid cell,
	// deleting any previous snapshot for that cell.
	ReplaceLatest(ctx context.Context, snapshot *RiskSnapshot) error
}
