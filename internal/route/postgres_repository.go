package route

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasmontegu/outly/internal/database"
	"github.com/lucasmontegu/outly/internal/risk"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL route repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) db(ctx context.Context) database.Querier {
	return database.QuerierFrom(ctx, r.pool)
}

const routeColumns = `
	id, user_id, label, origin_lat, origin_lng, destination_lat,
	destination_lng, days_of_week, alert_threshold, alert_time_local,
	cached_score, cached_classification, cached_at, created_at, updated_at
`

// GetByUserAndID retrieves a route by user ID and route ID.
func (r *PostgresRepository) GetByUserAndID(ctx context.Context, userID, routeID string) (*Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes WHERE id = $1 AND user_id = $2`
	return r.scanRoute(r.db(ctx).QueryRow(ctx, query, routeID, userID))
}

func (r *PostgresRepository) scanRoute(row pgx.Row) (*Route, error) {
	var rt Route
	err := row.Scan(
		&rt.ID,
		&rt.UserID,
		&rt.Label,
		&rt.Origin.Lat,
		&rt.Origin.Lng,
		&rt.Destination.Lat,
		&rt.Destination.Lng,
		&rt.DaysOfWeek,
		&rt.AlertThreshold,
		&rt.AlertTimeLocal,
		&rt.CachedScore,
		&rt.CachedClassification,
		&rt.CachedAt,
		&rt.CreatedAt,
		&rt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRouteNotFound
		}
		return nil, err
	}
	return &rt, nil
}

// ListByUser retrieves all routes for a user.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.db(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectRoutes(rows)
}

// ListAll retrieves every saved route.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*Route, error) {
	query := `SELECT ` + routeColumns + ` FROM routes ORDER BY created_at`

	rows, err := r.db(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectRoutes(rows)
}

func (r *PostgresRepository) collectRoutes(rows pgx.Rows) ([]*Route, error) {
	var out []*Route
	for rows.Next() {
		rt, err := r.scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// Create creates a new route.
func (r *PostgresRepository) Create(ctx context.Context, rt *Route) error {
	query := `
		INSERT INTO routes (` + routeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db(ctx).Exec(ctx, query,
		rt.ID,
		rt.UserID,
		rt.Label,
		rt.Origin.Lat,
		rt.Origin.Lng,
		rt.Destination.Lat,
		rt.Destination.Lng,
		rt.DaysOfWeek,
		rt.AlertThreshold,
		rt.AlertTimeLocal,
		rt.CachedScore,
		rt.CachedClassification,
		rt.CachedAt,
		rt.CreatedAt,
		rt.UpdatedAt,
	)
	return err
}

// Update updates an existing route.
func (r *PostgresRepository) Update(ctx context.Context, rt *Route) error {
	query := `
		UPDATE routes SET
			label = $2,
			origin_lat = $3,
			origin_lng = $4,
			destination_lat = $5,
			destination_lng = $6,
			days_of_week = $7,
			alert_threshold = $8,
			alert_time_local = $9,
			updated_at = $10
		WHERE id = $1
	`

	tag, err := r.db(ctx).Exec(ctx, query,
		rt.ID,
		rt.Label,
		rt.Origin.Lat,
		rt.Origin.Lng,
		rt.Destination.Lat,
		rt.Destination.Lng,
		rt.DaysOfWeek,
		rt.AlertThreshold,
		rt.AlertTimeLocal,
		rt.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRouteNotFound
	}
	return nil
}

// Delete deletes a route by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db(ctx).Exec(ctx, `DELETE FROM routes WHERE id = $1`, id)
	return err
}

// UpdateCache writes the three cache fields in a single statement.
func (r *PostgresRepository) UpdateCache(ctx context.Context, routeID string, score int, classification risk.Classification, cachedAt time.Time) error {
	query := `
		UPDATE routes SET
			cached_score = $2,
			cached_classification = $3,
			cached_at = $4
		WHERE id = $1
	`

	tag, err := r.db(ctx).Exec(ctx, query, routeID, score, classification, cachedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRouteNotFound
	}
	return nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
