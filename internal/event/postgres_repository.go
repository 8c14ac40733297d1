package event

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasmontegu/outly/internal/database"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Route points and raw payloads are stored as jsonb.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL event repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) db(ctx context.Context) database.Querier {
	return database.QuerierFrom(ctx, r.pool)
}

const eventColumns = `
	id, type, subtype, lat, lng, route_points, radius_meters, severity,
	source, confidence_score, ttl, raw_data, grid_cell, created_at, updated_at
`

// Get retrieves an event by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return r.scanEvent(r.db(ctx).QueryRow(ctx, query, id))
}

func (r *PostgresRepository) scanEvent(row pgx.Row) (*Event, error) {
	var ev Event
	err := row.Scan(
		&ev.ID,
		&ev.Type,
		&ev.Subtype,
		&ev.Location.Lat,
		&ev.Location.Lng,
		&ev.RoutePoints,
		&ev.RadiusMeters,
		&ev.Severity,
		&ev.Source,
		&ev.ConfidenceScore,
		&ev.TTL,
		&ev.RawData,
		&ev.GridCell,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &ev, nil
}

// Insert creates a new event.
func (r *PostgresRepository) Insert(ctx context.Context, ev *Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db(ctx).Exec(ctx, query,
		ev.ID,
		ev.Type,
		ev.Subtype,
		ev.Location.Lat,
		ev.Location.Lng,
		ev.RoutePoints,
		ev.RadiusMeters,
		ev.Severity,
		ev.Source,
		ev.ConfidenceScore,
		ev.TTL,
		ev.RawData,
		ev.GridCell,
		ev.CreatedAt,
		ev.UpdatedAt,
	)
	return err
}

// Update persists an existing event's mutable fields.
func (r *PostgresRepository) Update(ctx context.Context, ev *Event) error {
	query := `
		UPDATE events SET
			severity = $2,
			confidence_score = $3,
			ttl = $4,
			updated_at = $5
		WHERE id = $1
	`

	result, err := r.db(ctx).Exec(ctx, query,
		ev.ID,
		ev.Severity,
		ev.ConfidenceScore,
		ev.TTL,
		ev.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// ListActive retrieves all active events, optionally filtered by type.
func (r *PostgresRepository) ListActive(ctx context.Context, typ *Type, now time.Time) ([]*Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE ttl > $1 AND confidence_score > $2
	`
	args := []any{now, MinActiveConfidence}

	if typ != nil {
		query += ` AND type = $3`
		args = append(args, *typ)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectEvents(rows)
}

// ListByCells retrieves active events in the given grid cells.
func (r *PostgresRepository) ListByCells(ctx context.Context, cells []string, now time.Time) ([]*Event, error) {
	if len(cells) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE grid_cell = ANY($1) AND ttl > $2 AND confidence_score > $3
	`

	rows, err := r.db(ctx).Query(ctx, query, cells, now, MinActiveConfidence)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectEvents(rows)
}

func (r *PostgresRepository) collectEvents(rows pgx.Rows) ([]*Event, error) {
	var out []*Event
	for rows.Next() {
		ev, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteExpired removes events whose TTL has passed.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db(ctx).Exec(ctx, `DELETE FROM events WHERE ttl <= $1`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
