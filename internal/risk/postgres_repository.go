package risk

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasmontegu/outly/internal/database"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Raw weather/traffic inputs are stored as jsonb.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL snapshot repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) db(ctx context.Context) database.Querier {
	return database.QuerierFrom(ctx, r.pool)
}

// GetLatest retrieves the latest snapshot for a grid cell.
func (r *PostgresRepository) GetLatest(ctx context.Context, gridCell string) (*RiskSnapshot, error) {
	query := `
		SELECT
			id, lat, lng, grid_cell, score, previous_score, classification,
			weather_score, traffic_score, event_score, weather_input,
			traffic_input, calculated_at
		FROM risk_snapshots
		WHERE grid_cell = $1
	`

	var s RiskSnapshot
	err := r.db(ctx).QueryRow(ctx, query, gridCell).Scan(
		&s.ID,
		&s.Location.Lat,
		&s.Location.Lng,
		&s.GridCell,
		&s.Score,
		&s.PreviousScore,
		&s.Classification,
		&s.WeatherScore,
		&s.TrafficScore,
		&s.EventScore,
		&s.Weather,
		&s.Traffic,
		&s.CalculatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}

	return &s, nil
}

// ReplaceLatest stores a snapshot as the latest for its grid cell. The
// previous snapshot for the cell is overwritten in place.
func (r *PostgresRepository) ReplaceLatest(ctx context.Context, s *RiskSnapshot) error {
	query := `
		INSERT INTO risk_snapshots (
			id, lat, lng, grid_cell, score, previous_score, classification,
			weather_score, traffic_score, event_score, weather_input,
			traffic_input, calculated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (grid_cell) DO UPDATE SET
			id = EXCLUDED.id,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			score = EXCLUDED.score,
			previous_score = EXCLUDED.previous_score,
			classification = EXCLUDED.classification,
			weather_score = EXCLUDED.weather_score,
			traffic_score = EXCLUDED.traffic_score,
			event_score = EXCLUDED.event_score,
			weather_input = EXCLUDED.weather_input,
			traffic_input = EXCLUDED.traffic_input,
			calculated_at = EXCLUDED.calculated_at
	`

	_, err := r.db(ctx).Exec(ctx, query,
		s.ID,
		s.Location.Lat,
		s.Location.Lng,
		s.GridCell,
		s.Score,
		s.PreviousScore,
		s.Classification,
		s.WeatherScore,
		s.TrafficScore,
		s.EventScore,
		s.Weather,
		s.Traffic,
		s.CalculatedAt,
	)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
