package confirmation

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasmontegu/outly/internal/database"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL confirmation repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) db(ctx context.Context) database.Querier {
	return database.QuerierFrom(ctx, r.pool)
}

// GetByEventAndUser retrieves a user's vote on an event.
func (r *PostgresRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*Confirmation, error) {
	query := `
		SELECT id, event_id, user_id, vote, created_at, updated_at
		FROM confirmations
		WHERE event_id = $1 AND user_id = $2
	`

	var c Confirmation
	err := r.db(ctx).QueryRow(ctx, query, eventID, userID).Scan(
		&c.ID,
		&c.EventID,
		&c.UserID,
		&c.Value,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfirmationNotFound
		}
		return nil, err
	}

	return &c, nil
}

// Create inserts a new confirmation.
func (r *PostgresRepository) Create(ctx context.Context, c *Confirmation) error {
	query := `
		INSERT INTO confirmations (id, event_id, user_id, vote, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db(ctx).Exec(ctx, query,
		c.ID,
		c.EventID,
		c.UserID,
		c.Value,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

// Update overwrites the vote value of an existing confirmation.
func (r *PostgresRepository) Update(ctx context.Context, c *Confirmation) error {
	query := `
		UPDATE confirmations SET vote = $3, updated_at = $4
		WHERE event_id = $1 AND user_id = $2
	`

	result, err := r.db(ctx).Exec(ctx, query, c.EventID, c.UserID, c.Value, c.UpdatedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrConfirmationNotFound
	}
	return nil
}

// ListByEvent retrieves all confirmations on an event.
func (r *PostgresRepository) ListByEvent(ctx context.Context, eventID string) ([]*Confirmation, error) {
	query := `
		SELECT id, event_id, user_id, vote, created_at, updated_at
		FROM confirmations
		WHERE event_id = $1
		ORDER BY created_at
	`

	rows, err := r.db(ctx).Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Confirmation
	for rows.Next() {
		var c Confirmation
		if err := rows.Scan(&c.ID, &c.EventID, &c.UserID, &c.Value, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// CountByEvent returns the number of confirmations on an event.
func (r *PostgresRepository) CountByEvent(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM confirmations WHERE event_id = $1`, eventID,
	).Scan(&count)
	return count, err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
