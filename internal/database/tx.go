package database

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx operations shared by pools and transactions.
// Repositories run their SQL through a Querier so the same code works inside
// and outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txKey carries an open transaction in the context.
type txKey struct{}

// QuerierFrom returns the transaction bound to ctx if one is open, otherwise
// the fallback (normally the pool).
func QuerierFrom(ctx context.Context, fallback Querier) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return fallback
}

// TxRunner executes a function as a single atomic unit against the backing
// store. A vote's confidence delta, TTL change, and gamification updates all
// run under one TxRunner call so they are either all visible or none are.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PoolTxRunner runs functions inside a PostgreSQL transaction. The open
// transaction travels in the context; repositories pick it up via
// QuerierFrom.
type PoolTxRunner struct {
	pool *pgxpool.Pool
}

// NewPoolTxRunner creates a TxRunner backed by a connection pool.
func NewPoolTxRunner(pool *pgxpool.Pool) *PoolTxRunner {
	return &PoolTxRunner{pool: pool}
}

// RunInTx begins a transaction, runs fn with it bound to the context, and
// commits. Any error from fn rolls the transaction back.
func (r *PoolTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

// SerialTxRunner serializes mutations behind a single mutex. It backs the
// in-memory repositories, where a coarse lock gives the same observable
// atomicity as a database transaction.
type SerialTxRunner struct {
	mu sync.Mutex
}

// NewSerialTxRunner creates a mutex-serialized TxRunner.
func NewSerialTxRunner() *SerialTxRunner {
	return &SerialTxRunner{}
}

// RunInTx runs fn while holding the runner's mutex.
func (r *SerialTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}

// Ensure implementations satisfy TxRunner.
var (
	_ TxRunner = (*PoolTxRunner)(nil)
	_ TxRunner = (*SerialTxRunner)(nil)
)
