package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridshare/gridshare/internal/grid"
	"github.com/gridshare/gridshare/internal/storage"
)

// SessionRepository provides session persistence operations. One row per
// session key; the grid is stored as a JSONB array of rows. Row-level locking
// on the UPDATE serializes concurrent ReplaceGrid calls for the same key,
// which is the per-identifier write ordering the sync protocol relies on.
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository creates a SessionRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session record with the given grid.
//
// Precondition: key must be non-empty.
// Postcondition: Returns nil on success, or storage.ErrSessionExists if the
// key is already present.
func (r *SessionRepository) Create(ctx context.Context, key string, g grid.Grid) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (session_key, grid) VALUES ($1, $2)`,
		key, g,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrSessionExists
		}
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Get retrieves the current grid for a session.
//
// Precondition: key must be non-empty.
// Postcondition: Returns the stored grid, or storage.ErrSessionNotFound.
func (r *SessionRepository) Get(ctx context.Context, key string) (grid.Grid, error) {
	var g grid.Grid
	err := r.db.QueryRow(ctx,
		`SELECT grid FROM sessions WHERE session_key = $1`,
		key,
	).Scan(&g)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrSessionNotFound
		}
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return g, nil
}

// ReplaceGrid overwrites the entire grid for an existing session. This is the
// only mutation primitive; there is no partial-cell update.
//
// Precondition: key must be non-empty.
// Postcondition: Returns nil on success, storage.ErrSessionNotFound if no row
// was updated.
func (r *SessionRepository) ReplaceGrid(ctx context.Context, key string, g grid.Grid) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sessions SET grid = $2, updated_at = NOW() WHERE session_key = $1`,
		key, g,
	)
	if err != nil {
		return fmt.Errorf("replacing session grid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrSessionNotFound
	}
	return nil
}

func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
