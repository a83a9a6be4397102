// Package storage defines the durable session store contract shared by the
// PostgreSQL and in-memory implementations.
package storage

import (
	"context"
	"errors"

	"github.com/gridshare/gridshare/internal/grid"
)

// ErrSessionNotFound is returned when a session key is unknown to the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when creating a session with a key that is
// already present.
var ErrSessionExists = errors.New("session already exists")

// Store provides durable, key-addressed persistence of session grids.
// Implementations must make each operation atomic with respect to a single
// key: a reader never observes a torn grid, and concurrent ReplaceGrid calls
// for the same key serialize in some order. There is no cross-key or
// multi-step transaction; each ReplaceGrid is the unit of durability.
type Store interface {
	// Create inserts a new session record.
	// Returns ErrSessionExists if the key is already present.
	Create(ctx context.Context, key string, g grid.Grid) error

	// Get retrieves the current grid for a session.
	// Returns ErrSessionNotFound if the key is unknown.
	Get(ctx context.Context, key string) (grid.Grid, error)

	// ReplaceGrid overwrites the entire grid for an existing session.
	// There is no finer-grained mutation; whole-grid replacement is the only
	// write primitive, which is what makes the sync protocol last-write-wins.
	// Returns ErrSessionNotFound if the key is unknown.
	ReplaceGrid(ctx context.Context, key string, g grid.Grid) error
}
