// Package memory provides a map-backed storage.Store implementation used by
// unit tests and, when database.backend is set to "memory", by the server
// itself. State is lost on process restart.
package memory

import (
	"context"
	"sync"

	"github.com/gridshare/gridshare/internal/grid"
	"github.com/gridshare/gridshare/internal/storage"
)

// Store is an in-memory session store. Safe for concurrent use; the mutex
// makes each operation atomic per key, matching the storage.Store contract.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]grid.Grid
}

// New creates an empty in-memory Store.
func New() *Store {
	return &Store{sessions: make(map[string]grid.Grid)}
}

// Create inserts a new session record.
//
// Postcondition: Returns storage.ErrSessionExists if the key is taken.
func (s *Store) Create(ctx context.Context, key string, g grid.Grid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[key]; exists {
		return storage.ErrSessionExists
	}
	s.sessions[key] = g.Clone()
	return nil
}

// Get retrieves the current grid for a session.
//
// Postcondition: Returns a copy of the stored grid, or storage.ErrSessionNotFound.
func (s *Store) Get(ctx context.Context, key string) (grid.Grid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.sessions[key]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	return g.Clone(), nil
}

// ReplaceGrid overwrites the entire grid for an existing session.
//
// Postcondition: Returns storage.ErrSessionNotFound if the key is unknown.
func (s *Store) ReplaceGrid(ctx context.Context, key string, g grid.Grid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[key]; !ok {
		return storage.ErrSessionNotFound
	}
	s.sessions[key] = g.Clone()
	return nil
}
