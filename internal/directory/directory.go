// Package directory issues session identifiers and validates session
// existence on join requests.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gridshare/gridshare/internal/grid"
	"github.com/gridshare/gridshare/internal/storage"
)

// Service creates sessions and answers existence queries. It is backed by a
// storage.Store and holds no state of its own.
type Service struct {
	store  storage.Store
	logger *zap.Logger
}

// NewService creates a directory Service backed by the given store.
//
// Precondition: store and logger must be non-nil.
func NewService(store storage.Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// CreateSession generates a fresh session key, persists a new session with an
// empty grid under it, and returns the key. Keys are random UUIDv4 values;
// collision probability is negligible, but the store's duplicate check still
// guards the insert.
//
// Postcondition: On success the returned key immediately satisfies
// SessionExists. On storage failure the error is propagated and no key is
// returned.
func (s *Service) CreateSession(ctx context.Context) (string, error) {
	key := uuid.NewString()
	if err := s.store.Create(ctx, key, grid.New()); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	s.logger.Info("session created", zap.String("session_key", key))
	return key, nil
}

// SessionExists reports whether the given key identifies a persisted session.
//
// Postcondition: Returns (false, nil) for a clean not-found. A non-nil error
// means the storage layer failed and says nothing about existence.
func (s *Service) SessionExists(ctx context.Context, key string) (bool, error) {
	_, err := s.store.Get(ctx, key)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking session existence: %w", err)
	}
	return true, nil
}
