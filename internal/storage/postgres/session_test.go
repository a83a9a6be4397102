package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridshare/gridshare/internal/grid"
	"github.com/gridshare/gridshare/internal/storage"
	"github.com/gridshare/gridshare/internal/storage/postgres"
	"github.com/gridshare/gridshare/internal/testutil"
)

func setupRepo(t *testing.T) *postgres.SessionRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return postgres.NewSessionRepository(pc.RawPool)
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	g := grid.New()
	g[0][0] = "x"
	g[49][49] = "corner"
	require.NoError(t, repo.Create(ctx, "s1", g))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, g.Equal(got), "grid must round-trip through JSONB intact")
}

func TestSessionRepository_CreateDuplicate(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "s1", grid.New()))
	err := repo.Create(ctx, "s1", grid.New())
	assert.ErrorIs(t, err, storage.ErrSessionExists)
}

func TestSessionRepository_GetNotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestSessionRepository_ReplaceGrid(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "s1", grid.New()))

	g := grid.New()
	g[7][7] = "edited"
	require.NoError(t, repo.ReplaceGrid(ctx, "s1", g))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Cell(7, 7))
}

func TestSessionRepository_ReplaceGridNotFound(t *testing.T) {
	repo := setupRepo(t)

	err := repo.ReplaceGrid(context.Background(), "missing", grid.New())
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestSessionRepository_LastWriteWins(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "s1", grid.New()))

	e1 := grid.New()
	e1[0][0] = "first"
	e2 := grid.New()
	e2[1][1] = "second"

	require.NoError(t, repo.ReplaceGrid(ctx, "s1", e1))
	require.NoError(t, repo.ReplaceGrid(ctx, "s1", e2))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, e2.Equal(got))
	assert.Equal(t, "", got.Cell(0, 0), "whole-grid replacement never merges")
}

func TestSessionRepository_PermissiveShape(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "s1", grid.New()))

	odd := grid.Grid{{"a"}, {"b", "c"}}
	require.NoError(t, repo.ReplaceGrid(ctx, "s1", odd))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, odd.Equal(got), "store accepts any matrix shape as-is")
}

func TestSessionRepository_UnicodeCells(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	g := grid.New()
	g[1][1] = "héllo 世界 🙂"
	require.NoError(t, repo.Create(ctx, "s1", g))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "héllo 世界 🙂", got.Cell(1, 1))
}
