package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gridshare/gridshare/internal/directory"
	"github.com/gridshare/gridshare/internal/grid"
	"github.com/gridshare/gridshare/internal/storage"
	"github.com/gridshare/gridshare/internal/storage/memory"
)

// brokenStore wraps a working store and fails selected operations, simulating
// an unreachable backend mid-session.
type brokenStore struct {
	storage.Store
	failGet     bool
	failReplace bool
}

var errStoreDown = errors.New("store down")

func (b *brokenStore) Get(ctx context.Context, key string) (grid.Grid, error) {
	if b.failGet {
		return nil, errStoreDown
	}
	return b.Store.Get(ctx, key)
}

func (b *brokenStore) ReplaceGrid(ctx context.Context, key string, g grid.Grid) error {
	if b.failReplace {
		return errStoreDown
	}
	return b.Store.ReplaceGrid(ctx, key, g)
}

func newTestHandler(t *testing.T, store storage.Store) (*Handler, string) {
	t.Helper()
	logger := zap.NewNop()
	dir := directory.NewService(store, logger)
	h := NewHandler(store, dir, NewRooms(), logger)

	key, err := dir.CreateSession(context.Background())
	require.NoError(t, err)
	return h, key
}

// drain collects every event currently queued on the client.
func drain(c *Client) []Event {
	var out []Event
	for {
		select {
		case ev := <-c.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestJoin_SendsSnapshot(t *testing.T) {
	store := memory.New()
	h, key := newTestHandler(t, store)

	g := grid.New()
	g[2][3] = "seed"
	require.NoError(t, store.ReplaceGrid(context.Background(), key, g))

	a := NewClient("a", 8)
	h.Join(context.Background(), a, key)

	events := drain(a)
	require.Len(t, events, 1, "joiner gets exactly one event")
	assert.Equal(t, EventSpreadsheetUpdate, events[0].Event)
	assert.True(t, g.Equal(events[0].Grid), "snapshot must equal the stored grid")
	assert.Equal(t, 1, h.Rooms().MemberCount(key))
}

func TestJoin_NotFound(t *testing.T) {
	h, _ := newTestHandler(t, memory.New())

	a := NewClient("a", 8)
	h.Join(context.Background(), a, "no-such-session")

	events := drain(a)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Event)
	assert.Equal(t, "Session not found", events[0].Message)
	assert.Equal(t, 0, h.Rooms().MemberCount("no-such-session"), "failed join must leave no membership")
}

func TestJoin_StorageFailure(t *testing.T) {
	store := memory.New()
	h, key := newTestHandler(t, store)

	broken := &brokenStore{Store: store, failGet: true}
	logger := zap.NewNop()
	h = NewHandler(broken, directory.NewService(broken, logger), h.Rooms(), logger)

	a := NewClient("a", 8)
	h.Join(context.Background(), a, key)

	events := drain(a)
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Event)
	assert.Equal(t, "Error joining session", events[0].Message)
	assert.Equal(t, 0, h.Rooms().MemberCount(key))
}

func TestJoin_NotifiesExistingMembersOnly(t *testing.T) {
	h, key := newTestHandler(t, memory.New())
	ctx := context.Background()

	a := NewClient("a", 8)
	h.Join(ctx, a, key)
	drain(a)

	b := NewClient("b", 8)
	h.Join(ctx, b, key)

	bEvents := drain(b)
	require.Len(t, bEvents, 1, "joiner never observes a notification about itself")
	assert.Equal(t, EventSpreadsheetUpdate, bEvents[0].Event)

	aEvents := drain(a)
	require.Len(t, aEvents, 1, "existing member gets exactly one peer notification")
	assert.Equal(t, EventNewParticipant, aEvents[0].Event)
	assert.Nil(t, aEvents[0].Grid, "peer notification carries no grid payload")
}

func TestEdit_BroadcastIncludesSender(t *testing.T) {
	store := memory.New()
	h, key := newTestHandler(t, store)
	ctx := context.Background()

	a := NewClient("a", 8)
	b := NewClient("b", 8)
	h.Join(ctx, a, key)
	h.Join(ctx, b, key)
	drain(a)
	drain(b)

	g := grid.New()
	g[0][0] = "x"
	h.Edit(ctx, a, key, g)

	for _, c := range []*Client{a, b} {
		events := drain(c)
		require.Len(t, events, 1, "every member, sender included, observes the update")
		assert.Equal(t, EventSpreadsheetUpdate, events[0].Event)
		assert.True(t, g.Equal(events[0].Grid))
	}

	stored, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, g.Equal(stored))
}

func TestEdit_StorageFailureDropped(t *testing.T) {
	store := memory.New()
	logger := zap.NewNop()
	dir := directory.NewService(store, logger)
	key, err := dir.CreateSession(context.Background())
	require.NoError(t, err)

	core, logs := observer.New(zap.ErrorLevel)
	broken := &brokenStore{Store: store, failReplace: true}
	h := NewHandler(broken, dir, NewRooms(), zap.New(core))
	ctx := context.Background()

	a := NewClient("a", 8)
	h.Join(ctx, a, key)
	drain(a)

	g := grid.New()
	g[0][0] = "lost"
	h.Edit(ctx, a, key, g)

	assert.Empty(t, drain(a), "failed edit must not broadcast, not even an error")
	assert.Equal(t, 1, logs.FilterMessage("persisting spreadsheet edit").Len(),
		"failure path must be logged")

	stored, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "", stored.Cell(0, 0), "dropped edit must not be persisted")
}

func TestEdit_LastWriteWins(t *testing.T) {
	store := memory.New()
	h, key := newTestHandler(t, store)
	ctx := context.Background()

	a := NewClient("a", 8)
	b := NewClient("b", 8)
	h.Join(ctx, a, key)
	h.Join(ctx, b, key)
	drain(a)
	drain(b)

	e1 := grid.New()
	e1[0][0] = "first"
	e2 := grid.New()
	e2[1][1] = "second"

	h.Edit(ctx, a, key, e1)
	h.Edit(ctx, b, key, e2)

	for _, c := range []*Client{a, b} {
		events := drain(c)
		require.Len(t, events, 2)
		last := events[len(events)-1]
		assert.True(t, e2.Equal(last.Grid), "all members converge on the later write, never a merge")
	}

	stored, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, e2.Equal(stored))
	assert.Equal(t, "", stored.Cell(0, 0), "no merge of concurrent edits")
}

func TestEdit_MalformedGridPersistedAsIs(t *testing.T) {
	store := memory.New()
	h, key := newTestHandler(t, store)
	ctx := context.Background()

	a := NewClient("a", 8)
	h.Join(ctx, a, key)
	drain(a)

	odd := grid.Grid{{"only", "two"}, {"rows"}}
	h.Edit(ctx, a, key, odd)

	stored, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, odd.Equal(stored), "persistence is shape-permissive")
	assert.False(t, stored.WellFormed())
}

func TestDisconnect_RemovesMembership(t *testing.T) {
	h, key := newTestHandler(t, memory.New())
	ctx := context.Background()

	a := NewClient("a", 8)
	b := NewClient("b", 8)
	h.Join(ctx, a, key)
	h.Join(ctx, b, key)
	drain(a)
	drain(b)

	h.Disconnect(b)
	assert.Equal(t, 1, h.Rooms().MemberCount(key))

	g := grid.New()
	g[0][0] = "after"
	h.Edit(ctx, a, key, g)

	assert.Len(t, drain(a), 1)
	assert.Empty(t, drain(b), "broadcast must never reach a disconnected handle")
}

func TestDisconnect_NeverJoinedIsNoop(t *testing.T) {
	h, _ := newTestHandler(t, memory.New())
	h.Disconnect(NewClient("loner", 8))
}

func TestScenario_CreateEditLateJoin(t *testing.T) {
	store := memory.New()
	logger := zap.NewNop()
	dir := directory.NewService(store, logger)
	h := NewHandler(store, dir, NewRooms(), logger)
	ctx := context.Background()

	key, err := dir.CreateSession(ctx)
	require.NoError(t, err)

	// Client A joins and receives an all-empty grid.
	a := NewClient("a", 8)
	h.Join(ctx, a, key)
	aEvents := drain(a)
	require.Len(t, aEvents, 1)
	require.True(t, grid.New().Equal(aEvents[0].Grid))

	// A edits cell (0,0) and submits the full grid.
	g := aEvents[0].Grid.Clone()
	g[0][0] = "x"
	h.Edit(ctx, a, key, g)
	drain(a)

	// B joins afterward and sees A's edit in its snapshot.
	b := NewClient("b", 8)
	h.Join(ctx, b, key)
	bEvents := drain(b)
	require.Len(t, bEvents, 1)
	assert.Equal(t, EventSpreadsheetUpdate, bEvents[0].Event)
	assert.Equal(t, "x", bEvents[0].Grid.Cell(0, 0))
}
