package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRooms_JoinAndMembers(t *testing.T) {
	r := NewRooms()
	a := NewClient("a", 4)
	b := NewClient("b", 4)

	r.Join("s1", a)
	r.Join("s1", b)

	assert.Equal(t, 2, r.MemberCount("s1"))
	assert.ElementsMatch(t, []*Client{a, b}, r.Members("s1"))

	key, ok := r.RoomOf(a)
	require.True(t, ok)
	assert.Equal(t, "s1", key)
}

func TestRooms_JoinMovesBetweenRooms(t *testing.T) {
	r := NewRooms()
	a := NewClient("a", 4)

	r.Join("s1", a)
	r.Join("s2", a)

	assert.Equal(t, 0, r.MemberCount("s1"))
	assert.Equal(t, 1, r.MemberCount("s2"))
}

func TestRooms_Leave(t *testing.T) {
	r := NewRooms()
	a := NewClient("a", 4)
	r.Join("s1", a)

	key, ok := r.Leave(a)
	require.True(t, ok)
	assert.Equal(t, "s1", key)
	assert.Equal(t, 0, r.MemberCount("s1"))
	assert.Empty(t, r.Members("s1"), "empty rooms are pruned")
}

func TestRooms_LeaveNeverJoined(t *testing.T) {
	r := NewRooms()
	_, ok := r.Leave(NewClient("loner", 4))
	assert.False(t, ok)
}

func TestRooms_Broadcast(t *testing.T) {
	r := NewRooms()
	a := NewClient("a", 4)
	b := NewClient("b", 4)
	r.Join("s1", a)
	r.Join("s1", b)

	n := r.Broadcast("s1", Event{Event: EventSpreadsheetUpdate})
	assert.Equal(t, 2, n)
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestRooms_BroadcastExcept(t *testing.T) {
	r := NewRooms()
	a := NewClient("a", 4)
	b := NewClient("b", 4)
	r.Join("s1", a)
	r.Join("s1", b)

	n := r.BroadcastExcept("s1", a, Event{Event: EventNewParticipant})
	assert.Equal(t, 1, n)
	assert.Len(t, a.Events(), 0, "sender must not receive the peer notification")
	assert.Len(t, b.Events(), 1)
}

func TestRooms_BroadcastUnknownRoom(t *testing.T) {
	r := NewRooms()
	assert.Equal(t, 0, r.Broadcast("nope", Event{Event: EventSpreadsheetUpdate}))
}

func TestRooms_BroadcastClosesStalledClients(t *testing.T) {
	r := NewRooms()
	healthy := NewClient("healthy", 4)
	stalled := NewClient("stalled", 1)
	r.Join("s1", healthy)
	r.Join("s1", stalled)

	// Fill the stalled client's buffer so the next delivery cannot be queued.
	require.NoError(t, stalled.Send(Event{Event: EventSpreadsheetUpdate}))

	n := r.Broadcast("s1", Event{Event: EventSpreadsheetUpdate})
	assert.Equal(t, 1, n)
	assert.True(t, stalled.IsClosed(), "a client that stops draining is torn down")
	assert.False(t, healthy.IsClosed())
}

func TestRooms_BroadcastSkipsClosedClients(t *testing.T) {
	r := NewRooms()
	a := NewClient("a", 4)
	b := NewClient("b", 4)
	r.Join("s1", a)
	r.Join("s1", b)
	require.NoError(t, b.Close())

	n := r.Broadcast("s1", Event{Event: EventSpreadsheetUpdate})
	assert.Equal(t, 1, n)
}
