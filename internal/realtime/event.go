// Package realtime provides the session synchronization engine: room-scoped
// membership of connected clients, the sync protocol that keeps every room
// member and the durable store converged on the latest whole-grid edit, and
// the websocket transport that carries protocol events.
package realtime

import "github.com/gridshare/gridshare/internal/grid"

// Event names carried on the realtime channel.
const (
	// EventJoinSession is sent by a client to enter the room for a session.
	EventJoinSession = "joinSession"
	// EventSpreadsheetChange is sent by a client with a full replacement grid.
	EventSpreadsheetChange = "spreadsheetChange"
	// EventSpreadsheetUpdate carries the authoritative grid to clients: once
	// to a joiner as its snapshot, and to the whole room after each edit.
	EventSpreadsheetUpdate = "spreadsheetUpdate"
	// EventNewParticipant notifies existing room members of a new joiner.
	EventNewParticipant = "newParticipant"
	// EventError carries a protocol error message to a single client.
	EventError = "error"
)

// Event is the JSON envelope exchanged on the websocket channel. Fields are
// populated per event name; unused fields are omitted on the wire.
type Event struct {
	Event      string    `json:"event"`
	SessionKey string    `json:"sessionKey,omitempty"`
	Grid       grid.Grid `json:"grid,omitempty"`
	Message    string    `json:"message,omitempty"`
}
