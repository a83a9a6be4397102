package realtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/gridshare/gridshare/internal/directory"
	"github.com/gridshare/gridshare/internal/grid"
	"github.com/gridshare/gridshare/internal/storage"
)

// Client-facing error messages. These mirror what the protocol promises on
// the wire, so tests pin them.
const (
	msgSessionNotFound = "Session not found"
	msgJoinFailed      = "Error joining session"
)

// Handler implements the sync protocol: for each inbound client event it
// orchestrates store reads/writes and room fan-out. Per connection the state
// machine is Connected (no room) → Joined (member of one room) →
// Disconnected; membership in Rooms is the Joined state.
type Handler struct {
	store     storage.Store
	directory *directory.Service
	rooms     *Rooms
	logger    *zap.Logger
}

// NewHandler creates a sync protocol Handler.
//
// Precondition: all arguments must be non-nil.
func NewHandler(store storage.Store, dir *directory.Service, rooms *Rooms, logger *zap.Logger) *Handler {
	return &Handler{
		store:     store,
		directory: dir,
		rooms:     rooms,
		logger:    logger,
	}
}

// Rooms returns the membership registry the handler drives.
func (h *Handler) Rooms() *Rooms {
	return h.rooms
}

// Join handles a joinSession request. On success the joiner receives exactly
// one spreadsheetUpdate carrying the session's current grid before the other
// room members are told about the new participant — the joiner must never
// observe a notification about itself. An unknown key or a storage failure
// produces an error event to the requesting client only and leaves room
// membership untouched.
func (h *Handler) Join(ctx context.Context, c *Client, key string) {
	exists, err := h.directory.SessionExists(ctx, key)
	if err != nil {
		h.logger.Error("checking session on join",
			zap.String("session_key", key),
			zap.String("client_id", c.ID()),
			zap.Error(err),
		)
		if sendErr := c.Send(Event{Event: EventError, Message: msgJoinFailed}); sendErr != nil {
			h.logger.Warn("delivering join error", zap.String("client_id", c.ID()), zap.Error(sendErr))
		}
		return
	}
	if !exists {
		if sendErr := c.Send(Event{Event: EventError, Message: msgSessionNotFound}); sendErr != nil {
			h.logger.Warn("delivering join error", zap.String("client_id", c.ID()), zap.Error(sendErr))
		}
		return
	}

	g, err := h.store.Get(ctx, key)
	if err != nil {
		h.logger.Error("reading session grid on join",
			zap.String("session_key", key),
			zap.String("client_id", c.ID()),
			zap.Error(err),
		)
		if sendErr := c.Send(Event{Event: EventError, Message: msgJoinFailed}); sendErr != nil {
			h.logger.Warn("delivering join error", zap.String("client_id", c.ID()), zap.Error(sendErr))
		}
		return
	}

	h.rooms.Join(key, c)

	// Snapshot to the joiner first, peer notification after.
	if err := c.Send(Event{Event: EventSpreadsheetUpdate, Grid: g}); err != nil {
		h.logger.Warn("delivering join snapshot", zap.String("client_id", c.ID()), zap.Error(err))
	}
	h.rooms.BroadcastExcept(key, c, Event{
		Event:   EventNewParticipant,
		Message: "A new user has joined the session.",
	})

	h.logger.Info("client joined session",
		zap.String("session_key", key),
		zap.String("client_id", c.ID()),
		zap.Int("members", h.rooms.MemberCount(key)),
	)
}

// Edit handles a spreadsheetChange event carrying a full replacement grid.
// The grid is persisted as-is (whole-grid replacement is the only mutation
// primitive; concurrent edits serialize at the store and the later-completing
// write wins). On success the new grid is broadcast to every room member
// including the sender, so all clients converge on the authoritative stored
// state rather than their local optimistic state. On storage failure the edit
// is logged and dropped: no broadcast, no client-visible error.
func (h *Handler) Edit(ctx context.Context, c *Client, key string, g grid.Grid) {
	if err := h.store.ReplaceGrid(ctx, key, g); err != nil {
		h.logger.Error("persisting spreadsheet edit",
			zap.String("session_key", key),
			zap.String("client_id", c.ID()),
			zap.Error(err),
		)
		return
	}

	delivered := h.rooms.Broadcast(key, Event{Event: EventSpreadsheetUpdate, Grid: g})
	h.logger.Debug("broadcast spreadsheet update",
		zap.String("session_key", key),
		zap.String("client_id", c.ID()),
		zap.Int("delivered", delivered),
	)
}

// Disconnect handles connection loss: the client is removed from whatever
// room it belonged to. No persistence or broadcast occurs; this is a no-op
// for clients that never joined a room.
func (h *Handler) Disconnect(c *Client) {
	if key, ok := h.rooms.Leave(c); ok {
		h.logger.Info("client left session",
			zap.String("session_key", key),
			zap.String("client_id", c.ID()),
		)
	}
}
