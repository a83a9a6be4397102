package realtime

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gridshare/gridshare/internal/config"
)

// Transport upgrades HTTP requests to websocket connections and pumps
// protocol events between the socket and the sync Handler. Each connection
// gets one Client handle, one read loop (driving the handler), and one write
// loop (draining the client's outbound channel).
type Transport struct {
	handler  *Handler
	cfg      config.RealtimeConfig
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewTransport creates a websocket Transport.
//
// Precondition: handler and logger must be non-nil; allowedOrigin must be a
// non-empty origin or "*".
func NewTransport(handler *Handler, cfg config.RealtimeConfig, allowedOrigin string, logger *zap.Logger) *Transport {
	return &Transport{
		handler: handler,
		cfg:     cfg,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "*" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// ServeHTTP upgrades the request and services the connection until the peer
// disconnects or the socket errors.
//
// Postcondition: On return the client has been removed from room membership
// and both the client handle and the socket are closed.
func (t *Transport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(uuid.NewString(), t.cfg.SendBuffer)
	t.logger.Info("client connected", zap.String("client_id", client.ID()))

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		t.writeLoop(conn, client)
	}()

	t.readLoop(r, conn, client)

	// Disconnect exactly once, then release the write loop by closing the
	// outbound channel.
	t.handler.Disconnect(client)
	_ = client.Close()
	<-writeDone
	_ = conn.Close()

	t.logger.Info("client disconnected", zap.String("client_id", client.ID()))
}

func (t *Transport) readLoop(r *http.Request, conn *websocket.Conn, client *Client) {
	conn.SetReadLimit(t.cfg.ReadLimit)
	if t.cfg.PingInterval > 0 {
		deadline := 2 * t.cfg.PingInterval
		_ = conn.SetReadDeadline(time.Now().Add(deadline))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(deadline))
		})
	}

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.logger.Warn("websocket read failed",
					zap.String("client_id", client.ID()),
					zap.Error(err),
				)
			}
			return
		}

		switch ev.Event {
		case EventJoinSession:
			t.handler.Join(r.Context(), client, ev.SessionKey)
		case EventSpreadsheetChange:
			t.handler.Edit(r.Context(), client, ev.SessionKey, ev.Grid)
		default:
			if err := client.Send(Event{
				Event:   EventError,
				Message: fmt.Sprintf("unknown event %q", ev.Event),
			}); err != nil {
				t.logger.Warn("delivering protocol error",
					zap.String("client_id", client.ID()),
					zap.Error(err),
				)
			}
		}
	}
}

func (t *Transport) writeLoop(conn *websocket.Conn, client *Client) {
	var pingC <-chan time.Time
	if t.cfg.PingInterval > 0 {
		ticker := time.NewTicker(t.cfg.PingInterval)
		defer ticker.Stop()
		pingC = ticker.C
	}

	for {
		select {
		case ev, ok := <-client.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					t.writeDeadline())
				return
			}
			_ = conn.SetWriteDeadline(t.writeDeadline())
			if err := conn.WriteJSON(ev); err != nil {
				t.logger.Debug("websocket write failed",
					zap.String("client_id", client.ID()),
					zap.Error(err),
				)
				return
			}
		case <-pingC:
			if err := conn.WriteControl(websocket.PingMessage, nil, t.writeDeadline()); err != nil {
				return
			}
		}
	}
}

// writeDeadline returns the absolute deadline for the next socket write, or
// the zero time when no write timeout is configured.
func (t *Transport) writeDeadline() time.Time {
	if t.cfg.WriteTimeout > 0 {
		return time.Now().Add(t.cfg.WriteTimeout)
	}
	return time.Time{}
}
