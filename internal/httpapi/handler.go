// Package httpapi exposes the session management REST surface: session
// creation and join validation, plus the websocket mount point and a health
// probe.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/gridshare/gridshare/internal/directory"
)

// HealthChecker reports whether the storage backend is reachable.
// *postgres.Pool satisfies it.
type HealthChecker interface {
	Health(ctx context.Context, timeout time.Duration) error
}

// Handler serves the REST endpoints.
type Handler struct {
	directory *directory.Service
	health    HealthChecker
	logger    *zap.Logger
}

// NewHandler creates an HTTP Handler.
//
// Precondition: dir and logger must be non-nil; health may be nil, in which
// case the health probe only reports process liveness.
func NewHandler(dir *directory.Service, health HealthChecker, logger *zap.Logger) *Handler {
	return &Handler{directory: dir, health: health, logger: logger}
}

// Router builds the full route table: REST endpoints, the websocket mount,
// and the health probe, wrapped in request logging and CORS middleware.
//
// Precondition: ws must be non-nil; allowedOrigin must be an origin or "*".
func (h *Handler) Router(ws http.Handler, allowedOrigin string) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogging(h.logger))
	r.Use(cors(allowedOrigin))

	r.HandleFunc("/create-session", h.createSession).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/join-session", h.joinSession).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/ws", ws).Methods(http.MethodGet)

	return r
}

// createSession issues a fresh session key backed by an empty grid.
// Responds 200 with {"sessionKey": ...}, or 500 on storage failure.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	key, err := h.directory.CreateSession(r.Context())
	if err != nil {
		h.logger.Error("creating session", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error creating session"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sessionKey": key})
}

// joinSession validates that the submitted key names an existing session.
// Responds 200 plain text on success, 404 plain text when the session does
// not exist, 500 on storage failure.
func (h *Handler) joinSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionKey string `json:"sessionKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	exists, err := h.directory.SessionExists(r.Context(), body.SessionKey)
	if err != nil {
		h.logger.Error("checking session on join",
			zap.String("session_key", body.SessionKey),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error joining session"})
		return
	}
	if !exists {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Session joined successfully"))
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Health(r.Context(), 5*time.Second); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
