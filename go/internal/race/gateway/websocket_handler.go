package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mcdev12/typerace/go/internal/race/events"
	"github.com/mcdev12/typerace/go/internal/race/session"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests.
type WebSocketHandler struct {
	ctx               context.Context
	connectionManager *ConnectionManager
	hub               Hub
}

// NewWebSocketHandler creates a new WebSocket handler. ctx bounds the
// lifetime of every connection it accepts.
func NewWebSocketHandler(ctx context.Context, cm *ConnectionManager, hub Hub) *WebSocketHandler {
	return &WebSocketHandler{
		ctx:               ctx,
		connectionManager: cm,
		hub:               hub,
	}
}

// HandleConnection upgrades GET /ws?username=<name>. A name that is already
// connected gets a usernameError frame and is closed; the existing
// connection is left alone.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}

	conn, err := h.connectionManager.Upgrade(w, r)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to upgrade WebSocket connection")
		return
	}

	if err := h.hub.Connect(h.ctx, username); err != nil {
		log.Warn().Err(err).Str("username", username).Msg("rejecting connection")
		reject(conn, err, h.connectionManager.config.WriteTimeout)
		return
	}

	h.connectionManager.Attach(h.ctx, conn, username, h.hub)
}

func reject(conn *websocket.Conn, cause error, timeout time.Duration) {
	defer conn.Close()

	code := websocket.ClosePolicyViolation
	if !errors.Is(cause, session.ErrDuplicateUsername) && !errors.Is(cause, session.ErrInvalidUsername) {
		code = websocket.CloseTryAgainLater
	}

	deadline := time.Now().Add(timeout)
	conn.SetWriteDeadline(deadline)
	frame, err := events.NewEvent(events.TypeUsernameError, cause.Error()).Frame(time.Now())
	if err == nil {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Debug().Err(err).Msg("failed to write username error")
		}
	}
	conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, cause.Error()), deadline)
}

// HandleConnectionStats returns statistics about active connections.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.HandleConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
}
