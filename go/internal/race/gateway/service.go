package gateway

import (
	"context"
	"net/http"

	"github.com/mcdev12/typerace/go/internal/race/session"
	"github.com/rs/zerolog/log"
)

// Service wires the session hub to the WebSocket transport.
type Service struct {
	ctx               context.Context
	connectionManager *ConnectionManager
	hub               *session.Hub
	wsHandler         *WebSocketHandler
}

// Config holds configuration for the race gateway.
type Config struct {
	ConnectionConfig ConnectionConfig
	Session          session.Config
}

// DefaultConfig returns default configuration for the race gateway.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		Session:          session.DefaultConfig(),
	}
}

// NewService creates the gateway. Nothing runs until Start; ctx bounds the
// hub, the connection manager and every connection.
func NewService(ctx context.Context, config Config, corpus session.Corpus, opts ...session.Option) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	hub := session.NewHub(config.Session, corpus, connectionManager, opts...)

	return &Service{
		ctx:               ctx,
		connectionManager: connectionManager,
		hub:               hub,
		wsHandler:         NewWebSocketHandler(ctx, connectionManager, hub),
	}
}

// Start runs the connection manager and the hub until the service context
// is cancelled.
func (s *Service) Start() {
	log.Info().Msg("starting race gateway service")

	go s.connectionManager.Start(s.ctx)
	s.hub.Run(s.ctx)

	log.Info().Msg("race gateway service stopped")
}

// RegisterRoutes registers the WebSocket HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("race gateway routes registered")
}

// Hub exposes the session hub for read-only callers such as the admin API.
func (s *Service) Hub() *session.Hub {
	return s.hub
}

// ConnectionStats returns statistics about active connections.
func (s *Service) ConnectionStats() ConnectionStats {
	return s.connectionManager.Stats()
}
