package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/typerace/go/internal/race/events"
	"github.com/mcdev12/typerace/go/internal/race/session"
	"github.com/rs/zerolog/log"
)

// Hub is the session side of a connection: registration and command intake.
type Hub interface {
	Connect(ctx context.Context, username string) error
	Submit(ctx context.Context, cmd session.Command) error
}

// ConnectionManager owns the live WebSocket connections, keyed by username,
// and the room groups they are subscribed to. It implements events.Sink; all
// outbound instructions are applied in order by Start.
type ConnectionManager struct {
	conns map[string]*Connection
	rooms map[string]map[*Connection]bool
	mu    sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	outbound chan events.Outbound
}

// Connection is one client's WebSocket.
type Connection struct {
	ID       string
	Username string
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	hub         Hub
	ctx         context.Context
	ConnectedAt time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	OutboundBuffer  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		OutboundBuffer:  4096,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		conns: make(map[string]*Connection),
		rooms: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:   config,
		outbound: make(chan events.Outbound, config.OutboundBuffer),
	}
}

// Start applies outbound instructions until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			cm.closeAll()
			log.Info().Msg("connection manager shutting down")
			return
		case out := <-cm.outbound:
			cm.apply(out)
		}
	}
}

// Deliver queues an outbound instruction. It never blocks the hub; when the
// queue is full the instruction is dropped.
func (cm *ConnectionManager) Deliver(out events.Outbound) {
	select {
	case cm.outbound <- out:
	default:
		log.Warn().Type("outbound", out).Msg("outbound queue full, dropping message")
	}
}

// Upgrade switches the request to a WebSocket.
func (cm *ConnectionManager) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}
	return conn, nil
}

// Attach registers an upgraded socket for a username the hub has accepted
// and starts its pumps.
func (cm *ConnectionManager) Attach(ctx context.Context, conn *websocket.Conn, username string, hub Hub) *Connection {
	connection := &Connection{
		ID:          uuid.New().String(),
		Username:    username,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		hub:         hub,
		ctx:         ctx,
		ConnectedAt: time.Now(),
		done:        make(chan struct{}),
	}

	cm.mu.Lock()
	cm.conns[username] = connection
	cm.mu.Unlock()

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("username", username).
		Msg("WebSocket connection established")
	return connection
}

// unregister drops a connection from every group. The first call wins.
func (cm *ConnectionManager) unregister(conn *Connection) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.conns[conn.Username] != conn {
		return false
	}
	delete(cm.conns, conn.Username)
	for room, members := range cm.rooms {
		delete(members, conn)
		if len(members) == 0 {
			delete(cm.rooms, room)
		}
	}
	return true
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.conns))
	for _, c := range cm.conns {
		conns = append(conns, c)
	}
	cm.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}
}

func (cm *ConnectionManager) apply(out events.Outbound) {
	switch o := out.(type) {
	case events.Subscribe:
		cm.subscribe(o.Room, o.Username)
	case events.Unsubscribe:
		cm.unsubscribe(o.Room, o.Username)
	case events.ToAll:
		cm.send(o.Event, cm.targetsAll())
	case events.ToRoom:
		cm.send(o.Event, cm.targetsRoom(o.Room))
	case events.ToUser:
		cm.send(o.Event, cm.targetsUser(o.Username))
	}
}

func (cm *ConnectionManager) subscribe(room, username string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conn, ok := cm.conns[username]
	if !ok {
		return
	}
	if cm.rooms[room] == nil {
		cm.rooms[room] = make(map[*Connection]bool)
	}
	cm.rooms[room][conn] = true
}

func (cm *ConnectionManager) unsubscribe(room, username string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	members, ok := cm.rooms[room]
	if !ok {
		return
	}
	for conn := range members {
		if conn.Username == username {
			delete(members, conn)
		}
	}
	if len(members) == 0 {
		delete(cm.rooms, room)
	}
}

func (cm *ConnectionManager) targetsAll() []*Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	targets := make([]*Connection, 0, len(cm.conns))
	for _, c := range cm.conns {
		targets = append(targets, c)
	}
	return targets
}

func (cm *ConnectionManager) targetsRoom(room string) []*Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	targets := make([]*Connection, 0, len(cm.rooms[room]))
	for c := range cm.rooms[room] {
		targets = append(targets, c)
	}
	return targets
}

func (cm *ConnectionManager) targetsUser(username string) []*Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if c, ok := cm.conns[username]; ok {
		return []*Connection{c}
	}
	return nil
}

// send frames the event once and queues it on every target.
func (cm *ConnectionManager) send(event events.Event, targets []*Connection) {
	if len(targets) == 0 {
		return
	}
	frame, err := event.Frame(time.Now())
	if err != nil {
		log.Error().Err(err).Str("event_type", string(event.Type)).Msg("failed to marshal event")
		return
	}

	for _, conn := range targets {
		if !conn.enqueue(frame) {
			log.Warn().
				Str("connection_id", conn.ID).
				Str("username", conn.Username).
				Msg("connection send buffer full, closing connection")
			conn.close()
		}
	}

	log.Debug().
		Str("event_type", string(event.Type)).
		Int("connections", len(targets)).
		Msg("event delivered")
}

// Stats reports connection and group counts.
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	groups := make(map[string]int, len(cm.rooms))
	for room, members := range cm.rooms {
		groups[room] = len(members)
	}
	return ConnectionStats{
		TotalConnections: len(cm.conns),
		RoomGroups:       groups,
	}
}

// ConnectionStats is returned by Stats.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	RoomGroups       map[string]int `json:"room_groups"`
}

// enqueue reports false when the connection cannot keep up.
func (c *Connection) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return true
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

// close releases the connection and tells the hub the user is gone. Safe to
// call from both pumps and the manager.
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.Manager.unregister(c)
		c.Conn.Close()

		if err := c.hub.Submit(context.WithoutCancel(c.ctx), session.Disconnect{Username: c.Username}); err != nil {
			log.Warn().Err(err).Str("username", c.Username).Msg("failed to submit disconnect")
		}
		log.Info().
			Str("connection_id", c.ID).
			Str("username", c.Username).
			Msg("connection closed")
	})
}

// writePump handles sending messages to the WebSocket connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump turns client frames into hub commands.
func (c *Connection) readPump() {
	defer c.close()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

func (c *Connection) handleClientMessage(message []byte) {
	cmd, err := decodeCommand(message, c.Username)
	if err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", c.ID).
			Str("username", c.Username).
			Msg("dropping client message")
		return
	}
	if err := c.hub.Submit(c.ctx, cmd); err != nil {
		log.Error().Err(err).Str("username", c.Username).Msg("failed to submit command")
	}
}
