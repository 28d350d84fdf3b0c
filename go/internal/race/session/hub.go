package session

import (
	"context"
	"math/rand/v2"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/mcdev12/typerace/go/internal/race/events"
	"github.com/rs/zerolog/log"
)

// Config holds the externally supplied game constants.
type Config struct {
	MaxUsersPerRoom int
	PreRaceSeconds  int
	RaceSeconds     int
	InboxSize       int
}

// DefaultConfig returns the stock game settings.
func DefaultConfig() Config {
	return Config{
		MaxUsersPerRoom: 5,
		PreRaceSeconds:  10,
		RaceSeconds:     60,
		InboxSize:       256,
	}
}

// Corpus is the text collection races draw from. Lookups must not block;
// the hub calls them between a read and a write of room state.
type Corpus interface {
	Count() int
	Text(id int) (models.Text, error)
}

// ResultRecorder receives finished races. Record must not block.
type ResultRecorder interface {
	Record(result models.RaceResult)
}

// Stats is a point-in-time view of the hub, read through GetStats.
type Stats struct {
	ConnectedUsers int
	Rooms          []events.RoomView
	Available      int
	Countdown      int
	Racing         int
}

// Hub is the single serialized dispatcher. It owns the connection registry,
// the room directory and every room's timer; all of them are touched only
// from the Run goroutine.
type Hub struct {
	cfg       Config
	inbox     chan Command
	registry  *Registry
	directory *Directory
	corpus    Corpus
	sink      events.Sink
	recorder  ResultRecorder
	clock     Clock
	pickText  func(n int) int

	ctx      context.Context
	timerSeq uint64
	started  chan struct{}
	done     chan struct{}
}

// Option customizes a Hub.
type Option func(*Hub)

// WithClock sets the timer clock.
func WithClock(c Clock) Option {
	return func(h *Hub) { h.clock = c }
}

// WithRecorder sets where finished races are sent.
func WithRecorder(r ResultRecorder) Option {
	return func(h *Hub) { h.recorder = r }
}

// WithTextPicker replaces the uniform random text choice.
func WithTextPicker(pick func(n int) int) Option {
	return func(h *Hub) { h.pickText = pick }
}

// NewHub creates a hub. Call Run to start processing.
func NewHub(cfg Config, corpus Corpus, sink events.Sink, opts ...Option) *Hub {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultConfig().InboxSize
	}
	if cfg.MaxUsersPerRoom <= 0 {
		cfg.MaxUsersPerRoom = DefaultConfig().MaxUsersPerRoom
	}

	h := &Hub{
		cfg:       cfg,
		inbox:     make(chan Command, cfg.InboxSize),
		registry:  NewRegistry(),
		directory: NewDirectory(cfg.MaxUsersPerRoom),
		corpus:    corpus,
		sink:      sink,
		clock:     clockwork.NewRealClock(),
		pickText:  rand.IntN,
		ctx:       context.Background(),
		started:   make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run processes commands until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.ctx = ctx
	close(h.started)
	defer close(h.done)

	log.Info().
		Int("max_users_per_room", h.cfg.MaxUsersPerRoom).
		Int("pre_race_seconds", h.cfg.PreRaceSeconds).
		Int("race_seconds", h.cfg.RaceSeconds).
		Msg("session hub started")

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			log.Info().Msg("session hub stopped")
			return
		case cmd := <-h.inbox:
			h.dispatch(cmd)
		}
	}
}

// Started is closed once Run has begun.
func (h *Hub) Started() <-chan struct{} { return h.started }

// Submit enqueues a command. It fails once the hub has stopped.
func (h *Hub) Submit(ctx context.Context, cmd Command) error {
	// A stopped hub may still have inbox room; never let the send win.
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.inbox <- cmd:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect registers username and waits for the verdict.
func (h *Hub) Connect(ctx context.Context, username string) error {
	reply := make(chan error, 1)
	if err := h.Submit(ctx, Connect{Username: username, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of hub state.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := h.Submit(ctx, GetStats{Reply: reply}); err != nil {
		return Stats{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-h.done:
		return Stats{}, ErrHubStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

func (h *Hub) dispatch(cmd Command) {
	switch c := cmd.(type) {
	case Connect:
		c.Reply <- h.handleConnect(c)
	case Disconnect:
		h.handleDisconnect(c)
	case GetRooms:
		h.sendDirectory(c.Username)
	case CreateRoom:
		h.handleCreateRoom(c)
	case JoinRoom:
		h.handleJoinRoom(c)
	case LeaveRoom:
		h.handleLeaveRoom(c)
	case UpdateReadyStatus:
		h.handleUpdateReadyStatus(c)
	case UpdateProgress:
		h.handleUpdateProgress(c)
	case UnavailableRoom:
		h.handleUnavailableRoom(c)
	case ResetUsers:
		h.handleResetUsers(c)
	case GetStats:
		c.Reply <- h.stats()
	case timerTick:
		h.handleTimerTick(c)
	default:
		log.Warn().Type("command", cmd).Msg("unknown command - ignoring")
	}
}

func (h *Hub) shutdown() {
	for _, room := range h.directory.All() {
		h.stopTimer(room)
	}
}

func (h *Hub) stats() Stats {
	s := Stats{ConnectedUsers: h.registry.Len()}
	for _, room := range h.directory.All() {
		s.Rooms = append(s.Rooms, room.view(h.cfg.MaxUsersPerRoom))
		switch room.Phase {
		case PhaseCountdown:
			s.Countdown++
		case PhaseRacing:
			s.Racing++
		}
		if h.directory.Available(room) {
			s.Available++
		}
	}
	return s
}

// Outbound helpers. Everything the hub emits goes through these.

func (h *Hub) toAll(t events.EventType, data any) {
	h.sink.Deliver(events.ToAll{Event: events.NewEvent(t, data)})
}

func (h *Hub) toRoom(room *Room, t events.EventType, data any) {
	h.sink.Deliver(events.ToRoom{Room: room.Name, Event: events.NewEvent(t, data)})
}

func (h *Hub) toUser(username string, t events.EventType, data any) {
	h.sink.Deliver(events.ToUser{Username: username, Event: events.NewEvent(t, data)})
}

func (h *Hub) roomError(username string, err error) {
	log.Debug().Err(err).Str("username", username).Msg("room request rejected")
	h.toUser(username, events.TypeRoomError, err.Error())
}

func (h *Hub) directoryViews() []events.RoomView {
	rooms := h.directory.ListAvailable()
	views := make([]events.RoomView, 0, len(rooms))
	for _, room := range rooms {
		views = append(views, room.view(h.cfg.MaxUsersPerRoom))
	}
	return views
}

func (h *Hub) broadcastDirectory() {
	h.toAll(events.TypeUpdateRooms, h.directoryViews())
}

func (h *Hub) sendDirectory(username string) {
	h.toUser(username, events.TypeUpdateRooms, h.directoryViews())
}
