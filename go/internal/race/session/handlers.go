package session

import (
	"strings"

	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/mcdev12/typerace/go/internal/race/events"
	"github.com/rs/zerolog/log"
)

func (h *Hub) handleConnect(c Connect) error {
	if err := h.registry.Register(c.Username); err != nil {
		log.Warn().Err(err).Str("username", c.Username).Msg("connection rejected")
		return err
	}
	log.Info().Str("username", c.Username).Int("connected", h.registry.Len()).Msg("user connected")
	return nil
}

// handleDisconnect purges a user from every room. It is the only way a
// connection's state is released.
func (h *Hub) handleDisconnect(c Disconnect) {
	if !h.registry.Unregister(c.Username) {
		return
	}
	log.Info().Str("username", c.Username).Int("connected", h.registry.Len()).Msg("user disconnected")

	changed := false
	for _, room := range h.directory.All() {
		if room.removeUser(c.Username) {
			changed = true
			if room.empty() {
				h.destroyRoom(room)
				continue
			}
			h.toRoom(room, events.TypeUsersUpdated, c.Username)
			h.afterMembershipChange(room)
			continue
		}
		if !room.joined && room.CreatedBy == c.Username {
			changed = true
			h.destroyRoom(room)
		}
	}
	if changed {
		h.broadcastDirectory()
	}
}

func (h *Hub) handleCreateRoom(c CreateRoom) {
	name := strings.TrimSpace(c.RoomName)
	if h.directory.FindByUser(c.Username) != nil {
		h.roomError(c.Username, ErrAlreadyInRoom)
		return
	}
	room, err := h.directory.Create(name, c.Username)
	if err != nil {
		h.roomError(c.Username, err)
		return
	}
	log.Info().Str("room", room.Name).Str("username", c.Username).Msg("room created")

	room.creatorWatching = true
	h.sink.Deliver(events.Subscribe{Room: room.Name, Username: c.Username})
	h.toUser(c.Username, events.TypeRoomCreated, events.RoomCreatedPayload{
		RoomName: room.Name,
		Username: c.Username,
	})
	h.broadcastDirectory()
}

func (h *Hub) handleJoinRoom(c JoinRoom) {
	room, err := h.directory.Join(strings.TrimSpace(c.RoomName), c.Username)
	if err != nil {
		h.roomError(c.Username, err)
		return
	}
	log.Info().Str("room", room.Name).Str("username", c.Username).Int("users", len(room.Users)).Msg("user joined room")

	h.releaseCreatedRooms(c.Username, room)
	h.sink.Deliver(events.Subscribe{Room: room.Name, Username: c.Username})
	h.toUser(c.Username, events.TypeRoomJoined, room.Name)
	h.broadcastDirectory()
	h.toRoom(room, events.TypeRoomUsers, room.userViews())
	h.maybeStartCountdown(room)
}

// releaseCreatedRooms drops the creator subscription of rooms the user made
// but is not racing in.
func (h *Hub) releaseCreatedRooms(username string, joined *Room) {
	for _, room := range h.directory.All() {
		if room != joined && room.CreatedBy == username && room.creatorWatching {
			room.creatorWatching = false
			h.sink.Deliver(events.Unsubscribe{Room: room.Name, Username: username})
		}
	}
}

func (h *Hub) handleLeaveRoom(c LeaveRoom) {
	room, ok := h.directory.Get(strings.TrimSpace(c.RoomName))
	if !ok {
		h.roomError(c.Username, ErrRoomMissing)
		return
	}
	if !room.removeUser(c.Username) {
		h.roomError(c.Username, ErrNotInRoom)
		return
	}
	log.Info().Str("room", room.Name).Str("username", c.Username).Msg("user left room")

	h.sink.Deliver(events.Unsubscribe{Room: room.Name, Username: c.Username})
	if room.empty() {
		h.destroyRoom(room)
		h.broadcastDirectory()
		return
	}
	h.broadcastDirectory()
	h.toRoom(room, events.TypeUsersUpdated, c.Username)
	h.afterMembershipChange(room)
}

func (h *Hub) handleUpdateReadyStatus(c UpdateReadyStatus) {
	room := h.directory.FindByUser(c.Username)
	if room == nil {
		h.roomError(c.Username, ErrNotInRoom)
		return
	}
	room.user(c.Username).Ready = c.Ready

	h.toRoom(room, events.TypeReadyStatusUpdated, events.ReadyStatusPayload{
		Username: c.Username,
		Ready:    c.Ready,
	})
	if room.Phase == PhaseLobby {
		h.maybeStartCountdown(room)
	}
}

func (h *Hub) handleUpdateProgress(c UpdateProgress) {
	room := h.directory.FindByUser(c.Username)
	if room == nil || room.Phase != PhaseRacing {
		log.Debug().Str("username", c.Username).Int("progress", c.Progress).Msg("progress outside a race - ignoring")
		return
	}
	u := room.user(c.Username)
	u.Progress = c.Progress

	h.toRoom(room, events.TypeProgressUpdate, events.ProgressPayload{
		Username: c.Username,
		Progress: c.Progress,
	})
	h.toRoom(room, events.TypeUpdateUserOrder, room.rankedUsernames())

	if c.Progress == 100 {
		if u.FinishedAt == nil {
			now := h.clock.Now()
			u.FinishedAt = &now
			log.Info().Str("room", room.Name).Str("username", c.Username).Msg("user finished")
		}
		h.toRoom(room, events.TypeUserFinished, c.Username)
	}
	h.maybeFinish(room)
}

func (h *Hub) handleUnavailableRoom(c UnavailableRoom) {
	room, ok := h.directory.Get(strings.TrimSpace(c.RoomName))
	if !ok || room.Phase == PhaseLobby {
		return
	}
	h.broadcastDirectory()
}

func (h *Hub) handleResetUsers(c ResetUsers) {
	room, ok := h.directory.Get(strings.TrimSpace(c.RoomName))
	if !ok || room.user(c.Username) == nil {
		return
	}
	if room.Phase != PhaseLobby {
		log.Debug().Str("room", room.Name).Str("phase", string(room.Phase)).Msg("reset outside lobby - ignoring")
		return
	}
	room.resetUsers()
	h.toRoom(room, events.TypeRoomUsers, room.userViews())
}

func (h *Hub) handleTimerTick(c timerTick) {
	room, ok := h.directory.Get(c.Room)
	if !ok || room.timer == nil || room.timer.id != c.TimerID {
		return
	}
	t := room.timer
	t.remaining--
	h.toRoom(room, events.TypeTimerTick, events.TimerTickPayload{
		Room:      room.Name,
		Phase:     string(t.phase),
		Remaining: t.remaining,
	})
	if t.remaining > 0 {
		return
	}

	h.stopTimer(room)
	switch t.phase {
	case PhaseCountdown:
		h.beginRace(room)
	case PhaseRacing:
		h.finishRace(room, models.FinishReasonTimeout)
	}
}
