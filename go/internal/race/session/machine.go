package session

import (
	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/mcdev12/typerace/go/internal/race/events"
	"github.com/rs/zerolog/log"
)

// maybeStartCountdown moves a lobby room into countdown once it has more
// than one user and everyone is ready.
func (h *Hub) maybeStartCountdown(room *Room) {
	if !room.readyToStart() {
		return
	}
	n := h.corpus.Count()
	if n <= 0 {
		log.Error().Str("room", room.Name).Msg("text corpus is empty - cannot start race")
		return
	}

	textID := h.pickText(n)
	room.TextID = &textID
	room.Phase = PhaseCountdown
	room.finished = false
	for _, u := range room.Users {
		u.Progress = 0
		u.FinishedAt = nil
	}
	log.Info().Str("room", room.Name).Int("text_id", textID).Int("users", len(room.Users)).Msg("countdown started")

	h.toRoom(room, events.TypeStartTimer, events.StartTimerPayload{
		PreGameSeconds: h.cfg.PreRaceSeconds,
		RaceSeconds:    h.cfg.RaceSeconds,
		TextID:         textID,
		Room:           room.view(h.cfg.MaxUsersPerRoom),
	})
	h.broadcastDirectory()

	if h.cfg.PreRaceSeconds <= 0 {
		h.beginRace(room)
		return
	}
	h.startTimer(room, PhaseCountdown, h.cfg.PreRaceSeconds)
}

func (h *Hub) beginRace(room *Room) {
	room.Phase = PhaseRacing
	room.raceStartedAt = h.clock.Now()

	payload := events.RaceStartedPayload{
		Room:        room.Name,
		TextID:      *room.TextID,
		RaceSeconds: h.cfg.RaceSeconds,
	}
	text, err := h.corpus.Text(*room.TextID)
	if err != nil {
		log.Error().Err(err).Str("room", room.Name).Int("text_id", *room.TextID).Msg("failed to load race text")
	} else {
		payload.Text = text.Body
	}
	log.Info().Str("room", room.Name).Int("text_id", *room.TextID).Msg("race started")

	h.toRoom(room, events.TypeRaceStarted, payload)
	if h.cfg.RaceSeconds <= 0 {
		h.finishRace(room, models.FinishReasonTimeout)
		return
	}
	h.startTimer(room, PhaseRacing, h.cfg.RaceSeconds)
}

// abortCountdown returns a room that lost its quorum to the lobby. Readiness
// is kept.
func (h *Hub) abortCountdown(room *Room) {
	h.stopTimer(room)
	room.Phase = PhaseLobby
	room.TextID = nil
	log.Info().Str("room", room.Name).Int("users", len(room.Users)).Msg("countdown cancelled")

	h.toRoom(room, events.TypeCountdownCancelled, events.CountdownCancelledPayload{Room: room.Name})
	h.broadcastDirectory()
}

func (h *Hub) maybeFinish(room *Room) {
	if room.Phase == PhaseRacing && room.allFinished() {
		h.finishRace(room, models.FinishReasonAllFinished)
	}
}

// finishRace runs at most once per race, whichever of the race timer or the
// last finisher gets here first.
func (h *Hub) finishRace(room *Room, reason models.FinishReason) {
	if room.Phase != PhaseRacing || room.finished {
		return
	}
	room.finished = true
	h.stopTimer(room)

	standings := room.standings()
	log.Info().
		Str("room", room.Name).
		Str("reason", string(reason)).
		Int("users", len(room.Users)).
		Msg("race finished")

	h.toRoom(room, events.TypeGameFinished, events.GameFinishedPayload{
		Room:      room.view(h.cfg.MaxUsersPerRoom),
		Reason:    reason,
		Standings: standings,
	})
	h.record(room, reason, standings)

	room.resetUsers()
	room.Phase = PhaseLobby
	room.TextID = nil
	h.toRoom(room, events.TypeRoomUsers, room.userViews())
	h.broadcastDirectory()
}

func (h *Hub) record(room *Room, reason models.FinishReason, standings []models.Standing) {
	if h.recorder == nil {
		return
	}
	h.recorder.Record(models.RaceResult{
		ID:         uuid.New(),
		Room:       room.Name,
		TextID:     *room.TextID,
		Reason:     reason,
		StartedAt:  room.raceStartedAt,
		FinishedAt: h.clock.Now(),
		Standings:  standings,
	})
}

// afterMembershipChange re-evaluates a surviving room once someone left it.
func (h *Hub) afterMembershipChange(room *Room) {
	switch room.Phase {
	case PhaseLobby:
		h.maybeStartCountdown(room)
	case PhaseCountdown:
		if len(room.Users) < 2 {
			h.abortCountdown(room)
		}
	case PhaseRacing:
		h.maybeFinish(room)
	}
}

// destroyRoom removes a room and tells everyone. A creator still watching
// from outside loses the group subscription here, so a later room with the
// same name starts with a clean group. The caller rebroadcasts the directory.
func (h *Hub) destroyRoom(room *Room) {
	h.stopTimer(room)
	if room.creatorWatching {
		room.creatorWatching = false
		h.sink.Deliver(events.Unsubscribe{Room: room.Name, Username: room.CreatedBy})
	}
	h.directory.Remove(room.Name)
	log.Info().Str("room", room.Name).Msg("room removed")
	h.toAll(events.TypeRoomRemoved, room.Name)
}
