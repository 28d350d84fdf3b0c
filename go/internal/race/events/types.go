package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names a message on the wire, in either direction.
type EventType string

// Inbound (client -> server)
const (
	TypeGetRooms          EventType = "getRooms"
	TypeCreateRoom        EventType = "createRoom"
	TypeJoinRoom          EventType = "joinRoom"
	TypeLeaveRoom         EventType = "leaveRoom"
	TypeUpdateReadyStatus EventType = "updateReadyStatus"
	TypeUpdateProgress    EventType = "updateProgress"
	TypeUnavailableRoom   EventType = "unavailableRoom"
	TypeResetUsers        EventType = "resetUsers"

	// Older clients misspell unavailableRoom.
	TypeUnavailableRoomLegacy EventType = "unavaibleRoom"
)

// Outbound (server -> client)
const (
	TypeUsernameError      EventType = "usernameError"
	TypeUpdateRooms        EventType = "updateRooms"
	TypeRoomCreated        EventType = "roomCreated"
	TypeRoomJoined         EventType = "roomJoined"
	TypeRoomUsers          EventType = "roomUsers"
	TypeRoomError          EventType = "roomError"
	TypeReadyStatusUpdated EventType = "readyStatusUpdated"
	TypeStartTimer         EventType = "startTimer"
	TypeTimerTick          EventType = "timerTick"
	TypeRaceStarted        EventType = "raceStarted"
	TypeCountdownCancelled EventType = "countdownCancelled"
	TypeProgressUpdate     EventType = "progressUpdate"
	TypeUpdateUserOrder    EventType = "updateUserOrder"
	TypeUserFinished       EventType = "userFinished"
	TypeGameFinished       EventType = "gameFinished"
	TypeUsersUpdated       EventType = "usersUpdated"
	TypeRoomRemoved        EventType = "roomRemoved"
)

// ClientMessage is the inbound frame. Data is decoded per Type by the gateway.
type ClientMessage struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is the outbound frame written to every client.
type ServerMessage struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Event is a typed outbound message before it is framed for the wire.
type Event struct {
	Type EventType
	Data any
}

// NewEvent builds an Event.
func NewEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data}
}

// Frame stamps the event with an ID and time and marshals it.
func (e Event) Frame(now time.Time) ([]byte, error) {
	return json.Marshal(ServerMessage{
		ID:        uuid.New().String(),
		Type:      e.Type,
		Timestamp: now.UTC(),
		Data:      e.Data,
	})
}
