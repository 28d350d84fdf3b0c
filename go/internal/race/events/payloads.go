package events

import (
	"github.com/mcdev12/typerace/go/internal/models"
)

// Inbound payloads. Username fields are informational; the gateway always
// acts as the username bound to the connection.

// RoomRequest is the payload of createRoom, joinRoom and leaveRoom.
type RoomRequest struct {
	RoomName string `json:"roomName"`
	Username string `json:"username,omitempty"`
}

// ReadyRequest is the payload of updateReadyStatus.
type ReadyRequest struct {
	Username string `json:"username,omitempty"`
	Ready    bool   `json:"ready"`
}

// ProgressRequest is the payload of updateProgress. Browsers report a float
// percentage; it is truncated to an int.
type ProgressRequest struct {
	Username string  `json:"username,omitempty"`
	Progress float64 `json:"progress"`
}

// ResetRequest is the payload of resetUsers; clients send the room object back.
type ResetRequest struct {
	Name string `json:"name"`
}

// Outbound payloads

// UserView is one member of a room as seen by clients.
type UserView struct {
	Username string `json:"username"`
	Ready    bool   `json:"ready"`
	Progress int    `json:"progress"`
}

// RoomView is a room as listed in the directory and carried by timer events.
type RoomView struct {
	Name     string     `json:"name"`
	Phase    string     `json:"phase"`
	MaxUsers int        `json:"maxUsers"`
	TextID   *int       `json:"textId,omitempty"`
	Users    []UserView `json:"users"`
}

// RoomCreatedPayload answers a successful createRoom.
type RoomCreatedPayload struct {
	RoomName string `json:"roomName"`
	Username string `json:"username"`
}

// ReadyStatusPayload is broadcast to a room after a readiness toggle.
type ReadyStatusPayload struct {
	Username string `json:"username"`
	Ready    bool   `json:"ready"`
}

// StartTimerPayload announces the pre-race countdown.
type StartTimerPayload struct {
	PreGameSeconds int      `json:"preGameSeconds"`
	RaceSeconds    int      `json:"raceSeconds"`
	TextID         int      `json:"textId"`
	Room           RoomView `json:"room"`
}

// TimerTickPayload carries the remaining seconds of the running countdown.
type TimerTickPayload struct {
	Room      string `json:"room"`
	Phase     string `json:"phase"`
	Remaining int    `json:"remaining"`
}

// RaceStartedPayload delivers the race text when the pre-race countdown ends.
type RaceStartedPayload struct {
	Room        string `json:"room"`
	TextID      int    `json:"textId"`
	Text        string `json:"text"`
	RaceSeconds int    `json:"raceSeconds"`
}

// CountdownCancelledPayload is sent when a countdown loses its quorum.
type CountdownCancelledPayload struct {
	Room string `json:"room"`
}

// ProgressPayload is broadcast for each accepted progress update.
type ProgressPayload struct {
	Username string `json:"username"`
	Progress int    `json:"progress"`
}

// GameFinishedPayload closes a race.
type GameFinishedPayload struct {
	Room      RoomView            `json:"room"`
	Reason    models.FinishReason `json:"reason"`
	Standings []models.Standing   `json:"standings"`
}
