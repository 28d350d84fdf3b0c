package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mcdev12/typerace/go/internal/race/events"
	"github.com/mcdev12/typerace/go/internal/race/session"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownEvent   = errors.New("unknown event type")
	ErrMalformedEvent = errors.New("malformed event payload")
)

// decodeCommand maps a client frame to a hub command. The connection's
// username always wins over whatever the payload claims.
func decodeCommand(frame []byte, username string) (session.Command, error) {
	var msg events.ClientMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch msg.Type {
	case events.TypeGetRooms:
		return session.GetRooms{Username: username}, nil

	case events.TypeCreateRoom, events.TypeJoinRoom, events.TypeLeaveRoom:
		var req events.RoomRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		checkClaim(msg.Type, req.Username, username)
		switch msg.Type {
		case events.TypeCreateRoom:
			return session.CreateRoom{Username: username, RoomName: req.RoomName}, nil
		case events.TypeJoinRoom:
			return session.JoinRoom{Username: username, RoomName: req.RoomName}, nil
		default:
			return session.LeaveRoom{Username: username, RoomName: req.RoomName}, nil
		}

	case events.TypeUpdateReadyStatus:
		var req events.ReadyRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		checkClaim(msg.Type, req.Username, username)
		return session.UpdateReadyStatus{Username: username, Ready: req.Ready}, nil

	case events.TypeUpdateProgress:
		var req events.ProgressRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		checkClaim(msg.Type, req.Username, username)
		return session.UpdateProgress{Username: username, Progress: int(req.Progress)}, nil

	case events.TypeUnavailableRoom, events.TypeUnavailableRoomLegacy:
		name, err := decodeRoomName(msg)
		if err != nil {
			return nil, err
		}
		return session.UnavailableRoom{Username: username, RoomName: name}, nil

	case events.TypeResetUsers:
		var req events.ResetRequest
		if err := decode(msg, &req); err != nil {
			return nil, err
		}
		return session.ResetUsers{Username: username, RoomName: req.Name}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Type)
}

func decode(msg events.ClientMessage, v any) error {
	if len(msg.Data) == 0 {
		return fmt.Errorf("%w: %s has no data", ErrMalformedEvent, msg.Type)
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, msg.Type, err)
	}
	return nil
}

// decodeRoomName accepts either a bare room name or a {"roomName": ...} object.
func decodeRoomName(msg events.ClientMessage) (string, error) {
	var name string
	if err := json.Unmarshal(msg.Data, &name); err == nil {
		return strings.TrimSpace(name), nil
	}
	var req events.RoomRequest
	if err := decode(msg, &req); err != nil {
		return "", err
	}
	return req.RoomName, nil
}

func checkClaim(t events.EventType, claimed, username string) {
	if claimed != "" && claimed != username {
		log.Warn().
			Str("event_type", string(t)).
			Str("claimed", claimed).
			Str("username", username).
			Msg("payload username does not match connection")
	}
}
