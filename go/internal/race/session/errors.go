package session

import "errors"

// Connection-level errors. ErrDuplicateUsername is fatal for the connection
// that caused it.
var (
	ErrDuplicateUsername = errors.New("user already exists")
	ErrInvalidUsername   = errors.New("username is required")
	ErrHubStopped        = errors.New("session hub stopped")
)

// Room-level errors. They are reported to the originating user as roomError
// and never broadcast.
var (
	ErrInvalidRoomName = errors.New("room name is required")
	ErrRoomExists      = errors.New("room already exists")
	ErrRoomMissing     = errors.New("room does not exist")
	ErrRoomFull        = errors.New("room is full")
	ErrRoomInProgress  = errors.New("race already in progress")
	ErrAlreadyInRoom   = errors.New("user is already in a room")
	ErrNotInRoom       = errors.New("user is not in a room")
)
