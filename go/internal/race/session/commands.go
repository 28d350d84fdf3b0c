package session

// Command is the closed set of inputs the hub processes, one at a time.
type Command interface{ isCommand() }

// Connect registers a username for a new connection. The hub answers on Reply.
type Connect struct {
	Username string
	Reply    chan error
}

// Disconnect is the only cancellation signal: the connection is gone.
type Disconnect struct{ Username string }

// GetRooms asks for the current directory listing.
type GetRooms struct{ Username string }

// CreateRoom creates an empty lobby room.
type CreateRoom struct{ Username, RoomName string }

// JoinRoom adds the user to a room.
type JoinRoom struct{ Username, RoomName string }

// LeaveRoom removes the user from a room.
type LeaveRoom struct{ Username, RoomName string }

// UpdateReadyStatus toggles the user's readiness.
type UpdateReadyStatus struct {
	Username string
	Ready    bool
}

// UpdateProgress reports the user's typed percentage. Values are trusted
// as reported; only exactly 100 counts as finished.
type UpdateProgress struct {
	Username string
	Progress int
}

// UnavailableRoom is sent by clients when their countdown starts.
type UnavailableRoom struct{ Username, RoomName string }

// ResetUsers asks for a lobby room's roster to be reset.
type ResetUsers struct{ Username, RoomName string }

// GetStats reads a snapshot of hub state without racing the loop.
type GetStats struct{ Reply chan Stats }

// timerTick is produced by a room timer goroutine once per second.
type timerTick struct {
	Room    string
	TimerID uint64
}

func (Connect) isCommand()           {}
func (Disconnect) isCommand()        {}
func (GetRooms) isCommand()          {}
func (CreateRoom) isCommand()        {}
func (JoinRoom) isCommand()          {}
func (LeaveRoom) isCommand()         {}
func (UpdateReadyStatus) isCommand() {}
func (UpdateProgress) isCommand()    {}
func (UnavailableRoom) isCommand()   {}
func (ResetUsers) isCommand()        {}
func (GetStats) isCommand()          {}
func (timerTick) isCommand()         {}
