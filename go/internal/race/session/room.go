package session

import (
	"time"

	"github.com/mcdev12/typerace/go/internal/race/events"
)

// Phase is the state of a room's race cycle.
//
//	lobby -> countdown -> racing -> (finish) -> lobby
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseCountdown Phase = "countdown"
	PhaseRacing    Phase = "racing"
)

// User is a member of a room.
type User struct {
	Username   string
	Ready      bool
	Progress   int
	FinishedAt *time.Time
}

// Room is one race session. Users keep join order.
type Room struct {
	Name      string
	Users     []*User
	Phase     Phase
	TextID    *int
	CreatedBy string

	// joined flips once the first user joins; a room that was never joined
	// belongs to its creator until then.
	joined bool

	// creatorWatching is set while the creator holds the room's group
	// subscription without being a member.
	creatorWatching bool

	// finished guards the finish transition so it runs once per race.
	finished      bool
	raceStartedAt time.Time
	timer         *roomTimer
}

func newRoom(name, createdBy string) *Room {
	return &Room{
		Name:      name,
		Phase:     PhaseLobby,
		CreatedBy: createdBy,
	}
}

func (r *Room) user(username string) *User {
	for _, u := range r.Users {
		if u.Username == username {
			return u
		}
	}
	return nil
}

func (r *Room) addUser(username string) *User {
	u := &User{Username: username}
	r.Users = append(r.Users, u)
	r.joined = true
	if username == r.CreatedBy {
		r.creatorWatching = false
	}
	return u
}

// removeUser drops username, reporting whether it was a member.
func (r *Room) removeUser(username string) bool {
	for i, u := range r.Users {
		if u.Username == username {
			r.Users = append(r.Users[:i], r.Users[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) empty() bool {
	return len(r.Users) == 0
}

// readyToStart is the Lobby -> Countdown trigger: more than one user and all
// of them ready.
func (r *Room) readyToStart() bool {
	if r.Phase != PhaseLobby || len(r.Users) < 2 {
		return false
	}
	for _, u := range r.Users {
		if !u.Ready {
			return false
		}
	}
	return true
}

func (r *Room) allFinished() bool {
	if len(r.Users) == 0 {
		return false
	}
	for _, u := range r.Users {
		if u.Progress != 100 {
			return false
		}
	}
	return true
}

func (r *Room) resetUsers() {
	for _, u := range r.Users {
		u.Ready = false
		u.Progress = 0
		u.FinishedAt = nil
	}
}

func (r *Room) userViews() []events.UserView {
	views := make([]events.UserView, 0, len(r.Users))
	for _, u := range r.Users {
		views = append(views, events.UserView{
			Username: u.Username,
			Ready:    u.Ready,
			Progress: u.Progress,
		})
	}
	return views
}

func (r *Room) view(maxUsers int) events.RoomView {
	v := events.RoomView{
		Name:     r.Name,
		Phase:    string(r.Phase),
		MaxUsers: maxUsers,
		Users:    r.userViews(),
	}
	if r.TextID != nil {
		id := *r.TextID
		v.TextID = &id
	}
	return v
}
