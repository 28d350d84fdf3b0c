package session

import "slices"

// Directory maps room names to rooms and remembers creation order so listings
// are stable. Like Registry it belongs to the hub goroutine.
type Directory struct {
	rooms    map[string]*Room
	order    []string
	maxUsers int
}

// NewDirectory creates an empty directory whose rooms hold at most maxUsers.
func NewDirectory(maxUsers int) *Directory {
	return &Directory{
		rooms:    make(map[string]*Room),
		maxUsers: maxUsers,
	}
}

// Create adds an empty lobby room.
func (d *Directory) Create(name, createdBy string) (*Room, error) {
	if name == "" {
		return nil, ErrInvalidRoomName
	}
	if _, exists := d.rooms[name]; exists {
		return nil, ErrRoomExists
	}
	room := newRoom(name, createdBy)
	d.rooms[name] = room
	d.order = append(d.order, name)
	return room, nil
}

// Get looks a room up by name.
func (d *Directory) Get(name string) (*Room, bool) {
	room, ok := d.rooms[name]
	return room, ok
}

// Join appends username to the named room. A user may only be in one room,
// and only lobby rooms with a free seat accept joins.
func (d *Directory) Join(name, username string) (*Room, error) {
	room, ok := d.rooms[name]
	if !ok {
		return nil, ErrRoomMissing
	}
	if d.FindByUser(username) != nil {
		return nil, ErrAlreadyInRoom
	}
	if room.Phase != PhaseLobby {
		return nil, ErrRoomInProgress
	}
	if len(room.Users) >= d.maxUsers {
		return nil, ErrRoomFull
	}
	room.addUser(username)
	return room, nil
}

// Remove deletes a room. Unknown names are ignored.
func (d *Directory) Remove(name string) {
	if _, ok := d.rooms[name]; !ok {
		return
	}
	delete(d.rooms, name)
	d.order = slices.DeleteFunc(d.order, func(n string) bool { return n == name })
}

// FindByUser returns the room username is a member of, or nil.
func (d *Directory) FindByUser(username string) *Room {
	for _, name := range d.order {
		if d.rooms[name].user(username) != nil {
			return d.rooms[name]
		}
	}
	return nil
}

// Available reports whether a room is listed: lobby phase with a free seat.
func (d *Directory) Available(room *Room) bool {
	return room.Phase == PhaseLobby && len(room.Users) < d.maxUsers
}

// ListAvailable snapshots the joinable rooms in creation order.
func (d *Directory) ListAvailable() []*Room {
	var out []*Room
	for _, name := range d.order {
		if room := d.rooms[name]; d.Available(room) {
			out = append(out, room)
		}
	}
	return out
}

// All returns every room in creation order.
func (d *Directory) All() []*Room {
	out := make([]*Room, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.rooms[name])
	}
	return out
}

// Len returns the number of rooms.
func (d *Directory) Len() int {
	return len(d.rooms)
}

// MaxUsers is the per-room capacity.
func (d *Directory) MaxUsers() int {
	return d.maxUsers
}
