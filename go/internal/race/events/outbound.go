package events

// Outbound is the closed set of instructions the session hub hands to the
// transport. Deliveries and group membership changes share one ordered stream
// so a connection never sees a room event out of order with its subscription.
type Outbound interface{ isOutbound() }

// ToAll delivers to every connected user.
type ToAll struct{ Event Event }

// ToRoom delivers to every connection subscribed to Room.
type ToRoom struct {
	Room  string
	Event Event
}

// ToUser delivers to a single user's connection.
type ToUser struct {
	Username string
	Event    Event
}

// Subscribe adds a user's connection to a room group.
type Subscribe struct{ Room, Username string }

// Unsubscribe removes a user's connection from a room group.
type Unsubscribe struct{ Room, Username string }

func (ToAll) isOutbound()       {}
func (ToRoom) isOutbound()      {}
func (ToUser) isOutbound()      {}
func (Subscribe) isOutbound()   {}
func (Unsubscribe) isOutbound() {}

// Sink receives outbound instructions. Deliver must not block.
type Sink interface {
	Deliver(out Outbound)
}
