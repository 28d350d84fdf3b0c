package session

// Registry is the set of currently connected usernames. It is owned by the
// hub goroutine and is not safe for concurrent use.
type Registry struct {
	users map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]struct{})}
}

// Register adds username, failing if it is empty or already connected.
func (r *Registry) Register(username string) error {
	if username == "" {
		return ErrInvalidUsername
	}
	if _, exists := r.users[username]; exists {
		return ErrDuplicateUsername
	}
	r.users[username] = struct{}{}
	return nil
}

// Unregister removes username. It reports whether the name was present, so a
// second call for the same connection is a no-op.
func (r *Registry) Unregister(username string) bool {
	if _, exists := r.users[username]; !exists {
		return false
	}
	delete(r.users, username)
	return true
}

// Has reports whether username is connected.
func (r *Registry) Has(username string) bool {
	_, exists := r.users[username]
	return exists
}

// Len returns the number of connected users.
func (r *Registry) Len() int {
	return len(r.users)
}
