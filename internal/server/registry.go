// Package server implements the connection registry that maps transport
// connection ids to joined users and enforces per-room username uniqueness.
package server

import (
	"strings"
	"sync"

	"github.com/samber/lo"
)

// User is one joined participant. It is created by a successful join,
// never mutated afterwards, and destroyed on disconnect.
type User struct {
	ConnectionID string
	Username     string
	Room         string
}

// ValidationError reports a rejected join request. It is surfaced to the
// originating connection only and is never fatal.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Registry is the authoritative in-memory mapping of connection id to
// joined-user state. All mutation goes through AddUser/RemoveUser, which
// serialize against each other and against the uniqueness check; reads
// take the read lock and observe a consistent snapshot.
type Registry struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]User)}
}

// AddUser validates and inserts a user keyed by connection id. Username and
// room are trimmed and required; usernames are unique per room, compared
// case-insensitively. The uniqueness check and the insert happen under a
// single lock acquisition so concurrent joins cannot both succeed.
func (r *Registry) AddUser(connectionID, username, room string) (User, error) {
	username = strings.TrimSpace(username)
	room = strings.TrimSpace(room)

	if username == "" || room == "" {
		return User{}, &ValidationError{Reason: "username and room are required"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lowered := strings.ToLower(username)
	for _, existing := range r.users {
		if existing.Room == room && strings.ToLower(existing.Username) == lowered {
			return User{}, &ValidationError{Reason: "username is in use"}
		}
	}

	user := User{ConnectionID: connectionID, Username: username, Room: room}
	r.users[connectionID] = user
	return user, nil
}

// RemoveUser removes and returns the user for the connection id. A missing
// entry is the normal disconnect-before-join path, not an error.
func (r *Registry) RemoveUser(connectionID string) (User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[connectionID]
	if !ok {
		return User{}, false
	}
	delete(r.users, connectionID)
	return user, true
}

// GetUser looks up the user for a connection id without mutating anything.
func (r *Registry) GetUser(connectionID string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[connectionID]
	return user, ok
}

// GetUsersInRoom returns the usernames currently joined to the room. The
// view is recomputed from the registry on every call, so it cannot go
// stale. An unknown or empty room yields an empty slice.
func (r *Registry) GetUsersInRoom(room string) []string {
	return lo.Map(r.membersOf(room), func(u User, _ int) string {
		return u.Username
	})
}

// ConnectionsInRoom returns the connection ids of the room's current
// members. The hub uses it to resolve broadcast targets.
func (r *Registry) ConnectionsInRoom(room string) []string {
	return lo.Map(r.membersOf(room), func(u User, _ int) string {
		return u.ConnectionID
	})
}

func (r *Registry) membersOf(room string) []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var members []User
	for _, user := range r.users {
		if user.Room == room {
			members = append(members, user)
		}
	}
	return members
}

// Size reports the number of joined users across all rooms.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
