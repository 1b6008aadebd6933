package relay

import (
	"sync"

	"drawspace/domain"
)

// SessionRegistry tracks live connections and which rooms each one is in.
// One instance per server process; it is the source of truth for fan-out.
// Writers (join/leave/broadcast) vastly outnumber readers at this scale, so a
// single coarse lock guards everything.
type SessionRegistry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{conns: make(map[string]*Conn)}
}

func (r *SessionRegistry) AddConnection(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID] = c
}

// RemoveConnection drops the connection and returns the rooms it was in, so
// the caller can announce the departures.
func (r *SessionRegistry) RemoveConnection(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[id]
	if !ok {
		return nil
	}
	delete(r.conns, id)

	rooms := make([]string, 0, len(c.rooms))
	for roomID := range c.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

func (r *SessionRegistry) Get(id string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

func (r *SessionRegistry) JoinRoom(connID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return false
	}
	c.rooms[roomID] = struct{}{}
	return true
}

// InRoom reports whether the connection is currently joined to the room.
func (r *SessionRegistry) InRoom(connID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	if !ok {
		return false
	}
	_, in := c.rooms[roomID]
	return in
}

func (r *SessionRegistry) LeaveRoom(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[connID]; ok {
		delete(c.rooms, roomID)
	}
}

// ConnectionsInRoom returns every live connection currently in the room.
func (r *SessionRegistry) ConnectionsInRoom(roomID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Conn, 0)
	for _, c := range r.conns {
		if _, in := c.rooms[roomID]; in {
			out = append(out, c)
		}
	}
	return out
}

// CurrentParticipants returns the room roster deduplicated by user id, since
// one user may hold several connections.
func (r *SessionRegistry) CurrentParticipants(roomID string) []domain.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]domain.Participant, 0)
	for _, c := range r.conns {
		if _, in := c.rooms[roomID]; !in {
			continue
		}
		if _, dup := seen[c.UserID]; dup {
			continue
		}
		seen[c.UserID] = struct{}{}
		out = append(out, domain.Participant{UserID: c.UserID, UserName: c.UserName})
	}
	return out
}

// UserStillInRoom reports whether any connection for userID other than
// excludeConnID remains in the room. "User left" is only announced once this
// is false.
func (r *SessionRegistry) UserStillInRoom(userID, roomID, excludeConnID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.conns {
		if c.ID == excludeConnID || c.UserID != userID {
			continue
		}
		if _, in := c.rooms[roomID]; in {
			return true
		}
	}
	return false
}
