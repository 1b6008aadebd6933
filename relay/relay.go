package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"drawspace/canvas"
	"drawspace/domain"
)

// RoomStore is the external room metadata store. The relay verifies rooms
// exist and deletes them on close; it does not own their schema.
type RoomStore interface {
	FindRoom(ctx context.Context, id string) (domain.Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// ShapeHistory is the durable shape set per room, replayed to late joiners.
// Its failures are tolerated: a lost write never blocks the live broadcast.
type ShapeHistory interface {
	UpsertShape(ctx context.Context, roomID string, s domain.Shape) error
	DeleteShape(ctx context.Context, roomID, shapeID string) error
	ListShapes(ctx context.Context, roomID string) ([]domain.Shape, error)
	DeleteRoomShapes(ctx context.Context, roomID string) error
}

const persistTimeout = 5 * time.Second

// Relay routes one connection's events to the other connections in the same
// room and maintains the per-room shape cache. Explicitly constructed and
// injected, one per server; never a hidden global.
type Relay struct {
	registry *SessionRegistry
	rooms    RoomStore
	history  ShapeHistory

	mu     sync.Mutex
	caches map[string]*canvas.ShapeStore

	now      func() time.Time
	runAsync func(fn func())
}

func NewRelay(registry *SessionRegistry, rooms RoomStore, history ShapeHistory) *Relay {
	return &Relay{
		registry: registry,
		rooms:    rooms,
		history:  history,
		caches:   make(map[string]*canvas.ShapeStore),
		now:      time.Now,
		runAsync: func(fn func()) { go fn() },
	}
}

// ReadPump consumes the connection's inbound messages until the socket drops,
// then tears the connection down. Malformed or over-budget messages are
// dropped without affecting the connection.
func (r *Relay) ReadPump(c *Conn) {
	defer r.Disconnect(c)

	for {
		data, err := c.socket.Read()
		if err != nil {
			return
		}
		if !c.limiter.Allow() {
			slog.Debug("relay: rate limit exceeded, dropping message", "conn", c.ID, "user", c.UserID)
			continue
		}

		var msg domain.WireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("relay: malformed message dropped", "conn", c.ID, "error", err)
			continue
		}
		r.Dispatch(c, msg)
	}
}

// Dispatch routes one inbound message. It never panics outward; a bad message
// is logged and dropped so one connection can't take down the relay.
func (r *Relay) Dispatch(c *Conn, msg domain.WireMessage) {
	if msg.RoomID == "" {
		slog.Warn("relay: message without roomId dropped", "conn", c.ID, "type", msg.Type)
		return
	}

	// Everything except the join handshake requires membership; a stray or
	// hostile message must not touch a room the sender never entered.
	if msg.Type != domain.TypeJoin && !r.registry.InRoom(c.ID, msg.RoomID) {
		slog.Warn("relay: message from outside the room dropped", "conn", c.ID, "room", msg.RoomID, "type", msg.Type)
		return
	}

	switch msg.Type {
	case domain.TypeJoin:
		r.handleJoin(c, msg.RoomID)
	case domain.TypeLeave:
		r.handleLeave(c, msg.RoomID)
	case domain.TypeDraw, domain.TypeUpdate:
		r.handleShape(c, msg)
	case domain.TypeEraser:
		r.handleErase(c, msg)
	case domain.TypeCursorMove:
		r.handleCursor(c, msg)
	case domain.TypeRoomClosed:
		r.handleCloseRoom(c, msg.RoomID)
	default:
		slog.Warn("relay: unknown message type dropped", "conn", c.ID, "type", msg.Type)
	}
}

func (r *Relay) handleJoin(c *Conn, roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if _, err := r.rooms.FindRoom(ctx, roomID); err != nil {
		slog.Warn("relay: join for unknown room dropped", "conn", c.ID, "room", roomID, "error", err)
		return
	}

	// Join the registry before reading the snapshot: a draw that fans out in
	// between then reaches the joiner directly, and one that lands in the
	// cache first is part of the snapshot. Neither ordering loses it.
	r.registry.JoinRoom(c.ID, roomID)
	snapshot := r.roomSnapshot(ctx, roomID)
	participants := r.registry.CurrentParticipants(roomID)

	// Explicit "you joined, here is the roster" to the joiner, carrying the
	// current shape set so a late joiner needs no history replay.
	shapes, err := domain.EncodeShapes(snapshot)
	if err != nil {
		shapes = nil
	}
	r.sendTo(c, domain.WireMessage{
		Type:         domain.TypeUserJoined,
		RoomID:       roomID,
		UserID:       c.UserID,
		UserName:     c.UserName,
		Message:      shapes,
		Participants: participants,
	})

	r.Broadcast(roomID, domain.WireMessage{
		Type:     domain.TypeUserJoined,
		RoomID:   roomID,
		UserID:   c.UserID,
		UserName: c.UserName,
	}, exclude(c.ID), true)
}

func (r *Relay) handleLeave(c *Conn, roomID string) {
	r.registry.LeaveRoom(c.ID, roomID)
	if r.registry.UserStillInRoom(c.UserID, roomID, c.ID) {
		// Another tab of the same user is still here; nothing to announce.
		return
	}
	r.Broadcast(roomID, domain.WireMessage{
		Type:     domain.TypeUserLeft,
		RoomID:   roomID,
		UserID:   c.UserID,
		UserName: c.UserName,
	}, exclude(c.ID), false)
}

func (r *Relay) handleShape(c *Conn, msg domain.WireMessage) {
	if msg.ID == "" || len(msg.Message) == 0 {
		slog.Warn("relay: shape message missing id or payload", "conn", c.ID, "type", msg.Type)
		return
	}
	shape, err := domain.DecodeShape(msg.Message)
	if err != nil {
		slog.Warn("relay: undecodable shape payload dropped", "conn", c.ID, "error", err)
		return
	}
	if shape.ID == "" {
		shape.ID = msg.ID
	}
	if shape.ID != msg.ID {
		slog.Warn("relay: shape id mismatch dropped", "conn", c.ID, "envelope", msg.ID, "payload", shape.ID)
		return
	}
	if err := shape.Validate(); err != nil {
		slog.Warn("relay: invalid shape dropped", "conn", c.ID, "shape", shape.ID)
		return
	}

	r.cacheUpsert(msg.RoomID, shape)

	// Durability must not head-of-line-block the live fan-out.
	roomID := msg.RoomID
	r.runAsync(func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := r.history.UpsertShape(ctx, roomID, shape); err != nil {
			slog.Error("relay: shape history write failed", "room", roomID, "shape", shape.ID, "error", err)
		}
	})

	out := msg
	out.UserID = c.UserID
	out.UserName = c.UserName
	r.Broadcast(msg.RoomID, out, exclude(c.ID), false)
}

func (r *Relay) handleErase(c *Conn, msg domain.WireMessage) {
	if msg.ID == "" {
		slog.Warn("relay: eraser message missing shape id", "conn", c.ID)
		return
	}

	if !r.cacheRemove(msg.RoomID, msg.ID) {
		slog.Warn("relay: eraser for unknown shape dropped", "conn", c.ID, "room", msg.RoomID, "shape", msg.ID)
		return
	}

	roomID, shapeID := msg.RoomID, msg.ID
	r.runAsync(func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := r.history.DeleteShape(ctx, roomID, shapeID); err != nil {
			slog.Error("relay: shape history delete failed", "room", roomID, "shape", shapeID, "error", err)
		}
	})

	out := domain.WireMessage{
		Type:     domain.TypeEraser,
		RoomID:   roomID,
		UserID:   c.UserID,
		UserName: c.UserName,
		ID:       shapeID,
	}
	r.Broadcast(roomID, out, exclude(c.ID), false)
}

func (r *Relay) handleCursor(c *Conn, msg domain.WireMessage) {
	out := msg
	out.UserID = c.UserID
	out.UserName = c.UserName
	r.Broadcast(msg.RoomID, out, exclude(c.ID), false)
}

// handleCloseRoom tears the room down, but only when exactly one connection
// remains in it and that connection is the requester's. One user with two
// tabs open does not pass the guard.
func (r *Relay) handleCloseRoom(c *Conn, roomID string) {
	conns := r.registry.ConnectionsInRoom(roomID)
	if len(conns) != 1 || conns[0].ID != c.ID {
		slog.Info("relay: close-room rejected", "conn", c.ID, "room", roomID, "occupants", len(conns))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := r.history.DeleteRoomShapes(ctx, roomID); err != nil {
		slog.Error("relay: failed to delete room shape history", "room", roomID, "error", err)
	}
	if err := r.rooms.DeleteRoom(ctx, roomID); err != nil {
		slog.Error("relay: failed to delete room record", "room", roomID, "error", err)
	}

	r.mu.Lock()
	delete(r.caches, roomID)
	r.mu.Unlock()

	r.registry.LeaveRoom(c.ID, roomID)
	r.sendTo(c, domain.WireMessage{
		Type:   domain.TypeRoomClosed,
		RoomID: roomID,
		UserID: c.UserID,
	})
	c.shutdown()
}

// Disconnect treats the connection as having left every room it was in, then
// forgets it. "User left" goes out only where no other tab of the user stays.
func (r *Relay) Disconnect(c *Conn) {
	rooms := r.registry.RemoveConnection(c.ID)
	for _, roomID := range rooms {
		if r.registry.UserStillInRoom(c.UserID, roomID, c.ID) {
			continue
		}
		r.Broadcast(roomID, domain.WireMessage{
			Type:     domain.TypeUserLeft,
			RoomID:   roomID,
			UserID:   c.UserID,
			UserName: c.UserName,
		}, exclude(c.ID), false)
	}
	c.shutdown()
}

// Broadcast fans the message out to every connection in the room except the
// excluded ones. A connection that can't take the message is skipped; it
// never aborts delivery to the rest. attachParticipants (always on for
// user-joined) refreshes the roster before sending.
func (r *Relay) Broadcast(roomID string, msg domain.WireMessage, excludeIDs map[string]struct{}, attachParticipants bool) {
	if attachParticipants || msg.Type == domain.TypeUserJoined {
		msg.Participants = r.registry.CurrentParticipants(roomID)
	}
	msg.Timestamp = r.now().UTC().Format(time.RFC3339)

	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("relay: failed to marshal broadcast", "room", roomID, "type", msg.Type, "error", err)
		return
	}

	for _, peer := range r.registry.ConnectionsInRoom(roomID) {
		if _, skip := excludeIDs[peer.ID]; skip {
			continue
		}
		if !peer.trySend(data) {
			slog.Debug("relay: peer not draining, message skipped", "conn", peer.ID, "room", roomID)
		}
	}
}

// RoomShapes returns the room's current shape set.
func (r *Relay) RoomShapes(roomID string) []domain.Shape {
	r.mu.Lock()
	defer r.mu.Unlock()
	cache, ok := r.caches[roomID]
	if !ok {
		return nil
	}
	return cache.List()
}

func (r *Relay) sendTo(c *Conn, msg domain.WireMessage) {
	msg.Timestamp = r.now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("relay: failed to marshal message", "type", msg.Type, "error", err)
		return
	}
	if !c.trySend(data) {
		slog.Debug("relay: connection not draining, message skipped", "conn", c.ID)
	}
}

// roomSnapshot returns the cache contents, loading them from history on the
// room's first join since startup. A history read failure degrades to an
// empty canvas rather than refusing the join.
func (r *Relay) roomSnapshot(ctx context.Context, roomID string) []domain.Shape {
	r.mu.Lock()
	defer r.mu.Unlock()

	cache, ok := r.caches[roomID]
	if !ok {
		cache = canvas.NewShapeStore(nil)
		shapes, err := r.history.ListShapes(ctx, roomID)
		if err != nil {
			slog.Error("relay: shape history load failed", "room", roomID, "error", err)
		} else {
			cache.ReplaceAll(shapes)
		}
		r.caches[roomID] = cache
	}
	return cache.List()
}

func (r *Relay) cacheUpsert(roomID string, s domain.Shape) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cache, ok := r.caches[roomID]
	if !ok {
		cache = canvas.NewShapeStore(nil)
		r.caches[roomID] = cache
	}
	cache.Update(s.ID, s)
}

func (r *Relay) cacheRemove(roomID, shapeID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cache, ok := r.caches[roomID]
	if !ok {
		return false
	}
	if _, found := cache.Get(shapeID); !found {
		return false
	}
	cache.Remove(shapeID)
	return true
}

func exclude(ids ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
