package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"drawspace/domain"
)

// --- NetworkSession ---

type MockNetworkSession struct {
	mock.Mock
}

func (m *MockNetworkSession) Close(reason string) {
	m.Called(reason)
}

func (m *MockNetworkSession) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockNetworkSession) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockNetworkSession) Ping() error {
	args := m.Called()
	return args.Error(0)
}

// --- RoomStore ---

type MockRoomStore struct {
	mock.Mock
}

func (m *MockRoomStore) FindRoom(ctx context.Context, id string) (domain.Room, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Room), args.Error(1)
}

func (m *MockRoomStore) DeleteRoom(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- ShapeHistory ---

type MockShapeHistory struct {
	mock.Mock
}

func (m *MockShapeHistory) UpsertShape(ctx context.Context, roomID string, s domain.Shape) error {
	args := m.Called(ctx, roomID, s)
	return args.Error(0)
}

func (m *MockShapeHistory) DeleteShape(ctx context.Context, roomID, shapeID string) error {
	args := m.Called(ctx, roomID, shapeID)
	return args.Error(0)
}

func (m *MockShapeHistory) ListShapes(ctx context.Context, roomID string) ([]domain.Shape, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).([]domain.Shape), args.Error(1)
}

func (m *MockShapeHistory) DeleteRoomShapes(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

// --- helpers ---

func newTestConn(id, userID, userName string) *Conn {
	return NewConn(id, userID, userName, &MockNetworkSession{})
}

// drain decodes everything currently queued on the connection's send buffer.
func drain(t *testing.T, c *Conn) []domain.WireMessage {
	t.Helper()
	out := []domain.WireMessage{}
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			var msg domain.WireMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("queued frame is not a WireMessage: %v", err)
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

// newTestRelay wires a relay whose persistence runs inline and whose clock is
// pinned, so assertions are deterministic.
func newTestRelay(rooms RoomStore, history ShapeHistory) (*Relay, *SessionRegistry) {
	registry := NewSessionRegistry()
	r := NewRelay(registry, rooms, history)
	r.runAsync = func(fn func()) { fn() }
	r.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return r, registry
}
