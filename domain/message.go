package domain

import "encoding/json"

// Message types carried in the WireMessage envelope. join, leave, draw,
// update, eraser and cursor-move originate on clients; user-joined, user-left
// and room-closed originate on the server. An inbound room-closed is the
// close-room request, the outbound one is its acknowledgement.
const (
	TypeJoin       = "join"
	TypeLeave      = "leave"
	TypeDraw       = "draw"
	TypeUpdate     = "update"
	TypeEraser     = "eraser"
	TypeCursorMove = "cursor-move"
	TypeUserJoined = "user-joined"
	TypeUserLeft   = "user-left"
	TypeRoomClosed = "room-closed"
)

// Participant is one entry of a room roster, deduplicated by UserID.
type Participant struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// WireMessage is the JSON protocol envelope. Message holds the type-specific
// payload (a shape for draw/update, a cursor position for cursor-move, the
// shape snapshot for the join acknowledgement) encoded exactly once.
type WireMessage struct {
	Type         string          `json:"type"`
	RoomID       string          `json:"roomId,omitempty"`
	UserID       string          `json:"userId,omitempty"`
	UserName     string          `json:"userName,omitempty"`
	ID           string          `json:"id,omitempty"`
	Message      json.RawMessage `json:"message,omitempty"`
	Participants []Participant   `json:"participants,omitempty"`
	Timestamp    string          `json:"timestamp,omitempty"`
}

// CursorPosition is the cursor-move payload, in world coordinates.
type CursorPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EncodeShape marshals a shape for the Message field.
func EncodeShape(s Shape) (json.RawMessage, error) {
	return json.Marshal(s)
}

// DecodeShape unmarshals a shape payload from the Message field.
func DecodeShape(raw json.RawMessage) (Shape, error) {
	var s Shape
	if err := json.Unmarshal(raw, &s); err != nil {
		return Shape{}, err
	}
	return s, nil
}

// EncodeShapes marshals a full shape snapshot (join acknowledgement payload).
func EncodeShapes(shapes []Shape) (json.RawMessage, error) {
	return json.Marshal(shapes)
}

// DecodeShapes unmarshals a full shape snapshot.
func DecodeShapes(raw json.RawMessage) ([]Shape, error) {
	var shapes []Shape
	if err := json.Unmarshal(raw, &shapes); err != nil {
		return nil, err
	}
	return shapes, nil
}
