package client

import (
	"fmt"

	"drawspace/canvas"
	"drawspace/domain"
)

// Sender is what the broadcast sink needs from the transport.
type Sender interface {
	Send(msg domain.WireMessage) error
}

// BroadcastSink is the collaborative-mode persistence sink: every local store
// mutation becomes a draw/update/eraser message for the room. Remote
// mutations are applied through ShapeStore.ApplyRemote and never pass
// through here, so nothing echoes.
type BroadcastSink struct {
	sender Sender
	roomID string
}

func NewBroadcastSink(sender Sender, roomID string) *BroadcastSink {
	return &BroadcastSink{sender: sender, roomID: roomID}
}

func (b *BroadcastSink) Apply(m canvas.Mutation, _ []domain.Shape) error {
	switch m.Kind {
	case canvas.MutationAdd, canvas.MutationUpdate:
		payload, err := domain.EncodeShape(m.Shape)
		if err != nil {
			return fmt.Errorf("encode shape: %w", err)
		}
		msgType := domain.TypeDraw
		if m.Kind == canvas.MutationUpdate {
			msgType = domain.TypeUpdate
		}
		return b.sender.Send(domain.WireMessage{
			Type:    msgType,
			RoomID:  b.roomID,
			ID:      m.Shape.ID,
			Message: payload,
		})

	case canvas.MutationRemove:
		return b.sender.Send(domain.WireMessage{
			Type:   domain.TypeEraser,
			RoomID: b.roomID,
			ID:     m.ID,
		})
	}

	// Full replacements come from resync, not local edits; nothing to send.
	return nil
}

// ApplyRemote reconciles one relay message into the local store. Unknown or
// irrelevant types are ignored.
func ApplyRemote(store *canvas.ShapeStore, msg domain.WireMessage) error {
	switch msg.Type {
	case domain.TypeDraw, domain.TypeUpdate:
		shape, err := domain.DecodeShape(msg.Message)
		if err != nil {
			return fmt.Errorf("decode shape: %w", err)
		}
		if shape.ID == "" {
			shape.ID = msg.ID
		}
		store.ApplyRemote(canvas.Mutation{Kind: canvas.MutationUpdate, Shape: shape, ID: shape.ID})

	case domain.TypeEraser:
		store.ApplyRemote(canvas.Mutation{Kind: canvas.MutationRemove, ID: msg.ID})

	case domain.TypeUserJoined:
		// Own join acknowledgement: the payload is the room's shape snapshot.
		if len(msg.Message) == 0 {
			return nil
		}
		shapes, err := domain.DecodeShapes(msg.Message)
		if err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		store.ReplaceAll(shapes)
	}
	return nil
}
