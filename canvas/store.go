package canvas

import (
	"log/slog"

	"drawspace/domain"
)

type MutationKind int

const (
	MutationAdd MutationKind = iota
	MutationUpdate
	MutationRemove
	MutationReplaceAll
)

// Mutation describes one store change handed to the persistence sink.
// Shape is set for add/update, ID for remove.
type Mutation struct {
	Kind  MutationKind
	Shape domain.Shape
	ID    string
}

// Sink receives local store mutations together with the post-mutation
// snapshot. A store has exactly one sink: either a broadcast sink
// (collaborative mode) or a local cache sink (standalone mode).
type Sink interface {
	Apply(m Mutation, snapshot []domain.Shape) error
}

// ShapeStore is the authoritative local shape list for one canvas instance.
// List order is insertion order and stable across updates, so rendering order
// never flickers. Not safe for concurrent use; the engine owns it.
type ShapeStore struct {
	shapes []domain.Shape
	index  map[string]int
	sink   Sink
}

// NewShapeStore creates an empty store. sink may be nil (no persistence).
func NewShapeStore(sink Sink) *ShapeStore {
	return &ShapeStore{
		shapes: make([]domain.Shape, 0),
		index:  make(map[string]int),
		sink:   sink,
	}
}

// Add appends a new shape. Invalid shapes are silently dropped, observable
// only through the size not changing.
func (st *ShapeStore) Add(s domain.Shape) {
	if s.Validate() != nil {
		return
	}
	st.apply(s, true)
}

// Update replaces the shape with the same ID, or appends it if the ID is
// unknown. Last write wins; there is no merge.
func (st *ShapeStore) Update(id string, s domain.Shape) {
	s.ID = id
	if s.Validate() != nil {
		return
	}
	st.apply(s, true)
}

// Remove deletes by ID. Removing an unknown ID is a no-op.
func (st *ShapeStore) Remove(id string) {
	if st.remove(id) && st.sink != nil {
		st.notify(Mutation{Kind: MutationRemove, ID: id})
	}
}

// ReplaceAll swaps in a full shape set: initial room load, history replay, or
// local cache restoration. Invalid entries are dropped.
func (st *ShapeStore) ReplaceAll(shapes []domain.Shape) {
	st.shapes = st.shapes[:0]
	st.index = make(map[string]int, len(shapes))
	for _, s := range shapes {
		if s.Validate() != nil {
			continue
		}
		st.upsert(s)
	}
	if st.sink != nil {
		st.notify(Mutation{Kind: MutationReplaceAll})
	}
}

// ApplyRemote applies a mutation that arrived from the relay. It bypasses the
// sink so remote events are never echoed back out.
func (st *ShapeStore) ApplyRemote(m Mutation) {
	switch m.Kind {
	case MutationAdd, MutationUpdate:
		if m.Shape.Validate() != nil {
			return
		}
		st.upsert(m.Shape)
	case MutationRemove:
		st.remove(m.ID)
	}
}

// List returns the shapes in stable rendering order. The slice is a copy.
func (st *ShapeStore) List() []domain.Shape {
	out := make([]domain.Shape, len(st.shapes))
	copy(out, st.shapes)
	return out
}

// Get returns the shape with the given ID.
func (st *ShapeStore) Get(id string) (domain.Shape, bool) {
	i, ok := st.index[id]
	if !ok {
		return domain.Shape{}, false
	}
	return st.shapes[i], true
}

func (st *ShapeStore) Len() int {
	return len(st.shapes)
}

func (st *ShapeStore) apply(s domain.Shape, notifySink bool) {
	_, existed := st.index[s.ID]
	st.upsert(s)
	if notifySink && st.sink != nil {
		kind := MutationAdd
		if existed {
			kind = MutationUpdate
		}
		st.notify(Mutation{Kind: kind, Shape: s, ID: s.ID})
	}
}

func (st *ShapeStore) upsert(s domain.Shape) {
	if i, ok := st.index[s.ID]; ok {
		st.shapes[i] = s
		return
	}
	st.index[s.ID] = len(st.shapes)
	st.shapes = append(st.shapes, s)
}

func (st *ShapeStore) remove(id string) bool {
	i, ok := st.index[id]
	if !ok {
		return false
	}
	st.shapes = append(st.shapes[:i], st.shapes[i+1:]...)
	delete(st.index, id)
	for j := i; j < len(st.shapes); j++ {
		st.index[st.shapes[j].ID] = j
	}
	return true
}

func (st *ShapeStore) notify(m Mutation) {
	if err := st.sink.Apply(m, st.List()); err != nil {
		slog.Warn("shape store: sink apply failed", "kind", int(m.Kind), "shape", m.ID, "error", err)
	}
}
