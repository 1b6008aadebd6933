package canvas

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drawspace/domain"
)

// testEngine returns an engine with deterministic shape ids: s1, s2, ...
func testEngine(sink Sink) (*Engine, *ShapeStore) {
	store := NewShapeStore(sink)
	view := NewViewport()
	e := NewEngine(store, view)
	n := 0
	e.newID = func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
	return e, store
}

func TestEngine_RectangleNormalization(t *testing.T) {
	e, store := testEngine(nil)
	e.SetTool(ToolRectangle)

	// Drag up-left: from (100,100) to (40,30).
	e.PointerDown(PointerEvent{X: 100, Y: 100})
	e.PointerMove(PointerEvent{X: 40, Y: 30})
	e.PointerUp(PointerEvent{X: 40, Y: 30})

	require.Equal(t, 1, store.Len())
	got := store.List()[0]
	assert.Equal(t, 40.0, got.X)
	assert.Equal(t, 30.0, got.Y)
	assert.Equal(t, 60.0, got.Width)
	assert.Equal(t, 70.0, got.Height)
}

func TestEngine_CandidateNotCommittedDuringDrag(t *testing.T) {
	e, store := testEngine(nil)
	e.SetTool(ToolRectangle)

	e.PointerDown(PointerEvent{X: 0, Y: 0})
	fx := e.PointerMove(PointerEvent{X: 50, Y: 50})

	assert.True(t, fx.Dirty)
	assert.Equal(t, 0, store.Len(), "moves render an overlay, they do not commit")

	cand, ok := e.Candidate()
	require.True(t, ok)
	assert.Equal(t, domain.KindRectangle, cand.Kind)
	assert.Equal(t, 50.0, cand.Width)

	e.PointerUp(PointerEvent{X: 50, Y: 50})
	assert.Equal(t, 1, store.Len())
	_, ok = e.Candidate()
	assert.False(t, ok, "candidate cleared after commit")
}

func TestEngine_ZeroExtentShapeNotCommitted(t *testing.T) {
	e, store := testEngine(nil)
	e.SetTool(ToolRectangle)

	e.PointerDown(PointerEvent{X: 10, Y: 10})
	e.PointerUp(PointerEvent{X: 10, Y: 10})

	assert.Equal(t, 0, store.Len(), "a click without a drag has no extent")
}

func TestEngine_FreehandAccumulatesIncrementally(t *testing.T) {
	sink := &recordingSink{}
	e, store := testEngine(sink)
	e.SetTool(ToolFreehand)

	e.PointerDown(PointerEvent{X: 0, Y: 0})
	assert.Equal(t, 0, store.Len(), "one point is not yet a stroke")

	e.PointerMove(PointerEvent{X: 5, Y: 5})
	require.Equal(t, 1, store.Len(), "freehand lands in the store while drawing")

	e.PointerMove(PointerEvent{X: 10, Y: 8})
	e.PointerUp(PointerEvent{X: 10, Y: 8})

	got, found := store.Get("s1")
	require.True(t, found, "identity fixed at pointer-down")
	assert.Len(t, got.Points, 3)

	// First store landing is an add, growth is updates.
	require.NotEmpty(t, sink.mutations)
	assert.Equal(t, MutationAdd, sink.mutations[0].Kind)
	for _, m := range sink.mutations[1:] {
		assert.Equal(t, MutationUpdate, m.Kind)
	}
}

func TestEngine_EllipseCommit(t *testing.T) {
	e, store := testEngine(nil)
	e.SetTool(ToolEllipse)

	e.PointerDown(PointerEvent{X: 0, Y: 0})
	e.PointerUp(PointerEvent{X: 100, Y: 60})

	require.Equal(t, 1, store.Len())
	got := store.List()[0]
	assert.Equal(t, domain.KindEllipse, got.Kind)
	assert.Equal(t, 50.0, got.CenterX)
	assert.Equal(t, 30.0, got.CenterY)
	assert.Equal(t, 50.0, got.RadiusX)
	assert.Equal(t, 30.0, got.RadiusY)
}

func TestEngine_EraserRemovesTopmostImmediately(t *testing.T) {
	sink := &recordingSink{}
	e, store := testEngine(sink)
	store.Add(rect("below", 0, 0, 100, 100))
	store.Add(rect("above", 0, 0, 100, 100))
	sink.mutations = nil

	e.SetTool(ToolEraser)
	fx := e.PointerDown(PointerEvent{X: 50, Y: 50})

	assert.True(t, fx.Dirty)
	assert.Equal(t, 1, store.Len())
	_, found := store.Get("above")
	assert.False(t, found, "topmost shape goes first")

	require.Len(t, sink.mutations, 1)
	assert.Equal(t, MutationRemove, sink.mutations[0].Kind)
	assert.Equal(t, "above", sink.mutations[0].ID)

	// Eraser does not enter a drag state: a following move shares the cursor.
	fx = e.PointerMove(PointerEvent{X: 60, Y: 60})
	assert.NotNil(t, fx.Cursor)
}

func TestEngine_EraserMissIsNoop(t *testing.T) {
	e, store := testEngine(nil)
	store.Add(rect("a", 0, 0, 10, 10))

	e.SetTool(ToolEraser)
	fx := e.PointerDown(PointerEvent{X: 500, Y: 500})

	assert.False(t, fx.Dirty)
	assert.Equal(t, 1, store.Len())
}

func TestEngine_PanAccumulatesAndScalesNothing(t *testing.T) {
	e, store := testEngine(nil)
	store.Add(rect("a", 0, 0, 10, 10))
	e.SetTool(ToolPan)

	e.PointerDown(PointerEvent{X: 100, Y: 100})
	e.PointerMove(PointerEvent{X: 110, Y: 95})
	e.PointerMove(PointerEvent{X: 130, Y: 90})
	e.PointerUp(PointerEvent{X: 130, Y: 90})

	v := e.Viewport()
	assert.InDelta(t, 30, v.PanX, 1e-9)
	assert.InDelta(t, -10, v.PanY, 1e-9)
	assert.Equal(t, 1, store.Len(), "panning never touches shapes")
}

func TestEngine_PanModifierOverridesTool(t *testing.T) {
	e, _ := testEngine(nil)
	e.SetTool(ToolRectangle)

	e.PointerDown(PointerEvent{X: 0, Y: 0, PanModifier: true})
	e.PointerMove(PointerEvent{X: 10, Y: 10, PanModifier: true})
	e.PointerUp(PointerEvent{X: 10, Y: 10, PanModifier: true})

	assert.InDelta(t, 10, e.Viewport().PanX, 1e-9)
	assert.Equal(t, 0, e.Store().Len())
}

func TestEngine_DrawingUnderPanAndZoom(t *testing.T) {
	e, store := testEngine(nil)
	v := e.Viewport()
	v.PanX, v.PanY = 100, 50
	v.Scale = 2
	e.SetTool(ToolRectangle)

	// Screen (100,50)-(300,250) is world (0,0)-(100,100).
	e.PointerDown(PointerEvent{X: 100, Y: 50})
	e.PointerUp(PointerEvent{X: 300, Y: 250})

	require.Equal(t, 1, store.Len())
	got := store.List()[0]
	assert.InDelta(t, 0, got.X, 1e-9)
	assert.InDelta(t, 0, got.Y, 1e-9)
	assert.InDelta(t, 100, got.Width, 1e-9)
	assert.InDelta(t, 100, got.Height, 1e-9)
}

func TestEngine_SelectDragCommitsOnPointerUp(t *testing.T) {
	sink := &recordingSink{}
	e, store := testEngine(sink)
	store.Add(rect("a", 0, 0, 20, 20))
	sink.mutations = nil

	e.SetTool(ToolSelect)
	e.PointerDown(PointerEvent{X: 10, Y: 10})
	assert.Equal(t, "a", e.SelectedID())

	e.PointerMove(PointerEvent{X: 40, Y: 50})
	assert.Empty(t, sink.mutations, "dragging emits nothing until release")
	got, _ := store.Get("a")
	assert.Equal(t, 0.0, got.X, "store untouched mid-drag")

	e.PointerUp(PointerEvent{X: 40, Y: 50})
	got, _ = store.Get("a")
	assert.InDelta(t, 30, got.X, 1e-9)
	assert.InDelta(t, 40, got.Y, 1e-9)

	require.Len(t, sink.mutations, 1)
	assert.Equal(t, MutationUpdate, sink.mutations[0].Kind)
}

func TestEngine_ResizeSelectionFromCorner(t *testing.T) {
	e, store := testEngine(nil)
	store.Add(rect("a", 0, 0, 20, 20))

	e.SetTool(ToolSelect)
	// Select it first.
	e.PointerDown(PointerEvent{X: 10, Y: 10})
	e.PointerUp(PointerEvent{X: 10, Y: 10})
	require.Equal(t, "a", e.SelectedID())

	// Grab the bottom-right handle and stretch to (40,30).
	e.PointerDown(PointerEvent{X: 20, Y: 20})
	e.PointerMove(PointerEvent{X: 40, Y: 30})
	e.PointerUp(PointerEvent{X: 40, Y: 30})

	got, _ := store.Get("a")
	assert.InDelta(t, 40, got.Width, 1e-9)
	assert.InDelta(t, 30, got.Height, 1e-9)
	assert.InDelta(t, 0, got.X, 1e-9, "top-left corner stays fixed")
	assert.InDelta(t, 0, got.Y, 1e-9)
}

func TestEngine_SelectEmptySpaceClearsSelection(t *testing.T) {
	e, store := testEngine(nil)
	store.Add(rect("a", 0, 0, 20, 20))

	e.SetTool(ToolSelect)
	e.PointerDown(PointerEvent{X: 10, Y: 10})
	e.PointerUp(PointerEvent{X: 10, Y: 10})
	require.Equal(t, "a", e.SelectedID())

	e.PointerDown(PointerEvent{X: 500, Y: 500})
	assert.Equal(t, "", e.SelectedID())
}

func TestEngine_ZoomIndependentOfState(t *testing.T) {
	e, _ := testEngine(nil)
	e.SetTool(ToolRectangle)
	e.PointerDown(PointerEvent{X: 0, Y: 0})

	fx := e.Zoom(2, 100, 100)
	assert.True(t, fx.Dirty)
	assert.InDelta(t, 2, e.Viewport().Scale, 1e-9)
}

func TestEngine_IdleMoveSharesCursor(t *testing.T) {
	e, _ := testEngine(nil)
	v := e.Viewport()
	v.PanX, v.Scale = 100, 2

	fx := e.PointerMove(PointerEvent{X: 300, Y: 40})
	require.NotNil(t, fx.Cursor)
	assert.InDelta(t, 100, fx.Cursor.X, 1e-9)
	assert.InDelta(t, 20, fx.Cursor.Y, 1e-9)
}
