package canvas

import (
	"math"

	"github.com/google/uuid"

	"drawspace/domain"
)

type Tool string

const (
	ToolSelect    Tool = "select"
	ToolPan       Tool = "pan"
	ToolEraser    Tool = "eraser"
	ToolRectangle Tool = "rectangle"
	ToolEllipse   Tool = "ellipse"
	ToolDiamond   Tool = "diamond"
	ToolLine      Tool = "line"
	ToolFreehand  Tool = "freehand"
)

type engineState int

const (
	stateIdle engineState = iota
	stateDrawing
	statePanning
	stateDraggingSelection
	stateResizingSelection
)

// StrokeStyle is the stroke applied to newly committed shapes.
type StrokeStyle struct {
	Width float64
	Color string
	Fill  string
}

// PointerEvent is a pointer-down/move/up in screen coordinates.
// PanModifier reports a held pan modifier (space / middle button).
type PointerEvent struct {
	X, Y        float64
	PanModifier bool
}

// Effects is what a transition asks the host to do: re-render, and/or share
// the cursor position with peers. Store mutations reach the wire through the
// store's sink, not through Effects.
type Effects struct {
	Dirty  bool
	Cursor *domain.Point
}

// Engine is the drawing state machine. It consumes pointer events plus the
// active tool, mutates the shape store, and keeps the viewport transform
// consistent. It has no rendering surface of its own.
type Engine struct {
	store *ShapeStore
	view  *Viewport

	tool  Tool
	style StrokeStyle

	state      engineState
	anchor     domain.Point // world anchor while drawing
	lastScreen domain.Point // raw screen position while panning

	candidate    domain.Shape
	hasCandidate bool

	points     []domain.Point // freehand accumulation
	freehandID string

	selectedID string
	dragBase   domain.Shape
	dragStart  domain.Point

	newID func() string
}

func NewEngine(store *ShapeStore, view *Viewport) *Engine {
	return &Engine{
		store: store,
		view:  view,
		tool:  ToolFreehand,
		style: StrokeStyle{Width: 2, Color: "#1e1e1e"},
		newID: uuid.NewString,
	}
}

func (e *Engine) SetTool(t Tool)         { e.tool = t }
func (e *Engine) Tool() Tool             { return e.tool }
func (e *Engine) SetStyle(s StrokeStyle) { e.style = s }
func (e *Engine) Viewport() *Viewport    { return e.view }
func (e *Engine) Store() *ShapeStore     { return e.store }
func (e *Engine) SelectedID() string     { return e.selectedID }

// Candidate returns the in-progress overlay shape, if any: the shape being
// dragged out, or the moved/resized copy of the selection.
func (e *Engine) Candidate() (domain.Shape, bool) {
	return e.candidate, e.hasCandidate
}

func (e *Engine) PointerDown(ev PointerEvent) Effects {
	if e.state != stateIdle {
		return Effects{}
	}

	if ev.PanModifier || e.tool == ToolPan {
		e.state = statePanning
		e.lastScreen = domain.Point{X: ev.X, Y: ev.Y}
		return Effects{}
	}

	w := e.view.ScreenToWorld(ev.X, ev.Y)

	switch e.tool {
	case ToolEraser:
		// Erase acts immediately; no state transition.
		if id, ok := e.topmostHit(w); ok {
			e.store.Remove(id)
			return Effects{Dirty: true}
		}
		return Effects{}

	case ToolSelect:
		if e.selectedID != "" {
			if sel, ok := e.store.Get(e.selectedID); ok && nearResizeHandle(sel, w) {
				e.state = stateResizingSelection
				e.dragBase = sel
				e.dragStart = w
				return Effects{}
			}
		}
		if id, ok := e.topmostHit(w); ok {
			shape, _ := e.store.Get(id)
			e.selectedID = id
			e.state = stateDraggingSelection
			e.dragBase = shape
			e.dragStart = w
			return Effects{Dirty: true}
		}
		changed := e.selectedID != ""
		e.selectedID = ""
		return Effects{Dirty: changed}

	case ToolRectangle, ToolEllipse, ToolDiamond, ToolLine:
		e.state = stateDrawing
		e.anchor = w
		e.hasCandidate = false
		return Effects{}

	case ToolFreehand:
		e.state = stateDrawing
		e.anchor = w
		e.freehandID = e.newID()
		e.points = append(e.points[:0], w)
		return Effects{}
	}

	return Effects{}
}

func (e *Engine) PointerMove(ev PointerEvent) Effects {
	switch e.state {
	case stateIdle:
		w := e.view.ScreenToWorld(ev.X, ev.Y)
		return Effects{Cursor: &w}

	case statePanning:
		e.view.AdjustPan(ev.X-e.lastScreen.X, ev.Y-e.lastScreen.Y)
		e.lastScreen = domain.Point{X: ev.X, Y: ev.Y}
		return Effects{Dirty: true}

	case stateDrawing:
		w := e.view.ScreenToWorld(ev.X, ev.Y)
		if e.tool == ToolFreehand {
			// Freehand identity is fixed at pointer-down; points accumulate
			// in the store incrementally.
			e.points = append(e.points, w)
			if len(e.points) >= 2 {
				e.store.Update(e.freehandID, e.freehandShape())
			}
			return Effects{Dirty: true}
		}
		// Candidate overlay only; nothing committed until pointer-up.
		e.candidate = e.shapeBetween(e.anchor, w)
		e.hasCandidate = true
		return Effects{Dirty: true}

	case stateDraggingSelection:
		w := e.view.ScreenToWorld(ev.X, ev.Y)
		e.candidate = translateShape(e.dragBase, w.X-e.dragStart.X, w.Y-e.dragStart.Y)
		e.hasCandidate = true
		return Effects{Dirty: true}

	case stateResizingSelection:
		w := e.view.ScreenToWorld(ev.X, ev.Y)
		e.candidate = resizeShape(e.dragBase, w)
		e.hasCandidate = true
		return Effects{Dirty: true}
	}

	return Effects{}
}

func (e *Engine) PointerUp(ev PointerEvent) Effects {
	defer func() {
		e.state = stateIdle
		e.hasCandidate = false
		e.candidate = domain.Shape{}
	}()

	switch e.state {
	case statePanning:
		return Effects{}

	case stateDrawing:
		w := e.view.ScreenToWorld(ev.X, ev.Y)
		if e.tool == ToolFreehand {
			if len(e.points) >= 2 {
				e.store.Update(e.freehandID, e.freehandShape())
			}
			e.points = e.points[:0]
			e.freehandID = ""
			return Effects{Dirty: true}
		}
		// Fold negative extents exactly once, at commit time.
		shape := normalizeShape(e.shapeBetween(e.anchor, w))
		shape.ID = e.newID()
		e.store.Add(shape)
		return Effects{Dirty: true}

	case stateDraggingSelection, stateResizingSelection:
		if e.hasCandidate {
			e.store.Update(e.selectedID, e.candidate)
		}
		return Effects{Dirty: true}
	}

	return Effects{}
}

// Zoom is independent of the pointer states; wheel and pinch both land here.
func (e *Engine) Zoom(newScale, pivotX, pivotY float64) Effects {
	e.view.ZoomAt(newScale, pivotX, pivotY)
	return Effects{Dirty: true}
}

func (e *Engine) topmostHit(w domain.Point) (string, bool) {
	shapes := e.store.List()
	for i := len(shapes) - 1; i >= 0; i-- {
		if HitTest(shapes[i], w, DefaultHitTolerance) {
			return shapes[i].ID, true
		}
	}
	return "", false
}

func (e *Engine) freehandShape() domain.Shape {
	pts := make([]domain.Point, len(e.points))
	copy(pts, e.points)
	return domain.Shape{
		ID:          e.freehandID,
		Kind:        domain.KindFreehand,
		Points:      pts,
		StrokeWidth: e.style.Width,
		StrokeColor: e.style.Color,
	}
}

// shapeBetween builds the tool's shape spanning anchor a to point c. Extents
// may be negative here; normalizeShape folds them at commit.
func (e *Engine) shapeBetween(a, c domain.Point) domain.Shape {
	s := domain.Shape{
		StrokeWidth: e.style.Width,
		StrokeColor: e.style.Color,
	}
	switch e.tool {
	case ToolRectangle:
		s.Kind = domain.KindRectangle
		s.X, s.Y = a.X, a.Y
		s.Width, s.Height = c.X-a.X, c.Y-a.Y
		s.FillColor = e.style.Fill
	case ToolEllipse:
		s.Kind = domain.KindEllipse
		s.CenterX, s.CenterY = (a.X+c.X)/2, (a.Y+c.Y)/2
		s.RadiusX, s.RadiusY = (c.X-a.X)/2, (c.Y-a.Y)/2
		s.FillColor = e.style.Fill
	case ToolDiamond:
		s.Kind = domain.KindDiamond
		s.CenterX, s.CenterY = (a.X+c.X)/2, (a.Y+c.Y)/2
		s.Width, s.Height = c.X-a.X, c.Y-a.Y
		s.FillColor = e.style.Fill
	case ToolLine:
		s.Kind = domain.KindLine
		s.FromX, s.FromY = a.X, a.Y
		s.ToX, s.ToY = c.X, c.Y
	}
	return s
}

func normalizeShape(s domain.Shape) domain.Shape {
	switch s.Kind {
	case domain.KindRectangle:
		if s.Width < 0 {
			s.X += s.Width
			s.Width = -s.Width
		}
		if s.Height < 0 {
			s.Y += s.Height
			s.Height = -s.Height
		}
	case domain.KindEllipse:
		s.RadiusX = math.Abs(s.RadiusX)
		s.RadiusY = math.Abs(s.RadiusY)
	case domain.KindDiamond:
		s.Width = math.Abs(s.Width)
		s.Height = math.Abs(s.Height)
	}
	return s
}

func translateShape(s domain.Shape, dx, dy float64) domain.Shape {
	switch s.Kind {
	case domain.KindRectangle:
		s.X += dx
		s.Y += dy
	case domain.KindEllipse, domain.KindDiamond:
		s.CenterX += dx
		s.CenterY += dy
	case domain.KindLine:
		s.FromX += dx
		s.FromY += dy
		s.ToX += dx
		s.ToY += dy
	case domain.KindFreehand:
		pts := make([]domain.Point, len(s.Points))
		for i, p := range s.Points {
			pts[i] = domain.Point{X: p.X + dx, Y: p.Y + dy}
		}
		s.Points = pts
	}
	return s
}

// resizeShape stretches the shape's bounding box from its top-left corner
// (which stays fixed) to the dragged point.
func resizeShape(s domain.Shape, to domain.Point) domain.Shape {
	x0, y0, x1, y1 := boundingBox(s)
	ow, oh := x1-x0, y1-y0
	if ow == 0 || oh == 0 {
		return s
	}
	sx := (to.X - x0) / ow
	sy := (to.Y - y0) / oh

	fx := func(x float64) float64 { return x0 + (x-x0)*sx }
	fy := func(y float64) float64 { return y0 + (y-y0)*sy }

	switch s.Kind {
	case domain.KindRectangle:
		nx0, ny0 := fx(s.X), fy(s.Y)
		nx1, ny1 := fx(s.X+s.Width), fy(s.Y+s.Height)
		s.X, s.Y = math.Min(nx0, nx1), math.Min(ny0, ny1)
		s.Width, s.Height = math.Abs(nx1-nx0), math.Abs(ny1-ny0)
	case domain.KindEllipse:
		s.CenterX, s.CenterY = fx(s.CenterX), fy(s.CenterY)
		s.RadiusX = math.Abs(s.RadiusX * sx)
		s.RadiusY = math.Abs(s.RadiusY * sy)
	case domain.KindDiamond:
		s.CenterX, s.CenterY = fx(s.CenterX), fy(s.CenterY)
		s.Width = math.Abs(s.Width * sx)
		s.Height = math.Abs(s.Height * sy)
	case domain.KindLine:
		s.FromX, s.FromY = fx(s.FromX), fy(s.FromY)
		s.ToX, s.ToY = fx(s.ToX), fy(s.ToY)
	case domain.KindFreehand:
		pts := make([]domain.Point, len(s.Points))
		for i, p := range s.Points {
			pts[i] = domain.Point{X: fx(p.X), Y: fy(p.Y)}
		}
		s.Points = pts
	}
	return s
}

func boundingBox(s domain.Shape) (x0, y0, x1, y1 float64) {
	switch s.Kind {
	case domain.KindRectangle:
		x0 = math.Min(s.X, s.X+s.Width)
		x1 = math.Max(s.X, s.X+s.Width)
		y0 = math.Min(s.Y, s.Y+s.Height)
		y1 = math.Max(s.Y, s.Y+s.Height)
	case domain.KindEllipse:
		x0, x1 = s.CenterX-s.RadiusX, s.CenterX+s.RadiusX
		y0, y1 = s.CenterY-s.RadiusY, s.CenterY+s.RadiusY
	case domain.KindDiamond:
		x0, x1 = s.CenterX-s.Width/2, s.CenterX+s.Width/2
		y0, y1 = s.CenterY-s.Height/2, s.CenterY+s.Height/2
	case domain.KindLine:
		x0 = math.Min(s.FromX, s.ToX)
		x1 = math.Max(s.FromX, s.ToX)
		y0 = math.Min(s.FromY, s.ToY)
		y1 = math.Max(s.FromY, s.ToY)
	case domain.KindFreehand:
		if len(s.Points) == 0 {
			return 0, 0, 0, 0
		}
		x0, x1 = s.Points[0].X, s.Points[0].X
		y0, y1 = s.Points[0].Y, s.Points[0].Y
		for _, p := range s.Points[1:] {
			x0 = math.Min(x0, p.X)
			x1 = math.Max(x1, p.X)
			y0 = math.Min(y0, p.Y)
			y1 = math.Max(y1, p.Y)
		}
	}
	return x0, y0, x1, y1
}

func nearResizeHandle(s domain.Shape, p domain.Point) bool {
	_, _, x1, y1 := boundingBox(s)
	return math.Hypot(p.X-x1, p.Y-y1) <= DefaultHitTolerance
}
