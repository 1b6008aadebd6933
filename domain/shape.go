package domain

import "math"

type ShapeKind string

const (
	KindRectangle ShapeKind = "rectangle"
	KindEllipse   ShapeKind = "ellipse"
	KindDiamond   ShapeKind = "diamond"
	KindLine      ShapeKind = "line"
	KindFreehand  ShapeKind = "freehand"
)

// Point is a 2D point in world coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is the closed union of drawable primitives. The Kind field selects
// which geometric fields are meaningful:
//
//	rectangle: X, Y, Width, Height
//	ellipse:   CenterX, CenterY, RadiusX, RadiusY
//	diamond:   CenterX, CenterY, Width, Height
//	line:      FromX, FromY, ToX, ToY
//	freehand:  Points
//
// Shapes are immutable value objects; mutation means replace-by-ID.
type Shape struct {
	ID   string    `json:"id"`
	Kind ShapeKind `json:"kind"`

	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	CenterX float64 `json:"centerX,omitempty"`
	CenterY float64 `json:"centerY,omitempty"`
	RadiusX float64 `json:"radiusX,omitempty"`
	RadiusY float64 `json:"radiusY,omitempty"`

	FromX float64 `json:"fromX,omitempty"`
	FromY float64 `json:"fromY,omitempty"`
	ToX   float64 `json:"toX,omitempty"`
	ToY   float64 `json:"toY,omitempty"`

	Points []Point `json:"points,omitempty"`

	StrokeWidth float64 `json:"strokeWidth"`
	StrokeColor string  `json:"strokeColor"`
	FillColor   string  `json:"fillColor,omitempty"`
}

// Validate reports whether the shape is well-formed enough to persist or
// broadcast: finite geometry, positive stroke width, non-zero extent, and at
// least two points for freehand strokes.
func (s Shape) Validate() error {
	if s.ID == "" {
		return ErrInvalidShape
	}
	if !isFinite(s.StrokeWidth) || s.StrokeWidth <= 0 {
		return ErrInvalidShape
	}

	switch s.Kind {
	case KindRectangle:
		if !allFinite(s.X, s.Y, s.Width, s.Height) || s.Width == 0 || s.Height == 0 {
			return ErrInvalidShape
		}
	case KindEllipse:
		if !allFinite(s.CenterX, s.CenterY, s.RadiusX, s.RadiusY) || s.RadiusX <= 0 || s.RadiusY <= 0 {
			return ErrInvalidShape
		}
	case KindDiamond:
		if !allFinite(s.CenterX, s.CenterY, s.Width, s.Height) || s.Width <= 0 || s.Height <= 0 {
			return ErrInvalidShape
		}
	case KindLine:
		if !allFinite(s.FromX, s.FromY, s.ToX, s.ToY) {
			return ErrInvalidShape
		}
		if s.FromX == s.ToX && s.FromY == s.ToY {
			return ErrInvalidShape
		}
	case KindFreehand:
		if len(s.Points) < 2 {
			return ErrInvalidShape
		}
		for _, p := range s.Points {
			if !allFinite(p.X, p.Y) {
				return ErrInvalidShape
			}
		}
	default:
		return ErrInvalidShape
	}

	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func allFinite(fs ...float64) bool {
	for _, f := range fs {
		if !isFinite(f) {
			return false
		}
	}
	return true
}
