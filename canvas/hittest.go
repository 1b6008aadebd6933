package canvas

import (
	"math"

	"drawspace/domain"
)

// DefaultHitTolerance is in world units, applied after the viewport
// transform so it is independent of the current zoom.
const DefaultHitTolerance = 5.0

// HitTest reports whether the world-space point p is on or near the shape.
// It is a pure function: the same inputs always give the same answer,
// on whichever side of the wire it runs.
func HitTest(s domain.Shape, p domain.Point, tol float64) bool {
	switch s.Kind {
	case domain.KindRectangle:
		return hitRectangle(s, p, tol)
	case domain.KindEllipse:
		return hitEllipse(s, p, tol)
	case domain.KindDiamond:
		return hitDiamond(s, p, tol)
	case domain.KindLine:
		return hitLine(s, p, tol)
	case domain.KindFreehand:
		return hitFreehand(s, p, tol)
	}
	return false
}

func hitRectangle(s domain.Shape, p domain.Point, tol float64) bool {
	x0 := math.Min(s.X, s.X+s.Width) - tol
	x1 := math.Max(s.X, s.X+s.Width) + tol
	y0 := math.Min(s.Y, s.Y+s.Height) - tol
	y1 := math.Max(s.Y, s.Y+s.Height) + tol
	return p.X >= x0 && p.X <= x1 && p.Y >= y0 && p.Y <= y1
}

func hitEllipse(s domain.Shape, p domain.Point, tol float64) bool {
	rx := s.RadiusX + tol
	ry := s.RadiusY + tol
	if rx <= 0 || ry <= 0 {
		return false
	}
	dx := p.X - s.CenterX
	dy := p.Y - s.CenterY
	return (dx*dx)/(rx*rx)+(dy*dy)/(ry*ry) <= 1
}

func hitDiamond(s domain.Shape, p domain.Point, tol float64) bool {
	hw := s.Width/2 + tol
	hh := s.Height/2 + tol
	if hw <= 0 || hh <= 0 {
		return false
	}
	dx := math.Abs(p.X - s.CenterX)
	dy := math.Abs(p.Y - s.CenterY)
	return dx/hw+dy/hh <= 1
}

func hitLine(s domain.Shape, p domain.Point, tol float64) bool {
	dx := s.ToX - s.FromX
	dy := s.ToY - s.FromY
	lenSq := dx*dx + dy*dy

	if lenSq == 0 {
		return math.Hypot(p.X-s.FromX, p.Y-s.FromY) <= tol
	}

	// Perpendicular distance to the infinite line.
	dist := math.Abs(dy*(p.X-s.FromX)-dx*(p.Y-s.FromY)) / math.Sqrt(lenSq)
	if dist > tol {
		return false
	}

	// Projection must land inside the segment's bounding box, expanded by tol.
	t := ((p.X-s.FromX)*dx + (p.Y-s.FromY)*dy) / lenSq
	projX := s.FromX + t*dx
	projY := s.FromY + t*dy
	x0 := math.Min(s.FromX, s.ToX) - tol
	x1 := math.Max(s.FromX, s.ToX) + tol
	y0 := math.Min(s.FromY, s.ToY) - tol
	y1 := math.Max(s.FromY, s.ToY) + tol
	return projX >= x0 && projX <= x1 && projY >= y0 && projY <= y1
}

// hitFreehand is a coarse check against the recorded points, not true
// stroke distance.
func hitFreehand(s domain.Shape, p domain.Point, tol float64) bool {
	for _, q := range s.Points {
		if math.Hypot(p.X-q.X, p.Y-q.Y) <= tol {
			return true
		}
	}
	return false
}
