package canvas

import "drawspace/domain"

const (
	DefaultMinScale = 0.1
	DefaultMaxScale = 5.0
)

// Viewport maps screen coordinates to world coordinates under pan and zoom.
type Viewport struct {
	PanX, PanY float64
	Scale      float64

	MinScale, MaxScale float64
}

func NewViewport() *Viewport {
	return &Viewport{
		Scale:    1,
		MinScale: DefaultMinScale,
		MaxScale: DefaultMaxScale,
	}
}

// ScreenToWorld converts a screen-space point to world space.
func (v *Viewport) ScreenToWorld(x, y float64) domain.Point {
	return domain.Point{
		X: (x - v.PanX) / v.Scale,
		Y: (y - v.PanY) / v.Scale,
	}
}

// AdjustPan shifts the viewport by a screen-space delta.
func (v *Viewport) AdjustPan(dx, dy float64) {
	v.PanX += dx
	v.PanY += dy
}

// ZoomAt changes the scale while keeping the world point under the screen
// pivot fixed, so content never jumps under the cursor.
func (v *Viewport) ZoomAt(newScale, pivotX, pivotY float64) {
	newScale = v.clamp(newScale)
	pivot := v.ScreenToWorld(pivotX, pivotY)
	v.PanX -= pivot.X * (newScale - v.Scale)
	v.PanY -= pivot.Y * (newScale - v.Scale)
	v.Scale = newScale
}

func (v *Viewport) clamp(s float64) float64 {
	min, max := v.MinScale, v.MaxScale
	if min == 0 {
		min = DefaultMinScale
	}
	if max == 0 {
		max = DefaultMaxScale
	}
	if s < min {
		return min
	}
	if s > max {
		return max
	}
	return s
}
