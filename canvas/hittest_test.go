package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"drawspace/domain"
)

const tol = DefaultHitTolerance

func TestHitTest_Rectangle(t *testing.T) {
	s := rect("r", 10, 10, 40, 30)

	assert.True(t, HitTest(s, domain.Point{X: 30, Y: 25}, tol), "inside")
	assert.True(t, HitTest(s, domain.Point{X: 10 - tol, Y: 10}, tol), "on the expanded edge")
	assert.False(t, HitTest(s, domain.Point{X: 10 - tol - 1, Y: 10}, tol), "beyond tolerance")
}

func TestHitTest_RectangleNegativeExtents(t *testing.T) {
	// A candidate dragged up-left may carry negative width/height; the
	// hit-test normalizes bounds itself.
	s := domain.Shape{ID: "r", Kind: domain.KindRectangle, X: 50, Y: 40, Width: -40, Height: -30, StrokeWidth: 1}

	assert.True(t, HitTest(s, domain.Point{X: 30, Y: 25}, tol))
	assert.False(t, HitTest(s, domain.Point{X: 100, Y: 100}, tol))
}

func TestHitTest_Ellipse(t *testing.T) {
	s := domain.Shape{ID: "e", Kind: domain.KindEllipse, CenterX: 0, CenterY: 0, RadiusX: 50, RadiusY: 30, StrokeWidth: 1}

	assert.True(t, HitTest(s, domain.Point{X: 0, Y: 0}, tol), "exact center")
	assert.True(t, HitTest(s, domain.Point{X: 50 + tol, Y: 0}, tol), "on the expanded rim")
	assert.False(t, HitTest(s, domain.Point{X: 50 + tol + 1, Y: 0}, tol), "one unit past tolerance")
}

func TestHitTest_Diamond(t *testing.T) {
	s := domain.Shape{ID: "d", Kind: domain.KindDiamond, CenterX: 0, CenterY: 0, Width: 60, Height: 40, StrokeWidth: 1}

	assert.True(t, HitTest(s, domain.Point{X: 0, Y: 0}, tol))
	assert.True(t, HitTest(s, domain.Point{X: 30 + tol, Y: 0}, tol), "horizontal vertex plus tolerance")
	assert.False(t, HitTest(s, domain.Point{X: 30 + tol + 1, Y: 0}, tol))
	// Manhattan form: the rectangle corner is outside the diamond.
	assert.False(t, HitTest(s, domain.Point{X: 28, Y: 18}, 0))
}

func TestHitTest_Line(t *testing.T) {
	s := domain.Shape{ID: "l", Kind: domain.KindLine, FromX: 0, FromY: 0, ToX: 100, ToY: 0, StrokeWidth: 1}

	assert.True(t, HitTest(s, domain.Point{X: 50, Y: tol}, tol), "within perpendicular tolerance")
	assert.False(t, HitTest(s, domain.Point{X: 50, Y: tol + 1}, tol), "beyond perpendicular tolerance")
	assert.False(t, HitTest(s, domain.Point{X: 150, Y: 0}, tol), "on the infinite line but past the segment")
	assert.True(t, HitTest(s, domain.Point{X: 102, Y: 1}, tol), "just past the endpoint but inside expanded bbox")
}

func TestHitTest_Freehand(t *testing.T) {
	s := domain.Shape{
		ID:          "f",
		Kind:        domain.KindFreehand,
		Points:      []domain.Point{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 20, Y: 5}},
		StrokeWidth: 1,
	}

	assert.True(t, HitTest(s, domain.Point{X: 11, Y: 11}, tol), "near a recorded point")
	assert.False(t, HitTest(s, domain.Point{X: 50, Y: 50}, tol))
	// Coarse check: between two distant points can miss, and that is accepted.
}

func TestHitTest_SameResultEverySide(t *testing.T) {
	// Purity: repeated calls with identical input never change their answer.
	s := rect("r", 0, 0, 10, 10)
	p := domain.Point{X: 5, Y: 5}
	first := HitTest(s, p, tol)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, HitTest(s, p, tol))
	}
}
