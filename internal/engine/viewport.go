package engine

import "github.com/inamate/sketchpad/internal/document"

// Viewport maps scene coordinates to viewport coordinates for hosts that
// do not have a native scroll view:
//
//	screen = scene*Scale - Offset
//
// Offset is in viewport units, like a pair of scroll bar values.
type Viewport struct {
	Offset document.Point `json:"offset"`
	Scale  float64        `json:"scale"`
}

// NewViewport returns an unscrolled viewport at scale 1.
func NewViewport() Viewport {
	return Viewport{Scale: 1}
}

// ScrollBy moves the scroll position by (dx, dy).
func (v *Viewport) ScrollBy(dx, dy float64) {
	v.Offset = v.Offset.Add(document.Pt(dx, dy))
}

// Zoom multiplies the scale by factor, keeping the scene point under the
// viewport origin fixed.
func (v *Viewport) Zoom(factor float64) {
	v.Scale *= factor
	v.Offset = document.Pt(v.Offset.X*factor, v.Offset.Y*factor)
}

// Matrix returns the scene-to-viewport transform.
func (v Viewport) Matrix() Matrix2D {
	return Translate(-v.Offset.X, -v.Offset.Y).Multiply(Scale(v.Scale, v.Scale))
}

// ToScene converts a viewport position to scene coordinates.
func (v Viewport) ToScene(screen document.Point) document.Point {
	return v.Matrix().Invert().TransformPoint(screen)
}

// ToScreenRect maps a scene rect to the viewport rect covering it.
func (v Viewport) ToScreenRect(r document.Rect) document.Rect {
	return v.Matrix().TransformRect(r)
}
