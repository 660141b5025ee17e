package engine

import (
	"slices"

	"github.com/inamate/sketchpad/internal/document"
)

// DefaultHitTolerance is the distance, in scene units, within which a point
// counts as touching a line. Twice the fixed stroke width.
const DefaultHitTolerance = 4.0

// Scene is the live, ordered collection of shapes. Insertion order is paint
// order: the last shape is drawn on top and wins hit tests.
//
// Shapes are indexed by their stable id; commands refer to shapes by id and
// resolve them through Get.
type Scene struct {
	order        []*document.Shape
	byID         map[string]*document.Shape
	hitTolerance float64
}

// NewScene creates an empty scene using DefaultHitTolerance.
func NewScene() *Scene {
	return &Scene{
		byID:         make(map[string]*document.Shape),
		hitTolerance: DefaultHitTolerance,
	}
}

// SetHitTolerance changes the line hit radius. Non-positive values are ignored.
func (s *Scene) SetHitTolerance(t float64) {
	if t > 0 {
		s.hitTolerance = t
	}
}

// HitTolerance returns the line hit radius.
func (s *Scene) HitTolerance() float64 {
	return s.hitTolerance
}

// Add appends the shape on top of the paint order. Adding a shape that is
// already present is a no-op, so the scene never holds duplicates.
func (s *Scene) Add(shape *document.Shape) {
	if _, ok := s.byID[shape.ID]; ok {
		return
	}
	s.byID[shape.ID] = shape
	s.order = append(s.order, shape)
}

// Remove drops the shape with the given id. Absent ids are ignored.
func (s *Scene) Remove(id string) {
	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	s.order = slices.DeleteFunc(s.order, func(sh *document.Shape) bool {
		return sh.ID == id
	})
}

// Get returns the shape with the given id, or nil.
func (s *Scene) Get(id string) *document.Shape {
	return s.byID[id]
}

// Contains reports whether a shape with the given id is in the scene.
func (s *Scene) Contains(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// TopmostAt returns the last-inserted shape containing p, or nil.
func (s *Scene) TopmostAt(p document.Point) *document.Shape {
	// Front to back = reverse order
	for i := len(s.order) - 1; i >= 0; i-- {
		if s.order[i].Contains(p, s.hitTolerance) {
			return s.order[i]
		}
	}
	return nil
}

// Clear removes every shape.
func (s *Scene) Clear() {
	s.order = nil
	clear(s.byID)
}

// Shapes returns the shapes in paint order. The slice is a copy; the shapes
// are not.
func (s *Scene) Shapes() []*document.Shape {
	return slices.Clone(s.order)
}

// Len returns the number of shapes.
func (s *Scene) Len() int {
	return len(s.order)
}

// Bounds returns the union of all shapes' scene bounds, or the zero rect
// for an empty scene.
func (s *Scene) Bounds() document.Rect {
	if len(s.order) == 0 {
		return document.Rect{}
	}
	result := s.order[0].SceneBounds().Normalized()
	for _, sh := range s.order[1:] {
		result = result.Union(sh.SceneBounds())
	}
	return result
}
