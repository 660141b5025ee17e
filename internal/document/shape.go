package document

import (
	"errors"
	"fmt"
)

var ErrNonFinite = errors.New("non-finite coordinate")

// Kind tags the shape variant. Kind values double as the wire "type" tag.
type Kind string

const (
	KindLine      Kind = "line"
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
)

// Valid reports whether k is one of the known shape kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindLine, KindRectangle, KindCircle:
		return true
	}
	return false
}

// Segment is the geometry of a line shape.
type Segment struct {
	P1 Point `json:"p1"`
	P2 Point `json:"p2"`
}

// Shape is a single drawable primitive. Line geometry lives in Line, the
// rectangle and circle geometry in Box (a circle is the ellipse inscribed in
// Box). Pos is the offset applied by moves; geometry stays in local
// coordinates, the way it was drawn.
type Shape struct {
	ID   string
	Kind Kind
	Pos  Point
	Line Segment
	Box  Rect
}

// NewLine creates a line from p1 to p2. Zero-length lines are legal.
func NewLine(id string, p1, p2 Point) (*Shape, error) {
	if !p1.IsFinite() || !p2.IsFinite() {
		return nil, fmt.Errorf("line %s: %w", id, ErrNonFinite)
	}
	return &Shape{ID: id, Kind: KindLine, Line: Segment{P1: p1, P2: p2}}, nil
}

// NewRectangle creates a rectangle with the given bounding box.
func NewRectangle(id string, box Rect) (*Shape, error) {
	return newBoxShape(id, KindRectangle, box)
}

// NewCircle creates an ellipse inscribed in box.
func NewCircle(id string, box Rect) (*Shape, error) {
	return newBoxShape(id, KindCircle, box)
}

// New creates a zero-size shape of kind k anchored at p.
func New(id string, k Kind, p Point) (*Shape, error) {
	switch k {
	case KindLine:
		return NewLine(id, p, p)
	case KindRectangle, KindCircle:
		return newBoxShape(id, k, Rect{X: p.X, Y: p.Y})
	default:
		return nil, fmt.Errorf("unknown shape kind %q", k)
	}
}

func newBoxShape(id string, k Kind, box Rect) (*Shape, error) {
	if !box.finite() {
		return nil, fmt.Errorf("%s %s: %w", k, id, ErrNonFinite)
	}
	return &Shape{ID: id, Kind: k, Box: box}, nil
}

// Resizable reports whether the shape has a bounding box that resize can set.
func (s *Shape) Resizable() bool {
	return s.Kind == KindRectangle || s.Kind == KindCircle
}

// Bounds returns the local bounding rect, ignoring the position offset.
func (s *Shape) Bounds() Rect {
	if s.Kind == KindLine {
		return RectFromPoints(s.Line.P1, s.Line.P2)
	}
	return s.Box
}

// SceneBounds returns the bounding rect in scene coordinates.
func (s *Shape) SceneBounds() Rect {
	return s.Bounds().Translate(s.Pos)
}

// SetBox replaces the bounding box of a rectangle or circle. It is a silent
// no-op for lines.
func (s *Shape) SetBox(r Rect) {
	if !s.Resizable() {
		return
	}
	s.Box = r
}

// Span updates the geometry so that it stretches from a to b. Rectangles
// and circles are normalized.
func (s *Shape) Span(a, b Point) {
	switch s.Kind {
	case KindLine:
		s.Line = Segment{P1: a, P2: b}
	case KindRectangle, KindCircle:
		s.Box = RectFromPoints(a, b)
	}
}

// Contains reports whether the scene point p hits the shape. Lines use a
// distance-to-segment test within tolerance; rectangles and circles use
// their bounding box.
func (s *Shape) Contains(p Point, tolerance float64) bool {
	local := p.Sub(s.Pos)
	switch s.Kind {
	case KindLine:
		return distanceToSegment(local, s.Line.P1, s.Line.P2) <= tolerance
	case KindRectangle, KindCircle:
		return s.Box.Contains(local.X, local.Y)
	}
	return false
}

// Clone returns a copy of the shape with a new id.
func (s *Shape) Clone(id string) *Shape {
	c := *s
	c.ID = id
	return &c
}

// TranslateGeometry moves the local geometry by d, leaving Pos untouched.
func (s *Shape) TranslateGeometry(d Point) {
	switch s.Kind {
	case KindLine:
		s.Line.P1 = s.Line.P1.Add(d)
		s.Line.P2 = s.Line.P2.Add(d)
	case KindRectangle, KindCircle:
		s.Box = s.Box.Translate(d)
	}
}

// SameGeometry compares kind, position offset and geometry, ignoring ids.
func (s *Shape) SameGeometry(o *Shape) bool {
	if s.Kind != o.Kind || s.Pos != o.Pos {
		return false
	}
	if s.Kind == KindLine {
		return s.Line == o.Line
	}
	return s.Box == o.Box
}

// Equal is SameGeometry plus identity.
func (s *Shape) Equal(o *Shape) bool {
	return s.ID == o.ID && s.SameGeometry(o)
}

func (s *Shape) String() string {
	if s.Kind == KindLine {
		return fmt.Sprintf("%s %s (%g,%g)-(%g,%g) +(%g,%g)", s.Kind, s.ID,
			s.Line.P1.X, s.Line.P1.Y, s.Line.P2.X, s.Line.P2.Y, s.Pos.X, s.Pos.Y)
	}
	return fmt.Sprintf("%s %s [%g,%g %gx%g] +(%g,%g)", s.Kind, s.ID,
		s.Box.X, s.Box.Y, s.Box.Width, s.Box.Height, s.Pos.X, s.Pos.Y)
}
