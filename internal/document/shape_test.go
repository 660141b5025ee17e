package document

import (
	"errors"
	"math"
	"testing"
)

func TestNewRejectsNonFinite(t *testing.T) {
	tests := []struct {
		name string
		make func() (*Shape, error)
	}{
		{"line NaN", func() (*Shape, error) { return NewLine("a", Pt(math.NaN(), 0), Pt(1, 1)) }},
		{"line Inf", func() (*Shape, error) { return NewLine("a", Pt(0, 0), Pt(math.Inf(1), 1)) }},
		{"rect Inf width", func() (*Shape, error) { return NewRectangle("a", Rect{Width: math.Inf(-1)}) }},
		{"circle NaN", func() (*Shape, error) { return NewCircle("a", Rect{X: math.NaN()}) }},
		{"New NaN", func() (*Shape, error) { return New("a", KindRectangle, Pt(0, math.NaN())) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.make()
			if !errors.Is(err, ErrNonFinite) {
				t.Fatalf("err = %v, want ErrNonFinite", err)
			}
		})
	}
}

func TestDegenerateShapesAreLegal(t *testing.T) {
	for _, k := range []Kind{KindLine, KindRectangle, KindCircle} {
		s, err := New("id", k, Pt(3, 4))
		if err != nil {
			t.Fatalf("New(%s): %v", k, err)
		}
		if s.Kind != k {
			t.Errorf("Kind = %s, want %s", s.Kind, k)
		}
		if b := s.Bounds(); b != (Rect{X: 3, Y: 4}) {
			t.Errorf("%s bounds = %+v, want zero-size at (3,4)", k, b)
		}
	}
	if _, err := New("id", Kind("bogus"), Pt(0, 0)); err == nil {
		t.Error("New with unknown kind should fail")
	}
}

func TestSpanNormalizes(t *testing.T) {
	r, _ := New("r", KindRectangle, Pt(0, 0))
	r.Span(Pt(50, 40), Pt(10, 10))
	if want := (Rect{X: 10, Y: 10, Width: 40, Height: 30}); r.Box != want {
		t.Errorf("Box = %+v, want %+v", r.Box, want)
	}

	l, _ := New("l", KindLine, Pt(0, 0))
	l.Span(Pt(50, 40), Pt(10, 10))
	if l.Line.P1 != Pt(50, 40) || l.Line.P2 != Pt(10, 10) {
		t.Errorf("line not spanned as drawn: %+v", l.Line)
	}
}

func TestContains(t *testing.T) {
	line, _ := NewLine("l", Pt(0, 0), Pt(100, 0))
	rect, _ := NewRectangle("r", Rect{X: 0, Y: 0, Width: 50, Height: 50})
	circle, _ := NewCircle("c", Rect{X: 0, Y: 0, Width: 50, Height: 50})

	tests := []struct {
		name  string
		shape *Shape
		p     Point
		want  bool
	}{
		{"line on segment", line, Pt(50, 0), true},
		{"line within tolerance", line, Pt(50, 3), true},
		{"line outside tolerance", line, Pt(50, 5), false},
		{"line past end", line, Pt(110, 0), false},
		{"rect inside", rect, Pt(25, 25), true},
		{"rect edge", rect, Pt(50, 50), true},
		{"rect outside", rect, Pt(51, 25), false},
		// Circles hit-test on their bounding box, corners included.
		{"circle bbox corner", circle, Pt(1, 1), true},
		{"circle outside", circle, Pt(-1, 25), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.shape.Contains(tt.p, 4); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestContainsHonoursPosition(t *testing.T) {
	rect, _ := NewRectangle("r", Rect{Width: 10, Height: 10})
	rect.Pos = Pt(100, 100)

	if rect.Contains(Pt(5, 5), 0) {
		t.Error("moved shape still hit at its old location")
	}
	if !rect.Contains(Pt(105, 105), 0) {
		t.Error("moved shape not hit at its new location")
	}
	if got, want := rect.SceneBounds(), (Rect{X: 100, Y: 100, Width: 10, Height: 10}); got != want {
		t.Errorf("SceneBounds = %+v, want %+v", got, want)
	}
}

func TestSetBoxIgnoresLines(t *testing.T) {
	line, _ := NewLine("l", Pt(0, 0), Pt(10, 10))
	before := *line
	line.SetBox(Rect{Width: 99, Height: 99})
	if !line.Equal(&before) {
		t.Errorf("SetBox changed a line: %v", line)
	}
	if line.Resizable() {
		t.Error("lines must not be resizable")
	}
}

func TestEqualIsPositionAware(t *testing.T) {
	a, _ := NewRectangle("a", Rect{Width: 10, Height: 10})
	b := a.Clone("b")

	if !a.SameGeometry(b) {
		t.Fatal("clone should have the same geometry")
	}
	if a.Equal(b) {
		t.Fatal("shapes with different ids are not Equal")
	}
	b.Pos = Pt(1, 0)
	if a.SameGeometry(b) {
		t.Error("different position offset should not compare equal")
	}
}

func TestTranslateGeometry(t *testing.T) {
	line, _ := NewLine("l", Pt(0, 0), Pt(5, 5))
	line.TranslateGeometry(Pt(10, 10))
	if line.Line.P1 != Pt(10, 10) || line.Line.P2 != Pt(15, 15) {
		t.Errorf("line = %+v", line.Line)
	}

	c, _ := NewCircle("c", Rect{X: 1, Y: 2, Width: 3, Height: 4})
	c.TranslateGeometry(Pt(10, 10))
	if want := (Rect{X: 11, Y: 12, Width: 3, Height: 4}); c.Box != want {
		t.Errorf("Box = %+v, want %+v", c.Box, want)
	}
}

func TestRectScaledAboutCenter(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 50}
	got := r.ScaledAboutCenter(0.5)
	want := Rect{X: 25, Y: 12.5, Width: 50, Height: 25}
	if got != want {
		t.Errorf("ScaledAboutCenter = %+v, want %+v", got, want)
	}
	if got.Center() != r.Center() {
		t.Errorf("center moved: %v -> %v", r.Center(), got.Center())
	}
}
