package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/inamate/sketchpad/internal/document"
)

type scroll struct{ dx, dy float64 }

// recordingHost records every call the editor makes and answers the context
// menu with a fixed action.
type recordingHost struct {
	action  Action
	menus   []*document.Shape
	scrolls []scroll
	scales  []float64
	wheels  []WheelEvent
}

func (h *recordingHost) ScrollBy(dx, dy float64) { h.scrolls = append(h.scrolls, scroll{dx, dy}) }
func (h *recordingHost) ScaleChanged(factor, scale float64) {
	h.scales = append(h.scales, scale)
}
func (h *recordingHost) ChooseAction(s *document.Shape) Action {
	h.menus = append(h.menus, s)
	return h.action
}
func (h *recordingHost) Wheel(ev WheelEvent) { h.wheels = append(h.wheels, ev) }

func press(e *Editor, b Button, x, y float64) {
	e.PointerDown(PointerEvent{Button: b, Pos: document.Pt(x, y), Screen: document.Pt(x, y)})
}

func drag(e *Editor, b Button, x, y float64) {
	e.PointerMove(PointerEvent{Buttons: b, Pos: document.Pt(x, y), Screen: document.Pt(x, y)})
}

func release(e *Editor, b Button, x, y float64) {
	e.PointerUp(PointerEvent{Button: b, Pos: document.Pt(x, y), Screen: document.Pt(x, y)})
}

func TestDrawRectangle(t *testing.T) {
	e := NewEditor(nil)
	e.SetMode(ModeRectangle)

	press(e, ButtonPrimary, 10, 10)
	if e.Current() == nil || !e.Busy() {
		t.Fatal("press in rectangle mode should start a shape")
	}
	drag(e, ButtonPrimary, 60, 30)
	drag(e, ButtonPrimary, 110, 60)
	release(e, ButtonPrimary, 110, 60)

	if e.Busy() || e.Current() != nil {
		t.Fatal("gesture still in flight after release")
	}
	shapes := e.Scene().Shapes()
	if len(shapes) != 1 {
		t.Fatalf("scene has %d shapes, want 1", len(shapes))
	}
	if want := (document.Rect{X: 10, Y: 10, Width: 100, Height: 50}); shapes[0].Box != want {
		t.Errorf("Box = %+v, want %+v", shapes[0].Box, want)
	}
	if e.History().Len() != 1 {
		t.Errorf("history length = %d, want 1", e.History().Len())
	}

	if !e.Undo() {
		t.Fatal("Undo failed")
	}
	if e.Scene().Len() != 0 {
		t.Error("undo should remove the drawn rectangle")
	}
}

func TestDrawBackwardsNormalizes(t *testing.T) {
	e := NewEditor(nil)
	e.SetMode(ModeCircle)

	press(e, ButtonPrimary, 100, 100)
	drag(e, ButtonPrimary, 40, 70)
	release(e, ButtonPrimary, 40, 70)

	got := e.Scene().Shapes()[0]
	if got.Kind != document.KindCircle {
		t.Fatalf("Kind = %s", got.Kind)
	}
	if want := (document.Rect{X: 40, Y: 70, Width: 60, Height: 30}); got.Box != want {
		t.Errorf("Box = %+v, want %+v", got.Box, want)
	}
}

func TestDrawLineAndClickOnly(t *testing.T) {
	e := NewEditor(nil)
	e.SetMode(ModeLine)

	press(e, ButtonPrimary, 0, 0)
	drag(e, ButtonPrimary, 30, 40)
	release(e, ButtonPrimary, 30, 40)

	press(e, ButtonPrimary, 5, 5)
	release(e, ButtonPrimary, 5, 5)

	shapes := e.Scene().Shapes()
	if len(shapes) != 2 {
		t.Fatalf("scene has %d shapes, want 2", len(shapes))
	}
	if shapes[0].Line.P1 != document.Pt(0, 0) || shapes[0].Line.P2 != document.Pt(30, 40) {
		t.Errorf("line = %+v", shapes[0].Line)
	}
	if shapes[1].Line.P1 != document.Pt(5, 5) || shapes[1].Line.P2 != document.Pt(5, 5) {
		t.Errorf("click-only line = %+v, want zero length at (5,5)", shapes[1].Line)
	}
}

func TestShapeVisibleWhileDrawing(t *testing.T) {
	e := NewEditor(nil)
	e.SetMode(ModeRectangle)
	press(e, ButtonPrimary, 0, 0)
	drag(e, ButtonPrimary, 20, 20)

	cmds := CompileDrawCommands(e.Scene(), e.Current())
	if len(cmds) != 1 || !cmds[0].Pending {
		t.Fatalf("draw list = %+v, want one pending rect", cmds)
	}
	if e.History().Len() != 0 {
		t.Error("nothing should be committed before release")
	}
}

func TestSelectDragAndUndo(t *testing.T) {
	e := NewEditor(nil)
	r := rect(t, "r", 0, 0, 50, 50)
	e.Scene().Add(r)

	press(e, ButtonPrimary, 10, 10)
	if e.Selected() != r {
		t.Fatal("press on the rectangle should select it")
	}
	drag(e, ButtonPrimary, 20, 8)
	drag(e, ButtonPrimary, 30, 5)
	release(e, ButtonPrimary, 30, 5)

	if r.Pos != document.Pt(20, -5) {
		t.Fatalf("Pos = %v, want (20,-5)", r.Pos)
	}
	if r.Box != (document.Rect{Width: 50, Height: 50}) {
		t.Errorf("move changed the geometry: %+v", r.Box)
	}
	if e.History().UndoName() != "Move Shape" {
		t.Errorf("last command = %q", e.History().UndoName())
	}

	e.Undo()
	if !r.Pos.IsZero() {
		t.Errorf("after undo Pos = %v, want (0,0)", r.Pos)
	}
}

func TestSelectClickWithoutMoveRecordsNothing(t *testing.T) {
	e := NewEditor(nil)
	e.Scene().Add(rect(t, "r", 0, 0, 50, 50))

	press(e, ButtonPrimary, 10, 10)
	release(e, ButtonPrimary, 10, 10)
	press(e, ButtonPrimary, 500, 500) // empty space
	drag(e, ButtonPrimary, 600, 600)
	release(e, ButtonPrimary, 600, 600)

	if e.History().Len() != 0 {
		t.Errorf("history length = %d, want 0", e.History().Len())
	}
	if e.Selected() != nil {
		t.Error("selection should be cleared on release")
	}
}

func TestResize(t *testing.T) {
	tests := []struct {
		name string
		dx   float64
		want document.Rect
	}{
		{"grow", 100, document.Rect{X: -50, Y: -25, Width: 200, Height: 100}},
		{"shrink", -50, document.Rect{X: 25, Y: 12.5, Width: 50, Height: 25}},
		{"clamped", -1000, document.Rect{X: 45, Y: 22.5, Width: 10, Height: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEditor(nil)
			e.SetMode(ModeResize)
			r := rect(t, "r", 0, 0, 100, 50)
			e.Scene().Add(r)

			press(e, ButtonPrimary, 50, 25)
			drag(e, ButtonPrimary, 50+tt.dx, 25)
			release(e, ButtonPrimary, 50+tt.dx, 25)

			if r.Box != tt.want {
				t.Fatalf("Box = %+v, want %+v", r.Box, tt.want)
			}
			e.Undo()
			if want := (document.Rect{Width: 100, Height: 50}); r.Box != want {
				t.Errorf("after undo Box = %+v, want %+v", r.Box, want)
			}
		})
	}
}

func TestResizeFactor(t *testing.T) {
	if got := ResizeFactor(document.Pt(0, 0), document.Pt(50, 999)); got != 1.5 {
		t.Errorf("ResizeFactor = %v, want 1.5 (vertical motion ignored)", got)
	}
	if got := ResizeFactor(document.Pt(0, 0), document.Pt(-500, 0)); got != MinResizeFactor {
		t.Errorf("ResizeFactor = %v, want %v", got, MinResizeFactor)
	}
}

func TestResizeLineRecordsNothing(t *testing.T) {
	e := NewEditor(nil)
	e.SetMode(ModeResize)
	l := line(t, "l", 0, 0, 100, 0)
	e.Scene().Add(l)

	press(e, ButtonPrimary, 50, 0)
	drag(e, ButtonPrimary, 150, 0)
	release(e, ButtonPrimary, 150, 0)

	if e.History().Len() != 0 {
		t.Error("resizing a line should not record a command")
	}
	if l.Line.P2 != document.Pt(100, 0) {
		t.Errorf("line changed: %+v", l.Line)
	}
}

func TestContextMenu(t *testing.T) {
	t.Run("duplicate", func(t *testing.T) {
		host := &recordingHost{action: ActionDuplicate}
		e := NewEditor(host)
		src := rect(t, "r", 0, 0, 20, 20)
		src.Pos = document.Pt(5, 5)
		e.Scene().Add(src)

		press(e, ButtonSecondary, 10, 10)
		release(e, ButtonSecondary, 10, 10)

		if len(host.menus) != 1 || host.menus[0] != src {
			t.Fatalf("menu shown for %v, want the rectangle", host.menus)
		}
		shapes := e.Scene().Shapes()
		if len(shapes) != 2 {
			t.Fatalf("scene has %d shapes, want 2", len(shapes))
		}
		dup := shapes[1]
		if dup.ID == src.ID || dup.ID == "" {
			t.Errorf("duplicate id = %q", dup.ID)
		}
		if dup.Pos != src.Pos {
			t.Errorf("duplicate Pos = %v, want %v", dup.Pos, src.Pos)
		}
		if want := (document.Rect{X: 10, Y: 10, Width: 20, Height: 20}); dup.Box != want {
			t.Errorf("duplicate Box = %+v, want %+v", dup.Box, want)
		}
		if e.History().Len() != 1 {
			t.Errorf("history length = %d, want 1", e.History().Len())
		}

		e.Undo()
		if e.Scene().Len() != 1 {
			t.Error("undo should remove the duplicate")
		}
	})

	t.Run("delete", func(t *testing.T) {
		host := &recordingHost{action: ActionDelete}
		e := NewEditor(host)
		e.Scene().Add(rect(t, "r", 0, 0, 20, 20))

		press(e, ButtonSecondary, 10, 10)
		release(e, ButtonSecondary, 10, 10)
		if e.Scene().Len() != 0 {
			t.Fatal("delete did not remove the shape")
		}
		e.Undo()
		if !e.Scene().Contains("r") {
			t.Error("undo should restore the deleted shape")
		}
	})

	t.Run("dismissed", func(t *testing.T) {
		host := &recordingHost{action: ActionNone}
		e := NewEditor(host)
		e.Scene().Add(rect(t, "r", 0, 0, 20, 20))

		press(e, ButtonSecondary, 10, 10)
		release(e, ButtonSecondary, 10, 10)
		if e.History().Len() != 0 || e.Scene().Len() != 1 {
			t.Error("dismissing the menu should change nothing")
		}
	})

	t.Run("empty space", func(t *testing.T) {
		host := &recordingHost{action: ActionDelete}
		e := NewEditor(host)
		press(e, ButtonSecondary, 10, 10)
		if len(host.menus) != 0 {
			t.Error("menu shown over empty space")
		}
	})

	t.Run("not in select mode", func(t *testing.T) {
		host := &recordingHost{action: ActionDelete}
		e := NewEditor(host)
		e.SetMode(ModeRectangle)
		e.Scene().Add(rect(t, "r", 0, 0, 20, 20))
		press(e, ButtonSecondary, 10, 10)
		if len(host.menus) != 0 {
			t.Error("menu shown outside select mode")
		}
	})
}

func TestPan(t *testing.T) {
	host := &recordingHost{}
	e := NewEditor(host)

	press(e, ButtonMiddle, 100, 100)
	drag(e, ButtonMiddle, 110, 95)
	drag(e, ButtonMiddle, 110, 95) // no motion, no scroll
	drag(e, ButtonMiddle, 100, 100)
	release(e, ButtonMiddle, 100, 100)

	want := []scroll{{-10, 5}, {10, -5}}
	if len(host.scrolls) != len(want) {
		t.Fatalf("scrolls = %v, want %v", host.scrolls, want)
	}
	for i := range want {
		if host.scrolls[i] != want[i] {
			t.Errorf("scroll %d = %v, want %v", i, host.scrolls[i], want[i])
		}
	}
	if e.History().Len() != 0 || e.Busy() {
		t.Error("panning should not touch the history or leave a gesture behind")
	}
}

func TestZoom(t *testing.T) {
	host := &recordingHost{}
	e := NewEditor(host)

	for range 50 {
		e.Wheel(WheelEvent{Delta: 1, Modifiers: ModPrecision})
	}
	if s := e.Scale(); s > MaxScale || s < MaxScale/ZoomInFactor {
		t.Errorf("scale after zooming in = %v, want just under %v", s, MaxScale)
	}
	zoomIns := len(host.scales)
	if zoomIns == 0 || zoomIns >= 50 {
		t.Fatalf("ScaleChanged called %d times", zoomIns)
	}

	for range 100 {
		e.Wheel(WheelEvent{Delta: -1, Modifiers: ModPrecision})
	}
	if s := e.Scale(); s < MinScale || s > MinScale/ZoomOutFactor {
		t.Errorf("scale after zooming out = %v, want just over %v", s, MinScale)
	}
	for _, s := range host.scales {
		if s < MinScale || s > MaxScale {
			t.Errorf("reported scale %v out of range", s)
		}
	}
	if len(host.wheels) != 0 {
		t.Error("precision wheel events should not reach the host")
	}

	e.Wheel(WheelEvent{Delta: 3})
	if len(host.wheels) != 1 || host.wheels[0].Delta != 3 {
		t.Errorf("plain wheel events = %v, want one forwarded", host.wheels)
	}
}

func TestZoomZeroDeltaZoomsIn(t *testing.T) {
	e := NewEditor(nil)
	e.Wheel(WheelEvent{Modifiers: ModPrecision})
	if math.Abs(e.Scale()-ZoomInFactor) > 1e-12 {
		t.Errorf("scale = %v, want %v", e.Scale(), ZoomInFactor)
	}
}

func TestBusyGuards(t *testing.T) {
	e := NewEditor(nil)
	e.SetMode(ModeRectangle)
	press(e, ButtonPrimary, 0, 0)
	release(e, ButtonPrimary, 10, 10)

	press(e, ButtonPrimary, 20, 20)
	if e.Undo() {
		t.Error("undo allowed during a gesture")
	}
	if err := e.DeserializeScene(nil); !errors.Is(err, ErrGestureInProgress) {
		t.Errorf("DeserializeScene err = %v, want ErrGestureInProgress", err)
	}
	release(e, ButtonPrimary, 30, 30)

	if !e.Undo() || !e.Undo() {
		t.Fatal("undo refused after the gesture ended")
	}
	if e.Redo() && e.Busy() {
		t.Error("redo left the editor busy")
	}
}

func TestClearCanvasAbandonsGesture(t *testing.T) {
	e := NewEditor(nil)
	e.SetMode(ModeLine)
	press(e, ButtonPrimary, 0, 0)
	release(e, ButtonPrimary, 5, 5)
	press(e, ButtonPrimary, 10, 10)

	before := e.Revision()
	e.ClearCanvas()

	if e.Scene().Len() != 0 || e.History().Len() != 0 {
		t.Error("ClearCanvas left shapes or commands")
	}
	if e.Busy() {
		t.Error("ClearCanvas left a gesture in flight")
	}
	if e.Revision() <= before {
		t.Error("ClearCanvas should bump the revision")
	}
	if e.Undo() {
		t.Error("clear must not be undoable")
	}
}

func TestSerializeDeserialize(t *testing.T) {
	e := NewEditor(nil)
	e.SetMode(ModeRectangle)
	press(e, ButtonPrimary, 0, 0)
	drag(e, ButtonPrimary, 50, 50)
	release(e, ButtonPrimary, 50, 50)
	e.SetMode(ModeSelect)
	press(e, ButtonPrimary, 10, 10)
	drag(e, ButtonPrimary, 30, 5)
	release(e, ButtonPrimary, 30, 5)

	records := e.SerializeScene()
	want := document.BoxRecord(document.KindRectangle, 20, -5, 50, 50)
	if len(records) != 1 || *records[0].X != *want.X || *records[0].Y != *want.Y {
		t.Fatalf("records = %+v, want position folded in", records)
	}

	other := NewEditor(nil)
	other.SetMode(ModeLine)
	press(other, ButtonPrimary, 0, 0)
	release(other, ButtonPrimary, 1, 1)

	if err := other.DeserializeScene(records); err != nil {
		t.Fatalf("DeserializeScene: %v", err)
	}
	got := other.Scene().Shapes()
	if len(got) != 1 || got[0].Box != (document.Rect{X: 20, Y: -5, Width: 50, Height: 50}) || !got[0].Pos.IsZero() {
		t.Errorf("loaded = %v", got)
	}
	if other.History().Len() != 0 {
		t.Error("load should empty the history")
	}
}

func TestDeserializeSkipsUnknownAndKeepsSceneOnError(t *testing.T) {
	e := NewEditor(nil)
	records, err := document.Unmarshal([]byte(`[{"type":"line","x1":0,"y1":0,"x2":5,"y2":5},{"type":"bogus"}]`))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.DeserializeScene(records); err != nil {
		t.Fatalf("DeserializeScene: %v", err)
	}
	if e.Scene().Len() != 1 || e.Scene().Shapes()[0].Kind != document.KindLine {
		t.Fatalf("scene = %v, want a single line", e.Scene().Shapes())
	}

	bad := []document.Record{{Type: "circle"}}
	if err := e.DeserializeScene(bad); !errors.Is(err, document.ErrMissingField) {
		t.Fatalf("err = %v, want ErrMissingField", err)
	}
	if e.Scene().Len() != 1 {
		t.Error("failed load modified the scene")
	}
}

func TestDuplicateAndDeleteUnknownID(t *testing.T) {
	e := NewEditor(nil)
	if e.Duplicate("nope") != nil {
		t.Error("Duplicate of a missing id returned a shape")
	}
	if e.Delete("nope") {
		t.Error("Delete of a missing id reported success")
	}
	if e.History().Len() != 0 {
		t.Error("no-op host commands should not be recorded")
	}
}

func TestNonFinitePressIgnored(t *testing.T) {
	e := NewEditor(nil)
	e.SetMode(ModeRectangle)
	press(e, ButtonPrimary, math.NaN(), 0)
	if e.Current() != nil {
		t.Error("NaN press started a shape")
	}
	release(e, ButtonPrimary, 0, 0)
	if e.Scene().Len() != 0 || e.Busy() {
		t.Error("NaN press left state behind")
	}
}

func TestNonFiniteMoveIgnored(t *testing.T) {
	nan := math.NaN()

	t.Run("move", func(t *testing.T) {
		e := NewEditor(nil)
		r := rect(t, "r", 0, 0, 50, 50)
		e.Scene().Add(r)

		press(e, ButtonPrimary, 10, 10)
		drag(e, ButtonPrimary, nan, 10)
		release(e, ButtonPrimary, nan, 10)
		if !r.Pos.IsZero() || e.History().Len() != 0 || e.Busy() {
			t.Errorf("Pos = %v, history = %d, busy = %v", r.Pos, e.History().Len(), e.Busy())
		}
		if _, err := document.Marshal(e.SerializeScene()); err != nil {
			t.Errorf("scene no longer serializes: %v", err)
		}
	})

	t.Run("resize", func(t *testing.T) {
		e := NewEditor(nil)
		r := rect(t, "r", 0, 0, 50, 50)
		e.Scene().Add(r)
		e.SetMode(ModeResize)

		press(e, ButtonPrimary, 10, 10)
		drag(e, ButtonPrimary, math.Inf(1), 10)
		release(e, ButtonPrimary, math.Inf(1), 10)
		if r.Box != (document.Rect{Width: 50, Height: 50}) || e.History().Len() != 0 {
			t.Errorf("Box = %+v, history = %d", r.Box, e.History().Len())
		}
	})

	t.Run("draw", func(t *testing.T) {
		e := NewEditor(nil)
		e.SetMode(ModeLine)

		press(e, ButtonPrimary, 10, 10)
		drag(e, ButtonPrimary, 20, nan)
		release(e, ButtonPrimary, 20, nan)
		if e.Scene().Len() != 1 || e.Busy() {
			t.Fatalf("len = %d, busy = %v", e.Scene().Len(), e.Busy())
		}
		if l := e.Scene().Shapes()[0].Line; l.P2 != document.Pt(10, 10) {
			t.Errorf("line end = %v, want the press point", l.P2)
		}
	})

	t.Run("pan", func(t *testing.T) {
		h := &recordingHost{}
		e := NewEditor(h)

		press(e, ButtonMiddle, 0, 0)
		drag(e, ButtonMiddle, nan, 0)
		drag(e, ButtonMiddle, 10, 0)
		if len(h.scrolls) != 1 || h.scrolls[0] != (scroll{-10, 0}) {
			t.Errorf("scrolls = %v", h.scrolls)
		}
	})
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeSelect, ModeLine, ModeRectangle, ModeCircle, ModeResize} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("lasso"); err == nil {
		t.Error("ParseMode accepted an unknown mode")
	}
}

func TestAbortGesture(t *testing.T) {
	e := NewEditor(nil)
	r := rect(t, "r", 0, 0, 50, 50)
	e.Scene().Add(r)

	press(e, ButtonPrimary, 10, 10)
	drag(e, ButtonPrimary, 40, 40)
	e.AbortGesture()
	if !r.Pos.IsZero() || e.Busy() {
		t.Errorf("aborted move left Pos = %v, busy = %v", r.Pos, e.Busy())
	}

	e.SetMode(ModeResize)
	press(e, ButtonPrimary, 10, 10)
	drag(e, ButtonPrimary, 110, 10)
	e.AbortGesture()
	if r.Box != (document.Rect{Width: 50, Height: 50}) {
		t.Errorf("aborted resize left Box = %+v", r.Box)
	}

	e.SetMode(ModeLine)
	press(e, ButtonPrimary, 100, 100)
	drag(e, ButtonPrimary, 200, 200)
	e.AbortGesture()
	if e.Scene().Len() != 1 || e.History().Len() != 0 {
		t.Errorf("aborted draw left %d shapes, %d commands", e.Scene().Len(), e.History().Len())
	}
}
