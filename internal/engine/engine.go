package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/inamate/sketchpad/internal/document"
	"github.com/inamate/sketchpad/internal/typeid"
)

const (
	// ZoomInFactor and ZoomOutFactor are applied per wheel notch.
	ZoomInFactor  = 1.1
	ZoomOutFactor = 0.9
	// MinScale and MaxScale bound the absolute view scale.
	MinScale = 0.2
	MaxScale = 5.0

	// ResizeSensitivity is the horizontal drag distance that adds 1.0 to
	// the resize scale factor.
	ResizeSensitivity = 100.0
	// MinResizeFactor is the smallest scale factor a resize drag applies.
	MinResizeFactor = 0.1
)

// DuplicateOffset is how far a duplicated shape is shifted from its source.
var DuplicateOffset = document.Point{X: 10, Y: 10}

var ErrGestureInProgress = errors.New("gesture in progress")

// Editor is the interaction state machine. It owns the scene and its
// history and turns pointer events into scene mutations. It is not safe for
// concurrent use; every call must come from the goroutine that owns it.
type Editor struct {
	scene   *Scene
	history *History
	host    Host

	mode  Mode
	scale float64

	// Gesture state
	pressed      Button
	startPoint   document.Point
	originalPos  document.Point
	originalRect document.Rect
	lastMousePos document.Point
	lastPanPoint document.Point
	current      *document.Shape // shape being drawn, in the scene but not yet committed
	selected     *document.Shape // shape being moved or resized

	// revision counts committed changes (push, undo, redo, clear, load).
	revision uint64
}

// NewEditor creates an editor in select mode at scale 1 with an empty scene.
// A nil host is replaced by NopHost.
func NewEditor(host Host) *Editor {
	if host == nil {
		host = NopHost{}
	}
	scene := NewScene()
	return &Editor{
		scene:   scene,
		history: NewHistory(scene),
		host:    host,
		mode:    ModeSelect,
		scale:   1,
	}
}

// --- Host commands ---

// SetMode switches the active tool.
func (e *Editor) SetMode(m Mode) {
	e.mode = m
}

// Undo reverts the last command. It does nothing during a gesture.
func (e *Editor) Undo() bool {
	if e.Busy() {
		slog.Debug("undo ignored during gesture")
		return false
	}
	if !e.history.Undo() {
		return false
	}
	e.revision++
	return true
}

// Redo reapplies the last undone command. It does nothing during a gesture.
func (e *Editor) Redo() bool {
	if e.Busy() {
		slog.Debug("redo ignored during gesture")
		return false
	}
	if !e.history.Redo() {
		return false
	}
	e.revision++
	return true
}

// ClearCanvas empties the scene and the history. It cannot be undone and
// abandons any gesture in flight. Confirming with the user is up to the host.
func (e *Editor) ClearCanvas() {
	e.scene.Clear()
	e.history.Clear()
	e.resetGesture()
	e.revision++
}

// AbortGesture abandons the gesture in flight without recording anything.
// A shape being drawn is removed; a shape being moved or resized goes back
// to where it started.
func (e *Editor) AbortGesture() {
	if e.current != nil {
		e.scene.Remove(e.current.ID)
	}
	if e.selected != nil {
		switch e.mode {
		case ModeSelect:
			e.selected.Pos = e.originalPos
		case ModeResize:
			e.selected.SetBox(e.originalRect)
		}
	}
	e.resetGesture()
}

// SerializeScene returns the scene in wire form, in paint order.
func (e *Editor) SerializeScene() []document.Record {
	return document.Encode(e.scene.Shapes())
}

// DeserializeScene replaces the scene with the decoded records and empties
// the history. On a decode error the scene is left untouched.
func (e *Editor) DeserializeScene(records []document.Record) error {
	if e.Busy() {
		return ErrGestureInProgress
	}
	shapes, err := document.Decode(records)
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}

	e.scene.Clear()
	for _, s := range shapes {
		e.scene.Add(s)
	}
	e.history.Clear()
	e.revision++
	return nil
}

// Duplicate pushes an AddShape for a copy of the shape, shifted by
// DuplicateOffset. It returns the copy, or nil if id is not in the scene.
func (e *Editor) Duplicate(id string) *document.Shape {
	src := e.scene.Get(id)
	if src == nil {
		return nil
	}
	dup := src.Clone(typeid.NewShapeID())
	dup.TranslateGeometry(DuplicateOffset)
	e.push(NewAddShape(dup))
	return dup
}

// Delete pushes a DeleteShape for the shape. It returns false if id is not
// in the scene.
func (e *Editor) Delete(id string) bool {
	s := e.scene.Get(id)
	if s == nil {
		return false
	}
	e.push(NewDeleteShape(s))
	return true
}

// --- Pointer and wheel events ---

// PointerDown handles a button press. Presses at non-finite positions are
// ignored.
func (e *Editor) PointerDown(ev PointerEvent) {
	if !ev.finite() {
		slog.Debug("ignoring non-finite press", "pos", ev.Pos, "screen", ev.Screen)
		return
	}
	e.pressed |= ev.Button

	switch ev.Button {
	case ButtonMiddle:
		e.lastPanPoint = ev.Screen

	case ButtonSecondary:
		if e.mode == ModeSelect {
			e.contextMenu(ev.Pos)
		}

	case ButtonPrimary:
		e.startPoint = ev.Pos

		switch e.mode {
		case ModeSelect:
			e.selected = e.scene.TopmostAt(ev.Pos)
			if e.selected != nil {
				e.originalPos = e.selected.Pos
				e.lastMousePos = e.startPoint
			}
		case ModeResize:
			e.selected = e.scene.TopmostAt(ev.Pos)
			if e.selected != nil {
				e.originalRect = e.selected.Bounds()
				e.lastMousePos = e.startPoint
			}
		default:
			e.selected = nil
			e.beginShape(ev.Pos)
		}
	}
}

// PointerMove handles motion with the given buttons held. Moves to
// non-finite positions are ignored.
func (e *Editor) PointerMove(ev PointerEvent) {
	if !ev.finite() {
		slog.Debug("ignoring non-finite move", "pos", ev.Pos, "screen", ev.Screen)
		return
	}
	if ev.Buttons.Has(ButtonMiddle) {
		delta := ev.Screen.Sub(e.lastPanPoint)
		if !delta.IsZero() {
			// Content follows the pointer, so the view scrolls the other way.
			e.host.ScrollBy(-delta.X, -delta.Y)
			e.lastPanPoint = ev.Screen
		}
	}

	if !ev.Buttons.Has(ButtonPrimary) {
		return
	}

	p := ev.Pos
	switch {
	case e.mode == ModeSelect && e.selected != nil:
		e.selected.Pos = e.selected.Pos.Add(p.Sub(e.lastMousePos))
		e.lastMousePos = p

	case e.mode == ModeResize && e.selected != nil:
		e.selected.SetBox(e.originalRect.ScaledAboutCenter(ResizeFactor(e.startPoint, p)))

	case e.current != nil:
		e.current.Span(e.startPoint, p)
	}
}

// PointerUp finishes the gesture, recording at most one command. The release
// position is not used; the gesture ends where the last move left it, so a
// non-finite release still ends the gesture cleanly.
func (e *Editor) PointerUp(ev PointerEvent) {
	switch {
	case e.current != nil:
		// Click-only shapes are committed too.
		e.push(NewAddShape(e.current))
		e.current = nil

	case e.mode == ModeSelect && e.selected != nil:
		if e.selected.Pos != e.originalPos {
			e.push(NewMoveShape(e.selected.ID, e.originalPos, e.selected.Pos))
		}

	case e.mode == ModeResize && e.selected != nil:
		if r := e.selected.Bounds(); r != e.originalRect {
			e.push(NewResizeShape(e.selected.ID, e.originalRect, r))
		}
	}
	e.selected = nil

	if ev.Button == ButtonNone {
		e.pressed = ButtonNone
	} else {
		e.pressed &^= ev.Button
	}
}

// Wheel zooms while the precision modifier is held and otherwise hands the
// event to the host. A zoom that would leave [MinScale, MaxScale] is dropped.
func (e *Editor) Wheel(ev WheelEvent) {
	if ev.Modifiers&ModPrecision == 0 {
		e.host.Wheel(ev)
		return
	}

	factor := ZoomInFactor
	if ev.Delta < 0 {
		factor = ZoomOutFactor
	}
	next := e.scale * factor
	if next < MinScale || next > MaxScale {
		return
	}
	e.scale = next
	e.host.ScaleChanged(factor, next)
}

// ResizeFactor is the scale a resize drag from start to p applies:
// 1 + dx/ResizeSensitivity, never below MinResizeFactor.
func ResizeFactor(start, p document.Point) float64 {
	return max(1+(p.X-start.X)/ResizeSensitivity, MinResizeFactor)
}

func (e *Editor) beginShape(p document.Point) {
	kind, ok := e.mode.drawKind()
	if !ok {
		return
	}
	shape, err := document.New(typeid.NewShapeID(), kind, p)
	if err != nil {
		slog.Debug("ignoring press", "error", err)
		return
	}
	e.scene.Add(shape)
	e.current = shape
}

func (e *Editor) contextMenu(p document.Point) {
	shape := e.scene.TopmostAt(p)
	if shape == nil {
		return
	}
	switch e.host.ChooseAction(shape) {
	case ActionDuplicate:
		e.Duplicate(shape.ID)
	case ActionDelete:
		e.Delete(shape.ID)
	}
}

func (e *Editor) push(cmd Command) {
	e.history.Push(cmd)
	e.revision++
	slog.Debug("command pushed", "command", cmd.Name(), "history", e.history.Len())
}

func (e *Editor) resetGesture() {
	e.pressed = ButtonNone
	e.current = nil
	e.selected = nil
	e.originalRect = document.Rect{}
}

// --- Queries ---

// Mode returns the active tool.
func (e *Editor) Mode() Mode { return e.mode }

// Scale returns the current view scale.
func (e *Editor) Scale() float64 { return e.scale }

// Busy reports whether a gesture is in flight. Hosts should disable undo,
// redo and load while it is true.
func (e *Editor) Busy() bool {
	return e.pressed != ButtonNone || e.current != nil
}

// Scene returns the live scene. Callers must not mutate it directly.
func (e *Editor) Scene() *Scene { return e.scene }

// History returns the command log.
func (e *Editor) History() *History { return e.history }

// Current returns the shape being drawn, or nil.
func (e *Editor) Current() *document.Shape { return e.current }

// Selected returns the shape being moved or resized, or nil.
func (e *Editor) Selected() *document.Shape { return e.selected }

// Revision increases with every committed change. Hosts compare it against
// the revision they last saved to detect unsaved work.
func (e *Editor) Revision() uint64 { return e.revision }
