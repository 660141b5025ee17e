package engine

import (
	"fmt"

	"github.com/inamate/sketchpad/internal/document"
)

// Mode is the active tool; it decides how a gesture is interpreted.
type Mode int

const (
	ModeSelect Mode = iota
	ModeLine
	ModeRectangle
	ModeCircle
	ModeResize
)

var modeNames = [...]string{
	ModeSelect:    "select",
	ModeLine:      "line",
	ModeRectangle: "rectangle",
	ModeCircle:    "circle",
	ModeResize:    "resize",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode converts a mode name as produced by String back to a Mode.
func ParseMode(name string) (Mode, error) {
	for m, n := range modeNames {
		if n == name {
			return Mode(m), nil
		}
	}
	return ModeSelect, fmt.Errorf("unknown mode %q", name)
}

// drawKind maps the drawing modes to the shape kind they create.
func (m Mode) drawKind() (document.Kind, bool) {
	switch m {
	case ModeLine:
		return document.KindLine, true
	case ModeRectangle:
		return document.KindRectangle, true
	case ModeCircle:
		return document.KindCircle, true
	}
	return "", false
}

// Button identifies a pointer button.
type Button uint8

const (
	ButtonNone      Button = 0
	ButtonPrimary   Button = 1 << 0
	ButtonSecondary Button = 1 << 1
	ButtonMiddle    Button = 1 << 2
)

// Has reports whether b includes every bit of o. Button values double as a
// bit set of held buttons.
func (b Button) Has(o Button) bool {
	return o != 0 && b&o == o
}

// Modifier is a bit set of keyboard modifiers.
type Modifier uint8

const (
	// ModPrecision is the zoom modifier (Ctrl on most desktops).
	ModPrecision Modifier = 1 << iota
	ModShift
	ModAlt
)

// PointerEvent is a press, move or release delivered by the host.
type PointerEvent struct {
	// Button is the button that changed state (press/release only).
	Button Button
	// Buttons is the set of buttons held during a move.
	Buttons Button
	// Pos is the pointer position in scene coordinates.
	Pos document.Point
	// Screen is the pointer position in viewport coordinates; panning uses
	// it so the delta does not shift while the view scrolls.
	Screen    document.Point
	Modifiers Modifier
}

func (ev PointerEvent) finite() bool {
	return ev.Pos.IsFinite() && ev.Screen.IsFinite()
}

// WheelEvent is a wheel notch. Positive Delta is forward (away from the user).
type WheelEvent struct {
	Delta     float64
	Modifiers Modifier
}

// Action is the host's answer to the shape context menu.
type Action int

const (
	ActionNone Action = iota
	ActionDuplicate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionDuplicate:
		return "duplicate"
	case ActionDelete:
		return "delete"
	}
	return "none"
}

// ParseAction converts a menu choice name to an Action. Unknown names map
// to ActionNone.
func ParseAction(name string) Action {
	switch name {
	case "duplicate":
		return ActionDuplicate
	case "delete":
		return ActionDelete
	}
	return ActionNone
}

// Host is the toolkit side of the editor. The editor calls it synchronously
// from inside event handling and never reaches into host UI state otherwise.
type Host interface {
	// ScrollBy scrolls the viewport by (dx, dy) in viewport units.
	ScrollBy(dx, dy float64)
	// ScaleChanged reports that the view was zoomed by factor, reaching scale.
	ScaleChanged(factor, scale float64)
	// ChooseAction shows the Duplicate/Delete menu for shape and blocks until
	// the user picks an entry or dismisses it.
	ChooseAction(shape *document.Shape) Action
	// Wheel performs the toolkit's default wheel handling.
	Wheel(ev WheelEvent)
}

// NopHost ignores view requests and dismisses every menu.
type NopHost struct{}

func (NopHost) ScrollBy(dx, dy float64)                   {}
func (NopHost) ScaleChanged(factor, scale float64)        {}
func (NopHost) ChooseAction(shape *document.Shape) Action { return ActionNone }
func (NopHost) Wheel(ev WheelEvent)                       {}
