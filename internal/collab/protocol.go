package collab

import (
	"encoding/json"
	"fmt"

	"github.com/inamate/sketchpad/internal/document"
	"github.com/inamate/sketchpad/internal/engine"
)

type Message struct {
	Type      string          `json:"type"`
	DrawingID string          `json:"drawingId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client -> server
	TypePointerDown = "pointer.down"
	TypePointerMove = "pointer.move"
	TypePointerUp   = "pointer.up"
	TypeWheel       = "wheel"
	TypeModeSet     = "mode.set"
	TypeUndo        = "history.undo"
	TypeRedo        = "history.redo"
	TypeClear       = "canvas.clear"
	TypeSave        = "drawing.save"
	TypeLoad        = "drawing.load"
	TypeMenuChoice  = "menu.choice"

	// Server -> client
	TypeWelcome        = "welcome"
	TypeSceneSync      = "scene.sync"
	TypeViewportUpdate = "viewport.update"
	TypeMenuRequest    = "menu.request"
	TypeDrawingSaved   = "drawing.saved"
	TypePresenceState  = "presence.state"
	TypeError          = "error"
)

// Modifiers mirrors the modifier flags of a DOM mouse event.
type Modifiers struct {
	Ctrl  bool `json:"ctrl,omitempty"`
	Shift bool `json:"shift,omitempty"`
	Alt   bool `json:"alt,omitempty"`
}

func (m Modifiers) toEngine() engine.Modifier {
	var out engine.Modifier
	if m.Ctrl {
		out |= engine.ModPrecision
	}
	if m.Shift {
		out |= engine.ModShift
	}
	if m.Alt {
		out |= engine.ModAlt
	}
	return out
}

// PointerPayload carries pointer.down, pointer.move and pointer.up.
// Coordinates are in viewport units; the session maps them to the scene.
type PointerPayload struct {
	// Button is "primary", "secondary" or "middle" on press and release.
	// A release without a button releases everything.
	Button string `json:"button,omitempty"`
	// Buttons is the held set during a move: 1 primary, 2 secondary,
	// 4 middle, as in MouseEvent.buttons.
	Buttons   uint8     `json:"buttons,omitempty"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Modifiers Modifiers `json:"modifiers"`
}

func parseButton(name string) (engine.Button, error) {
	switch name {
	case "":
		return engine.ButtonNone, nil
	case "primary":
		return engine.ButtonPrimary, nil
	case "secondary":
		return engine.ButtonSecondary, nil
	case "middle":
		return engine.ButtonMiddle, nil
	}
	return engine.ButtonNone, fmt.Errorf("unknown button %q", name)
}

func (p *PointerPayload) event(v engine.Viewport) (engine.PointerEvent, error) {
	b, err := parseButton(p.Button)
	if err != nil {
		return engine.PointerEvent{}, err
	}
	screen := document.Pt(p.X, p.Y)
	return engine.PointerEvent{
		Button:    b,
		Buttons:   engine.Button(p.Buttons) & (engine.ButtonPrimary | engine.ButtonSecondary | engine.ButtonMiddle),
		Pos:       v.ToScene(screen),
		Screen:    screen,
		Modifiers: p.Modifiers.toEngine(),
	}, nil
}

// WheelPayload uses the DOM sign convention: positive DeltaY scrolls down,
// toward the user.
type WheelPayload struct {
	DeltaY    float64   `json:"deltaY"`
	Modifiers Modifiers `json:"modifiers"`
}

type ModePayload struct {
	Mode string `json:"mode"`
}

// LoadPayload replaces the scene with Shapes. Without shapes the drawing is
// reloaded from storage.
type LoadPayload struct {
	Shapes []document.Record `json:"shapes,omitempty"`
}

type MenuChoicePayload struct {
	MenuID int64  `json:"menuId"`
	Action string `json:"action"` // "duplicate", "delete", or anything else to dismiss
}

type WelcomePayload struct {
	SessionID string `json:"sessionId"`
	ClientID  string `json:"clientId"`
	DrawingID string `json:"drawingId"`
	Version   int    `json:"version"`
}

type SceneSyncPayload struct {
	DrawCommands []engine.DrawCommand `json:"drawCommands"`
	Shapes       []document.Record    `json:"shapes"`
	Mode         string               `json:"mode"`
	Scale        float64              `json:"scale"`
	Busy         bool                 `json:"busy"`
	CanUndo      bool                 `json:"canUndo"`
	CanRedo      bool                 `json:"canRedo"`
	UndoName     string               `json:"undoName,omitempty"`
	RedoName     string               `json:"redoName,omitempty"`
	Revision     uint64               `json:"revision"`
	Dirty        bool                 `json:"dirty"`
	// Bounds is the union of all shapes in scene coordinates, for
	// fit-to-content. Zero when the scene is empty.
	Bounds document.Rect `json:"bounds"`
}

type MenuRequestPayload struct {
	MenuID  int64    `json:"menuId"`
	ShapeID string   `json:"shapeId"`
	Actions []string `json:"actions"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	// Bounds is the target shape in viewport coordinates.
	Bounds document.Rect `json:"bounds"`
}

type DrawingSavedPayload struct {
	DrawingID string `json:"drawingId"`
	Version   int    `json:"version"`
	// SavedBy is the session that saved; peers use it to tell their own
	// saves from others'.
	SavedBy string `json:"savedBy"`
}

type PresenceStatePayload struct {
	Sessions []string `json:"sessions"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
