//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/inamate/sketchpad/internal/document"
	"github.com/inamate/sketchpad/internal/engine"
)

var (
	editor   *engine.Editor
	viewport = engine.NewViewport()
	host     jsHost
)

// jsHost forwards editor callbacks to an optional object registered with
// setHost. Missing callbacks fall back to scrolling the Go-side viewport.
type jsHost struct {
	callbacks js.Value
}

func (h jsHost) fn(name string) (js.Value, bool) {
	if h.callbacks.IsUndefined() || h.callbacks.IsNull() {
		return js.Value{}, false
	}
	f := h.callbacks.Get(name)
	return f, f.Type() == js.TypeFunction
}

func (h jsHost) ScrollBy(dx, dy float64) {
	viewport.ScrollBy(dx, dy)
	if f, ok := h.fn("viewportChanged"); ok {
		f.Invoke(viewport.Offset.X, viewport.Offset.Y, viewport.Scale)
	}
}

func (h jsHost) ScaleChanged(factor, scale float64) {
	viewport.Zoom(factor)
	if f, ok := h.fn("viewportChanged"); ok {
		f.Invoke(viewport.Offset.X, viewport.Offset.Y, viewport.Scale)
	}
}

// ChooseAction calls chooseAction(shapeId) synchronously; it must return
// "duplicate", "delete" or anything else to dismiss.
func (h jsHost) ChooseAction(shape *document.Shape) engine.Action {
	f, ok := h.fn("chooseAction")
	if !ok {
		return engine.ActionNone
	}
	res := f.Invoke(shape.ID)
	if res.Type() != js.TypeString {
		return engine.ActionNone
	}
	return engine.ParseAction(res.String())
}

func (h jsHost) Wheel(ev engine.WheelEvent) {
	if ev.Modifiers&engine.ModShift != 0 {
		h.ScrollBy(-ev.Delta, 0)
		return
	}
	h.ScrollBy(0, -ev.Delta)
}

func main() {
	editor = engine.NewEditor(&host)

	sketchpad := js.Global().Get("Object").New()

	// --- Commands (frontend → editor) ---
	sketchpad.Set("setHost", js.FuncOf(setHost))
	sketchpad.Set("pointerDown", js.FuncOf(pointerDown))
	sketchpad.Set("pointerMove", js.FuncOf(pointerMove))
	sketchpad.Set("pointerUp", js.FuncOf(pointerUp))
	sketchpad.Set("wheel", js.FuncOf(wheel))
	sketchpad.Set("setMode", js.FuncOf(setMode))
	sketchpad.Set("undo", js.FuncOf(undo))
	sketchpad.Set("redo", js.FuncOf(redo))
	sketchpad.Set("clear", js.FuncOf(clearCanvas))
	sketchpad.Set("deserialize", js.FuncOf(deserialize))

	// --- Queries (frontend ← editor) ---
	sketchpad.Set("serialize", js.FuncOf(serialize))
	sketchpad.Set("render", js.FuncOf(render))
	sketchpad.Set("hitTest", js.FuncOf(hitTest))
	sketchpad.Set("getState", js.FuncOf(getState))

	js.Global().Set("sketchpad", sketchpad)
	js.Global().Set("sketchpadWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(err error) any {
	return js.ValueOf(map[string]any{"error": err.Error()})
}

func okResult() any {
	return js.ValueOf(map[string]any{"ok": true})
}

// --- Command Handlers ---

func setHost(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		host.callbacks = js.Undefined()
		return nil
	}
	host.callbacks = args[0]
	return nil
}

// pointerEvent reads (button, buttons, x, y, ctrl, shift, alt) where x and y
// are viewport coordinates and button uses the DOM numbering.
func pointerEvent(args []js.Value) (engine.PointerEvent, bool) {
	if len(args) < 4 {
		return engine.PointerEvent{}, false
	}
	screen := document.Pt(args[2].Float(), args[3].Float())
	ev := engine.PointerEvent{
		Button:  domButton(args[0].Int()),
		Buttons: engine.Button(args[1].Int()),
		Pos:     viewport.ToScene(screen),
		Screen:  screen,
	}
	ev.Modifiers = modifiers(args[4:])
	return ev, true
}

// domButton maps MouseEvent.button (0 main, 1 middle, 2 secondary).
func domButton(b int) engine.Button {
	switch b {
	case 0:
		return engine.ButtonPrimary
	case 1:
		return engine.ButtonMiddle
	case 2:
		return engine.ButtonSecondary
	}
	return engine.ButtonNone
}

func modifiers(flags []js.Value) engine.Modifier {
	var m engine.Modifier
	for i, bit := range []engine.Modifier{engine.ModPrecision, engine.ModShift, engine.ModAlt} {
		if i < len(flags) && flags[i].Truthy() {
			m |= bit
		}
	}
	return m
}

func pointerDown(this js.Value, args []js.Value) any {
	if ev, ok := pointerEvent(args); ok {
		editor.PointerDown(ev)
	}
	return nil
}

func pointerMove(this js.Value, args []js.Value) any {
	if ev, ok := pointerEvent(args); ok {
		editor.PointerMove(ev)
	}
	return nil
}

func pointerUp(this js.Value, args []js.Value) any {
	if ev, ok := pointerEvent(args); ok {
		editor.PointerUp(ev)
	}
	return nil
}

// wheel takes the DOM deltaY, which is positive toward the user.
func wheel(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	editor.Wheel(engine.WheelEvent{Delta: -args[0].Float(), Modifiers: modifiers(args[1:])})
	return nil
}

func setMode(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	m, err := engine.ParseMode(args[0].String())
	if err != nil {
		return errorResult(err)
	}
	editor.SetMode(m)
	return okResult()
}

func undo(this js.Value, args []js.Value) any {
	return js.ValueOf(editor.Undo())
}

func redo(this js.Value, args []js.Value) any {
	return js.ValueOf(editor.Redo())
}

func clearCanvas(this js.Value, args []js.Value) any {
	editor.ClearCanvas()
	return nil
}

func deserialize(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing shapes JSON"})
	}
	records, err := document.Unmarshal([]byte(args[0].String()))
	if err != nil {
		return errorResult(err)
	}
	if err := editor.DeserializeScene(records); err != nil {
		return errorResult(err)
	}
	return okResult()
}

// --- Query Handlers ---

func serialize(this js.Value, args []js.Value) any {
	data, err := document.Marshal(editor.SerializeScene())
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(string(data))
}

func render(this js.Value, args []js.Value) any {
	out, _ := engine.DrawCommandsToJSON(engine.CompileDrawCommands(editor.Scene(), editor.Current()))
	return js.ValueOf(out)
}

func hitTest(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	p := viewport.ToScene(document.Pt(args[0].Float(), args[1].Float()))
	return js.ValueOf(engine.HitTest(editor.Scene(), p.X, p.Y))
}

func getState(this js.Value, args []js.Value) any {
	h := editor.History()
	data, err := json.Marshal(map[string]any{
		"mode":     editor.Mode().String(),
		"scale":    editor.Scale(),
		"busy":     editor.Busy(),
		"canUndo":  h.CanUndo(),
		"canRedo":  h.CanRedo(),
		"undoName": h.UndoName(),
		"redoName": h.RedoName(),
		"viewport": viewport,
		"bounds":   editor.Scene().Bounds(),
		"revision": editor.Revision(),
	})
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(string(data))
}
