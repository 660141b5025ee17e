package engine

import (
	"log/slog"

	"github.com/inamate/sketchpad/internal/document"
)

// HistoryLimit is the number of commands the history keeps. Older commands
// are evicted and become permanent.
const HistoryLimit = 20

// Command is a reversible change to a Scene.
type Command interface {
	Do(s *Scene)
	Undo(s *Scene)
	Name() string
}

// AddShape inserts a shape on Do and removes it on Undo.
type AddShape struct {
	shape *document.Shape
}

func NewAddShape(shape *document.Shape) *AddShape { return &AddShape{shape: shape} }

func (c *AddShape) Do(s *Scene)   { s.Add(c.shape) }
func (c *AddShape) Undo(s *Scene) { s.Remove(c.shape.ID) }
func (c *AddShape) Name() string  { return "Add Shape" }

// DeleteShape removes a shape on Do. Undo re-appends it on top of the paint
// order; its previous stacking position is not restored.
type DeleteShape struct {
	shape *document.Shape
}

func NewDeleteShape(shape *document.Shape) *DeleteShape { return &DeleteShape{shape: shape} }

func (c *DeleteShape) Do(s *Scene)   { s.Remove(c.shape.ID) }
func (c *DeleteShape) Undo(s *Scene) { s.Add(c.shape) }
func (c *DeleteShape) Name() string  { return "Delete Shape" }

// MoveShape sets a shape's position offset.
type MoveShape struct {
	id       string
	from, to document.Point
}

func NewMoveShape(id string, from, to document.Point) *MoveShape {
	return &MoveShape{id: id, from: from, to: to}
}

func (c *MoveShape) Do(s *Scene)   { c.set(s, c.to) }
func (c *MoveShape) Undo(s *Scene) { c.set(s, c.from) }
func (c *MoveShape) Name() string  { return "Move Shape" }

func (c *MoveShape) set(s *Scene, p document.Point) {
	if sh := s.Get(c.id); sh != nil {
		sh.Pos = p
	}
}

// ResizeShape sets the bounding box of a rectangle or circle. On a line it
// does nothing.
type ResizeShape struct {
	id       string
	from, to document.Rect
}

func NewResizeShape(id string, from, to document.Rect) *ResizeShape {
	return &ResizeShape{id: id, from: from, to: to}
}

func (c *ResizeShape) Do(s *Scene)   { c.set(s, c.to) }
func (c *ResizeShape) Undo(s *Scene) { c.set(s, c.from) }
func (c *ResizeShape) Name() string  { return "Resize Shape" }

func (c *ResizeShape) set(s *Scene, r document.Rect) {
	if sh := s.Get(c.id); sh != nil {
		sh.SetBox(r)
	}
}

// History is a bounded undo/redo log. cursor points at the first command
// that is available to redo; everything before it has been applied.
type History struct {
	scene  *Scene
	cmds   []Command
	cursor int
	limit  int
}

// NewHistory creates an empty history applying commands to scene.
func NewHistory(scene *Scene) *History {
	return &History{scene: scene, limit: HistoryLimit}
}

// Push applies cmd and records it. Any redo tail is discarded, and the
// oldest command is evicted once the limit is exceeded.
func (h *History) Push(cmd Command) {
	h.cmds = append(h.cmds[:h.cursor], cmd)
	cmd.Do(h.scene)
	h.cursor++

	if len(h.cmds) > h.limit {
		evicted := len(h.cmds) - h.limit
		slog.Debug("history limit reached, evicting", "count", evicted, "oldest", h.cmds[0].Name())
		clear(h.cmds[:evicted])
		h.cmds = h.cmds[evicted:]
		h.cursor -= evicted
	}
}

// Undo reverts the last applied command. It returns false when there is
// nothing to undo.
func (h *History) Undo() bool {
	if h.cursor == 0 {
		return false
	}
	h.cursor--
	h.cmds[h.cursor].Undo(h.scene)
	return true
}

// Redo reapplies the next undone command. It returns false when there is
// nothing to redo.
func (h *History) Redo() bool {
	if h.cursor >= len(h.cmds) {
		return false
	}
	h.cmds[h.cursor].Do(h.scene)
	h.cursor++
	return true
}

// Clear forgets every command without touching the scene.
func (h *History) Clear() {
	clear(h.cmds)
	h.cmds = nil
	h.cursor = 0
}

func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.cmds) }
func (h *History) Len() int      { return len(h.cmds) }
func (h *History) Cursor() int   { return h.cursor }

// UndoName returns the name of the command Undo would revert, or "".
func (h *History) UndoName() string {
	if !h.CanUndo() {
		return ""
	}
	return h.cmds[h.cursor-1].Name()
}

// RedoName returns the name of the command Redo would apply, or "".
func (h *History) RedoName() string {
	if !h.CanRedo() {
		return ""
	}
	return h.cmds[h.cursor].Name()
}
