package engine

import (
	"encoding/json"

	"github.com/inamate/sketchpad/internal/document"
)

// Fixed stroke every shape is painted with.
const (
	StrokeColor = "#000000"
	StrokeWidth = 2.0
)

// DrawCommand represents a single drawing operation for the host to execute.
// Geometry is in local shape coordinates; Transform carries the position
// offset.
type DrawCommand struct {
	Op          string          `json:"op"`                  // "line", "rect", "ellipse"
	ObjectID    string          `json:"objectId"`            // For hit correlation
	Transform   []float64       `json:"transform,omitempty"` // [a, b, c, d, e, f] affine matrix
	From        *document.Point `json:"from,omitempty"`      // line start
	To          *document.Point `json:"to,omitempty"`        // line end
	Rect        *document.Rect  `json:"rect,omitempty"`      // rect/ellipse bounding box
	Stroke      string          `json:"stroke"`
	StrokeWidth float64         `json:"strokeWidth"`
	Pending     bool            `json:"pending,omitempty"` // shape still being drawn
}

// CompileDrawCommands generates the draw command buffer for a scene in
// painter's order (back to front). current, if non-nil, is flagged as pending.
func CompileDrawCommands(scene *Scene, current *document.Shape) []DrawCommand {
	if scene == nil {
		return nil
	}

	shapes := scene.Shapes()
	commands := make([]DrawCommand, 0, len(shapes))
	for _, s := range shapes {
		cmd := DrawCommand{
			ObjectID:    s.ID,
			Stroke:      StrokeColor,
			StrokeWidth: StrokeWidth,
			Pending:     current != nil && s.ID == current.ID,
		}
		if m := Translate(s.Pos.X, s.Pos.Y); !m.IsIdentity() {
			cmd.Transform = m.ToSlice()
		}

		switch s.Kind {
		case document.KindLine:
			from, to := s.Line.P1, s.Line.P2
			cmd.Op = "line"
			cmd.From, cmd.To = &from, &to
		case document.KindRectangle:
			box := s.Box
			cmd.Op = "rect"
			cmd.Rect = &box
		case document.KindCircle:
			box := s.Box
			cmd.Op = "ellipse"
			cmd.Rect = &box
		default:
			continue
		}
		commands = append(commands, cmd)
	}
	return commands
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		commands = []DrawCommand{}
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// HitTest returns the id of the topmost shape at (x, y), or "".
func HitTest(scene *Scene, x, y float64) string {
	if scene == nil {
		return ""
	}
	if s := scene.TopmostAt(document.Pt(x, y)); s != nil {
		return s.ID
	}
	return ""
}
