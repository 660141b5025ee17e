package drawing

import (
	"context"
	"errors"
	"time"

	"github.com/inamate/sketchpad/internal/document"
)

var (
	ErrNotFound      = errors.New("drawing not found")
	ErrExists        = errors.New("drawing already exists")
	ErrInvalidID     = errors.New("invalid drawing id")
	ErrEmptyDrawing  = errors.New("nothing to save")
	ErrInvalidShapes = errors.New("invalid shapes")
)

// Drawing is a stored scene. Shapes are kept in wire form with positions
// folded into the coordinates.
type Drawing struct {
	ID        string            `json:"id"`
	Shapes    []document.Record `json:"shapes"`
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Summary is a Drawing without its shapes, as returned by List.
type Summary struct {
	ID         string    `json:"id"`
	ShapeCount int       `json:"shapeCount"`
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Store persists drawings. Implementations must be safe for concurrent use.
type Store interface {
	// Create stores a new drawing at version 1. It fails with ErrExists if
	// the id is taken.
	Create(ctx context.Context, id string, shapes []document.Record) (*Drawing, error)
	// Save replaces the shapes of a drawing and bumps its version, creating
	// it if needed.
	Save(ctx context.Context, id string, shapes []document.Record) (*Drawing, error)
	// Load returns ErrNotFound for an unknown id.
	Load(ctx context.Context, id string) (*Drawing, error)
	// List returns drawings, most recently updated first.
	List(ctx context.Context) ([]Summary, error)
	// Delete returns ErrNotFound for an unknown id.
	Delete(ctx context.Context, id string) error
}

func (d *Drawing) Summary() Summary {
	return Summary{
		ID:         d.ID,
		ShapeCount: len(d.Shapes),
		Version:    d.Version,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}
