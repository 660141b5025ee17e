package drawing

import (
	"context"
	"fmt"

	"github.com/inamate/sketchpad/internal/document"
	"github.com/inamate/sketchpad/internal/typeid"
)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create stores a new drawing under a fresh id. shapes may be empty.
func (s *Service) Create(ctx context.Context, shapes []document.Record) (*Drawing, error) {
	normalized, err := normalize(shapes)
	if err != nil {
		return nil, err
	}
	return s.store.Create(ctx, typeid.NewDrawingID(), normalized)
}

func (s *Service) Get(ctx context.Context, id string) (*Drawing, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.store.Load(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Summary, error) {
	return s.store.List(ctx)
}

// Save replaces the shapes of a drawing, creating it if the id is new. An
// empty shape list is refused with ErrEmptyDrawing.
func (s *Service) Save(ctx context.Context, id string, shapes []document.Record) (*Drawing, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	normalized, err := normalize(shapes)
	if err != nil {
		return nil, err
	}
	if len(normalized) == 0 {
		return nil, ErrEmptyDrawing
	}
	return s.store.Save(ctx, id, normalized)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// normalize runs records through the codec: unknown types are dropped and
// a record missing a field rejects the whole list.
func normalize(records []document.Record) ([]document.Record, error) {
	shapes, err := document.Decode(records)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShapes, err)
	}
	return document.Encode(shapes), nil
}

func validateID(id string) error {
	if err := typeid.Validate(id, typeid.PrefixDrawing); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	return nil
}
