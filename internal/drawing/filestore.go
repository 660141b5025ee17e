package drawing

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/inamate/sketchpad/internal/document"
)

const (
	shapesExt = ".json"
	metaExt   = ".meta.json"
)

// FileStore keeps each drawing as <id>.json in the plain shape array format,
// next to a small <id>.meta.json holding its version and timestamps. A shape
// file without metadata is treated as version 1, dated by its mtime.
type FileStore struct {
	dir string
	now func() time.Time

	mu sync.Mutex
}

type fileMeta struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create drawing dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

func (s *FileStore) Create(ctx context.Context, id string, shapes []document.Record) (*Drawing, error) {
	if err := checkFileID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.shapesPath(id)); err == nil {
		return nil, ErrExists
	}
	now := s.now().UTC()
	return s.write(id, shapes, fileMeta{Version: 1, CreatedAt: now, UpdatedAt: now})
}

func (s *FileStore) Save(ctx context.Context, id string, shapes []document.Record) (*Drawing, error) {
	if err := checkFileID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	meta, err := s.readMeta(id)
	switch {
	case errors.Is(err, ErrNotFound):
		meta = fileMeta{Version: 1, CreatedAt: now}
	case err != nil:
		return nil, err
	default:
		meta.Version++
	}
	meta.UpdatedAt = now
	return s.write(id, shapes, meta)
}

func (s *FileStore) Load(ctx context.Context, id string) (*Drawing, error) {
	if err := checkFileID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := s.readMeta(id)
	if err != nil {
		return nil, err
	}
	records, err := document.LoadFile(s.shapesPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &Drawing{
		ID:        id,
		Shapes:    records,
		Version:   meta.Version,
		CreatedAt: meta.CreatedAt,
		UpdatedAt: meta.UpdatedAt,
	}, nil
}

func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list drawings: %w", err)
	}

	summaries := []Summary{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, shapesExt) || strings.HasSuffix(name, metaExt) {
			continue
		}
		id := strings.TrimSuffix(name, shapesExt)

		meta, err := s.readMeta(id)
		if err != nil {
			slog.Warn("skipping drawing", "id", id, "error", err)
			continue
		}
		records, err := document.LoadFile(s.shapesPath(id))
		if err != nil {
			slog.Warn("skipping drawing", "id", id, "error", err)
			continue
		}
		summaries = append(summaries, Summary{
			ID:         id,
			ShapeCount: len(records),
			Version:    meta.Version,
			CreatedAt:  meta.CreatedAt,
			UpdatedAt:  meta.UpdatedAt,
		})
	}

	slices.SortFunc(summaries, func(a, b Summary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return summaries, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := checkFileID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.shapesPath(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete drawing: %w", err)
	}
	if err := os.Remove(s.metaPath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete drawing metadata: %w", err)
	}
	return nil
}

func (s *FileStore) write(id string, shapes []document.Record, meta fileMeta) (*Drawing, error) {
	if shapes == nil {
		shapes = []document.Record{}
	}
	if err := document.SaveFile(s.shapesPath(id), shapes); err != nil {
		return nil, err
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(id), data, 0o644); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}
	return &Drawing{
		ID:        id,
		Shapes:    shapes,
		Version:   meta.Version,
		CreatedAt: meta.CreatedAt,
		UpdatedAt: meta.UpdatedAt,
	}, nil
}

// readMeta returns ErrNotFound when the shape file is missing. A missing
// sidecar is synthesized from the shape file's mtime.
func (s *FileStore) readMeta(id string) (fileMeta, error) {
	info, err := os.Stat(s.shapesPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fileMeta{}, ErrNotFound
		}
		return fileMeta{}, fmt.Errorf("stat drawing: %w", err)
	}

	data, err := os.ReadFile(s.metaPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		mtime := info.ModTime().UTC()
		return fileMeta{Version: 1, CreatedAt: mtime, UpdatedAt: mtime}, nil
	}
	if err != nil {
		return fileMeta{}, fmt.Errorf("read metadata: %w", err)
	}

	var meta fileMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return fileMeta{}, fmt.Errorf("parse metadata %s: %w", id, err)
	}
	return meta, nil
}

func (s *FileStore) shapesPath(id string) string { return filepath.Join(s.dir, id+shapesExt) }
func (s *FileStore) metaPath(id string) string   { return filepath.Join(s.dir, id+metaExt) }

// checkFileID keeps ids inside the store directory.
func checkFileID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || !filepath.IsLocal(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
