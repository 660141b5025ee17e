package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/inamate/sketchpad/internal/typeid"
)

var (
	ErrNotArray     = errors.New("drawing is not a JSON array")
	ErrMissingField = errors.New("missing required field")
	ErrBadRecord    = errors.New("malformed shape record")
)

// Record is one element of the persisted shape array. Which fields are
// present depends on Type:
//
//	{"type":"line","x1":0,"y1":0,"x2":5,"y2":5}
//	{"type":"rectangle","x":0,"y":0,"width":10,"height":10}
//	{"type":"circle","x":0,"y":0,"width":10,"height":10}
type Record struct {
	Type string `json:"type"`

	X1 *float64 `json:"x1,omitempty"`
	Y1 *float64 `json:"y1,omitempty"`
	X2 *float64 `json:"x2,omitempty"`
	Y2 *float64 `json:"y2,omitempty"`

	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

// LineRecord builds the wire form of a line.
func LineRecord(x1, y1, x2, y2 float64) Record {
	return Record{Type: string(KindLine), X1: &x1, Y1: &y1, X2: &x2, Y2: &y2}
}

// BoxRecord builds the wire form of a rectangle or circle.
func BoxRecord(k Kind, x, y, width, height float64) Record {
	return Record{Type: string(k), X: &x, Y: &y, Width: &width, Height: &height}
}

// Encode converts shapes to records in the given order. The position offset
// is folded into the coordinates so the file holds scene positions.
func Encode(shapes []*Shape) []Record {
	records := make([]Record, 0, len(shapes))
	for _, s := range shapes {
		switch s.Kind {
		case KindLine:
			p1 := s.Line.P1.Add(s.Pos)
			p2 := s.Line.P2.Add(s.Pos)
			records = append(records, LineRecord(p1.X, p1.Y, p2.X, p2.Y))
		case KindRectangle, KindCircle:
			b := s.SceneBounds()
			records = append(records, BoxRecord(s.Kind, b.X, b.Y, b.Width, b.Height))
		}
	}
	return records
}

// Decode converts records to shapes with fresh ids. Records with an unknown
// type are dropped; a known type with a missing field fails the whole decode.
// Boxes with a negative width or height are normalized.
func Decode(records []Record) ([]*Shape, error) {
	shapes := make([]*Shape, 0, len(records))
	for i, rec := range records {
		if rec.Type == "" {
			return nil, fmt.Errorf("shape %d: type: %w", i, ErrMissingField)
		}

		kind := Kind(rec.Type)
		if !kind.Valid() {
			slog.Debug("skipping unknown shape type", "index", i, "type", rec.Type)
			continue
		}

		var (
			s   *Shape
			err error
		)
		switch kind {
		case KindLine:
			if err := rec.require(field{"x1", rec.X1}, field{"y1", rec.Y1}, field{"x2", rec.X2}, field{"y2", rec.Y2}); err != nil {
				return nil, fmt.Errorf("shape %d: %w", i, err)
			}
			s, err = NewLine(typeid.NewShapeID(), Pt(*rec.X1, *rec.Y1), Pt(*rec.X2, *rec.Y2))
		case KindRectangle, KindCircle:
			if err := rec.require(field{"x", rec.X}, field{"y", rec.Y}, field{"width", rec.Width}, field{"height", rec.Height}); err != nil {
				return nil, fmt.Errorf("shape %d: %w", i, err)
			}
			box := Rect{X: *rec.X, Y: *rec.Y, Width: *rec.Width, Height: *rec.Height}
			s, err = newBoxShape(typeid.NewShapeID(), kind, box)
			if err == nil {
				s.Box = box.Normalized()
			}
		}
		if err != nil {
			return nil, fmt.Errorf("shape %d: %w", i, err)
		}
		shapes = append(shapes, s)
	}
	return shapes, nil
}

type field struct {
	name  string
	value *float64
}

func (r Record) require(fields ...field) error {
	for _, f := range fields {
		if f.value == nil {
			return fmt.Errorf("%s %q: %w", r.Type, f.name, ErrMissingField)
		}
	}
	return nil
}

// Marshal encodes records as an indented JSON array.
func Marshal(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.MarshalIndent(records, "", "    ")
}

// Unmarshal parses a JSON array of records. Anything other than an array is
// rejected with ErrNotArray; an array holding a malformed element fails
// with ErrBadRecord.
func Unmarshal(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrNotArray
	}
	var records []Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRecord, err)
	}
	return records, nil
}

// SaveFile writes records to path, creating or truncating it.
func SaveFile(path string, records []Record) error {
	data, err := Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal drawing: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write drawing: %w", err)
	}
	return nil
}

// LoadFile reads the record array stored at path.
func LoadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drawing: %w", err)
	}
	records, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parse drawing %s: %w", path, err)
	}
	return records, nil
}
