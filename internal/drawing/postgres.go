package drawing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inamate/sketchpad/internal/document"
)

// PostgresStore keeps drawings in the drawings table created by db.Migrate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const drawingColumns = `id, shapes, version, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, id string, shapes []document.Record) (*Drawing, error) {
	data, err := document.Marshal(shapes)
	if err != nil {
		return nil, fmt.Errorf("marshal shapes: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO drawings (id, shapes)
		VALUES ($1, $2)
		RETURNING `+drawingColumns, id, data)
	d, err := scanDrawing(row)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrExists
		}
		return nil, fmt.Errorf("create drawing: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) Save(ctx context.Context, id string, shapes []document.Record) (*Drawing, error) {
	data, err := document.Marshal(shapes)
	if err != nil {
		return nil, fmt.Errorf("marshal shapes: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO drawings (id, shapes)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET shapes = EXCLUDED.shapes,
		    version = drawings.version + 1,
		    updated_at = now()
		RETURNING `+drawingColumns, id, data)
	d, err := scanDrawing(row)
	if err != nil {
		return nil, fmt.Errorf("save drawing: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (*Drawing, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+drawingColumns+` FROM drawings WHERE id = $1`, id)
	d, err := scanDrawing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load drawing: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, jsonb_array_length(shapes), version, created_at, updated_at
		FROM drawings
		ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list drawings: %w", err)
	}
	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Summary, error) {
		var sum Summary
		err := row.Scan(&sum.ID, &sum.ShapeCount, &sum.Version, &sum.CreatedAt, &sum.UpdatedAt)
		return sum, err
	})
	if err != nil {
		return nil, fmt.Errorf("list drawings: %w", err)
	}
	return summaries, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM drawings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete drawing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDrawing(row pgx.Row) (*Drawing, error) {
	var (
		d    Drawing
		data []byte
	)
	if err := row.Scan(&d.ID, &data, &d.Version, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	records, err := document.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode shapes of %s: %w", d.ID, err)
	}
	d.Shapes = records
	return &d, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
