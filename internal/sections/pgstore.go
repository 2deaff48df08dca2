package sections

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS section_templates (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	doc_type   TEXT NOT NULL,
	path       TEXT NOT NULL,
	mime_type  TEXT NOT NULL,
	pages      INTEGER NOT NULL DEFAULT 0,
	visible    BOOLEAN NOT NULL DEFAULT TRUE,
	is_default BOOLEAN NOT NULL DEFAULT FALSE,
	ord        INTEGER NOT NULL DEFAULT 0,
	fields     JSONB NOT NULL DEFAULT '[]',
	uploaded   TIMESTAMPTZ
)`

const pgColumns = `id, name, doc_type, path, mime_type, pages, visible, is_default, ord, fields, uploaded`

// PostgresStore keeps the catalog in the section_templates table
type PostgresStore struct {
	Pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgresStore connects with dsn, pings and creates the table if needed
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}
	config.MaxConns = 4
	config.MaxConnLifetime = 3 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect pgx Pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create catalog table: %w", err)
	}
	log.Print("[INFO] postgres catalog initialized")
	return &PostgresStore{Pool: pool}, nil
}

func scanTemplate(row pgx.Row) (Template, error) {
	var (
		t        Template
		rawField []byte
		uploaded *time.Time
	)
	err := row.Scan(&t.ID, &t.Name, &t.DocType, &t.Path, &t.MimeType, &t.Pages,
		&t.Visible, &t.Default, &t.Order, &rawField, &uploaded)
	if err != nil {
		return Template{}, err
	}
	if len(rawField) > 0 {
		if err := json.Unmarshal(rawField, &t.Fields); err != nil {
			return Template{}, fmt.Errorf("corrupt fields for %s: %w", t.ID, err)
		}
	}
	if uploaded != nil {
		t.Uploaded = uploaded.UTC()
	}
	return t, nil
}

// List implements Store
func (s *PostgresStore) List(ctx context.Context, docType string) ([]Template, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+pgColumns+` FROM section_templates
		 WHERE $1 = '' OR doc_type = $1
		 ORDER BY doc_type, ord, id`, docType)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	defer rows.Close()

	out := []Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	return out, nil
}

// Get implements Store
func (s *PostgresStore) Get(ctx context.Context, id string) (Template, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM section_templates WHERE id = $1`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, notFound(id)
	}
	if err != nil {
		return Template{}, fmt.Errorf("failed to load catalog entry %s: %w", id, err)
	}
	return t, nil
}

// Put implements Store
func (s *PostgresStore) Put(ctx context.Context, t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	fieldsJSON, err := json.Marshal(t.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}
	if t.Fields == nil {
		fieldsJSON = []byte("[]")
	}
	var uploaded *time.Time
	if !t.Uploaded.IsZero() {
		uploaded = &t.Uploaded
	}

	_, err = s.Pool.Exec(ctx,
		`INSERT INTO section_templates (`+pgColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, doc_type = EXCLUDED.doc_type, path = EXCLUDED.path,
			mime_type = EXCLUDED.mime_type, pages = EXCLUDED.pages, visible = EXCLUDED.visible,
			is_default = EXCLUDED.is_default, ord = EXCLUDED.ord, fields = EXCLUDED.fields,
			uploaded = EXCLUDED.uploaded`,
		t.ID, t.Name, t.DocType, t.Path, t.MimeType, t.Pages, t.Visible, t.Default, t.Order,
		fieldsJSON, uploaded)
	if err != nil {
		return fmt.Errorf("failed to store catalog entry %s: %w", t.ID, err)
	}
	return nil
}

// Delete implements Store
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM section_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete catalog entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

// Close implements Store
func (s *PostgresStore) Close() error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	return nil
}
