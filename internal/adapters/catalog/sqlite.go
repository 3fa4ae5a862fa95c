// Package catalog implements the image catalog on sqlite.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"imagio/internal/core/domain"
	"imagio/internal/core/port"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	mime TEXT NOT NULL,
	category TEXT NOT NULL,
	uuid TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	create_time DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_images_uuid ON images (uuid);
CREATE INDEX IF NOT EXISTS idx_images_category ON images (category);
`

var _ port.Catalog = (*SQLite)(nil)

// SQLite is the catalog backed by a sqlite database file.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to catalog database: %w", err)
	}

	return &SQLite{db: db}, nil
}

// InitSchema creates the images table and its indexes. With force set, any
// existing table is dropped first.
func (c *SQLite) InitSchema(ctx context.Context, force bool) error {
	if force {
		if _, err := c.db.ExecContext(ctx, `DROP TABLE IF EXISTS images`); err != nil {
			return fmt.Errorf("dropping images table: %w", err)
		}
	}

	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating catalog schema: %w", err)
	}

	log.Info().Msg("catalog schema ready")
	return nil
}

const resolveQuery = `
SELECT id, mime, category, uuid, fingerprint, create_time
FROM images WHERE uuid = ?
`

func (c *SQLite) Resolve(ctx context.Context, ref uuid.UUID) (*domain.ImageRecord, error) {
	row := c.db.QueryRowContext(ctx, resolveQuery, ref.String())

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownImage, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving image %s: %w", ref, err)
	}

	return record, nil
}

const registerQuery = `
INSERT INTO images (mime, category, uuid, fingerprint, create_time)
VALUES (?, ?, ?, ?, ?)
`

// Register assigns the ref and creation time and inserts the row. A single
// INSERT is atomic in sqlite, so a half-written record can never become
// visible.
func (c *SQLite) Register(ctx context.Context, mime, category, fingerprint string) (*domain.ImageRecord, error) {
	ref, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generating image ref: %w", err)
	}

	return c.insert(ctx, ref, mime, category, fingerprint)
}

// Restore inserts a row under the given ref. The unique index on uuid rejects
// a ref that is already registered.
func (c *SQLite) Restore(ctx context.Context, ref uuid.UUID, mime, category, fingerprint string) (*domain.ImageRecord, error) {
	return c.insert(ctx, ref, mime, category, fingerprint)
}

func (c *SQLite) insert(ctx context.Context, ref uuid.UUID, mime, category, fingerprint string) (*domain.ImageRecord, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	result, err := c.db.ExecContext(ctx, registerQuery,
		mime, category, ref.String(), fingerprint, now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("inserting image record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading inserted image id: %w", err)
	}

	log.Debug().Int64("id", id).Stringer("ref", ref).Str("category", category).Msg("image registered")

	return &domain.ImageRecord{
		ID:          id,
		MIME:        mime,
		Category:    category,
		Ref:         ref,
		Fingerprint: fingerprint,
		CreatedAt:   now,
	}, nil
}

const listQuery = `
SELECT id, mime, category, uuid, fingerprint, create_time
FROM images WHERE category = ?
ORDER BY id DESC LIMIT ? OFFSET ?
`

func (c *SQLite) List(ctx context.Context, category string, limit, offset int) ([]domain.ImageRecord, error) {
	rows, err := c.db.QueryContext(ctx, listQuery, category, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing images in %s: %w", category, err)
	}
	defer rows.Close()

	var records []domain.ImageRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning image record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing images in %s: %w", category, err)
	}

	return records, nil
}

func (c *SQLite) Delete(ctx context.Context, ref uuid.UUID) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM images WHERE uuid = ?`, ref.String())
	if err != nil {
		return fmt.Errorf("deleting image %s: %w", ref, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting image %s: %w", ref, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrUnknownImage, ref)
	}

	return nil
}

func (c *SQLite) Close() error {
	return c.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.ImageRecord, error) {
	var (
		record  domain.ImageRecord
		rawRef  string
		rawTime string
	)

	if err := row.Scan(&record.ID, &record.MIME, &record.Category, &rawRef,
		&record.Fingerprint, &rawTime); err != nil {
		return nil, err
	}

	ref, err := uuid.FromString(rawRef)
	if err != nil {
		return nil, fmt.Errorf("malformed ref %q: %w", rawRef, err)
	}
	record.Ref = ref

	createdAt, err := time.Parse(time.RFC3339Nano, rawTime)
	if err != nil {
		return nil, fmt.Errorf("malformed create_time %q: %w", rawTime, err)
	}
	record.CreatedAt = createdAt

	return &record, nil
}
