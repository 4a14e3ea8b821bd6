// Package sqlite is the default ledger store, backed by a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/user/alttext-service/internal/entity"
	"github.com/user/alttext-service/internal/repository"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// Option customises a LedgerRepoImpl.
type Option func(*LedgerRepoImpl)

// WithClock replaces the time source used for updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(r *LedgerRepoImpl) { r.now = now }
}

// LedgerRepoImpl implements repository.LedgerRepository on SQLite.
type LedgerRepoImpl struct {
	db  *sql.DB
	now func() time.Time
}

var _ repository.LedgerRepository = (*LedgerRepoImpl)(nil)

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(ctx context.Context, path string, opts ...Option) (*LedgerRepoImpl, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite ledger: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite ledger: open %s: %w", path, err)
	}
	// One connection: writes are serialised and ":memory:" stays a single database.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite ledger: %s: %w", p, err)
		}
	}

	repo, err := NewLedgerRepo(ctx, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewLedgerRepo wraps an already opened database and creates the tables if missing.
func NewLedgerRepo(ctx context.Context, db *sql.DB, opts ...Option) (*LedgerRepoImpl, error) {
	r := &LedgerRepoImpl{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("sqlite ledger: create schema: %w", err)
	}
	return r, nil
}

func (r *LedgerRepoImpl) Close() error {
	return r.db.Close()
}

func (r *LedgerRepoImpl) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// UpsertScan writes the whole snapshot in one transaction.
func (r *LedgerRepoImpl) UpsertScan(ctx context.Context, handle string, posts []entity.ScannedPost) error {
	stamp := r.stamp()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin scan upsert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO users (handle, created_at) VALUES (?, ?)`, handle, stamp); err != nil {
		return fmt.Errorf("upsert user %s: %w", handle, err)
	}

	postStmt, err := tx.PrepareContext(ctx, upsertPostQuery)
	if err != nil {
		return fmt.Errorf("prepare post upsert: %w", err)
	}
	defer postStmt.Close()

	imageStmt, err := tx.PrepareContext(ctx, upsertScannedImageQuery)
	if err != nil {
		return fmt.Errorf("prepare image upsert: %w", err)
	}
	defer imageStmt.Close()

	for _, p := range posts {
		if _, err := postStmt.ExecContext(ctx, handle, p.URI, p.CID, p.Text, formatTime(p.CreatedAt)); err != nil {
			return fmt.Errorf("upsert post %s: %w", p.URI, err)
		}
		for _, img := range p.Images {
			_, err := imageStmt.ExecContext(ctx, handle, p.URI, img.Index,
				nullString(img.ThumbURL), nullString(img.FullsizeURL), img.Alt, img.GeneratedAlt, stamp)
			if err != nil {
				return fmt.Errorf("upsert image %s[%d]: %w", p.URI, img.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scan upsert: %w", err)
	}
	return nil
}

func (r *LedgerRepoImpl) RecordEdit(ctx context.Context, handle, postURI string, index int, newAlt string, status entity.ImageStatus) error {
	if !status.Valid() {
		return fmt.Errorf("record edit %s[%d]: unknown status %q", postURI, index, status)
	}
	_, err := r.db.ExecContext(ctx, recordEditQuery, handle, postURI, index, newAlt, newAlt, string(status), r.stamp())
	if err != nil {
		return fmt.Errorf("record edit %s[%d]: %w", postURI, index, err)
	}
	return nil
}

func (r *LedgerRepoImpl) ListImages(ctx context.Context, handle string) ([]entity.TrackedImage, error) {
	rows, err := r.db.QueryContext(ctx, listImagesQuery, handle)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	images := []entity.TrackedImage{}
	for rows.Next() {
		var img entity.TrackedImage
		var thumb, full, current, gen, applied sql.NullString
		var status, updated string
		if err := rows.Scan(&img.Handle, &img.PostURI, &img.ImageIndex, &thumb, &full,
			&current, &gen, &applied, &status, &updated); err != nil {
			return nil, fmt.Errorf("scan image row: %w", err)
		}
		img.ThumbURL = stringPtr(thumb)
		img.FullsizeURL = stringPtr(full)
		img.CurrentAlt = stringPtr(current)
		img.GeneratedAlt = stringPtr(gen)
		img.LastAppliedAlt = stringPtr(applied)
		img.LastStatus = entity.ImageStatus(status)
		if img.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("image %s[%d]: bad updated_at %q: %w", img.PostURI, img.ImageIndex, updated, err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (r *LedgerRepoImpl) stamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
