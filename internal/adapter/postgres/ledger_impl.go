// Package postgres is the server-grade ledger store.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/alttext-service/internal/entity"
	"github.com/user/alttext-service/internal/repository"
)

// Option customises a LedgerRepoImpl.
type Option func(*LedgerRepoImpl)

// WithClock replaces the time source used for updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(r *LedgerRepoImpl) { r.now = now }
}

// LedgerRepoImpl implements repository.LedgerRepository on PostgreSQL.
type LedgerRepoImpl struct {
	db  *pgxpool.Pool
	now func() time.Time
}

var _ repository.LedgerRepository = (*LedgerRepoImpl)(nil)

// Connect opens a pool for connStr and ensures the schema.
func Connect(ctx context.Context, connStr string, opts ...Option) (*LedgerRepoImpl, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo, err := NewLedgerRepo(ctx, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewLedgerRepo wraps an existing pool and creates the tables if missing.
func NewLedgerRepo(ctx context.Context, db *pgxpool.Pool, opts ...Option) (*LedgerRepoImpl, error) {
	r := &LedgerRepoImpl{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if _, err := db.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return r, nil
}

func (r *LedgerRepoImpl) Close() error {
	r.db.Close()
	return nil
}

func (r *LedgerRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// UpsertScan writes the user, posts and images of one scan within a single transaction.
func (r *LedgerRepoImpl) UpsertScan(ctx context.Context, handle string, posts []entity.ScannedPost) error {
	now := r.now().UTC()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin scan upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO users (handle, created_at) VALUES ($1, $2) ON CONFLICT (handle) DO NOTHING`, handle, now)
	for _, p := range posts {
		batch.Queue(upsertPostQuery, handle, p.URI, p.CID, p.Text, p.CreatedAt)
		for _, img := range p.Images {
			batch.Queue(upsertScannedImageQuery, handle, p.URI, img.Index,
				nullable(img.ThumbURL), nullable(img.FullsizeURL), img.Alt, img.GeneratedAlt, now)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert scan for %s: %w", handle, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit scan upsert: %w", err)
	}
	return nil
}

func (r *LedgerRepoImpl) RecordEdit(ctx context.Context, handle, postURI string, index int, newAlt string, status entity.ImageStatus) error {
	if !status.Valid() {
		return fmt.Errorf("record edit %s[%d]: unknown status %q", postURI, index, status)
	}
	_, err := r.db.Exec(ctx, recordEditQuery, handle, postURI, index, newAlt, string(status), r.now().UTC())
	if err != nil {
		return fmt.Errorf("record edit %s[%d]: %w", postURI, index, err)
	}
	return nil
}

func (r *LedgerRepoImpl) ListImages(ctx context.Context, handle string) ([]entity.TrackedImage, error) {
	rows, err := r.db.Query(ctx, listImagesQuery, handle)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}

	images, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.TrackedImage, error) {
		var img entity.TrackedImage
		var status string
		err := row.Scan(&img.Handle, &img.PostURI, &img.ImageIndex, &img.ThumbURL, &img.FullsizeURL,
			&img.CurrentAlt, &img.GeneratedAlt, &img.LastAppliedAlt, &status, &img.UpdatedAt)
		img.LastStatus = entity.ImageStatus(status)
		return img, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan image rows: %w", err)
	}
	if images == nil {
		images = []entity.TrackedImage{}
	}
	return images, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
