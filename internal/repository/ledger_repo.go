package repository

import (
	"context"

	"github.com/user/alttext-service/internal/entity"
)

// LedgerRepository is the durable record of observed and applied alt-text per image.
type LedgerRepository interface {
	// UpsertScan stores a scan snapshot for handle in a single transaction.
	// Every image written is reset to the "scanned" status.
	UpsertScan(ctx context.Context, handle string, posts []entity.ScannedPost) error
	// RecordEdit stores an attempted edit, inserting the image row if it does not exist yet.
	RecordEdit(ctx context.Context, handle, postURI string, index int, newAlt string, status entity.ImageStatus) error
	// ListImages returns the tracked images of handle ordered by post URI and index.
	ListImages(ctx context.Context, handle string) ([]entity.TrackedImage, error)
	// Ping checks that the underlying store is reachable.
	Ping(ctx context.Context) error
}
