package repository

import (
	"context"
	"time"
)

// Describer produces a text description of the image at imageURL.
type Describer interface {
	Describe(ctx context.Context, imageURL, prompt string) (string, error)
}

// DescriptionCache stores generated descriptions by key.
type DescriptionCache interface {
	// Get returns the cached description and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, description string, ttl time.Duration) error
	Ping(ctx context.Context) error
}
