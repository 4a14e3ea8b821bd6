package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/alttext-service/internal/repository"
)

const descriptionKeyPrefix = "alttext:description:"

// DescriptionCacheImpl keeps generated descriptions in Redis string keys with a TTL.
type DescriptionCacheImpl struct {
	client *redis.Client
}

var _ repository.DescriptionCache = (*DescriptionCacheImpl)(nil)

// NewDescriptionCache creates a new instance of DescriptionCacheImpl.
func NewDescriptionCache(client *redis.Client) *DescriptionCacheImpl {
	return &DescriptionCacheImpl{client: client}
}

// Get returns the description stored under key. A missing key is not an error.
func (r *DescriptionCacheImpl) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, descriptionKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Put stores description under key. A zero ttl keeps it forever.
func (r *DescriptionCacheImpl) Put(ctx context.Context, key, description string, ttl time.Duration) error {
	return r.client.Set(ctx, descriptionKeyPrefix+key, description, ttl).Err()
}

func (r *DescriptionCacheImpl) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
