package cache

import (
	"context"
	"time"
)

// Cache is the read-cache contract. Implementations are swappable (Redis in
// production, miniredis in tests).
type Cache interface {
	// Get unmarshals the cached value into dest. found=false means a miss;
	// dest is left untouched.
	Get(ctx context.Context, key string, dest interface{}) (found bool, err error)

	// Set stores value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	Ping(ctx context.Context) error
}
