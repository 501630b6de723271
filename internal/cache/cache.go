package cache

import (
	"context"
	"time"
)

type Cache interface {
	// SetNX stores val under key only if the key is absent and reports whether it did.
	SetNX(ctx context.Context, key, val string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}
