package cache

import (
	"context"
	"time"
)

// Cache stores JSON values. A miss is (false, nil); errors mean the backend
// itself could not be reached.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
