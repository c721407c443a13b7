// Package backing provides the pluggable keyed-store contract the feature
// store persists through. Values are opaque serialized bytes; every write
// carries a TTL and entries disappear on their own when it lapses.
package backing

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or has expired.
var ErrNotFound = errors.New("key not found")

// Store is the minimal contract over the external keyed store: get,
// multi-get, set-with-expiry. There is no delete; expiry is the only
// removal path.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the bytes stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// MultiGet returns the subset of keys that exist. Missing keys are
	// simply absent from the result map.
	MultiGet(ctx context.Context, keys []string) (map[string][]byte, error)

	// Set stores data at key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}
