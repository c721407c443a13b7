package backing

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store over go-cache, used by tests and local
// runs without Redis. go-cache honours per-item TTLs, so expiry semantics
// match the Redis backend.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates a store that purges expired items every minute.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: cache.New(cache.NoExpiration, time.Minute)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := s.cache.Get(key); ok {
		return v.([]byte), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) MultiGet(_ context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if v, ok := s.cache.Get(key); ok {
			out[key] = v.([]byte)
		}
	}
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		s.cache.Set(key, data, cache.NoExpiration)
		return nil
	}
	s.cache.Set(key, data, ttl)
	return nil
}
