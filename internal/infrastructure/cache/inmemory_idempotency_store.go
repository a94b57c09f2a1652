package cache

import (
	"context"
	"sync"
	"time"

	"github.com/casa/wms/internal/domain/shared"
	gocache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often expired keys are purged
const DefaultCleanupInterval = 5 * time.Minute

// InMemoryIdempotencyStore implements IdempotencyStore on a process-local cache.
// This is suitable for single-instance deployments and testing
type InMemoryIdempotencyStore struct {
	cache     *gocache.Cache
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a new in-memory idempotency store.
// Expired keys are purged by the cache janitor.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{
		cache: gocache.New(gocache.NoExpiration, DefaultCleanupInterval),
	}
}

// MarkProcessed marks a key as processed with a TTL
// Returns true if the key was newly marked, false if it was already processed
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if err := s.cache.Add(key, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

// IsProcessed checks if a key has already been processed
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	_, found := s.cache.Get(key)
	return found, nil
}

// Close drops every remembered key. Safe to call multiple times
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(s.cache.Flush)
	return nil
}

// cleanup removes expired keys immediately
func (s *InMemoryIdempotencyStore) cleanup() {
	s.cache.DeleteExpired()
}

// Size returns the number of keys held, expired or not (for testing/monitoring)
func (s *InMemoryIdempotencyStore) Size() int {
	return s.cache.ItemCount()
}

// Ensure InMemoryIdempotencyStore implements IdempotencyStore
var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
