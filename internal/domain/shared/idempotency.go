package shared

import (
	"context"
	"strings"
	"time"
)

// IdempotencyStore remembers keys of notifications that were already
// applied. Forward sync keys on the notification id; the event bus keys on
// event id.
type IdempotencyStore interface {
	// MarkProcessed reports true when the key was not seen before
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}

// IdempotencyKey joins key parts with ':'. Empty parts are kept so keys
// stay positional.
func IdempotencyKey(parts ...string) string {
	return strings.Join(parts, ":")
}

// IdempotencyConfig controls event-id deduplication on the bus
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig keeps event ids for an hour. A redelivered
// event older than that is handled again.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{TTL: time.Hour, Enabled: true}
}
