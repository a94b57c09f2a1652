package cache

import (
	"context"
	"fmt"

	"github.com/casa/wms/internal/domain/shared"
	"github.com/casa/wms/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Backends accepted in wms.idempotency_backend
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// IdempotencyStoreFactory picks the dedup store for the configured backend
type IdempotencyStoreFactory struct {
	redis    config.RedisConfig
	logger   *zap.Logger
	fallback bool
}

// IdempotencyStoreFactoryOption configures the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) { f.logger = logger }
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// the process-local store. On by default.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) { f.fallback = allow }
}

func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{redis: cfg, logger: zap.NewNop(), fallback: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the store for backend. "none" yields a nil store,
// which turns duplicate suppression off.
func (f *IdempotencyStoreFactory) CreateStore(ctx context.Context, backend string) (shared.IdempotencyStore, error) {
	switch backend {
	case BackendNone:
		f.logger.Info("duplicate suppression disabled")
		return nil, nil
	case BackendMemory, "":
		f.logger.Info("idempotency store", zap.String("backend", BackendMemory))
		return NewInMemoryIdempotencyStore(), nil
	case BackendRedis:
		return f.redisStore(ctx)
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", backend)
	}
}

func (f *IdempotencyStoreFactory) redisStore(ctx context.Context) (shared.IdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(ctx, f.redis)
	if err == nil {
		f.logger.Info("idempotency store", zap.String("backend", BackendRedis), zap.String("addr", f.redis.Addr()))
		return store, nil
	}
	if !f.fallback {
		return nil, fmt.Errorf("Redis required for idempotency but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, deduplicating in process only", zap.Error(err))
	return NewInMemoryIdempotencyStore(), nil
}
