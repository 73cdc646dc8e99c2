package cache

import (
	"context"
	"fmt"

	"github.com/infinity-9427/invoicing/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StoreFactory creates cache stores based on configuration
type StoreFactory struct {
	cacheConfig           config.CacheConfig
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory store. Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cacheCfg config.CacheConfig, redisCfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		cacheConfig:           cacheCfg,
		redisConfig:           redisCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the configured store. The redis driver falls back to
// memory when the server is unreachable and fallback is allowed.
func (f *StoreFactory) CreateStore(ctx context.Context) (Store, error) {
	switch f.cacheConfig.Driver {
	case "", "memory":
		f.logger.Info("using in-memory invoice cache")
		return NewMemoryStore(), nil
	case "redis":
	default:
		return nil, fmt.Errorf("unknown cache driver %q", f.cacheConfig.Driver)
	}

	store, err := NewRedisStore(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis invoice cache", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for cache but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory invoice cache", zap.Error(err))
	return NewMemoryStore(), nil
}
