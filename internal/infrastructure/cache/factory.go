package cache

import (
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"go.uber.org/zap"
)

// CursorStoreFactory selects the cursor store for the configured backend.
type CursorStoreFactory struct {
	backend  string
	redis    config.RedisConfig
	database fulfillment.CursorStore
	logger   *zap.Logger
}

// NewCursorStoreFactory creates a new factory. database is the store used
// for the "database" backend and as the fallback when Redis is unreachable.
func NewCursorStoreFactory(cfg config.CursorConfig, redisCfg config.RedisConfig, database fulfillment.CursorStore, logger *zap.Logger) *CursorStoreFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CursorStoreFactory{
		backend:  cfg.Backend,
		redis:    redisCfg,
		database: database,
		logger:   logger,
	}
}

// CreateStore returns the configured store. The returned closer releases
// the Redis connection and is a no-op for the database store.
func (f *CursorStoreFactory) CreateStore() (fulfillment.CursorStore, func() error) {
	noop := func() error { return nil }
	if f.backend != "redis" {
		f.logger.Info("Using database cursor store")
		return f.database, noop
	}

	store, err := NewRedisCursorStore(RedisConfig{
		Host:     f.redis.Host,
		Port:     f.redis.Port,
		Password: f.redis.Password,
		DB:       f.redis.DB,
	})
	if err != nil {
		f.logger.Warn("Redis unavailable, falling back to database cursor store",
			zap.String("addr", f.redis.Addr()),
			zap.Error(err),
		)
		return f.database, noop
	}

	f.logger.Info("Using Redis cursor store", zap.String("addr", f.redis.Addr()))
	return store, store.Close
}
