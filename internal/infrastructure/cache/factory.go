package cache

import (
	"fmt"

	appledger "github.com/propmgr/ledger/internal/application/ledger"
	"github.com/propmgr/ledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// InitLockFactory creates chart initialization locks based on configuration
type InitLockFactory struct {
	redisConfig           config.RedisConfig
	ledgerConfig          config.LedgerConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// InitLockFactoryOption is a functional option for configuring the factory
type InitLockFactoryOption func(*InitLockFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) InitLockFactoryOption {
	return func(f *InitLockFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory lock when Redis is unavailable
// Default is false outside development
func WithInMemoryFallback(allow bool) InitLockFactoryOption {
	return func(f *InitLockFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewInitLockFactory creates a new factory
func NewInitLockFactory(redisCfg config.RedisConfig, ledgerCfg config.LedgerConfig, opts ...InitLockFactoryOption) *InitLockFactory {
	f := &InitLockFactory{
		redisConfig:  redisCfg,
		ledgerConfig: ledgerCfg,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisLock creates a Redis-backed lock
func (f *InitLockFactory) CreateRedisLock() (*RedisInitLock, error) {
	lock, err := NewRedisInitLock(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.ledgerConfig.InitLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis chart init lock: %w", err)
	}
	return lock, nil
}

// CreateInMemoryLock creates a process-local lock
// WARNING: it does not serialize initialization across process instances
func (f *InitLockFactory) CreateInMemoryLock() *InMemoryInitLock {
	return NewInMemoryInitLock(f.ledgerConfig.InitLockTTL)
}

// CreateLock picks the backend named by ledger.init_lock_backend
func (f *InitLockFactory) CreateLock() (appledger.ChartInitLock, error) {
	if f.ledgerConfig.InitLockBackend != config.InitLockRedis {
		f.logger.Info("using in-memory chart init lock")
		return f.CreateInMemoryLock(), nil
	}

	lock, err := f.CreateRedisLock()
	if err == nil {
		f.logger.Info("using Redis chart init lock")
		return lock, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for chart init lock but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory chart init lock. "+
		"Concurrent initialization from several instances is not serialized.",
		zap.Error(err),
	)
	return f.CreateInMemoryLock(), nil
}
