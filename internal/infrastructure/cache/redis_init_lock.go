package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	appledger "github.com/propmgr/ledger/internal/application/ledger"
	"github.com/redis/go-redis/v9"
)

const defaultInitLockPrefix = "ledger:chart-init:"

// unlockScript deletes the key only while it still carries our token,
// so an expired hold taken over by another instance is left alone
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisInitLock implements ChartInitLock with SET NX PX in Redis
// Suitable for deployments where several instances may initialize the same tenant
type RedisInitLock struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration

	mu     sync.Mutex
	tokens map[uuid.UUID]string
}

// NewRedisInitLock connects to Redis and creates the lock
func NewRedisInitLock(cfg RedisConfig, ttl time.Duration) (*RedisInitLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisInitLockWithClient(client, "", ttl), nil
}

// NewRedisInitLockWithClient creates a lock over an existing client
func NewRedisInitLockWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisInitLock {
	if keyPrefix == "" {
		keyPrefix = defaultInitLockPrefix
	}
	return &RedisInitLock{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		tokens:    make(map[uuid.UUID]string),
	}
}

// TryLock sets the tenant key if absent. The TTL bounds how long a crashed holder blocks others
func (l *RedisInitLock) TryLock(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(tenantID), token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire chart init lock: %w", err)
	}
	if !ok {
		return false, nil
	}

	l.mu.Lock()
	l.tokens[tenantID] = token
	l.mu.Unlock()
	return true, nil
}

// Unlock releases a hold taken by this instance
func (l *RedisInitLock) Unlock(ctx context.Context, tenantID uuid.UUID) error {
	l.mu.Lock()
	token, ok := l.tokens[tenantID]
	delete(l.tokens, tenantID)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	if err := unlockScript.Run(ctx, l.client, []string{l.key(tenantID)}, token).Err(); err != nil {
		return fmt.Errorf("failed to release chart init lock: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (l *RedisInitLock) Close() error {
	return l.client.Close()
}

func (l *RedisInitLock) key(tenantID uuid.UUID) string {
	return l.keyPrefix + tenantID.String()
}

var _ appledger.ChartInitLock = (*RedisInitLock)(nil)
