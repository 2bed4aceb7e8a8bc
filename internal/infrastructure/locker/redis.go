// Package locker provides the cross-process lock that serialises order
// creation per idempotency key.
package locker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/config"
)

const defaultTTL = 30 * time.Second

// redisStore is the subset of redis.Cmdable the lock relies on.
type redisStore interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lock retaken by another owner is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client redisStore
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

var _ application.Locker = (*RedisLocker)(nil)

func NewRedisLocker(client redisStore, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLocker{client: client, prefix: "ledger:lock:", ttl: ttl, logger: logger}
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Acquire takes the lock with SETNX and a random owner token. The returned
// release only deletes the key while the token still matches.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(context.Context), bool, error) {
	fullKey := l.prefix + key
	owner := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, owner, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("setnx %s: %w", fullKey, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) {
		if err := l.release(ctx, fullKey, owner); err != nil {
			l.logger.Warn("failed to release lock", "key", fullKey, "error", err)
		}
	}
	return release, true, nil
}

func (l *RedisLocker) release(ctx context.Context, key, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{key}, owner).Err(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Noop always grants the lock. Used when Redis is not configured; the
// store's unique indexes still reject duplicates.
type Noop struct{}

func (Noop) Acquire(context.Context, string) (func(context.Context), bool, error) {
	return func(context.Context) {}, true, nil
}
