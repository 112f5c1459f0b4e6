package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/progress-engine/internal/lib/keymutex"
)

const lockPrefix = "lock:"

// удаляем ключ, только если он всё ещё наш
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker блокировка по ключу между репликами. Внутри процесса ключ
// сначала захватывается локальным мьютексом, затем в redis через SET NX.
type Locker struct {
	client *redis.Client
	local  *keymutex.KeyMutex
	ttl    time.Duration
	retry  time.Duration
}

// NewLocker создаёт Locker. ttl ограничивает время жизни ключа, если процесс упал.
func NewLocker(c *Cache, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{
		client: c.Db,
		local:  keymutex.New(),
		ttl:    ttl,
		retry:  50 * time.Millisecond,
	}
}

// Lock ждёт освобождения ключа или отмены ctx.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	const op = "cache.Locker.Lock"

	unlockLocal, err := l.local.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisKey := lockPrefix + key
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			unlockLocal()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(l.retry):
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
		unlockLocal()
	}, nil
}
