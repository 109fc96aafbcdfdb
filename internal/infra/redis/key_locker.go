package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRetryInterval = 10 * time.Millisecond

// releaseScript deletes the lock only while it still holds our token, so an
// expired holder cannot release a lock that has since been taken by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// KeyLocker serializes work on a question key across service instances.
// Locks are plain keys with a TTL:
//
//	SET trivia:lock:{key} {token} NX PX {ttl}
type KeyLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

func NewKeyLocker(client *redis.Client, ttl time.Duration) *KeyLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &KeyLocker{client: client, ttl: ttl, retry: defaultRetryInterval}
}

// Lock blocks until the key is acquired or ctx is done.
func (l *KeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := l.key(key)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// best-effort; the TTL reclaims the key if this fails
			_ = releaseScript.Run(context.Background(), l.client, []string{lockKey}, token).Err()
		})
	}, nil
}

func (l *KeyLocker) key(key string) string {
	return "trivia:lock:" + key
}
