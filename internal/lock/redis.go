package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the key only if it still carries our token, so a
// lease that outlived its TTL cannot drop somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard is a SET NX PX lock on one key.
type RedisGuard struct {
	client RedisClient
	key    string
	ttl    time.Duration
}

// RedisClient is the subset of *redis.Client the guard needs.
type RedisClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

func NewRedisGuard(client RedisClient, key string, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, key: key, ttl: ttl}
}

func (g *RedisGuard) TryAcquire(ctx context.Context) (Release, bool, error) {
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, g.key, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire %s: %w", g.key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		deleted, err := releaseScript.Run(ctx, g.client, []string{g.key}, token).Int64()
		if err != nil {
			return fmt.Errorf("release %s: %w", g.key, err)
		}
		if deleted == 0 {
			return fmt.Errorf("release %s: %w", g.key, ErrNotHeld)
		}
		return nil
	}
	return release, true, nil
}
