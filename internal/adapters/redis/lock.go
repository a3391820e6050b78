package redisad

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock is a SET NX lock shared by every process writing the store.
type RunLock struct {
	c     *redis.Client
	key   string
	token string
}

func NewRunLock(c *redis.Client, key string) *RunLock {
	return &RunLock{c: c, key: key, token: uuid.NewString()}
}

func (l *RunLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	return l.c.SetNX(ctx, l.key, l.token, ttl).Result()
}

func (l *RunLock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.c, []string{l.key}, l.token).Err()
}
