package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock stays held by someone else for the
// whole wait period.
var ErrNotAcquired = errors.New("lock not acquired")

// Unlock releases a held lock.
type Unlock func(ctx context.Context) error

type Config struct {
	// TTL bounds how long a crashed holder can block others.
	TTL        time.Duration
	Wait       time.Duration
	RetryEvery time.Duration
	Prefix     string
}

// RedisLocker hands out short advisory locks with SET NX PX. Each holder gets
// a random token so only it can release the key.
type RedisLocker struct {
	rdb redis.Cmdable
	cfg Config
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisLocker(rdb redis.Cmdable, cfg Config) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Wait < 0 {
		cfg.Wait = 0
	}
	if cfg.RetryEvery <= 0 {
		cfg.RetryEvery = 50 * time.Millisecond
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "lock"
	}
	return &RedisLocker{rdb: rdb, cfg: cfg}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Unlock, error) {
	fullKey := l.cfg.Prefix + ":" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.Wait)

	for {
		ok, err := l.rdb.SetNX(ctx, fullKey, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func(ctx context.Context) error {
				return releaseScript.Run(ctx, l.rdb, []string{fullKey}, token).Err()
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.cfg.RetryEvery):
		}
	}
}
