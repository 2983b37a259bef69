package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/paydesk/internal/logging"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var releaseLua = redis.NewScript(releaseScript)

// RedisConfig tunes the distributed lock.
type RedisConfig struct {
	// Prefix is prepended to every key.
	Prefix string
	// TTL bounds how long a crashed holder can keep the lock.
	TTL time.Duration
	// Wait is the longest Lock will poll before ErrLockTimeout.
	Wait time.Duration
	// Retry is the polling interval.
	Retry time.Duration
}

// RedisLocker is a Locker shared between server instances. A lock is a
// key set with NX and a random token; release deletes it only if the
// token still matches.
type RedisLocker struct {
	rdb *redis.Client
	cfg RedisConfig
	log logging.Logger
}

// NewRedisLocker returns a RedisLocker with defaults for zero config fields.
func NewRedisLocker(rdb *redis.Client, cfg RedisConfig, log logging.Logger) *RedisLocker {
	if cfg.Prefix == "" {
		cfg.Prefix = "paydesk:lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 5 * time.Second
	}
	if cfg.Retry <= 0 {
		cfg.Retry = 25 * time.Millisecond
	}
	if log == nil {
		log = logging.Nop{}
	}
	return &RedisLocker{rdb: rdb, cfg: cfg, log: log}
}

// Lock implements Locker.
func (r *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	full := r.cfg.Prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(r.cfg.Wait)

	for {
		ok, err := r.rdb.SetNX(ctx, full, token, r.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		t := time.NewTimer(r.cfg.Retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's ctx may already be cancelled; release regardless.
			if err := releaseLua.Run(context.Background(), r.rdb, []string{full}, token).Err(); err != nil {
				r.log.Warn(ctx, "redis lock release failed", "key", key, "error", err)
			}
		})
	}, nil
}
