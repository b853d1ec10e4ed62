package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

var errLockLost = errors.New("lock is held by another owner")

// RedisLocker serializes runs across processes with SET NX and a TTL. While a
// lock is held it is renewed every third of the TTL, so the TTL only bounds
// how long a crashed holder can block a key.
type RedisLocker struct {
	client        *redis.Client
	ttl           time.Duration
	pollInterval  time.Duration
	renewInterval time.Duration
	log           *zap.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLocker{
		client:        client,
		ttl:           ttl,
		pollInterval:  250 * time.Millisecond,
		renewInterval: ttl / 3,
		log:           log,
	}
}

func lockKey(key string) string {
	return "lock:outreach:" + key
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	rkey := lockKey(key)
	owner := uuid.NewString()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, rkey, owner, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", rkey, err)
		}
		if ok {
			return l.hold(rkey, owner), nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// hold keeps the lock alive until the returned release func is called.
func (l *RedisLocker) hold(key, owner string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(l.renewInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := l.extend(key, owner); err != nil {
					l.log.Warn("failed to extend lock", zap.String("key", key), zap.Error(err))
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			l.release(key, owner)
		})
	}
}

func (l *RedisLocker) extend(key, owner string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := extendScript.Run(ctx, l.client, []string{key}, owner, l.ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return errLockLost
	}
	return nil
}

// release runs on its own context so a cancelled run still frees the key.
func (l *RedisLocker) release(key, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{key}, owner).Err(); err != nil {
		l.log.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
	}
}

var _ Locker = (*RedisLocker)(nil)
