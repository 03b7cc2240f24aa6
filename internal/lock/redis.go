package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// releaseScript deletes the key only if it still holds our token, so a
// holder whose TTL lapsed cannot remove a lock that was re-acquired by
// someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-instance Redis lock built on SET NX PX.
type RedisLocker struct {
	rdb      *redis.Client
	ttl      time.Duration
	attempts int
	backoff  time.Duration
	log      logrus.FieldLogger
}

// RedisOption customizes a RedisLocker.
type RedisOption func(*RedisLocker)

// WithRetry sets how many times Lock tries and how long it waits between
// attempts.
func WithRetry(attempts int, backoff time.Duration) RedisOption {
	return func(l *RedisLocker) {
		if attempts > 0 {
			l.attempts = attempts
		}
		if backoff > 0 {
			l.backoff = backoff
		}
	}
}

// WithLogger sets the logger used to report failed releases.
func WithLogger(log logrus.FieldLogger) RedisOption {
	return func(l *RedisLocker) { l.log = log }
}

// NewRedisLocker returns a locker whose keys expire after ttl.  By default
// it tries 50 times, 100ms apart.
func NewRedisLocker(rdb *redis.Client, ttl time.Duration, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		rdb:      rdb,
		ttl:      ttl,
		attempts: 50,
		backoff:  100 * time.Millisecond,
		log:      logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Lock blocks until key is acquired, ctx is done or the retry budget runs
// out (ErrNotAcquired).
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	for i := 0; i < l.attempts; i++ {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return l.releaser(key, token), nil
		}
		if i == l.attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.backoff):
		}
	}
	return nil, ErrNotAcquired
}

func (l *RedisLocker) releaser(key, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
				l.log.WithError(err).WithField("key", key).Warn("release lock")
			}
		})
	}
}
