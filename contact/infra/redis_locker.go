package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contact-gateway/contact/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// só apaga a trava se ainda for nossa (o lease pode ter expirado e sido pego por outro).
var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocker é uma trava por cliente compartilhada entre instâncias (SET NX PX).
//
// O lease (ttl) precisa ser maior que o pior caso do pipeline
// (timeout do captcha + timeout do email).
type RedisLocker struct {
	rdb        redis.UniversalClient
	prefix     string
	ttl        time.Duration
	retryEvery time.Duration
}

type RedisLockerOption func(*RedisLocker)

func WithLockPrefix(prefix string) RedisLockerOption {
	return func(l *RedisLocker) { l.prefix = strings.Trim(prefix, ":") }
}

func WithLockTTL(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) { l.ttl = d }
}

func WithLockRetryEvery(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) { l.retryEvery = d }
}

func NewRedisLocker(rdb redis.UniversalClient, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		rdb:        rdb,
		prefix:     "contact",
		ttl:        30 * time.Second,
		retryEvery: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLocker) Lock(ctx context.Context, id domain.ClientID) (func(), error) {
	key := l.prefix + ":lock:" + string(id)
	token := uuid.NewString()

	t := time.NewTicker(l.retryEvery)
	defer t.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("redis lock: %w", err)
		}
		if ok {
			return func() { l.unlock(key, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", domain.ErrLockTimeout, id)
		case <-t.C:
		}
	}
}

func (l *RedisLocker) unlock(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// se falhar, o lease expira sozinho.
	_ = unlockScript.Run(ctx, l.rdb, []string{key}, token).Err()
}
