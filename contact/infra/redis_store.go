package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"contact-gateway/contact/domain"

	"github.com/redis/go-redis/v9"
)

// Janela fixa em um hash {start, count} por cliente. O relógio vem do chamador
// (ARGV[1], em ms) para que todas as instâncias usem a mesma regra de expiração.
// A chave expira junto com a janela; depois disso é igual a um cliente novo.
var (
	freshScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local vals = redis.call('HMGET', KEYS[1], 'start', 'count')
local start = tonumber(vals[1])
local count = tonumber(vals[2])
if (not start) or (now - start > window) then
  start = now
  count = 0
  redis.call('HSET', KEYS[1], 'start', start, 'count', 0)
end
redis.call('PEXPIRE', KEYS[1], start + window - now + 1)
return count
`)

	incrScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
if redis.call('EXISTS', KEYS[1]) == 0 then
  redis.call('HSET', KEYS[1], 'start', now, 'count', 0)
  redis.call('PEXPIRE', KEYS[1], window + 1)
  return 0
end
return redis.call('HINCRBY', KEYS[1], 'count', 1)
`)
)

// RedisStore é a janela fixa compartilhada entre instâncias.
//
// Cada operação é um script Lua (atômico no Redis). A atomicidade de
// IsLimited ... Increment entre instâncias vem do RedisLocker.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
	now    Clock
}

type RedisStoreOption func(*RedisStore)

func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithRedisClock(now Clock) RedisStoreOption {
	return func(s *RedisStore) { s.now = now }
}

func NewRedisStore(rdb redis.UniversalClient, limit int, window time.Duration, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "contact",
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Limit() int { return s.limit }

func (s *RedisStore) key(id domain.ClientID) string {
	return s.prefix + ":rate:" + string(id)
}

func (s *RedisStore) fresh(ctx context.Context, id domain.ClientID) (int, error) {
	n, err := freshScript.Run(ctx, s.rdb, []string{s.key(id)}, s.now().UnixMilli(), s.window.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("redis rate check: %w", err)
	}
	return n, nil
}

func (s *RedisStore) IsLimited(ctx context.Context, id domain.ClientID) (bool, error) {
	count, err := s.fresh(ctx, id)
	if err != nil {
		return false, err
	}
	return count >= s.limit, nil
}

func (s *RedisStore) Increment(ctx context.Context, id domain.ClientID) error {
	err := incrScript.Run(ctx, s.rdb, []string{s.key(id)}, s.now().UnixMilli(), s.window.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis rate increment: %w", err)
	}
	return nil
}

func (s *RedisStore) Remaining(ctx context.Context, id domain.ClientID) (int, error) {
	count, err := s.fresh(ctx, id)
	if err != nil {
		return 0, err
	}
	return max(0, s.limit-count), nil
}

func (s *RedisStore) ResetTime(ctx context.Context, id domain.ClientID) (time.Duration, error) {
	startMs, err := s.rdb.HGet(ctx, s.key(id), "start").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis rate reset: %w", err)
	}
	end := time.UnixMilli(startMs).Add(s.window)
	return max(0, end.Sub(s.now())), nil
}
