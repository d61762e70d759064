package adapter

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// incrWithTTL 在一次脚本调用里自增并刷新过期时间，避免留下永不过期的计数
var incrWithTTL = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
redis.call("PEXPIRE", KEYS[1], ARGV[1])
return n
`)

// RedisRetryStore 是共享的 port.RetryStore，多个消费实例看到同一份重试次数。
type RedisRetryStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

func NewRedisRetryStore(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisRetryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisRetryStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *RedisRetryStore) key(orderID string) string {
	return s.keyPrefix + orderID
}

func (s *RedisRetryStore) Attempts(ctx context.Context, orderID string) (int, error) {
	n, err := s.client.Get(ctx, s.key(orderID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "get retry attempts for %s", orderID)
	}
	return n, nil
}

func (s *RedisRetryStore) Increment(ctx context.Context, orderID string) (int, error) {
	n, err := incrWithTTL.Run(ctx, s.client, []string{s.key(orderID)}, s.ttl.Milliseconds()).Int()
	if err != nil {
		return 0, errors.Wrapf(err, "increment retry attempts for %s", orderID)
	}
	return n, nil
}

func (s *RedisRetryStore) Clear(ctx context.Context, orderID string) error {
	if err := s.client.Del(ctx, s.key(orderID)).Err(); err != nil {
		return errors.Wrapf(err, "clear retry attempts for %s", orderID)
	}
	return nil
}
