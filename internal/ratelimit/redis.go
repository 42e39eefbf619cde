package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript checks, increments and expires a window in one step.
// A key found without an expiry gets one. Returns {count, allowed, pttl}.
var hitScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
local allowed = 0
if count < tonumber(ARGV[1]) then
	count = redis.call('INCR', KEYS[1])
	allowed = 1
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
	ttl = tonumber(ARGV[2])
end
return {count, allowed, ttl}
`)

// RedisStore keeps windows as redis counters with a millisecond expiry.
// The client is owned by the caller and is not closed by Close.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a RedisStore on client
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Hit(ctx context.Context, key string, limit int, window time.Duration) (Window, error) {
	res, err := hitScript.Run(ctx, s.client, []string{key}, limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Window{}, fmt.Errorf("hit %s: %w", key, err)
	}
	if len(res) != 3 {
		return Window{}, fmt.Errorf("hit %s: unexpected reply length %d", key, len(res))
	}
	return Window{
		Count:   int(res[0]),
		Allowed: res[1] == 1,
		TTL:     time.Duration(res[2]) * time.Millisecond,
	}, nil
}

func (s *RedisStore) Close() error { return nil }
