// Package ratelimit implements fixed-window request limiting over a pluggable counter
// store. Two stores share one contract: RedisStore for multi-instance deployments and
// MemoryStore for a single process.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Window is the state of one key after an attempt
type Window struct {
	// Count is the number of accepted hits in the current window
	Count int
	// Allowed reports whether this attempt was accepted
	Allowed bool
	// TTL is the time left until the window resets
	TTL time.Duration
}

// Store counts hits per key in fixed windows.
//
// The first hit on a key opens a window of the given length with Count 1. Later hits
// in the same window increment Count while it is below limit; once Count reaches limit
// further hits are rejected and not counted. When the window elapses the key is gone
// and the next hit opens a new one.
type Store interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration) (Window, error)
	Close() error
}

// Backends
const (
	BackendAuto   = "auto"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// NewStore selects a store for backend. "auto" uses redis when client is non-nil and
// answers a ping, and otherwise falls back to memory with a warning.
func NewStore(ctx context.Context, backend string, client redis.UniversalClient) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		if client == nil {
			return nil, errors.New("redis rate limit backend requires a redis client")
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return NewRedisStore(client), nil
	case BackendAuto, "":
		if client != nil {
			err := client.Ping(ctx).Err()
			if err == nil {
				slog.Info("rate limiter using redis store")
				return NewRedisStore(client), nil
			}
			slog.Warn("redis unreachable, rate limiter falling back to in-memory store", "error", err)
		} else {
			slog.Warn("redis not configured, rate limiter using in-memory store; limits are per instance")
		}
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", backend)
	}
}
