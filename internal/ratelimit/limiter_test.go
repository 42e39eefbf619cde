package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "ratelimit:tokens:user-1", Key("tokens", "user-1"))
}

// TestLimiterContract checks the Attempt accounting against every backend
func TestLimiterContract(t *testing.T) {
	for name, newHarness := range backends {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			l := New(h.store, Policy{Name: "tokens", Limit: 3, Window: testWindow})
			ctx := context.Background()

			for i := 1; i <= 3; i++ {
				res, err := l.Attempt(ctx, "user-1")
				require.NoError(t, err)
				assert.True(t, res.Allowed)
				assert.Equal(t, 3, res.Limit)
				assert.Equal(t, 3-i, res.Remaining)
				assert.True(t, res.ResetAt.After(time.Now().Add(-time.Millisecond)))
			}

			res, err := l.Attempt(ctx, "user-1")
			require.NoError(t, err)
			assert.False(t, res.Allowed)
			assert.Equal(t, 0, res.Remaining)

			// another identifier is unaffected
			res, err = l.Attempt(ctx, "user-2")
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, 2, res.Remaining)

			h.advance(testWindow + 50*time.Millisecond)

			res, err = l.Attempt(ctx, "user-1")
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, 2, res.Remaining)
		})
	}
}

func TestLimiter_PoliciesDoNotShareCounters(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	a := New(store, Policy{Name: "api", Limit: 1, Window: time.Minute})
	b := New(store, Policy{Name: "tokens", Limit: 1, Window: time.Minute})
	ctx := context.Background()

	res, err := a.Attempt(ctx, "u")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = b.Attempt(ctx, "u")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

type failingStore struct{}

func (failingStore) Hit(context.Context, string, int, time.Duration) (Window, error) {
	return Window{}, errors.New("connection refused")
}
func (failingStore) Close() error { return nil }

func TestLimiter_StoreError(t *testing.T) {
	l := New(failingStore{}, Policy{Name: "api", Limit: 1, Window: time.Minute})
	_, err := l.Attempt(context.Background(), "u")
	assert.Error(t, err)
}

func TestResult_RetryAfter(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 30, Result{ResetAt: now.Add(30 * time.Second)}.RetryAfter(now))
	assert.Equal(t, 1, Result{ResetAt: now.Add(100 * time.Millisecond)}.RetryAfter(now))
	assert.Equal(t, 1, Result{ResetAt: now.Add(-time.Second)}.RetryAfter(now))
}
