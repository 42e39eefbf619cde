package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creavibe/creavibe/internal/ratelimit"
	"github.com/creavibe/creavibe/internal/telemetry"
)

func newRateLimitRouter(t *testing.T, limit int) *gin.Engine {
	t.Helper()
	store := ratelimit.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	limiter := ratelimit.New(store, ratelimit.Policy{Name: "test-" + t.Name(), Limit: limit, Window: time.Minute})

	r := gin.New()
	r.Use(RateLimitMiddleware(limiter, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func requestFrom(r http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware_AllowsThenRejects(t *testing.T) {
	r := newRateLimitRouter(t, 3)

	for i := 1; i <= 3; i++ {
		w := requestFrom(r, "10.0.0.1")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(3-i), w.Header().Get("X-RateLimit-Remaining"))
		reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64)
		require.NoError(t, err)
		assert.InDelta(t, time.Now().Add(time.Minute).Unix(), reset, 2)
	}

	w := requestFrom(r, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.InDelta(t, 60, retry, 2)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rate_limited", body["error"])
	assert.Equal(t, "Too many requests, please try again later.", body["message"])
}

func TestRateLimitMiddleware_PerClientIP(t *testing.T) {
	r := newRateLimitRouter(t, 1)

	assert.Equal(t, http.StatusOK, requestFrom(r, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, requestFrom(r, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, requestFrom(r, "10.0.0.2").Code)
}

func TestRateLimitMiddleware_CountsDecisions(t *testing.T) {
	r := newRateLimitRouter(t, 1)
	policy := "test-" + t.Name()
	allowed := telemetry.RateLimitDecisionsTotal.WithLabelValues(policy, "allowed")
	rejected := telemetry.RateLimitDecisionsTotal.WithLabelValues(policy, "rejected")

	requestFrom(r, "10.0.0.1")
	requestFrom(r, "10.0.0.1")

	assert.Equal(t, float64(1), testutil.ToFloat64(allowed))
	assert.Equal(t, float64(1), testutil.ToFloat64(rejected))
}

type brokenLimiter struct{}

func (brokenLimiter) Attempt(context.Context, string) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("redis: connection refused")
}

func (brokenLimiter) Policy() ratelimit.Policy { return ratelimit.Policy{Name: "broken"} }

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(brokenLimiter{}, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := requestFrom(r, "10.0.0.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimitMiddleware_CustomKey(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	defer store.Close()
	limiter := ratelimit.New(store, ratelimit.Policy{Name: "custom-key", Limit: 1, Window: time.Minute})

	r := gin.New()
	r.Use(RateLimitMiddleware(limiter, func(c *gin.Context) string { return c.GetHeader("X-Client") }))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Client", client)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, send("a"))
	assert.Equal(t, http.StatusTooManyRequests, send("a"))
	assert.Equal(t, http.StatusOK, send("b"))
}
