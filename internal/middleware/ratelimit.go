// ratelimit.go provides Gin middleware that enforces a fixed-window request budget per
// client, returning 429 once the budget for the current window is spent.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/creavibe/creavibe/internal/api/respond"
	"github.com/creavibe/creavibe/internal/ratelimit"
	"github.com/creavibe/creavibe/internal/telemetry"
)

// Limiter counts attempts per identifier
type Limiter interface {
	Attempt(ctx context.Context, identifier string) (ratelimit.Result, error)
	Policy() ratelimit.Policy
}

// KeyFunc picks the identifier a request is limited by
type KeyFunc func(c *gin.Context) string

// ClientIPKey limits by client IP
func ClientIPKey(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return ip
}

// RateLimitMiddleware applies limiter to every request. A store failure is logged and
// the request is let through.
func RateLimitMiddleware(limiter Limiter, key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = ClientIPKey
	}
	policy := limiter.Policy().Name

	return func(c *gin.Context) {
		res, err := limiter.Attempt(c.Request.Context(), key(c))
		if err != nil {
			telemetry.RateLimitDecisionsTotal.WithLabelValues(policy, "error").Inc()
			slog.Warn("rate limiter unavailable, allowing request", "policy", policy, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			telemetry.RateLimitDecisionsTotal.WithLabelValues(policy, "rejected").Inc()
			c.Header("Retry-After", strconv.Itoa(res.RetryAfter(time.Now())))
			respond.Bare(c, http.StatusTooManyRequests, "rate_limited", "Too many requests, please try again later.")
			return
		}

		telemetry.RateLimitDecisionsTotal.WithLabelValues(policy, "allowed").Inc()
		c.Next()
	}
}
