// Package middleware provides Gin HTTP middleware for authentication, rate limiting,
// security headers, request logging and audit logging.
//
// Middleware ordering is set in internal/api/router.go:
//
//	Recovery → RequestID → Metrics → Logger → CORS → Security → RateLimit → Auth → Audit → Handler
//
// Rate limiting runs before auth so that floods are rejected before any token lookup.
// Audit runs after auth so entries carry the user id.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/creavibe/creavibe/internal/api/respond"
	"github.com/creavibe/creavibe/internal/apperr"
	"github.com/creavibe/creavibe/internal/auth"
	"github.com/creavibe/creavibe/internal/db/models"
	"github.com/creavibe/creavibe/internal/safego"
)

// Context keys set by the auth middleware
const (
	UserIDKey     = "user_id"
	EmailKey      = "email"
	TokenIDKey    = "token_id"
	AuthMethodKey = "auth_method"
)

// usageWriteTimeout bounds the asynchronous usage insert after a public API call
const usageWriteTimeout = 5 * time.Second

// SessionVerifier verifies BaaS session JWTs
type SessionVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// TokenValidator resolves an opaque API token to its active row
type TokenValidator interface {
	Validate(ctx context.Context, value string) (*models.APIToken, error)
}

// UsageRecorder records one public API call
type UsageRecorder interface {
	RecordUsage(ctx context.Context, tokenID, endpoint, method string, status int) error
}

// SessionAuthMiddleware requires a valid BaaS session JWT and sets user_id and email.
func SessionAuthMiddleware(verifier SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearer(c.GetHeader("Authorization"))
		if err != nil {
			respond.Error(c, apperr.Unauthorized("Not authenticated"))
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			slog.Debug("session token rejected", "error", err)
			respond.Error(c, apperr.Unauthorized("Invalid or expired session"))
			return
		}

		c.Set(UserIDKey, claims.UserID())
		c.Set(EmailKey, claims.Email)
		c.Set(AuthMethodKey, "jwt")
		c.Next()
	}
}

// TokenAuthMiddleware requires a valid API token. After the handler runs, one usage row
// (route template, method, status) is recorded in the background.
func TokenAuthMiddleware(validator TokenValidator, recorder UsageRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, err := auth.ExtractBearer(c.GetHeader("Authorization"))
		if err != nil {
			respond.Bare(c, http.StatusUnauthorized, "unauthorized", "Missing API token")
			return
		}

		token, err := validator.Validate(c.Request.Context(), value)
		if err != nil {
			if !errors.Is(err, apperr.ErrUnauthorized) {
				slog.Error("api token validation failed", "error", err)
			}
			respond.Bare(c, http.StatusUnauthorized, "unauthorized", "Invalid API token")
			return
		}

		c.Set(TokenIDKey, token.ID)
		c.Set(UserIDKey, token.UserID)
		c.Set(AuthMethodKey, "api_token")

		c.Next()

		if recorder == nil {
			return
		}
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		method := c.Request.Method
		status := c.Writer.Status()
		tokenID := token.ID

		// best effort: a failed usage write never affects the response
		safego.Go("usage_record", func() {
			ctx, cancel := context.WithTimeout(context.Background(), usageWriteTimeout)
			defer cancel()
			if err := recorder.RecordUsage(ctx, tokenID, endpoint, method, status); err != nil {
				slog.Warn("failed to record api usage", "token_id", tokenID, "error", err)
			}
		})
	}
}

// GetUserID returns the authenticated user id, or "" when unauthenticated
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetEmail returns the session email claim
func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}

// IsMutating reports whether method changes state
func IsMutating(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
