// audit.go provides Gin middleware that records authenticated write operations to the
// audit log.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/creavibe/creavibe/internal/config"
	"github.com/creavibe/creavibe/internal/db/models"
	"github.com/creavibe/creavibe/internal/safego"
)

const auditWriteTimeout = 5 * time.Second

// AuditWriter appends audit entries
type AuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuditMiddleware writes an entry for every authenticated mutating request after it
// completes. Failed requests are only recorded when cfg.LogFailedRequests is set.
// Writes happen in the background and never affect the response.
func AuditMiddleware(writer AuditWriter, cfg config.AuditConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if writer == nil || !IsMutating(c.Request.Method) {
			return
		}
		userID := GetUserID(c)
		if userID == "" {
			return
		}
		status := c.Writer.Status()
		if status >= 400 && !cfg.LogFailedRequests {
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		ip := c.ClientIP()
		ua := c.Request.UserAgent()

		metadata := map[string]interface{}{"status_code": status}
		if requestID := c.GetString(RequestIDKey); requestID != "" {
			metadata["request_id"] = requestID
		}
		if method := c.GetString(AuthMethodKey); method != "" {
			metadata["auth_method"] = method
		}

		entry := &models.AuditLog{
			UserID:    &userID,
			Action:    c.Request.Method + " " + path,
			IPAddress: &ip,
			Metadata:  metadata,
		}
		if ua != "" {
			entry.UserAgent = &ua
		}

		safego.Go("audit_write", func() {
			ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
			defer cancel()
			if err := writer.CreateAuditLog(ctx, entry); err != nil {
				slog.Warn("failed to write audit log", "action", entry.Action, "error", err)
			}
		})
	}
}
