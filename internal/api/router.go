// Package api wires together all HTTP routes for the CreaVibe backend.
//
// Route groups:
//   - /api/v1 is the dashboard API. Every route requires a BaaS session JWT and
//     returns the {success, data, error} envelope.
//   - /api/public/v1 is the third-party API. Routes require an opaque API token and
//     each call is recorded for the token's usage metrics.
//   - /webhooks/billing receives signed payment provider events.
//   - /health, /ready and /version are unauthenticated probes.
//
// Clients (database, redis, rate limit store, JWT verifier, storage) are built by
// cmd/server and passed in through Dependencies.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/creavibe/creavibe/internal/api/account"
	"github.com/creavibe/creavibe/internal/api/projects"
	"github.com/creavibe/creavibe/internal/api/public"
	"github.com/creavibe/creavibe/internal/api/settings"
	"github.com/creavibe/creavibe/internal/api/webhooks"
	"github.com/creavibe/creavibe/internal/config"
	"github.com/creavibe/creavibe/internal/db/repositories"
	"github.com/creavibe/creavibe/internal/middleware"
	"github.com/creavibe/creavibe/internal/ratelimit"
	"github.com/creavibe/creavibe/internal/storage"
	"github.com/creavibe/creavibe/internal/storage/local"
	"github.com/creavibe/creavibe/internal/tokens"
	"github.com/creavibe/creavibe/internal/usage"
)

// Version is reported by /version; overridden at build time with -ldflags
var Version = "dev"

// probeTimeout bounds each dependency check in /health and /ready
const probeTimeout = 2 * time.Second

// Dependencies are the long-lived clients the router serves with
type Dependencies struct {
	Config   *config.Config
	DB       *sqlx.DB
	Verifier middleware.SessionVerifier
	Storage  storage.Storage
	// LimitStore backs the rate limiter; nil disables rate limiting
	LimitStore ratelimit.Store
	// Redis is optional and only probed by /ready
	Redis redis.UniversalClient
}

// NewRouter creates and configures the Gin router
func NewRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	router := gin.New()

	// Initialize repositories
	tokenRepo := repositories.NewAPITokenRepository(deps.DB)
	usageRepo := repositories.NewAPIUsageRepository(deps.DB)
	auditRepo := repositories.NewAuditRepository(deps.DB)
	prefsRepo := repositories.NewPreferencesRepository(deps.DB)
	profileRepo := repositories.NewProfileRepository(deps.DB)
	projectRepo := repositories.NewProjectRepository(deps.DB)
	subRepo := repositories.NewSubscriptionRepository(deps.DB)
	trustedIPRepo := repositories.NewTrustedIPRepository(deps.DB)

	// Initialize services
	tokenService := tokens.NewService(tokenRepo, usageRepo, cfg.Tokens.Prefix)
	aggregator := usage.NewAggregator(usageRepo)

	// Initialize handlers
	tokenHandlers := account.NewTokenHandlers(tokenService, aggregator)
	securityHandlers := account.NewSecurityHandlers(trustedIPRepo, auditRepo)
	profileHandlers := account.NewProfileHandlers(profileRepo, subRepo)
	settingsHandlers := settings.NewSettingsHandlers(prefsRepo)
	projectHandlers := projects.NewProjectHandlers(projectRepo, deps.Storage, cfg.Storage.DefaultBackend, cfg.Storage.MaxUploadBytes)
	publicHandlers := public.NewHandlers(projectRepo)
	billingWebhook := webhooks.NewBillingWebhookHandler(cfg.Billing.WebhookSecret, cfg.Billing.Tolerance, subRepo)

	var auditWriter middleware.AuditWriter
	if cfg.Audit.Enabled {
		auditWriter = auditRepo
	}

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(cors.New(corsConfig(cfg.Security.CORS)))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig(cfg.Security.TLS.Enabled)))

	router.GET("/health", healthCheckHandler(deps.DB))
	router.GET("/ready", readinessHandler(deps.DB, deps.Redis, deps.Storage))
	router.GET("/version", versionHandler())

	limit := func(p config.RateLimitPolicy, name string) gin.HandlerFunc {
		if deps.LimitStore == nil || !cfg.RateLimit.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimitMiddleware(ratelimit.New(deps.LimitStore, ratelimit.Policy{
			Name:   name,
			Limit:  p.Limit,
			Window: p.Window,
		}), middleware.ClientIPKey)
	}

	// Dashboard API
	apiV1 := router.Group("/api/v1",
		limit(cfg.RateLimit.API, "api"),
		middleware.SessionAuthMiddleware(deps.Verifier),
		middleware.AuditMiddleware(auditWriter, cfg.Audit),
	)
	{
		// API tokens have their own, tighter budget on top of the api one
		tokensGroup := apiV1.Group("/tokens", limit(cfg.RateLimit.Tokens, "tokens"))
		{
			tokensGroup.GET("", tokenHandlers.ListTokensHandler())
			tokensGroup.POST("", tokenHandlers.CreateTokenHandler())
			tokensGroup.DELETE("/:id", tokenHandlers.RevokeTokenHandler())
			tokensGroup.GET("/:id/usage", tokenHandlers.TokenUsageHandler())
		}

		projectsGroup := apiV1.Group("/projects")
		{
			projectsGroup.GET("", projectHandlers.ListProjectsHandler())
			projectsGroup.POST("", projectHandlers.CreateProjectHandler())
			projectsGroup.GET("/:id", projectHandlers.GetProjectHandler())
			projectsGroup.PATCH("/:id", projectHandlers.UpdateProjectHandler())
			projectsGroup.DELETE("/:id", projectHandlers.DeleteProjectHandler())
			projectsGroup.POST("/:id/image", projectHandlers.UploadImageHandler())
		}

		settingsGroup := apiV1.Group("/settings")
		{
			settingsGroup.GET("/notifications", settingsHandlers.GetNotificationsHandler())
			settingsGroup.PUT("/notifications", settingsHandlers.UpdateNotificationsHandler())
			settingsGroup.GET("/theme", settingsHandlers.GetThemeHandler())
			settingsGroup.PUT("/theme", settingsHandlers.UpdateThemeHandler())
			settingsGroup.GET("/consent", settingsHandlers.GetConsentHandler())
			settingsGroup.PUT("/consent", settingsHandlers.UpdateConsentHandler())
		}

		securityGroup := apiV1.Group("/security")
		{
			securityGroup.GET("/trusted-ips", securityHandlers.ListTrustedIPsHandler())
			securityGroup.POST("/trusted-ips", securityHandlers.AddTrustedIPHandler())
			securityGroup.POST("/trusted-ips/touch", securityHandlers.TouchTrustedIPHandler())
			securityGroup.DELETE("/trusted-ips/:id", securityHandlers.DeleteTrustedIPHandler())
			securityGroup.GET("/activity", securityHandlers.ListActivityHandler())
		}

		apiV1.GET("/profile", profileHandlers.GetProfileHandler())
		apiV1.GET("/billing/subscription", profileHandlers.GetSubscriptionHandler())
	}

	// Public API
	publicV1 := router.Group("/api/public/v1",
		limit(cfg.RateLimit.Public, "public"),
		middleware.TokenAuthMiddleware(tokenService, tokenService),
	)
	{
		publicV1.GET("/projects", publicHandlers.ListProjectsHandler())
		publicV1.GET("/projects/:id", publicHandlers.GetProjectHandler())
	}

	router.POST("/webhooks/billing", limit(cfg.RateLimit.Webhooks, "webhooks"), billingWebhook.HandleWebhook)

	// Local storage objects are served by the API itself
	if cfg.Storage.DefaultBackend == "local" && cfg.Storage.Local.ServeDirectly {
		router.GET(local.FilesRoute+"*path", serveFileHandler(deps.Storage))
	}

	return router
}

// corsConfig builds the gin-contrib/cors configuration. A "*" origin allows any origin
// without credentials.
func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:  c.AllowedMethods,
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "Stripe-Signature"},
		ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:        time.Hour,
	}
	if len(cc.AllowMethods) == 0 {
		cc.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			cc.AllowAllOrigins = true
			return cc
		}
	}
	cc.AllowOrigins = c.AllowedOrigins
	if len(cc.AllowOrigins) == 0 {
		// cors.New panics without any origin rule; allow none
		cc.AllowOriginFunc = func(string) bool { return false }
	}
	cc.AllowCredentials = true
	return cc
}

// @Summary      Health check
// @Description  Liveness probe. Checks database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy"
// @Router       /health [get]
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks the database, redis when configured, and the storage backend.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true"
// @Failure      503  {object}  map[string]interface{}  "ready: false, checks: per-dependency status"
// @Router       /ready [get]
func readinessHandler(db *sqlx.DB, rdb redis.UniversalClient, st storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		defer cancel()

		checks := gin.H{}
		notReady := func(name, msg string) {
			checks[name] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  msg,
			})
		}

		if err := db.PingContext(ctx); err != nil {
			notReady("database", "database not ready")
			return
		}
		checks["database"] = "healthy"

		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				notReady("redis", "redis not ready")
				return
			}
			checks["redis"] = "healthy"
		}

		// Exists on an absent path exercises credentials and connectivity without writing
		if st != nil {
			if _, err := st.Exists(ctx, ".readiness-probe"); err != nil {
				notReady("storage", "storage backend not ready")
				return
			}
			checks["storage"] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}

// serveFileHandler streams a locally stored object
func serveFileHandler(st storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		objectPath := strings.TrimPrefix(path.Clean("/"+c.Param("path")), "/")
		if objectPath == "" {
			c.Status(http.StatusNotFound)
			return
		}

		rc, err := st.Download(c.Request.Context(), objectPath)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.Status(http.StatusNotFound)
				return
			}
			slog.Error("failed to open stored file", "path", objectPath, "error", err)
			c.Status(http.StatusInternalServerError)
			return
		}
		defer rc.Close()

		contentType := mime.TypeByExtension(path.Ext(objectPath))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Content-Type", contentType)
		c.Header("Cache-Control", "public, max-age=86400")
		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, rc); err != nil {
			slog.Warn("failed to stream stored file", "path", objectPath, "error", err)
		}
	}
}
