// @title           CreaVibe API
// @version         1.0.0
// @description     Backend for the CreaVibe content platform: projects, API tokens and usage, account security, settings, and billing webhooks.
// @license.name    Proprietary
// @basePath        /
// @schemes         http https
// @securityDefinitions.apiKey  Bearer
// @in                          header
// @name                        Authorization
// @description                 "BaaS session JWT: 'Bearer {token}'"
// @securityDefinitions.apiKey  APIToken
// @in                          header
// @name                        Authorization
// @description                 "Opaque API token: 'Bearer cv_{token}'"
//
// @tag.name         System
// @tag.description  Health, readiness and version endpoints.
//
// @tag.name         Observability
// @tag.description  Prometheus metrics are served on a dedicated port (default 9090) at GET /metrics, outside the Gin router. Configure with CREAVIBE_TELEMETRY_METRICS_PROMETHEUS_PORT.

// Package main is the entry point for the CreaVibe server binary.
// It dispatches the serve, migrate and version subcommands with a switch on os.Args.
// serve applies pending migrations on startup unless database.auto_migrate is off.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/creavibe/creavibe/internal/api"
	"github.com/creavibe/creavibe/internal/auth"
	"github.com/creavibe/creavibe/internal/config"
	"github.com/creavibe/creavibe/internal/db"
	"github.com/creavibe/creavibe/internal/ratelimit"
	"github.com/creavibe/creavibe/internal/safego"
	"github.com/creavibe/creavibe/internal/storage"
	"github.com/creavibe/creavibe/internal/telemetry"

	// Storage backends register themselves on import
	_ "github.com/creavibe/creavibe/internal/storage/local"
	_ "github.com/creavibe/creavibe/internal/storage/s3"
)

const (
	startupTimeout     = 15 * time.Second
	dbStatsInterval    = 30 * time.Second
	defaultShutdownTTL = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if command == "version" {
		fmt.Printf("CreaVibe %s\n", api.Version)
		return nil
	}

	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	switch command {
	case "serve":
		return serve(cfg, configPath)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down|force VERSION>", os.Args[0])
		}
		return runMigrations(cfg, os.Args[2:])
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, version", command)
	}
}

func serve(cfg *config.Config, configPath string) error {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Log level is the one setting applied live
	if _, err := config.Watch(configPath, func(next *config.Config) {
		telemetry.SetLevel(next.Logging.Level)
		slog.Info("log level updated", "level", next.Logging.Level)
	}); err != nil {
		slog.Warn("config watch disabled", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancelStart := context.WithTimeout(ctx, startupTimeout)
	defer cancelStart()

	database, err := db.Connect(startCtx, cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	slog.Info("connected to database", "host", cfg.Database.Host, "name", cfg.Database.Name)

	if cfg.Database.AutoMigrate {
		if err := db.RunMigrations(database.DB, "up"); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if version, dirty, err := db.GetMigrationVersion(database.DB); err != nil {
			slog.Warn("failed to read migration version", "error", err)
		} else {
			slog.Info("database schema ready", "version", version, "dirty", dirty)
		}
	}

	telemetry.StartDBStatsCollector(ctx, database.DB, dbStatsInterval)

	var rdb redis.UniversalClient
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}

	var limitStore ratelimit.Store
	if cfg.RateLimit.Enabled {
		limitStore, err = ratelimit.NewStore(startCtx, cfg.RateLimit.Backend, rdb)
		if err != nil {
			return fmt.Errorf("failed to initialize rate limiter: %w", err)
		}
		defer limitStore.Close()
	}

	verifier, err := auth.NewVerifier(cfg.BaaS.JWTSecret, cfg.BaaS.JWTAudience)
	if err != nil {
		return fmt.Errorf("failed to initialize session verifier: %w", err)
	}

	st, err := storage.NewStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Metrics.Enabled {
		startMetricsServer(ctx, cfg.Telemetry.Metrics.PrometheusPort)
	}

	router := api.NewRouter(api.Dependencies{
		Config:     cfg,
		DB:         database,
		Verifier:   verifier,
		Storage:    st,
		LimitStore: limitStore,
		Redis:      rdb,
	})

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", server.Addr,
			"base_url", cfg.Server.BaseURL,
			"storage_backend", cfg.Storage.DefaultBackend,
			"tls", cfg.Security.TLS.Enabled,
		)
		var err error
		if cfg.Security.TLS.Enabled {
			err = server.ListenAndServeTLS(cfg.Security.TLS.CertFile, cfg.Security.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTTL
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	// audit and usage writes outlive their requests; the same deadline bounds them
	if err := safego.Wait(shutdownCtx); err != nil {
		slog.Warn("background tasks still running at shutdown", "error", err)
	}
	slog.Info("server stopped gracefully")
	return nil
}

// startMetricsServer serves /metrics on its own port so the scrape path stays off the
// public ingress and outside rate limiting
func startMetricsServer(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("starting Prometheus metrics server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func runMigrations(cfg *config.Config, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	database, err := db.Connect(ctx, cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	switch args[0] {
	case "up", "down":
		slog.Info("running migrations", "direction", args[0])
		if err := db.RunMigrations(database.DB, args[0]); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case "force":
		if len(args) < 2 {
			return errors.New("usage: migrate force VERSION")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := db.ForceMigrationVersion(database.DB, version); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or force)", args[0])
	}

	version, dirty, err := db.GetMigrationVersion(database.DB)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	slog.Info("migration completed", "version", version, "dirty", dirty)
	return nil
}
