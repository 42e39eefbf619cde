// Package telemetry provides application-level observability for the CreaVibe backend.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are served
// on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<CREAVIBE_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is not served by the Gin router.
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/tokens/:id/usage)
// rather than the raw request URL, so token and project ids never become label values.
package telemetry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics, labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Error rate (%):       sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route: histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// RateLimitDecisionsTotal counts limiter outcomes per policy.
// decision is one of "allowed", "rejected" or "error" (store failure, request let through).
//
// Example PromQL:
//   - Rejection ratio: sum(rate(ratelimit_decisions_total{decision="rejected"}[5m])) / sum(rate(ratelimit_decisions_total[5m]))
var RateLimitDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ratelimit_decisions_total",
		Help: "Total number of rate limiter decisions, by policy and decision.",
	},
	[]string{"policy", "decision"},
)

// API token lifecycle metrics.
//
// TokenOperationsTotal has label {operation} = created | revoked | validated | rejected.
// APIUsageRecordedTotal has label {outcome} = ok | error and tracks the asynchronous
// usage writes performed after each public API call.
var (
	TokenOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_token_operations_total",
			Help: "Total number of API token operations, by operation.",
		},
		[]string{"operation"},
	)

	APIUsageRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_usage_records_total",
			Help: "Total number of API usage rows written, by outcome.",
		},
		[]string{"outcome"},
	)
)

// BillingWebhookEventsTotal counts payment-provider webhook deliveries by event type and
// outcome (handled, ignored, invalid_signature, error).
var BillingWebhookEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "billing_webhook_events_total",
		Help: "Total number of billing webhook events received, by type and outcome.",
	},
	[]string{"type", "outcome"},
)

// StorageUploadsTotal counts project image uploads by backend and outcome.
var StorageUploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storage_uploads_total",
		Help: "Total number of project image uploads, by storage backend and outcome.",
	},
	[]string{"backend", "outcome"},
)

// BackgroundPanicsTotal counts panics recovered by safego, by task name.
var BackgroundPanicsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "background_task_panics_total",
		Help: "Total number of panics recovered in background tasks, by task.",
	},
	[]string{"task"},
)

// DBOpenConnections tracks the number of open connections held by the sql.DB pool.
// It is sampled every 30 seconds by StartDBStatsCollector rather than per request.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector samples sql.DB pool statistics every interval until ctx is done
// or the database becomes unreachable.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := db.PingContext(ctx); err != nil {
					slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
					return
				}
				DBOpenConnections.Set(float64(db.Stats().OpenConnections))
			}
		}
	}()
}
