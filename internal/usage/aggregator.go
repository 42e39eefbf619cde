// Package usage turns raw API usage rows into the per-token metrics shown on the
// dashboard: daily counts, per-endpoint counts and per-status counts.
package usage

import (
	"context"
	"sort"
	"time"

	"github.com/creavibe/creavibe/internal/apperr"
	"github.com/creavibe/creavibe/internal/db/models"
)

const (
	// DefaultDays is the window used when none, or an out-of-range one, is requested
	DefaultDays = 30
	// MaxDays is the widest accepted window
	MaxDays = 365

	dateLayout = "2006-01-02"
)

// Store reads usage rows
type Store interface {
	ListUsage(ctx context.Context, userID, tokenID string, from, to time.Time) ([]models.APIUsage, error)
}

// DailyCount is the number of requests on one UTC calendar day
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// EndpointCount is the number of requests to one endpoint
type EndpointCount struct {
	Endpoint string `json:"endpoint"`
	Count    int    `json:"count"`
}

// StatusCount is the number of responses with one status code
type StatusCount struct {
	Status int `json:"status"`
	Count  int `json:"count"`
}

// Metrics is the aggregated usage of one token
type Metrics struct {
	TokenID       string          `json:"token_id"`
	Days          int             `json:"days"`
	TotalRequests int             `json:"total_requests"`
	Daily         []DailyCount    `json:"daily"`
	Endpoints     []EndpointCount `json:"endpoints"`
	Statuses      []StatusCount   `json:"statuses"`
}

// Aggregator computes usage metrics
type Aggregator struct {
	store Store
	now   func() time.Time
}

// NewAggregator creates an Aggregator reading from store
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// NormalizeDays clamps a requested window to [1, MaxDays]; anything outside becomes DefaultDays.
func NormalizeDays(days int) int {
	if days < 1 || days > MaxDays {
		return DefaultDays
	}
	return days
}

// WindowStart is UTC midnight of the first day of a days-long window ending on now's day.
func WindowStart(now time.Time, days int) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
}

// Metrics returns usage metrics for the user's token over the last days days.
// A token the user does not own yields empty metrics, not an error.
func (a *Aggregator) Metrics(ctx context.Context, userID, tokenID string, days int) (*Metrics, error) {
	days = NormalizeDays(days)
	now := a.now().UTC()

	rows, err := a.store.ListUsage(ctx, userID, tokenID, WindowStart(now, days), now)
	if err != nil {
		return nil, apperr.Database(err)
	}

	m := Aggregate(rows, days, now)
	m.TokenID = tokenID
	return m, nil
}

// Aggregate buckets rows into a days-long window ending on now's UTC day.
// Rows dated outside the window are ignored.
func Aggregate(rows []models.APIUsage, days int, now time.Time) *Metrics {
	start := WindowStart(now, days)

	daily := make([]DailyCount, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		daily[i] = DailyCount{Date: date}
		index[date] = i
	}

	endpoints := make(map[string]int)
	statuses := make(map[int]int)
	total := 0
	for _, row := range rows {
		i, ok := index[row.CreatedAt.UTC().Format(dateLayout)]
		if !ok {
			continue
		}
		daily[i].Count++
		endpoints[row.Endpoint]++
		statuses[row.Status]++
		total++
	}

	m := &Metrics{
		Days:          days,
		TotalRequests: total,
		Daily:         daily,
		Endpoints:     make([]EndpointCount, 0, len(endpoints)),
		Statuses:      make([]StatusCount, 0, len(statuses)),
	}
	for endpoint, count := range endpoints {
		m.Endpoints = append(m.Endpoints, EndpointCount{Endpoint: endpoint, Count: count})
	}
	sort.Slice(m.Endpoints, func(i, j int) bool {
		if m.Endpoints[i].Count != m.Endpoints[j].Count {
			return m.Endpoints[i].Count > m.Endpoints[j].Count
		}
		return m.Endpoints[i].Endpoint < m.Endpoints[j].Endpoint
	})
	for status, count := range statuses {
		m.Statuses = append(m.Statuses, StatusCount{Status: status, Count: count})
	}
	sort.Slice(m.Statuses, func(i, j int) bool { return m.Statuses[i].Status < m.Statuses[j].Status })

	return m
}
