package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creavibe/creavibe/internal/apperr"
	"github.com/creavibe/creavibe/internal/db/models"
)

type fakeStore struct {
	rows     []models.APIUsage
	err      error
	from, to time.Time
	userID   string
}

func (f *fakeStore) ListUsage(_ context.Context, userID, _ string, from, to time.Time) ([]models.APIUsage, error) {
	f.userID, f.from, f.to = userID, from, to
	return f.rows, f.err
}

var fixedNow = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

func newTestAggregator(store Store) *Aggregator {
	a := NewAggregator(store)
	a.now = func() time.Time { return fixedNow }
	return a
}

func row(at time.Time, endpoint string, status int) models.APIUsage {
	return models.APIUsage{TokenID: "tok-1", Endpoint: endpoint, Method: "GET", Status: status, CreatedAt: at}
}

func TestNormalizeDays(t *testing.T) {
	cases := map[int]int{
		-5: 30, 0: 30, 1: 1, 7: 7, 30: 30, 365: 365, 366: 30, 10000: 30,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeDays(in), "NormalizeDays(%d)", in)
	}
}

func TestMetrics_EmptyUsage(t *testing.T) {
	for _, days := range []int{1, 7, 30, 365} {
		store := &fakeStore{}
		m, err := newTestAggregator(store).Metrics(context.Background(), "user-1", "tok-1", days)
		require.NoError(t, err)

		assert.Equal(t, days, m.Days)
		assert.Equal(t, "tok-1", m.TokenID)
		assert.Equal(t, 0, m.TotalRequests)
		require.Len(t, m.Daily, days)
		for _, d := range m.Daily {
			assert.Zero(t, d.Count)
		}
		assert.NotNil(t, m.Endpoints)
		assert.Empty(t, m.Endpoints)
		assert.NotNil(t, m.Statuses)
		assert.Empty(t, m.Statuses)
	}
}

func TestMetrics_DefaultWindow(t *testing.T) {
	store := &fakeStore{}
	m, err := newTestAggregator(store).Metrics(context.Background(), "user-1", "tok-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 30, m.Days)
	assert.Len(t, m.Daily, 30)
	assert.Equal(t, "2024-02-10", m.Daily[0].Date)
	assert.Equal(t, "2024-03-10", m.Daily[29].Date)

	assert.Equal(t, "user-1", store.userID)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), store.from)
	assert.Equal(t, fixedNow, store.to)
}

func TestMetrics_DailyBucketsAscending(t *testing.T) {
	store := &fakeStore{}
	m, err := newTestAggregator(store).Metrics(context.Background(), "user-1", "tok-1", 7)
	require.NoError(t, err)

	for i := 1; i < len(m.Daily); i++ {
		assert.Less(t, m.Daily[i-1].Date, m.Daily[i].Date)
	}
	assert.Equal(t, "2024-03-04", m.Daily[0].Date)
	assert.Equal(t, "2024-03-10", m.Daily[6].Date)
}

func TestMetrics_Counts(t *testing.T) {
	today := fixedNow.Add(-time.Hour)
	yesterday := fixedNow.Add(-24 * time.Hour)
	store := &fakeStore{rows: []models.APIUsage{
		row(yesterday, "/projects", 200),
		row(yesterday, "/projects/:id", 404),
		row(today, "/projects", 200),
		row(today, "/projects", 500),
		row(today, "/projects/:id", 200),
		row(today, "/alpha", 200),
	}}

	m, err := newTestAggregator(store).Metrics(context.Background(), "user-1", "tok-1", 7)
	require.NoError(t, err)

	assert.Equal(t, 6, m.TotalRequests)
	assert.Equal(t, DailyCount{Date: "2024-03-09", Count: 2}, m.Daily[5])
	assert.Equal(t, DailyCount{Date: "2024-03-10", Count: 4}, m.Daily[6])

	assert.Equal(t, []EndpointCount{
		{Endpoint: "/projects", Count: 3},
		{Endpoint: "/projects/:id", Count: 2},
		{Endpoint: "/alpha", Count: 1},
	}, m.Endpoints)

	assert.Equal(t, []StatusCount{
		{Status: 200, Count: 4},
		{Status: 404, Count: 1},
		{Status: 500, Count: 1},
	}, m.Statuses)

	sum := 0
	for _, d := range m.Daily {
		sum += d.Count
	}
	assert.Equal(t, m.TotalRequests, sum)
}

func TestMetrics_EndpointTiesSortedByName(t *testing.T) {
	store := &fakeStore{rows: []models.APIUsage{
		row(fixedNow, "/b", 200),
		row(fixedNow, "/a", 200),
		row(fixedNow, "/c", 200),
	}}
	m, err := newTestAggregator(store).Metrics(context.Background(), "user-1", "tok-1", 1)
	require.NoError(t, err)
	require.Len(t, m.Endpoints, 3)
	assert.Equal(t, "/a", m.Endpoints[0].Endpoint)
	assert.Equal(t, "/b", m.Endpoints[1].Endpoint)
	assert.Equal(t, "/c", m.Endpoints[2].Endpoint)
}

func TestAggregate_IgnoresRowsOutsideWindow(t *testing.T) {
	rows := []models.APIUsage{
		row(fixedNow.AddDate(0, 0, -10), "/old", 200),
		row(fixedNow, "/new", 200),
	}
	m := Aggregate(rows, 3, fixedNow)
	assert.Equal(t, 1, m.TotalRequests)
	require.Len(t, m.Endpoints, 1)
	assert.Equal(t, "/new", m.Endpoints[0].Endpoint)
}

func TestAggregate_UsesUTCDates(t *testing.T) {
	tz := time.FixedZone("UTC+9", 9*3600)
	// 2024-03-10 08:00 at UTC+9 is 2024-03-09 23:00 UTC
	at := time.Date(2024, 3, 10, 8, 0, 0, 0, tz)
	m := Aggregate([]models.APIUsage{row(at, "/x", 200)}, 2, fixedNow)
	assert.Equal(t, DailyCount{Date: "2024-03-09", Count: 1}, m.Daily[0])
	assert.Equal(t, DailyCount{Date: "2024-03-10", Count: 0}, m.Daily[1])
}

func TestMetrics_StoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	_, err := newTestAggregator(store).Metrics(context.Background(), "user-1", "tok-1", 30)
	assert.ErrorIs(t, err, apperr.ErrDatabase)
}
