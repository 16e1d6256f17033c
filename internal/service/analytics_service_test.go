package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nmarkovic/fieldops-api/internal/analytics"
	"github.com/nmarkovic/fieldops-api/internal/models"
	appErrors "github.com/nmarkovic/fieldops-api/pkg/errors"
)

type mockActivityReader struct {
	records []models.ActivityRecord
	calls   int
	err     error
}

func (m *mockActivityReader) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityRecord, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if s.store == nil {
		return appErrors.ErrCacheMiss
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	s.store = nil
	return nil
}

func fixtureRecords() []models.ActivityRecord {
	var records []models.ActivityRecord
	for d := 0; d < 10; d++ {
		ts := time.Date(2025, 6, 1+d, 10, 0, 0, 0, time.UTC)
		records = append(records, models.ActivityRecord{
			ID:         ts.Format("2006-01-02"),
			Timestamp:  &ts,
			Technician: "Marko",
			Status:     models.StatusCompleted,
		})
	}
	return records
}

func TestAnalyticsServiceTechniciansCaching(t *testing.T) {
	repo := &mockActivityReader{records: fixtureRecords()}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewAnalyticsService(repo, cacheSvc, nil, time.Minute, zap.NewNop())

	ctx := context.Background()
	filter := models.ActivityFilter{Technician: "Marko"}

	result, cacheHit, err := svc.Technicians(ctx, filter, analytics.RankingConfig{})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 1, repo.calls)
	require.Len(t, result, 1)
	assert.Equal(t, "Marko", result[0].Technician)

	cached, cacheHit2, err := svc.Technicians(ctx, filter, analytics.RankingConfig{})
	require.NoError(t, err)
	assert.True(t, cacheHit2)
	// no second repository round trip on a cache hit
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, result, cached)
}

func TestAnalyticsServiceCacheKeyVariesWithConfig(t *testing.T) {
	repo := &mockActivityReader{records: fixtureRecords()}
	cacheSvc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewAnalyticsService(repo, cacheSvc, nil, time.Minute, zap.NewNop())

	ctx := context.Background()
	_, _, err := svc.Technicians(ctx, models.ActivityFilter{}, analytics.RankingConfig{SortBy: analytics.SortBySpeed})
	require.NoError(t, err)
	_, hit, err := svc.Technicians(ctx, models.ActivityFilter{}, analytics.RankingConfig{SortBy: analytics.SortByEarnings})
	require.NoError(t, err)
	// a different sort key must not reuse the cached payload
	assert.False(t, hit)
	assert.Equal(t, 2, repo.calls)
}

func TestAnalyticsServiceAnomaliesWithoutCache(t *testing.T) {
	repo := &mockActivityReader{records: fixtureRecords()}
	svc := NewAnalyticsService(repo, nil, nil, time.Minute, zap.NewNop())

	anomalies, cacheHit, err := svc.Anomalies(context.Background(), models.ActivityFilter{}, analytics.DetectorConfig{})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	// constant history yields nothing to flag
	assert.Empty(t, anomalies)
}

func TestAnalyticsServiceForecast(t *testing.T) {
	repo := &mockActivityReader{records: fixtureRecords()}
	svc := NewAnalyticsService(repo, nil, nil, time.Minute, zap.NewNop())

	forecast, _, err := svc.Forecast(context.Background(), models.ActivityFilter{}, analytics.PredictorConfig{HorizonDays: 7})
	require.NoError(t, err)
	assert.Len(t, forecast.Points, 7)
	assert.Equal(t, 10, forecast.HistoryDays)
}

func TestAnalyticsServicePropagatesRepoError(t *testing.T) {
	repo := &mockActivityReader{err: assert.AnError}
	svc := NewAnalyticsService(repo, nil, nil, time.Minute, zap.NewNop())

	_, _, err := svc.Financial(context.Background(), models.ActivityFilter{}, analytics.FinancialConfig{})
	require.Error(t, err)

	_, _, err = svc.Cancellations(context.Background(), models.ActivityFilter{})
	require.Error(t, err)
}

func TestAnalyticsServiceHourlyDistribution(t *testing.T) {
	repo := &mockActivityReader{records: fixtureRecords()}
	svc := NewAnalyticsService(repo, nil, nil, time.Minute, zap.NewNop())

	buckets, _, err := svc.HourlyDistribution(context.Background(), models.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, buckets, 24)
	assert.Equal(t, 10, buckets[10].OrderCount)
}

func TestAnalyticsServiceSystemMetrics(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest("GET", "/api/v1/analytics/anomalies", 200, 25*time.Millisecond)
	metrics.RecordCacheOperation(true, time.Millisecond)
	metrics.RecordCacheOperation(false, time.Millisecond)

	svc := NewAnalyticsService(&mockActivityReader{}, nil, metrics, time.Minute, zap.NewNop())
	snapshot := svc.SystemMetrics()
	assert.Equal(t, uint64(1), snapshot.RequestsTotal)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 1e-9)
	assert.Greater(t, snapshot.Goroutines, 0)
}
