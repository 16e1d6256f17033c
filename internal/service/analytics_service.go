package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nmarkovic/fieldops-api/internal/analytics"
	"github.com/nmarkovic/fieldops-api/internal/models"
)

// ActivityReader describes the persistence layer required by AnalyticsService.
type ActivityReader interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityRecord, error)
}

// AnalyticsService loads activity records and runs the analytics computations
// over them, with cache integration. Every method returns a boolean telling
// whether the payload originated from cache.
type AnalyticsService struct {
	repo    ActivityReader
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	ttl     time.Duration
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo ActivityReader, cache *CacheService, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{repo: repo, cache: cache, metrics: metrics, ttl: ttl, logger: logger}
}

// Anomalies runs anomaly detection over the filtered record set.
func (s *AnalyticsService) Anomalies(ctx context.Context, filter models.ActivityFilter, cfg analytics.DetectorConfig) ([]models.AnomalyRecord, bool, error) {
	cacheKey := makeCacheKey("anomalies", filterParts(filter),
		string(cfg.Sensitivity),
		joinSeverities(cfg.Severities),
		joinTypes(cfg.Types),
	)
	var cached []models.AnomalyRecord
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		return nil, false, fmt.Errorf("get anomalies cache: %w", err)
	} else if hit {
		return cached, true, nil
	}

	records, err := s.loadRecords(ctx, "analytics_anomalies", filter)
	if err != nil {
		return nil, false, err
	}

	result := analytics.DetectAnomalies(records, cfg)
	s.store(ctx, cacheKey, result)
	return result, false, nil
}

// Forecast produces a volume prediction over the filtered record set.
func (s *AnalyticsService) Forecast(ctx context.Context, filter models.ActivityFilter, cfg analytics.PredictorConfig) (models.Forecast, bool, error) {
	cacheKey := makeCacheKey("forecast", filterParts(filter),
		string(cfg.Model),
		fmt.Sprintf("h%d", cfg.HorizonDays),
		fmt.Sprintf("c%d", cfg.ConfidenceLevel),
	)
	var cached models.Forecast
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		return models.Forecast{}, false, fmt.Errorf("get forecast cache: %w", err)
	} else if hit {
		return cached, true, nil
	}

	records, err := s.loadRecords(ctx, "analytics_forecast", filter)
	if err != nil {
		return models.Forecast{}, false, err
	}

	result := analytics.Predict(records, cfg)
	s.store(ctx, cacheKey, result)
	return result, false, nil
}

// Financial aggregates revenue, cost and profit over the filtered record set.
func (s *AnalyticsService) Financial(ctx context.Context, filter models.ActivityFilter, cfg analytics.FinancialConfig) (models.FinancialReport, bool, error) {
	cacheKey := makeCacheKey("financial", filterParts(filter))
	var cached models.FinancialReport
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		return models.FinancialReport{}, false, fmt.Errorf("get financial cache: %w", err)
	} else if hit {
		return cached, true, nil
	}

	records, err := s.loadRecords(ctx, "analytics_financial", filter)
	if err != nil {
		return models.FinancialReport{}, false, err
	}

	result := analytics.AnalyzeFinancials(records, cfg)
	s.store(ctx, cacheKey, result)
	return result, false, nil
}

// Technicians scores and ranks technicians over the filtered record set.
func (s *AnalyticsService) Technicians(ctx context.Context, filter models.ActivityFilter, cfg analytics.RankingConfig) ([]models.TechnicianMetric, bool, error) {
	cacheKey := makeCacheKey("technicians", filterParts(filter),
		string(cfg.SortBy), string(cfg.Direction))
	var cached []models.TechnicianMetric
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		return nil, false, fmt.Errorf("get technicians cache: %w", err)
	} else if hit {
		return cached, true, nil
	}

	records, err := s.loadRecords(ctx, "analytics_technicians", filter)
	if err != nil {
		return nil, false, err
	}

	result := analytics.RankTechnicians(records, cfg)
	s.store(ctx, cacheKey, result)
	return result, false, nil
}

// HourlyDistribution buckets the filtered record set by hour of day.
func (s *AnalyticsService) HourlyDistribution(ctx context.Context, filter models.ActivityFilter) ([]models.HourlyBucket, bool, error) {
	cacheKey := makeCacheKey("hourly", filterParts(filter))
	var cached []models.HourlyBucket
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		return nil, false, fmt.Errorf("get hourly cache: %w", err)
	} else if hit {
		return cached, true, nil
	}

	records, err := s.loadRecords(ctx, "analytics_hourly", filter)
	if err != nil {
		return nil, false, err
	}

	result := analytics.HourlyDistribution(records)
	s.store(ctx, cacheKey, result)
	return result, false, nil
}

// Cancellations breaks cancelled orders down over the filtered record set.
func (s *AnalyticsService) Cancellations(ctx context.Context, filter models.ActivityFilter) (models.CancellationBreakdown, bool, error) {
	cacheKey := makeCacheKey("cancellations", filterParts(filter))
	var cached models.CancellationBreakdown
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		return models.CancellationBreakdown{}, false, fmt.Errorf("get cancellations cache: %w", err)
	} else if hit {
		return cached, true, nil
	}

	records, err := s.loadRecords(ctx, "analytics_cancellations", filter)
	if err != nil {
		return models.CancellationBreakdown{}, false, err
	}

	result := analytics.AnalyzeCancellations(records)
	s.store(ctx, cacheKey, result)
	return result, false, nil
}

// SystemMetrics returns the current instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.SystemMetrics {
	if s.metrics == nil {
		return models.SystemMetrics{}
	}
	return s.metrics.Snapshot()
}

func (s *AnalyticsService) loadRecords(ctx context.Context, label string, filter models.ActivityFilter) ([]models.ActivityRecord, error) {
	start := time.Now()
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
	return records, nil
}

func (s *AnalyticsService) store(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil && s.logger != nil {
		s.logger.Warn("cache analytics payload", zap.String("key", key), zap.Error(err))
	}
}

func filterParts(filter models.ActivityFilter) string {
	return strings.Join([]string{
		formatTime(filter.From),
		formatTime(filter.To),
		filter.Technician,
		filter.Municipality,
		filter.ServiceType,
	}, ",")
}

func makeCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("analytics")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func joinSeverities(severities []models.Severity) string {
	parts := make([]string, len(severities))
	for i, s := range severities {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func joinTypes(types []models.AnomalyType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}
