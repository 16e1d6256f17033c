package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nmarkovic/fieldops-api/internal/analytics"
	"github.com/nmarkovic/fieldops-api/internal/middleware"
	"github.com/nmarkovic/fieldops-api/internal/models"
	appErrors "github.com/nmarkovic/fieldops-api/pkg/errors"
	"github.com/nmarkovic/fieldops-api/pkg/response"
)

type analyticsProvider interface {
	Anomalies(ctx context.Context, filter models.ActivityFilter, cfg analytics.DetectorConfig) ([]models.AnomalyRecord, bool, error)
	Forecast(ctx context.Context, filter models.ActivityFilter, cfg analytics.PredictorConfig) (models.Forecast, bool, error)
	Financial(ctx context.Context, filter models.ActivityFilter, cfg analytics.FinancialConfig) (models.FinancialReport, bool, error)
	Technicians(ctx context.Context, filter models.ActivityFilter, cfg analytics.RankingConfig) ([]models.TechnicianMetric, bool, error)
	HourlyDistribution(ctx context.Context, filter models.ActivityFilter) ([]models.HourlyBucket, bool, error)
	Cancellations(ctx context.Context, filter models.ActivityFilter) (models.CancellationBreakdown, bool, error)
	SystemMetrics() models.SystemMetrics
}

// AnalyticsHandler exposes dashboard-ready analytics endpoints. Per-request
// query parameters override the configured detector/predictor defaults.
type AnalyticsHandler struct {
	analytics analyticsProvider
	detector  analytics.DetectorConfig
	predictor analytics.PredictorConfig
	financial analytics.FinancialConfig
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(provider analyticsProvider, detector analytics.DetectorConfig, predictor analytics.PredictorConfig, financial analytics.FinancialConfig) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: provider, detector: detector, predictor: predictor, financial: financial}
}

// Anomalies returns detected deviations across the filtered record window.
func (h *AnalyticsHandler) Anomalies(c *gin.Context) {
	filter, err := parseActivityFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	cfg := h.detector
	if raw := c.Query("sensitivity"); raw != "" {
		switch analytics.Sensitivity(raw) {
		case analytics.SensitivityLow, analytics.SensitivityMedium, analytics.SensitivityHigh:
			cfg.Sensitivity = analytics.Sensitivity(raw)
			cfg.ZScoreLimit = 0
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid sensitivity parameter"))
			return
		}
	}
	if raw := c.Query("severity"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			switch models.Severity(part) {
			case models.SeverityLow, models.SeverityMedium, models.SeverityHigh:
				cfg.Severities = append(cfg.Severities, models.Severity(part))
			default:
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid severity parameter"))
				return
			}
		}
	}
	if raw := c.Query("type"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			switch models.AnomalyType(part) {
			case models.AnomalyStatistical, models.AnomalyTrend, models.AnomalyPattern, models.AnomalyThreshold:
				cfg.Types = append(cfg.Types, models.AnomalyType(part))
			default:
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid type parameter"))
				return
			}
		}
	}

	start := time.Now()
	anomalies, cacheHit, err := h.analytics.Anomalies(c.Request.Context(), filter, cfg)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, start, anomalies, cacheHit)
}

// Predictions returns the volume forecast.
func (h *AnalyticsHandler) Predictions(c *gin.Context) {
	filter, err := parseActivityFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	cfg := h.predictor
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 || days > 90 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "days must be an integer between 1 and 90"))
			return
		}
		cfg.HorizonDays = days
	}
	if raw := c.Query("model"); raw != "" {
		switch models.ModelType(raw) {
		case models.ModelTrend, models.ModelSeasonal, models.ModelAdvanced:
			cfg.Model = models.ModelType(raw)
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid model parameter"))
			return
		}
	}
	if raw := c.Query("confidence"); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid confidence parameter"))
			return
		}
		switch level {
		case 70, 80, 90, 95:
			cfg.ConfidenceLevel = level
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "confidence must be one of 70, 80, 90, 95"))
			return
		}
	}

	start := time.Now()
	forecast, cacheHit, err := h.analytics.Forecast(c.Request.Context(), filter, cfg)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, start, forecast, cacheHit)
}

// Financial returns revenue, cost and profit aggregations.
func (h *AnalyticsHandler) Financial(c *gin.Context) {
	filter, err := parseActivityFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	report, cacheHit, err := h.analytics.Financial(c.Request.Context(), filter, h.financial)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, start, report, cacheHit)
}

// Technicians returns ranked technician performance metrics.
func (h *AnalyticsHandler) Technicians(c *gin.Context) {
	filter, err := parseActivityFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var cfg analytics.RankingConfig
	if raw := c.Query("sort_by"); raw != "" {
		switch analytics.SortKey(raw) {
		case analytics.SortBySuccessRate, analytics.SortBySpeed, analytics.SortByTotalOrders,
			analytics.SortByEarnings, analytics.SortByPerformance, analytics.SortByProfit:
			cfg.SortBy = analytics.SortKey(raw)
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid sort_by parameter"))
			return
		}
	}
	if raw := c.Query("direction"); raw != "" {
		switch analytics.SortDirection(raw) {
		case analytics.SortAscending, analytics.SortDescending:
			cfg.Direction = analytics.SortDirection(raw)
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid direction parameter"))
			return
		}
	}

	start := time.Now()
	metrics, cacheHit, err := h.analytics.Technicians(c.Request.Context(), filter, cfg)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, start, metrics, cacheHit)
}

// HourlyDistribution returns the hour-of-day activity histogram.
func (h *AnalyticsHandler) HourlyDistribution(c *gin.Context) {
	filter, err := parseActivityFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	buckets, cacheHit, err := h.analytics.HourlyDistribution(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, start, buckets, cacheHit)
}

// Cancellations returns the cancellation breakdown.
func (h *AnalyticsHandler) Cancellations(c *gin.Context) {
	filter, err := parseActivityFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	breakdown, cacheHit, err := h.analytics.Cancellations(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, start, breakdown, cacheHit)
}

// System returns the instrumentation snapshot.
func (h *AnalyticsHandler) System(c *gin.Context) {
	start := time.Now()
	respond(c, start, h.analytics.SystemMetrics(), false)
}

var filterTimeLayouts = []string{time.RFC3339, "2006-01-02"}

func parseActivityFilter(c *gin.Context) (models.ActivityFilter, error) {
	filter := models.ActivityFilter{
		Technician:   c.Query("technician"),
		Municipality: c.Query("municipality"),
		ServiceType:  c.Query("service_type"),
	}
	if raw := c.Query("from"); raw != "" {
		parsed, err := parseFilterTime(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid from parameter")
		}
		filter.From = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := parseFilterTime(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid to parameter")
		}
		filter.To = parsed
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, appErrors.Clone(appErrors.ErrValidation, "to must not precede from")
	}
	return filter, nil
}

func parseFilterTime(raw string) (*time.Time, error) {
	for _, layout := range filterTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			utc := parsed.UTC()
			return &utc, nil
		}
	}
	return nil, appErrors.ErrValidation
}

// respond stamps cache and timing metadata before writing the envelope. The
// timing must land here because the response is already flushed by the time
// the meta middleware resumes.
func respond(c *gin.Context, start time.Time, data interface{}, cacheHit bool) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, data, nil, meta)
}
