package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmarkovic/fieldops-api/internal/analytics"
	"github.com/nmarkovic/fieldops-api/internal/models"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type fakeAnalyticsSrv struct {
	anomalies []models.AnomalyRecord
	forecast  models.Forecast
	financial models.FinancialReport
	ranked    []models.TechnicianMetric
	hourly    []models.HourlyBucket
	cancelled models.CancellationBreakdown
	system    models.SystemMetrics
	cacheHit  bool
	err       error

	lastFilter   models.ActivityFilter
	lastDetector analytics.DetectorConfig
	lastPredict  analytics.PredictorConfig
	lastRanking  analytics.RankingConfig
}

func (f *fakeAnalyticsSrv) Anomalies(_ context.Context, filter models.ActivityFilter, cfg analytics.DetectorConfig) ([]models.AnomalyRecord, bool, error) {
	f.lastFilter, f.lastDetector = filter, cfg
	return f.anomalies, f.cacheHit, f.err
}

func (f *fakeAnalyticsSrv) Forecast(_ context.Context, filter models.ActivityFilter, cfg analytics.PredictorConfig) (models.Forecast, bool, error) {
	f.lastFilter, f.lastPredict = filter, cfg
	return f.forecast, f.cacheHit, f.err
}

func (f *fakeAnalyticsSrv) Financial(_ context.Context, filter models.ActivityFilter, _ analytics.FinancialConfig) (models.FinancialReport, bool, error) {
	f.lastFilter = filter
	return f.financial, f.cacheHit, f.err
}

func (f *fakeAnalyticsSrv) Technicians(_ context.Context, filter models.ActivityFilter, cfg analytics.RankingConfig) ([]models.TechnicianMetric, bool, error) {
	f.lastFilter, f.lastRanking = filter, cfg
	return f.ranked, f.cacheHit, f.err
}

func (f *fakeAnalyticsSrv) HourlyDistribution(_ context.Context, filter models.ActivityFilter) ([]models.HourlyBucket, bool, error) {
	f.lastFilter = filter
	return f.hourly, f.cacheHit, f.err
}

func (f *fakeAnalyticsSrv) Cancellations(_ context.Context, filter models.ActivityFilter) (models.CancellationBreakdown, bool, error) {
	f.lastFilter = filter
	return f.cancelled, f.cacheHit, f.err
}

func (f *fakeAnalyticsSrv) SystemMetrics() models.SystemMetrics {
	return f.system
}

func newAnalyticsTestHandler(srv *fakeAnalyticsSrv) *AnalyticsHandler {
	return NewAnalyticsHandler(srv, analytics.DetectorConfig{}, analytics.PredictorConfig{}, analytics.FinancialConfig{})
}

func performRequest(t *testing.T, handle gin.HandlerFunc, target string) (*httptest.ResponseRecorder, responseEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)

	handle(c)

	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	return rec, envelope
}

func TestAnalyticsHandlerAnomalies(t *testing.T) {
	srv := &fakeAnalyticsSrv{
		anomalies: []models.AnomalyRecord{{ID: "statistical-orderCount-2025-06-30", Severity: models.SeverityHigh}},
		cacheHit:  true,
	}
	handler := newAnalyticsTestHandler(srv)

	rec, envelope := performRequest(t, handler.Anomalies, "/analytics/anomalies?sensitivity=high&severity=high,medium&type=statistical")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, envelope.Meta["cache_hit"])

	assert.Equal(t, analytics.SensitivityHigh, srv.lastDetector.Sensitivity)
	assert.Equal(t, []models.Severity{models.SeverityHigh, models.SeverityMedium}, srv.lastDetector.Severities)
	assert.Equal(t, []models.AnomalyType{models.AnomalyStatistical}, srv.lastDetector.Types)
}

func TestAnalyticsHandlerAnomaliesInvalidSensitivity(t *testing.T) {
	handler := newAnalyticsTestHandler(&fakeAnalyticsSrv{})

	rec, envelope := performRequest(t, handler.Anomalies, "/analytics/anomalies?sensitivity=extreme")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error["code"])
}

func TestAnalyticsHandlerFilterParsing(t *testing.T) {
	srv := &fakeAnalyticsSrv{}
	handler := newAnalyticsTestHandler(srv)

	rec, _ := performRequest(t, handler.Financial, "/analytics/financial?from=2025-06-01&to=2025-06-30&municipality=Novi+Sad")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.lastFilter.From)
	assert.Equal(t, "2025-06-01", srv.lastFilter.From.Format("2006-01-02"))
	assert.Equal(t, "Novi Sad", srv.lastFilter.Municipality)
}

func TestAnalyticsHandlerFilterRangeInverted(t *testing.T) {
	handler := newAnalyticsTestHandler(&fakeAnalyticsSrv{})

	rec, _ := performRequest(t, handler.Financial, "/analytics/financial?from=2025-06-30&to=2025-06-01")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsHandlerPredictions(t *testing.T) {
	srv := &fakeAnalyticsSrv{forecast: models.Forecast{HistoryDays: 14}}
	handler := newAnalyticsTestHandler(srv)

	rec, _ := performRequest(t, handler.Predictions, "/analytics/predictions?days=14&model=seasonal&confidence=90")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 14, srv.lastPredict.HorizonDays)
	assert.Equal(t, models.ModelSeasonal, srv.lastPredict.Model)
	assert.Equal(t, 90, srv.lastPredict.ConfidenceLevel)
}

func TestAnalyticsHandlerPredictionsInvalidDays(t *testing.T) {
	handler := newAnalyticsTestHandler(&fakeAnalyticsSrv{})

	for _, target := range []string{
		"/analytics/predictions?days=0",
		"/analytics/predictions?days=91",
		"/analytics/predictions?days=week",
		"/analytics/predictions?confidence=85",
	} {
		rec, _ := performRequest(t, handler.Predictions, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestAnalyticsHandlerTechniciansSorting(t *testing.T) {
	srv := &fakeAnalyticsSrv{ranked: []models.TechnicianMetric{{Technician: "Marko"}}}
	handler := newAnalyticsTestHandler(srv)

	rec, _ := performRequest(t, handler.Technicians, "/analytics/technicians?sort_by=earnings&direction=asc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, analytics.SortByEarnings, srv.lastRanking.SortBy)
	assert.Equal(t, analytics.SortAscending, srv.lastRanking.Direction)

	rec, _ = performRequest(t, handler.Technicians, "/analytics/technicians?sort_by=height")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsHandlerServiceError(t *testing.T) {
	handler := newAnalyticsTestHandler(&fakeAnalyticsSrv{err: assert.AnError})

	rec, envelope := performRequest(t, handler.Cancellations, "/analytics/cancellations")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", envelope.Error["code"])
}

func TestAnalyticsHandlerSystem(t *testing.T) {
	srv := &fakeAnalyticsSrv{system: models.SystemMetrics{RequestsTotal: 7}}
	handler := newAnalyticsTestHandler(srv)

	rec, envelope := performRequest(t, handler.System, "/analytics/system")
	assert.Equal(t, http.StatusOK, rec.Code)

	var snapshot models.SystemMetrics
	require.NoError(t, json.Unmarshal(envelope.Data, &snapshot))
	assert.Equal(t, uint64(7), snapshot.RequestsTotal)
}
