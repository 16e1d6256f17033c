package models

import "time"

// DailyMetric is the per-calendar-day rollup every time-based analysis
// consumes. It is recomputed from the full record set on each run.
type DailyMetric struct {
	Date              string  `json:"date"`
	OrderCount        int     `json:"order_count"`
	CompletedCount    int     `json:"completed_count"`
	CancelledCount    int     `json:"cancelled_count"`
	FailureCount      int     `json:"failure_count"`
	UrgentCount       int     `json:"urgent_count"`
	TechnicianCount   int     `json:"technician_count"`
	TotalResponseTime float64 `json:"total_response_time"`
	AvgResponseTime   float64 `json:"avg_response_time"`
	FailureRate       float64 `json:"failure_rate"`
	CompletionRate    float64 `json:"completion_rate"`
	UrgentRate        float64 `json:"urgent_rate"`
}

// AnomalyType enumerates the detection strategies.
type AnomalyType string

const (
	AnomalyStatistical AnomalyType = "statistical"
	AnomalyTrend       AnomalyType = "trend"
	AnomalyPattern     AnomalyType = "pattern"
	AnomalyThreshold   AnomalyType = "threshold"
)

// Severity grades anomaly and alert importance.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityRank orders severities for sorting (high first).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AnomalyRecord is one detected deviation. The ID is a composite of
// type+metric+date so repeated runs over the same input produce stable ids.
type AnomalyRecord struct {
	ID            string      `json:"id"`
	Type          AnomalyType `json:"type"`
	Severity      Severity    `json:"severity"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Date          string      `json:"date"`
	Metric        string      `json:"metric"`
	Value         float64     `json:"value"`
	ExpectedValue float64     `json:"expected_value"`
	ZScore        float64     `json:"z_score,omitempty"`
	Confidence    float64     `json:"confidence"`
	Impact        string      `json:"impact"`
}

// ModelType selects the forecast model.
type ModelType string

const (
	ModelTrend    ModelType = "trend"
	ModelSeasonal ModelType = "seasonal"
	ModelAdvanced ModelType = "advanced"
)

// PredictionPoint is one forecast day. Points are emitted in horizon order and
// never mutated after creation.
type PredictionPoint struct {
	Date                  string  `json:"date"`
	DayOfWeek             string  `json:"day_of_week"`
	PredictedWorkOrders   float64 `json:"predicted_work_orders"`
	PredictedTechnicians  int     `json:"predicted_technicians"`
	PredictedResponseTime float64 `json:"predicted_response_time"`
	Confidence            float64 `json:"confidence"`
	LowerBound            float64 `json:"lower_bound"`
	UpperBound            float64 `json:"upper_bound"`
}

// TrendSummary classifies the forecast against recent history.
type TrendSummary struct {
	Direction      string  `json:"direction"`
	ChangePercent  float64 `json:"change_percent"`
	Classification string  `json:"classification"`
	Volatility     float64 `json:"volatility"`
}

// ResourceForecast derives staffing needs from predicted volume.
type ResourceForecast struct {
	TotalPredictedOrders   float64 `json:"total_predicted_orders"`
	RequiredTechnicians    int     `json:"required_technicians"`
	AvgOrdersPerTechnician float64 `json:"avg_orders_per_technician"`
	PeakDay                string  `json:"peak_day"`
	PeakOrders             float64 `json:"peak_orders"`
}

// Recommendation is a rule-derived operational suggestion.
type Recommendation struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

// ForecastAlert flags a predicted condition needing attention.
type ForecastAlert struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Date     string   `json:"date"`
}

// Forecast is the full prediction payload.
type Forecast struct {
	GeneratedAt     time.Time         `json:"generated_at"`
	Model           ModelType         `json:"model"`
	ConfidenceLevel int               `json:"confidence_level"`
	HistoryDays     int               `json:"history_days"`
	Points          []PredictionPoint `json:"points"`
	Trend           TrendSummary      `json:"trend"`
	Resources       ResourceForecast  `json:"resources"`
	Recommendations []Recommendation  `json:"recommendations"`
	Alerts          []ForecastAlert   `json:"alerts"`
}

// TechnicianMetric is the per-technician performance rollup.
type TechnicianMetric struct {
	Technician        string  `json:"technician"`
	TotalOrders       int     `json:"total_orders"`
	CompletedOrders   int     `json:"completed_orders"`
	CancelledOrders   int     `json:"cancelled_orders"`
	FailedOrders      int     `json:"failed_orders"`
	UrgentOrders      int     `json:"urgent_orders"`
	ReworkOrders      int     `json:"rework_orders"`
	SuccessRate       float64 `json:"success_rate"`
	UrgentSuccessRate float64 `json:"urgent_success_rate"`
	CancelRate        float64 `json:"cancel_rate"`
	ReworkRate        float64 `json:"rework_rate"`
	AvgResponseTime   float64 `json:"avg_response_time"`
	AvgWorkTime       float64 `json:"avg_work_time"`
	AvgSatisfaction   float64 `json:"avg_satisfaction"`
	SpeedScore        float64 `json:"speed_score"`
	TotalRevenue      float64 `json:"total_revenue"`
	TotalProfit       float64 `json:"total_profit"`
	PerformanceScore  float64 `json:"performance_score"`
}

// FinancialRollup aggregates money totals at one granularity.
type FinancialRollup struct {
	Key          string  `json:"key"`
	TotalOrders  int     `json:"total_orders"`
	TotalRevenue float64 `json:"total_revenue"`
	TotalCost    float64 `json:"total_cost"`
	TotalProfit  float64 `json:"total_profit"`
	ProfitMargin float64 `json:"profit_margin"`
}

// TechnicianFinance extends the rollup with profit-per-hour efficiency.
type TechnicianFinance struct {
	FinancialRollup
	WorkHours  float64 `json:"work_hours"`
	Efficiency float64 `json:"efficiency"`
}

// ServiceTypeFinance extends the rollup with revenue market share.
type ServiceTypeFinance struct {
	FinancialRollup
	MarketShare float64 `json:"market_share"`
}

// FinancialReport is the full financial analysis payload.
type FinancialReport struct {
	Overall        FinancialRollup      `json:"overall"`
	ByTechnician   []TechnicianFinance  `json:"by_technician"`
	ByMunicipality []FinancialRollup    `json:"by_municipality"`
	ByServiceType  []ServiceTypeFinance `json:"by_service_type"`
}

// HourlyBucket is one hour-of-day slot of the activity distribution.
type HourlyBucket struct {
	Hour            int     `json:"hour"`
	OrderCount      int     `json:"order_count"`
	CompletedCount  int     `json:"completed_count"`
	CancelledCount  int     `json:"cancelled_count"`
	UrgentCount     int     `json:"urgent_count"`
	AvgResponseTime float64 `json:"avg_response_time"`
}

// ReasonCount pairs a grouping key with its record count and share.
type ReasonCount struct {
	Key     string  `json:"key"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// CancellationBreakdown is the cancellation analysis payload.
type CancellationBreakdown struct {
	TotalOrders    int           `json:"total_orders"`
	CancelledCount int           `json:"cancelled_count"`
	CancelRate     float64       `json:"cancel_rate"`
	TopReason      string        `json:"top_reason"`
	ByReason       []ReasonCount `json:"by_reason"`
	ByTechnician   []ReasonCount `json:"by_technician"`
	ByMunicipality []ReasonCount `json:"by_municipality"`
	ByDay          []ReasonCount `json:"by_day"`
}

// SystemMetrics represents instrumentation captured for the system endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
