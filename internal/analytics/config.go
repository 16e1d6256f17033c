package analytics

import (
	"time"

	"github.com/nmarkovic/fieldops-api/internal/models"
)

// Sensitivity is a coarse preset mapped onto a z-score limit when no explicit
// limit is configured.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// DetectorConfig tunes the anomaly detection strategies. Zero values fall back
// to the documented defaults.
type DetectorConfig struct {
	MinDataPoints        int
	ZScoreLimit          float64
	VolumeChangePercent  float64
	FailureRateThreshold float64
	ResponseTimeLimitMin float64
	Sensitivity          Sensitivity

	// Severities and Types filter the detector output after detection and
	// before sorting. Empty slices keep everything.
	Severities []models.Severity
	Types      []models.AnomalyType

	// Now anchors "most recent" windows. Zero means the latest record day.
	Now time.Time
}

func (c DetectorConfig) withDefaults() DetectorConfig {
	if c.MinDataPoints <= 0 {
		c.MinDataPoints = 10
	}
	if c.ZScoreLimit <= 0 {
		switch c.Sensitivity {
		case SensitivityLow:
			c.ZScoreLimit = 3.0
		case SensitivityHigh:
			c.ZScoreLimit = 2.0
		default:
			c.ZScoreLimit = 2.5
		}
	}
	if c.VolumeChangePercent <= 0 {
		c.VolumeChangePercent = 50
	}
	if c.FailureRateThreshold <= 0 {
		c.FailureRateThreshold = 20
	}
	if c.ResponseTimeLimitMin <= 0 {
		c.ResponseTimeLimitMin = 180
	}
	return c
}

// PredictorConfig tunes forecast generation. Zero values fall back to the
// documented defaults.
type PredictorConfig struct {
	HorizonDays     int
	Model           models.ModelType
	ConfidenceLevel int
	MinHistoryDays  int

	// Noise injects optional jitter into predictions. Nil disables jitter,
	// keeping the forecast fully deterministic.
	Noise Noise

	// Now anchors the first forecast day. Zero means the latest record day.
	Now time.Time
}

func (c PredictorConfig) withDefaults() PredictorConfig {
	if c.HorizonDays <= 0 {
		c.HorizonDays = 7
	}
	switch c.Model {
	case models.ModelTrend, models.ModelSeasonal, models.ModelAdvanced:
	default:
		c.Model = models.ModelAdvanced
	}
	switch c.ConfidenceLevel {
	case 70, 80, 90, 95:
	default:
		c.ConfidenceLevel = 95
	}
	if c.MinHistoryDays <= 0 {
		c.MinHistoryDays = 7
	}
	if c.Noise == nil {
		c.Noise = NoNoise{}
	}
	return c
}

// FinancialConfig tunes financial estimation. Nil Noise keeps material and
// labor cost estimates at their deterministic midpoints.
type FinancialConfig struct {
	Noise Noise
}

func (c FinancialConfig) withDefaults() FinancialConfig {
	if c.Noise == nil {
		c.Noise = NoNoise{}
	}
	return c
}

// SortKey selects the technician ranking order.
type SortKey string

const (
	SortBySuccessRate SortKey = "successRate"
	SortBySpeed       SortKey = "speed"
	SortByTotalOrders SortKey = "totalOrders"
	SortByEarnings    SortKey = "earnings"
	SortByPerformance SortKey = "performance"
	SortByProfit      SortKey = "profit"
)

// SortDirection orders rankings ascending or descending.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// RankingConfig tunes technician ranking.
type RankingConfig struct {
	SortBy    SortKey
	Direction SortDirection
}

func (c RankingConfig) withDefaults() RankingConfig {
	switch c.SortBy {
	case SortBySuccessRate, SortBySpeed, SortByTotalOrders, SortByEarnings, SortByPerformance, SortByProfit:
	default:
		c.SortBy = SortByPerformance
	}
	if c.Direction != SortAscending {
		c.Direction = SortDescending
	}
	return c
}
