package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmarkovic/fieldops-api/internal/models"
)

func TestDetectAnomaliesEmptyInput(t *testing.T) {
	assert.Empty(t, DetectAnomalies(nil, DetectorConfig{}))
}

func TestDetectAnomaliesConstantSeries(t *testing.T) {
	end := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	records := steadyHistory(end, 15, 10)

	assert.Empty(t, DetectAnomalies(records, DetectorConfig{}))
}

func TestDetectAnomaliesVolumeSpike(t *testing.T) {
	end := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	records := steadyHistory(end, 30, 10)
	// pile 50 extra orders onto the final day, same technicians, same
	// response profile, so only the order count deviates
	spikeDay := time.Date(2025, 6, 30, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		tech := "Petar"
		if i%2 == 1 {
			tech = "Jovana"
		}
		records = append(records, record(spikeDay, withTechnician(tech), withResponseTime(30)))
	}

	anomalies := DetectAnomalies(records, DetectorConfig{
		Types: []models.AnomalyType{models.AnomalyStatistical},
	})
	require.Len(t, anomalies, 1)

	spike := anomalies[0]
	assert.Equal(t, models.AnomalyStatistical, spike.Type)
	assert.Equal(t, models.SeverityHigh, spike.Severity)
	assert.Equal(t, "orderCount", spike.Metric)
	assert.Equal(t, "2025-06-30", spike.Date)
	assert.Equal(t, "statistical-orderCount-2025-06-30", spike.ID)
	assert.Greater(t, spike.ZScore, 3.0)
	assert.InDelta(t, 60.0, spike.Value, 1e-9)
	assert.LessOrEqual(t, spike.Confidence, 95.0)
}

func TestDetectAnomaliesTrendShift(t *testing.T) {
	end := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	// 7 quiet days followed by 7 busy days
	records := steadyHistory(end.AddDate(0, 0, -7), 7, 4)
	for _, rec := range steadyHistory(end, 7, 12) {
		records = append(records, rec)
	}

	anomalies := DetectAnomalies(records, DetectorConfig{
		Types: []models.AnomalyType{models.AnomalyTrend},
	})
	require.NotEmpty(t, anomalies)

	var sawVolume bool
	for _, a := range anomalies {
		if a.Metric == "orderVolume_7d" {
			sawVolume = true
			// tripled volume crosses the doubled-threshold high bar
			assert.Equal(t, models.SeverityHigh, a.Severity)
		}
	}
	assert.True(t, sawVolume)
}

func TestDetectAnomaliesWeeklyPatternDeviation(t *testing.T) {
	end := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC) // a Monday
	var records []models.ActivityRecord
	// four prior weeks of Monday 10:00 activity with mild variance
	for week, count := range []int{4, 6, 4, 6} {
		slot := end.AddDate(0, 0, -7*(week+1)).Add(-2 * time.Hour)
		for i := 0; i < count; i++ {
			records = append(records, record(slot))
		}
	}
	// the current week more than doubles the slot's usual volume
	for i := 0; i < 12; i++ {
		records = append(records, record(end.Add(-2 * time.Hour)))
	}

	anomalies := DetectAnomalies(records, DetectorConfig{
		Types: []models.AnomalyType{models.AnomalyPattern},
		Now:   end,
	})
	require.Len(t, anomalies, 1)

	pattern := anomalies[0]
	assert.Equal(t, models.AnomalyPattern, pattern.Type)
	assert.Equal(t, models.SeverityHigh, pattern.Severity)
	assert.Equal(t, "weeklyPattern_Monday_10", pattern.Metric)
	assert.Equal(t, "2025-06-30", pattern.Date)
	assert.InDelta(t, 12.0, pattern.Value, 1e-9)
	// mean of the four historical weeks
	assert.InDelta(t, 5.0, pattern.ExpectedValue, 1e-9)
	assert.Greater(t, pattern.ZScore, 3.0)
}

func TestDetectAnomaliesWeeklyPatternNeedsFourWeeks(t *testing.T) {
	end := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	var records []models.ActivityRecord
	for week, count := range []int{4, 6, 4} {
		slot := end.AddDate(0, 0, -7*(week+1)).Add(-2 * time.Hour)
		for i := 0; i < count; i++ {
			records = append(records, record(slot))
		}
	}
	for i := 0; i < 12; i++ {
		records = append(records, record(end.Add(-2 * time.Hour)))
	}

	anomalies := DetectAnomalies(records, DetectorConfig{
		Types: []models.AnomalyType{models.AnomalyPattern},
		Now:   end,
	})
	assert.Empty(t, anomalies)
}

func TestDetectAnomaliesThreshold(t *testing.T) {
	end := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	records := steadyHistory(end, 12, 8)
	// five slow responses and heavy failures inside the trailing 24 hours
	for i := 0; i < 5; i++ {
		records = append(records, record(end.Add(-time.Duration(i)*time.Hour), withResponseTime(200)))
	}
	for i := 0; i < 6; i++ {
		records = append(records, record(end.Add(-time.Duration(i)*time.Hour), withStatus(models.StatusFailed)))
	}

	anomalies := DetectAnomalies(records, DetectorConfig{
		Types: []models.AnomalyType{models.AnomalyThreshold},
	})
	require.Len(t, anomalies, 2)

	byMetric := map[string]models.AnomalyRecord{}
	for _, a := range anomalies {
		byMetric[a.Metric] = a
	}
	slow, ok := byMetric["slowResponses"]
	require.True(t, ok)
	assert.Equal(t, models.SeverityHigh, slow.Severity)
	assert.InDelta(t, 5.0, slow.Value, 1e-9)

	failure, ok := byMetric["failureRate"]
	require.True(t, ok)
	assert.Greater(t, failure.Value, 20.0)
}

func TestDetectAnomaliesSeverityFilterAndOrder(t *testing.T) {
	end := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	records := steadyHistory(end, 30, 10)
	spikeDay := time.Date(2025, 6, 30, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		records = append(records, record(spikeDay, withResponseTime(30)))
	}

	all := DetectAnomalies(records, DetectorConfig{})
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		assert.GreaterOrEqual(t, models.SeverityRank(prev.Severity), models.SeverityRank(cur.Severity))
		if prev.Severity == cur.Severity {
			assert.GreaterOrEqual(t, prev.Confidence, cur.Confidence)
		}
	}

	lowOnly := DetectAnomalies(records, DetectorConfig{
		Severities: []models.Severity{models.SeverityLow},
	})
	for _, a := range lowOnly {
		assert.Equal(t, models.SeverityLow, a.Severity)
	}
}
