package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmarkovic/fieldops-api/internal/models"
)

func TestPredictInsufficientHistory(t *testing.T) {
	end := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	records := steadyHistory(end, 3, 5)

	forecast := Predict(records, PredictorConfig{})
	assert.Empty(t, forecast.Points)
	assert.Equal(t, 3, forecast.HistoryDays)
}

func TestPredictHorizonAndDates(t *testing.T) {
	end := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	records := steadyHistory(end, 14, 10)

	forecast := Predict(records, PredictorConfig{HorizonDays: 10, Now: end})
	require.Len(t, forecast.Points, 10)
	assert.Equal(t, "2025-07-01", forecast.Points[0].Date)
	assert.Equal(t, "2025-07-10", forecast.Points[9].Date)
	assert.Equal(t, models.ModelAdvanced, forecast.Model)
	assert.Equal(t, 95, forecast.ConfidenceLevel)
}

func TestPredictConfidenceDecaysMonotonically(t *testing.T) {
	end := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	records := steadyHistory(end, 21, 10)

	forecast := Predict(records, PredictorConfig{HorizonDays: 21, Now: end})
	require.Len(t, forecast.Points, 21)
	for i := 1; i < len(forecast.Points); i++ {
		assert.LessOrEqual(t, forecast.Points[i].Confidence, forecast.Points[i-1].Confidence)
	}
	// 95 - 15 * (1/7), first day already decayed
	assert.InDelta(t, 92.9, forecast.Points[0].Confidence, 1e-9)
	// confidence never drops below the floor
	assert.GreaterOrEqual(t, forecast.Points[20].Confidence, 50.0)
}

func TestPredictBoundsBracketPrediction(t *testing.T) {
	end := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	records := steadyHistory(end, 14, 8)
	// mix in some variance so volatility is non-zero
	extra := time.Date(2025, 6, 29, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		records = append(records, record(extra))
	}

	forecast := Predict(records, PredictorConfig{Now: end})
	require.NotEmpty(t, forecast.Points)
	for _, p := range forecast.Points {
		assert.LessOrEqual(t, p.LowerBound, p.PredictedWorkOrders)
		assert.GreaterOrEqual(t, p.UpperBound, p.PredictedWorkOrders)
		assert.GreaterOrEqual(t, p.LowerBound, 0.0)
	}
	assert.Greater(t, forecast.Trend.Volatility, 0.0)
}

func TestPredictSeasonalModelFollowsWeekday(t *testing.T) {
	// Mondays run at double the volume of every other day
	var records []models.ActivityRecord
	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC) // a Monday
	for d := 0; d < 14; d++ {
		day := start.AddDate(0, 0, d)
		perDay := 10
		if day.Weekday() == time.Monday {
			perDay = 20
		}
		for i := 0; i < perDay; i++ {
			records = append(records, record(day))
		}
	}

	end := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	forecast := Predict(records, PredictorConfig{
		Model:       models.ModelSeasonal,
		HorizonDays: 7,
		Now:         end,
	})
	require.Len(t, forecast.Points, 7)

	monday := forecast.Points[0]
	assert.Equal(t, "Monday", monday.DayOfWeek)
	assert.InDelta(t, 20.0, monday.PredictedWorkOrders, 1e-9)
	assert.InDelta(t, 10.0, forecast.Points[1].PredictedWorkOrders, 1e-9)
}

func TestPredictDeterministicWithoutNoise(t *testing.T) {
	end := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	records := steadyHistory(end, 14, 10)
	cfg := PredictorConfig{Now: end}

	first := Predict(records, cfg)
	second := Predict(records, cfg)
	assert.Equal(t, first.Points, second.Points)
	assert.Equal(t, first.Trend, second.Trend)
	assert.Equal(t, first.Resources, second.Resources)
}

func TestPredictSeededNoiseIsReproducible(t *testing.T) {
	end := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	records := steadyHistory(end, 14, 8)
	extra := time.Date(2025, 6, 29, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		records = append(records, record(extra))
	}

	first := Predict(records, PredictorConfig{Now: end, Noise: NewSeededNoise(42)})
	second := Predict(records, PredictorConfig{Now: end, Noise: NewSeededNoise(42)})
	assert.Equal(t, first.Points, second.Points)
}

func TestPredictResources(t *testing.T) {
	end := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	records := steadyHistory(end, 14, 10)

	forecast := Predict(records, PredictorConfig{Now: end})
	// 10 orders/day over 2 technicians
	assert.InDelta(t, 5.0, forecast.Resources.AvgOrdersPerTechnician, 1e-9)
	assert.InDelta(t, 70.0, forecast.Resources.TotalPredictedOrders, 1e-9)
	// ceil(70 predicted orders / 5 orders per technician)
	assert.Equal(t, 14, forecast.Resources.RequiredTechnicians)
	assert.NotEmpty(t, forecast.Resources.PeakDay)
}
