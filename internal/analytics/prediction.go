package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/nmarkovic/fieldops-api/internal/models"
)

// confidence interval multipliers by configured confidence level
var zByConfidenceLevel = map[int]float64{
	95: 1.96,
	90: 1.645,
	80: 1.282,
	70: 1.04,
}

// Predict builds a volume forecast over the configured horizon. With fewer
// history days than cfg.MinHistoryDays the forecast carries no points; callers
// surface that as "insufficient history" rather than an error.
func Predict(records []models.ActivityRecord, cfg PredictorConfig) models.Forecast {
	cfg = cfg.withDefaults()
	daily := BuildDailyMetrics(records)

	forecast := models.Forecast{
		GeneratedAt:     time.Now().UTC(),
		Model:           cfg.Model,
		ConfidenceLevel: cfg.ConfidenceLevel,
		HistoryDays:     len(daily),
		Recommendations: []models.Recommendation{},
		Alerts:          []models.ForecastAlert{},
	}
	if len(daily) < cfg.MinHistoryDays {
		forecast.Points = []models.PredictionPoint{}
		return forecast
	}

	counts := make([]float64, len(daily))
	for i, m := range daily {
		counts[i] = float64(m.OrderCount)
	}
	mean := Mean(counts)
	xs := make([]float64, len(counts))
	for i := range xs {
		xs[i] = float64(i)
	}
	slope := LinearTrendSlope(xs, counts)
	volatility := StdDev(counts, mean)
	weekdayAvg := weekdayAverages(daily)
	avgResponse := historicalAvgResponseTime(daily)
	avgPerTech := avgOrdersPerTechnician(daily)

	start := cfg.Now
	if start.IsZero() {
		start = latestTimestamp(records)
	}
	if start.IsZero() {
		start = time.Now().UTC()
	}

	z := zByConfidenceLevel[cfg.ConfidenceLevel]

	points := make([]models.PredictionPoint, 0, cfg.HorizonDays)
	for i := 0; i < cfg.HorizonDays; i++ {
		day := start.AddDate(0, 0, i+1)
		weekday := day.Weekday()

		trendValue := mean + slope*float64(len(daily)+i)
		seasonal, haveSeasonal := weekdayAvg[weekday]
		if !haveSeasonal {
			seasonal = mean
		}

		var predicted float64
		switch cfg.Model {
		case models.ModelTrend:
			predicted = trendValue
		case models.ModelSeasonal:
			predicted = seasonal
		default:
			factor := 1.0
			if mean > 0 {
				factor = seasonal / mean
			}
			predicted = trendValue * factor
		}
		predicted += cfg.Noise.Jitter(0.3 * volatility)
		if predicted < 0 {
			predicted = 0
		}

		// Day offsets are 1-based, so even the first forecast day decays.
		confidence := 95 - 15*(float64(i+1)/7.0)
		if confidence < 50 {
			confidence = 50
		}

		lower := predicted - z*volatility
		if lower < 0 {
			lower = 0
		}

		points = append(points, models.PredictionPoint{
			Date:                  day.Format(dayLayout),
			DayOfWeek:             weekday.String(),
			PredictedWorkOrders:   round1(predicted),
			PredictedTechnicians:  technicianNeed(predicted, avgPerTech),
			PredictedResponseTime: round1(avgResponse),
			Confidence:            round1(confidence),
			LowerBound:            round1(lower),
			UpperBound:            round1(predicted + z*volatility),
		})
	}
	forecast.Points = points

	forecast.Trend = summarizeTrend(counts, points, volatility)
	forecast.Resources = summarizeResources(points, avgPerTech)
	forecast.Recommendations = buildRecommendations(forecast.Resources, recentAverage(counts, 7))
	forecast.Alerts = buildAlerts(points, recentAverage(counts, 7))
	return forecast
}

func weekdayAverages(daily []models.DailyMetric) map[time.Weekday]float64 {
	sums := make(map[time.Weekday]float64)
	totals := make(map[time.Weekday]int)
	for _, m := range daily {
		day, err := time.Parse(dayLayout, m.Date)
		if err != nil {
			continue
		}
		sums[day.Weekday()] += float64(m.OrderCount)
		totals[day.Weekday()]++
	}
	averages := make(map[time.Weekday]float64, len(sums))
	for weekday, sum := range sums {
		averages[weekday] = sum / float64(totals[weekday])
	}
	return averages
}

func historicalAvgResponseTime(daily []models.DailyMetric) float64 {
	var sum float64
	var days int
	for _, m := range daily {
		if m.AvgResponseTime > 0 {
			sum += m.AvgResponseTime
			days++
		}
	}
	if days == 0 {
		return 60
	}
	return sum / float64(days)
}

func avgOrdersPerTechnician(daily []models.DailyMetric) float64 {
	var sum float64
	var days int
	for _, m := range daily {
		if m.TechnicianCount > 0 {
			sum += float64(m.OrderCount) / float64(m.TechnicianCount)
			days++
		}
	}
	if days == 0 || sum == 0 {
		return 1
	}
	return sum / float64(days)
}

func technicianNeed(predicted, avgPerTech float64) int {
	if predicted <= 0 {
		return 0
	}
	need := int(math.Ceil(predicted / avgPerTech))
	if need < 1 {
		need = 1
	}
	return need
}

func summarizeTrend(counts []float64, points []models.PredictionPoint, volatility float64) models.TrendSummary {
	recent := recentAverage(counts, 7)
	var predictedSum float64
	for _, p := range points {
		predictedSum += p.PredictedWorkOrders
	}
	predictedAvg := 0.0
	if len(points) > 0 {
		predictedAvg = predictedSum / float64(len(points))
	}

	var change float64
	if recent > 0 {
		change = (predictedAvg - recent) / recent * 100
	}

	classification := "stable"
	switch {
	case math.Abs(change) >= 15:
		classification = "significant"
	case math.Abs(change) >= 5:
		classification = "moderate"
	}
	direction := "stable"
	if classification != "stable" {
		if change > 0 {
			direction = "increasing"
		} else {
			direction = "decreasing"
		}
	}
	return models.TrendSummary{
		Direction:      direction,
		ChangePercent:  round1(change),
		Classification: classification,
		Volatility:     round1(volatility),
	}
}

func summarizeResources(points []models.PredictionPoint, avgPerTech float64) models.ResourceForecast {
	resources := models.ResourceForecast{AvgOrdersPerTechnician: round1(avgPerTech)}
	var total float64
	for _, p := range points {
		total += p.PredictedWorkOrders
		if p.PredictedWorkOrders > resources.PeakOrders {
			resources.PeakOrders = p.PredictedWorkOrders
			resources.PeakDay = p.Date
		}
	}
	// Headcount for the whole horizon: total predicted volume divided by the
	// historical per-technician throughput.
	if total > 0 && avgPerTech > 0 {
		resources.RequiredTechnicians = int(math.Ceil(total / avgPerTech))
	}
	resources.TotalPredictedOrders = round1(total)
	return resources
}

func buildRecommendations(resources models.ResourceForecast, recentAvg float64) []models.Recommendation {
	recommendations := []models.Recommendation{}
	if resources.RequiredTechnicians > 5 {
		recommendations = append(recommendations, models.Recommendation{
			Type:     "staffing",
			Message:  fmt.Sprintf("Forecast requires %d technician-days over the horizon, plan shift coverage accordingly", resources.RequiredTechnicians),
			Priority: "high",
		})
	}
	if recentAvg > 0 && resources.PeakOrders > recentAvg*1.5 {
		recommendations = append(recommendations, models.Recommendation{
			Type:     "scheduling",
			Message:  fmt.Sprintf("Predicted peak of %.0f orders on %s is well above the recent daily average of %.1f", resources.PeakOrders, resources.PeakDay, recentAvg),
			Priority: "medium",
		})
	}
	return recommendations
}

func buildAlerts(points []models.PredictionPoint, recentAvg float64) []models.ForecastAlert {
	alerts := []models.ForecastAlert{}
	if recentAvg <= 0 {
		return alerts
	}
	for _, p := range points {
		switch {
		case p.PredictedWorkOrders > recentAvg*2:
			alerts = append(alerts, models.ForecastAlert{
				Severity: models.SeverityHigh,
				Message:  fmt.Sprintf("Predicted volume of %.0f orders is more than double the recent daily average", p.PredictedWorkOrders),
				Date:     p.Date,
			})
		case p.PredictedWorkOrders > recentAvg*1.5:
			alerts = append(alerts, models.ForecastAlert{
				Severity: models.SeverityMedium,
				Message:  fmt.Sprintf("Predicted volume of %.0f orders is well above the recent daily average", p.PredictedWorkOrders),
				Date:     p.Date,
			})
		}
	}
	return alerts
}

func recentAverage(values []float64, window int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) > window {
		values = values[len(values)-window:]
	}
	return Mean(values)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
