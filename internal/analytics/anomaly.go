package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/nmarkovic/fieldops-api/internal/models"
)

// DetectAnomalies runs all four detection strategies over the record set,
// applies the configured severity/type filters and returns the result sorted
// by severity rank, ties broken by confidence. Insufficient history never
// produces an error, only fewer (or zero) anomalies.
func DetectAnomalies(records []models.ActivityRecord, cfg DetectorConfig) []models.AnomalyRecord {
	cfg = cfg.withDefaults()
	daily := BuildDailyMetrics(records)
	now := cfg.Now
	if now.IsZero() {
		now = latestTimestamp(records)
	}

	var anomalies []models.AnomalyRecord
	anomalies = append(anomalies, detectStatistical(daily, cfg)...)
	anomalies = append(anomalies, detectTrend(daily, cfg)...)
	anomalies = append(anomalies, detectWeeklyPattern(records, now, cfg)...)
	anomalies = append(anomalies, detectThreshold(records, now, cfg)...)

	anomalies = filterAnomalies(anomalies, cfg)

	sort.SliceStable(anomalies, func(i, j int) bool {
		ri, rj := models.SeverityRank(anomalies[i].Severity), models.SeverityRank(anomalies[j].Severity)
		if ri != rj {
			return ri > rj
		}
		return anomalies[i].Confidence > anomalies[j].Confidence
	})
	return anomalies
}

type dailySeries struct {
	name    string
	extract func(models.DailyMetric) float64
}

var statisticalSeries = []dailySeries{
	{"orderCount", func(m models.DailyMetric) float64 { return float64(m.OrderCount) }},
	{"avgResponseTime", func(m models.DailyMetric) float64 { return m.AvgResponseTime }},
	{"failureRate", func(m models.DailyMetric) float64 { return m.FailureRate }},
	{"urgentRate", func(m models.DailyMetric) float64 { return m.UrgentRate }},
	{"technicianCount", func(m models.DailyMetric) float64 { return float64(m.TechnicianCount) }},
}

// detectStatistical z-scores the most recent 7 days of each tracked daily
// series against the mean/stddev of the full history.
func detectStatistical(daily []models.DailyMetric, cfg DetectorConfig) []models.AnomalyRecord {
	if len(daily) < cfg.MinDataPoints {
		return nil
	}

	var anomalies []models.AnomalyRecord
	recentFrom := len(daily) - 7
	if recentFrom < 0 {
		recentFrom = 0
	}

	for _, series := range statisticalSeries {
		values := make([]float64, len(daily))
		for i, m := range daily {
			values[i] = series.extract(m)
		}
		mean := Mean(values)
		stddev := StdDev(values, mean)

		for i := recentFrom; i < len(daily); i++ {
			z := ZScore(values[i], mean, stddev)
			if math.Abs(z) <= cfg.ZScoreLimit {
				continue
			}
			severity := models.SeverityLow
			switch {
			case math.Abs(z) > 3:
				severity = models.SeverityHigh
			case math.Abs(z) > 2.5:
				severity = models.SeverityMedium
			}
			direction := "above"
			if z < 0 {
				direction = "below"
			}
			anomalies = append(anomalies, models.AnomalyRecord{
				ID:            anomalyID(models.AnomalyStatistical, series.name, daily[i].Date),
				Type:          models.AnomalyStatistical,
				Severity:      severity,
				Title:         fmt.Sprintf("Unusual %s on %s", series.name, daily[i].Date),
				Description:   fmt.Sprintf("%s was %.1f, %.1f standard deviations %s the historical mean of %.1f", series.name, values[i], math.Abs(z), direction, mean),
				Date:          daily[i].Date,
				Metric:        series.name,
				Value:         values[i],
				ExpectedValue: mean,
				ZScore:        z,
				Confidence:    math.Min(95, math.Abs(z)*30),
				Impact:        impactFor(severity),
			})
		}
	}
	return anomalies
}

// detectTrend compares the mean of the most recent window against the
// preceding window of equal length for window sizes of 3, 7 and 14 days.
func detectTrend(daily []models.DailyMetric, cfg DetectorConfig) []models.AnomalyRecord {
	var anomalies []models.AnomalyRecord
	for _, window := range []int{3, 7, 14} {
		if len(daily) < window*2 {
			continue
		}
		recent := daily[len(daily)-window:]
		previous := daily[len(daily)-window*2 : len(daily)-window]
		latest := daily[len(daily)-1].Date

		recentVolume := meanOf(recent, func(m models.DailyMetric) float64 { return float64(m.OrderCount) })
		previousVolume := meanOf(previous, func(m models.DailyMetric) float64 { return float64(m.OrderCount) })
		if previousVolume > 0 {
			change := (recentVolume - previousVolume) / previousVolume * 100
			if math.Abs(change) > cfg.VolumeChangePercent {
				severity := models.SeverityLow
				switch {
				case math.Abs(change) >= cfg.VolumeChangePercent*2:
					severity = models.SeverityHigh
				case math.Abs(change) >= cfg.VolumeChangePercent*1.5:
					severity = models.SeverityMedium
				}
				metric := fmt.Sprintf("orderVolume_%dd", window)
				anomalies = append(anomalies, models.AnomalyRecord{
					ID:            anomalyID(models.AnomalyTrend, metric, latest),
					Type:          models.AnomalyTrend,
					Severity:      severity,
					Title:         fmt.Sprintf("Order volume shifted %.0f%% over %d days", change, window),
					Description:   fmt.Sprintf("Average daily orders moved from %.1f to %.1f across the last two %d-day windows", previousVolume, recentVolume, window),
					Date:          latest,
					Metric:        metric,
					Value:         recentVolume,
					ExpectedValue: previousVolume,
					Confidence:    math.Min(95, math.Abs(change)),
					Impact:        impactFor(severity),
				})
			}
		}

		recentCompletion := meanOf(recent, func(m models.DailyMetric) float64 { return m.CompletionRate })
		previousCompletion := meanOf(previous, func(m models.DailyMetric) float64 { return m.CompletionRate })
		delta := recentCompletion - previousCompletion
		if math.Abs(delta) > 15 {
			severity := models.SeverityMedium
			if math.Abs(delta) >= 30 {
				severity = models.SeverityHigh
			}
			metric := fmt.Sprintf("completionRate_%dd", window)
			anomalies = append(anomalies, models.AnomalyRecord{
				ID:            anomalyID(models.AnomalyTrend, metric, latest),
				Type:          models.AnomalyTrend,
				Severity:      severity,
				Title:         fmt.Sprintf("Completion rate moved %.0f points over %d days", delta, window),
				Description:   fmt.Sprintf("Completion rate changed from %.1f%% to %.1f%% across the last two %d-day windows", previousCompletion, recentCompletion, window),
				Date:          latest,
				Metric:        metric,
				Value:         recentCompletion,
				ExpectedValue: previousCompletion,
				Confidence:    math.Min(95, math.Abs(delta)*2),
				Impact:        impactFor(severity),
			})
		}
	}
	return anomalies
}

// detectWeeklyPattern compares the current week's count in each
// dayOfWeek_hour slot against the same slot across at least four prior weeks.
func detectWeeklyPattern(records []models.ActivityRecord, now time.Time, cfg DetectorConfig) []models.AnomalyRecord {
	if now.IsZero() {
		return nil
	}

	slotWeeks := make(map[string]map[int]int)
	maxWeek := 0
	for _, rec := range records {
		slot, ok := WeekSlotKey(rec)
		if !ok {
			continue
		}
		age := now.Sub(*rec.Timestamp)
		if age < 0 {
			continue
		}
		week := int(age.Hours() / (24 * 7))
		if week > maxWeek {
			maxWeek = week
		}
		if slotWeeks[slot] == nil {
			slotWeeks[slot] = make(map[int]int)
		}
		slotWeeks[slot][week]++
	}
	if maxWeek < 4 {
		return nil
	}

	slots := make([]string, 0, len(slotWeeks))
	for slot := range slotWeeks {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	var anomalies []models.AnomalyRecord
	day := now.Format(dayLayout)
	for _, slot := range slots {
		weeks := slotWeeks[slot]
		history := make([]float64, 0, maxWeek)
		for w := 1; w <= maxWeek; w++ {
			history = append(history, float64(weeks[w]))
		}
		if len(history) < 4 {
			continue
		}
		mean := Mean(history)
		stddev := StdDev(history, mean)
		current := float64(weeks[0])
		z := ZScore(current, mean, stddev)
		if math.Abs(z) <= 2 {
			continue
		}
		severity := models.SeverityMedium
		if math.Abs(z) > 3 {
			severity = models.SeverityHigh
		}
		metric := "weeklyPattern_" + slot
		anomalies = append(anomalies, models.AnomalyRecord{
			ID:            anomalyID(models.AnomalyPattern, metric, day),
			Type:          models.AnomalyPattern,
			Severity:      severity,
			Title:         fmt.Sprintf("Atypical activity in the %s slot", slot),
			Description:   fmt.Sprintf("This week's count of %.0f deviates from the historical slot average of %.1f", current, mean),
			Date:          day,
			Metric:        metric,
			Value:         current,
			ExpectedValue: mean,
			ZScore:        z,
			Confidence:    math.Min(95, math.Abs(z)*30),
			Impact:        impactFor(severity),
		})
	}
	return anomalies
}

// detectThreshold inspects the trailing 24 hours for slow responses and
// excessive failure rate.
func detectThreshold(records []models.ActivityRecord, now time.Time, cfg DetectorConfig) []models.AnomalyRecord {
	if now.IsZero() {
		return nil
	}

	cutoff := now.Add(-24 * time.Hour)
	var total, failed, slow int
	for _, rec := range records {
		if rec.Timestamp == nil || rec.Timestamp.Before(cutoff) || rec.Timestamp.After(now) {
			continue
		}
		total++
		if rec.Status == models.StatusFailed || rec.Status == models.StatusCancelled {
			failed++
		}
		if rec.HasResponseTime && rec.ResponseTimeMin > cfg.ResponseTimeLimitMin {
			slow++
		}
	}
	if total == 0 {
		return nil
	}

	day := now.Format(dayLayout)
	var anomalies []models.AnomalyRecord
	if slow > 0 {
		severity := models.SeverityLow
		switch {
		case slow >= 5:
			severity = models.SeverityHigh
		case slow >= 3:
			severity = models.SeverityMedium
		}
		anomalies = append(anomalies, models.AnomalyRecord{
			ID:            anomalyID(models.AnomalyThreshold, "slowResponses", day),
			Type:          models.AnomalyThreshold,
			Severity:      severity,
			Title:         fmt.Sprintf("%d responses over %.0f minutes in the last 24h", slow, cfg.ResponseTimeLimitMin),
			Description:   fmt.Sprintf("%d of %d work orders in the trailing 24 hours exceeded the %.0f minute response limit", slow, total, cfg.ResponseTimeLimitMin),
			Date:          day,
			Metric:        "slowResponses",
			Value:         float64(slow),
			ExpectedValue: 0,
			Confidence:    math.Min(95, 60+float64(slow)*5),
			Impact:        impactFor(severity),
		})
	}

	failureRate := float64(failed) / float64(total) * 100
	if failureRate > cfg.FailureRateThreshold {
		severity := models.SeverityMedium
		if failureRate >= cfg.FailureRateThreshold*2 {
			severity = models.SeverityHigh
		}
		anomalies = append(anomalies, models.AnomalyRecord{
			ID:            anomalyID(models.AnomalyThreshold, "failureRate", day),
			Type:          models.AnomalyThreshold,
			Severity:      severity,
			Title:         fmt.Sprintf("Failure rate at %.1f%% in the last 24h", failureRate),
			Description:   fmt.Sprintf("%d of %d work orders in the trailing 24 hours failed or were cancelled, above the %.0f%% threshold", failed, total, cfg.FailureRateThreshold),
			Date:          day,
			Metric:        "failureRate",
			Value:         failureRate,
			ExpectedValue: cfg.FailureRateThreshold,
			Confidence:    math.Min(95, failureRate*2),
			Impact:        impactFor(severity),
		})
	}
	return anomalies
}

func filterAnomalies(anomalies []models.AnomalyRecord, cfg DetectorConfig) []models.AnomalyRecord {
	if len(cfg.Severities) == 0 && len(cfg.Types) == 0 {
		return anomalies
	}
	severities := make(map[models.Severity]struct{}, len(cfg.Severities))
	for _, s := range cfg.Severities {
		severities[s] = struct{}{}
	}
	types := make(map[models.AnomalyType]struct{}, len(cfg.Types))
	for _, t := range cfg.Types {
		types[t] = struct{}{}
	}

	filtered := anomalies[:0]
	for _, a := range anomalies {
		if len(severities) > 0 {
			if _, ok := severities[a.Severity]; !ok {
				continue
			}
		}
		if len(types) > 0 {
			if _, ok := types[a.Type]; !ok {
				continue
			}
		}
		filtered = append(filtered, a)
	}
	return filtered
}

func anomalyID(t models.AnomalyType, metric, date string) string {
	return fmt.Sprintf("%s-%s-%s", t, metric, date)
}

func impactFor(severity models.Severity) string {
	switch severity {
	case models.SeverityHigh:
		return "requires immediate operational attention"
	case models.SeverityMedium:
		return "should be reviewed during the next shift"
	default:
		return "informational"
	}
}

func meanOf(metrics []models.DailyMetric, extract func(models.DailyMetric) float64) float64 {
	values := make([]float64, len(metrics))
	for i, m := range metrics {
		values[i] = extract(m)
	}
	return Mean(values)
}

func latestTimestamp(records []models.ActivityRecord) time.Time {
	var latest time.Time
	for _, rec := range records {
		if rec.Timestamp != nil && rec.Timestamp.After(latest) {
			latest = *rec.Timestamp
		}
	}
	return latest
}
