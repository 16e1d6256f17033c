package analytics

import (
	"fmt"
	"sort"

	"github.com/nmarkovic/fieldops-api/internal/models"
)

const dayLayout = "2006-01-02"

// KeyFunc derives a grouping key from a record. The boolean reports whether
// the record can be keyed at all; records that cannot (e.g. missing timestamp
// for a time-derived key) are skipped silently.
type KeyFunc func(models.ActivityRecord) (string, bool)

// GroupBy partitions records by the derived key, preserving input order
// within each group.
func GroupBy(records []models.ActivityRecord, key KeyFunc) map[string][]models.ActivityRecord {
	groups := make(map[string][]models.ActivityRecord)
	for _, rec := range records {
		k, ok := key(rec)
		if !ok {
			continue
		}
		groups[k] = append(groups[k], rec)
	}
	return groups
}

// DayKey keys by ISO calendar day.
func DayKey(rec models.ActivityRecord) (string, bool) {
	if rec.Timestamp == nil {
		return "", false
	}
	return rec.Timestamp.Format(dayLayout), true
}

// HourKey keys by hour of day (00–23).
func HourKey(rec models.ActivityRecord) (string, bool) {
	if rec.Timestamp == nil {
		return "", false
	}
	return fmt.Sprintf("%02d", rec.Timestamp.Hour()), true
}

// WeekSlotKey keys by the composite dayOfWeek_hour slot used for weekly
// pattern analysis.
func WeekSlotKey(rec models.ActivityRecord) (string, bool) {
	if rec.Timestamp == nil {
		return "", false
	}
	return fmt.Sprintf("%s_%02d", rec.Timestamp.Weekday(), rec.Timestamp.Hour()), true
}

// TechnicianKey keys by technician name; absent names group under "unknown".
func TechnicianKey(rec models.ActivityRecord) (string, bool) {
	if rec.Technician == "" {
		return "unknown", true
	}
	return rec.Technician, true
}

// MunicipalityKey keys by municipality; absent values group under "unknown".
func MunicipalityKey(rec models.ActivityRecord) (string, bool) {
	if rec.Municipality == "" {
		return "unknown", true
	}
	return rec.Municipality, true
}

// ReasonKey keys by cancellation reason; blank reasons group under "unspecified".
func ReasonKey(rec models.ActivityRecord) (string, bool) {
	if rec.CancellationReason == "" {
		return "unspecified", true
	}
	return rec.CancellationReason, true
}

// ServiceTypeKey keys by service type; absent values group under "other".
func ServiceTypeKey(rec models.ActivityRecord) (string, bool) {
	if rec.ServiceType == "" {
		return "other", true
	}
	return rec.ServiceType, true
}

// BuildDailyMetrics folds the record set into one DailyMetric per calendar
// day, ordered by date ascending. Records without a usable timestamp are
// excluded; they never default to "now".
func BuildDailyMetrics(records []models.ActivityRecord) []models.DailyMetric {
	groups := GroupBy(records, DayKey)
	if len(groups) == 0 {
		return nil
	}

	days := make([]string, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Strings(days)

	metrics := make([]models.DailyMetric, 0, len(days))
	for _, day := range days {
		metrics = append(metrics, buildDailyMetric(day, groups[day]))
	}
	return metrics
}

func buildDailyMetric(day string, records []models.ActivityRecord) models.DailyMetric {
	metric := models.DailyMetric{Date: day, OrderCount: len(records)}
	technicians := make(map[string]struct{})
	var responseSamples int

	for _, rec := range records {
		switch rec.Status {
		case models.StatusCompleted:
			metric.CompletedCount++
		case models.StatusCancelled:
			metric.CancelledCount++
		case models.StatusFailed:
			metric.FailureCount++
		}
		if rec.Urgent {
			metric.UrgentCount++
		}
		if rec.HasResponseTime {
			metric.TotalResponseTime += rec.ResponseTimeMin
			responseSamples++
		}
		technicians[rec.Technician] = struct{}{}
	}
	metric.TechnicianCount = len(technicians)

	if responseSamples > 0 {
		metric.AvgResponseTime = metric.TotalResponseTime / float64(responseSamples)
	}
	if metric.OrderCount > 0 {
		total := float64(metric.OrderCount)
		metric.FailureRate = float64(metric.FailureCount+metric.CancelledCount) / total * 100
		metric.CompletionRate = float64(metric.CompletedCount) / total * 100
		metric.UrgentRate = float64(metric.UrgentCount) / total * 100
	}
	return metric
}
