package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmarkovic/fieldops-api/internal/models"
)

func TestGroupByPreservesEveryKeyedRecord(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	records := []models.ActivityRecord{
		record(base, withTechnician("Marko")),
		record(base.Add(2*time.Hour), withTechnician("Marko")),
		record(base.AddDate(0, 0, 1), withTechnician("Jovana")),
		record(base, withoutTimestamp()),
	}

	byDay := GroupBy(records, DayKey)
	require.Len(t, byDay, 2)

	var total int
	for _, group := range byDay {
		total += len(group)
	}
	// the record without a timestamp is dropped, nothing else is
	assert.Equal(t, 3, total)

	byTech := GroupBy(records, TechnicianKey)
	assert.Len(t, byTech["Marko"], 2)
	assert.Len(t, byTech["Jovana"], 1)
	// technician keys do not depend on timestamps
	assert.Len(t, byTech["Petar"], 1)
}

func TestWeekSlotKey(t *testing.T) {
	rec := record(time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)) // a Monday
	key, ok := WeekSlotKey(rec)
	require.True(t, ok)
	assert.Equal(t, "Monday_14", key)

	_, ok = WeekSlotKey(record(time.Time{}, withoutTimestamp()))
	assert.False(t, ok)
}

func TestBuildDailyMetricsEmpty(t *testing.T) {
	assert.Empty(t, BuildDailyMetrics(nil))
	assert.Empty(t, BuildDailyMetrics([]models.ActivityRecord{record(time.Time{}, withoutTimestamp())}))
}

func TestBuildDailyMetrics(t *testing.T) {
	day := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	records := []models.ActivityRecord{
		record(day, withTechnician("Marko"), withResponseTime(30)),
		record(day.Add(time.Hour), withTechnician("Marko"), withResponseTime(60), withUrgent()),
		record(day.Add(2*time.Hour), withTechnician("Jovana"), withStatus(models.StatusCancelled)),
		record(day.Add(3*time.Hour), withTechnician("Jovana"), withStatus(models.StatusFailed)),
		record(day.AddDate(0, 0, 1), withTechnician("Marko")),
	}

	metrics := BuildDailyMetrics(records)
	require.Len(t, metrics, 2)

	first := metrics[0]
	assert.Equal(t, "2025-06-02", first.Date)
	assert.Equal(t, 4, first.OrderCount)
	assert.Equal(t, 2, first.CompletedCount)
	assert.Equal(t, 1, first.CancelledCount)
	assert.Equal(t, 1, first.FailureCount)
	assert.Equal(t, 2, first.TechnicianCount)
	// cancelled counts toward the failure rate alongside failed
	assert.InDelta(t, 50.0, first.FailureRate, 1e-9)
	assert.InDelta(t, 50.0, first.CompletionRate, 1e-9)
	assert.InDelta(t, 25.0, first.UrgentRate, 1e-9)
	// the average only spans records that carry a response time
	assert.InDelta(t, 45.0, first.AvgResponseTime, 1e-9)

	assert.Equal(t, "2025-06-03", metrics[1].Date)
	assert.Equal(t, 1, metrics[1].OrderCount)
}
