package analytics

import "github.com/nmarkovic/fieldops-api/internal/models"

// HourlyDistribution buckets records by hour of day. All 24 buckets are
// always present so chart consumers never deal with gaps. Records without a
// timestamp are skipped.
func HourlyDistribution(records []models.ActivityRecord) []models.HourlyBucket {
	buckets := make([]models.HourlyBucket, 24)
	responseSums := make([]float64, 24)
	responseCounts := make([]int, 24)
	for hour := range buckets {
		buckets[hour].Hour = hour
	}

	for _, rec := range records {
		if rec.Timestamp == nil {
			continue
		}
		hour := rec.Timestamp.Hour()
		buckets[hour].OrderCount++
		switch rec.Status {
		case models.StatusCompleted:
			buckets[hour].CompletedCount++
		case models.StatusCancelled:
			buckets[hour].CancelledCount++
		}
		if rec.Urgent {
			buckets[hour].UrgentCount++
		}
		if rec.HasResponseTime {
			responseSums[hour] += rec.ResponseTimeMin
			responseCounts[hour]++
		}
	}

	for hour := range buckets {
		if responseCounts[hour] > 0 {
			buckets[hour].AvgResponseTime = round1(responseSums[hour] / float64(responseCounts[hour]))
		}
	}
	return buckets
}
