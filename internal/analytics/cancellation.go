package analytics

import (
	"sort"
	"strings"

	"github.com/nmarkovic/fieldops-api/internal/models"
)

const unspecifiedReason = "unspecified"

// AnalyzeCancellations breaks cancelled work orders down by reason,
// technician, municipality and weekday. Percentages are shares of the
// cancelled population, not of all orders.
func AnalyzeCancellations(records []models.ActivityRecord) models.CancellationBreakdown {
	breakdown := models.CancellationBreakdown{
		TotalOrders:    len(records),
		ByReason:       []models.ReasonCount{},
		ByTechnician:   []models.ReasonCount{},
		ByMunicipality: []models.ReasonCount{},
		ByDay:          []models.ReasonCount{},
	}

	reasons := make(map[string]int)
	technicians := make(map[string]int)
	municipalities := make(map[string]int)
	days := make(map[string]int)

	for _, rec := range records {
		if rec.Status != models.StatusCancelled {
			continue
		}
		breakdown.CancelledCount++

		reason := strings.TrimSpace(strings.ToLower(rec.CancellationReason))
		if reason == "" {
			reason = unspecifiedReason
		}
		reasons[reason]++

		if tech := strings.TrimSpace(rec.Technician); tech != "" {
			technicians[tech]++
		}
		if muni := strings.TrimSpace(rec.Municipality); muni != "" {
			municipalities[muni]++
		}
		if rec.Timestamp != nil {
			days[rec.Timestamp.Weekday().String()]++
		}
	}

	if breakdown.TotalOrders > 0 {
		breakdown.CancelRate = round1(float64(breakdown.CancelledCount) / float64(breakdown.TotalOrders) * 100)
	}

	breakdown.ByReason = toReasonCounts(reasons, breakdown.CancelledCount)
	breakdown.ByTechnician = toReasonCounts(technicians, breakdown.CancelledCount)
	breakdown.ByMunicipality = toReasonCounts(municipalities, breakdown.CancelledCount)
	breakdown.ByDay = toReasonCounts(days, breakdown.CancelledCount)

	if len(breakdown.ByReason) > 0 {
		breakdown.TopReason = breakdown.ByReason[0].Key
	}
	return breakdown
}

func toReasonCounts(counts map[string]int, total int) []models.ReasonCount {
	result := make([]models.ReasonCount, 0, len(counts))
	for key, count := range counts {
		rc := models.ReasonCount{Key: key, Count: count}
		if total > 0 {
			rc.Percent = round1(float64(count) / float64(total) * 100)
		}
		result = append(result, rc)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Key < result[j].Key
	})
	return result
}
