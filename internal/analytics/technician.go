package analytics

import (
	"math"
	"sort"
	"strings"

	"github.com/nmarkovic/fieldops-api/internal/models"
)

// fallbacks for technicians with no recorded samples
const (
	defaultSatisfaction  = 4.0
	defaultResponseTime  = 60.0
	weightSuccessRate    = 0.30
	weightUrgentSuccess  = 0.20
	weightSatisfaction   = 0.25
	weightSpeed          = 0.15
	weightCancelDiscount = 0.10
)

type techStats struct {
	total           int
	completed       int
	cancelled       int
	failed          int
	urgent          int
	urgentCompleted int
	rework          int

	responseSum   float64
	responseCount int
	workSum       float64
	workCount     int
	satisfSum     float64
	satisfCount   int

	revenue float64
	cost    float64
}

// RankTechnicians scores every technician and returns them ordered by the
// configured sort key. Scores are composed so the result always lands in
// [0, 100] regardless of input quality.
func RankTechnicians(records []models.ActivityRecord, cfg RankingConfig) []models.TechnicianMetric {
	cfg = cfg.withDefaults()

	stats := make(map[string]*techStats)
	for _, rec := range records {
		tech := strings.TrimSpace(rec.Technician)
		if tech == "" {
			continue
		}
		s := stats[tech]
		if s == nil {
			s = &techStats{}
			stats[tech] = s
		}
		s.total++
		switch rec.Status {
		case models.StatusCompleted:
			s.completed++
		case models.StatusCancelled:
			s.cancelled++
		case models.StatusFailed:
			s.failed++
		}
		if rec.Urgent {
			s.urgent++
			if rec.Status == models.StatusCompleted {
				s.urgentCompleted++
			}
		}
		if rec.Rework {
			s.rework++
		}
		if rec.HasResponseTime {
			s.responseSum += rec.ResponseTimeMin
			s.responseCount++
		}
		if rec.HasWorkTime {
			s.workSum += rec.WorkTimeMin
			s.workCount++
		}
		if rec.HasSatisfaction {
			s.satisfSum += rec.Satisfaction
			s.satisfCount++
		}
		if rec.Status == models.StatusCompleted {
			revenue := RevenueFor(rec)
			s.revenue += revenue
			s.cost += CostFor(rec, revenue, NoNoise{})
		}
	}

	metrics := make([]models.TechnicianMetric, 0, len(stats))
	for tech, s := range stats {
		metrics = append(metrics, buildTechnicianMetric(tech, s))
	}

	sort.SliceStable(metrics, func(i, j int) bool {
		vi, vj := sortValue(metrics[i], cfg.SortBy), sortValue(metrics[j], cfg.SortBy)
		if vi != vj {
			if cfg.Direction == SortAscending {
				return vi < vj
			}
			return vi > vj
		}
		return metrics[i].Technician < metrics[j].Technician
	})
	return metrics
}

func buildTechnicianMetric(tech string, s *techStats) models.TechnicianMetric {
	total := float64(s.total)

	successRate := float64(s.completed) / total * 100
	cancelRate := float64(s.cancelled) / total * 100
	reworkRate := float64(s.rework) / total * 100

	// technicians with no urgent orders inherit their overall success rate
	urgentSuccess := successRate
	if s.urgent > 0 {
		urgentSuccess = float64(s.urgentCompleted) / float64(s.urgent) * 100
	}

	avgResponse := defaultResponseTime
	if s.responseCount > 0 {
		avgResponse = s.responseSum / float64(s.responseCount)
	}
	avgWork := 0.0
	if s.workCount > 0 {
		avgWork = s.workSum / float64(s.workCount)
	}
	avgSatisfaction := defaultSatisfaction
	if s.satisfCount > 0 {
		avgSatisfaction = s.satisfSum / float64(s.satisfCount)
	}

	speedScore := clampRange(100-avgResponse/3, 0, 100)
	satisfactionScore := clampRange(avgSatisfaction*20, 0, 100)

	performance := successRate*weightSuccessRate +
		urgentSuccess*weightUrgentSuccess +
		satisfactionScore*weightSatisfaction +
		speedScore*weightSpeed +
		math.Max(0, 100-cancelRate)*weightCancelDiscount

	return models.TechnicianMetric{
		Technician:        tech,
		TotalOrders:       s.total,
		CompletedOrders:   s.completed,
		CancelledOrders:   s.cancelled,
		FailedOrders:      s.failed,
		UrgentOrders:      s.urgent,
		ReworkOrders:      s.rework,
		SuccessRate:       round1(successRate),
		UrgentSuccessRate: round1(urgentSuccess),
		CancelRate:        round1(cancelRate),
		ReworkRate:        round1(reworkRate),
		AvgResponseTime:   round1(avgResponse),
		AvgWorkTime:       round1(avgWork),
		AvgSatisfaction:   round1(avgSatisfaction),
		SpeedScore:        round1(speedScore),
		TotalRevenue:      round1(s.revenue),
		TotalProfit:       round1(s.revenue - s.cost),
		PerformanceScore:  round1(clampRange(performance, 0, 100)),
	}
}

func sortValue(m models.TechnicianMetric, key SortKey) float64 {
	switch key {
	case SortBySuccessRate:
		return m.SuccessRate
	case SortBySpeed:
		return m.SpeedScore
	case SortByTotalOrders:
		return float64(m.TotalOrders)
	case SortByEarnings:
		return m.TotalRevenue
	case SortByProfit:
		return m.TotalProfit
	default:
		return m.PerformanceScore
	}
}
