package analytics

import (
	"fmt"
	"time"

	"github.com/nmarkovic/fieldops-api/internal/models"
)

type recordOption func(*models.ActivityRecord)

func withStatus(s models.Status) recordOption {
	return func(rec *models.ActivityRecord) { rec.Status = s }
}

func withTechnician(name string) recordOption {
	return func(rec *models.ActivityRecord) { rec.Technician = name }
}

func withMunicipality(name string) recordOption {
	return func(rec *models.ActivityRecord) { rec.Municipality = name }
}

func withServiceType(name string) recordOption {
	return func(rec *models.ActivityRecord) { rec.ServiceType = name }
}

func withResponseTime(minutes float64) recordOption {
	return func(rec *models.ActivityRecord) {
		rec.ResponseTimeMin = minutes
		rec.HasResponseTime = true
	}
}

func withWorkTime(minutes float64) recordOption {
	return func(rec *models.ActivityRecord) {
		rec.WorkTimeMin = minutes
		rec.HasWorkTime = true
	}
}

func withRevenue(amount float64) recordOption {
	return func(rec *models.ActivityRecord) {
		rec.Revenue = amount
		rec.HasRevenue = true
	}
}

func withCost(amount float64) recordOption {
	return func(rec *models.ActivityRecord) {
		rec.Cost = amount
		rec.HasCost = true
	}
}

func withSatisfaction(rating float64) recordOption {
	return func(rec *models.ActivityRecord) {
		rec.Satisfaction = rating
		rec.HasSatisfaction = true
	}
}

func withUrgent() recordOption {
	return func(rec *models.ActivityRecord) { rec.Urgent = true }
}

func withReason(reason string) recordOption {
	return func(rec *models.ActivityRecord) { rec.CancellationReason = reason }
}

func withoutTimestamp() recordOption {
	return func(rec *models.ActivityRecord) { rec.Timestamp = nil }
}

var recordSeq int

func record(ts time.Time, opts ...recordOption) models.ActivityRecord {
	recordSeq++
	rec := models.ActivityRecord{
		ID:         fmt.Sprintf("rec-%04d", recordSeq),
		Timestamp:  &ts,
		Technician: "Petar",
		Status:     models.StatusCompleted,
	}
	for _, opt := range opts {
		opt(&rec)
	}
	return rec
}

// steadyHistory produces `days` calendar days ending at `end`, each with
// `perDay` completed orders at 10:00 handled by two technicians with a flat
// 30 minute response time.
func steadyHistory(end time.Time, days, perDay int) []models.ActivityRecord {
	var records []models.ActivityRecord
	for d := days - 1; d >= 0; d-- {
		day := end.AddDate(0, 0, -d)
		for i := 0; i < perDay; i++ {
			tech := "Petar"
			if i%2 == 1 {
				tech = "Jovana"
			}
			records = append(records, record(
				time.Date(day.Year(), day.Month(), day.Day(), 10, 0, 0, 0, time.UTC),
				withTechnician(tech),
				withResponseTime(30),
			))
		}
	}
	return records
}
