package models

import (
	"strings"
	"time"
)

// Status is the closed lifecycle state of a work order.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
	StatusUnknown    Status = "unknown"
)

// ParseStatus maps free-form status strings onto the closed Status set.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "done", "finished", "zavrsen":
		return StatusCompleted
	case "cancelled", "canceled", "otkazan":
		return StatusCancelled
	case "pending", "queued", "na cekanju":
		return StatusPending
	case "in_progress", "in progress", "active", "u toku":
		return StatusInProgress
	case "failed", "neuspesan":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// ActivityRecord is the canonical shape of a single work-order/activity log
// entry. Wire payloads with alternate field names are normalised into this
// type exactly once at ingestion; every aggregator consumes only this form.
//
// Timestamp is nil when the source value was absent or unparseable; such
// records are excluded from time-keyed aggregations but still contribute to
// technician and financial totals.
type ActivityRecord struct {
	ID                 string     `db:"id" json:"id"`
	Timestamp          *time.Time `db:"timestamp" json:"timestamp,omitempty"`
	Technician         string     `db:"technician" json:"technician"`
	Municipality       string     `db:"municipality" json:"municipality"`
	Status             Status     `db:"status" json:"status"`
	Urgent             bool       `db:"urgent" json:"urgent"`
	Action             string     `db:"action" json:"action"`
	CancellationReason string     `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	ServiceType        string     `db:"service_type" json:"service_type"`

	ResponseTimeMin float64 `db:"response_time_min" json:"response_time_min"`
	HasResponseTime bool    `db:"has_response_time" json:"-"`
	WorkTimeMin     float64 `db:"work_time_min" json:"work_time_min"`
	HasWorkTime     bool    `db:"has_work_time" json:"-"`
	Revenue         float64 `db:"revenue" json:"revenue"`
	HasRevenue      bool    `db:"has_revenue" json:"-"`
	Cost            float64 `db:"cost" json:"cost"`
	HasCost         bool    `db:"has_cost" json:"-"`
	Satisfaction    float64 `db:"satisfaction" json:"satisfaction"`
	HasSatisfaction bool    `db:"has_satisfaction" json:"-"`
	Rework          bool    `db:"rework" json:"rework"`
}

// RawActivityRecord mirrors the loose upstream JSON: optional fields, several
// historical spellings for the same attribute. It exists only as an adapter.
type RawActivityRecord struct {
	ID                 string   `json:"id"`
	Timestamp          string   `json:"timestamp"`
	Date               string   `json:"date"`
	Technician         string   `json:"technician"`
	TechnicianName     string   `json:"technician_name"`
	Municipality       string   `json:"municipality"`
	Location           string   `json:"location"`
	City               string   `json:"city"`
	Status             string   `json:"status"`
	Priority           string   `json:"priority"`
	Urgent             *bool    `json:"urgent"`
	Action             string   `json:"action"`
	ActivityType       string   `json:"activityType"`
	CancellationReason string   `json:"cancellationReason"`
	CancellationSnake  string   `json:"cancellation_reason"`
	ServiceType        string   `json:"service_type"`
	ServiceTypeCamel   string   `json:"serviceType"`
	ResponseTime       *float64 `json:"responseTime"`
	ResponseTimeSnake  *float64 `json:"response_time"`
	WorkTime           *float64 `json:"workTime"`
	WorkTimeSnake      *float64 `json:"work_time"`
	Revenue            *float64 `json:"revenue"`
	Cost               *float64 `json:"cost"`
	Satisfaction       *float64 `json:"satisfaction"`
	CustomerRating     *float64 `json:"customer_rating"`
	Rework             *bool    `json:"rework"`
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize converts a raw upstream record into the canonical ActivityRecord.
// Missing numeric fields stay zero with their Has flag unset; a timestamp that
// cannot be parsed yields a nil Timestamp, never an error.
func (r RawActivityRecord) Normalize() ActivityRecord {
	rec := ActivityRecord{
		ID:                 r.ID,
		Technician:         firstNonEmpty(r.Technician, r.TechnicianName, "unknown"),
		Municipality:       firstNonEmpty(r.Municipality, r.Location, r.City),
		Status:             ParseStatus(r.Status),
		Urgent:             boolValue(r.Urgent) || isUrgentPriority(r.Priority),
		Action:             firstNonEmpty(r.Action, r.ActivityType),
		CancellationReason: firstNonEmpty(r.CancellationReason, r.CancellationSnake),
		ServiceType:        firstNonEmpty(r.ServiceType, r.ServiceTypeCamel),
		Rework:             boolValue(r.Rework),
	}

	if ts := parseTimestamp(firstNonEmpty(r.Timestamp, r.Date)); ts != nil {
		rec.Timestamp = ts
	}

	if v := firstFloat(r.ResponseTime, r.ResponseTimeSnake); v != nil {
		rec.ResponseTimeMin = *v
		rec.HasResponseTime = true
	}
	if v := firstFloat(r.WorkTime, r.WorkTimeSnake); v != nil {
		rec.WorkTimeMin = *v
		rec.HasWorkTime = true
	}
	if r.Revenue != nil {
		rec.Revenue = *r.Revenue
		rec.HasRevenue = true
	}
	if r.Cost != nil {
		rec.Cost = *r.Cost
		rec.HasCost = true
	}
	if v := firstFloat(r.Satisfaction, r.CustomerRating); v != nil {
		rec.Satisfaction = *v
		rec.HasSatisfaction = true
	}

	return rec
}

func parseTimestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			utc := ts.UTC()
			return &utc
		}
	}
	return nil
}

func isUrgentPriority(priority string) bool {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "urgent", "high", "hitno":
		return true
	default:
		return false
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func firstFloat(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func boolValue(v *bool) bool {
	return v != nil && *v
}

// ActivityFilter scopes record loading for analytics computations.
type ActivityFilter struct {
	From         *time.Time
	To           *time.Time
	Technician   string
	Municipality string
	ServiceType  string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
