package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/nmarkovic/fieldops-api/internal/models"
)

const activityColumns = `id, timestamp, technician, municipality, status, urgent, action,
cancellation_reason, service_type, response_time_min, has_response_time, work_time_min,
has_work_time, revenue, has_revenue, cost, has_cost, satisfaction, has_satisfaction, rework`

// ActivityRepository exposes read and ingest access to the activity log store.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository instantiates the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// List loads activity records matching the filter, ordered by timestamp with
// unstamped records last.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityRecord, error) {
	var builder strings.Builder
	builder.WriteString("SELECT " + activityColumns + " FROM activity_logs WHERE 1=1")
	var args []interface{}
	if filter.From != nil {
		args = append(args, *filter.From)
		builder.WriteString(fmt.Sprintf(" AND timestamp >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		builder.WriteString(fmt.Sprintf(" AND timestamp <= $%d", len(args)))
	}
	if filter.Technician != "" {
		args = append(args, filter.Technician)
		builder.WriteString(fmt.Sprintf(" AND technician = $%d", len(args)))
	}
	if filter.Municipality != "" {
		args = append(args, filter.Municipality)
		builder.WriteString(fmt.Sprintf(" AND municipality = $%d", len(args)))
	}
	if filter.ServiceType != "" {
		args = append(args, filter.ServiceType)
		builder.WriteString(fmt.Sprintf(" AND service_type = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY timestamp ASC NULLS LAST, id ASC")

	var records []models.ActivityRecord
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("query activity logs: %w", err)
	}
	return records, nil
}

// InsertBatch upserts normalized records inside one transaction and reports
// how many rows were written. Re-ingesting the same id overwrites the row.
func (r *ActivityRepository) InsertBatch(ctx context.Context, records []models.ActivityRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	const query = `INSERT INTO activity_logs (` + activityColumns + `)
VALUES (:id, :timestamp, :technician, :municipality, :status, :urgent, :action,
:cancellation_reason, :service_type, :response_time_min, :has_response_time, :work_time_min,
:has_work_time, :revenue, :has_revenue, :cost, :has_cost, :satisfaction, :has_satisfaction, :rework)
ON CONFLICT (id) DO UPDATE SET
timestamp = EXCLUDED.timestamp, technician = EXCLUDED.technician,
municipality = EXCLUDED.municipality, status = EXCLUDED.status, urgent = EXCLUDED.urgent,
action = EXCLUDED.action, cancellation_reason = EXCLUDED.cancellation_reason,
service_type = EXCLUDED.service_type, response_time_min = EXCLUDED.response_time_min,
has_response_time = EXCLUDED.has_response_time, work_time_min = EXCLUDED.work_time_min,
has_work_time = EXCLUDED.has_work_time, revenue = EXCLUDED.revenue,
has_revenue = EXCLUDED.has_revenue, cost = EXCLUDED.cost, has_cost = EXCLUDED.has_cost,
satisfaction = EXCLUDED.satisfaction, has_satisfaction = EXCLUDED.has_satisfaction,
rework = EXCLUDED.rework`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin activity batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range records {
		if _, err := tx.NamedExecContext(ctx, query, records[i]); err != nil {
			return 0, fmt.Errorf("insert activity %s: %w", records[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit activity batch: %w", err)
	}
	return len(records), nil
}

// Count returns the number of stored activity records.
func (r *ActivityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM activity_logs"); err != nil {
		return 0, fmt.Errorf("count activity logs: %w", err)
	}
	return count, nil
}
