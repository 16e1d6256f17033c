package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/nmarkovic/fieldops-api/internal/models"
)

func activityRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "timestamp", "technician", "municipality", "status", "urgent", "action",
		"cancellation_reason", "service_type", "response_time_min", "has_response_time",
		"work_time_min", "has_work_time", "revenue", "has_revenue", "cost", "has_cost",
		"satisfaction", "has_satisfaction", "rework",
	})
}

func TestActivityRepositoryListUnfiltered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	ts := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	rows := activityRows().
		AddRow("a-1", ts, "Marko", "Novi Sad", "completed", false, "instalacija",
			"", "HFC", 45.0, true, 90.0, true, 2500.0, true, 900.0, true, 4.5, true, false)
	mock.ExpectQuery(regexp.QuoteMeta("FROM activity_logs WHERE 1=1 ORDER BY timestamp ASC NULLS LAST, id ASC")).
		WillReturnRows(rows)

	records, err := repo.List(context.Background(), models.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Marko", records[0].Technician)
	require.Equal(t, models.StatusCompleted, records[0].Status)
	require.True(t, records[0].HasResponseTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryListFiltered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND timestamp >= $1 AND technician = $2 AND municipality = $3")).
		WithArgs(from, "Marko", "Novi Sad").
		WillReturnRows(activityRows())

	records, err := repo.List(context.Background(), models.ActivityFilter{
		From:         &from,
		Technician:   "Marko",
		Municipality: "Novi Sad",
	})
	require.NoError(t, err)
	require.Empty(t, records)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryInsertBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	ts := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	records := []models.ActivityRecord{
		{ID: "a-1", Timestamp: &ts, Technician: "Marko", Status: models.StatusCompleted},
		{ID: "a-2", Timestamp: &ts, Technician: "Jovana", Status: models.StatusCancelled},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	inserted, err := repo.InsertBatch(context.Background(), records)
	require.NoError(t, err)
	require.Equal(t, 2, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryInsertBatchEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	inserted, err := repo.InsertBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}
