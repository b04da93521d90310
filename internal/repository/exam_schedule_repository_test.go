package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
)

var scheduleRowColumns = []string{"id", "submission_id", "student_id", "program_id", "exam_type", "scheduled_at", "duration_minutes", "location",
	"status", "note", "verified_by", "verified_at", "version", "created_at", "updated_at"}

func TestExamScheduleRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExamScheduleRepository(db)
	at := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM exam_schedules WHERE id = $1")).
		WithArgs("sch-1").
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).
			AddRow("sch-1", "sub-1", "student-1", "cs", "proposal", at, 120, "Room 3.1", "pending", nil, nil, nil, 2, at, at))

	schedule, err := repo.GetByID(context.Background(), "sch-1")
	require.NoError(t, err)
	require.True(t, schedule.HasSlot())
	require.Equal(t, models.ScheduleStatusPending, schedule.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExamScheduleRepositoryUpdateAdvancesVersion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExamScheduleRepository(db)
	schedule := &models.ExamSchedule{ID: "sch-1", Status: models.ScheduleStatusVerified, DurationMinutes: 120, Version: 2}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE exam_schedules")).
		WithArgs(sqlmock.AnyArg(), 120, sqlmock.AnyArg(), "verified", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "sch-1", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), schedule, 2))
	require.Equal(t, 3, schedule.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExamScheduleRepositoryUpdateStale(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExamScheduleRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE exam_schedules")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	schedule := &models.ExamSchedule{ID: "sch-1", Version: 1}
	require.ErrorIs(t, repo.Update(context.Background(), schedule, 1), sql.ErrNoRows)
	require.Equal(t, 1, schedule.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExamScheduleRepositoryCountPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExamScheduleRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("status IN ('pending', 'rescheduled') AND program_id = $1")).
		WithArgs("cs").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountPending(context.Background(), "cs")
	require.NoError(t, err)
	require.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExamScheduleRepositoryListOrdersBySlot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewExamScheduleRepository(db)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY scheduled_at ASC NULLS LAST")).
		WithArgs("verified").
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).
			AddRow("sch-1", "sub-1", "student-1", "cs", "final", now, 90, "Hall A", "verified", nil, "admin-1", now, 3, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM exam_schedules")).
		WithArgs("verified").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.ScheduleFilter{Status: []models.ScheduleStatus{models.ScheduleStatusVerified}})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
