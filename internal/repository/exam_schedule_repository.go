package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
)

const scheduleColumns = `id, submission_id, student_id, program_id, exam_type, scheduled_at, duration_minutes, location,
       status, note, verified_by, verified_at, version, created_at, updated_at`

// ExamScheduleRepository persists exam schedules created on approval.
type ExamScheduleRepository struct {
	db *sqlx.DB
}

// NewExamScheduleRepository constructs the repository.
func NewExamScheduleRepository(db *sqlx.DB) *ExamScheduleRepository {
	return &ExamScheduleRepository{db: db}
}

// GetByID fetches a schedule by identifier.
func (r *ExamScheduleRepository) GetByID(ctx context.Context, id string) (*models.ExamSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM exam_schedules WHERE id = $1`
	var schedule models.ExamSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// GetBySubmission fetches the schedule created for a submission.
func (r *ExamScheduleRepository) GetBySubmission(ctx context.Context, submissionID string) (*models.ExamSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM exam_schedules WHERE submission_id = $1`
	var schedule models.ExamSchedule
	if err := r.db.GetContext(ctx, &schedule, query, submissionID); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// List returns schedules matching filters ordered by exam time, unscheduled last.
func (r *ExamScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ExamSchedule, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 6)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ProgramID != "" {
		args = append(args, filter.ProgramID)
		conditions = append(conditions, fmt.Sprintf("program_id = $%d", len(args)))
	}
	if filter.ExamType != "" {
		args = append(args, filter.ExamType)
		conditions = append(conditions, fmt.Sprintf("exam_type = $%d", len(args)))
	}
	base := " FROM exam_schedules"
	if len(conditions) > 0 {
		base += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s%s ORDER BY scheduled_at ASC NULLS LAST, created_at ASC LIMIT %d OFFSET %d", scheduleColumns, base, limit, offset)
	var schedules []models.ExamSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list exam schedules: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count exam schedules: %w", err)
	}
	return schedules, total, nil
}

// Update writes the mutable schedule columns when the stored version still
// equals expectedVersion. On success schedule.Version is advanced; otherwise
// sql.ErrNoRows is returned.
func (r *ExamScheduleRepository) Update(ctx context.Context, schedule *models.ExamSchedule, expectedVersion int) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exam_schedules
	SET scheduled_at = $1, duration_minutes = $2, location = $3, status = $4, note = $5,
	    verified_by = $6, verified_at = $7, version = version + 1, updated_at = $8
	WHERE id = $9 AND version = $10`
	result, err := r.db.ExecContext(ctx, query,
		schedule.ScheduledAt, schedule.DurationMinutes, schedule.Location, schedule.Status, schedule.Note,
		schedule.VerifiedBy, schedule.VerifiedAt, schedule.UpdatedAt, schedule.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update exam schedule: %w", err)
	}
	if err := requireAffected(result, "exam schedule update"); err != nil {
		return err
	}
	schedule.Version = expectedVersion + 1
	return nil
}

// CountPending counts schedules awaiting verification (pending or rescheduled).
func (r *ExamScheduleRepository) CountPending(ctx context.Context, programID string) (int, error) {
	query := `SELECT COUNT(*) FROM exam_schedules WHERE status IN ('pending', 'rescheduled')`
	args := make([]interface{}, 0, 1)
	if programID != "" {
		query += " AND program_id = $1"
		args = append(args, programID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count pending schedules: %w", err)
	}
	return count, nil
}
