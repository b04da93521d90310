package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
)

const submissionColumns = `id, student_id, program_id, stage, title, abstract, keywords, status, feedback_note,
       similarity, reviewed_by, reviewed_at, version, created_at, updated_at`

// SubmissionRepository persists thesis title submissions and the approval
// side effects that must commit with them.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a new submission. A concurrent active submission for the
// same student surfaces as ErrActiveSubmissionExists.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.ThesisSubmission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.Status == "" {
		submission.Status = models.SubmissionStatusPending
	}
	now := time.Now().UTC()
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = now
	}
	submission.UpdatedAt = submission.CreatedAt
	if submission.Version == 0 {
		submission.Version = 1
	}
	const query = `INSERT INTO thesis_submissions
	(id, student_id, program_id, stage, title, abstract, keywords, status, feedback_note, similarity, reviewed_by, reviewed_at, version, created_at, updated_at)
	VALUES (:id, :student_id, :program_id, :stage, :title, :abstract, :keywords, :status, :feedback_note, :similarity, :reviewed_by, :reviewed_at, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		if isUniqueViolation(err, constraintOneActiveSubmission) {
			return ErrActiveSubmissionExists
		}
		return fmt.Errorf("create thesis submission: %w", err)
	}
	return nil
}

// GetByID fetches a submission by identifier.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.ThesisSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM thesis_submissions WHERE id = $1`
	var submission models.ThesisSubmission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// HasActive reports whether studentID holds an active submission other than
// excludeID.
func (r *SubmissionRepository) HasActive(ctx context.Context, studentID, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM thesis_submissions WHERE student_id = $1 AND status = ANY($2) AND id <> $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, activeStatuses(), excludeID); err != nil {
		return false, fmt.Errorf("check active submission: %w", err)
	}
	return exists, nil
}

// List returns submissions matching the filter, newest first, with total count.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.ThesisSubmission, int, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.ProgramID != "" {
		args = append(args, filter.ProgramID)
		conditions = append(conditions, fmt.Sprintf("program_id = $%d", len(args)))
	}
	if filter.Stage != "" {
		args = append(args, filter.Stage)
		conditions = append(conditions, fmt.Sprintf("stage = $%d", len(args)))
	}
	base := " FROM thesis_submissions"
	if len(conditions) > 0 {
		base += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit, offset := pageBounds(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s%s ORDER BY created_at DESC LIMIT %d OFFSET %d", submissionColumns, base, limit, offset)
	var submissions []models.ThesisSubmission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list thesis submissions: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count thesis submissions: %w", err)
	}
	return submissions, total, nil
}

// CountByStatus counts submissions in status, optionally within one program.
func (r *SubmissionRepository) CountByStatus(ctx context.Context, status models.SubmissionStatus, programID string) (int, error) {
	query := `SELECT COUNT(*) FROM thesis_submissions WHERE status = $1`
	args := []interface{}{status}
	if programID != "" {
		query += " AND program_id = $2"
		args = append(args, programID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count submissions by status: %w", err)
	}
	return count, nil
}

// ReviewParams groups the columns written by a review decision.
type ReviewParams struct {
	ID              string
	Status          models.SubmissionStatus
	Note            *string
	ReviewedBy      string
	ReviewedAt      time.Time
	ExpectedVersion int
}

const reviewUpdate = `UPDATE thesis_submissions
	SET status = $1, feedback_note = $2, reviewed_by = $3, reviewed_at = $4, version = version + 1, updated_at = $4
	WHERE id = $5 AND status = 'pending' AND version = $6`

// UpdateReview applies a reject or needs_revision decision. It returns
// sql.ErrNoRows when the row is no longer pending at the expected version.
func (r *SubmissionRepository) UpdateReview(ctx context.Context, params ReviewParams) error {
	result, err := r.db.ExecContext(ctx, reviewUpdate,
		params.Status, params.Note, params.ReviewedBy, params.ReviewedAt, params.ID, params.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("update submission review: %w", err)
	}
	return requireAffected(result, "submission review")
}

// ApproveParams carries the approval decision and the rows it creates.
type ApproveParams struct {
	Review     ReviewParams
	Schedule   *models.ExamSchedule
	Assignment *models.CommitteeAssignment
}

// Approve marks the submission approved and creates its exam schedule and
// empty committee assignment in one transaction. Nothing is written unless
// all three succeed.
func (r *SubmissionRepository) Approve(ctx context.Context, params ApproveParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approval transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	review := params.Review
	result, err := tx.ExecContext(ctx, reviewUpdate,
		models.SubmissionStatusApproved, review.Note, review.ReviewedBy, review.ReviewedAt, review.ID, review.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("approve submission: %w", err)
	}
	if err = requireAffected(result, "submission approval"); err != nil {
		return err
	}

	schedule := params.Schedule
	const scheduleInsert = `INSERT INTO exam_schedules
	(id, submission_id, student_id, program_id, exam_type, scheduled_at, duration_minutes, location, status, note, verified_by, verified_at, version, created_at, updated_at)
	VALUES (:id, :submission_id, :student_id, :program_id, :exam_type, :scheduled_at, :duration_minutes, :location, :status, :note, :verified_by, :verified_at, :version, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, scheduleInsert, schedule); err != nil {
		return fmt.Errorf("create exam schedule: %w", err)
	}

	const assignmentInsert = `INSERT INTO committee_assignments (id, schedule_id, exam_type, version, created_at, updated_at)
	VALUES (:id, :schedule_id, :exam_type, :version, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, assignmentInsert, params.Assignment); err != nil {
		return fmt.Errorf("create committee assignment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit approval: %w", err)
	}
	return nil
}

// ResubmitParams carries revised content for a needs_revision submission.
type ResubmitParams struct {
	ID              string
	Title           string
	Abstract        string
	Keywords        []string
	Similarity      models.SimilarityResult
	UpdatedAt       time.Time
	ExpectedVersion int
}

// Resubmit moves a needs_revision submission back to pending with new
// content, clearing the previous review.
func (r *SubmissionRepository) Resubmit(ctx context.Context, params ResubmitParams) error {
	const query = `UPDATE thesis_submissions
	SET title = $1, abstract = $2, keywords = $3, similarity = $4, status = 'pending', feedback_note = NULL,
	    reviewed_by = NULL, reviewed_at = NULL, version = version + 1, updated_at = $5
	WHERE id = $6 AND status = 'needs_revision' AND version = $7`
	result, err := r.db.ExecContext(ctx, query,
		params.Title, params.Abstract, pq.StringArray(params.Keywords), params.Similarity, params.UpdatedAt, params.ID, params.ExpectedVersion)
	if err != nil {
		if isUniqueViolation(err, constraintOneActiveSubmission) {
			return ErrActiveSubmissionExists
		}
		return fmt.Errorf("resubmit thesis submission: %w", err)
	}
	return requireAffected(result, "submission resubmit")
}

// WithdrawParams identifies the submission state being withdrawn.
type WithdrawParams struct {
	ID              string
	From            models.SubmissionStatus
	Reason          *string
	At              time.Time
	ExpectedVersion int
}

// Withdraw marks the submission withdrawn and cancels its exam schedule, if
// any, in one transaction. It reports whether a schedule was cancelled.
func (r *SubmissionRepository) Withdraw(ctx context.Context, params WithdrawParams) (cancelled bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin withdraw transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const submissionUpdate = `UPDATE thesis_submissions
	SET status = 'withdrawn', feedback_note = COALESCE($1, feedback_note), version = version + 1, updated_at = $2
	WHERE id = $3 AND status = $4 AND version = $5`
	result, err := tx.ExecContext(ctx, submissionUpdate, params.Reason, params.At, params.ID, params.From, params.ExpectedVersion)
	if err != nil {
		return false, fmt.Errorf("withdraw submission: %w", err)
	}
	if err = requireAffected(result, "submission withdraw"); err != nil {
		return false, err
	}

	const scheduleUpdate = `UPDATE exam_schedules
	SET status = 'cancelled', note = COALESCE($1, note), version = version + 1, updated_at = $2
	WHERE submission_id = $3 AND status <> 'cancelled'`
	result, err = tx.ExecContext(ctx, scheduleUpdate, params.Reason, params.At, params.ID)
	if err != nil {
		return false, fmt.Errorf("cancel schedule on withdraw: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check cancelled schedules: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit withdraw: %w", err)
	}
	return rows > 0, nil
}

func requireAffected(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func activeStatuses() pq.StringArray {
	out := make(pq.StringArray, 0, len(models.ActiveSubmissionStatuses))
	for _, status := range models.ActiveSubmissionStatuses {
		out = append(out, string(status))
	}
	return out
}
