package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
)

// CommitteeRepository persists committee assignments and their role seats.
type CommitteeRepository struct {
	db *sqlx.DB
}

// NewCommitteeRepository constructs the repository.
func NewCommitteeRepository(db *sqlx.DB) *CommitteeRepository {
	return &CommitteeRepository{db: db}
}

// GetByID loads an assignment with its members.
func (r *CommitteeRepository) GetByID(ctx context.Context, id string) (*models.CommitteeAssignment, error) {
	const query = `SELECT id, schedule_id, exam_type, version, created_at, updated_at FROM committee_assignments WHERE id = $1`
	return r.loadOne(ctx, query, id)
}

// GetBySchedule loads the assignment attached to a schedule with its members.
func (r *CommitteeRepository) GetBySchedule(ctx context.Context, scheduleID string) (*models.CommitteeAssignment, error) {
	const query = `SELECT id, schedule_id, exam_type, version, created_at, updated_at FROM committee_assignments WHERE schedule_id = $1`
	return r.loadOne(ctx, query, scheduleID)
}

func (r *CommitteeRepository) loadOne(ctx context.Context, query string, arg string) (*models.CommitteeAssignment, error) {
	var assignment models.CommitteeAssignment
	if err := r.db.GetContext(ctx, &assignment, query, arg); err != nil {
		return nil, err
	}
	members, err := r.members(ctx, []string{assignment.ID})
	if err != nil {
		return nil, err
	}
	assignment.Members = members[assignment.ID]
	if assignment.Members == nil {
		assignment.Members = []models.CommitteeMember{}
	}
	return &assignment, nil
}

func (r *CommitteeRepository) members(ctx context.Context, assignmentIDs []string) (map[string][]models.CommitteeMember, error) {
	const query = `SELECT assignment_id, role, lecturer_id, assigned_by, assigned_at
	FROM committee_members WHERE assignment_id = ANY($1) ORDER BY assigned_at ASC, role ASC`
	var rows []models.CommitteeMember
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(assignmentIDs)); err != nil {
		return nil, fmt.Errorf("list committee members: %w", err)
	}
	grouped := make(map[string][]models.CommitteeMember, len(assignmentIDs))
	for _, row := range rows {
		grouped[row.AssignmentID] = append(grouped[row.AssignmentID], row)
	}
	return grouped, nil
}

// ListOpen returns assignments whose schedule is not cancelled, optionally
// within one program, with members loaded.
func (r *CommitteeRepository) ListOpen(ctx context.Context, programID string) ([]models.CommitteeAssignment, error) {
	query := `SELECT ca.id, ca.schedule_id, ca.exam_type, ca.version, ca.created_at, ca.updated_at
	FROM committee_assignments ca
	JOIN exam_schedules es ON es.id = ca.schedule_id
	WHERE es.status <> 'cancelled'`
	args := make([]interface{}, 0, 1)
	if programID != "" {
		query += " AND es.program_id = $1"
		args = append(args, programID)
	}
	query += " ORDER BY ca.created_at ASC"

	var assignments []models.CommitteeAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list open committee assignments: %w", err)
	}
	if len(assignments) == 0 {
		return assignments, nil
	}
	ids := make([]string, len(assignments))
	for i := range assignments {
		ids[i] = assignments[i].ID
	}
	members, err := r.members(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range assignments {
		assignments[i].Members = members[assignments[i].ID]
	}
	return assignments, nil
}

// AddMember seats member after bumping the assignment version from
// expectedVersion. sql.ErrNoRows signals a stale version; unique index
// violations map to ErrRoleTaken or ErrLecturerTaken.
func (r *CommitteeRepository) AddMember(ctx context.Context, assignmentID string, expectedVersion int, member models.CommitteeMember) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin committee transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = bumpAssignment(ctx, tx, assignmentID, expectedVersion); err != nil {
		return err
	}
	member.AssignmentID = assignmentID
	const insert = `INSERT INTO committee_members (assignment_id, role, lecturer_id, assigned_by, assigned_at)
	VALUES (:assignment_id, :role, :lecturer_id, :assigned_by, :assigned_at)`
	if _, err = tx.NamedExecContext(ctx, insert, member); err != nil {
		switch {
		case isUniqueViolation(err, constraintCommitteeRole):
			err = ErrRoleTaken
		case isUniqueViolation(err, constraintCommitteeLecturer):
			err = ErrLecturerTaken
		default:
			err = fmt.Errorf("insert committee member: %w", err)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit committee member: %w", err)
	}
	return nil
}

// RemoveMember vacates role after bumping the assignment version.
func (r *CommitteeRepository) RemoveMember(ctx context.Context, assignmentID string, expectedVersion int, role models.CommitteeRole) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin committee transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = bumpAssignment(ctx, tx, assignmentID, expectedVersion); err != nil {
		return err
	}
	const remove = `DELETE FROM committee_members WHERE assignment_id = $1 AND role = $2`
	if _, err = tx.ExecContext(ctx, remove, assignmentID, role); err != nil {
		return fmt.Errorf("delete committee member: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit committee member removal: %w", err)
	}
	return nil
}

func bumpAssignment(ctx context.Context, tx *sqlx.Tx, assignmentID string, expectedVersion int) error {
	const query = `UPDATE committee_assignments SET version = version + 1, updated_at = $1 WHERE id = $2 AND version = $3`
	result, err := tx.ExecContext(ctx, query, time.Now().UTC(), assignmentID, expectedVersion)
	if err != nil {
		return fmt.Errorf("bump committee assignment version: %w", err)
	}
	return requireAffected(result, "committee assignment")
}
