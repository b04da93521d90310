package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced from unique-index violations.
var (
	ErrActiveSubmissionExists = errors.New("student already has an active submission")
	ErrRoleTaken              = errors.New("committee role already filled")
	ErrLecturerTaken          = errors.New("lecturer already assigned to committee")
)

const (
	uniqueViolation = "23505"

	constraintOneActiveSubmission = "thesis_submissions_one_active_idx"
	constraintCommitteeRole       = "committee_members_assignment_role_key"
	constraintCommitteeLecturer   = "committee_members_assignment_lecturer_key"
)

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}
