package models

import (
	"time"

	"github.com/lib/pq"
)

// ExamType identifies the workflow stage a submission belongs to.
type ExamType string

const (
	ExamTypeProposal ExamType = "proposal"
	ExamTypeResult   ExamType = "result"
	ExamTypeFinal    ExamType = "final"
)

// Valid reports whether the exam type is one of the supported stages.
func (t ExamType) Valid() bool {
	switch t {
	case ExamTypeProposal, ExamTypeResult, ExamTypeFinal:
		return true
	}
	return false
}

// SubmissionStatus captures the review lifecycle of a thesis title.
type SubmissionStatus string

const (
	SubmissionStatusPending       SubmissionStatus = "pending"
	SubmissionStatusApproved      SubmissionStatus = "approved"
	SubmissionStatusRejected      SubmissionStatus = "rejected"
	SubmissionStatusNeedsRevision SubmissionStatus = "needs_revision"
	SubmissionStatusWithdrawn     SubmissionStatus = "withdrawn"
)

var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionStatusPending: {
		SubmissionStatusApproved,
		SubmissionStatusRejected,
		SubmissionStatusNeedsRevision,
		SubmissionStatusWithdrawn,
	},
	SubmissionStatusNeedsRevision: {SubmissionStatusPending, SubmissionStatusWithdrawn},
	SubmissionStatusApproved:      {SubmissionStatusWithdrawn},
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	for _, candidate := range submissionTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Reviewed reports whether a review decision has already been recorded.
func (s SubmissionStatus) Reviewed() bool {
	return s == SubmissionStatusApproved || s == SubmissionStatusRejected || s == SubmissionStatusNeedsRevision
}

// Active statuses block a student from opening another submission.
func (s SubmissionStatus) Active() bool {
	for _, active := range ActiveSubmissionStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// ActiveSubmissionStatuses lists the statuses counted by the one-active rule.
var ActiveSubmissionStatuses = []SubmissionStatus{SubmissionStatusPending, SubmissionStatusApproved}

// ReviewAction is a reviewer decision on a pending submission.
type ReviewAction string

const (
	ReviewActionApprove       ReviewAction = "approve"
	ReviewActionReject        ReviewAction = "reject"
	ReviewActionNeedsRevision ReviewAction = "needs_revision"
)

// TargetStatus maps a review action onto the submission status it produces.
func (a ReviewAction) TargetStatus() (SubmissionStatus, bool) {
	switch a {
	case ReviewActionApprove:
		return SubmissionStatusApproved, true
	case ReviewActionReject:
		return SubmissionStatusRejected, true
	case ReviewActionNeedsRevision:
		return SubmissionStatusNeedsRevision, true
	case ReviewAction(SubmissionStatusPending):
		return SubmissionStatusPending, true
	}
	return "", false
}

// RequiresNote reports whether the action must carry reviewer feedback.
func (a ReviewAction) RequiresNote() bool {
	return a == ReviewActionReject || a == ReviewActionNeedsRevision
}

// ThesisSubmission is a student's candidate thesis title under review.
type ThesisSubmission struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"studentId"`
	ProgramID    string           `db:"program_id" json:"programId"`
	Stage        ExamType         `db:"stage" json:"stage"`
	Title        string           `db:"title" json:"title"`
	Abstract     string           `db:"abstract" json:"abstract"`
	Keywords     pq.StringArray   `db:"keywords" json:"keywords"`
	Status       SubmissionStatus `db:"status" json:"status"`
	FeedbackNote *string          `db:"feedback_note" json:"feedbackNote,omitempty"`
	Similarity   SimilarityResult `db:"similarity" json:"similarity"`
	ReviewedBy   *string          `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt   *time.Time       `db:"reviewed_at" json:"reviewedAt,omitempty"`
	Version      int              `db:"version" json:"version"`
	CreatedAt    time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updatedAt"`
}

// SubmissionFilter constrains listing queries.
type SubmissionFilter struct {
	Status    []SubmissionStatus
	StudentID string
	ProgramID string
	Stage     ExamType
	Page      int
	PageSize  int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
