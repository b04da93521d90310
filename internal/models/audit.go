package models

import "time"

// Audit actions emitted by the thesis workflow.
const (
	AuditActionSubmissionCreate   = "SUBMISSION_CREATE"
	AuditActionSubmissionResubmit = "SUBMISSION_RESUBMIT"
	AuditActionSubmissionReview   = "SUBMISSION_REVIEW"
	AuditActionSubmissionWithdraw = "SUBMISSION_WITHDRAW"
	AuditActionScheduleUpdate     = "SCHEDULE_UPDATE"
	AuditActionScheduleTransition = "SCHEDULE_TRANSITION"
	AuditActionCommitteeAssign    = "COMMITTEE_ASSIGN"
	AuditActionCommitteeUnassign  = "COMMITTEE_UNASSIGN"
	AuditActionSimilarityExport   = "SIMILARITY_EXPORT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// PendingCounts summarises outstanding workflow actions.
type PendingCounts struct {
	PendingSubmissions    int `json:"pendingSubmissions"`
	PendingSchedules      int `json:"pendingSchedules"`
	IncompleteAssignments int `json:"incompleteAssignments"`
}
