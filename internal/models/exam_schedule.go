package models

import "time"

// ScheduleStatus tracks verification of an exam schedule.
type ScheduleStatus string

const (
	ScheduleStatusPending     ScheduleStatus = "pending"
	ScheduleStatusVerified    ScheduleStatus = "verified"
	ScheduleStatusRescheduled ScheduleStatus = "rescheduled"
	ScheduleStatusCancelled   ScheduleStatus = "cancelled"
)

var scheduleTransitions = map[ScheduleStatus][]ScheduleStatus{
	ScheduleStatusPending:     {ScheduleStatusVerified, ScheduleStatusRescheduled, ScheduleStatusCancelled},
	ScheduleStatusVerified:    {ScheduleStatusRescheduled, ScheduleStatusCancelled},
	ScheduleStatusRescheduled: {ScheduleStatusVerified, ScheduleStatusCancelled},
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s ScheduleStatus) CanTransitionTo(next ScheduleStatus) bool {
	for _, candidate := range scheduleTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// AcceptsDateTime reports whether the date/location may be edited in this state.
func (s ScheduleStatus) AcceptsDateTime() bool {
	return s == ScheduleStatusPending || s == ScheduleStatusRescheduled
}

// ExamSchedule is the exam slot created for an approved submission.
type ExamSchedule struct {
	ID              string         `db:"id" json:"id"`
	SubmissionID    string         `db:"submission_id" json:"submissionId"`
	StudentID       string         `db:"student_id" json:"studentId"`
	ProgramID       string         `db:"program_id" json:"programId"`
	ExamType        ExamType       `db:"exam_type" json:"examType"`
	ScheduledAt     *time.Time     `db:"scheduled_at" json:"scheduledAt,omitempty"`
	DurationMinutes int            `db:"duration_minutes" json:"durationMinutes"`
	Location        *string        `db:"location" json:"location,omitempty"`
	Status          ScheduleStatus `db:"status" json:"status"`
	Note            *string        `db:"note" json:"note,omitempty"`
	VerifiedBy      *string        `db:"verified_by" json:"verifiedBy,omitempty"`
	VerifiedAt      *time.Time     `db:"verified_at" json:"verifiedAt,omitempty"`
	Version         int            `db:"version" json:"version"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// HasSlot reports whether both date/time and location are set.
func (s *ExamSchedule) HasSlot() bool {
	return s.ScheduledAt != nil && !s.ScheduledAt.IsZero() && s.Location != nil && *s.Location != ""
}

// ScheduleFilter constrains schedule listing.
type ScheduleFilter struct {
	Status    []ScheduleStatus
	ProgramID string
	ExamType  ExamType
	Page      int
	PageSize  int
}
