package dto

import (
	"time"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
)

// SetScheduleDateTimeRequest fills or replaces the exam slot.
type SetScheduleDateTimeRequest struct {
	ScheduledAt     time.Time `json:"scheduledAt" validate:"required"`
	Location        string    `json:"location" validate:"required,max=200"`
	DurationMinutes int       `json:"durationMinutes" validate:"omitempty,min=15,max=480"`
	Version         *int      `json:"version,omitempty"`
}

// ScheduleTransitionRequest is shared by verify and reschedule.
type ScheduleTransitionRequest struct {
	Note    string `json:"note" validate:"max=2000"`
	Version *int   `json:"version,omitempty"`
}

// CancelScheduleRequest cancels an exam; the reason is mandatory.
type CancelScheduleRequest struct {
	Reason  string `json:"reason" validate:"required,max=2000"`
	Version *int   `json:"version,omitempty"`
}

// ScheduleQuery mirrors supported listing filters.
type ScheduleQuery struct {
	Status    []models.ScheduleStatus
	ProgramID string
	ExamType  models.ExamType
	Page      int
	PageSize  int
}
