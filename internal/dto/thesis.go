package dto

import "github.com/noah-isme/thesis-pipeline-api/internal/models"

// SubmitThesisRequest captures a new title submission from a student.
type SubmitThesisRequest struct {
	Title    string          `json:"title" validate:"required,max=300"`
	Abstract string          `json:"abstract" validate:"max=10000"`
	Keywords []string        `json:"keywords" validate:"min=1,max=15,dive,max=80"`
	Stage    models.ExamType `json:"stage" validate:"omitempty,oneof=proposal result final"`
}

// ResubmitThesisRequest replaces the content of a submission returned for revision.
type ResubmitThesisRequest struct {
	Title    string   `json:"title" validate:"required,max=300"`
	Abstract string   `json:"abstract" validate:"max=10000"`
	Keywords []string `json:"keywords" validate:"min=1,max=15,dive,max=80"`
	Version  *int     `json:"version,omitempty"`
}

// ReviewSubmissionRequest carries the reviewer decision. Version, when set,
// must match the submission version the reviewer saw.
type ReviewSubmissionRequest struct {
	Action  models.ReviewAction `json:"action" validate:"required"`
	Note    string              `json:"note" validate:"max=2000"`
	Version *int                `json:"version,omitempty"`
}

// WithdrawSubmissionRequest records why a submission is withdrawn.
type WithdrawSubmissionRequest struct {
	Reason  string `json:"reason" validate:"max=2000"`
	Version *int   `json:"version,omitempty"`
}

// SimilarityCheckRequest previews a similarity ranking without persisting.
type SimilarityCheckRequest struct {
	Title    string   `json:"title" validate:"required,max=300"`
	Abstract string   `json:"abstract" validate:"max=10000"`
	Keywords []string `json:"keywords" validate:"max=15,dive,max=80"`
}

// SubmissionQuery mirrors supported listing filters.
type SubmissionQuery struct {
	Status    []models.SubmissionStatus
	StudentID string
	ProgramID string
	Stage     models.ExamType
	Page      int
	PageSize  int
}

// SubmitThesisResponse is returned after a submission is stored.
type SubmitThesisResponse struct {
	SubmissionID     string                   `json:"submissionId"`
	Status           models.SubmissionStatus  `json:"status"`
	Version          int                      `json:"version"`
	SimilarityResult *models.SimilarityResult `json:"similarityResult"`
}

// ReviewSubmissionResponse reports the outcome of a review, including the
// schedule and committee shell created on approval.
type ReviewSubmissionResponse struct {
	Submission *models.ThesisSubmission    `json:"submission"`
	Schedule   *models.ExamSchedule        `json:"schedule,omitempty"`
	Committee  *models.CommitteeAssignment `json:"committee,omitempty"`
}

// CorpusRefreshResponse reports the corpus size after the cache was dropped.
type CorpusRefreshResponse struct {
	Entries int `json:"entries"`
}
