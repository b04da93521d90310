package dto

import "github.com/noah-isme/thesis-pipeline-api/internal/models"

// AssignRoleRequest seats a lecturer in a committee role.
type AssignRoleRequest struct {
	LecturerID string `json:"lecturerId" validate:"required"`
	Version    *int   `json:"version,omitempty"`
}

// UnassignRoleRequest optionally pins the assignment version.
type UnassignRoleRequest struct {
	Version *int `json:"version,omitempty"`
}

// CommitteeResponse wraps an assignment with its completeness view.
type CommitteeResponse struct {
	Assignment   *models.CommitteeAssignment `json:"assignment"`
	Complete     bool                        `json:"complete"`
	MissingRoles []string                    `json:"missingRoles"`
}

// LecturerQuery mirrors lecturer directory filters.
type LecturerQuery struct {
	Department string
	Search     string
	Page       int
	PageSize   int
}
