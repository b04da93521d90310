package committee

import (
	"time"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
)

// Assign returns a copy of a with lecturerID seated in role. The input is not
// modified.
func Assign(a *models.CommitteeAssignment, role models.CommitteeRole, lecturerID, actorID string, at time.Time) (*models.CommitteeAssignment, error) {
	if lecturerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lecturerId is required")
	}
	if _, filled := a.Member(role); filled {
		return nil, appErrors.Clone(appErrors.ErrRoleOccupied, "role "+string(role)+" is already filled")
	}
	if held, ok := a.RoleOf(lecturerID); ok {
		return nil, appErrors.Clone(appErrors.ErrDuplicateLecturer, "lecturer already serves as "+string(held))
	}
	next := clone(a)
	next.Members = append(next.Members, models.CommitteeMember{
		AssignmentID: a.ID,
		Role:         role,
		LecturerID:   lecturerID,
		AssignedBy:   actorID,
		AssignedAt:   at,
	})
	return next, nil
}

// Unassign returns a copy of a with role vacated. Vacating an empty role is a
// no-op so the call is idempotent.
func Unassign(a *models.CommitteeAssignment, role models.CommitteeRole) *models.CommitteeAssignment {
	next := clone(a)
	members := next.Members[:0]
	for _, m := range next.Members {
		if m.Role != role {
			members = append(members, m)
		}
	}
	next.Members = members
	return next
}

func clone(a *models.CommitteeAssignment) *models.CommitteeAssignment {
	next := *a
	next.Members = append([]models.CommitteeMember(nil), a.Members...)
	return &next
}
