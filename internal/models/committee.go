package models

import "time"

// CommitteeRole names a seat on an exam committee.
type CommitteeRole string

const (
	RoleSupervisor1 CommitteeRole = "supervisor_1"
	RoleSupervisor2 CommitteeRole = "supervisor_2"
	RoleChair       CommitteeRole = "chair"
	RoleSecretary   CommitteeRole = "secretary"

	examinerRolePrefix = "examiner_"
)

// IsExaminer reports whether the role is one of the numbered examiner seats.
func (r CommitteeRole) IsExaminer() bool {
	return len(r) > len(examinerRolePrefix) && string(r[:len(examinerRolePrefix)]) == examinerRolePrefix
}

// CommitteeMember binds one lecturer to one role.
type CommitteeMember struct {
	AssignmentID string        `db:"assignment_id" json:"-"`
	Role         CommitteeRole `db:"role" json:"role"`
	LecturerID   string        `db:"lecturer_id" json:"lecturerId"`
	AssignedBy   string        `db:"assigned_by" json:"assignedBy"`
	AssignedAt   time.Time     `db:"assigned_at" json:"assignedAt"`
}

// CommitteeAssignment holds the role slots for one exam schedule.
type CommitteeAssignment struct {
	ID         string            `db:"id" json:"id"`
	ScheduleID string            `db:"schedule_id" json:"scheduleId"`
	ExamType   ExamType          `db:"exam_type" json:"examType"`
	Version    int               `db:"version" json:"version"`
	CreatedAt  time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updatedAt"`
	Members    []CommitteeMember `db:"-" json:"members"`
}

// Member returns the member holding role, if any.
func (a *CommitteeAssignment) Member(role CommitteeRole) (CommitteeMember, bool) {
	for _, m := range a.Members {
		if m.Role == role {
			return m, true
		}
	}
	return CommitteeMember{}, false
}

// RoleOf returns the role held by lecturerID, if any.
func (a *CommitteeAssignment) RoleOf(lecturerID string) (CommitteeRole, bool) {
	for _, m := range a.Members {
		if m.LecturerID == lecturerID {
			return m.Role, true
		}
	}
	return "", false
}

// Lecturer is a read-only directory entry.
type Lecturer struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Department string    `db:"department" json:"department"`
	Expertise  *string   `db:"expertise" json:"expertise,omitempty"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// LecturerFilter captures directory listing options.
type LecturerFilter struct {
	Department string
	Search     string
	Page       int
	PageSize   int
}
