package committee

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
)

func seat(t *testing.T, a *models.CommitteeAssignment, role models.CommitteeRole, lecturer string) *models.CommitteeAssignment {
	t.Helper()
	next, err := Assign(a, role, lecturer, "admin-1", time.Now())
	require.NoError(t, err)
	return next
}

func TestFinalCommitteeCompleteness(t *testing.T) {
	policy := DefaultPolicy()
	a := &models.CommitteeAssignment{ID: "ca-1", ExamType: models.ExamTypeFinal}

	a = seat(t, a, models.RoleSupervisor1, "lec-1")
	a = seat(t, a, "examiner_1", "lec-2")
	a = seat(t, a, models.RoleChair, "lec-3")
	assert.False(t, policy.IsComplete(a, models.ExamTypeFinal))
	assert.Equal(t, []string{"secretary", "supervisor_2"}, policy.Missing(a, models.ExamTypeFinal))
	assert.True(t, policy.IsComplete(a, models.ExamTypeProposal))

	a = seat(t, a, models.RoleSupervisor2, "lec-4")
	a = seat(t, a, models.RoleSecretary, "lec-5")
	assert.True(t, policy.IsComplete(a, models.ExamTypeFinal))
}

func TestProposalNeedsExaminer(t *testing.T) {
	policy := DefaultPolicy()
	a := &models.CommitteeAssignment{ID: "ca-1"}
	a = seat(t, a, models.RoleSupervisor1, "lec-1")
	a = seat(t, a, models.RoleChair, "lec-2")
	assert.Equal(t, []string{"examiner"}, policy.Missing(a, models.ExamTypeProposal))
	a = seat(t, a, "examiner_2", "lec-3")
	assert.True(t, policy.IsComplete(a, models.ExamTypeResult))
}

func TestAssignRejectsOccupiedRole(t *testing.T) {
	a := seat(t, &models.CommitteeAssignment{ID: "ca-1"}, models.RoleChair, "lec-1")
	_, err := Assign(a, models.RoleChair, "lec-2", "admin-1", time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrRoleOccupied))
}

func TestAssignRejectsDuplicateLecturerWithoutMutation(t *testing.T) {
	a := seat(t, &models.CommitteeAssignment{ID: "ca-1"}, models.RoleChair, "lec-1")
	_, err := Assign(a, models.RoleSecretary, "lec-1", "admin-1", time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateLecturer))
	require.Len(t, a.Members, 1)
	assert.Equal(t, models.RoleChair, a.Members[0].Role)
}

func TestUnassignIsIdempotentAndPure(t *testing.T) {
	a := seat(t, &models.CommitteeAssignment{ID: "ca-1"}, models.RoleChair, "lec-1")
	a = seat(t, a, models.RoleSecretary, "lec-2")

	next := Unassign(a, models.RoleChair)
	assert.Len(t, a.Members, 2)
	require.Len(t, next.Members, 1)
	assert.Equal(t, models.RoleSecretary, next.Members[0].Role)

	again := Unassign(next, models.RoleChair)
	assert.Equal(t, next.Members, again.Members)

	reseated, err := Assign(next, models.RoleChair, "lec-1", "admin-1", time.Now())
	require.NoError(t, err)
	assert.Len(t, reseated.Members, 2)
}

func TestParseRole(t *testing.T) {
	policy := DefaultPolicy()
	role, err := policy.ParseRole(" Examiner_3 ")
	require.NoError(t, err)
	assert.Equal(t, models.CommitteeRole("examiner_3"), role)

	_, err = policy.ParseRole("examiner_4")
	assert.Error(t, err)
	_, err = policy.ParseRole("examiner_0")
	assert.Error(t, err)
	_, err = policy.ParseRole("dean")
	assert.Error(t, err)
	assert.Len(t, policy.Roles(), 7)
}

func TestPolicyFromConfig(t *testing.T) {
	policy, err := PolicyFromConfig(2, map[string][]string{
		"final":    {"supervisor_1", "chair"},
		"proposal": nil,
	}, map[string]int{"final": 2})
	require.NoError(t, err)
	assert.Equal(t, 2, policy.MaxExaminers)
	assert.Equal(t, []models.CommitteeRole{models.RoleSupervisor1, models.RoleChair}, policy.Requirements[models.ExamTypeFinal].Roles)
	assert.Equal(t, 2, policy.Requirements[models.ExamTypeFinal].MinExaminers)
	assert.Equal(t, DefaultPolicy().Requirements[models.ExamTypeProposal], policy.Requirements[models.ExamTypeProposal])

	_, err = PolicyFromConfig(3, map[string][]string{"thesis": {"chair"}}, nil)
	assert.Error(t, err)
	_, err = PolicyFromConfig(3, map[string][]string{"final": {"dean"}}, nil)
	assert.Error(t, err)
	_, err = PolicyFromConfig(1, nil, map[string]int{"final": 2})
	assert.Error(t, err)
}
