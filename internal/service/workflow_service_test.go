package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thesis-pipeline-api/internal/committee"
	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
)

type workflowCountsStub struct {
	programs    []string
	submissions int
	schedules   int
	open        []models.CommitteeAssignment
	err         error
}

func (s *workflowCountsStub) CountByStatus(ctx context.Context, status models.SubmissionStatus, programID string) (int, error) {
	return s.submissions, nil
}

func (s *workflowCountsStub) CountPending(ctx context.Context, programID string) (int, error) {
	return s.schedules, s.err
}

func (s *workflowCountsStub) ListOpen(ctx context.Context, programID string) ([]models.CommitteeAssignment, error) {
	s.programs = append(s.programs, programID)
	return s.open, nil
}

func TestWorkflowPendingCounts(t *testing.T) {
	complete := models.CommitteeAssignment{ID: "a1", ExamType: models.ExamTypeProposal, Members: []models.CommitteeMember{
		{Role: models.RoleSupervisor1, LecturerID: "l1"},
		{Role: models.RoleChair, LecturerID: "l2"},
		{Role: "examiner_1", LecturerID: "l3"},
	}}
	partial := models.CommitteeAssignment{ID: "a2", ExamType: models.ExamTypeFinal, Members: []models.CommitteeMember{
		{Role: models.RoleSupervisor1, LecturerID: "l1"},
	}}
	stub := &workflowCountsStub{submissions: 4, schedules: 2, open: []models.CommitteeAssignment{complete, partial, {ID: "a3", ExamType: models.ExamTypeResult}}}
	svc := NewWorkflowService(stub, stub, stub, committee.DefaultPolicy(), nil)

	counts, err := svc.PendingCounts(context.Background(), adminClaims("admin-1", "cs"))
	require.NoError(t, err)
	assert.Equal(t, 4, counts.PendingSubmissions)
	assert.Equal(t, 2, counts.PendingSchedules)
	assert.Equal(t, 2, counts.IncompleteAssignments)
	assert.Equal(t, []string{"cs"}, stub.programs)

	_, err = svc.PendingCounts(context.Background(), &models.JWTClaims{UserID: "root", Role: models.RoleSuperAdmin})
	require.NoError(t, err)
	assert.Equal(t, "", stub.programs[1])
}

func TestWorkflowPendingCountsErrors(t *testing.T) {
	stub := &workflowCountsStub{err: errors.New("db down")}
	svc := NewWorkflowService(stub, stub, stub, committee.Policy{}, nil)

	_, err := svc.PendingCounts(context.Background(), studentClaims("student-1"))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.PendingCounts(context.Background(), nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.PendingCounts(context.Background(), adminClaims("admin-1", "cs"))
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
