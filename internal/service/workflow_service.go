package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/thesis-pipeline-api/internal/committee"
	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
)

type submissionCounter interface {
	CountByStatus(ctx context.Context, status models.SubmissionStatus, programID string) (int, error)
}

type scheduleCounter interface {
	CountPending(ctx context.Context, programID string) (int, error)
}

type openAssignmentLister interface {
	ListOpen(ctx context.Context, programID string) ([]models.CommitteeAssignment, error)
}

// WorkflowService aggregates outstanding work across the pipeline. Counts are
// read from committed state on every call.
type WorkflowService struct {
	submissions submissionCounter
	schedules   scheduleCounter
	committees  openAssignmentLister
	policy      committee.Policy
	logger      *zap.Logger
}

// NewWorkflowService constructs the aggregator.
func NewWorkflowService(submissions submissionCounter, schedules scheduleCounter, committees openAssignmentLister, policy committee.Policy, logger *zap.Logger) *WorkflowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(policy.Requirements) == 0 {
		policy = committee.DefaultPolicy()
	}
	return &WorkflowService{submissions: submissions, schedules: schedules, committees: committees, policy: policy, logger: logger}
}

// PendingCounts returns pending submissions, schedules awaiting verification
// and committees missing required roles. Administrators see their program only.
func (s *WorkflowService) PendingCounts(ctx context.Context, actor *models.JWTClaims) (*models.PendingCounts, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !isReviewer(actor) {
		return nil, appErrors.ErrForbidden
	}
	programID := ""
	if actor.Role == models.RoleAdmin {
		programID = actor.ProgramID
	}

	counts := &models.PendingCounts{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.submissions.CountByStatus(gctx, models.SubmissionStatusPending, programID)
		counts.PendingSubmissions = n
		return err
	})
	g.Go(func() error {
		n, err := s.schedules.CountPending(gctx, programID)
		counts.PendingSchedules = n
		return err
	})
	g.Go(func() error {
		assignments, err := s.committees.ListOpen(gctx, programID)
		if err != nil {
			return err
		}
		incomplete := 0
		for i := range assignments {
			if !s.policy.IsComplete(&assignments[i], assignments[i].ExamType) {
				incomplete++
			}
		}
		counts.IncompleteAssignments = incomplete
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("pending counts failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate pending counts")
	}
	return counts, nil
}
