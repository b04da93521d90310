package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/thesis-pipeline-api/internal/committee"
	"github.com/noah-isme/thesis-pipeline-api/internal/dto"
	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	"github.com/noah-isme/thesis-pipeline-api/internal/repository"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
)

type committeeStore interface {
	GetByID(ctx context.Context, id string) (*models.CommitteeAssignment, error)
	GetBySchedule(ctx context.Context, scheduleID string) (*models.CommitteeAssignment, error)
	AddMember(ctx context.Context, assignmentID string, expectedVersion int, member models.CommitteeMember) error
	RemoveMember(ctx context.Context, assignmentID string, expectedVersion int, role models.CommitteeRole) error
}

type scheduleReader interface {
	GetByID(ctx context.Context, id string) (*models.ExamSchedule, error)
}

type lecturerDirectory interface {
	Active(ctx context.Context, id string) (*models.Lecturer, error)
}

// CommitteeServiceParams groups the collaborators of CommitteeService.
type CommitteeServiceParams struct {
	Repo      committeeStore
	Schedules scheduleReader
	Lecturers lecturerDirectory
	Policy    committee.Policy
	Audit     auditLogger
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// CommitteeService persists role assignments decided by the committee engine.
type CommitteeService struct {
	repo      committeeStore
	schedules scheduleReader
	lecturers lecturerDirectory
	policy    committee.Policy
	audit     auditTrail
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCommitteeService constructs the service. A zero policy falls back to
// committee.DefaultPolicy.
func NewCommitteeService(params CommitteeServiceParams) *CommitteeService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	policy := params.Policy
	if len(policy.Requirements) == 0 {
		policy = committee.DefaultPolicy()
	}
	return &CommitteeService{
		repo:      params.Repo,
		schedules: params.Schedules,
		lecturers: params.Lecturers,
		policy:    policy,
		audit:     auditTrail{repo: params.Audit, source: "committee-service", logger: logger},
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Get returns an assignment with its completeness view.
func (s *CommitteeService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.CommitteeResponse, error) {
	assignment, _, err := s.loadScoped(ctx, actor, func() (*models.CommitteeAssignment, error) {
		return s.repo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return s.respond(assignment), nil
}

// GetBySchedule returns the assignment attached to a schedule.
func (s *CommitteeService) GetBySchedule(ctx context.Context, scheduleID string, actor *models.JWTClaims) (*dto.CommitteeResponse, error) {
	assignment, _, err := s.loadScoped(ctx, actor, func() (*models.CommitteeAssignment, error) {
		return s.repo.GetBySchedule(ctx, scheduleID)
	})
	if err != nil {
		return nil, err
	}
	return s.respond(assignment), nil
}

// Assign seats a lecturer in role. Occupied roles and lecturers already on the
// committee are rejected without changing the assignment.
func (s *CommitteeService) Assign(ctx context.Context, id, rawRole string, req dto.AssignRoleRequest, actor *models.JWTClaims) (*dto.CommitteeResponse, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if err := validatePayload(s.validator, req, "invalid assignment payload"); err != nil {
		return nil, err
	}
	role, err := s.policy.ParseRole(rawRole)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	current, err := s.loadEditable(ctx, id, req.Version, actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.lecturers.Active(ctx, req.LecturerID); err != nil {
		return nil, err
	}

	next, err := committee.Assign(current, role, req.LecturerID, actor.UserID, s.now())
	if err != nil {
		return nil, err
	}
	member, _ := next.Member(role)
	if err := s.repo.AddMember(ctx, current.ID, current.Version, member); err != nil {
		return nil, s.mapWriteError(err)
	}
	next.Version = current.Version + 1
	next.UpdatedAt = member.AssignedAt

	s.audit.record(ctx, actor, models.AuditActionCommitteeAssign, "committee_assignment", next.ID, current, next)
	s.logger.Info("committee role assigned",
		zap.String("assignment_id", next.ID),
		zap.String("role", string(role)),
		zap.String("lecturer_id", req.LecturerID))
	return s.respond(next), nil
}

// Unassign vacates role. Vacating an empty role returns the assignment unchanged.
func (s *CommitteeService) Unassign(ctx context.Context, id, rawRole string, req dto.UnassignRoleRequest, actor *models.JWTClaims) (*dto.CommitteeResponse, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	role, err := s.policy.ParseRole(rawRole)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	current, err := s.loadEditable(ctx, id, req.Version, actor)
	if err != nil {
		return nil, err
	}
	if _, filled := current.Member(role); !filled {
		return s.respond(current), nil
	}

	next := committee.Unassign(current, role)
	if err := s.repo.RemoveMember(ctx, current.ID, current.Version, role); err != nil {
		return nil, s.mapWriteError(err)
	}
	next.Version = current.Version + 1
	next.UpdatedAt = s.now()

	s.audit.record(ctx, actor, models.AuditActionCommitteeUnassign, "committee_assignment", next.ID, current, next)
	return s.respond(next), nil
}

func (s *CommitteeService) respond(assignment *models.CommitteeAssignment) *dto.CommitteeResponse {
	missing := s.policy.Missing(assignment, assignment.ExamType)
	return &dto.CommitteeResponse{
		Assignment:   assignment,
		Complete:     len(missing) == 0,
		MissingRoles: missing,
	}
}

func (s *CommitteeService) authorize(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !isReviewer(actor) {
		return appErrors.Clone(appErrors.ErrForbidden, "only program administrators can manage committees")
	}
	return nil
}

func (s *CommitteeService) loadEditable(ctx context.Context, id string, version *int, actor *models.JWTClaims) (*models.CommitteeAssignment, error) {
	assignment, schedule, err := s.loadScoped(ctx, actor, func() (*models.CommitteeAssignment, error) {
		return s.repo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if schedule.Status == models.ScheduleStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "exam schedule is cancelled")
	}
	if err := checkVersion(version, assignment.Version); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *CommitteeService) loadScoped(ctx context.Context, actor *models.JWTClaims, fetch func() (*models.CommitteeAssignment, error)) (*models.CommitteeAssignment, *models.ExamSchedule, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleStudent {
		return nil, nil, appErrors.ErrForbidden
	}
	assignment, err := fetch()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "committee assignment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load committee assignment")
	}
	schedule, err := s.schedules.GetByID(ctx, assignment.ScheduleID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam schedule")
	}
	if actor.Role == models.RoleAdmin && !actor.CanActOnProgram(schedule.ProgramID) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "committee belongs to another program")
	}
	return assignment, schedule, nil
}

func (s *CommitteeService) mapWriteError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.ErrConflict
	case errors.Is(err, repository.ErrRoleTaken):
		return appErrors.ErrRoleOccupied
	case errors.Is(err, repository.ErrLecturerTaken):
		return appErrors.ErrDuplicateLecturer
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update committee assignment")
	}
}
