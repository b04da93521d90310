package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/thesis-pipeline-api/internal/dto"
	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
)

type scheduleStore interface {
	GetByID(ctx context.Context, id string) (*models.ExamSchedule, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ExamSchedule, int, error)
	Update(ctx context.Context, schedule *models.ExamSchedule, expectedVersion int) error
}

// ScheduleService owns the exam schedule verification state machine.
type ScheduleService struct {
	repo      scheduleStore
	audit     auditTrail
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduleService constructs the service.
func NewScheduleService(repo scheduleStore, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ScheduleService{
		repo:      repo,
		audit:     auditTrail{repo: audit, source: "schedule-service", logger: logger},
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetDateTime fills the exam slot of a pending or rescheduled schedule.
func (s *ScheduleService) SetDateTime(ctx context.Context, id string, req dto.SetScheduleDateTimeRequest, actor *models.JWTClaims) (*models.ExamSchedule, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if err := validatePayload(s.validator, req, "invalid schedule payload"); err != nil {
		return nil, err
	}
	location := optionalString(req.Location)
	if location == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "location is required")
	}
	now := s.now()
	if !req.ScheduledAt.After(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduledAt must be in the future")
	}

	schedule, err := s.loadScoped(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(req.Version, schedule.Version); err != nil {
		return nil, err
	}
	if !schedule.Status.AcceptsDateTime() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "date and location can only change while pending or rescheduled")
	}

	before := *schedule
	at := req.ScheduledAt.UTC()
	schedule.ScheduledAt = &at
	schedule.Location = location
	if req.DurationMinutes > 0 {
		schedule.DurationMinutes = req.DurationMinutes
	}
	if err := s.save(ctx, schedule, before.Version); err != nil {
		return nil, err
	}
	s.audit.record(ctx, actor, models.AuditActionScheduleUpdate, "exam_schedule", schedule.ID, before, schedule)
	return schedule, nil
}

// Verify confirms a schedule whose date and location are set.
func (s *ScheduleService) Verify(ctx context.Context, id string, req dto.ScheduleTransitionRequest, actor *models.JWTClaims) (*models.ExamSchedule, error) {
	return s.transition(ctx, id, req.Version, actor, models.ScheduleStatusVerified, func(schedule *models.ExamSchedule, now time.Time) error {
		if !schedule.HasSlot() {
			return appErrors.ErrIncompleteSchedule
		}
		schedule.VerifiedBy = &actor.UserID
		schedule.VerifiedAt = &now
		if note := optionalString(req.Note); note != nil {
			schedule.Note = note
		}
		return nil
	})
}

// Reschedule reopens a schedule before its exam date, clearing the date so a
// new one must be set before re-verification.
func (s *ScheduleService) Reschedule(ctx context.Context, id string, req dto.ScheduleTransitionRequest, actor *models.JWTClaims) (*models.ExamSchedule, error) {
	return s.transition(ctx, id, req.Version, actor, models.ScheduleStatusRescheduled, func(schedule *models.ExamSchedule, now time.Time) error {
		if schedule.ScheduledAt != nil && !now.Before(*schedule.ScheduledAt) {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "exam date has already passed")
		}
		schedule.ScheduledAt = nil
		schedule.VerifiedBy = nil
		schedule.VerifiedAt = nil
		if note := optionalString(req.Note); note != nil {
			schedule.Note = note
		}
		return nil
	})
}

// Cancel terminates a schedule. The reason is required.
func (s *ScheduleService) Cancel(ctx context.Context, id string, req dto.CancelScheduleRequest, actor *models.JWTClaims) (*models.ExamSchedule, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	reason := optionalString(req.Reason)
	if reason == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a cancellation reason is required")
	}
	if err := validatePayload(s.validator, req, "invalid cancel payload"); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, req.Version, actor, models.ScheduleStatusCancelled, func(schedule *models.ExamSchedule, _ time.Time) error {
		schedule.Note = reason
		return nil
	})
}

func (s *ScheduleService) transition(ctx context.Context, id string, version *int, actor *models.JWTClaims, target models.ScheduleStatus, apply func(*models.ExamSchedule, time.Time) error) (*models.ExamSchedule, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	schedule, err := s.loadScoped(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(version, schedule.Version); err != nil {
		return nil, err
	}
	if !schedule.Status.CanTransitionTo(target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move schedule from "+string(schedule.Status)+" to "+string(target))
	}

	before := *schedule
	if err := apply(schedule, s.now()); err != nil {
		return nil, err
	}
	schedule.Status = target
	if err := s.save(ctx, schedule, before.Version); err != nil {
		return nil, err
	}

	s.metrics.RecordTransition("exam_schedule", string(before.Status), string(target))
	s.audit.record(ctx, actor, models.AuditActionScheduleTransition, "exam_schedule", schedule.ID, before, schedule)
	s.logger.Info("exam schedule transitioned",
		zap.String("schedule_id", schedule.ID),
		zap.String("from", string(before.Status)),
		zap.String("to", string(target)))
	return schedule, nil
}

// Get returns a schedule visible to actor.
func (s *ScheduleService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ExamSchedule, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleStudent {
		return nil, appErrors.ErrForbidden
	}
	return s.loadScoped(ctx, id, actor)
}

// List returns schedules; administrators only see their own program.
func (s *ScheduleService) List(ctx context.Context, query dto.ScheduleQuery, actor *models.JWTClaims) ([]models.ExamSchedule, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if actor.Role == models.RoleStudent {
		return nil, nil, appErrors.ErrForbidden
	}
	filter := models.ScheduleFilter{Status: query.Status, ProgramID: query.ProgramID, ExamType: query.ExamType, Page: query.Page, PageSize: query.PageSize}
	if actor.Role == models.RoleAdmin {
		filter.ProgramID = actor.ProgramID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam schedules")
	}
	return schedules, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func (s *ScheduleService) authorize(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if !isReviewer(actor) {
		return appErrors.Clone(appErrors.ErrForbidden, "only program administrators can manage exam schedules")
	}
	return nil
}

func (s *ScheduleService) loadScoped(ctx context.Context, id string, actor *models.JWTClaims) (*models.ExamSchedule, error) {
	schedule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam schedule")
	}
	if actor.Role == models.RoleAdmin && !actor.CanActOnProgram(schedule.ProgramID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exam schedule belongs to another program")
	}
	return schedule, nil
}

func (s *ScheduleService) save(ctx context.Context, schedule *models.ExamSchedule, expectedVersion int) error {
	if err := s.repo.Update(ctx, schedule, expectedVersion); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrConflict
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam schedule")
	}
	return nil
}
