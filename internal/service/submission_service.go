package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/thesis-pipeline-api/internal/dto"
	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	"github.com/noah-isme/thesis-pipeline-api/internal/repository"
	"github.com/noah-isme/thesis-pipeline-api/internal/similarity"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
	"github.com/noah-isme/thesis-pipeline-api/pkg/lock"
)

type submissionStore interface {
	Create(ctx context.Context, submission *models.ThesisSubmission) error
	GetByID(ctx context.Context, id string) (*models.ThesisSubmission, error)
	HasActive(ctx context.Context, studentID, excludeID string) (bool, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.ThesisSubmission, int, error)
	UpdateReview(ctx context.Context, params repository.ReviewParams) error
	Approve(ctx context.Context, params repository.ApproveParams) error
	Resubmit(ctx context.Context, params repository.ResubmitParams) error
	Withdraw(ctx context.Context, params repository.WithdrawParams) (bool, error)
}

type corpusProvider interface {
	Entries(ctx context.Context, field string) ([]models.CorpusEntry, error)
}

type similarityScorer interface {
	Score(ctx context.Context, candidate similarity.Candidate, corpus []models.CorpusEntry) (*models.SimilarityResult, error)
}

// SubmissionServiceParams groups the collaborators of SubmissionService.
type SubmissionServiceParams struct {
	Repo                submissionStore
	Corpus              corpusProvider
	Scorer              similarityScorer
	Locker              lock.Locker
	Audit               auditLogger
	Metrics             *MetricsService
	Validator           *validator.Validate
	Logger              *zap.Logger
	DefaultExamDuration time.Duration
	LockWait            time.Duration
}

// SubmissionService owns the thesis submission state machine.
type SubmissionService struct {
	repo         submissionStore
	corpus       corpusProvider
	scorer       similarityScorer
	locker       lock.Locker
	audit        auditTrail
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	examDuration time.Duration
	lockWait     time.Duration
	now          func() time.Time
}

// NewSubmissionService constructs the service with defaults for optional collaborators.
func NewSubmissionService(params SubmissionServiceParams) *SubmissionService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	locker := params.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}
	duration := params.DefaultExamDuration
	if duration <= 0 {
		duration = 2 * time.Hour
	}
	wait := params.LockWait
	if wait <= 0 {
		wait = 3 * time.Second
	}
	return &SubmissionService{
		repo:         params.Repo,
		corpus:       params.Corpus,
		scorer:       params.Scorer,
		locker:       locker,
		audit:        auditTrail{repo: params.Audit, source: "submission-service", logger: logger},
		metrics:      params.Metrics,
		validator:    validate,
		logger:       logger,
		examDuration: duration,
		lockWait:     wait,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a new pending submission for the calling student along with
// its similarity snapshot.
func (s *SubmissionService) Submit(ctx context.Context, req dto.SubmitThesisRequest, actor *models.JWTClaims) (*dto.SubmitThesisResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can submit thesis titles")
	}
	if err := validatePayload(s.validator, req, "invalid submission payload"); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	stage := req.Stage
	if stage == "" {
		stage = models.ExamTypeProposal
	}
	keywords := cleanKeywords(req.Keywords)
	if len(keywords) == 0 {
		return nil, errKeywordsRequired
	}
	abstract := strings.TrimSpace(req.Abstract)

	result, err := s.score(ctx, similarity.Candidate{Title: title, Abstract: abstract, Keywords: keywords})
	if err != nil {
		return nil, err
	}

	release, err := s.lockStudent(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	active, err := s.repo.HasActive(ctx, actor.UserID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active submissions")
	}
	if active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an active submission")
	}

	submission := &models.ThesisSubmission{
		StudentID:  actor.UserID,
		ProgramID:  actor.ProgramID,
		Stage:      stage,
		Title:      title,
		Abstract:   abstract,
		Keywords:   pq.StringArray(keywords),
		Status:     models.SubmissionStatusPending,
		Similarity: *result,
		Version:    1,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		if errors.Is(err, repository.ErrActiveSubmissionExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an active submission")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission")
	}

	s.metrics.RecordSubmission(string(stage), string(result.Band))
	s.audit.record(ctx, actor, models.AuditActionSubmissionCreate, "thesis_submission", submission.ID, nil, submission)
	s.logger.Info("thesis submission created",
		zap.String("submission_id", submission.ID),
		zap.String("student_id", submission.StudentID),
		zap.Float64("similarity", result.OverallScore))

	return &dto.SubmitThesisResponse{
		SubmissionID:     submission.ID,
		Status:           submission.Status,
		Version:          submission.Version,
		SimilarityResult: result,
	}, nil
}

// Resubmit replaces the content of a needs_revision submission and returns it
// to pending with a fresh similarity snapshot.
func (s *SubmissionService) Resubmit(ctx context.Context, id string, req dto.ResubmitThesisRequest, actor *models.JWTClaims) (*models.ThesisSubmission, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := validatePayload(s.validator, req, "invalid resubmission payload"); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	submission, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleStudent || submission.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the submitting student can resubmit")
	}
	if err := checkVersion(req.Version, submission.Version); err != nil {
		return nil, err
	}
	if submission.Status != models.SubmissionStatusNeedsRevision {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only submissions needing revision can be resubmitted")
	}

	keywords := cleanKeywords(req.Keywords)
	if len(keywords) == 0 {
		return nil, errKeywordsRequired
	}
	abstract := strings.TrimSpace(req.Abstract)
	if sameContent(submission, title, abstract, keywords) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "resubmission must change the title, abstract or keywords")
	}
	result, err := s.score(ctx, similarity.Candidate{Title: title, Abstract: abstract, Keywords: keywords})
	if err != nil {
		return nil, err
	}

	release, err := s.lockStudent(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	active, err := s.repo.HasActive(ctx, actor.UserID, submission.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active submissions")
	}
	if active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an active submission")
	}

	before := *submission
	now := s.now()
	err = s.repo.Resubmit(ctx, repository.ResubmitParams{
		ID:              submission.ID,
		Title:           title,
		Abstract:        abstract,
		Keywords:        keywords,
		Similarity:      *result,
		UpdatedAt:       now,
		ExpectedVersion: submission.Version,
	})
	if err != nil {
		return nil, s.mapWriteError(err, "failed to resubmit")
	}

	submission.Title = title
	submission.Abstract = abstract
	submission.Keywords = pq.StringArray(keywords)
	submission.Similarity = *result
	submission.Status = models.SubmissionStatusPending
	submission.FeedbackNote = nil
	submission.ReviewedBy = nil
	submission.ReviewedAt = nil
	submission.Version++
	submission.UpdatedAt = now

	s.metrics.RecordTransition("submission", string(before.Status), string(submission.Status))
	s.audit.record(ctx, actor, models.AuditActionSubmissionResubmit, "thesis_submission", submission.ID, before, submission)
	return submission, nil
}

// Review applies a reviewer decision to a pending submission. Approval creates
// the exam schedule and an empty committee assignment atomically.
func (s *SubmissionService) Review(ctx context.Context, id string, req dto.ReviewSubmissionRequest, actor *models.JWTClaims) (*dto.ReviewSubmissionResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !isReviewer(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only program administrators can review submissions")
	}
	if err := validatePayload(s.validator, req, "invalid review payload"); err != nil {
		return nil, err
	}
	target, ok := req.Action.TargetStatus()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be approve, reject or needs_revision")
	}
	note := optionalString(req.Note)
	if req.Action.RequiresNote() && note == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a feedback note is required to "+strings.ReplaceAll(string(req.Action), "_", " "))
	}

	submission, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOnProgram(submission.ProgramID) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "submission belongs to another program")
	}
	if err := checkVersion(req.Version, submission.Version); err != nil {
		return nil, err
	}
	switch {
	case target == models.SubmissionStatusPending || submission.Status == models.SubmissionStatusWithdrawn:
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move submission from "+string(submission.Status)+" to "+string(target))
	case submission.Status.Reviewed():
		// Another reviewer committed first.
		return nil, appErrors.Clone(appErrors.ErrConflict, "submission was already reviewed, refresh")
	case !submission.Status.CanTransitionTo(target):
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move submission from "+string(submission.Status)+" to "+string(target))
	}

	now := s.now()
	review := repository.ReviewParams{
		ID:              submission.ID,
		Status:          target,
		Note:            note,
		ReviewedBy:      actor.UserID,
		ReviewedAt:      now,
		ExpectedVersion: submission.Version,
	}
	response := &dto.ReviewSubmissionResponse{}
	if target == models.SubmissionStatusApproved {
		schedule, assignment := s.approvalArtifacts(submission, now)
		err = s.repo.Approve(ctx, repository.ApproveParams{Review: review, Schedule: schedule, Assignment: assignment})
		response.Schedule = schedule
		response.Committee = assignment
	} else {
		err = s.repo.UpdateReview(ctx, review)
	}
	if err != nil {
		return nil, s.mapWriteError(err, "failed to record review")
	}

	before := *submission
	submission.Status = target
	submission.FeedbackNote = note
	submission.ReviewedBy = &actor.UserID
	submission.ReviewedAt = &now
	submission.Version++
	submission.UpdatedAt = now
	response.Submission = submission

	s.metrics.RecordTransition("submission", string(before.Status), string(target))
	s.audit.record(ctx, actor, models.AuditActionSubmissionReview, "thesis_submission", submission.ID, before, submission)
	s.logger.Info("thesis submission reviewed",
		zap.String("submission_id", submission.ID),
		zap.String("action", string(req.Action)),
		zap.String("reviewer_id", actor.UserID))
	return response, nil
}

func (s *SubmissionService) approvalArtifacts(submission *models.ThesisSubmission, now time.Time) (*models.ExamSchedule, *models.CommitteeAssignment) {
	schedule := &models.ExamSchedule{
		ID:              uuid.NewString(),
		SubmissionID:    submission.ID,
		StudentID:       submission.StudentID,
		ProgramID:       submission.ProgramID,
		ExamType:        submission.Stage,
		DurationMinutes: int(s.examDuration / time.Minute),
		Status:          models.ScheduleStatusPending,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	assignment := &models.CommitteeAssignment{
		ID:         uuid.NewString(),
		ScheduleID: schedule.ID,
		ExamType:   schedule.ExamType,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
		Members:    []models.CommitteeMember{},
	}
	return schedule, assignment
}

// Withdraw retires a pending, needs_revision or approved submission. An
// approved submission's exam schedule is cancelled in the same transaction.
func (s *SubmissionService) Withdraw(ctx context.Context, id string, req dto.WithdrawSubmissionRequest, actor *models.JWTClaims) (*models.ThesisSubmission, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := validatePayload(s.validator, req, "invalid withdraw payload"); err != nil {
		return nil, err
	}
	submission, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.Role == models.RoleStudent:
		if submission.StudentID != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the submitting student can withdraw")
		}
	case isReviewer(actor):
		if !actor.CanActOnProgram(submission.ProgramID) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "submission belongs to another program")
		}
	default:
		return nil, appErrors.ErrForbidden
	}
	if err := checkVersion(req.Version, submission.Version); err != nil {
		return nil, err
	}
	if !submission.Status.CanTransitionTo(models.SubmissionStatusWithdrawn) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot withdraw a "+string(submission.Status)+" submission")
	}

	reason := optionalString(req.Reason)
	if reason == nil {
		fallback := "submission withdrawn"
		reason = &fallback
	}
	now := s.now()
	cancelled, err := s.repo.Withdraw(ctx, repository.WithdrawParams{
		ID:              submission.ID,
		From:            submission.Status,
		Reason:          reason,
		At:              now,
		ExpectedVersion: submission.Version,
	})
	if err != nil {
		return nil, s.mapWriteError(err, "failed to withdraw submission")
	}

	before := *submission
	submission.Status = models.SubmissionStatusWithdrawn
	submission.FeedbackNote = reason
	submission.Version++
	submission.UpdatedAt = now

	s.metrics.RecordTransition("submission", string(before.Status), string(submission.Status))
	if cancelled {
		s.metrics.RecordTransition("exam_schedule", "active", string(models.ScheduleStatusCancelled))
	}
	s.audit.record(ctx, actor, models.AuditActionSubmissionWithdraw, "thesis_submission", submission.ID, before, submission)
	return submission, nil
}

// Get returns a submission visible to actor.
func (s *SubmissionService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ThesisSubmission, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	submission, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleStudent:
		if submission.StudentID != actor.UserID {
			return nil, appErrors.ErrNotFound
		}
	case models.RoleAdmin:
		if !actor.CanActOnProgram(submission.ProgramID) {
			return nil, appErrors.ErrForbidden
		}
	}
	return submission, nil
}

// List returns submissions scoped to what actor may see.
func (s *SubmissionService) List(ctx context.Context, query dto.SubmissionQuery, actor *models.JWTClaims) ([]models.ThesisSubmission, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter := models.SubmissionFilter{
		Status:    query.Status,
		StudentID: query.StudentID,
		ProgramID: query.ProgramID,
		Stage:     query.Stage,
		Page:      query.Page,
		PageSize:  query.PageSize,
	}
	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.UserID
	case models.RoleAdmin:
		filter.ProgramID = actor.ProgramID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	submissions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// CheckSimilarity scores a draft without persisting anything.
func (s *SubmissionService) CheckSimilarity(ctx context.Context, req dto.SimilarityCheckRequest) (*models.SimilarityResult, error) {
	if err := validatePayload(s.validator, req, "invalid similarity payload"); err != nil {
		return nil, err
	}
	return s.score(ctx, similarity.Candidate{
		Title:    strings.TrimSpace(req.Title),
		Abstract: strings.TrimSpace(req.Abstract),
		Keywords: cleanKeywords(req.Keywords),
	})
}

func (s *SubmissionService) score(ctx context.Context, candidate similarity.Candidate) (*models.SimilarityResult, error) {
	if strings.TrimSpace(candidate.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	corpus, err := s.corpus.Entries(ctx, "")
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := s.scorer.Score(ctx, candidate, corpus)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveScoring(time.Since(start), result.OverallScore)
	return result, nil
}

func (s *SubmissionService) load(ctx context.Context, id string) (*models.ThesisSubmission, error) {
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return submission, nil
}

func (s *SubmissionService) lockStudent(ctx context.Context, studentID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	release, err := s.locker.Acquire(lockCtx, "submission:student:"+studentID)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "another submission for this student is in progress")
		}
		return nil, appErrors.Unavailable(err, "submission lock unavailable")
	}
	return release, nil
}

func (s *SubmissionService) mapWriteError(err error, message string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.ErrConflict
	case errors.Is(err, repository.ErrActiveSubmissionExists):
		return appErrors.Clone(appErrors.ErrConflict, "student already has an active submission")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}
