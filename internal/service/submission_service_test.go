package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thesis-pipeline-api/internal/dto"
	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	"github.com/noah-isme/thesis-pipeline-api/internal/repository"
	"github.com/noah-isme/thesis-pipeline-api/internal/similarity"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
)

type submissionStoreStub struct {
	mu          sync.Mutex
	items       map[string]*models.ThesisSubmission
	schedules   []*models.ExamSchedule
	assignments []*models.CommitteeAssignment
	cancelled   []string
	approveErr  error
	filter      models.SubmissionFilter
	seq         int
}

func newSubmissionStoreStub() *submissionStoreStub {
	return &submissionStoreStub{items: make(map[string]*models.ThesisSubmission)}
}

func (s *submissionStoreStub) put(sub models.ThesisSubmission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sub.ID] = &sub
}

func (s *submissionStoreStub) status(id string) models.SubmissionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].Status
}

func (s *submissionStoreStub) activeLocked(studentID, excludeID string) bool {
	for id, item := range s.items {
		if id != excludeID && item.StudentID == studentID && item.Status.Active() {
			return true
		}
	}
	return false
}

func (s *submissionStoreStub) Create(ctx context.Context, submission *models.ThesisSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeLocked(submission.StudentID, "") {
		return repository.ErrActiveSubmissionExists
	}
	s.seq++
	submission.ID = fmt.Sprintf("sub-%d", s.seq)
	stored := *submission
	s.items[submission.ID] = &stored
	return nil
}

func (s *submissionStoreStub) GetByID(ctx context.Context, id string) (*models.ThesisSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *item
	return &copy, nil
}

func (s *submissionStoreStub) HasActive(ctx context.Context, studentID, excludeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked(studentID, excludeID), nil
}

func (s *submissionStoreStub) List(ctx context.Context, filter models.SubmissionFilter) ([]models.ThesisSubmission, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = filter
	result := make([]models.ThesisSubmission, 0)
	for _, item := range s.items {
		if filter.StudentID != "" && item.StudentID != filter.StudentID {
			continue
		}
		if filter.ProgramID != "" && item.ProgramID != filter.ProgramID {
			continue
		}
		result = append(result, *item)
	}
	return result, len(result), nil
}

func (s *submissionStoreStub) reviewLocked(params repository.ReviewParams, status models.SubmissionStatus) error {
	item, ok := s.items[params.ID]
	if !ok || item.Status != models.SubmissionStatusPending || item.Version != params.ExpectedVersion {
		return sql.ErrNoRows
	}
	item.Status = status
	item.FeedbackNote = params.Note
	item.ReviewedBy = &params.ReviewedBy
	item.Version++
	return nil
}

func (s *submissionStoreStub) UpdateReview(ctx context.Context, params repository.ReviewParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reviewLocked(params, params.Status)
}

func (s *submissionStoreStub) Approve(ctx context.Context, params repository.ApproveParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.approveErr != nil {
		return s.approveErr
	}
	if err := s.reviewLocked(params.Review, models.SubmissionStatusApproved); err != nil {
		return err
	}
	s.schedules = append(s.schedules, params.Schedule)
	s.assignments = append(s.assignments, params.Assignment)
	return nil
}

func (s *submissionStoreStub) Resubmit(ctx context.Context, params repository.ResubmitParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[params.ID]
	if !ok || item.Status != models.SubmissionStatusNeedsRevision || item.Version != params.ExpectedVersion {
		return sql.ErrNoRows
	}
	item.Title = params.Title
	item.Status = models.SubmissionStatusPending
	item.FeedbackNote = nil
	item.Version++
	return nil
}

func (s *submissionStoreStub) Withdraw(ctx context.Context, params repository.WithdrawParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[params.ID]
	if !ok || item.Status != params.From || item.Version != params.ExpectedVersion {
		return false, sql.ErrNoRows
	}
	item.Status = models.SubmissionStatusWithdrawn
	item.Version++
	if params.From == models.SubmissionStatusApproved {
		s.cancelled = append(s.cancelled, params.ID)
		return true, nil
	}
	return false, nil
}

type corpusStub struct {
	entries []models.CorpusEntry
	err     error
}

func (c *corpusStub) Entries(ctx context.Context, field string) ([]models.CorpusEntry, error) {
	return c.entries, c.err
}

type auditStub struct {
	mu      sync.Mutex
	actions []string
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, log.Action)
	return nil
}

func studentClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleStudent, ProgramID: "cs"}
}

func adminClaims(id, program string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleAdmin, ProgramID: program}
}

func newSubmissionServiceForTest(store *submissionStoreStub, corpus *corpusStub) (*SubmissionService, *auditStub) {
	audit := &auditStub{}
	svc := NewSubmissionService(SubmissionServiceParams{
		Repo:    store,
		Corpus:  corpus,
		Scorer:  similarity.NewEngine(similarity.DefaultConfig()),
		Audit:   audit,
		Metrics: NewMetricsService(),
	})
	return svc, audit
}

func sampleCorpus() *corpusStub {
	return &corpusStub{entries: []models.CorpusEntry{
		{ID: "c-001", Title: "Intrusion Detection for Network Security", Keywords: pq.StringArray{"network", "security"}, Author: "R. Hartono", Year: 2020},
		{ID: "c-002", Title: "Crop Yield Forecasting with Satellite Imagery", Keywords: pq.StringArray{"remote sensing"}},
	}}
}

func pendingSubmission(id, student, program string) models.ThesisSubmission {
	return models.ThesisSubmission{ID: id, StudentID: student, ProgramID: program, Stage: models.ExamTypeProposal,
		Title: "Graph Neural Networks for Fraud Detection", Status: models.SubmissionStatusPending, Version: 1}
}

func TestSubmissionServiceSubmitStoresPendingWithSimilarity(t *testing.T) {
	store := newSubmissionStoreStub()
	svc, audit := newSubmissionServiceForTest(store, sampleCorpus())

	resp, err := svc.Submit(context.Background(), dto.SubmitThesisRequest{
		Title:    "Intrusion Detection for Network Security",
		Keywords: []string{"networks", "security", " Security "},
	}, studentClaims("student-1"))
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusPending, resp.Status)
	assert.Equal(t, 1, resp.Version)
	require.NotEmpty(t, resp.SimilarityResult.Matches)
	assert.Equal(t, "c-001", resp.SimilarityResult.Matches[0].EntryID)
	assert.Equal(t, 100.0, resp.SimilarityResult.OverallScore)

	stored, err := store.GetByID(context.Background(), resp.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExamTypeProposal, stored.Stage)
	assert.Equal(t, "cs", stored.ProgramID)
	assert.Equal(t, pq.StringArray{"networks", "security"}, stored.Keywords)
	assert.Equal(t, []string{models.AuditActionSubmissionCreate}, audit.actions)
}

func TestSubmissionServiceSubmitRejectsSecondActive(t *testing.T) {
	store := newSubmissionStoreStub()
	store.put(pendingSubmission("sub-x", "student-1", "cs"))
	svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

	_, err := svc.Submit(context.Background(), dto.SubmitThesisRequest{Title: "Another Title", Keywords: []string{"fraud"}}, studentClaims("student-1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Len(t, store.items, 1)
}

func TestSubmissionServiceSubmitAllowsAfterRejection(t *testing.T) {
	store := newSubmissionStoreStub()
	rejected := pendingSubmission("sub-x", "student-1", "cs")
	rejected.Status = models.SubmissionStatusRejected
	store.put(rejected)
	svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

	_, err := svc.Submit(context.Background(), dto.SubmitThesisRequest{Title: "Another Title", Keywords: []string{"fraud"}}, studentClaims("student-1"))
	require.NoError(t, err)
}

func TestSubmissionServiceSubmitValidation(t *testing.T) {
	svc, _ := newSubmissionServiceForTest(newSubmissionStoreStub(), sampleCorpus())

	_, err := svc.Submit(context.Background(), dto.SubmitThesisRequest{Title: "   ", Keywords: []string{"fraud"}}, studentClaims("student-1"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Submit(context.Background(), dto.SubmitThesisRequest{Title: "x", Keywords: []string{"fraud"}}, adminClaims("admin-1", "cs"))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestSubmissionServiceSubmitCorpusUnavailable(t *testing.T) {
	store := newSubmissionStoreStub()
	svc, _ := newSubmissionServiceForTest(store, &corpusStub{err: appErrors.Unavailable(errors.New("timeout"), "")})

	_, err := svc.Submit(context.Background(), dto.SubmitThesisRequest{Title: "Any", Keywords: []string{"fraud"}}, studentClaims("student-1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnavailable))
	assert.Empty(t, store.items)
}

func TestSubmissionServiceConcurrentSubmitSameStudent(t *testing.T) {
	store := newSubmissionStoreStub()
	svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Submit(context.Background(), dto.SubmitThesisRequest{Title: fmt.Sprintf("Title %d", i), Keywords: []string{"fraud"}}, studentClaims("student-1"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, appErrors.ErrConflict))
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, store.items, 1)
}

func TestSubmissionServiceReviewRequiresNote(t *testing.T) {
	for _, action := range []models.ReviewAction{models.ReviewActionReject, models.ReviewActionNeedsRevision} {
		store := newSubmissionStoreStub()
		store.put(pendingSubmission("sub-1", "student-1", "cs"))
		svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

		_, err := svc.Review(context.Background(), "sub-1", dto.ReviewSubmissionRequest{Action: action, Note: "  "}, adminClaims("admin-1", "cs"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, appErrors.ErrValidation))
		assert.Equal(t, models.SubmissionStatusPending, store.status("sub-1"))
	}
}

func TestSubmissionServiceReviewApproveCreatesScheduleAndCommittee(t *testing.T) {
	store := newSubmissionStoreStub()
	store.put(pendingSubmission("sub-1", "student-1", "cs"))
	svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

	resp, err := svc.Review(context.Background(), "sub-1", dto.ReviewSubmissionRequest{Action: models.ReviewActionApprove}, adminClaims("admin-1", "cs"))
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusApproved, resp.Submission.Status)
	assert.Equal(t, 2, resp.Submission.Version)
	require.Len(t, store.schedules, 1)
	require.Len(t, store.assignments, 1)
	assert.Equal(t, models.ScheduleStatusPending, store.schedules[0].Status)
	assert.Equal(t, models.ExamTypeProposal, store.schedules[0].ExamType)
	assert.Equal(t, 120, store.schedules[0].DurationMinutes)
	assert.Equal(t, store.schedules[0].ID, store.assignments[0].ScheduleID)
	assert.Empty(t, store.assignments[0].Members)
}

func TestSubmissionServiceReviewApproveFailureLeavesPending(t *testing.T) {
	store := newSubmissionStoreStub()
	store.put(pendingSubmission("sub-1", "student-1", "cs"))
	store.approveErr = errors.New("insert exam schedule failed")
	svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

	_, err := svc.Review(context.Background(), "sub-1", dto.ReviewSubmissionRequest{Action: models.ReviewActionApprove}, adminClaims("admin-1", "cs"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Equal(t, models.SubmissionStatusPending, store.status("sub-1"))
	assert.Empty(t, store.schedules)
	assert.Empty(t, store.assignments)
}

func TestSubmissionServiceConcurrentReviewsOneWins(t *testing.T) {
	store := newSubmissionStoreStub()
	store.put(pendingSubmission("sub-1", "student-1", "cs"))
	svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

	version := 1
	requests := []dto.ReviewSubmissionRequest{
		{Action: models.ReviewActionApprove, Version: &version},
		{Action: models.ReviewActionReject, Note: "duplicate of an existing thesis", Version: &version},
	}
	results := make([]*dto.ReviewSubmissionResponse, len(requests))
	errs := make([]error, len(requests))
	var wg sync.WaitGroup
	for i := range requests {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Review(context.Background(), "sub-1", requests[i], adminClaims(fmt.Sprintf("admin-%d", i), "cs"))
		}(i)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "only one review may succeed")
			winner = i
			continue
		}
		assert.True(t, errors.Is(err, appErrors.ErrConflict), "loser must see a conflict, got %v", err)
	}
	require.NotEqual(t, -1, winner)
	assert.Equal(t, results[winner].Submission.Status, store.status("sub-1"))
}

func TestSubmissionServiceReviewTransitionsGuarded(t *testing.T) {
	store := newSubmissionStoreStub()
	approved := pendingSubmission("sub-1", "student-1", "cs")
	approved.Status = models.SubmissionStatusApproved
	store.put(approved)
	store.put(pendingSubmission("sub-2", "student-2", "math"))
	store.put(pendingSubmission("sub-3", "student-3", "cs"))
	svc, _ := newSubmissionServiceForTest(store, sampleCorpus())
	admin := adminClaims("admin-1", "cs")

	_, err := svc.Review(context.Background(), "sub-1", dto.ReviewSubmissionRequest{Action: models.ReviewActionReject, Note: "late"}, admin)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, models.SubmissionStatusApproved, store.status("sub-1"))

	_, err = svc.Review(context.Background(), "sub-2", dto.ReviewSubmissionRequest{Action: models.ReviewActionApprove}, admin)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
	assert.Equal(t, models.SubmissionStatusPending, store.status("sub-2"))

	_, err = svc.Review(context.Background(), "sub-3", dto.ReviewSubmissionRequest{Action: "pending"}, admin)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	_, err = svc.Review(context.Background(), "sub-3", dto.ReviewSubmissionRequest{Action: "archive"}, admin)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	stale := 7
	_, err = svc.Review(context.Background(), "sub-3", dto.ReviewSubmissionRequest{Action: models.ReviewActionApprove, Version: &stale}, admin)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	super := &models.JWTClaims{UserID: "root", Role: models.RoleSuperAdmin}
	_, err = svc.Review(context.Background(), "sub-2", dto.ReviewSubmissionRequest{Action: models.ReviewActionApprove}, super)
	assert.NoError(t, err)
}

func TestSubmissionServiceResubmitReturnsToPending(t *testing.T) {
	store := newSubmissionStoreStub()
	revision := pendingSubmission("sub-1", "student-1", "cs")
	revision.Status = models.SubmissionStatusNeedsRevision
	note := "narrow the scope"
	revision.FeedbackNote = &note
	store.put(revision)
	svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

	_, err := svc.Resubmit(context.Background(), "sub-1", dto.ResubmitThesisRequest{Title: "Revised", Keywords: []string{"fraud"}}, studentClaims("student-2"))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	updated, err := svc.Resubmit(context.Background(), "sub-1", dto.ResubmitThesisRequest{Title: "Graph Neural Networks for Card Fraud", Keywords: []string{"fraud"}}, studentClaims("student-1"))
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusPending, updated.Status)
	assert.Nil(t, updated.FeedbackNote)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, models.SubmissionStatusPending, store.status("sub-1"))

	_, err = svc.Resubmit(context.Background(), "sub-1", dto.ResubmitThesisRequest{Title: "Again", Keywords: []string{"fraud"}}, studentClaims("student-1"))
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
}

func TestSubmissionServiceResubmitBlockedByOtherActive(t *testing.T) {
	store := newSubmissionStoreStub()
	revision := pendingSubmission("sub-1", "student-1", "cs")
	revision.Status = models.SubmissionStatusNeedsRevision
	store.put(revision)
	store.put(pendingSubmission("sub-2", "student-1", "cs"))
	svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

	_, err := svc.Resubmit(context.Background(), "sub-1", dto.ResubmitThesisRequest{Title: "Revised", Keywords: []string{"fraud"}}, studentClaims("student-1"))
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Equal(t, models.SubmissionStatusNeedsRevision, store.status("sub-1"))
}

func TestSubmissionServiceWithdrawApprovedCancelsSchedule(t *testing.T) {
	store := newSubmissionStoreStub()
	approved := pendingSubmission("sub-1", "student-1", "cs")
	approved.Status = models.SubmissionStatusApproved
	store.put(approved)
	svc, audit := newSubmissionServiceForTest(store, sampleCorpus())

	withdrawn, err := svc.Withdraw(context.Background(), "sub-1", dto.WithdrawSubmissionRequest{}, studentClaims("student-1"))
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusWithdrawn, withdrawn.Status)
	assert.Equal(t, "submission withdrawn", *withdrawn.FeedbackNote)
	assert.Equal(t, []string{"sub-1"}, store.cancelled)
	assert.Contains(t, audit.actions, models.AuditActionSubmissionWithdraw)

	_, err = svc.Withdraw(context.Background(), "sub-1", dto.WithdrawSubmissionRequest{}, studentClaims("student-1"))
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
}

func TestSubmissionServiceListAndGetScopes(t *testing.T) {
	store := newSubmissionStoreStub()
	store.put(pendingSubmission("sub-1", "student-1", "cs"))
	store.put(pendingSubmission("sub-2", "student-2", "math"))
	svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

	list, page, err := svc.List(context.Background(), dto.SubmissionQuery{StudentID: "student-2"}, studentClaims("student-1"))
	require.NoError(t, err)
	assert.Equal(t, "student-1", store.filter.StudentID)
	assert.Len(t, list, 1)
	assert.Equal(t, 20, page.PageSize)

	_, _, err = svc.List(context.Background(), dto.SubmissionQuery{}, adminClaims("admin-1", "math"))
	require.NoError(t, err)
	assert.Equal(t, "math", store.filter.ProgramID)

	_, err = svc.Get(context.Background(), "sub-2", studentClaims("student-1"))
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = svc.Get(context.Background(), "sub-2", adminClaims("admin-1", "cs"))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	_, err = svc.Get(context.Background(), "missing", adminClaims("admin-1", "cs"))
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestSubmissionServiceCheckSimilarityDoesNotPersist(t *testing.T) {
	store := newSubmissionStoreStub()
	svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

	result, err := svc.CheckSimilarity(context.Background(), dto.SimilarityCheckRequest{Title: "Crop Yield Forecasting with Satellite Imagery"})
	require.NoError(t, err)
	assert.Equal(t, "c-002", result.Matches[0].EntryID)
	assert.Equal(t, models.SimilarityBandHigh, result.Band)
	assert.Empty(t, store.items)
}

func TestSubmissionServiceRequiresKeywords(t *testing.T) {
	for _, keywords := range [][]string{nil, {"   ", ""}} {
		store := newSubmissionStoreStub()
		svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

		resp, err := svc.Submit(context.Background(), dto.SubmitThesisRequest{Title: "Fraud Detection", Keywords: keywords}, studentClaims("student-1"))
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.True(t, errors.Is(err, appErrors.ErrValidation))
		assert.Empty(t, store.items)
	}

	store := newSubmissionStoreStub()
	revision := pendingSubmission("sub-1", "student-1", "cs")
	revision.Status = models.SubmissionStatusNeedsRevision
	store.put(revision)
	svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

	_, err := svc.Resubmit(context.Background(), "sub-1", dto.ResubmitThesisRequest{Title: "Revised", Keywords: []string{" "}}, studentClaims("student-1"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, models.SubmissionStatusNeedsRevision, store.status("sub-1"))
}

func TestSubmissionServiceCheckSimilarityAllowsNoKeywords(t *testing.T) {
	svc, _ := newSubmissionServiceForTest(newSubmissionStoreStub(), sampleCorpus())

	result, err := svc.CheckSimilarity(context.Background(), dto.SimilarityCheckRequest{Title: "Intrusion Detection"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Matches)
}

func TestSubmissionServiceResubmitRejectsUnchangedContent(t *testing.T) {
	store := newSubmissionStoreStub()
	revision := pendingSubmission("sub-1", "student-1", "cs")
	revision.Status = models.SubmissionStatusNeedsRevision
	revision.Abstract = "Detecting card fraud with graph models."
	revision.Keywords = pq.StringArray{"fraud", "graphs"}
	store.put(revision)
	svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

	_, err := svc.Resubmit(context.Background(), "sub-1", dto.ResubmitThesisRequest{
		Title:    "  Graph Neural Networks for Fraud Detection ",
		Abstract: revision.Abstract,
		Keywords: []string{"Graphs", "fraud"},
	}, studentClaims("student-1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, models.SubmissionStatusNeedsRevision, store.status("sub-1"))

	updated, err := svc.Resubmit(context.Background(), "sub-1", dto.ResubmitThesisRequest{
		Title:    revision.Title,
		Abstract: revision.Abstract,
		Keywords: []string{"fraud", "graphs", "banking"},
	}, studentClaims("student-1"))
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusPending, updated.Status)
}

func TestSubmissionServiceConcurrentReviewsWithoutVersion(t *testing.T) {
	for run := 0; run < 50; run++ {
		store := newSubmissionStoreStub()
		store.put(pendingSubmission("sub-1", "student-1", "cs"))
		svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

		requests := []dto.ReviewSubmissionRequest{
			{Action: models.ReviewActionApprove},
			{Action: models.ReviewActionReject, Note: "duplicate of an existing thesis"},
		}
		results := make([]*dto.ReviewSubmissionResponse, len(requests))
		errs := make([]error, len(requests))
		var wg sync.WaitGroup
		for i := range requests {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = svc.Review(context.Background(), "sub-1", requests[i], adminClaims(fmt.Sprintf("admin-%d", i), "cs"))
			}(i)
		}
		wg.Wait()

		winner := -1
		for i, err := range errs {
			if err == nil {
				require.Equal(t, -1, winner, "only one review may succeed")
				winner = i
				continue
			}
			require.True(t, errors.Is(err, appErrors.ErrConflict), "loser must see a conflict, got %v", err)
		}
		require.NotEqual(t, -1, winner)
		assert.Equal(t, results[winner].Submission.Status, store.status("sub-1"))
	}
}

func TestSubmissionServiceReviewWithdrawnIsInvalidTransition(t *testing.T) {
	store := newSubmissionStoreStub()
	withdrawn := pendingSubmission("sub-1", "student-1", "cs")
	withdrawn.Status = models.SubmissionStatusWithdrawn
	store.put(withdrawn)
	svc, _ := newSubmissionServiceForTest(store, sampleCorpus())

	_, err := svc.Review(context.Background(), "sub-1", dto.ReviewSubmissionRequest{Action: models.ReviewActionApprove}, adminClaims("admin-1", "cs"))
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
}
