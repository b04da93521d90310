package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thesis-pipeline-api/internal/dto"
	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	"github.com/noah-isme/thesis-pipeline-api/internal/service"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
)

type scheduleServiceMock struct {
	verifyErr   error
	lastCancel  dto.CancelScheduleRequest
	lastSet     dto.SetScheduleDateTimeRequest
	lastQuery   dto.ScheduleQuery
	verifyCalls int
}

func (m *scheduleServiceMock) SetDateTime(ctx context.Context, id string, req dto.SetScheduleDateTimeRequest, actor *models.JWTClaims) (*models.ExamSchedule, error) {
	m.lastSet = req
	return &models.ExamSchedule{ID: id, Status: models.ScheduleStatusPending}, nil
}

func (m *scheduleServiceMock) Verify(ctx context.Context, id string, req dto.ScheduleTransitionRequest, actor *models.JWTClaims) (*models.ExamSchedule, error) {
	m.verifyCalls++
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	return &models.ExamSchedule{ID: id, Status: models.ScheduleStatusVerified}, nil
}

func (m *scheduleServiceMock) Reschedule(ctx context.Context, id string, req dto.ScheduleTransitionRequest, actor *models.JWTClaims) (*models.ExamSchedule, error) {
	return &models.ExamSchedule{ID: id, Status: models.ScheduleStatusRescheduled}, nil
}

func (m *scheduleServiceMock) Cancel(ctx context.Context, id string, req dto.CancelScheduleRequest, actor *models.JWTClaims) (*models.ExamSchedule, error) {
	m.lastCancel = req
	return &models.ExamSchedule{ID: id, Status: models.ScheduleStatusCancelled}, nil
}

func (m *scheduleServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ExamSchedule, error) {
	return &models.ExamSchedule{ID: id}, nil
}

func (m *scheduleServiceMock) List(ctx context.Context, query dto.ScheduleQuery, actor *models.JWTClaims) ([]models.ExamSchedule, *models.Pagination, error) {
	m.lastQuery = query
	return []models.ExamSchedule{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func adminContextClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "a-1", Role: models.RoleAdmin, ProgramID: "cs"}
}

func TestScheduleHandlerVerifyIncomplete(t *testing.T) {
	mockSvc := &scheduleServiceMock{verifyErr: appErrors.ErrIncompleteSchedule}
	handler := NewScheduleHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/exam-schedules/sch-1/verify", "", adminContextClaims())
	c.Params = gin.Params{{Key: "id", Value: "sch-1"}}
	handler.Verify(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "INCOMPLETE_SCHEDULE")
	assert.Equal(t, 1, mockSvc.verifyCalls)
}

func TestScheduleHandlerSetDateTime(t *testing.T) {
	mockSvc := &scheduleServiceMock{}
	handler := NewScheduleHandler(mockSvc)

	c, w := newTestContext(http.MethodPut, "/exam-schedules/sch-1/datetime", `{"scheduledAt":"2026-11-02T09:00:00Z","location":"Room 3","version":2}`, adminContextClaims())
	c.Params = gin.Params{{Key: "id", Value: "sch-1"}}
	handler.SetDateTime(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Room 3", mockSvc.lastSet.Location)
	assert.Equal(t, 2026, mockSvc.lastSet.ScheduledAt.Year())
	require.NotNil(t, mockSvc.lastSet.Version)
}

func TestScheduleHandlerCancelRequiresBody(t *testing.T) {
	handler := NewScheduleHandler(&scheduleServiceMock{})

	c, w := newTestContext(http.MethodPost, "/exam-schedules/sch-1/cancel", "", adminContextClaims())
	c.Params = gin.Params{{Key: "id", Value: "sch-1"}}
	handler.Cancel(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerListFilters(t *testing.T) {
	mockSvc := &scheduleServiceMock{}
	handler := NewScheduleHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/exam-schedules?status=pending&status=rescheduled&examType=proposal", "", adminContextClaims())
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.ScheduleStatus{models.ScheduleStatusPending, models.ScheduleStatusRescheduled}, mockSvc.lastQuery.Status)
	assert.Equal(t, models.ExamTypeProposal, mockSvc.lastQuery.ExamType)
}

type committeeServiceMock struct {
	lastRole     string
	lastAssign   dto.AssignRoleRequest
	lastUnassign dto.UnassignRoleRequest
	assignErr    error
}

func (m *committeeServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.CommitteeResponse, error) {
	return &dto.CommitteeResponse{Assignment: &models.CommitteeAssignment{ID: id}}, nil
}

func (m *committeeServiceMock) GetBySchedule(ctx context.Context, scheduleID string, actor *models.JWTClaims) (*dto.CommitteeResponse, error) {
	return &dto.CommitteeResponse{Assignment: &models.CommitteeAssignment{ID: "asg-1", ScheduleID: scheduleID}}, nil
}

func (m *committeeServiceMock) Assign(ctx context.Context, id, role string, req dto.AssignRoleRequest, actor *models.JWTClaims) (*dto.CommitteeResponse, error) {
	m.lastRole = role
	m.lastAssign = req
	if m.assignErr != nil {
		return nil, m.assignErr
	}
	return &dto.CommitteeResponse{Assignment: &models.CommitteeAssignment{ID: id}}, nil
}

func (m *committeeServiceMock) Unassign(ctx context.Context, id, role string, req dto.UnassignRoleRequest, actor *models.JWTClaims) (*dto.CommitteeResponse, error) {
	m.lastRole = role
	m.lastUnassign = req
	return &dto.CommitteeResponse{Assignment: &models.CommitteeAssignment{ID: id}}, nil
}

func TestCommitteeHandlerAssign(t *testing.T) {
	mockSvc := &committeeServiceMock{assignErr: appErrors.ErrDuplicateLecturer}
	handler := NewCommitteeHandler(mockSvc)

	c, w := newTestContext(http.MethodPut, "/committees/asg-1/roles/chair", `{"lecturerId":"lec-1"}`, adminContextClaims())
	c.Params = gin.Params{{Key: "id", Value: "asg-1"}, {Key: "role", Value: "chair"}}
	handler.Assign(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "chair", mockSvc.lastRole)
	assert.Equal(t, "lec-1", mockSvc.lastAssign.LecturerID)
	assert.Contains(t, w.Body.String(), "DUPLICATE_LECTURER")
}

func TestCommitteeHandlerUnassignVersionQuery(t *testing.T) {
	mockSvc := &committeeServiceMock{}
	handler := NewCommitteeHandler(mockSvc)

	c, w := newTestContext(http.MethodDelete, "/committees/asg-1/roles/examiner_1?version=4", "", adminContextClaims())
	c.Params = gin.Params{{Key: "id", Value: "asg-1"}, {Key: "role", Value: "examiner_1"}}
	handler.Unassign(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastUnassign.Version)
	assert.Equal(t, 4, *mockSvc.lastUnassign.Version)

	c, w = newTestContext(http.MethodDelete, "/committees/asg-1/roles/examiner_1?version=abc", "", adminContextClaims())
	c.Params = gin.Params{{Key: "id", Value: "asg-1"}, {Key: "role", Value: "examiner_1"}}
	handler.Unassign(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type lecturerServiceMock struct {
	lastQuery dto.LecturerQuery
}

func (m *lecturerServiceMock) List(ctx context.Context, query dto.LecturerQuery) ([]models.Lecturer, *models.Pagination, error) {
	m.lastQuery = query
	return []models.Lecturer{{ID: "lec-1", Name: "Dr. Ayu", Active: true}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func TestLecturerHandlerList(t *testing.T) {
	mockSvc := &lecturerServiceMock{}
	handler := NewLecturerHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/lecturers?department=informatics&search=%20network%20", "", adminContextClaims())
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "informatics", mockSvc.lastQuery.Department)
	assert.Equal(t, "network", mockSvc.lastQuery.Search)
	assert.Contains(t, w.Body.String(), `"total_count":1`)
}

type workflowServiceMock struct {
	err error
}

func (m workflowServiceMock) PendingCounts(ctx context.Context, actor *models.JWTClaims) (*models.PendingCounts, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.PendingCounts{PendingSubmissions: 3, PendingSchedules: 1, IncompleteAssignments: 2}, nil
}

func TestWorkflowHandlerPendingCounts(t *testing.T) {
	handler := NewWorkflowHandler(workflowServiceMock{})
	c, w := newTestContext(http.MethodGet, "/workflow/pending-counts", "", adminContextClaims())
	handler.PendingCounts(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"incompleteAssignments":2`)

	handler = NewWorkflowHandler(workflowServiceMock{err: appErrors.ErrForbidden})
	c, w = newTestContext(http.MethodGet, "/workflow/pending-counts", "", &models.JWTClaims{UserID: "s-1", Role: models.RoleStudent})
	handler.PendingCounts(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

type pingerStub struct {
	err error
}

func (p pingerStub) PingContext(ctx context.Context) error { return p.err }

func TestMetricsHandlerReady(t *testing.T) {
	handler := NewMetricsHandler(nil, pingerStub{err: errors.New("connection refused")})
	c, w := newTestContext(http.MethodGet, "/ready", "", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	handler = NewMetricsHandler(nil, pingerStub{})
	c, w = newTestContext(http.MethodGet, "/ready", "", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext(http.MethodGet, "/metrics", "", nil)
	handler.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.True(t, c.IsAborted())

	handler = NewMetricsHandler(service.NewMetricsService(), nil)
	c, w = newTestContext(http.MethodGet, "/metrics", "", nil)
	handler.Prometheus(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "goroutines_total")
}

type corpusServiceMock struct {
	err   error
	calls int
}

func (m *corpusServiceMock) Refresh(ctx context.Context) (*dto.CorpusRefreshResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &dto.CorpusRefreshResponse{Entries: 42}, nil
}

func TestCorpusHandlerRefresh(t *testing.T) {
	mock := &corpusServiceMock{}
	handler := NewCorpusHandler(mock)
	c, w := newTestContext(http.MethodPost, "/thesis/corpus/refresh", "", adminContextClaims())
	handler.Refresh(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entries":42`)
	assert.Equal(t, 1, mock.calls)

	mock.err = appErrors.Unavailable(errors.New("redis down"), "corpus cache unavailable")
	c, w = newTestContext(http.MethodPost, "/thesis/corpus/refresh", "", adminContextClaims())
	handler.Refresh(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
