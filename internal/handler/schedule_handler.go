package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thesis-pipeline-api/internal/dto"
	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
	"github.com/noah-isme/thesis-pipeline-api/pkg/response"
)

type examScheduleService interface {
	SetDateTime(ctx context.Context, id string, req dto.SetScheduleDateTimeRequest, actor *models.JWTClaims) (*models.ExamSchedule, error)
	Verify(ctx context.Context, id string, req dto.ScheduleTransitionRequest, actor *models.JWTClaims) (*models.ExamSchedule, error)
	Reschedule(ctx context.Context, id string, req dto.ScheduleTransitionRequest, actor *models.JWTClaims) (*models.ExamSchedule, error)
	Cancel(ctx context.Context, id string, req dto.CancelScheduleRequest, actor *models.JWTClaims) (*models.ExamSchedule, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ExamSchedule, error)
	List(ctx context.Context, query dto.ScheduleQuery, actor *models.JWTClaims) ([]models.ExamSchedule, *models.Pagination, error)
}

// ScheduleHandler exposes exam schedule verification endpoints.
type ScheduleHandler struct {
	service examScheduleService
}

// NewScheduleHandler builds the handler.
func NewScheduleHandler(service examScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

// List godoc
// @Summary List exam schedules
// @Tags ExamSchedules
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param programId query string false "Program filter"
// @Param examType query string false "proposal, result or final"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /exam-schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	query := dto.ScheduleQuery{
		ProgramID: c.Query("programId"),
		ExamType:  models.ExamType(strings.ToLower(c.Query("examType"))),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "limit", 20),
	}
	for _, status := range queryList(c, "status") {
		query.Status = append(query.Status, models.ScheduleStatus(strings.ToLower(status)))
	}
	items, pagination, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get an exam schedule
// @Tags ExamSchedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /exam-schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// SetDateTime godoc
// @Summary Set the exam date, time and location
// @Tags ExamSchedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.SetScheduleDateTimeRequest true "Slot"
// @Success 200 {object} response.Envelope
// @Router /exam-schedules/{id}/datetime [put]
func (h *ScheduleHandler) SetDateTime(c *gin.Context) {
	var req dto.SetScheduleDateTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	h.respond(c)(h.service.SetDateTime(c.Request.Context(), c.Param("id"), req, claimsFromContext(c)))
}

// Verify godoc
// @Summary Verify an exam schedule
// @Tags ExamSchedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.ScheduleTransitionRequest false "Optional note"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /exam-schedules/{id}/verify [post]
func (h *ScheduleHandler) Verify(c *gin.Context) {
	req, ok := bindTransition(c)
	if !ok {
		return
	}
	h.respond(c)(h.service.Verify(c.Request.Context(), c.Param("id"), req, claimsFromContext(c)))
}

// Reschedule godoc
// @Summary Reopen a schedule for a new date
// @Tags ExamSchedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.ScheduleTransitionRequest false "Optional note"
// @Success 200 {object} response.Envelope
// @Router /exam-schedules/{id}/reschedule [post]
func (h *ScheduleHandler) Reschedule(c *gin.Context) {
	req, ok := bindTransition(c)
	if !ok {
		return
	}
	h.respond(c)(h.service.Reschedule(c.Request.Context(), c.Param("id"), req, claimsFromContext(c)))
}

// Cancel godoc
// @Summary Cancel an exam schedule
// @Tags ExamSchedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.CancelScheduleRequest true "Cancellation reason"
// @Success 200 {object} response.Envelope
// @Router /exam-schedules/{id}/cancel [post]
func (h *ScheduleHandler) Cancel(c *gin.Context) {
	var req dto.CancelScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "a cancellation reason is required"))
		return
	}
	h.respond(c)(h.service.Cancel(c.Request.Context(), c.Param("id"), req, claimsFromContext(c)))
}

func (h *ScheduleHandler) respond(c *gin.Context) func(*models.ExamSchedule, error) {
	return func(schedule *models.ExamSchedule, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, schedule, nil)
	}
}

func bindTransition(c *gin.Context) (dto.ScheduleTransitionRequest, bool) {
	var req dto.ScheduleTransitionRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
		return req, false
	}
	return req, true
}
